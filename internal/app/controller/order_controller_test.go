package controller

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mduc/storefront-backend/internal/app/model"
	"github.com/mduc/storefront-backend/internal/app/repository"
	"github.com/mduc/storefront-backend/internal/app/service"
	"github.com/mduc/storefront-backend/internal/db"
	"github.com/mduc/storefront-backend/internal/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var testShipping = service.ShippingRule{FreeThreshold: 100, FlatFee: 5}

func setUserInContext(c *gin.Context, user *model.User) {
	c.Set(middleware.UserIDKey, user.ID)
	c.Set(middleware.UserRoleKey, user.Role)
}

func setupOrderControllerTest(t *testing.T) (*OrderController, *gin.Engine, *gorm.DB, *model.User, *model.Product) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	orderRepo := repository.NewOrderRepository(testDB)
	orderService := service.NewOrderService(testDB, orderRepo, testShipping)
	orderController := NewOrderController(orderService)

	user := &model.User{
		Email:        "buyer@example.com",
		PasswordHash: "hash",
		Name:         "Test Buyer",
		Role:         model.RoleUser,
	}
	testDB.Create(user)

	product := &model.Product{
		Name:          "Ceramic Mug",
		Price:         40,
		StockQuantity: 10,
	}
	testDB.Create(product)

	gin.SetMode(gin.TestMode)
	router := gin.New()

	return orderController, router, testDB, user, product
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	return response
}

func TestOrderController_GetMyCart(t *testing.T) {
	controller, router, _, user, _ := setupOrderControllerTest(t)

	router.GET("/orders/my-cart", func(c *gin.Context) {
		setUserInContext(c, user)
		controller.GetMyCart(c)
	})

	req := httptest.NewRequest(http.MethodGet, "/orders/my-cart", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	response := decodeEnvelope(t, w)
	assert.Equal(t, true, response["ok"])

	order := response["data"].(map[string]interface{})["order"].(map[string]interface{})
	assert.Equal(t, "cart", order["status"])
}

func TestOrderController_GetMyCart_Unauthenticated(t *testing.T) {
	controller, router, _, _, _ := setupOrderControllerTest(t)

	router.GET("/orders/my-cart", controller.GetMyCart)

	req := httptest.NewRequest(http.MethodGet, "/orders/my-cart", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	response := decodeEnvelope(t, w)
	assert.Equal(t, false, response["ok"])
}

func TestOrderController_UpsertItem(t *testing.T) {
	controller, router, _, user, product := setupOrderControllerTest(t)

	router.GET("/orders/my-cart", func(c *gin.Context) {
		setUserInContext(c, user)
		controller.GetMyCart(c)
	})
	router.POST("/orders/:id/items", func(c *gin.Context) {
		setUserInContext(c, user)
		controller.UpsertItem(c)
	})

	// Create the cart first.
	req := httptest.NewRequest(http.MethodGet, "/orders/my-cart", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	cart := decodeEnvelope(t, w)["data"].(map[string]interface{})["order"].(map[string]interface{})
	cartID := int(cart["id"].(float64))

	body, _ := json.Marshal(map[string]interface{}{
		"product_id": product.ID,
		"quantity":   2,
	})
	req = httptest.NewRequest(http.MethodPost, fmt.Sprintf("/orders/%d/items", cartID), bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	order := decodeEnvelope(t, w)["data"].(map[string]interface{})["order"].(map[string]interface{})
	assert.Equal(t, float64(80), order["subtotal"])
	assert.Equal(t, float64(85), order["grand_total"])

	// Zero quantity is a binding failure, not a service call.
	body, _ = json.Marshal(map[string]interface{}{
		"product_id": product.ID,
		"quantity":   0,
	})
	req = httptest.NewRequest(http.MethodPost, fmt.Sprintf("/orders/%d/items", cartID), bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOrderController_CreateGuestOrderAndTrack(t *testing.T) {
	controller, router, _, _, product := setupOrderControllerTest(t)

	router.POST("/orders/guest", controller.CreateGuestOrder)
	router.GET("/orders/track/:code", controller.TrackByCode)

	body, _ := json.Marshal(map[string]interface{}{
		"items": []map[string]interface{}{
			{"product_id": product.ID, "quantity": 3},
		},
		"address": map[string]interface{}{
			"street": "12 Elm Street",
			"city":   "Springfield",
		},
		"payment_method": "cod",
	})
	req := httptest.NewRequest(http.MethodPost, "/orders/guest", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	order := decodeEnvelope(t, w)["data"].(map[string]interface{})["order"].(map[string]interface{})
	assert.Equal(t, "paid", order["status"])
	assert.Equal(t, float64(120), order["grand_total"])
	code := order["code"].(string)

	req = httptest.NewRequest(http.MethodGet, "/orders/track/"+code, nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	tracked := decodeEnvelope(t, w)["data"].(map[string]interface{})["order"].(map[string]interface{})
	assert.Equal(t, code, tracked["code"])
}

func TestOrderController_CreateGuestOrder_InvalidPayment(t *testing.T) {
	controller, router, _, _, product := setupOrderControllerTest(t)

	router.POST("/orders/guest", controller.CreateGuestOrder)

	body, _ := json.Marshal(map[string]interface{}{
		"items": []map[string]interface{}{
			{"product_id": product.ID, "quantity": 1},
		},
		"address": map[string]interface{}{
			"street": "12 Elm Street",
			"city":   "Springfield",
		},
		"payment_method": "cheque",
	})
	req := httptest.NewRequest(http.MethodPost, "/orders/guest", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	response := decodeEnvelope(t, w)
	assert.Equal(t, false, response["ok"])
	assert.Equal(t, "ORDER_INVALID_PAYMENT_METHOD", response["error"])
}

func TestOrderController_TrackByCode_NotFound(t *testing.T) {
	controller, router, _, _, _ := setupOrderControllerTest(t)

	router.GET("/orders/track/:code", controller.TrackByCode)

	req := httptest.NewRequest(http.MethodGet, "/orders/track/SF-MISSING", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	response := decodeEnvelope(t, w)
	assert.Equal(t, "ORDER_NOT_FOUND", response["error"])
}

func TestOrderController_UpdateStatus_InvalidTransition(t *testing.T) {
	controller, router, testDB, user, product := setupOrderControllerTest(t)

	orderRepo := repository.NewOrderRepository(testDB)
	orderService := service.NewOrderService(testDB, orderRepo, testShipping)

	cart, err := orderService.GetOrCreateCart(user.ID)
	require.NoError(t, err)
	actor := service.Identity{UserID: &user.ID, Role: user.Role}
	_, err = orderService.UpsertItem(actor, cart.ID, product.ID, 1)
	require.NoError(t, err)
	_, err = orderService.Checkout(actor, cart.ID, service.CheckoutInput{
		Address: service.Address{Street: "12 Elm Street", City: "Springfield"},
	})
	require.NoError(t, err)

	admin := &model.User{Email: "admin@example.com", PasswordHash: "hash", Name: "Admin", Role: model.RoleAdmin}
	testDB.Create(admin)

	router.PATCH("/admin/orders/:id/status", func(c *gin.Context) {
		setUserInContext(c, admin)
		controller.UpdateStatus(c)
	})

	body, _ := json.Marshal(map[string]interface{}{"status": "delivered"})
	req := httptest.NewRequest(http.MethodPatch, fmt.Sprintf("/admin/orders/%d/status", cart.ID), bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
	response := decodeEnvelope(t, w)
	assert.Equal(t, "ORDER_INVALID_TRANSITION", response["error"])
}
