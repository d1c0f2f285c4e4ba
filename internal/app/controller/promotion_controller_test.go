package controller

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mduc/storefront-backend/internal/app/model"
	"github.com/mduc/storefront-backend/internal/app/repository"
	"github.com/mduc/storefront-backend/internal/app/service"
	"github.com/mduc/storefront-backend/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupPromotionControllerTest(t *testing.T) (*PromotionController, *gin.Engine, *gorm.DB) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	promoRepo := repository.NewPromotionRepository(testDB)
	promotionService := service.NewPromotionService(testDB, promoRepo)
	controller := NewPromotionController(promotionService)

	gin.SetMode(gin.TestMode)
	router := gin.New()

	return controller, router, testDB
}

func postJSON(t *testing.T, router *gin.Engine, path string, payload map[string]interface{}) *httptest.ResponseRecorder {
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestPromotionController_Validate_Valid(t *testing.T) {
	controller, router, testDB := setupPromotionControllerTest(t)

	require.NoError(t, testDB.Create(&model.Promotion{
		Code:          "SAVE10",
		DiscountType:  model.DiscountPercentage,
		DiscountValue: 10,
		IsActive:      true,
	}).Error)

	router.POST("/promotions/validate", controller.ValidatePromotion)

	w := postJSON(t, router, "/promotions/validate", map[string]interface{}{
		"code":         "save10",
		"order_amount": 200,
	})

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeEnvelope(t, w)["data"].(map[string]interface{})
	assert.Equal(t, true, data["valid"])
	assert.Equal(t, "SAVE10", data["code"])
	assert.Equal(t, float64(20), data["discount_amount"])
}

func TestPromotionController_Validate_BusinessRejectionIs200(t *testing.T) {
	controller, router, testDB := setupPromotionControllerTest(t)

	require.NoError(t, testDB.Create(&model.Promotion{
		Code:           "MIN100",
		DiscountType:   model.DiscountFixed,
		DiscountValue:  10,
		MinOrderAmount: func() *float64 { v := 100.0; return &v }(),
		IsActive:       true,
	}).Error)

	router.POST("/promotions/validate", controller.ValidatePromotion)

	// An unknown code and an ineligible order both come back as a
	// normal response with valid=false, never an HTTP failure.
	w := postJSON(t, router, "/promotions/validate", map[string]interface{}{
		"code":         "GHOST",
		"order_amount": 200,
	})
	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeEnvelope(t, w)["data"].(map[string]interface{})
	assert.Equal(t, false, data["valid"])
	assert.Equal(t, "PROMO_INVALID_CODE", data["reason"])

	w = postJSON(t, router, "/promotions/validate", map[string]interface{}{
		"code":         "MIN100",
		"order_amount": 50,
	})
	assert.Equal(t, http.StatusOK, w.Code)
	data = decodeEnvelope(t, w)["data"].(map[string]interface{})
	assert.Equal(t, false, data["valid"])
	assert.Equal(t, "PROMO_BELOW_MINIMUM", data["reason"])
}

func TestPromotionController_Create(t *testing.T) {
	controller, router, _ := setupPromotionControllerTest(t)

	router.POST("/admin/promotions", controller.CreatePromotion)

	w := postJSON(t, router, "/admin/promotions", map[string]interface{}{
		"code":           "welcome15",
		"discount_type":  "percentage",
		"discount_value": 15,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	promo := decodeEnvelope(t, w)["data"].(map[string]interface{})["promotion"].(map[string]interface{})
	assert.Equal(t, "WELCOME15", promo["code"])

	// Duplicate codes are conflicts.
	w = postJSON(t, router, "/admin/promotions", map[string]interface{}{
		"code":           "WELCOME15",
		"discount_type":  "fixed",
		"discount_value": 5,
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "PROMO_CODE_EXISTS", decodeEnvelope(t, w)["error"])

	// Invalid definitions are rejected up front.
	w = postJSON(t, router, "/admin/promotions", map[string]interface{}{
		"code":           "P200",
		"discount_type":  "percentage",
		"discount_value": 200,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
