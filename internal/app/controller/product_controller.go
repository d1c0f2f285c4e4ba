package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mduc/storefront-backend/internal/app/service"
	apierrors "github.com/mduc/storefront-backend/internal/errors"
	"github.com/mduc/storefront-backend/internal/middleware"
)

type ProductController struct {
	productService service.ProductService
}

func NewProductController(productService service.ProductService) *ProductController {
	return &ProductController{
		productService: productService,
	}
}

type ProductRequest struct {
	Name          string   `json:"name" binding:"required"`
	Description   string   `json:"description"`
	Price         float64  `json:"price" binding:"required,gt=0"`
	SalePrice     *float64 `json:"sale_price"`
	StockQuantity int      `json:"stock_quantity" binding:"min=0"`
	ImageURL      string   `json:"image_url"`
}

// GetProducts returns the catalog
// GET /api/v1/products
func (ctrl *ProductController) GetProducts(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	products, err := ctrl.productService.List()
	if err != nil {
		log.Error("Failed to list products", err, nil)
		apierrors.InternalError(c, "")
		return
	}

	apierrors.OK(c, http.StatusOK, gin.H{
		"products": products,
		"count":    len(products),
	})
}

// GetProductByID returns one product
// GET /api/v1/products/:id
func (ctrl *ProductController) GetProductByID(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	product, err := ctrl.productService.GetByID(id)
	if err != nil {
		if errors.Is(err, service.ErrProductNotFound) {
			apierrors.NotFound(c, apierrors.ProductNotFound, "Product not found")
			return
		}
		log.Error("Failed to load product", err, map[string]interface{}{
			"product_id": id,
		})
		apierrors.InternalError(c, "")
		return
	}

	apierrors.OK(c, http.StatusOK, gin.H{"product": product})
}

// CreateProduct adds a catalog entry (admin)
// POST /api/v1/admin/products
func (ctrl *ProductController) CreateProduct(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, apierrors.ValidationInvalidInput, err.Error())
		return
	}

	product, err := ctrl.productService.Create(service.ProductInput{
		Name:          req.Name,
		Description:   req.Description,
		Price:         req.Price,
		SalePrice:     req.SalePrice,
		StockQuantity: req.StockQuantity,
		ImageURL:      req.ImageURL,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidProduct) {
			apierrors.BadRequest(c, apierrors.ValidationInvalidInput, err.Error())
			return
		}
		log.Error("Failed to create product", err, map[string]interface{}{
			"name": req.Name,
		})
		apierrors.InternalError(c, "")
		return
	}

	apierrors.OK(c, http.StatusCreated, gin.H{"product": product})
}

// UpdateProduct edits a catalog entry (admin)
// PUT /api/v1/admin/products/:id
func (ctrl *ProductController) UpdateProduct(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, apierrors.ValidationInvalidInput, err.Error())
		return
	}

	product, err := ctrl.productService.Update(id, service.ProductInput{
		Name:          req.Name,
		Description:   req.Description,
		Price:         req.Price,
		SalePrice:     req.SalePrice,
		StockQuantity: req.StockQuantity,
		ImageURL:      req.ImageURL,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrProductNotFound):
			apierrors.NotFound(c, apierrors.ProductNotFound, "Product not found")
		case errors.Is(err, service.ErrInvalidProduct):
			apierrors.BadRequest(c, apierrors.ValidationInvalidInput, err.Error())
		default:
			log.Error("Failed to update product", err, map[string]interface{}{
				"product_id": id,
			})
			apierrors.InternalError(c, "")
		}
		return
	}

	apierrors.OK(c, http.StatusOK, gin.H{"product": product})
}

// DeleteProduct removes a catalog entry (admin)
// DELETE /api/v1/admin/products/:id
func (ctrl *ProductController) DeleteProduct(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := ctrl.productService.Delete(id); err != nil {
		if errors.Is(err, service.ErrProductNotFound) {
			apierrors.NotFound(c, apierrors.ProductNotFound, "Product not found")
			return
		}
		log.Error("Failed to delete product", err, map[string]interface{}{
			"product_id": id,
		})
		apierrors.InternalError(c, "")
		return
	}

	apierrors.OKMessage(c, http.StatusOK, "Product deleted", nil)
}

// parseIDParam parses a numeric path parameter, writing the error
// response itself when the value is malformed.
func parseIDParam(c *gin.Context, name string) (uint, bool) {
	value, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		apierrors.BadRequest(c, apierrors.ValidationInvalidID, "Invalid "+name+" parameter")
		return 0, false
	}
	return uint(value), true
}
