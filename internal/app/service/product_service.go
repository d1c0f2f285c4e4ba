package service

import (
	"errors"
	"fmt"

	"github.com/mduc/storefront-backend/internal/app/model"
	"github.com/mduc/storefront-backend/internal/app/repository"
	"github.com/mduc/storefront-backend/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrInvalidProduct  = errors.New("invalid product definition")
)

type ProductInput struct {
	Name          string
	Description   string
	Price         float64
	SalePrice     *float64
	StockQuantity int
	ImageURL      string
}

type ProductService interface {
	GetByID(id uint) (*model.Product, error)
	List() ([]model.Product, error)
	Create(input ProductInput) (*model.Product, error)
	Update(id uint, input ProductInput) (*model.Product, error)
	Delete(id uint) error
	Import(products []model.Product) error
}

type productService struct {
	productRepo repository.ProductRepository
}

func NewProductService(productRepo repository.ProductRepository) ProductService {
	return &productService{productRepo: productRepo}
}

func (s *productService) GetByID(id uint) (*model.Product, error) {
	product, err := s.productRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return product, nil
}

func (s *productService) List() ([]model.Product, error) {
	return s.productRepo.FindAll()
}

func (s *productService) Create(input ProductInput) (*model.Product, error) {
	if err := validateProductInput(input); err != nil {
		return nil, err
	}

	product := &model.Product{
		Name:          input.Name,
		Description:   input.Description,
		Price:         input.Price,
		SalePrice:     input.SalePrice,
		StockQuantity: input.StockQuantity,
		ImageURL:      input.ImageURL,
	}
	if err := s.productRepo.Create(product); err != nil {
		return nil, err
	}

	logger.Info("Product created", map[string]interface{}{
		"product_id": product.ID,
		"name":       product.Name,
		"price":      product.Price,
	})
	return product, nil
}

func (s *productService) Update(id uint, input ProductInput) (*model.Product, error) {
	if err := validateProductInput(input); err != nil {
		return nil, err
	}

	product, err := s.productRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}

	product.Name = input.Name
	product.Description = input.Description
	product.Price = input.Price
	product.SalePrice = input.SalePrice
	product.StockQuantity = input.StockQuantity
	if input.ImageURL != "" {
		product.ImageURL = input.ImageURL
	}

	if err := s.productRepo.Update(product); err != nil {
		return nil, err
	}

	logger.Info("Product updated", map[string]interface{}{
		"product_id": product.ID,
		"name":       product.Name,
	})
	return product, nil
}

func (s *productService) Delete(id uint) error {
	if _, err := s.productRepo.FindByID(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProductNotFound
		}
		return err
	}

	if err := s.productRepo.Delete(id); err != nil {
		return err
	}

	logger.Info("Product deleted", map[string]interface{}{
		"product_id": id,
	})
	return nil
}

// Import bulk-creates catalog rows, used by the seeding command.
func (s *productService) Import(products []model.Product) error {
	for i := range products {
		if products[i].Name == "" || products[i].Price <= 0 {
			return fmt.Errorf("%w: row %d", ErrInvalidProduct, i+1)
		}
	}
	return s.productRepo.BulkCreate(products, 100)
}

func validateProductInput(input ProductInput) error {
	if input.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidProduct)
	}
	if input.Price <= 0 {
		return fmt.Errorf("%w: price must be positive", ErrInvalidProduct)
	}
	if input.SalePrice != nil && (*input.SalePrice <= 0 || *input.SalePrice >= input.Price) {
		return fmt.Errorf("%w: sale price must be positive and below the list price", ErrInvalidProduct)
	}
	if input.StockQuantity < 0 {
		return fmt.Errorf("%w: stock quantity cannot be negative", ErrInvalidProduct)
	}
	return nil
}
