package repository

import (
	"github.com/mduc/storefront-backend/internal/app/model"
	"github.com/mduc/storefront-backend/pkg/logger"
	"gorm.io/gorm"
)

type ProductRepository interface {
	Create(product *model.Product) error
	BulkCreate(products []model.Product, batchSize int) error
	FindByID(id uint) (*model.Product, error)
	FindAll() ([]model.Product, error)
	Update(product *model.Product) error
	Delete(id uint) error
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) Create(product *model.Product) error {
	if err := r.db.Create(product).Error; err != nil {
		logger.Error("Failed to create product in database", err, map[string]interface{}{
			"name": product.Name,
		})
		return err
	}

	logger.Debug("Product created in database", map[string]interface{}{
		"product_id": product.ID,
		"name":       product.Name,
	})
	return nil
}

func (r *productRepository) BulkCreate(products []model.Product, batchSize int) error {
	logger.Info("Bulk creating products in database", map[string]interface{}{
		"count":      len(products),
		"batch_size": batchSize,
	})

	if err := r.db.CreateInBatches(products, batchSize).Error; err != nil {
		logger.Error("Failed to bulk create products in database", err, map[string]interface{}{
			"count": len(products),
		})
		return err
	}
	return nil
}

func (r *productRepository) FindByID(id uint) (*model.Product, error) {
	var product model.Product
	if err := r.db.First(&product, id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) FindAll() ([]model.Product, error) {
	var products []model.Product
	if err := r.db.Order("created_at DESC").Find(&products).Error; err != nil {
		logger.Error("Failed to list products from database", err, nil)
		return nil, err
	}
	return products, nil
}

func (r *productRepository) Update(product *model.Product) error {
	if err := r.db.Save(product).Error; err != nil {
		logger.Error("Failed to update product in database", err, map[string]interface{}{
			"product_id": product.ID,
		})
		return err
	}
	return nil
}

func (r *productRepository) Delete(id uint) error {
	if err := r.db.Delete(&model.Product{}, id).Error; err != nil {
		logger.Error("Failed to delete product from database", err, map[string]interface{}{
			"product_id": id,
		})
		return err
	}
	return nil
}
