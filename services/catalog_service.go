package services

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/yeremiapane/restaurant-pos/models"
)

// ProductCatalog is the price source for new order items.
type ProductCatalog interface {
	GetProduct(ctx context.Context, id uint) (*models.Product, error)
}

type CatalogService struct {
	db *gorm.DB
}

func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{db: db}
}

func (s *CatalogService) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	var p models.Product
	if err := s.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, findErr(err, "product", id)
	}
	return &p, nil
}

type ProductInput struct {
	Name            string          `json:"name" binding:"required"`
	Description     string          `json:"description"`
	Price           decimal.Decimal `json:"price"`
	CategoryID      *uint           `json:"category_id"`
	PrepSection     string          `json:"prep_section"`
	PrepTimeMinutes int             `json:"prep_time_minutes"`
	Available       *bool           `json:"available"`
}

func (in ProductInput) apply(p *models.Product) error {
	if in.Price.IsNegative() {
		return newError(KindInvalidAmount, "price cannot be negative")
	}
	p.Name = in.Name
	p.Description = in.Description
	p.Price = in.Price.Round(2)
	p.CategoryID = in.CategoryID
	p.PrepSection = in.PrepSection
	if p.PrepSection == "" {
		p.PrepSection = "geral"
	}
	p.PrepTimeMinutes = in.PrepTimeMinutes
	if p.PrepTimeMinutes <= 0 {
		p.PrepTimeMinutes = 15
	}
	p.Available = in.Available == nil || *in.Available
	return nil
}

func (s *CatalogService) CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	var p models.Product
	if err := in.apply(&p); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(&p).Error; err != nil {
		return nil, dbError(err, "create product")
	}
	return &p, nil
}

// UpdateProduct never touches prices already captured on order items.
func (s *CatalogService) UpdateProduct(ctx context.Context, id uint, in ProductInput) (*models.Product, error) {
	p, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := in.apply(p); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Save(p).Error; err != nil {
		return nil, dbError(err, "update product")
	}
	return p, nil
}

func (s *CatalogService) ListProducts(ctx context.Context, onlyAvailable bool) ([]models.Product, error) {
	q := s.db.WithContext(ctx).Preload("Category").Order("name asc")
	if onlyAvailable {
		q = q.Where("available = ?", true)
	}
	var products []models.Product
	return products, dbError(q.Find(&products).Error, "list products")
}

func (s *CatalogService) CreateCategory(ctx context.Context, name string) (*models.Category, error) {
	if name == "" {
		return nil, newError(KindInvalidRequest, "category name is required")
	}
	c := models.Category{Name: name}
	if err := s.db.WithContext(ctx).Create(&c).Error; err != nil {
		return nil, dbError(err, "create category")
	}
	return &c, nil
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]models.Category, error) {
	var cats []models.Category
	err := s.db.WithContext(ctx).Order("name asc").Find(&cats).Error
	return cats, dbError(err, "list categories")
}
