package services

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/yeremiapane/restaurant-pos/models"
)

// SettingsPatch lists the fields an update may change; nil means keep.
type SettingsPatch struct {
	StoreName      *string          `json:"store_name"`
	Phone          *string          `json:"phone"`
	Address        *string          `json:"address"`
	DeliveryFee    *decimal.Decimal `json:"delivery_fee"`
	EnableDelivery *bool            `json:"enable_delivery"`
}

type SettingsService struct {
	db    *gorm.DB
	audit *AuditService
}

func NewSettingsService(db *gorm.DB, audit *AuditService) *SettingsService {
	return &SettingsService{db: db, audit: audit}
}

// Load returns the store settings, creating the row with defaults on first use.
func (s *SettingsService) Load(ctx context.Context) (*models.Settings, error) {
	var st models.Settings
	err := s.db.WithContext(ctx).Order("id asc").First(&st).Error
	if err == nil {
		return &st, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, dbError(err, "load settings")
	}
	st = models.DefaultSettings()
	if err := s.db.WithContext(ctx).Create(&st).Error; err != nil {
		return nil, dbError(err, "create settings")
	}
	return &st, nil
}

func (s *SettingsService) Update(ctx context.Context, patch SettingsPatch, actor Actor) (*models.Settings, error) {
	if patch.DeliveryFee != nil && patch.DeliveryFee.IsNegative() {
		return nil, newError(KindInvalidAmount, "delivery fee cannot be negative")
	}
	current, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	before := *current

	if patch.StoreName != nil {
		current.StoreName = *patch.StoreName
	}
	if patch.Phone != nil {
		current.Phone = *patch.Phone
	}
	if patch.Address != nil {
		current.Address = *patch.Address
	}
	if patch.DeliveryFee != nil {
		current.DeliveryFee = patch.DeliveryFee.Round(2)
	}
	if patch.EnableDelivery != nil {
		current.EnableDelivery = *patch.EnableDelivery
	}
	if err := s.db.WithContext(ctx).Save(current).Error; err != nil {
		return nil, dbError(err, "save settings")
	}

	s.audit.Record(ctx, actor, AuditEntry{
		Action: AuditUpdateSettings, EntityType: "settings", EntityID: current.ID,
		Old: before, New: current,
	})
	return current, nil
}
