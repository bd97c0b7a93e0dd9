package database

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/utils"
)

// columnPatch is an additive column older databases may lack, plus the
// statement that fills it for rows written before it existed.
type columnPatch struct {
	model    interface{}
	table    string
	column   string
	backfill string
}

var columnPatches = []columnPatch{
	{&models.Order{}, "orders", "version", "UPDATE orders SET version = 1 WHERE version IS NULL OR version = 0"},
	{&models.Order{}, "orders", "channel", "UPDATE orders SET channel = 'mesa' WHERE channel IS NULL OR channel = ''"},
	{&models.Order{}, "orders", "tip_amount", "UPDATE orders SET tip_amount = 0 WHERE tip_amount IS NULL"},
	{&models.Order{}, "orders", "tip_percentage", "UPDATE orders SET tip_percentage = 0 WHERE tip_percentage IS NULL"},
	{&models.Order{}, "orders", "delivery_fee", "UPDATE orders SET delivery_fee = 0 WHERE delivery_fee IS NULL"},
	{&models.OrderItem{}, "order_items", "status", "UPDATE order_items SET status = 'novo' WHERE status IS NULL OR status = ''"},
	{&models.OrderItem{}, "order_items", "prep_started_at", ""},
	{&models.OrderItem{}, "order_items", "prep_completed_at", ""},
	{&models.OrderItem{}, "order_items", "delivered_at", ""},
	{&models.Table{}, "tables", "current_order_id", ""},
}

// Migrate brings the schema up to date. It only ever adds.
func Migrate(db *gorm.DB) error {
	for _, p := range columnPatches {
		if err := ensureColumn(db, p); err != nil {
			return err
		}
	}

	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	for _, p := range columnPatches {
		if p.backfill == "" {
			continue
		}
		if err := db.Exec(p.backfill).Error; err != nil {
			return fmt.Errorf("backfill %s.%s: %w", p.table, p.column, err)
		}
	}

	utils.InfoLogger.Println("AutoMigrate completed.")
	return nil
}

// ensureColumn adds a column to an existing table. Tables that do not exist
// yet are left to AutoMigrate.
func ensureColumn(db *gorm.DB, p columnPatch) error {
	m := db.Migrator()
	if !m.HasTable(p.table) || m.HasColumn(p.model, p.column) {
		return nil
	}
	if err := m.AddColumn(p.model, p.column); err != nil {
		return fmt.Errorf("add column %s.%s: %w", p.table, p.column, err)
	}
	utils.InfoLogger.WithField("table", p.table).Infof("added column %s", p.column)
	return nil
}

// MissingTables reports model tables absent from the database.
func MissingTables(db *gorm.DB) ([]string, error) {
	var missing []string
	for _, model := range models.All() {
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(model); err != nil {
			return nil, fmt.Errorf("parse model: %w", err)
		}
		if !db.Migrator().HasTable(stmt.Schema.Table) {
			missing = append(missing, stmt.Schema.Table)
		}
	}
	return missing, nil
}
