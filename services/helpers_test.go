package services

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/utils"
)

var testClock = time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

func init() {
	utils.SilenceLoggers()
}

// newTestDB opens a private in-memory database. One connection keeps every
// query on the same memory database and serialises transactions.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func newTestServices(t *testing.T, strict bool) (*Services, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	svc := New(db, Options{
		StrictTransitions: strict,
		Now:               func() time.Time { return testClock },
	})
	return svc, db
}

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func requireMoney(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.True(t, money(want).Equal(got), "want %s, got %s", want, got.String())
}

func seedProduct(t *testing.T, db *gorm.DB, name, price string) models.Product {
	t.Helper()
	p := models.Product{Name: name, Price: money(price), PrepSection: "cozinha", PrepTimeMinutes: 15, Available: true}
	require.NoError(t, db.Create(&p).Error)
	return p
}

func seedTable(t *testing.T, db *gorm.DB, number int) models.Table {
	t.Helper()
	tbl := models.Table{Number: number, Capacity: 4, Status: models.TableLivre}
	require.NoError(t, db.Create(&tbl).Error)
	return tbl
}

func seedStaff(t *testing.T, db *gorm.DB, email, role string) models.User {
	t.Helper()
	u := models.User{Name: email, Email: email, Password: "x", Role: role, Active: true}
	require.NoError(t, db.Create(&u).Error)
	return u
}

func reloadTable(t *testing.T, db *gorm.DB, id uint) models.Table {
	t.Helper()
	var tbl models.Table
	require.NoError(t, db.First(&tbl, id).Error)
	return tbl
}

func reloadOrder(t *testing.T, db *gorm.DB, id uint) models.Order {
	t.Helper()
	var o models.Order
	require.NoError(t, db.Preload("Items").First(&o, id).Error)
	return o
}

var bg = context.Background()
