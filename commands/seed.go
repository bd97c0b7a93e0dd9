package commands

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/yeremiapane/restaurant-pos/database"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/services"
	"github.com/yeremiapane/restaurant-pos/utils"
)

type SeedOptions struct {
	AdminEmail    string
	AdminPassword string
	Tables        int
	Menu          bool
}

var seedOpts SeedOptions

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load an admin user, tables and a starter menu",
	Long: `Load an admin user, numbered tables, a starter menu and a 10% service charge.
Running it twice changes nothing.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, db, err := bootstrap()
		if err != nil {
			return err
		}
		if err := database.Migrate(db); err != nil {
			return err
		}
		return Seed(cmd.Context(), db, seedOpts)
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedOpts.AdminEmail, "admin-email", "admin@restaurante.local", "Admin login")
	seedCmd.Flags().StringVar(&seedOpts.AdminPassword, "admin-password", "", "Admin password (required)")
	seedCmd.Flags().IntVar(&seedOpts.Tables, "tables", 10, "Number of tables to create")
	seedCmd.Flags().BoolVar(&seedOpts.Menu, "menu", true, "Create the starter menu")
	rootCmd.AddCommand(seedCmd)
}

type seedProduct struct {
	category string
	name     string
	price    string
	section  string
	minutes  int
}

var starterMenu = []seedProduct{
	{"Lanches", "Hambúrguer artesanal", "28.90", "chapa", 15},
	{"Lanches", "X-Salada", "24.50", "chapa", 12},
	{"Porções", "Batata frita", "19.90", "fritura", 10},
	{"Bebidas", "Refrigerante lata", "6.50", "bar", 1},
	{"Bebidas", "Suco natural", "9.90", "bar", 5},
	{"Sobremesas", "Pudim", "12.00", "confeitaria", 2},
}

// Seed creates reference data without touching rows that already exist.
func Seed(ctx context.Context, db *gorm.DB, opts SeedOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.AdminPassword == "" {
		return fmt.Errorf("admin password is required")
	}
	db = db.WithContext(ctx)

	hashed, err := bcrypt.GenerateFromPassword([]byte(opts.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	admin := models.User{Name: "Administrador", Email: opts.AdminEmail}
	if err := db.Where(models.User{Email: opts.AdminEmail}).
		Attrs(models.User{Password: string(hashed), Role: models.RoleAdmin, Active: true}).
		FirstOrCreate(&admin).Error; err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	for n := 1; n <= opts.Tables; n++ {
		table := models.Table{Number: n}
		if err := db.Where(models.Table{Number: n}).
			Attrs(models.Table{Capacity: 4, Status: models.TableLivre}).
			FirstOrCreate(&table).Error; err != nil {
			return fmt.Errorf("seed table %d: %w", n, err)
		}
	}

	if opts.Menu {
		if err := seedMenu(db); err != nil {
			return err
		}
	}

	var policies int64
	db.Model(&models.ServiceChargePolicy{}).Count(&policies)
	if policies == 0 {
		policy := models.ServiceChargePolicy{
			Name:        "Serviço 10%",
			Percentage:  services.DefaultTipPercentage,
			IsAutomatic: true,
			Active:      true,
		}
		if err := db.Create(&policy).Error; err != nil {
			return fmt.Errorf("seed service charge: %w", err)
		}
	}

	if _, err := services.New(db, services.Options{}).Settings.Load(ctx); err != nil {
		return fmt.Errorf("seed settings: %w", err)
	}

	utils.InfoLogger.WithField("tables", opts.Tables).Info("seed completed")
	return nil
}

func seedMenu(db *gorm.DB) error {
	categories := map[string]uint{}
	for _, p := range starterMenu {
		id, ok := categories[p.category]
		if !ok {
			cat := models.Category{Name: p.category}
			if err := db.Where(models.Category{Name: p.category}).FirstOrCreate(&cat).Error; err != nil {
				return fmt.Errorf("seed category %s: %w", p.category, err)
			}
			id = cat.ID
			categories[p.category] = id
		}

		product := models.Product{Name: p.name}
		if err := db.Where(models.Product{Name: p.name}).
			Attrs(models.Product{
				CategoryID:      &id,
				Price:           decimal.RequireFromString(p.price),
				PrepSection:     p.section,
				PrepTimeMinutes: p.minutes,
				Available:       true,
			}).
			FirstOrCreate(&product).Error; err != nil {
			return fmt.Errorf("seed product %s: %w", p.name, err)
		}
	}
	return nil
}
