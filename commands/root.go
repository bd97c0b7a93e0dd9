package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/yeremiapane/restaurant-pos/config"
	"github.com/yeremiapane/restaurant-pos/utils"
)

var (
	// Global flags
	dbDriver string
	dbURL    string
	logLevel string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "pos",
	Short: "Restaurant POS order service",
	Long: `Restaurant POS order service: orders, tables, kitchen display and payments.

Commands:
  serve    - Run the HTTP API and the kitchen display websocket
  migrate  - Bring the database schema up to date
  seed     - Load an admin user, tables and a starter menu`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbDriver, "driver", "", "Database driver: mysql, postgres or sqlite (overrides DB_DRIVER)")
	rootCmd.PersistentFlags().StringVar(&dbURL, "db", "", "Database connection URL (overrides DATABASE_URL)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (overrides LOG_LEVEL)")
}

// bootstrap loads configuration, applies flag overrides and opens the database.
func bootstrap() (*config.Config, *gorm.DB, error) {
	if dbDriver != "" {
		os.Setenv("DB_DRIVER", dbDriver)
	}
	if dbURL != "" {
		os.Setenv("DATABASE_URL", dbURL)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	utils.InitLogger(cfg.LogLevel)
	utils.SetJWTSecret(cfg.JWTSecret)
	if cfg.JWTSecret == "" {
		utils.InfoLogger.Warn("JWT_SECRET not set, using the development secret")
	}

	db, err := config.InitDB(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, db, nil
}
