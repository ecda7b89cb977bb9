// Command taskctl runs operator tasks against the TaskHive database.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/taskhive/backend/internal/config"
	"github.com/taskhive/backend/internal/models"
	"github.com/taskhive/backend/internal/services"
	"github.com/taskhive/backend/pkg/logger"
	"gorm.io/gorm"
)

var (
	configPath string
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:           "taskctl",
	Short:         "TaskHive operator CLI",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Init("warn")
	},
}

func main() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("CONFIG_PATH"), "path to config.yaml")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output JSON")

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(createAdminCmd())
	rootCmd.AddCommand(importPoolCmd())
	rootCmd.AddCommand(payoutsCmd())
	rootCmd.AddCommand(rescoreCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// openDB loads the config and connects without migrating.
func openDB() (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if err := models.InitDB(&cfg.Database); err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	db := models.GetDB()
	services.InitSystemLogger(db)
	return cfg, db, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update tables and seed default settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, _, err := openDB(); err != nil {
				return err
			}
			if err := models.AutoMigrate(); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			if err := models.SeedDefaultData(); err != nil {
				return fmt.Errorf("seed: %w", err)
			}
			fmt.Println("database is up to date")
			return nil
		},
	}
}

func createAdminCmd() *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create a local admin account",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, err := openDB()
			if err != nil {
				return err
			}
			user, err := services.NewAuthService(db, &cfg.JWT, cfg.LDAP).CreateAdmin(username, password)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(user)
			}
			fmt.Printf("admin %q created (id %d)\n", user.Username, user.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "admin username")
	cmd.Flags().StringVar(&password, "password", "", "admin password")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
