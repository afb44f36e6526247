// Command resetdb wipes all users and orders from the configured database.
// Intended for development and staging environments.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"wingo-backend/internal/config"
	"wingo-backend/internal/database"
	"wingo-backend/internal/db"
	"wingo-backend/internal/logger"
)

func main() {
	configPath := flag.String("config", config.DefaultConfigFile, "path to the YAML config file")
	yes := flag.Bool("yes", false, "skip the confirmation prompt")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log.Environment, cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if !*yes {
		fmt.Println("WARNING: this deletes ALL users and orders.")
		fmt.Print("Type 'yes' to confirm: ")

		var confirm string
		fmt.Scanln(&confirm)
		if confirm != "yes" {
			fmt.Println("Reset cancelled.")
			return
		}
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DatabaseDSN())
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.NewMigrator(pool, database.Migrations(), log).RunMigrations(ctx); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}
	if err := database.ResetData(ctx, pool); err != nil {
		log.Fatal("reset failed", zap.Error(err))
	}
	log.Info("database reset complete")
}
