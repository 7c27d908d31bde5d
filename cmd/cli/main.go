package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/akeren/cv99x-waitlist/config"
	"github.com/akeren/cv99x-waitlist/internal/log"
	"github.com/akeren/cv99x-waitlist/pkg/migrations"
	"github.com/akeren/cv99x-waitlist/pkg/utils"
	"gorm.io/gorm"
)

func main() {
	logger := log.NewLoggerWithJSONOutput()

	config.InitializeEnvFile(logger) // Load envs early for CLI consistency

	args := os.Args[1:]
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	switch args[0] {
	case "migrate":
		if err := runMigrate(logger, args[1:]); err != nil {
			logger.Error("Database migration failed", "error", err.Error())
			os.Exit(1)
		}
		return

	case "join":
		code, err := runJoin(context.Background(), logger, args[1:], os.Stdout)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(code)

	case "help", "-h", "--help":
		printUsage()
		return

	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func runMigrate(logger *log.Logger, args []string) error {
	op := "up"
	if len(args) > 0 {
		op = args[0]
	}

	attempts := utils.GetEnvPositiveIntOrDefault("STORE_CONNECT_ATTEMPTS", 5)
	db, err := config.ConnectWithRetry(logger, attempts, func() (*gorm.DB, error) {
		return config.NewDatabase(logger, &config.DBConfig{})
	})
	if err != nil {
		return fmt.Errorf("connect to database for migration: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get SQL DB instance for migration: %w", err)
	}
	defer func() {
		if err := sqlDB.Close(); err != nil {
			logger.Warn("Failed to close SQL DB after migration", "error", err.Error())
		}
	}()

	// Empty MIGRATIONS_DIR uses the schema embedded in the binary.
	cfg := migrations.Config{Dir: utils.GetEnvTrimmed("MIGRATIONS_DIR"), Logger: logger}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	switch op {
	case "up":
		if err := migrations.Up(ctx, sqlDB, cfg); err != nil {
			return err
		}
		logger.Info("Database migrations completed")
		return nil

	case "down":
		steps := 1
		if len(args) > 1 {
			steps, err = strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid step count %q: %w", args[1], err)
			}
		}
		return migrations.Down(ctx, sqlDB, cfg, steps)

	case "status":
		status, err := migrations.CurrentStatus(ctx, sqlDB, cfg)
		if err != nil {
			return err
		}
		fmt.Printf("version=%d dirty=%t\n", status.Version, status.Dirty)
		return nil

	default:
		return fmt.Errorf("unknown migrate operation %q (expected up, down [n] or status)", op)
	}
}

func printUsage() {
	fmt.Println("Usage: cli <command> [flags]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  migrate   Apply SQL migrations (migrate [up|down [n]|status])")
	fmt.Println("  join      Submit a waitlist entry through the form flow (see: cli join -h)")
	fmt.Println("  help      Show this message")
}
