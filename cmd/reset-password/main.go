package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"go-inventory-pos/internal/config"
	"go-inventory-pos/internal/repository"
	"go-inventory-pos/internal/service"
	"go-inventory-pos/pkg/database"
	"go-inventory-pos/pkg/logger"

	"go.uber.org/zap"
)

var errUsage = errors.New("usage: reset-password -user <username> -password <new password>")

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

// run returns instead of exiting so deferred cleanup always happens.
func run(args []string, out io.Writer) error {
	flags := flag.NewFlagSet("reset-password", flag.ContinueOnError)
	username := flags.String("user", os.Getenv("RESET_USERNAME"), "username whose password is reset")
	password := flags.String("password", os.Getenv("RESET_PASSWORD"), "new password (min 6 characters)")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *username == "" || *password == "" {
		return errUsage
	}

	// 1. Load Env
	cfg, envLoaded, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, err := logger.New(cfg.IsProduction())
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer log.Sync()

	if !envLoaded {
		log.Warn(".env file not found, relying on system env")
	}

	// 2. Setup Database
	db, err := database.Connect(database.Options{
		Driver:          cfg.DBDriver,
		DSN:             cfg.DSN(),
		MaxOpenConns:    2,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Minute,
		LogLevel:        cfg.DBLogLevel,
	})
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer database.Close(db)

	// 3. Hash and store the new password
	users := service.NewUserService(repository.NewUserRepo(db), log)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := users.ResetPassword(ctx, *username, *password); err != nil {
		log.Error("password reset failed", zap.String("username", *username), zap.Error(err))
		return fmt.Errorf("reset password for %s: %w", *username, err)
	}

	fmt.Fprintf(out, "password for %s has been reset\n", *username)
	return nil
}
