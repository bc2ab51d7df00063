package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"go-inventory-pos/internal/config"
	"go-inventory-pos/internal/model"
	"go-inventory-pos/internal/repository"
	"go-inventory-pos/internal/service"
	"go-inventory-pos/pkg/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func setupEnv(t *testing.T) *config.Config {
	t.Helper()
	name := filepath.Join(t.TempDir(), "inventory")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_NAME", name)
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_LOG_LEVEL", "silent")
	t.Setenv("RESET_USERNAME", "")
	t.Setenv("RESET_PASSWORD", "")

	cfg := &config.Config{DBDriver: "sqlite", DBName: name}
	db, err := database.Connect(database.Options{
		Driver:          cfg.DBDriver,
		DSN:             cfg.DSN(),
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Minute,
		LogLevel:        "silent",
	})
	require.NoError(t, err)
	defer database.Close(db)
	require.NoError(t, repository.AutoMigrate(db))

	user := &model.User{Username: "thabo"}
	require.NoError(t, user.SetPassword("old-pass"))
	require.NoError(t, repository.NewUserRepo(db).Create(context.Background(), user))
	return cfg
}

func storedHash(t *testing.T, cfg *config.Config) string {
	t.Helper()
	db, err := database.Connect(database.Options{
		Driver:          cfg.DBDriver,
		DSN:             cfg.DSN(),
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Minute,
		LogLevel:        "silent",
	})
	require.NoError(t, err)
	defer database.Close(db)

	user, err := repository.NewUserRepo(db).FindByUsername(context.Background(), "thabo")
	require.NoError(t, err)
	return user.Password
}

func TestRun_ResetsPassword(t *testing.T) {
	cfg := setupEnv(t)

	var out bytes.Buffer
	require.NoError(t, run([]string{"-user", "thabo", "-password", "new-pass"}, &out))
	assert.Equal(t, "password for thabo has been reset\n", out.String())

	hash := storedHash(t, cfg)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("new-pass")))
}

func TestRun_ReturnsErrors(t *testing.T) {
	cfg := setupEnv(t)
	var out bytes.Buffer

	assert.ErrorIs(t, run(nil, &out), errUsage)
	assert.ErrorIs(t, run([]string{"-user", "ghost", "-password", "new-pass"}, &out), service.ErrNotFound)
	assert.ErrorIs(t, run([]string{"-user", "thabo", "-password", "123"}, &out), service.ErrInvalidInput)
	assert.Empty(t, out.String())

	// nothing changed, and the database file is still usable after every failed run
	hash := storedHash(t, cfg)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("old-pass")))
}
