// Package testhelper provides database fixtures for integration tests.
package testhelper

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/vvka-141/sparkload/internal/db"
	"github.com/vvka-141/sparkload/internal/testinfra"
	"github.com/vvka-141/sparkload/pkg/sparkload"
)

// TestConnEnvVar overrides the auto-started container with an existing server.
const TestConnEnvVar = "SPARKLOAD_TEST_CONN"

var (
	testContainerOnce sync.Once
	testContainerConn string
	testContainerErr  error
)

func getOrStartTestContainer() (string, error) {
	testContainerOnce.Do(func() {
		container, err := testinfra.StartPostgres(context.Background())
		if err != nil {
			testContainerErr = err
			return
		}
		testContainerConn = container.ConnString
	})
	return testContainerConn, testContainerErr
}

// GetTestConnectionString returns the admin connection string of the test server.
// Priority: SPARKLOAD_TEST_CONN env var > auto-started testcontainer > skip test.
func GetTestConnectionString(t *testing.T) string {
	t.Helper()

	if connString := os.Getenv(TestConnEnvVar); connString != "" {
		return connString
	}

	connString, err := getOrStartTestContainer()
	if err != nil {
		t.Skipf("%s not set and Docker unavailable: %v", TestConnEnvVar, err)
	}
	return connString
}

// SkipIfShort skips the test if running in short mode (-short flag).
func SkipIfShort(t *testing.T) {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
}

// RequireDatabase combines SkipIfShort and GetTestConnectionString for convenience.
func RequireDatabase(t *testing.T) string {
	t.Helper()

	SkipIfShort(t)
	return GetTestConnectionString(t)
}

// NewTestDatabase creates an empty database for one test and drops it on cleanup.
// It returns the resolved configuration pointing at the new database.
func NewTestDatabase(t *testing.T) *sparkload.ConnectionConfig {
	t.Helper()

	adminConnStr := RequireDatabase(t)
	adminConfig, err := db.ParseConnectionString(adminConnStr)
	if err != nil {
		t.Fatalf("invalid test connection string: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	admin, err := pgx.Connect(ctx, adminConnStr)
	if err != nil {
		t.Fatalf("failed to connect to test server: %v", err)
	}
	defer admin.Close(ctx)

	name := "sparkload_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	if _, err := admin.Exec(ctx, fmt.Sprintf("CREATE DATABASE %s", pgx.Identifier{name}.Sanitize())); err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		conn, err := pgx.Connect(ctx, adminConnStr)
		if err != nil {
			t.Logf("cleanup: failed to connect: %v", err)
			return
		}
		defer conn.Close(ctx)
		if _, err := conn.Exec(ctx, fmt.Sprintf("DROP DATABASE IF EXISTS %s WITH (FORCE)", pgx.Identifier{name}.Sanitize())); err != nil {
			t.Logf("cleanup: failed to drop %s: %v", name, err)
		}
	})

	cfg := *adminConfig
	cfg.Database = name
	return &cfg
}

// Connect opens a connection to the database described by cfg.
func Connect(t *testing.T, cfg *sparkload.ConnectionConfig) *pgx.Conn {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	conn, err := pgx.Connect(ctx, db.BuildConnectionString(cfg))
	if err != nil {
		t.Fatalf("failed to connect to %s: %v", cfg.Database, err)
	}
	t.Cleanup(func() { conn.Close(context.Background()) })
	return conn
}
