package sparkload

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Connector is a unified interface for establishing the store connection.
// Different implementations handle various authentication methods
// (standard credentials, cloud IAM, etc.).
type Connector interface {
	// Connect establishes a single connection to the database.
	// The returned connection should be closed by the caller when done.
	Connect(ctx context.Context) (*pgx.Conn, error)
}

// ConnectorFactory builds a Connector for a resolved connection configuration.
type ConnectorFactory func(*ConnectionConfig) (Connector, error)
