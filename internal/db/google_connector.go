package db

import (
	"context"
	"fmt"
	"net"

	"cloud.google.com/go/cloudsqlconn"
	"github.com/jackc/pgx/v5"
	"github.com/vvka-141/sparkload/pkg/sparkload"
)

// GoogleCloudSQLConnector implements sparkload.Connector for Cloud SQL IAM
// database authentication through the Cloud SQL Go Connector.
//
// It implements io.Closer. Close must be called after the connection
// returned by Connect is closed, to release the dialer.
type GoogleCloudSQLConnector struct {
	config *sparkload.ConnectionConfig
	logger sparkload.Logger
	dialer *cloudsqlconn.Dialer
}

func NewGoogleCloudSQLConnector(config *sparkload.ConnectionConfig, logger sparkload.Logger) *GoogleCloudSQLConnector {
	return &GoogleCloudSQLConnector{config: config, logger: logger}
}

func (c *GoogleCloudSQLConnector) Connect(ctx context.Context) (*pgx.Conn, error) {
	dialer, err := cloudsqlconn.NewDialer(ctx, cloudsqlconn.WithIAMAuthN())
	if err != nil {
		return nil, fmt.Errorf("failed to create Cloud SQL dialer: %w", err)
	}

	// The dialer owns TLS; host is a placeholder that DialFunc ignores.
	dsn := fmt.Sprintf("host=%s user=%s dbname=%s sslmode=disable application_name=%s",
		c.config.GoogleInstance, c.config.Username, c.config.Database, c.appName())

	connConfig, err := pgx.ParseConfig(dsn)
	if err != nil {
		dialer.Close()
		return nil, fmt.Errorf("failed to parse connection config: %w", err)
	}
	connConfig.DialFunc = func(ctx context.Context, _, _ string) (net.Conn, error) {
		return dialer.Dial(ctx, c.config.GoogleInstance)
	}

	conn, err := connectWithConfig(ctx, connConfig, c.config, c.logger)
	if err != nil {
		dialer.Close()
		return nil, err
	}

	c.dialer = dialer
	return conn, nil
}

func (c *GoogleCloudSQLConnector) appName() string {
	if c.config.AppName != "" {
		return c.config.AppName
	}
	return sparkload.DefaultApplicationName
}

func (c *GoogleCloudSQLConnector) Close() error {
	if c.dialer != nil {
		err := c.dialer.Close()
		c.dialer = nil
		return err
	}
	return nil
}
