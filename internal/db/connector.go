package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/vvka-141/sparkload/internal/retry"
	"github.com/vvka-141/sparkload/pkg/sparkload"
)

// StandardConnector implements sparkload.Connector for username/password
// authentication with automatic retry on transient failures.
type StandardConnector struct {
	config        *sparkload.ConnectionConfig
	retryExecutor *retry.Executor
	logger        sparkload.Logger
}

// NewStandardConnector creates a StandardConnector using the default retry policy.
func NewStandardConnector(config *sparkload.ConnectionConfig, logger sparkload.Logger) *StandardConnector {
	return &StandardConnector{
		config:        config,
		retryExecutor: connectRetryExecutor(logger),
		logger:        logger,
	}
}

func (c *StandardConnector) Connect(ctx context.Context) (*pgx.Conn, error) {
	var conn *pgx.Conn
	err := c.retryExecutor.Execute(ctx, func(ctx context.Context) error {
		var err error
		conn, err = dial(ctx, c.config, c.logger)
		return err
	})
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// NewConnectorFactory returns a sparkload.ConnectorFactory that picks the
// connector matching the config's AuthMethod.
func NewConnectorFactory(logger sparkload.Logger) sparkload.ConnectorFactory {
	return func(config *sparkload.ConnectionConfig) (sparkload.Connector, error) {
		return NewConnector(config, logger)
	}
}

// NewConnector creates the Connector for config.AuthMethod.
func NewConnector(config *sparkload.ConnectionConfig, logger sparkload.Logger) (sparkload.Connector, error) {
	switch config.AuthMethod {
	case sparkload.AuthMethodStandard:
		return NewStandardConnector(config, logger), nil
	case sparkload.AuthMethodAWSIAM:
		return newAWSConnector(config, logger)
	case sparkload.AuthMethodGoogleIAM:
		return newGoogleConnector(config, logger)
	case sparkload.AuthMethodAzureEntraID:
		return newAzureConnector(config, logger)
	default:
		return nil, fmt.Errorf("unsupported auth method %v: %w", config.AuthMethod, sparkload.ErrUnsupportedAuthMethod)
	}
}

func connectRetryExecutor(logger sparkload.Logger) *retry.Executor {
	return retry.NewDefaultExecutor().WithOnRetry(func(attempt int, err error, delay time.Duration) {
		logger.Verbose("Connection attempt %d failed (%v), retrying in %v", attempt+1, err, delay)
	})
}

// dial opens one connection for cfg and verifies it with a ping.
func dial(ctx context.Context, cfg *sparkload.ConnectionConfig, logger sparkload.Logger) (*pgx.Conn, error) {
	connConfig, err := pgx.ParseConfig(BuildConnectionString(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection config: %w", err)
	}
	return connectWithConfig(ctx, connConfig, cfg, logger)
}

func connectWithConfig(ctx context.Context, connConfig *pgx.ConnConfig, cfg *sparkload.ConnectionConfig, logger sparkload.Logger) (*pgx.Conn, error) {
	connConfig.OnNotice = func(_ *pgconn.PgConn, notice *pgconn.Notice) {
		logger.Verbose("%s: %s", notice.Severity, notice.Message)
	}

	conn, err := pgx.ConnectConfig(ctx, connConfig)
	if err != nil {
		return nil, wrapConnectionError(err, cfg.Host, cfg.Port, cfg.Database)
	}
	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close(ctx)
		return nil, wrapConnectionError(err, cfg.Host, cfg.Port, cfg.Database)
	}
	return conn, nil
}

// wrapConnectionError wraps raw pgx connection errors with actionable guidance.
func wrapConnectionError(err error, host string, port int, database string) error {
	errStr := strings.ToLower(err.Error())
	addr := fmt.Sprintf("%s:%d", host, port)

	switch {
	case strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "actively refused"):
		return fmt.Errorf(`connection refused to %s

Possible causes:
  - PostgreSQL is not running (check: pg_isready -h %s -p %d)
  - Wrong host or port

Original error: %w`, addr, host, port, err)

	case strings.Contains(errStr, "no such host"):
		return fmt.Errorf(`cannot resolve host "%s"

Possible causes:
  - Hostname is misspelled
  - DNS is not configured or reachable

Original error: %w`, host, err)

	case strings.Contains(errStr, "password authentication failed"):
		return fmt.Errorf(`password authentication failed for database "%s"

Possible causes:
  - Wrong password (check $PGPASSWORD or ~/.pgpass)
  - Wrong username

Original error: %w`, database, err)

	case strings.Contains(errStr, "does not exist"):
		return fmt.Errorf(`database "%s" does not exist

To create it:
  createdb %s

Then run: sparkload schema

Original error: %w`, database, database, err)

	case strings.Contains(errStr, "timeout") || strings.Contains(errStr, "timed out"):
		return fmt.Errorf(`connection timed out to %s

Possible causes:
  - Server is overloaded or unresponsive
  - Firewall silently dropping packets

Original error: %w`, addr, err)

	case strings.Contains(errStr, "ssl") || strings.Contains(errStr, "tls"):
		return fmt.Errorf(`SSL/TLS connection error

Possible causes:
  - Server requires SSL but --sslmode is wrong
  - Certificate verification failed (try --sslmode=require)

Original error: %w`, err)

	default:
		return fmt.Errorf("failed to connect to database: %w", err)
	}
}

// newAWSConnector creates a token-based connector with the AWS IAM token provider.
func newAWSConnector(config *sparkload.ConnectionConfig, logger sparkload.Logger) (sparkload.Connector, error) {
	endpoint := fmt.Sprintf("%s:%d", config.Host, config.Port)

	tokenProvider, err := NewAWSIAMTokenProvider(endpoint, config.AWSRegion, config.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS IAM token provider: %w", err)
	}
	return NewTokenBasedConnector(config, tokenProvider, logger), nil
}

func newGoogleConnector(config *sparkload.ConnectionConfig, logger sparkload.Logger) (sparkload.Connector, error) {
	if config.GoogleInstance == "" {
		return nil, fmt.Errorf("Google Cloud SQL IAM auth requires --google-instance (project:region:instance): %w", sparkload.ErrInvalidConfig)
	}
	if config.Username == "" {
		return nil, fmt.Errorf("Google Cloud SQL IAM auth requires a username (-U): %w", sparkload.ErrInvalidConfig)
	}
	return NewGoogleCloudSQLConnector(config, logger), nil
}

// newAzureConnector uses Service Principal auth when tenant, client and
// secret are all set, and the DefaultAzureCredential chain otherwise.
func newAzureConnector(config *sparkload.ConnectionConfig, logger sparkload.Logger) (sparkload.Connector, error) {
	var (
		tokenProvider TokenProvider
		err           error
	)
	if config.AzureTenantID != "" && config.AzureClientID != "" && config.AzureClientSecret != "" {
		tokenProvider, err = NewAzureServicePrincipalProvider(config.AzureTenantID, config.AzureClientID, config.AzureClientSecret)
	} else {
		tokenProvider, err = NewAzureDefaultCredentialProvider()
	}
	if err != nil {
		return nil, err
	}
	return NewTokenBasedConnector(config, tokenProvider, logger), nil
}
