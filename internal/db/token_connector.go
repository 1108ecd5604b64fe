package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/vvka-141/sparkload/internal/retry"
	"github.com/vvka-141/sparkload/pkg/sparkload"
)

// tokenExpiryWarning is the remaining lifetime below which a fresh token is
// reported. A load that outlives its token keeps the session, but a
// reconnect would fail.
const tokenExpiryWarning = 5 * time.Minute

// TokenBasedConnector implements sparkload.Connector for cloud providers
// that authenticate with short-lived tokens (AWS IAM, Azure Entra ID).
type TokenBasedConnector struct {
	config        *sparkload.ConnectionConfig
	tokenProvider TokenProvider
	retryExecutor *retry.Executor
	logger        sparkload.Logger
}

func NewTokenBasedConnector(config *sparkload.ConnectionConfig, tokenProvider TokenProvider, logger sparkload.Logger) *TokenBasedConnector {
	return &TokenBasedConnector{
		config:        config,
		tokenProvider: tokenProvider,
		retryExecutor: connectRetryExecutor(logger),
		logger:        logger,
	}
}

// Connect acquires a fresh token for every attempt.
func (c *TokenBasedConnector) Connect(ctx context.Context) (*pgx.Conn, error) {
	var conn *pgx.Conn
	err := c.retryExecutor.Execute(ctx, func(ctx context.Context) error {
		token, expiresOn, err := c.tokenProvider.GetToken(ctx)
		if err != nil {
			return fmt.Errorf("failed to acquire token from %s: %w", c.tokenProvider, err)
		}
		if remaining := time.Until(expiresOn); remaining < tokenExpiryWarning {
			c.logger.Info("Warning: %s token expires in %v", c.tokenProvider, remaining.Round(time.Second))
		}

		withToken := *c.config
		withToken.Password = token
		conn, err = dial(ctx, &withToken, c.logger)
		return err
	})
	if err != nil {
		return nil, err
	}
	return conn, nil
}
