package db

import (
	"fmt"
	"os"
	"strconv"

	"github.com/vvka-141/sparkload/internal/config"
	"github.com/vvka-141/sparkload/pkg/sparkload"
)

// GranularConnFlags represents connection parameters from CLI flags.
// These follow PostgreSQL standard flag conventions (-h, -p, -U, -d).
//
// Password is not a flag. Use $PGPASSWORD, ~/.pgpass or a connection string.
type GranularConnFlags struct {
	Host     string
	Port     int
	Username string
	Database string
	SSLMode  string
}

// IsEmpty reports whether no server-selecting flag was given. Database is
// excluded because -d may override the database of a connection string.
func (g *GranularConnFlags) IsEmpty() bool {
	return g.Host == "" && g.Port == 0 && g.Username == "" && g.SSLMode == ""
}

// AuthFlags selects a cloud authentication method from the CLI.
// The Azure client secret only comes from $AZURE_CLIENT_SECRET.
type AuthFlags struct {
	Azure          bool
	AzureTenantID  string
	AzureClientID  string
	AWS            bool
	AWSRegion      string
	Google         bool
	GoogleInstance string
}

func (a *AuthFlags) selected() int {
	n := 0
	for _, on := range []bool{a.Azure, a.AWS, a.Google} {
		if on {
			n++
		}
	}
	return n
}

// EnvVars holds the environment variables that take part in resolution.
// See: https://www.postgresql.org/docs/current/libpq-envars.html
type EnvVars struct {
	PGHOST     string
	PGPORT     string
	PGUSER     string
	PGPASSWORD string
	PGDATABASE string
	PGSSLMODE  string

	// Full connection strings. SPARKLOAD_CONNECTION_STRING wins over DATABASE_URL.
	SPARKLOAD_CONNECTION_STRING string
	DATABASE_URL                string

	AZURE_TENANT_ID     string
	AZURE_CLIENT_ID     string
	AZURE_CLIENT_SECRET string
	AWS_REGION          string
}

func LoadFromEnvironment() *EnvVars {
	return &EnvVars{
		PGHOST:                      os.Getenv("PGHOST"),
		PGPORT:                      os.Getenv("PGPORT"),
		PGUSER:                      os.Getenv("PGUSER"),
		PGPASSWORD:                  os.Getenv("PGPASSWORD"),
		PGDATABASE:                  os.Getenv("PGDATABASE"),
		PGSSLMODE:                   os.Getenv("PGSSLMODE"),
		SPARKLOAD_CONNECTION_STRING: os.Getenv("SPARKLOAD_CONNECTION_STRING"),
		DATABASE_URL:                os.Getenv("DATABASE_URL"),
		AZURE_TENANT_ID:             os.Getenv("AZURE_TENANT_ID"),
		AZURE_CLIENT_ID:             os.Getenv("AZURE_CLIENT_ID"),
		AZURE_CLIENT_SECRET:         os.Getenv("AZURE_CLIENT_SECRET"),
		AWS_REGION:                  os.Getenv("AWS_REGION"),
	}
}

func (e *EnvVars) connectionString() string {
	if e.SPARKLOAD_CONNECTION_STRING != "" {
		return e.SPARKLOAD_CONNECTION_STRING
	}
	return e.DATABASE_URL
}

// ResolveConnectionParams resolves connection parameters with this precedence:
//
//  1. --connection flag
//  2. granular flags (-h, -p, -U, --sslmode)
//  3. $SPARKLOAD_CONNECTION_STRING or $DATABASE_URL, when no granular flag is set
//  4. PG* environment variables
//  5. sparkload.yaml
//  6. defaults (localhost:5432, sslmode prefer, database sparkifydb)
//
// -d overrides the database of any connection string. Giving both
// --connection and granular flags is an error.
func ResolveConnectionParams(
	connStringFlag string,
	granularFlags *GranularConnFlags,
	authFlags *AuthFlags,
	envVars *EnvVars,
	projectConfig *config.ProjectConfig,
) (*sparkload.ConnectionConfig, error) {
	if granularFlags == nil {
		granularFlags = &GranularConnFlags{}
	}
	if authFlags == nil {
		authFlags = &AuthFlags{}
	}
	if envVars == nil {
		envVars = &EnvVars{}
	}

	if connStringFlag != "" && !granularFlags.IsEmpty() {
		return nil, fmt.Errorf("cannot specify both --connection and granular flags (-h, -p, -U, --sslmode): %w", sparkload.ErrInvalidConfig)
	}
	if authFlags.selected() > 1 {
		return nil, fmt.Errorf("--azure, --aws and --google are mutually exclusive: %w", sparkload.ErrInvalidConfig)
	}

	var pc config.ConnectionConfig
	if projectConfig != nil {
		pc = projectConfig.Connection
	}

	var (
		cfg *sparkload.ConnectionConfig
		err error
	)
	switch {
	case connStringFlag != "":
		cfg, err = resolveFromConnectionString(connStringFlag, envVars)
	case granularFlags.IsEmpty() && envVars.connectionString() != "":
		cfg, err = resolveFromConnectionString(envVars.connectionString(), envVars)
	default:
		cfg, err = resolveFromGranularParams(granularFlags, envVars, pc)
	}
	if err != nil {
		return nil, err
	}

	if granularFlags.Database != "" {
		cfg.Database = granularFlags.Database
	}
	if cfg.AppName == "" {
		cfg.AppName = sparkload.DefaultApplicationName
	}

	if err := applyAuth(cfg, authFlags, envVars, pc); err != nil {
		return nil, err
	}
	return cfg, nil
}

// resolveFromConnectionString parses connStr and fills what it leaves out
// from the environment, as libpq does.
func resolveFromConnectionString(connStr string, envVars *EnvVars) (*sparkload.ConnectionConfig, error) {
	cfg, err := ParseConnectionString(connStr)
	if err != nil {
		return nil, fmt.Errorf("invalid connection string: %v: %w", err, sparkload.ErrInvalidConfig)
	}

	cfg.SSLMode = firstNonEmpty(cfg.SSLMode, envVars.PGSSLMODE, "prefer")
	cfg.Database = firstNonEmpty(cfg.Database, envVars.PGDATABASE, sparkload.DefaultDatabase)
	cfg.Username = firstNonEmpty(cfg.Username, envVars.PGUSER)
	cfg.Password = firstNonEmpty(cfg.Password, envVars.PGPASSWORD)
	return cfg, nil
}

// resolveFromGranularParams applies flag > environment > sparkload.yaml >
// default for each parameter.
func resolveFromGranularParams(flags *GranularConnFlags, envVars *EnvVars, pc config.ConnectionConfig) (*sparkload.ConnectionConfig, error) {
	cfg := &sparkload.ConnectionConfig{
		Host:             firstNonEmpty(flags.Host, envVars.PGHOST, pc.Host, "localhost"),
		Username:         firstNonEmpty(flags.Username, envVars.PGUSER, pc.Username, os.Getenv("USER"), os.Getenv("USERNAME")),
		Password:         envVars.PGPASSWORD,
		Database:         firstNonEmpty(flags.Database, envVars.PGDATABASE, pc.Database, sparkload.DefaultDatabase),
		SSLMode:          firstNonEmpty(flags.SSLMode, envVars.PGSSLMODE, pc.SSLMode, "prefer"),
		AuthMethod:       sparkload.AuthMethodStandard,
		AdditionalParams: make(map[string]string),
	}

	switch {
	case flags.Port != 0:
		cfg.Port = flags.Port
	case envVars.PGPORT != "":
		port, err := strconv.Atoi(envVars.PGPORT)
		if err != nil {
			return nil, fmt.Errorf("invalid $PGPORT value '%s': must be an integer: %w", envVars.PGPORT, sparkload.ErrInvalidConfig)
		}
		cfg.Port = port
	case pc.Port != 0:
		cfg.Port = pc.Port
	default:
		cfg.Port = 5432
	}
	return cfg, nil
}

// applyAuth picks the authentication method: CLI flags first, then
// sparkload.yaml auth_method, then the presence of Azure environment
// variables. Flag values override environment values.
func applyAuth(cfg *sparkload.ConnectionConfig, flags *AuthFlags, env *EnvVars, pc config.ConnectionConfig) error {
	method, err := sparkload.ParseAuthMethod(pc.AuthMethod)
	if err != nil {
		return err
	}
	switch {
	case flags.Azure:
		method = sparkload.AuthMethodAzureEntraID
	case flags.AWS:
		method = sparkload.AuthMethodAWSIAM
	case flags.Google:
		method = sparkload.AuthMethodGoogleIAM
	case method == sparkload.AuthMethodStandard && (env.AZURE_TENANT_ID != "" || env.AZURE_CLIENT_ID != ""):
		method = sparkload.AuthMethodAzureEntraID
	}

	cfg.AuthMethod = method
	switch method {
	case sparkload.AuthMethodAzureEntraID:
		cfg.AzureTenantID = firstNonEmpty(flags.AzureTenantID, env.AZURE_TENANT_ID, pc.AzureTenantID)
		cfg.AzureClientID = firstNonEmpty(flags.AzureClientID, env.AZURE_CLIENT_ID, pc.AzureClientID)
		cfg.AzureClientSecret = env.AZURE_CLIENT_SECRET
	case sparkload.AuthMethodAWSIAM:
		cfg.AWSRegion = firstNonEmpty(flags.AWSRegion, env.AWS_REGION, pc.AWSRegion)
	case sparkload.AuthMethodGoogleIAM:
		cfg.GoogleInstance = firstNonEmpty(flags.GoogleInstance, pc.GoogleInstance)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
