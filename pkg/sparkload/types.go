package sparkload

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RunConfig contains all parameters needed for one pipeline run.
type RunConfig struct {
	// Connection is the resolved store connection.
	Connection *ConnectionConfig

	// SongDataPath is the root directory of song metadata documents.
	SongDataPath string

	// LogDataPath is the root directory of event log documents.
	LogDataPath string

	// CreateSchema applies the bootstrap DDL before loading.
	CreateSchema bool

	// Strict turns any per-file failure into ErrLoadIncomplete at the end of the run.
	Strict bool

	// Verbose enables detailed logging
	Verbose bool
}

// Validate checks if the RunConfig has all required fields.
// It returns a multi-error if multiple validation failures occur.
func (c *RunConfig) Validate() error {
	var errs []error

	if c.Connection == nil {
		errs = append(errs, fmt.Errorf("Connection is required: %w", ErrInvalidConfig))
	} else if !c.Connection.AuthMethod.IsValid() {
		errs = append(errs, fmt.Errorf("auth method %v: %w", c.Connection.AuthMethod, ErrUnsupportedAuthMethod))
	}

	if c.SongDataPath == "" {
		errs = append(errs, fmt.Errorf("SongDataPath is required: %w", ErrInvalidConfig))
	}

	if c.LogDataPath == "" {
		errs = append(errs, fmt.Errorf("LogDataPath is required: %w", ErrInvalidConfig))
	}

	return errors.Join(errs...)
}

// ConnectionConfig represents parsed connection parameters.
type ConnectionConfig struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
	SSLMode  string

	// AuthMethod indicates the authentication mechanism to use
	AuthMethod AuthMethod

	// Additional connection parameters
	AppName          string
	ConnectTimeout   time.Duration
	AdditionalParams map[string]string

	// Azure Entra ID. With all three set, Service Principal authentication is
	// used; otherwise the DefaultAzureCredential chain.
	AzureTenantID     string
	AzureClientID     string
	AzureClientSecret string

	// AWSRegion is required for AWS IAM authentication.
	AWSRegion string

	// GoogleInstance is the Cloud SQL instance connection name (project:region:instance).
	GoogleInstance string
}

// AuthMethod represents the type of authentication to use.
type AuthMethod int

const (
	AuthMethodStandard     AuthMethod = iota // Username/Password
	AuthMethodAWSIAM                         // AWS IAM Database Authentication
	AuthMethodGoogleIAM                      // Google Cloud SQL IAM
	AuthMethodAzureEntraID                   // Azure Active Directory (Entra ID)
)

// String returns a human-readable string representation of the AuthMethod.
func (a AuthMethod) String() string {
	switch a {
	case AuthMethodStandard:
		return "Standard"
	case AuthMethodAWSIAM:
		return "AWS IAM"
	case AuthMethodGoogleIAM:
		return "Google IAM"
	case AuthMethodAzureEntraID:
		return "Azure Entra ID"
	default:
		return fmt.Sprintf("Unknown(%d)", a)
	}
}

// IsValid returns true if the AuthMethod is a valid, defined value.
func (a AuthMethod) IsValid() bool {
	return a >= AuthMethodStandard && a <= AuthMethodAzureEntraID
}

// ParseAuthMethod maps a configuration value to an AuthMethod.
// Matching is case-insensitive; an empty value means standard authentication.
func ParseAuthMethod(s string) (AuthMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "standard", "password":
		return AuthMethodStandard, nil
	case "aws", "aws-iam":
		return AuthMethodAWSIAM, nil
	case "google", "google-iam", "gcp":
		return AuthMethodGoogleIAM, nil
	case "azure", "azure-entra-id", "entra":
		return AuthMethodAzureEntraID, nil
	default:
		return AuthMethodStandard, fmt.Errorf("%w: %q", ErrUnsupportedAuthMethod, s)
	}
}

// RowCounts tallies rows written per destination table.
type RowCounts struct {
	Songs     int
	Artists   int
	Times     int
	Users     int
	Songplays int
}

// Add accumulates other into c.
func (c *RowCounts) Add(other RowCounts) {
	c.Songs += other.Songs
	c.Artists += other.Artists
	c.Times += other.Times
	c.Users += other.Users
	c.Songplays += other.Songplays
}

// Total returns the number of rows across all tables.
func (c RowCounts) Total() int {
	return c.Songs + c.Artists + c.Times + c.Users + c.Songplays
}

// FileFailure records a file whose transaction was rolled back.
type FileFailure struct {
	Path string
	Err  error
}

func (f FileFailure) Error() string {
	return fmt.Sprintf("%s: %v", f.Path, f.Err)
}

func (f FileFailure) Unwrap() error { return f.Err }

// RecordFailure records a single record skipped inside an otherwise committed file.
type RecordFailure struct {
	Path string
	Err  error
}

func (f RecordFailure) Error() string {
	return fmt.Sprintf("%s: %v", f.Path, f.Err)
}

func (f RecordFailure) Unwrap() error { return f.Err }

// LoadReport summarizes one Loader invocation over one dataset root.
type LoadReport struct {
	Dataset        string
	Root           string
	FilesFound     int
	FilesProcessed int
	Failures       []FileFailure
	RecordErrors   []RecordFailure
	Rows           RowCounts

	// UnresolvedPlays counts songplays written with null song_id/artist_id.
	UnresolvedPlays int

	Duration time.Duration
}

// OK reports whether every discovered file was committed.
func (r LoadReport) OK() bool {
	return len(r.Failures) == 0 && r.FilesProcessed == r.FilesFound
}

// RunReport summarizes a whole pipeline run.
type RunReport struct {
	RunID    uuid.UUID
	Songs    LoadReport
	Logs     LoadReport
	Duration time.Duration
}

// OK reports whether both datasets loaded without file failures.
func (r RunReport) OK() bool {
	return r.Songs.OK() && r.Logs.OK()
}
