package sparkload

import "time"

// Exit codes for semantic error classification.
// These follow Unix/GNU conventions:
//   - 0: Success
//   - 1: General error
//   - 2: CLI usage error (misuse of command line)
//   - 3+: Application-specific errors
const (
	ExitSuccess         = 0  // Both datasets were processed
	ExitGeneralError    = 1  // Unknown or unclassified error
	ExitUsageError      = 2  // CLI usage error (missing args, invalid flags)
	ExitPanic           = 3  // Internal panic (unexpected crash)
	ExitConfigError     = 10 // Invalid configuration
	ExitConnectionError = 11 // Failed to connect to the store
	ExitLoadIncomplete  = 13 // Some files failed and --strict was given
)

const (
	// DefaultSongDataPath is the song metadata root used when none is configured.
	DefaultSongDataPath = "data/song_data"

	// DefaultLogDataPath is the event log root used when none is configured.
	DefaultLogDataPath = "data/log_data"

	// DocumentExtension is the only file extension the discoverer accepts.
	DocumentExtension = ".json"

	// NextSongPage is the page value of events that represent an actual play.
	NextSongPage = "NextSong"

	// DefaultRetryInitialDelay is the default initial delay before the first retry attempt.
	DefaultRetryInitialDelay = 100 * time.Millisecond

	// DefaultRetryMaxDelay is the default maximum delay between retry attempts.
	DefaultRetryMaxDelay = 10 * time.Second

	// DefaultRetryMaxAttempts is the default maximum number of retry attempts.
	DefaultRetryMaxAttempts = 3

	// DefaultTimeout bounds a whole run. It guards against hangs, not slow loads.
	DefaultTimeout = 30 * time.Minute

	// DefaultDatabase is the target database when no source names one.
	DefaultDatabase = "sparkifydb"

	// DefaultApplicationName is reported to PostgreSQL as application_name.
	DefaultApplicationName = "sparkload"
)
