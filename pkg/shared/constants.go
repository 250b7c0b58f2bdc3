// pkg/shared/constants.go

package shared

const (
	// AppID is the canonical application identifier used for XDG paths,
	// log files, and environment variable prefixes.
	AppID = "scour"

	SystemLogDir  = "/var/log/scour/"
	SystemLogFile = SystemLogDir + "scour.log"

	// EnvPrefix namespaces all configuration environment variables
	// (SCOUR_SANDBOX_ROOT, SCOUR_STATE_DIR, ...).
	EnvPrefix = "SCOUR"
)

const (
	// DefaultChunkSizeBytes bounds each positioned write during an
	// overwrite pass. Passes never buffer a whole extent.
	DefaultChunkSizeBytes = 1 << 20 // 1 MiB

	// DefaultRetryDelay is the wait before the single reopen attempt after
	// a transient extent failure.
	DefaultRetryDelayMS = 250

	// DefaultMaxConcurrentJobs bounds parallel sanitization engines.
	DefaultMaxConcurrentJobs = 4

	// DefaultResidueSampleBytes caps post-overwrite readback per target.
	DefaultResidueSampleBytes = 64 << 10 // 64 KiB
)

const (
	// CertificateSchemaVersion is stamped on every attestation record.
	CertificateSchemaVersion = "1.0"

	// CertificateSchemaConstraint is the range Verify accepts.
	CertificateSchemaConstraint = ">= 1.0, < 2.0"
)
