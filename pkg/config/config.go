// pkg/config/config.go
//
// Runtime settings. Sources merge in viper's usual order: built-in
// defaults, then the XDG config file, then SCOUR_* environment variables.
// Everything is validated before the first job is admitted so a bad
// sandbox root fails at startup, not mid-wipe.

package config

import (
	"strings"
	"time"

	cerr "github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/RiptideSecurity/scour/pkg/scour_err"
	"github.com/RiptideSecurity/scour/pkg/scour_io"
	"github.com/RiptideSecurity/scour/pkg/shared"
	"github.com/RiptideSecurity/scour/pkg/xdg"
)

// ResidueSettings controls post-overwrite readback analysis.
type ResidueSettings struct {
	Enabled     bool  `mapstructure:"enabled"      yaml:"enabled"`
	SampleBytes int64 `mapstructure:"sample_bytes" yaml:"sample_bytes" validate:"gt=0"`
}

// AttestationSettings selects where the signing key lives.
type AttestationSettings struct {
	KeySource  string `mapstructure:"key_source"  yaml:"key_source"  validate:"oneof=file vault"`
	KeyFile    string `mapstructure:"key_file"    yaml:"key_file"    validate:"required_if=KeySource file"`
	VaultMount string `mapstructure:"vault_mount" yaml:"vault_mount"`
	VaultPath  string `mapstructure:"vault_path"  yaml:"vault_path"  validate:"required_if=KeySource vault"`
}

// Settings is the full runtime configuration.
type Settings struct {
	SandboxRoot       string              `mapstructure:"sandbox_root"        yaml:"sandbox_root"        validate:"required"`
	StateDir          string              `mapstructure:"state_dir"           yaml:"state_dir"           validate:"required"`
	ChunkSizeBytes    int64               `mapstructure:"chunk_size_bytes"    yaml:"chunk_size_bytes"    validate:"gt=0"`
	MaxConcurrentJobs int                 `mapstructure:"max_concurrent_jobs" yaml:"max_concurrent_jobs" validate:"gte=1,lte=64"`
	RetryDelay        time.Duration       `mapstructure:"retry_delay"         yaml:"retry_delay"         validate:"gte=0"`
	Residue           ResidueSettings     `mapstructure:"residue"             yaml:"residue"`
	Attestation       AttestationSettings `mapstructure:"attestation"         yaml:"attestation"`
}

func defaults(v *viper.Viper) {
	v.SetDefault("state_dir", xdg.XDGStatePath(shared.AppID, ""))
	v.SetDefault("chunk_size_bytes", shared.DefaultChunkSizeBytes)
	v.SetDefault("max_concurrent_jobs", shared.DefaultMaxConcurrentJobs)
	v.SetDefault("retry_delay", time.Duration(shared.DefaultRetryDelayMS)*time.Millisecond)
	v.SetDefault("residue.enabled", false)
	v.SetDefault("residue.sample_bytes", shared.DefaultResidueSampleBytes)
	v.SetDefault("attestation.key_source", "file")
	v.SetDefault("attestation.key_file", xdg.XDGConfigPath(shared.AppID, "signing.key"))
	v.SetDefault("attestation.vault_mount", "secret")
}

// Load reads settings from the standard locations and validates them.
// Validation failures surface as expected user errors naming the bad
// fields rather than a stack trace.
func Load(rc *scour_io.RuntimeContext) (*Settings, error) {
	log := otelzap.Ctx(rc.Ctx)

	v := viper.New()
	defaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(xdg.XDGConfigPath(shared.AppID, ""))
	v.SetEnvPrefix(strings.ToUpper(shared.AppID))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !cerr.As(err, &notFound) {
			return nil, cerr.Wrap(err, "read config file")
		}
		log.Debug("No config file found, using defaults and environment")
	} else {
		log.Debug("Loaded config file", zap.String("path", v.ConfigFileUsed()))
	}

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, cerr.Wrap(err, "parse configuration")
	}

	if err := Validate(&settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

// Validate checks a settings struct against its field constraints.
func Validate(s *Settings) error {
	validate := validator.New()
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var invalid validator.ValidationErrors
	if !cerr.As(err, &invalid) {
		return cerr.Wrap(err, "validate configuration")
	}

	fields := make([]string, 0, len(invalid))
	for _, fe := range invalid {
		fields = append(fields, describeFieldError(fe))
	}
	return scour_err.NewExpectedError(
		cerr.Newf("invalid configuration: %s", strings.Join(fields, "; ")))
}

func describeFieldError(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Settings.")
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "required_if":
		return field + " is required for the selected key source"
	case "oneof":
		return field + " must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "gt":
		return field + " must be greater than " + fe.Param()
	case "gte":
		return field + " must be at least " + fe.Param()
	case "lte":
		return field + " must be at most " + fe.Param()
	default:
		return field + " is invalid"
	}
}
