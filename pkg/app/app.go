// Package app assembles the runtime from validated settings. Every command
// verb goes through Build so a wipe, an inspection, and an attestation all
// see the same sandbox, journal, and registry wiring.
package app

import (
	"os"
	"path/filepath"

	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/RiptideSecurity/scour/pkg/attest"
	"github.com/RiptideSecurity/scour/pkg/config"
	"github.com/RiptideSecurity/scour/pkg/extent"
	"github.com/RiptideSecurity/scour/pkg/interaction"
	"github.com/RiptideSecurity/scour/pkg/jobs"
	"github.com/RiptideSecurity/scour/pkg/journal"
	"github.com/RiptideSecurity/scour/pkg/sanitize"
	"github.com/RiptideSecurity/scour/pkg/scour_io"
	"github.com/RiptideSecurity/scour/pkg/secrets"
	"github.com/RiptideSecurity/scour/pkg/xdg"
)

// App is the assembled runtime behind every command verb.
type App struct {
	Settings *config.Settings
	Sandbox  *extent.Sandbox
	Registry *jobs.Registry
	Journal  *journal.Store
	Attest   *attest.Service
	Certs    *attest.Store
}

// BuildOptions tweaks assembly per verb.
type BuildOptions struct {
	// AnalyzeResidue overrides the configured residue setting when true.
	AnalyzeResidue bool
	// SkipRemoval leaves extents in place after the final pass.
	SkipRemoval bool
}

// Build loads configuration and wires the full runtime.
func Build(rc *scour_io.RuntimeContext, opts BuildOptions) (*App, error) {
	settings, err := config.Load(rc)
	if err != nil {
		return nil, err
	}
	return BuildWith(rc, settings, opts)
}

// BuildWith wires the runtime from already-validated settings.
func BuildWith(rc *scour_io.RuntimeContext, settings *config.Settings, opts BuildOptions) (*App, error) {
	log := otelzap.Ctx(rc.Ctx)

	sandbox, err := extent.NewSandbox(settings.SandboxRoot)
	if err != nil {
		return nil, err
	}

	jrnl, err := journal.NewStore(filepath.Join(settings.StateDir, "jobs"))
	if err != nil {
		return nil, err
	}

	engineCfg := sanitize.Config{
		ChunkSize:          settings.ChunkSizeBytes,
		RetryDelay:         settings.RetryDelay,
		AnalyzeResidue:     settings.Residue.Enabled || opts.AnalyzeResidue,
		ResidueSampleBytes: settings.Residue.SampleBytes,
		SkipRemoval:        opts.SkipRemoval,
	}

	registry, err := jobs.NewRegistry(rc, jobs.Options{
		Sandbox:           sandbox,
		Backend:           extent.NewOSBackend(),
		Engine:            engineCfg,
		Journal:           jrnl,
		MaxConcurrentJobs: settings.MaxConcurrentJobs,
	})
	if err != nil {
		return nil, err
	}

	keys, err := keySource(settings)
	if err != nil {
		return nil, err
	}

	certs, err := attest.NewStore(filepath.Join(settings.StateDir, "attestations"))
	if err != nil {
		return nil, err
	}

	log.Debug("Runtime assembled",
		zap.String("sandbox_root", sandbox.Root()),
		zap.String("state_dir", settings.StateDir),
		zap.Int("max_concurrent_jobs", settings.MaxConcurrentJobs))

	return &App{
		Settings: settings,
		Sandbox:  sandbox,
		Registry: registry,
		Journal:  jrnl,
		Attest:   attest.NewService(registry, keys, certs),
		Certs:    certs,
	}, nil
}

func keySource(settings *config.Settings) (secrets.KeySource, error) {
	switch settings.Attestation.KeySource {
	case "vault":
		store, err := secrets.NewVaultStore(settings.Attestation.VaultMount)
		if err != nil {
			return nil, cerr.Wrap(err, "connect to vault key store")
		}
		return &secrets.StoreKeySource{
			Store:      store,
			SecretPath: settings.Attestation.VaultPath,
		}, nil
	case "file":
		if err := xdg.EnsureDirPath(filepath.Dir(settings.Attestation.KeyFile)); err != nil {
			return nil, cerr.Wrap(err, "create key directory")
		}
		return &secrets.FileKeySource{
			Path:       settings.Attestation.KeyFile,
			Passphrase: keyPassphrase,
		}, nil
	default:
		return nil, cerr.Newf("unknown key source %q", settings.Attestation.KeySource)
	}
}

// keyPassphrase reads the sealing passphrase from the environment, falling
// back to an interactive prompt.
func keyPassphrase() ([]byte, error) {
	if pass := os.Getenv("SCOUR_KEY_PASSPHRASE"); pass != "" {
		return []byte(pass), nil
	}
	return interaction.PromptSecret("Signing key passphrase")
}
