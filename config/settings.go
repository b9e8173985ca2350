package config

import (
	"strconv"
	"time"
)

// Settings is the typed view of the resolved configuration that the
// controller consumes.
type Settings struct {
	// Cycle policy.
	MaxIterations       int
	MaxVerifyAttempts   int
	AnalysisMinAttempt  int
	ConfidenceThreshold float64

	// Invocation policy.
	RetryDelay    time.Duration
	InvokeTimeout time.Duration

	// Skill execution backend: "container" or "cli".
	Executor    string
	ImagePrefix string
	ImageTag    string
	CLIBinary   string

	// Storage locations.
	WorkspaceRoot string
	ArtifactDir   string

	// Workspace token signing.
	TokenSecret string
	TokenTTL    time.Duration

	// Notifications.
	SlackWebhook  string
	SlackChannel  string
	NotifyWebhook string
}

// Load resolves configuration from all sources and returns typed settings.
func Load() *Settings {
	return FromResolved(NewResolver().Resolve())
}

// FromResolved builds Settings from a resolved configuration.
// Unparseable values fall back to the built-in defaults.
func FromResolved(cfg *Resolved) *Settings {
	defaults := Defaults()

	return &Settings{
		MaxIterations:       intOr(cfg.Get(KeyMaxIterations), defaults[KeyMaxIterations]),
		MaxVerifyAttempts:   intOr(cfg.Get(KeyMaxVerifyAttempts), defaults[KeyMaxVerifyAttempts]),
		AnalysisMinAttempt:  intOr(cfg.Get(KeyAnalysisMinAttempt), defaults[KeyAnalysisMinAttempt]),
		ConfidenceThreshold: floatOr(cfg.Get(KeyConfidenceThreshold), defaults[KeyConfidenceThreshold]),
		RetryDelay:          durationOr(cfg.Get(KeyRetryDelay), defaults[KeyRetryDelay]),
		InvokeTimeout:       durationOr(cfg.Get(KeyInvokeTimeout), defaults[KeyInvokeTimeout]),
		Executor:            cfg.Get(KeyExecutor),
		ImagePrefix:         cfg.Get(KeyImagePrefix),
		ImageTag:            cfg.Get(KeyImageTag),
		CLIBinary:           cfg.Get(KeyCLIBinary),
		WorkspaceRoot:       cfg.Get(KeyWorkspaceRoot),
		ArtifactDir:         cfg.Get(KeyArtifactDir),
		TokenSecret:         cfg.Get(KeyTokenSecret),
		TokenTTL:            durationOr(cfg.Get(KeyTokenTTL), defaults[KeyTokenTTL]),
		SlackWebhook:        cfg.Get(KeySlackWebhook),
		SlackChannel:        cfg.Get(KeySlackChannel),
		NotifyWebhook:       cfg.Get(KeyNotifyWebhook),
	}
}

func intOr(value, fallback string) int {
	if n, err := strconv.Atoi(value); err == nil {
		return n
	}
	n, _ := strconv.Atoi(fallback)
	return n
}

func floatOr(value, fallback string) float64 {
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return f
	}
	f, _ := strconv.ParseFloat(fallback, 64)
	return f
}

func durationOr(value, fallback string) time.Duration {
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	d, _ := time.ParseDuration(fallback)
	return d
}
