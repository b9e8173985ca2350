package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Well-known locations and the environment prefix.
const (
	// EnvPrefix is prepended to upper-cased key names for environment
	// variable lookup, e.g. key "max_iterations" maps to
	// SKILLCYCLE_MAX_ITERATIONS.
	EnvPrefix = "SKILLCYCLE_"

	// GlobalConfigDir is the directory under ~/.config/ holding the
	// global config file.
	GlobalConfigDir = "skillcycle"

	// GlobalConfigFile is the global config filename.
	GlobalConfigFile = "config.yaml"

	// LocalConfigName is the per-repo config filename, looked up in the
	// git root of the current directory.
	LocalConfigName = ".skillcycle.yaml"
)

// Configuration keys.
const (
	KeyMaxIterations       = "max_iterations"
	KeyMaxVerifyAttempts   = "max_verify_attempts"
	KeyAnalysisMinAttempt  = "analysis_min_attempt"
	KeyConfidenceThreshold = "confidence_threshold"
	KeyRetryDelay          = "retry_delay"
	KeyInvokeTimeout       = "invoke_timeout"
	KeyExecutor            = "executor"
	KeyImagePrefix         = "image_prefix"
	KeyImageTag            = "image_tag"
	KeyCLIBinary           = "cli_binary"
	KeyWorkspaceRoot       = "workspace_root"
	KeyArtifactDir         = "artifact_dir"
	KeyTokenSecret         = "token_secret"
	KeyTokenTTL            = "token_ttl"
	KeySlackWebhook        = "slack_webhook"
	KeySlackChannel        = "slack_channel"
	KeyNotifyWebhook       = "notify_webhook"
	KeyNoColor             = "no_color"
)

// Defaults returns the built-in default values.
func Defaults() map[string]string {
	return map[string]string{
		KeyMaxIterations:       "10",
		KeyMaxVerifyAttempts:   "5",
		KeyAnalysisMinAttempt:  "3",
		KeyConfidenceThreshold: "0.85",
		KeyRetryDelay:          "10s",
		KeyInvokeTimeout:       "30m",
		KeyExecutor:            "container",
		KeyImagePrefix:         "claude-skill-",
		KeyImageTag:            "latest",
		KeyCLIBinary:           "claude",
		KeyWorkspaceRoot:       ".skillcycle/workspaces",
		KeyArtifactDir:         ".skillcycle",
		KeyTokenSecret:         "",
		KeyTokenTTL:            "720h",
		KeySlackWebhook:        "",
		KeySlackChannel:        "",
		KeyNotifyWebhook:       "",
		KeyNoColor:             "false",
	}
}

// validGlobalKeys lists keys settable in ~/.config/skillcycle/config.yaml.
var validGlobalKeys = []string{
	KeyMaxIterations,
	KeyMaxVerifyAttempts,
	KeyAnalysisMinAttempt,
	KeyConfidenceThreshold,
	KeyRetryDelay,
	KeyInvokeTimeout,
	KeyExecutor,
	KeyImagePrefix,
	KeyImageTag,
	KeyCLIBinary,
	KeyWorkspaceRoot,
	KeyArtifactDir,
	KeyTokenTTL,
	KeySlackWebhook,
	KeySlackChannel,
	KeyNotifyWebhook,
	KeyNoColor,
}

// validLocalKeys lists keys settable in a repo's .skillcycle.yaml.
// Secrets and machine-wide paths are deliberately absent.
var validLocalKeys = []string{
	KeyMaxIterations,
	KeyMaxVerifyAttempts,
	KeyAnalysisMinAttempt,
	KeyConfidenceThreshold,
	KeyExecutor,
	KeyImagePrefix,
	KeyImageTag,
	KeyArtifactDir,
}

// Resolver handles hierarchical configuration resolution.
type Resolver struct {
	globalPath string
	localPath  string
	gitRoot    string
	errWriter  io.Writer

	// Warnings collects non-fatal issues during resolution.
	Warnings []string
}

// NewResolver creates a resolver rooted at the current directory.
func NewResolver() *Resolver {
	r := &Resolver{errWriter: os.Stderr}

	if root := findGitRoot("."); root != "" {
		r.gitRoot = root
		r.localPath = filepath.Join(root, LocalConfigName)
	}

	if home, err := os.UserHomeDir(); err == nil {
		r.globalPath = filepath.Join(home, ".config", GlobalConfigDir, GlobalConfigFile)
	}

	return r
}

// NewResolverWithPaths creates a resolver with explicit global and local
// paths. Useful for testing or when paths are known ahead of time.
func NewResolverWithPaths(globalPath, localPath string) *Resolver {
	return &Resolver{
		globalPath: globalPath,
		localPath:  localPath,
		errWriter:  os.Stderr,
	}
}

// warn adds a warning and optionally prints it.
func (r *Resolver) warn(msg string) {
	r.Warnings = append(r.Warnings, msg)
	if r.errWriter != nil {
		fmt.Fprintf(r.errWriter, "Warning: %s\n", msg)
	}
}

// Resolved holds the final merged configuration.
type Resolved struct {
	values  map[string]string
	sources map[string]Source
}

// Get returns the value for a key, or empty string if not set.
func (c *Resolved) Get(key string) string {
	return c.values[key]
}

// Source returns the source of a key's value.
func (c *Resolved) Source(key string) Source {
	return c.sources[key]
}

// GetWithSource returns both the value and its source.
func (c *Resolved) GetWithSource(key string) (string, Source) {
	return c.values[key], c.sources[key]
}

// All returns a copy of all key-value pairs.
func (c *Resolved) All() map[string]string {
	result := make(map[string]string, len(c.values))
	for k, v := range c.values {
		result[k] = v
	}
	return result
}

// Keys returns all configuration keys.
func (c *Resolved) Keys() []string {
	keys := make([]string, 0, len(c.values))
	for k := range c.values {
		keys = append(keys, k)
	}
	return keys
}

// Resolve builds the final config by merging all sources.
// Priority (highest to lowest): flags > env > local > global > defaults.
func (r *Resolver) Resolve() *Resolved {
	cfg := &Resolved{
		values:  make(map[string]string),
		sources: make(map[string]Source),
	}

	r.applyDefaults(cfg)
	r.applyGlobal(cfg)
	r.applyLocal(cfg)
	r.applyEnv(cfg)

	return cfg
}

// ResolveWithFlags resolves config and applies flag overrides.
func (r *Resolver) ResolveWithFlags(flags map[string]string) *Resolved {
	cfg := r.Resolve()

	for key, value := range flags {
		if value != "" {
			cfg.values[key] = value
			cfg.sources[key] = SourceFlag
		}
	}

	return cfg
}

func (r *Resolver) applyDefaults(cfg *Resolved) {
	for key, value := range Defaults() {
		cfg.values[key] = value
		cfg.sources[key] = SourceDefault
	}
}

func (r *Resolver) applyGlobal(cfg *Resolved) {
	if r.globalPath == "" {
		return
	}

	data, err := os.ReadFile(r.globalPath)
	if err != nil {
		return // File doesn't exist - not an error
	}

	var parsed map[string]interface{}
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		r.warn(fmt.Sprintf("could not parse %s: %v", r.globalPath, err))
		return
	}

	for key, value := range parsed {
		if !contains(validGlobalKeys, key) {
			continue
		}
		if strVal := toString(value); strVal != "" {
			cfg.values[key] = strVal
			cfg.sources[key] = SourceGlobal
		}
	}
}

func (r *Resolver) applyLocal(cfg *Resolved) {
	if r.localPath == "" {
		return
	}

	data, err := os.ReadFile(r.localPath)
	if err != nil {
		return
	}

	var parsed map[string]interface{}
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		r.warn(fmt.Sprintf("could not parse %s: %v", r.localPath, err))
		return
	}

	for key, value := range parsed {
		if !contains(validLocalKeys, key) {
			continue
		}
		if strVal := toString(value); strVal != "" {
			cfg.values[key] = strVal
			cfg.sources[key] = SourceLocal
		}
	}
}

func (r *Resolver) applyEnv(cfg *Resolved) {
	for key := range cfg.values {
		envKey := EnvPrefix + strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
		if value := os.Getenv(envKey); value != "" {
			cfg.values[key] = value
			cfg.sources[key] = SourceEnv
		}
	}

	// Standard NO_COLOR env var is honored regardless of prefix.
	if _, hasNoColor := os.LookupEnv("NO_COLOR"); hasNoColor {
		cfg.values[KeyNoColor] = "true"
		cfg.sources[KeyNoColor] = SourceEnv
	}
}

// GitRoot returns the detected git root directory.
func (r *Resolver) GitRoot() string {
	return r.gitRoot
}

// GlobalPath returns the path to the global config file.
func (r *Resolver) GlobalPath() string {
	return r.globalPath
}

// LocalPath returns the path to the local config file.
func (r *Resolver) LocalPath() string {
	return r.localPath
}

// Helper functions

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

func toString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case bool:
		if val {
			return "true"
		}
		return "false"
	case int, int64, float64:
		return fmt.Sprintf("%v", val)
	default:
		return ""
	}
}

// findGitRoot finds the git root by looking for .git directory.
func findGitRoot(startDir string) string {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return ""
	}

	for {
		gitDir := filepath.Join(dir, ".git")
		if info, err := os.Stat(gitDir); err == nil && info.IsDir() {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break // Reached root
		}
		dir = parent
	}

	return ""
}
