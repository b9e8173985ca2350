// Package config provides hierarchical configuration for the cycle
// controller.
//
// Configuration is layered with clear precedence:
//  1. Command-line flags (highest priority)
//  2. Environment variables (SKILLCYCLE_ prefix)
//  3. Local config (.skillcycle.yaml in the git root)
//  4. Global config (~/.config/skillcycle/config.yaml)
//  5. Built-in defaults (lowest priority)
//
// # Basic Usage
//
//	settings := config.Load()
//	fmt.Println(settings.MaxIterations)      // 10
//	fmt.Println(settings.ConfidenceThreshold) // 0.85
//
// For key-level access with source tracking:
//
//	cfg := config.NewResolver().Resolve()
//	fmt.Println(cfg.Get(config.KeyExecutor))    // "container"
//	fmt.Println(cfg.Source(config.KeyExecutor)) // "default"
//
// # Environment Variables
//
//	SKILLCYCLE_MAX_ITERATIONS=15      # sets "max_iterations"
//	SKILLCYCLE_TOKEN_SECRET=...       # sets "token_secret"
//
// Each resolved value tracks where it came from: "default", "global",
// "local", "env", or "flag".
//
// Secrets like token_secret can only come from the environment; they are
// not valid keys in either config file.
package config
