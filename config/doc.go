// Package config provides application configuration management.
//
// The config package handles loading and validation of the application's
// configuration from YAML files and REPLBOX_-prefixed environment variables.
// It supports configuration for server settings, the worker subprocess, and
// named shared environments. Configuration is read once at startup.
//
// Usage:
//
//	cfg, err := config.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("Server transport: %s\n", cfg.Server.Transport)
package config
