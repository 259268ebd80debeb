// Package confloader loads configuration with koanf.
//
// Sources, lowest priority first:
//
//  1. Default values (the struct passed to Load)
//  2. YAML configuration file
//  3. Environment variables (CLAIMLEDGER_ prefix, "__" between levels)
//
// Watcher reports changes of the configuration file so callers can
// Reload and apply the settings that may change at runtime.
package confloader
