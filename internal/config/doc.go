// Package config loads the settings that drive cluster installs and
// teardowns.
//
// Settings come from settings.yaml (or .yml) merged with .secrets.yaml in
// the working directory, plus OSIA_* environment variables. Each cloud has a
// list of named environments; [Settings.Resolve] picks one (the cloud_env
// default or an explicit override), applies the command line flags the user
// actually set and produces a [Resolved] configuration for a single
// cluster operation.
//
// The flat per-cloud layout used before environments existed is still
// accepted with a deprecation warning.
package config
