// Package handlers implements the osia commands.
//
// Commands parse flags into Options and call the handler here. Collaborators
// are created through package-level factory variables that tests replace.
package handlers

import (
	"fmt"

	"github.com/go-logr/logr"

	"github.com/imamik/osia/internal/config"
	"github.com/imamik/osia/internal/storage"
)

// DefaultWorkDir holds one directory per cluster.
const DefaultWorkDir = "."

// Options are the flags shared by install and clean.
type Options struct {
	ClusterName string
	Installer   string
	Cloud       string
	CloudEnv    string
	DNSProvider string

	// Overrides holds only the install options set on the command line.
	Overrides map[string]string

	SkipGit      bool
	Storage      string
	SettingsFile string
	WorkDir      string
	MetricsFile  string
	Verbose      bool
}

func (o Options) workDir() string {
	if o.WorkDir == "" {
		return DefaultWorkDir
	}
	return o.WorkDir
}

// storageKind applies --skip-git, which disables persistence whatever
// store was selected.
func (o Options) storageKind() string {
	if o.SkipGit {
		return storage.KindNone
	}
	if o.Storage == "" {
		return storage.KindGit
	}
	return o.Storage
}

func (o Options) validate() error {
	if o.ClusterName == "" {
		return fmt.Errorf("--cluster-name is required")
	}
	if o.Installer == "" {
		return fmt.Errorf("--installer is required")
	}
	return nil
}

// resolve loads the settings files and merges them with the flags.
func resolve(opts Options, log logr.Logger) (*config.Settings, *config.Resolved, error) {
	loadOpts := config.Options{}
	if opts.SettingsFile != "" {
		loadOpts.Files = []string{opts.SettingsFile}
	}
	settings, err := loadSettings(loadOpts)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load settings: %w", err)
	}

	resolved, err := settings.Resolve(config.Request{
		ClusterName: opts.ClusterName,
		Cloud:       opts.Cloud,
		CloudEnv:    opts.CloudEnv,
		DNSProvider: opts.DNSProvider,
		Overrides:   opts.Overrides,
	}, log)
	if err != nil {
		return nil, nil, err
	}
	return settings, resolved, nil
}
