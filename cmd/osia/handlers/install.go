package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/imamik/osia/internal/lifecycle"
	"github.com/imamik/osia/internal/logging"
	"github.com/imamik/osia/internal/metrics"
)

const (
	operationInstall = "install"
	operationClean   = "clean"
)

// Install handles the install command.
//
// The cluster directory is persisted with the selected store only when the
// install reaches Done.
func Install(ctx context.Context, opts Options) error {
	if err := opts.validate(); err != nil {
		return err
	}
	if opts.Cloud == "" {
		return fmt.Errorf("--cloud is required for install")
	}

	log := logging.New(logOutput, opts.Verbose)
	settings, resolved, err := resolve(opts, log)
	if err != nil {
		return err
	}
	if err := resolved.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	store, err := newStore(ctx, opts.storageKind(), opts.workDir(), settings.Storage, log)
	if err != nil {
		return err
	}
	if err := store.Prepare(ctx, opts.ClusterName); err != nil {
		return fmt.Errorf("failed to prepare %s storage: %w", store.Name(), err)
	}

	log.Info("Starting the installer", "cloud", opts.Cloud, "cluster", opts.ClusterName)
	lc := newLifecycle(opts, resolved, log)

	start := time.Now()
	state, err := lc.Install(ctx, lifecycle.RequestFromResolved(resolved))
	writeMetrics(opts, metrics.Operation{
		Name:     operationInstall,
		Cluster:  opts.ClusterName,
		Cloud:    opts.Cloud,
		State:    string(state),
		Duration: time.Since(start),
		Err:      err,
	}, log)
	if err != nil {
		return err
	}

	if err := store.Save(ctx, opts.ClusterName); err != nil {
		return fmt.Errorf("cluster %s installed but %s storage failed: %w", opts.ClusterName, store.Name(), err)
	}

	log.Info("Cluster installed", "cluster", opts.ClusterName, "directory", lc.ClusterDir(opts.ClusterName))
	return nil
}
