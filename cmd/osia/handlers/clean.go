package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/imamik/osia/internal/logging"
	"github.com/imamik/osia/internal/metrics"
)

// Clean handles the clean command.
//
// Everything needed for teardown is read from the cluster directory; the
// settings only fill in what the persisted records cannot carry, such as
// the nsupdate key file or the Hetzner token.
func Clean(ctx context.Context, opts Options) error {
	if err := opts.validate(); err != nil {
		return err
	}

	log := logging.New(logOutput, opts.Verbose)
	settings, resolved, err := resolve(opts, log)
	if err != nil {
		return err
	}

	store, err := newStore(ctx, opts.storageKind(), opts.workDir(), settings.Storage, log)
	if err != nil {
		return err
	}
	if err := store.Prepare(ctx, opts.ClusterName); err != nil {
		return fmt.Errorf("failed to prepare %s storage: %w", store.Name(), err)
	}

	lc := newLifecycle(opts, resolved, log)

	start := time.Now()
	state, err := lc.Delete(ctx, opts.ClusterName, resolved.DNS)
	writeMetrics(opts, metrics.Operation{
		Name:     operationClean,
		Cluster:  opts.ClusterName,
		Cloud:    opts.Cloud,
		State:    string(state),
		Duration: time.Since(start),
		Err:      err,
	}, log)
	if err != nil {
		return err
	}

	if err := store.Remove(ctx, opts.ClusterName); err != nil {
		return fmt.Errorf("cluster %s destroyed but %s storage failed: %w", opts.ClusterName, store.Name(), err)
	}

	log.Info("Cluster removed", "cluster", opts.ClusterName)
	return nil
}
