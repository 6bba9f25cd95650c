// Package storage persists cluster directories after an install and drops
// them after a clean, so that teardown can happen from another checkout or
// machine.
package storage

import (
	"context"
	"fmt"
	"sort"

	"github.com/go-logr/logr"

	"github.com/imamik/osia/internal/config"
	"github.com/imamik/osia/internal/lifecycle"
	"github.com/imamik/osia/internal/platform/s3"
)

// Store kinds accepted by New.
const (
	KindGit  = "git"
	KindS3   = "s3"
	KindNone = "none"
)

// Store keeps cluster directories below a work directory in sync with a
// persistent location.
type Store interface {
	Name() string

	// Prepare runs before an install or clean touches the cluster.
	Prepare(ctx context.Context, cluster string) error

	// Save persists the cluster directory after a successful install.
	Save(ctx context.Context, cluster string) error

	// Remove drops the persisted directory after a clean.
	Remove(ctx context.Context, cluster string) error
}

// Kinds returns the accepted store kinds in sorted order.
func Kinds() []string {
	kinds := []string{KindGit, KindS3, KindNone}
	sort.Strings(kinds)
	return kinds
}

// New creates the store of the given kind rooted at workDir.
func New(ctx context.Context, kind, workDir string, cfg config.Storage, log logr.Logger) (Store, error) {
	switch kind {
	case KindGit:
		return NewGit(workDir, ExecGit, log), nil
	case KindS3:
		client, err := s3.NewClient(ctx, cfg.S3)
		if err != nil {
			return nil, err
		}
		return NewS3(workDir, cfg.S3.Prefix, client, log), nil
	case KindNone, "":
		return None{}, nil
	default:
		return nil, fmt.Errorf("unknown storage %q, expected one of %v", kind, Kinds())
	}
}

// None keeps cluster directories only on the local disk.
type None struct{}

func (None) Name() string                          { return KindNone }
func (None) Prepare(context.Context, string) error { return nil }
func (None) Save(context.Context, string) error    { return nil }
func (None) Remove(context.Context, string) error  { return nil }

// skipFile reports whether a file in a cluster directory stays local.
func skipFile(name string) bool {
	return name == lifecycle.LockFileName
}
