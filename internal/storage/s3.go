package storage

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/go-logr/logr"

	"github.com/imamik/osia/internal/util/fileutil"
)

// ObjectStore is the part of the S3 client used by the S3 store.
type ObjectStore interface {
	EnsureBucket(ctx context.Context) error
	List(ctx context.Context, prefix string) ([]string, error)
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	DeletePrefix(ctx context.Context, prefix string) error
}

// S3 mirrors cluster directories to "<prefix>/<cluster>/" in a bucket.
type S3 struct {
	Dir    string
	Prefix string
	client ObjectStore
	log    logr.Logger
}

// NewS3 returns an S3 store for cluster directories below dir.
func NewS3(dir, prefix string, client ObjectStore, log logr.Logger) *S3 {
	return &S3{
		Dir:    dir,
		Prefix: strings.Trim(prefix, "/"),
		client: client,
		log:    log.WithValues("storage", KindS3),
	}
}

func (s *S3) Name() string { return KindS3 }

func (s *S3) clusterPrefix(cluster string) string {
	return path.Join(s.Prefix, cluster) + "/"
}

// Prepare downloads a persisted cluster directory that is missing locally.
// An install of an already persisted cluster then fails on the existing
// directory instead of overwriting it.
func (s *S3) Prepare(ctx context.Context, cluster string) error {
	local := filepath.Join(s.Dir, cluster)
	if _, err := os.Stat(local); err == nil {
		return nil
	}

	prefix := s.clusterPrefix(cluster)
	keys, err := s.client.List(ctx, prefix)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}

	s.log.Info("Downloading cluster directory", "cluster", cluster, "objects", len(keys))
	for _, key := range keys {
		rel := strings.TrimPrefix(key, prefix)
		if rel == "" || strings.HasSuffix(rel, "/") {
			continue
		}
		target := filepath.Join(local, filepath.FromSlash(rel))
		if !strings.HasPrefix(target, local+string(filepath.Separator)) {
			return fmt.Errorf("object %s escapes the cluster directory", key)
		}
		data, err := s.client.Get(ctx, key)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
			return fmt.Errorf("failed to create %s: %w", filepath.Dir(target), err)
		}
		if err := fileutil.WriteFileAtomic(target, data, 0o600); err != nil {
			return err
		}
	}
	return nil
}

// Save uploads every file of the cluster directory except the lock file.
func (s *S3) Save(ctx context.Context, cluster string) error {
	if err := s.client.EnsureBucket(ctx); err != nil {
		return err
	}
	local := filepath.Join(s.Dir, cluster)
	prefix := s.clusterPrefix(cluster)

	return filepath.WalkDir(local, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || skipFile(d.Name()) {
			return nil
		}
		rel, err := filepath.Rel(local, p)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", p, err)
		}
		s.log.V(1).Info("Uploading", "file", rel)
		return s.client.Put(ctx, prefix+filepath.ToSlash(rel), data)
	})
}

// Remove deletes the persisted objects and the local directory.
func (s *S3) Remove(ctx context.Context, cluster string) error {
	if err := s.client.DeletePrefix(ctx, s.clusterPrefix(cluster)); err != nil {
		return err
	}
	if err := os.RemoveAll(filepath.Join(s.Dir, cluster)); err != nil {
		return fmt.Errorf("failed to remove cluster directory: %w", err)
	}
	return nil
}
