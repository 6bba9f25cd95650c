package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"strings"

	"github.com/go-logr/logr"

	"github.com/imamik/osia/internal/lifecycle"
	"github.com/imamik/osia/internal/logging"
)

// GitRunner runs git with args inside dir and returns its stdout.
type GitRunner func(ctx context.Context, dir string, args ...string) (string, error)

// ExecGit runs the git binary found on PATH.
func ExecGit(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("git %s: %w: %s", args[0], err, msg)
		}
		return "", fmt.Errorf("git %s: %w", args[0], err)
	}
	return strings.TrimSpace(stdout.String()), nil
}

// Git commits cluster directories into the repository at Dir and pushes
// them to the tracked upstream.
type Git struct {
	Dir string
	run GitRunner
	log logr.Logger
}

// NewGit returns a git store for the repository at dir.
func NewGit(dir string, run GitRunner, log logr.Logger) *Git {
	return &Git{Dir: dir, run: run, log: log.WithValues("storage", KindGit)}
}

func (g *Git) Name() string { return KindGit }

// Prepare fetches the upstream and warns when a push at the end is likely
// to fail. Only a missing upstream is an error.
func (g *Git) Prepare(ctx context.Context, _ string) error {
	upstream, err := g.git(ctx, "rev-parse", "--abbrev-ref", "--symbolic-full-name", "@{u}")
	if err != nil {
		return fmt.Errorf("current branch has no upstream: %w", err)
	}
	remote, _, _ := strings.Cut(upstream, "/")
	if _, err := g.git(ctx, "fetch", remote); err != nil {
		return err
	}

	local, err := g.git(ctx, "rev-parse", "HEAD")
	if err != nil {
		return err
	}
	tracked, err := g.git(ctx, "rev-parse", "@{u}")
	if err != nil {
		return err
	}
	if local != tracked {
		g.log.Error(errors.New("upstream has diverged"), "There are changes in the remote repository, pushing at the end will fail",
			"upstream", upstream)
	}

	status, err := g.git(ctx, "status", "--porcelain")
	if err != nil {
		return err
	}
	if status != "" {
		logging.Warn(g.log, "There are uncommitted changes in the repository, please fix this")
	}
	return nil
}

// Save commits the cluster directory, leaving out the lock file.
func (g *Git) Save(ctx context.Context, cluster string) error {
	if err := g.Prepare(ctx, cluster); err != nil {
		return err
	}
	exclude := ":(exclude)" + path.Join(cluster, lifecycle.LockFileName)
	if _, err := g.git(ctx, "add", "--", cluster, exclude); err != nil {
		return err
	}
	g.log.Info("Committing installer files", "cluster", cluster)
	if _, err := g.git(ctx, "commit", "-m", fmt.Sprintf("[OCP Installer] installation files for %s added", cluster)); err != nil {
		return err
	}
	_, err := g.git(ctx, "push")
	return err
}

// Remove deletes the cluster directory from the repository and the disk.
func (g *Git) Remove(ctx context.Context, cluster string) error {
	g.log.Info("Removing cluster directory from repository", "cluster", cluster)
	if _, err := g.git(ctx, "rm", "-r", "-f", "--", cluster); err != nil {
		return err
	}
	if _, err := g.git(ctx, "commit", "-m", fmt.Sprintf("[OCP Installer] removed installation files for %s", cluster)); err != nil {
		return err
	}
	if _, err := g.git(ctx, "push"); err != nil {
		return err
	}
	if err := os.RemoveAll(filepath.Join(g.Dir, cluster)); err != nil {
		return fmt.Errorf("failed to remove cluster directory: %w", err)
	}
	return nil
}

func (g *Git) git(ctx context.Context, args ...string) (string, error) {
	g.log.V(1).Info("Running git", "args", args)
	return g.run(ctx, g.Dir, args...)
}
