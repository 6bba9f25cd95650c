package installer

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeScript creates an executable shell script standing in for the installer.
func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "openshift-install")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

func TestRun_PassesArguments(t *testing.T) {
	script := writeScript(t, `echo "$@"; echo "image=${OPENSHIFT_INSTALL_OS_IMAGE_OVERRIDE:-none}"`)
	var stdout bytes.Buffer
	r := &Runner{Path: script, Stdout: &stdout, Env: []string{"PATH=/usr/bin:/bin"}}

	require.NoError(t, r.Run(context.Background(), Create, "/clusters/c1", ""))

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "create cluster --dir /clusters/c1", lines[0])
	assert.Equal(t, "image=none", lines[1])
}

func TestRun_ImageOverrideOnlyInChild(t *testing.T) {
	script := writeScript(t, `echo "image=${OPENSHIFT_INSTALL_OS_IMAGE_OVERRIDE:-none}"`)
	var stdout bytes.Buffer
	base := []string{"PATH=/usr/bin:/bin"}
	r := &Runner{Path: script, Stdout: &stdout, Env: base}

	require.NoError(t, r.Run(context.Background(), Destroy, "c1", "osia-c1-415"))

	assert.Equal(t, "image=osia-c1-415", strings.TrimSpace(stdout.String()))
	assert.Equal(t, []string{"PATH=/usr/bin:/bin"}, base, "base environment is not modified")
	_, set := os.LookupEnv(ImageOverrideEnv)
	assert.False(t, set)
}

func TestRun_NonZeroExit(t *testing.T) {
	script := writeScript(t, "exit 3\n")
	r := &Runner{Path: script}

	err := r.Run(context.Background(), Create, "c1", "")

	var execErr *ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, 3, execErr.ExitCode)
	assert.Equal(t, Create, execErr.Operation)
}

func TestRun_MissingExecutable(t *testing.T) {
	r := &Runner{Path: filepath.Join(t.TempDir(), "missing")}

	err := r.Run(context.Background(), Destroy, "c1", "")

	var execErr *ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, -1, execErr.ExitCode)
	assert.Equal(t, Destroy, execErr.Operation)
}

func TestRun_CancelledBeforeStart(t *testing.T) {
	script := writeScript(t, "exit 0\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := (&Runner{Path: script}).Run(ctx, Create, "c1", "")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCommit(t *testing.T) {
	tests := []struct {
		name    string
		output  string
		want    string
		wantErr bool
	}{
		{
			name:   "release build",
			output: "openshift-install 4.14.3\nbuilt from commit 1ab2c3d4e5f6\nrelease image quay.io/x@sha256:abc\n",
			want:   "1ab2c3d4e5f6",
		},
		{
			name:    "no commit line",
			output:  "openshift-install unreleased\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			script := writeScript(t, "cat <<'OUT'\n"+tt.output+"OUT\n")
			got, err := Commit(context.Background(), script)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
