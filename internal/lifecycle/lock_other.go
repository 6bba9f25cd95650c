//go:build !unix

package lifecycle

import (
	"fmt"
	"os"
	"path/filepath"
)

// lockDir only creates the lock file; advisory locking is unix only.
func lockDir(dir string) (func(), error) {
	f, err := os.OpenFile(filepath.Join(dir, LockFileName), os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file: %w", err)
	}
	return func() { _ = f.Close() }, nil
}
