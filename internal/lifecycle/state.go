package lifecycle

import (
	"fmt"
	"os"
)

// InstallState is a state of the install state machine.
type InstallState string

const (
	InstallStart         InstallState = "Start"
	DirectoryReserved    InstallState = "DirectoryReserved"
	ResourcesAcquired    InstallState = "ResourcesAcquired"
	APIDomainRegistered  InstallState = "APIDomainRegistered"
	ConfigRendered       InstallState = "ConfigRendered"
	Installing           InstallState = "Installing"
	Installed            InstallState = "Installed"
	AppsDomainRegistered InstallState = "AppsDomainRegistered"
	Done                 InstallState = "Done"
	FailedCleanup        InstallState = "FailedCleanup"
)

// DeleteState is a state of the delete state machine.
type DeleteState string

const (
	DeleteStart    DeleteState = "Start"
	DNSRestored    DeleteState = "DNSRestored"
	DomainsRemoved DeleteState = "DomainsRemoved"
	ImageReleased  DeleteState = "ImageReleased"
	FIPsReleased   DeleteState = "FIPsReleased"
	Destroyed      DeleteState = "Destroyed"
	DestroyFailed  DeleteState = "DestroyFailed"
)

// StageError reports the last state an operation reached before failing.
type StageError struct {
	Cluster string
	Stage   string
	Err     error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("cluster %s failed after %s: %v", e.Cluster, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// DirectoryConflictError is returned when an install targets an existing
// cluster directory.
type DirectoryConflictError struct {
	Path string
}

func (e *DirectoryConflictError) Error() string {
	return fmt.Sprintf("cluster directory %s already exists, refusing to overwrite", e.Path)
}

// reserveDir creates dir, failing with DirectoryConflictError if it exists.
// Mkdir is atomic, so two concurrent installs cannot both succeed.
func reserveDir(dir string) error {
	err := os.Mkdir(dir, 0o750)
	if os.IsExist(err) {
		return &DirectoryConflictError{Path: dir}
	}
	if err != nil {
		return fmt.Errorf("failed to create cluster directory: %w", err)
	}
	return nil
}
