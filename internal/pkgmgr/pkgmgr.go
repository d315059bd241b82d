package pkgmgr

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// PackageManager drives one OS package manager command family.
type PackageManager interface {
	Update(ctx context.Context, stream io.Writer) error
	Install(ctx context.Context, packages []string, stream io.Writer) error
	IsInstalled(ctx context.Context, packageName string) (bool, error)
	Remove(ctx context.Context, packages []string, stream io.Writer) error
	Family() string
}

var (
	ErrPackageManagerNotSupported = errors.New("package manager not supported")
	ErrPackageInstallationFailed  = errors.New("package installation failed")
)

// InstallationError ties an installation failure to the tool being
// installed.
type InstallationError struct {
	Tool       string
	Underlying error
}

func (ie *InstallationError) Error() string {
	return fmt.Sprintf("installation of %s failed: %v", ie.Tool, ie.Underlying)
}

func (ie *InstallationError) Unwrap() error {
	return ie.Underlying
}
