// Package version reports the semantic version of the devserve build
package version

import (
	"errors"
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// Version is stamped at build time:
//
//	go build -ldflags "-X github.com/clean-dependency-project/devserve/internal/version.Version=1.2.0"
var Version = "0.1.0-dev"

// Fallback is reported when the stamped version is not valid semver.
const Fallback = "0.0.0-unknown"

// ErrInvalidVersion is wrapped by every parse failure.
var ErrInvalidVersion = errors.New("invalid version format")

// ErrVersionParseFailed represents a version parsing error
type ErrVersionParseFailed struct {
	Version string
	Cause   error
}

func (e ErrVersionParseFailed) Error() string {
	return fmt.Sprintf("failed to parse version %q: %v", e.Version, e.Cause)
}

func (e ErrVersionParseFailed) Unwrap() error {
	return e.Cause
}

func (e ErrVersionParseFailed) Is(target error) bool {
	return target == ErrInvalidVersion
}

// Parse validates v as a semantic version. A leading "v" is accepted.
func Parse(v string) (*semver.Version, error) {
	parsed, err := semver.NewVersion(v)
	if err != nil {
		return nil, ErrVersionParseFailed{Version: v, Cause: err}
	}
	return parsed, nil
}

// String returns the normalized build version, or Fallback when the stamped
// value does not parse.
func String() string {
	parsed, err := Parse(Version)
	if err != nil {
		return Fallback
	}
	return parsed.String()
}

// IsDevelopment reports whether the build carries a prerelease tag such as
// "-dev" or is unversioned.
func IsDevelopment() bool {
	parsed, err := Parse(Version)
	if err != nil {
		return true
	}
	return parsed.Prerelease() != ""
}
