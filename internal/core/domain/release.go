package domain

import (
	"errors"
	"strings"
)

// ErrVersionRequired is returned when creating a release without a version.
var ErrVersionRequired = errors.New("release version is required")

// Release is one versioned deployment artifact.
type Release struct {
	version string
}

// NewRelease creates a release for the given version string.
func NewRelease(version string) (*Release, error) {
	version = strings.TrimSpace(version)
	if version == "" {
		return nil, ErrVersionRequired
	}
	return &Release{version: version}, nil
}

// Version returns the version string as given.
func (r *Release) Version() string {
	return r.version
}

// DirectoryName returns the name of the release directory on a host.
// Build metadata separators are not portable in directory names.
func (r *Release) DirectoryName() string {
	return strings.ReplaceAll(r.version, "+", "_")
}

func (r *Release) String() string {
	return r.version
}
