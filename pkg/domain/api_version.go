package domain

import (
	"slices"

	dErrors "petchain/pkg/domain-errors"
)

// APIVersion identifies a versioned route group of the verifier API.
type APIVersion string

// Supported API versions.
const (
	APIVersionV1 APIVersion = "v1"
)

var supportedVersions = []APIVersion{APIVersionV1}

// ParseAPIVersion validates and returns an APIVersion.
func ParseAPIVersion(s string) (APIVersion, error) {
	v := APIVersion(s)
	if !slices.Contains(supportedVersions, v) {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown API version: "+s)
	}
	return v, nil
}

func (v APIVersion) String() string {
	return string(v)
}

// IsNil returns true if the API version is empty.
func (v APIVersion) IsNil() bool {
	return v == ""
}

// SupportedVersions returns all currently supported API versions.
func SupportedVersions() []APIVersion {
	return slices.Clone(supportedVersions)
}
