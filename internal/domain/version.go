package domain

import (
	"strings"

	"github.com/hashicorp/go-version"
	m "modhook.dev/pkg/modhook/internal/model"
)

// CheckHostVersion compares the host version against a requirement. An empty
// requirement always passes. A requirement that equals the actual string
// passes; otherwise it is evaluated as a version constraint such as ">= 1.2"
// or "~> 1.2.0". A host without a version marker never satisfies a
// requirement.
func CheckHostVersion(det m.Detection, required, message string) error {
	required = strings.TrimSpace(required)
	if required == "" {
		return nil
	}

	mismatch := &m.VersionMismatchError{Required: required, Actual: det.HostVersion, Message: message}

	if !det.HasVersion {
		return mismatch
	}

	if det.HostVersion == required {
		return nil
	}

	constraints, err := version.NewConstraint(required)
	if err != nil {
		return mismatch
	}

	actual, err := version.NewVersion(det.HostVersion)
	if err != nil {
		return mismatch
	}

	if !constraints.Check(actual) {
		return mismatch
	}

	return nil
}
