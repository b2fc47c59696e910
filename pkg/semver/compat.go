// Package semver checks schema version compatibility for versioned configuration files.
package semver

import (
	"fmt"

	masterminds "github.com/Masterminds/semver/v3"
)

const logPrefix = "semver:compat"

// CheckCompatible returns an error unless version satisfies constraint
// (e.g. "1.2.0" against "^1.0.0"). Both are parsed with SemVer 2.0 rules.
func CheckCompatible(version, constraint string) error {
	v, err := masterminds.NewVersion(version)
	if err != nil {
		return fmt.Errorf("%s - invalid version %q: %w", logPrefix, version, err)
	}
	c, err := masterminds.NewConstraint(constraint)
	if err != nil {
		return fmt.Errorf("%s - invalid constraint %q: %w", logPrefix, constraint, err)
	}
	if !c.Check(v) {
		return fmt.Errorf("%s - version %s does not satisfy %s", logPrefix, v, constraint)
	}
	return nil
}
