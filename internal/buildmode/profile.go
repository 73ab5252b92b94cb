// Package buildmode reports which build profile the binary was compiled
// with. Builds tagged "release" are Production; every other build is
// Diagnostic and enables developer tooling such as the DevTools overlay.
package buildmode

import "fmt"

// Profile selects between the two statically known bootstrap paths.
type Profile int

const (
	Production Profile = iota
	Diagnostic
)

// Current returns the profile fixed at compile time.
func Current() Profile {
	if diagnostic {
		return Diagnostic
	}
	return Production
}

func (p Profile) String() string {
	switch p {
	case Production:
		return "production"
	case Diagnostic:
		return "diagnostic"
	default:
		return fmt.Sprintf("Profile(%d)", int(p))
	}
}
