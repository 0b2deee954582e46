// Package version defines the current mutechan version number.
package version

// Number is the current mutechan version number.
// We use semantic versioning (http://semver.org/).
const Number = "0.1.0"
