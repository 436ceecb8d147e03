package system

var (
	// The current version of this software.
	Version = "1.0.0"
)
