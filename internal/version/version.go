// ABOUTME: Version constants for the soundstage host
// ABOUTME: Single place binaries read product identification from
package version

const (
	// Version is the host release.
	Version = "0.1.0"

	// Product names the host in logs and UIs.
	Product = "Soundstage Host"

	// Manufacturer identifies the project.
	Manufacturer = "Soundstage Audio"
)
