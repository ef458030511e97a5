// Package version holds build metadata set with -ldflags -X.
package version

var (
	Version   = "dev"
	GitSHA    = "unknown"
	BuildTime = "unknown"
)

// String formats the build metadata for logs and file headers.
func String() string {
	return "sweepview " + Version + " (" + GitSHA + ", built " + BuildTime + ")"
}
