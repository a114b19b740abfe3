// Package misc keeps program identity which is set at build time.
package misc

var (
	appName = "hexbook"
	version = "dev"
	gitHash = "unknown"
)

// GetAppName returns program name used for logs and temporary files.
func GetAppName() string {
	return appName
}

// GetVersion returns program version, normally set with -ldflags "-X hexbook/misc.version=...".
func GetVersion() string {
	return version
}

// GetGitHash returns source revision program was built from.
func GetGitHash() string {
	return gitHash
}
