// conf/utils.go various util functions for configuration package
package conf

import (
	"os"
	"path/filepath"
	"runtime"
)

const osWindows = "windows"

// GetDefaultConfigPaths returns the directories searched for config.yaml, most
// specific first: the working directory, the user's config directory and a
// system-wide location.
func GetDefaultConfigPaths() []string {
	paths := []string{"."}

	if homeDir, err := os.UserHomeDir(); err == nil {
		if runtime.GOOS == osWindows {
			paths = append(paths, filepath.Join(homeDir, "AppData", "Roaming", "rqm-etl"))
		} else {
			paths = append(paths, filepath.Join(homeDir, ".config", "rqm-etl"))
		}
	}

	if runtime.GOOS != osWindows {
		paths = append(paths, "/etc/rqm-etl")
	}

	return paths
}
