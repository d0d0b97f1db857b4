package common

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var percentEnvPattern = regexp.MustCompile(`%([A-Za-z0-9_]+)%`)

// expandLogDirPath resolves a leading "~", $VAR and %VAR% placeholders in LOG_DIR.
// Unknown %VAR% placeholders are kept as written.
func expandLogDirPath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}

	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}

	expanded := os.ExpandEnv(path)
	return percentEnvPattern.ReplaceAllStringFunc(expanded, func(match string) string {
		if val, ok := os.LookupEnv(strings.Trim(match, "%")); ok && val != "" {
			return val
		}
		return match
	})
}
