package common

import (
	"os"
	"path/filepath"
	"strconv"
)

// ConfigDir returns the directory for daemon state: $RECOGNITION_CONFIG_DIR
// when set, otherwise "recognition" under the user config directory.
func ConfigDir() (string, error) {
	if dir := os.Getenv(ConfigDirEnv); dir != "" {
		return dir, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "recognition"), nil
}

// EnvOr returns the value of the environment variable key, or def when it
// is unset or empty.
func EnvOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// EnvBool parses a boolean environment variable, returning def when it is
// unset or malformed.
func EnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
