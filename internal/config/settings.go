package config

// settings.go persists the user's chosen data directory and scenario in a
// dotenv file, so later invocations pick them up without flags.

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"github.com/joho/godotenv"
)

// DefaultSettingsFile is used when WITE2_SETTINGS_FILE is unset.
const DefaultSettingsFile = ".wite2.env"

// Keys the config subcommand may persist.
const (
	KeyDataDir  = "WITE2_DATA_DIR"
	KeyScenario = "WITE2_SCENARIO"
	KeyEncoding = "WITE2_ENCODING"
)

// SettingsPath returns the settings file location.
func SettingsPath() string {
	if p := os.Getenv("WITE2_SETTINGS_FILE"); p != "" {
		return p
	}
	return DefaultSettingsFile
}

// LoadSettings applies the settings file to the environment without
// overriding variables that are already set. A missing file is not an error.
func LoadSettings(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read settings %s: %w", path, err)
	}
	return nil
}

// ReadSettings returns the persisted settings. A missing file yields an
// empty map.
func ReadSettings(path string) (map[string]string, error) {
	env, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("read settings %s: %w", path, err)
	}
	return env, nil
}

// SaveSettings merges updates into the settings file. An empty value removes
// the key.
func SaveSettings(path string, updates map[string]string) error {
	env, err := ReadSettings(path)
	if err != nil {
		return err
	}
	for k, v := range updates {
		if v == "" {
			delete(env, k)
			continue
		}
		env[k] = v
	}
	if err := godotenv.Write(env, path); err != nil {
		return fmt.Errorf("write settings %s: %w", path, err)
	}
	return nil
}

// SettingKeys returns the keys of env in sorted order.
func SettingKeys(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
