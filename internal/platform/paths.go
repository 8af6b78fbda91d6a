package platform

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// DefaultAppName names the config and data directories.
const DefaultAppName = "kanbases"

// VaultEnv points the default import/export vault somewhere other than the data dir.
const VaultEnv = "KANBASES_VAULT"

// Paths locates the config file, the sqlite note host, and the default markdown vault.
type Paths struct {
	ConfigPath string
	DataDir    string
	DBPath     string
	VaultDir   string
}

// Options selects the app directory name; DevMode keeps dev boards apart from real ones.
type Options struct {
	AppName string
	DevMode bool
}

// baseOverrides lists, per GOOS, the env vars that replace the config and data bases.
// Platforms not listed keep the bases handed to PathsFor.
var baseOverrides = map[string]struct{ config, data string }{
	"linux":   {config: "XDG_CONFIG_HOME", data: "XDG_DATA_HOME"},
	"windows": {config: "APPDATA", data: "LOCALAPPDATA"},
}

// DefaultPaths resolves the production kanbases locations for the current user.
func DefaultPaths() (Paths, error) {
	return DefaultPathsWithOptions(Options{AppName: DefaultAppName})
}

// DefaultPathsWithOptions resolves locations for the current OS and user.
func DefaultPathsWithOptions(opts Options) (Paths, error) {
	appName := strings.TrimSpace(opts.AppName)
	if appName == "" {
		appName = DefaultAppName
	}
	if opts.DevMode {
		appName += "-dev"
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		return Paths{}, fmt.Errorf("user config dir: %w", err)
	}
	dataDir := configDir
	switch runtime.GOOS {
	case "linux":
		home, homeErr := os.UserHomeDir()
		if homeErr != nil {
			return Paths{}, fmt.Errorf("user home dir: %w", homeErr)
		}
		dataDir = filepath.Join(home, ".local", "share")
	case "windows":
		if v := strings.TrimSpace(os.Getenv("LOCALAPPDATA")); v != "" {
			dataDir = v
		}
	}

	env := map[string]string{VaultEnv: os.Getenv(VaultEnv)}
	if keys, ok := baseOverrides[runtime.GOOS]; ok {
		env[keys.config] = os.Getenv(keys.config)
		env[keys.data] = os.Getenv(keys.data)
	}
	return PathsFor(runtime.GOOS, env, configDir, dataDir, appName)
}

// PathsFor is the pure half of DefaultPathsWithOptions: config.toml lands under the
// config base, while the database and vault land under the data base.
func PathsFor(goos string, env map[string]string, userConfigDir, userDataDir, appName string) (Paths, error) {
	if userConfigDir == "" || userDataDir == "" {
		return Paths{}, fmt.Errorf("empty base dirs")
	}
	appName = strings.TrimSpace(appName)
	if appName == "" {
		return Paths{}, fmt.Errorf("empty app name")
	}

	configBase, dataBase := userConfigDir, userDataDir
	if keys, ok := baseOverrides[goos]; ok {
		if v := strings.TrimSpace(env[keys.config]); v != "" {
			configBase = v
		}
		if v := strings.TrimSpace(env[keys.data]); v != "" {
			dataBase = v
		}
	}

	appDataDir := filepath.Join(dataBase, appName)
	vaultDir := filepath.Join(appDataDir, "vault")
	if v := strings.TrimSpace(env[VaultEnv]); v != "" {
		vaultDir = filepath.Clean(v)
	}
	return Paths{
		ConfigPath: filepath.Join(configBase, appName, "config.toml"),
		DataDir:    appDataDir,
		DBPath:     filepath.Join(appDataDir, appName+".db"),
		VaultDir:   vaultDir,
	}, nil
}
