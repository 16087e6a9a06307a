package platform

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// DefaultAppName names the config and data directories when no override is given.
const DefaultAppName = "kanboard"

// configFileName is the config file looked up inside the app config directory.
const configFileName = "config.toml"

// Paths holds the resolved per-user locations for one app name.
type Paths struct {
	ConfigPath string
	DataDir    string
	LogDir     string
}

// Options selects which app directory to resolve.
type Options struct {
	AppName string
	DevMode bool
}

// Base is the pair of per-user base directories app folders live under.
type Base struct {
	Config string
	Data   string
}

// baseOverrides names the environment variables that replace Base on one OS.
var baseOverrides = map[string]struct{ config, data string }{
	"linux":   {config: "XDG_CONFIG_HOME", data: "XDG_DATA_HOME"},
	"windows": {config: "APPDATA", data: "LOCALAPPDATA"},
}

// DirName returns the directory name used for opts, "<app>" or "<app>-dev".
func (o Options) DirName() string {
	name := strings.TrimSpace(o.AppName)
	if name == "" {
		name = DefaultAppName
	}
	if o.DevMode {
		name += "-dev"
	}
	return name
}

// DefaultPaths returns the release paths for DefaultAppName.
func DefaultPaths() (Paths, error) {
	return DefaultPathsWithOptions(Options{AppName: DefaultAppName})
}

// DefaultPathsWithOptions resolves paths for the current user and OS.
func DefaultPathsWithOptions(opts Options) (Paths, error) {
	base, err := userBase(runtime.GOOS)
	if err != nil {
		return Paths{}, err
	}
	return Resolve(runtime.GOOS, os.Getenv, base, opts.DirName())
}

// userBase returns the OS default base directories before env overrides.
func userBase(goos string) (Base, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return Base{}, fmt.Errorf("user config dir: %w", err)
	}
	base := Base{Config: configDir, Data: configDir}
	switch goos {
	case "linux":
		home, err := os.UserHomeDir()
		if err != nil {
			return Base{}, fmt.Errorf("user home dir: %w", err)
		}
		base.Data = filepath.Join(home, ".local", "share")
	case "windows":
		if v := strings.TrimSpace(os.Getenv("LOCALAPPDATA")); v != "" {
			base.Data = v
		}
	}
	return base, nil
}

// Resolve builds Paths for dirName under base, applying goos env overrides read through getenv.
func Resolve(goos string, getenv func(string) string, base Base, dirName string) (Paths, error) {
	if base.Config == "" || base.Data == "" {
		return Paths{}, errors.New("empty base dirs")
	}
	dirName = strings.TrimSpace(dirName)
	if dirName == "" {
		return Paths{}, errors.New("empty app name")
	}
	if getenv == nil {
		getenv = func(string) string { return "" }
	}
	if names, ok := baseOverrides[goos]; ok {
		if v := strings.TrimSpace(getenv(names.config)); v != "" {
			base.Config = v
		}
		if v := strings.TrimSpace(getenv(names.data)); v != "" {
			base.Data = v
		}
	}

	dataDir := filepath.Join(base.Data, dirName)
	return Paths{
		ConfigPath: filepath.Join(base.Config, dirName, configFileName),
		DataDir:    dataDir,
		LogDir:     filepath.Join(dataDir, "log"),
	}, nil
}
