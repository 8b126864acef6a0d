package config

import (
	"os"
	"path/filepath"
	"sync"
)

// EnvHome overrides the directory output paths default under.
const EnvHome = "APPCHECK_HOME"

var (
	homeOnce sync.Once
	homeDir  string
)

// GetHome returns the base directory for default output paths: $APPCHECK_HOME,
// else the install prefix when the binary lives in <prefix>/bin, else the
// working directory. The result is cached for the process.
func GetHome() string {
	homeOnce.Do(func() { homeDir = lookupHome() })
	return homeDir
}

func lookupHome() string {
	if dir := os.Getenv(EnvHome); dir != "" {
		return dir
	}
	if dir, ok := installPrefix(); ok {
		return dir
	}
	if cwd, err := os.Getwd(); err == nil {
		return cwd
	}
	return "."
}

func installPrefix() (string, bool) {
	exe, err := os.Executable()
	if err != nil {
		return "", false
	}
	if real, err := filepath.EvalSymlinks(exe); err == nil {
		exe = real
	}
	bin := filepath.Dir(exe)
	if filepath.Base(bin) != "bin" {
		return "", false
	}
	return filepath.Dir(bin), true
}

// ResetHome clears the cached home directory. Tests only.
func ResetHome() {
	homeOnce = sync.Once{}
	homeDir = ""
}
