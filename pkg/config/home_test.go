package config

import (
	"os"
	"testing"
)

func TestGetHomeFromEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvHome, dir)
	ResetHome()
	defer ResetHome()

	if got := GetHome(); got != dir {
		t.Errorf("GetHome() = %q, want %q", got, dir)
	}
}

func TestGetHomeCached(t *testing.T) {
	first := t.TempDir()
	t.Setenv(EnvHome, first)
	ResetHome()
	defer ResetHome()

	_ = GetHome()
	t.Setenv(EnvHome, t.TempDir())
	if got := GetHome(); got != first {
		t.Errorf("GetHome() = %q, want cached %q", got, first)
	}
}

func TestGetHomeFallback(t *testing.T) {
	t.Setenv(EnvHome, "")
	ResetHome()
	defer ResetHome()

	if got := GetHome(); got == "" {
		t.Error("GetHome() returned empty string")
	}
	if _, err := os.Stat(GetHome()); err != nil {
		t.Errorf("GetHome() = %q does not exist: %v", GetHome(), err)
	}
}
