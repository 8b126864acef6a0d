package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/devicelab-dev/appcheck/pkg/core"
)

func isolateHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv(EnvHome, home)
	ResetHome()
	t.Cleanup(ResetHome)
	return home
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestLoadDefaults(t *testing.T) {
	home := isolateHome(t)

	cfg, err := Load(Options{})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Appium.ServerURL != "http://127.0.0.1:4723" {
		t.Errorf("ServerURL = %q", cfg.Appium.ServerURL)
	}
	if cfg.App.Package != "com.wjthinkbig.woongjinbooks" {
		t.Errorf("Package = %q", cfg.App.Package)
	}
	if cfg.App.Activity != ".view.IntroActivity" {
		t.Errorf("Activity = %q", cfg.App.Activity)
	}
	if cfg.Timeouts.Short != 5*time.Second || cfg.Timeouts.Default != 10*time.Second || cfg.Timeouts.Long != 30*time.Second {
		t.Errorf("Timeouts = %+v", cfg.Timeouts)
	}
	if cfg.Waits.Popup != 1500*time.Millisecond {
		t.Errorf("Waits.Popup = %v", cfg.Waits.Popup)
	}
	if cfg.Waits.AppLoading != 8*time.Second || cfg.Waits.Banner != 10*time.Second {
		t.Errorf("Waits = %+v", cfg.Waits)
	}
	if cfg.Output.ScreenshotDir != filepath.Join(home, "screenshots") {
		t.Errorf("ScreenshotDir = %q", cfg.Output.ScreenshotDir)
	}
	if !cfg.Artifacts.CaptureOnFailure {
		t.Error("CaptureOnFailure should default to true")
	}
}

func TestLoadYAMLFile(t *testing.T) {
	isolateHome(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "appcheck.yaml")
	writeFile(t, path, `
appium:
  server_url: http://10.0.0.5:4723
  capabilities:
    appium:noReset: true
app:
  device_name: emulator-5554
timeouts:
  short: 2s
waits:
  banner: 3s
`)

	cfg, err := Load(Options{ConfigFile: path})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Appium.ServerURL != "http://10.0.0.5:4723" {
		t.Errorf("ServerURL = %q", cfg.Appium.ServerURL)
	}
	if cfg.App.DeviceName != "emulator-5554" {
		t.Errorf("DeviceName = %q", cfg.App.DeviceName)
	}
	if cfg.Timeouts.Short != 2*time.Second {
		t.Errorf("Timeouts.Short = %v", cfg.Timeouts.Short)
	}
	if cfg.Timeouts.Default != 10*time.Second {
		t.Errorf("Timeouts.Default = %v, want untouched default", cfg.Timeouts.Default)
	}
	if cfg.Waits.Banner != 3*time.Second {
		t.Errorf("Waits.Banner = %v", cfg.Waits.Banner)
	}
	if cfg.App.Package != "com.wjthinkbig.woongjinbooks" {
		t.Errorf("Package = %q", cfg.App.Package)
	}
}

func TestLoadMissingFile(t *testing.T) {
	isolateHome(t)

	_, err := Load(Options{ConfigFile: filepath.Join(t.TempDir(), "nope.yaml")})
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
	if !errors.Is(err, core.ErrInvalidConfig) {
		t.Errorf("error = %v, want ErrInvalidConfig", err)
	}
}

func TestLoadCredentialsFromEnv(t *testing.T) {
	isolateHome(t)
	t.Setenv(EnvUserID, "user@example.com")
	t.Setenv(EnvUserPassword, "secret123")
	t.Setenv(EnvWrongUserID, "nobody@example.com")
	t.Setenv(EnvWrongUserPassword, "wrongpass")

	cfg, err := Load(Options{})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Credentials.Valid.UserID != "user@example.com" || cfg.Credentials.Valid.Password != "secret123" {
		t.Errorf("Valid = %+v", cfg.Credentials.Valid)
	}
	if cfg.Credentials.Invalid.UserID != "nobody@example.com" || cfg.Credentials.Invalid.Password != "wrongpass" {
		t.Errorf("Invalid = %+v", cfg.Credentials.Invalid)
	}
}

func TestLoadEnvFile(t *testing.T) {
	isolateHome(t)
	t.Setenv(EnvUserID, "")
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	writeFile(t, envPath, "TEST_USER_ID=dotenv@example.com\nTEST_USER_PASSWORD=fromfile1\nAPPCHECK_APP_DEVICE_NAME=pixel-7\n")

	cfg, err := Load(Options{EnvFile: envPath})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Credentials.Valid.UserID != "dotenv@example.com" {
		t.Errorf("UserID = %q", cfg.Credentials.Valid.UserID)
	}
	if cfg.Credentials.Valid.Password != "fromfile1" {
		t.Errorf("Password = %q", cfg.Credentials.Valid.Password)
	}
	if cfg.App.DeviceName != "pixel-7" {
		t.Errorf("DeviceName = %q", cfg.App.DeviceName)
	}
}

func TestLoadPrecedence(t *testing.T) {
	isolateHome(t)
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	yamlPath := filepath.Join(dir, "appcheck.yaml")
	writeFile(t, envPath, "APPCHECK_APP_DEVICE_NAME=from-dotenv\nAPPCHECK_APPIUM_SERVER_URL=http://dotenv:4723\n")
	writeFile(t, yamlPath, "app:\n  device_name: from-yaml\n")
	t.Setenv("APPCHECK_APPIUM_SERVER_URL", "http://env:4723")

	cfg, err := Load(Options{ConfigFile: yamlPath, EnvFile: envPath})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.App.DeviceName != "from-yaml" {
		t.Errorf("DeviceName = %q, want YAML over .env", cfg.App.DeviceName)
	}
	if cfg.Appium.ServerURL != "http://env:4723" {
		t.Errorf("ServerURL = %q, want process env over .env", cfg.Appium.ServerURL)
	}
}

func TestLoadFromDir(t *testing.T) {
	isolateHome(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "appcheck.yml"), "app:\n  device_name: dir-device\n")
	writeFile(t, filepath.Join(dir, ".env"), "TEST_USER_PASSWORD=dirpass99\n")
	t.Setenv(EnvUserPassword, "")

	cfg, err := LoadFromDir(dir)
	if err != nil {
		t.Fatalf("LoadFromDir() error = %v", err)
	}
	if cfg.App.DeviceName != "dir-device" {
		t.Errorf("DeviceName = %q", cfg.App.DeviceName)
	}
	if cfg.Credentials.Valid.Password != "dirpass99" {
		t.Errorf("Password = %q", cfg.Credentials.Valid.Password)
	}
}

func TestLoadFromDirEmpty(t *testing.T) {
	isolateHome(t)

	cfg, err := LoadFromDir(t.TempDir())
	if err != nil {
		t.Fatalf("LoadFromDir() error = %v", err)
	}
	if cfg.App.DeviceName != "R3CX70ALSLB" {
		t.Errorf("DeviceName = %q", cfg.App.DeviceName)
	}
}

func TestValidate(t *testing.T) {
	isolateHome(t)
	base, err := Load(Options{})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
		want   error
	}{
		{"valid", func(c *Config) {}, nil},
		{"no server", func(c *Config) { c.Appium.ServerURL = "" }, core.ErrMissingRequired},
		{"no package", func(c *Config) { c.App.Package = "" }, core.ErrMissingRequired},
		{"zero timeout", func(c *Config) { c.Timeouts.Short = 0 }, core.ErrInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := *base
			tt.mutate(&c)
			err := c.Validate()
			if tt.want == nil {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCapabilities(t *testing.T) {
	isolateHome(t)
	cfg, err := Load(Options{})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	cfg.Appium.Capabilities = map[string]interface{}{"appium:noReset": true}

	caps := cfg.Capabilities()
	if caps["platformName"] != "Android" {
		t.Errorf("platformName = %v", caps["platformName"])
	}
	if caps["appium:appPackage"] != "com.wjthinkbig.woongjinbooks" {
		t.Errorf("appPackage = %v", caps["appium:appPackage"])
	}
	if caps["appium:automationName"] != "UiAutomator2" {
		t.Errorf("automationName = %v", caps["appium:automationName"])
	}
	if caps["appium:noReset"] != true {
		t.Errorf("noReset = %v", caps["appium:noReset"])
	}
}

func TestEnsureDirectories(t *testing.T) {
	root := t.TempDir()
	cfg := &Config{Output: OutputConfig{
		ScreenshotDir: filepath.Join(root, "shots"),
		PageSourceDir: filepath.Join(root, "sources"),
		LogDir:        filepath.Join(root, "nested", "logs"),
	}}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories() error = %v", err)
	}
	for _, dir := range []string{cfg.Output.ScreenshotDir, cfg.Output.PageSourceDir, cfg.Output.LogDir} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Errorf("%s not created", dir)
		}
	}

	// idempotent
	if err := cfg.EnsureDirectories(); err != nil {
		t.Errorf("second EnsureDirectories() error = %v", err)
	}
}
