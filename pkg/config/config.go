// Package config handles configuration for appcheck.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/devicelab-dev/appcheck/pkg/core"
)

// Environment variables carrying login credentials.
const (
	EnvUserID            = "TEST_USER_ID"
	EnvUserPassword      = "TEST_USER_PASSWORD"
	EnvWrongUserID       = "WRONG_TEST_USER_ID"
	EnvWrongUserPassword = "WRONG_TEST_USER_PASSWORD"
)

const envPrefix = "APPCHECK"

// Config is the process-wide configuration, loaded once at startup.
type Config struct {
	Appium    AppiumConfig        `mapstructure:"appium"`
	App       AppConfig           `mapstructure:"app"`
	Timeouts  Timeouts            `mapstructure:"timeouts"`
	Waits     Waits               `mapstructure:"waits"`
	Output    OutputConfig        `mapstructure:"output"`
	Artifacts core.ArtifactConfig `mapstructure:"artifacts"`

	// BannerTable overrides the embedded banner heuristic table (YAML file).
	BannerTable string `mapstructure:"banner_table"`
	Verbose     bool   `mapstructure:"verbose"`

	Credentials Credentials `mapstructure:"credentials"`
}

// AppiumConfig addresses the automation server.
type AppiumConfig struct {
	ServerURL    string                 `mapstructure:"server_url"`
	Capabilities map[string]interface{} `mapstructure:"capabilities"` // extra capabilities merged last
}

// AppConfig identifies the device and the app under test.
type AppConfig struct {
	PlatformName   string `mapstructure:"platform_name"`
	DeviceName     string `mapstructure:"device_name"`
	Package        string `mapstructure:"package"`
	Activity       string `mapstructure:"activity"`
	AutomationName string `mapstructure:"automation_name"`
}

// Timeouts are the element-wait tiers.
type Timeouts struct {
	Short   time.Duration `mapstructure:"short"`
	Default time.Duration `mapstructure:"default"`
	Long    time.Duration `mapstructure:"long"`
}

// Waits are fixed pauses used around app start and popups.
type Waits struct {
	Popup      time.Duration `mapstructure:"popup"`
	AppLoading time.Duration `mapstructure:"app_loading"`
	Banner     time.Duration `mapstructure:"banner"`
}

// OutputConfig holds output locations.
type OutputConfig struct {
	ScreenshotDir string `mapstructure:"screenshot_dir"`
	PageSourceDir string `mapstructure:"page_source_dir"`
	LogDir        string `mapstructure:"log_dir"`
	MetricsFile   string `mapstructure:"metrics_file"` // prometheus textfile; empty disables
}

// Account is a user id / password pair.
type Account struct {
	UserID   string `mapstructure:"user_id"`
	Password string `mapstructure:"password"`
}

// Credentials are read from the environment only.
type Credentials struct {
	Valid   Account `mapstructure:"valid"`
	Invalid Account `mapstructure:"invalid"`
}

// Options selects the files Load reads. Empty fields are skipped.
type Options struct {
	ConfigFile string // YAML config file
	EnvFile    string // dotenv file with credentials and APPCHECK_* overrides
}

var credentialEnv = map[string]string{
	"credentials.valid.user_id":    EnvUserID,
	"credentials.valid.password":   EnvUserPassword,
	"credentials.invalid.user_id":  EnvWrongUserID,
	"credentials.invalid.password": EnvWrongUserPassword,
}

func setDefaults(v *viper.Viper) {
	home := GetHome()

	v.SetDefault("appium.server_url", "http://127.0.0.1:4723")
	v.SetDefault("appium.capabilities", map[string]interface{}{})

	v.SetDefault("app.platform_name", "Android")
	v.SetDefault("app.device_name", "R3CX70ALSLB")
	v.SetDefault("app.package", "com.wjthinkbig.woongjinbooks")
	v.SetDefault("app.activity", ".view.IntroActivity")
	v.SetDefault("app.automation_name", "UiAutomator2")

	v.SetDefault("timeouts.short", 5*time.Second)
	v.SetDefault("timeouts.default", 10*time.Second)
	v.SetDefault("timeouts.long", 30*time.Second)

	v.SetDefault("waits.popup", 1500*time.Millisecond)
	v.SetDefault("waits.app_loading", 8*time.Second)
	v.SetDefault("waits.banner", 10*time.Second)

	v.SetDefault("output.screenshot_dir", filepath.Join(home, "screenshots"))
	v.SetDefault("output.page_source_dir", filepath.Join(home, "page_sources"))
	v.SetDefault("output.log_dir", filepath.Join(home, "logs"))
	v.SetDefault("output.metrics_file", "")

	defaults := core.DefaultArtifactConfig()
	v.SetDefault("artifacts.capture_on_failure", defaults.CaptureOnFailure)
	v.SetDefault("artifacts.capture_on_success", defaults.CaptureOnSuccess)
	v.SetDefault("artifacts.screenshot", defaults.Screenshot)
	v.SetDefault("artifacts.ui_hierarchy", defaults.UIHierarchy)

	v.SetDefault("banner_table", "")
	v.SetDefault("verbose", false)

	for key := range credentialEnv {
		v.SetDefault(key, "")
	}
}

// Load builds the configuration. Precedence, lowest first:
// defaults, dotenv file, YAML config file, process environment.
func Load(opts Options) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range credentialEnv {
		if err := v.BindEnv(key, env); err != nil {
			return nil, err
		}
	}

	if opts.EnvFile != "" {
		if err := applyEnvFile(v, opts.EnvFile); err != nil {
			return nil, err
		}
	}

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, core.ErrInvalidConfig.WithCause(fmt.Errorf("read %s: %w", opts.ConfigFile, err))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, core.ErrInvalidConfig.WithCause(err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFromDir looks for appcheck.yaml or appcheck.yml and .env in the directory.
func LoadFromDir(dir string) (*Config, error) {
	var opts Options

	for _, name := range []string{"appcheck.yaml", "appcheck.yml"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			opts.ConfigFile = path
			break
		}
	}

	envPath := filepath.Join(dir, ".env")
	if _, err := os.Stat(envPath); err == nil {
		opts.EnvFile = envPath
	}

	return Load(opts)
}

// applyEnvFile reads a dotenv file and installs its values as defaults, so
// the YAML file and the real environment still win.
func applyEnvFile(v *viper.Viper, path string) error {
	dotenv := viper.New()
	dotenv.SetConfigFile(path)
	dotenv.SetConfigType("env")
	if err := dotenv.ReadInConfig(); err != nil {
		return core.ErrInvalidConfig.WithCause(fmt.Errorf("read %s: %w", path, err))
	}

	for _, key := range v.AllKeys() {
		name := envName(key)
		if env, ok := credentialEnv[key]; ok {
			name = env
		}
		// dotenv keys are case-insensitive in viper
		if dotenv.IsSet(name) {
			v.SetDefault(key, dotenv.Get(name))
		}
	}
	return nil
}

// envName returns the APPCHECK_* variable that overrides a config key.
func envName(key string) string {
	return envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// Validate checks required fields and timeout tiers.
func (c *Config) Validate() error {
	if c.Appium.ServerURL == "" {
		return core.ErrMissingRequired.WithMessage("appium.server_url is required")
	}
	if c.App.Package == "" {
		return core.ErrMissingRequired.WithMessage("app.package is required")
	}
	if c.Timeouts.Short <= 0 || c.Timeouts.Default <= 0 || c.Timeouts.Long <= 0 {
		return core.ErrInvalidConfig.WithMessage("timeouts must be positive")
	}
	return nil
}

// Capabilities returns the W3C capabilities for a UiAutomator2 session.
func (c *Config) Capabilities() map[string]interface{} {
	caps := map[string]interface{}{
		"platformName":          c.App.PlatformName,
		"appium:deviceName":     c.App.DeviceName,
		"appium:appPackage":     c.App.Package,
		"appium:appActivity":    c.App.Activity,
		"appium:automationName": c.App.AutomationName,
	}
	for k, val := range c.Appium.Capabilities {
		caps[k] = val
	}
	return caps
}

// EnsureDirectories creates the output directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Output.ScreenshotDir, c.Output.PageSourceDir, c.Output.LogDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}
