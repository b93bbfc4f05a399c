package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/jask/credawallet/internal/chain"
)

var (
	ErrMissingAPIKey = errors.New("config: provider api key is not set")
	ErrMissingChain  = errors.New("config: chain.id is not set")
	ErrBadOrigin     = errors.New("config: auth.origin must be scheme://host:port")
	ErrUnknownKey    = errors.New("config: unknown key")
	ErrSecretKey     = errors.New("config: the api key is not stored in the config file")
)

// DefaultOrigin is the loopback origin the login callback listens on.
const DefaultOrigin = "http://127.0.0.1:8765"

// Config holds application configuration.
type Config struct {
	Provider ProviderConfig
	Chain    ChainConfig
	Auth     AuthConfig
	Database DatabaseConfig
	Log      LogConfig
	UI       UIConfig
}

// ProviderConfig holds wallet provider settings.
type ProviderConfig struct {
	APIKey     string `mapstructure:"api_key"`
	APIKeyEnv  string `mapstructure:"api_key_env"`
	BaseURL    string `mapstructure:"base_url"`
	ConsoleURL string `mapstructure:"console_url"`
	LoginPath  string `mapstructure:"login_path"`
}

// ChainConfig selects the chain and the asset flows move.
type ChainConfig struct {
	ID    string
	Asset string
}

// AuthConfig holds the login callback origin. The provider must allow-list it.
type AuthConfig struct {
	Origin string
}

// DatabaseConfig holds sqlite settings.
type DatabaseConfig struct {
	Path string
}

// LogConfig holds log settings. Logs go to a file because the TUI owns the terminal.
type LogConfig struct {
	Level string
	Path  string
}

// UIConfig holds presentation settings.
type UIConfig struct {
	CurrencySymbol string `mapstructure:"currency_symbol"`
}

// Load reads configuration from file and env. Env var overrides use prefix CREDAWALLET_.
func Load() (Config, error) {
	v := viper.New()

	home := os.Getenv("HOME")
	v.SetDefault("provider.api_key", "")
	v.SetDefault("provider.api_key_env", "CREDA_PROVIDER_API_KEY")
	v.SetDefault("provider.base_url", "https://staging.crossmint.com")
	v.SetDefault("provider.console_url", "https://staging.crossmint.com/console")
	v.SetDefault("provider.login_path", "/sdk/auth/login")
	v.SetDefault("chain.id", "base-sepolia")
	v.SetDefault("chain.asset", "usdc")
	v.SetDefault("auth.origin", DefaultOrigin)
	v.SetDefault("database.path", filepath.Join(home, ".local", "share", "credawallet", "credawallet.db"))
	v.SetDefault("log.level", "info")
	v.SetDefault("log.path", filepath.Join(home, ".local", "state", "credawallet", "credawallet.log"))
	v.SetDefault("ui.currency_symbol", "$")

	v.SetConfigType("toml")

	cfgPath := os.Getenv("CREDAWALLET_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(home, ".config", "credawallet"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("CREDAWALLET")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// read config file if present
	_ = v.ReadInConfig()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}

// Save writes cfg to disk, creating the config directory if needed. The API
// key is never written; it belongs in the env or the secrets store.
func Save(cfg Config) error {
	path := os.Getenv("CREDAWALLET_CONFIG")
	if path == "" {
		path = filepath.Join(os.Getenv("HOME"), ".config", "credawallet", "config.toml")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("provider.api_key_env", cfg.Provider.APIKeyEnv)
	v.Set("provider.base_url", cfg.Provider.BaseURL)
	v.Set("provider.console_url", cfg.Provider.ConsoleURL)
	v.Set("provider.login_path", cfg.Provider.LoginPath)
	v.Set("chain.id", cfg.Chain.ID)
	v.Set("chain.asset", cfg.Chain.Asset)
	v.Set("auth.origin", cfg.Auth.Origin)
	v.Set("database.path", cfg.Database.Path)
	v.Set("log.level", cfg.Log.Level)
	v.Set("log.path", cfg.Log.Path)
	v.Set("ui.currency_symbol", cfg.UI.CurrencySymbol)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Keys lists the settings Set accepts, in file order.
var Keys = []string{
	"provider.api_key_env", "provider.base_url", "provider.console_url", "provider.login_path",
	"chain.id", "chain.asset", "auth.origin", "database.path", "log.level", "log.path",
	"ui.currency_symbol",
}

// Set changes one setting by its dotted key. Chain ids and origins are checked
// before they are accepted.
func (c *Config) Set(key, value string) error {
	value = strings.TrimSpace(value)
	switch strings.ToLower(key) {
	case "provider.api_key":
		return ErrSecretKey
	case "provider.api_key_env":
		c.Provider.APIKeyEnv = value
	case "provider.base_url":
		c.Provider.BaseURL = value
	case "provider.console_url":
		c.Provider.ConsoleURL = value
	case "provider.login_path":
		c.Provider.LoginPath = value
	case "chain.id":
		ch, err := chain.Lookup(value)
		if err != nil {
			return err
		}
		c.Chain.ID = ch.ID
	case "chain.asset":
		c.Chain.Asset = strings.ToLower(value)
	case "auth.origin":
		if err := validateOrigin(value); err != nil {
			return err
		}
		c.Auth.Origin = strings.TrimSuffix(value, "/")
	case "database.path":
		c.Database.Path = value
	case "log.level":
		c.Log.Level = value
	case "log.path":
		c.Log.Path = value
	case "ui.currency_symbol":
		c.UI.CurrencySymbol = value
	default:
		return fmt.Errorf("%w %q", ErrUnknownKey, key)
	}
	return nil
}

// Get returns the value of a dotted key as Set accepts it.
func (c Config) Get(key string) (string, error) {
	switch strings.ToLower(key) {
	case "provider.api_key_env":
		return c.Provider.APIKeyEnv, nil
	case "provider.base_url":
		return c.Provider.BaseURL, nil
	case "provider.console_url":
		return c.Provider.ConsoleURL, nil
	case "provider.login_path":
		return c.Provider.LoginPath, nil
	case "chain.id":
		return c.Chain.ID, nil
	case "chain.asset":
		return c.Chain.Asset, nil
	case "auth.origin":
		return c.Auth.Origin, nil
	case "database.path":
		return c.Database.Path, nil
	case "log.level":
		return c.Log.Level, nil
	case "log.path":
		return c.Log.Path, nil
	case "ui.currency_symbol":
		return c.UI.CurrencySymbol, nil
	}
	return "", fmt.Errorf("%w %q", ErrUnknownKey, key)
}

// SecretReader reads a named secret.
type SecretReader interface {
	Get(name string) (string, error)
}

// ResolveAPIKey fills Provider.APIKey from, in order, the env var named by
// api_key_env, the secrets store entry name, and the config value. It
// returns where the key came from, "" when none was found.
func (c *Config) ResolveAPIKey(store SecretReader, name string) string {
	if env := c.Provider.APIKeyEnv; env != "" {
		if key := strings.TrimSpace(os.Getenv(env)); key != "" {
			c.Provider.APIKey = key
			return "env"
		}
	}
	if store != nil {
		if key, err := store.Get(name); err == nil && strings.TrimSpace(key) != "" {
			c.Provider.APIKey = strings.TrimSpace(key)
			return "secrets"
		}
	}
	if strings.TrimSpace(c.Provider.APIKey) != "" {
		return "config"
	}
	return ""
}

// Validate reports every problem that stops a real sign-in.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Provider.APIKey) == "" {
		errs = append(errs, fmt.Errorf("%w (set $%s)", ErrMissingAPIKey, c.Provider.APIKeyEnv))
	}
	if strings.TrimSpace(c.Chain.ID) == "" {
		errs = append(errs, ErrMissingChain)
	} else if _, err := chain.Lookup(c.Chain.ID); err != nil {
		errs = append(errs, err)
	}
	if err := validateOrigin(c.Auth.Origin); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Remediation turns a Validate error into steps the user can take. The demo
// wallet needs none of these settings.
func (c Config) Remediation(err error) []string {
	var steps []string
	if errors.Is(err, ErrMissingAPIKey) {
		steps = append(steps, fmt.Sprintf("Store your provider API key with \"credawallet key set\", or export $%s.", c.Provider.APIKeyEnv))
	}
	if errors.Is(err, ErrMissingChain) || errors.Is(err, chain.ErrUnknownChain) {
		step := "Pick a supported chain with \"credawallet config set chain.id <id>\""
		if s := chain.Suggest(c.Chain.ID); s != "" {
			step += fmt.Sprintf(" (did you mean %q?)", s)
		}
		steps = append(steps, step+".")
	}
	if errors.Is(err, ErrBadOrigin) {
		steps = append(steps, fmt.Sprintf("Set the sign-in origin with \"credawallet config set auth.origin %s\".", DefaultOrigin))
	}
	if err != nil {
		steps = append(steps, "Or press d to open the demo wallet.")
	}
	return steps
}

func validateOrigin(origin string) error {
	u, err := url.Parse(origin)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadOrigin, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Hostname() == "" || u.Port() == "" {
		return fmt.Errorf("%w: got %q", ErrBadOrigin, origin)
	}
	if u.Path != "" && u.Path != "/" {
		return fmt.Errorf("%w: got %q", ErrBadOrigin, origin)
	}
	return nil
}
