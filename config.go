package identity

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// AppConfig carries everything the server needs, loaded from the
// environment with optional .env support.
type AppConfig struct {
	Addr    string `mapstructure:"addr"`
	BaseURL string `mapstructure:"base_url"`
	DSN     string `mapstructure:"dsn"`

	SigningKey        string   `mapstructure:"signing_key"`
	SigningMethod     string   `mapstructure:"signing_method"`
	ContextKey        string   `mapstructure:"context_key"`
	TokenExpiration   int      `mapstructure:"token_expiration"`
	RotationThreshold float64  `mapstructure:"rotation_threshold"`
	Issuer            string   `mapstructure:"issuer"`
	Audience          []string `mapstructure:"audience"`

	SuperAdminEmail    string `mapstructure:"super_admin_email"`
	SuperAdminPassword string `mapstructure:"super_admin_password"`

	MetricsEnabled bool `mapstructure:"metrics_enabled"`
}

var _ Config = (*AppConfig)(nil)

func (c *AppConfig) GetSigningKey() string         { return c.SigningKey }
func (c *AppConfig) GetSigningMethod() string      { return c.SigningMethod }
func (c *AppConfig) GetContextKey() string         { return c.ContextKey }
func (c *AppConfig) GetTokenExpiration() int       { return c.TokenExpiration }
func (c *AppConfig) GetRotationThreshold() float64 { return c.RotationThreshold }
func (c *AppConfig) GetIssuer() string             { return c.Issuer }
func (c *AppConfig) GetAudience() []string         { return c.Audience }

// LoadConfig reads configuration from the environment. A .env file in
// the working directory is honored when present, real environment
// variables win.
func LoadConfig() (*AppConfig, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("IDENTITY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("addr", ":8080")
	v.SetDefault("base_url", "http://localhost:8080")
	v.SetDefault("dsn", "file::memory:?cache=shared")
	v.SetDefault("signing_method", "HS256")
	v.SetDefault("context_key", "user")
	v.SetDefault("token_expiration", 20)
	v.SetDefault("rotation_threshold", 0.5)
	v.SetDefault("issuer", "identity")
	v.SetDefault("metrics_enabled", true)

	// viper only surfaces env vars it has seen, bind the full key set
	keys := []string{
		"addr", "base_url", "dsn",
		"signing_key", "signing_method", "context_key",
		"token_expiration", "rotation_threshold", "issuer", "audience",
		"super_admin_email", "super_admin_password",
		"metrics_enabled",
	}
	for _, k := range keys {
		if err := v.BindEnv(k); err != nil {
			return nil, err
		}
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	if aud := v.GetString("audience"); aud != "" && len(cfg.Audience) == 0 {
		for _, a := range strings.Split(aud, ",") {
			if a = strings.TrimSpace(a); a != "" {
				cfg.Audience = append(cfg.Audience, a)
			}
		}
	}

	return cfg, nil
}
