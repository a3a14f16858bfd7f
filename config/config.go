package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the full application configuration, loaded from a YAML file.
// Secrets can be overridden through the environment so the file itself can
// be committed without credentials.
type Config struct {
	Server struct {
		Port       int    `yaml:"port"`
		SocketPort int    `yaml:"socket_port"`
		PublicURL  string `yaml:"public_url"`
	} `yaml:"server"`

	Postgres struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"username"`
		Password string `yaml:"password"`
		DBName   string `yaml:"database"`
	} `yaml:"postgres"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	JWT struct {
		Secret      string `yaml:"secret"`
		ExpiryHours int    `yaml:"expiry_hours"`
	} `yaml:"jwt"`

	Admin struct {
		Email    string `yaml:"email"`
		Password string `yaml:"password"`
	} `yaml:"admin"`

	Mpesa MpesaConfig `yaml:"mpesa"`
}

// MpesaConfig carries the Daraja API credentials and callback endpoints.
// It is passed explicitly into the payment client at construction; nothing
// reads it as process-wide mutable state.
type MpesaConfig struct {
	Environment        string `yaml:"environment"` // sandbox | production
	ConsumerKey        string `yaml:"consumer_key"`
	ConsumerSecret     string `yaml:"consumer_secret"`
	Shortcode          string `yaml:"shortcode"`
	Passkey            string `yaml:"passkey"`
	InitiatorName      string `yaml:"initiator_name"`
	SecurityCredential string `yaml:"security_credential"`
	InitiatorPassword  string `yaml:"initiator_password"`
	CertificatePath    string `yaml:"certificate_path"`
	CallbackBaseURL    string `yaml:"callback_base_url"`
	CountryCode        string `yaml:"country_code"`
}

// Load reads the YAML config file and applies environment overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	cfg.applyDefaults()
	cfg.applyEnv()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 4000
	}
	if c.Server.SocketPort == 0 {
		c.Server.SocketPort = 4001
	}
	if c.JWT.ExpiryHours == 0 {
		c.JWT.ExpiryHours = 48
	}
	if c.Mpesa.Environment == "" {
		c.Mpesa.Environment = "sandbox"
	}
	if c.Mpesa.CountryCode == "" {
		c.Mpesa.CountryCode = "254"
	}
	if c.Mpesa.CallbackBaseURL == "" {
		c.Mpesa.CallbackBaseURL = c.Server.PublicURL
	}
}

func (c *Config) applyEnv() {
	override(&c.Postgres.Password, "POSTGRES_PASSWORD")
	override(&c.Redis.Password, "REDIS_PASSWORD")
	override(&c.JWT.Secret, "JWT_SECRET")
	override(&c.Admin.Password, "ADMIN_PASSWORD")
	override(&c.Mpesa.ConsumerKey, "MPESA_CONSUMER_KEY")
	override(&c.Mpesa.ConsumerSecret, "MPESA_CONSUMER_SECRET")
	override(&c.Mpesa.Passkey, "MPESA_PASSKEY")
	override(&c.Mpesa.SecurityCredential, "MPESA_SECURITY_CREDENTIAL")
	override(&c.Mpesa.InitiatorPassword, "MPESA_INITIATOR_PASSWORD")
}

func override(target *string, key string) {
	if v := os.Getenv(key); v != "" {
		*target = v
	}
}

// DSN builds the Postgres connection string for pgxpool.
func (c *Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.Postgres.User, c.Postgres.Password, c.Postgres.Host, c.Postgres.Port, c.Postgres.DBName)
}
