// Package config loads settings from flags, RECIPEVAULT_* environment
// variables and an optional config file.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Store backends for the reference API.
const (
	StoreMemory    = "memory"
	StoreFirestore = "firestore"
)

// Config holds all configuration for both servers.
type Config struct {
	// Shared
	Listen      string
	LogLevel    string
	LogFormat   string
	CORSOrigins []string

	// Front end
	APIURL    string
	UploadURL string
	Timeout   time.Duration

	// Reference API
	Store            string
	FirestoreProject string
	CredentialsFile  string
	ImagesDir        string
	PublicURL        string
}

// New returns a viper instance with defaults and environment binding.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("RECIPEVAULT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("log-level", "info")
	v.SetDefault("log-format", "text")
	v.SetDefault("cors-origins", []string{"*"})
	v.SetDefault("api-url", "http://localhost:8081")
	v.SetDefault("timeout", 15*time.Second)
	v.SetDefault("store", StoreMemory)
	return v
}

// BindFlags exposes every flag of fs under its own name.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	return v.BindPFlags(fs)
}

// Load reads the optional file and returns the validated configuration.
// defaultListen applies when neither flag, env nor file sets "listen".
func Load(v *viper.Viper, file, defaultListen string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}
	v.SetDefault("listen", defaultListen)

	cfg := &Config{
		Listen:           v.GetString("listen"),
		LogLevel:         v.GetString("log-level"),
		LogFormat:        v.GetString("log-format"),
		CORSOrigins:      v.GetStringSlice("cors-origins"),
		APIURL:           v.GetString("api-url"),
		UploadURL:        v.GetString("upload-url"),
		Timeout:          v.GetDuration("timeout"),
		Store:            v.GetString("store"),
		FirestoreProject: v.GetString("firestore-project"),
		CredentialsFile:  v.GetString("credentials-file"),
		ImagesDir:        v.GetString("images-dir"),
		PublicURL:        v.GetString("public-url"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks the fields both servers depend on.
func (c *Config) Validate() error {
	var errs []error
	if c.Listen == "" {
		errs = append(errs, errors.New("listen address is required"))
	}
	if err := checkURL("api-url", c.APIURL, true); err != nil {
		errs = append(errs, err)
	}
	if err := checkURL("upload-url", c.UploadURL, false); err != nil {
		errs = append(errs, err)
	}
	if err := checkURL("public-url", c.PublicURL, false); err != nil {
		errs = append(errs, err)
	}
	if c.Timeout <= 0 {
		errs = append(errs, errors.New("timeout must be positive"))
	}
	switch c.Store {
	case StoreMemory:
	case StoreFirestore:
		if c.FirestoreProject == "" {
			errs = append(errs, errors.New("firestore-project is required with store=firestore"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store %q", c.Store))
	}
	return errors.Join(errs...)
}

func checkURL(name, raw string, required bool) error {
	if raw == "" {
		if required {
			return fmt.Errorf("%s is required", name)
		}
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%s must be an absolute http(s) URL, got %q", name, raw)
	}
	return nil
}
