package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds everything the client flows need at startup. Values come from
// built-in defaults, an optional config.yaml under DataDir, and SCANFLOW_*
// environment overrides, in that order of precedence (last wins).
type Config struct {
	ServerURL      string        `mapstructure:"server_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	DataDir        string        `mapstructure:"data_dir"`

	// HistoryLimit caps the persisted scan history. Oldest entries are
	// evicted first once the cap is reached.
	HistoryLimit int `mapstructure:"history_limit"`

	// SuppressionMarkers are the name fragments that mark a process as one
	// that takes a batch/product selection (or suppresses it, depending on
	// MarkerMeansRequired).
	SuppressionMarkers []string `mapstructure:"suppression_markers"`

	// MarkerMeansRequired selects the predicate polarity: true means a
	// marker hit makes batch/product required, false means a hit suppresses
	// them. The backend's historical page variants disagreed on this.
	MarkerMeansRequired bool `mapstructure:"marker_means_required"`

	// RequireDevice makes the device selection mandatory on submit.
	RequireDevice bool `mapstructure:"require_device"`

	// AutoSubmit enables submit-on-scan when the input matches the strict
	// scanned-URL shape (id param plus a code param of length >= 5).
	AutoSubmit bool `mapstructure:"auto_submit"`

	// QRIDParam and QRCodeParam are the query parameter names carried by
	// printed code URLs.
	QRIDParam   string `mapstructure:"qr_id_param"`
	QRCodeParam string `mapstructure:"qr_code_param"`

	// DeviceType filters the device reference list (2 = PDA).
	DeviceType int `mapstructure:"device_type"`

	// PageSize is sent on paged reference fetches; the backend treats 999
	// as "everything".
	PageSize int `mapstructure:"page_size"`
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "scanflow")
	}
	return filepath.Join(home, ".scanflow")
}

// Load builds the effective configuration. A missing config file is not an
// error; defaults plus environment cover the common case.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("server_url", "http://localhost:10019")
	v.SetDefault("request_timeout", 10*time.Second)
	v.SetDefault("data_dir", defaultDataDir())
	v.SetDefault("history_limit", 50)
	v.SetDefault("suppression_markers", []string{"上釉", "胶装"})
	v.SetDefault("marker_means_required", true)
	v.SetDefault("require_device", false)
	v.SetDefault("auto_submit", true)
	v.SetDefault("qr_id_param", "qrid")
	v.SetDefault("qr_code_param", "qrcode")
	v.SetDefault("device_type", 2)
	v.SetDefault("page_size", 999)

	v.SetEnvPrefix("SCANFLOW")
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(v.GetString("data_dir"))
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	cfg.normalize()
	return &cfg, nil
}

// normalize clamps values that would otherwise break the flows.
func (c *Config) normalize() {
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = 50
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 10 * time.Second
	}
	if c.PageSize <= 0 {
		c.PageSize = 999
	}
	if c.QRIDParam == "" {
		c.QRIDParam = "qrid"
	}
	if c.QRCodeParam == "" {
		c.QRCodeParam = "qrcode"
	}
	if c.DataDir == "" {
		c.DataDir = defaultDataDir()
	}
}
