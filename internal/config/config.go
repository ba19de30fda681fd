// Copyright (c) 2026 toof-jp
//
// Use of this source code is governed by the MIT License that can be found in
// the LICENSE file at the root of this repository.

// Package config loads the bot's configuration from the environment, an
// optional .env file, and command line flags.
package config

import (
	"io/fs"
	"net/url"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/toof-jp/bbsmech"
)

// Keys understood by Load. Each is read from the environment variable of the
// same name, upper-cased.
const (
	KeyUserSession    = "user_session"
	KeyDiscordToken   = "discord_token"
	KeyLandingURL     = "bbs_landing_url"
	KeyBoardID        = "bbs_id"
	KeyEndpoint       = "bbs_endpoint"
	KeyDefaultFrom    = "bbs_default_from"
	KeyPostCooldown   = "post_cooldown"
	KeyRequestTimeout = "request_timeout"
	KeyMetricsAddr    = "metrics_addr"
	KeyLogLevel       = "log_level"
	KeyLogJSON        = "log_json"
)

// Default values.
const (
	DefaultLandingURL     = "https://ch.nicovideo.jp/unkchanel/bbs"
	DefaultBoardID        = "ch2598430"
	DefaultFrom           = "ななしのよっしん"
	DefaultRequestTimeout = 30 * time.Second
)

// Config is everything the bot needs to run.
type Config struct {
	// UserSession is the niconico session cookie (e.g.,
	// "user_session=user_session_..."), sent verbatim to the board.
	UserSession  string
	DiscordToken string

	Board bbsmech.Board

	// DefaultFrom is the name posted under when the Discord author has none.
	DefaultFrom string

	// PostCooldown is the minimum time between two posts. Zero disables the
	// check, leaving it to the board.
	PostCooldown   time.Duration
	RequestTimeout time.Duration

	// MetricsAddr is the listen address for /metrics and /healthz. Empty
	// disables the listener.
	MetricsAddr string

	LogLevel string
	LogJSON  bool
}

// SetDefaults registers the default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyLandingURL, DefaultLandingURL)
	v.SetDefault(KeyBoardID, DefaultBoardID)
	v.SetDefault(KeyEndpoint, bbsmech.DefaultEndpoint)
	v.SetDefault(KeyDefaultFrom, DefaultFrom)
	v.SetDefault(KeyPostCooldown, bbsmech.MinPostInterval)
	v.SetDefault(KeyRequestTimeout, DefaultRequestTimeout)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogJSON, false)
}

// LoadDotEnv loads environment variables from the named files (".env" if none
// are given). Variables already set in the environment win. A missing file is
// not an error.
func LoadDotEnv(filenames ...string) error {
	err := godotenv.Load(filenames...)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return errors.Wrap(err, "failed to load .env")
	}

	return nil
}

// Load reads the configuration from v, with environment variables taking
// effect through v.AutomaticEnv.
func Load(v *viper.Viper) (Config, error) {
	SetDefaults(v)
	v.AutomaticEnv()

	cfg := Config{
		UserSession:  v.GetString(KeyUserSession),
		DiscordToken: v.GetString(KeyDiscordToken),
		Board: bbsmech.Board{
			LandingURL: v.GetString(KeyLandingURL),
			ID:         v.GetString(KeyBoardID),
			Endpoint:   v.GetString(KeyEndpoint),
		},
		DefaultFrom:    v.GetString(KeyDefaultFrom),
		PostCooldown:   v.GetDuration(KeyPostCooldown),
		RequestTimeout: v.GetDuration(KeyRequestTimeout),
		MetricsAddr:    v.GetString(KeyMetricsAddr),
		LogLevel:       v.GetString(KeyLogLevel),
		LogJSON:        v.GetBool(KeyLogJSON),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks that cfg is usable.
func (cfg Config) Validate() error {
	if len(cfg.UserSession) == 0 {
		return errors.New("USER_SESSION must be set")
	}

	if len(cfg.DiscordToken) == 0 {
		return errors.New("DISCORD_TOKEN must be set")
	}

	if len(cfg.Board.ID) == 0 {
		return errors.New("BBS_ID must not be empty")
	}

	for key, raw := range map[string]string{"BBS_LANDING_URL": cfg.Board.LandingURL, "BBS_ENDPOINT": cfg.Board.Endpoint} {
		u, err := url.Parse(raw)
		if err != nil {
			return errors.Wrapf(err, "%s is not a valid URL", key)
		}

		if (u.Scheme != "http" && u.Scheme != "https") || len(u.Host) == 0 {
			return errors.Errorf("%s must be an absolute http(s) URL, got %q", key, raw)
		}
	}

	if cfg.PostCooldown < 0 {
		return errors.Errorf("POST_COOLDOWN must not be negative, got %s", cfg.PostCooldown)
	}

	if cfg.RequestTimeout <= 0 {
		return errors.Errorf("REQUEST_TIMEOUT must be positive, got %s", cfg.RequestTimeout)
	}

	return nil
}
