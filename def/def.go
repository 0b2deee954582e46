// Copyright (c) 2015 Mute Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package def defines all default values used in mutechan.
package def

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/frankbraun/codechain/util/file"
	"github.com/mutecomm/mutechan/log"
)

const (
	// DBName is the name of the encrypted channel database in the home
	// directory (without suffix).
	DBName = "chans"

	// ConfigFile is the name of the optional configuration file in the home
	// directory.
	ConfigFile = "config.json"

	// LogDir is the name of the log directory in the home directory.
	LogDir = "log"

	// KDFIterations is the default number of PBKDF2 iterations for the key
	// file of the channel database.
	KDFIterations = 64 * 1024

	// StoreURL is the default URL of the JSON-RPC store service.
	StoreURL = "http://127.0.0.1:3232/rpc"

	// ListenAddr is the default listen address of the store service.
	ListenAddr = "127.0.0.1:3232"

	// RequestTimeout limits a single request to the store service.
	RequestTimeout = 30 * time.Second

	// PollMin is the minimum delay between two receive attempts.
	PollMin = 500 * time.Millisecond

	// PollMax is the maximum delay between two receive attempts.
	PollMax = 30 * time.Second

	// PollFactor is the backoff factor between two receive attempts.
	PollFactor = 1.5
)

// HomeDir returns the default home directory: the value of MUTECHAN_HOMEDIR
// if set, ~/.config/mutechan otherwise.
func HomeDir() string {
	if dir := os.Getenv("MUTECHAN_HOMEDIR"); dir != "" {
		return dir
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".mutechan"
	}
	return filepath.Join(dir, "mutechan")
}

// Config holds settings that can be overridden in the configuration file.
// Empty fields keep their defaults.
type Config struct {
	StoreURL      string   `json:"store_url,omitempty"`
	ListenAddr    string   `json:"listen_addr,omitempty"`
	KDFIterations int      `json:"kdf_iterations,omitempty"`
	KDF           string   `json:"kdf,omitempty"`
	AEAD          string   `json:"aead,omitempty"`
	Offer         []string `json:"offer,omitempty"`
}

// Defaults returns the default configuration.
func Defaults() *Config {
	return &Config{
		StoreURL:      StoreURL,
		ListenAddr:    ListenAddr,
		KDFIterations: KDFIterations,
	}
}

// LoadConfig reads the configuration file from homedir. A missing file
// yields the defaults.
func LoadConfig(homedir string) (*Config, error) {
	cfg := Defaults()
	filename := filepath.Join(homedir, ConfigFile)
	exists, err := file.Exists(filename)
	if err != nil {
		return nil, log.Error(err)
	}
	if !exists {
		return cfg, nil
	}
	jsn, err := os.ReadFile(filename)
	if err != nil {
		return nil, log.Error(err)
	}
	var override Config
	if err := json.Unmarshal(jsn, &override); err != nil {
		return nil, log.Errorf("def: cannot parse %s: %s", filename, err)
	}
	if override.StoreURL != "" {
		cfg.StoreURL = override.StoreURL
	}
	if override.ListenAddr != "" {
		cfg.ListenAddr = override.ListenAddr
	}
	if override.KDFIterations > 0 {
		cfg.KDFIterations = override.KDFIterations
	}
	cfg.KDF = override.KDF
	cfg.AEAD = override.AEAD
	cfg.Offer = override.Offer
	return cfg, nil
}
