// Copyright (c) 2015 Mute Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package def

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissing(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	jsn := `{"store_url": "http://example.org/rpc", "offer": ["x25519", "ristretto255"]}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFile), []byte(jsn), 0600))
	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "http://example.org/rpc", cfg.StoreURL)
	assert.Equal(t, ListenAddr, cfg.ListenAddr)
	assert.Equal(t, KDFIterations, cfg.KDFIterations)
	assert.Equal(t, []string{"x25519", "ristretto255"}, cfg.Offer)
}

func TestLoadConfigInvalid(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFile), []byte("{"), 0600))
	_, err := LoadConfig(dir)
	assert.Error(t, err)
}

func TestHomeDir(t *testing.T) {
	old := os.Getenv("MUTECHAN_HOMEDIR")
	defer os.Setenv("MUTECHAN_HOMEDIR", old)
	os.Setenv("MUTECHAN_HOMEDIR", "/tmp/x")
	assert.Equal(t, "/tmp/x", HomeDir())
}
