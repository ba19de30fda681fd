// Copyright (c) 2026 toof-jp
//
// Use of this source code is governed by the MIT License that can be found in
// the LICENSE file at the root of this repository.

package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd_missingConfig(t *testing.T) {
	t.Setenv("USER_SESSION", "")
	t.Setenv("DISCORD_TOKEN", "token")

	cmd := newRootCmd()
	cmd.SetArgs([]string{"--env-file", filepath.Join(t.TempDir(), "missing.env")})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "USER_SESSION must be set")
}

func TestRootCmd_invalidFlag(t *testing.T) {
	t.Setenv("USER_SESSION", "user_session=x")
	t.Setenv("DISCORD_TOKEN", "token")

	cmd := newRootCmd()
	cmd.SetArgs([]string{"--env-file", filepath.Join(t.TempDir(), "missing.env"), "--timeout", "0s"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REQUEST_TIMEOUT must be positive")
}

func TestRootCmd_flags(t *testing.T) {
	cmd := newRootCmd()

	for _, name := range []string{"env-file", "landing-url", "board-id", "endpoint", "default-from", "cooldown", "timeout", "metrics-addr", "log-level", "log-json"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), "flag --%s", name)
	}
}

func Test_bindFlags(t *testing.T) {
	cmd := newRootCmd()

	err := bindFlags(viper.New(), cmd.Flags(), map[string]string{"bbs_id": "board-idd"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--board-idd")

	v := viper.New()
	require.NoError(t, bindFlags(v, cmd.Flags(), flagKeys))
	require.NoError(t, cmd.Flags().Set("board-id", "ch1"))
	assert.Equal(t, "ch1", v.GetString("bbs_id"))
}
