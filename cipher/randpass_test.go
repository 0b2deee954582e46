// Copyright (c) 2015 Mute Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cipher

import (
	"testing"

	"github.com/mutecomm/mutechan/encode/base64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandPass(t *testing.T) {
	p1, err := RandPass(RandReader)
	require.NoError(t, err)
	p2, err := RandPass(RandReader)
	require.NoError(t, err)
	assert.NotEqual(t, p1, p2)
	raw, err := base64.Decode(string(p1))
	require.NoError(t, err)
	assert.Len(t, raw, RandPassSize)
}

func TestRandPassFailure(t *testing.T) {
	_, err := RandPass(RandFail)
	assert.Error(t, err)
}
