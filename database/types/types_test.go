// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package types_test

import (
	"testing"

	"github.com/blinklabs-io/tally/database/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUint64ScanValue(t *testing.T) {
	testDefs := []struct {
		value    types.Uint64
		expected string
	}{
		{0, "0"},
		{123, "123"},
		{18446744073709551615, "18446744073709551615"},
	}
	for _, testDef := range testDefs {
		valueOut, err := testDef.value.Value()
		require.NoError(t, err)
		assert.Equal(t, testDef.expected, valueOut)
		var tmpUint types.Uint64
		require.NoError(t, tmpUint.Scan(valueOut))
		assert.Equal(t, testDef.value, tmpUint)
		// Byte slices are accepted too
		require.NoError(t, tmpUint.Scan([]byte(testDef.expected)))
		assert.Equal(t, testDef.value, tmpUint)
	}
}

func TestUint64ScanInvalid(t *testing.T) {
	var tmpUint types.Uint64
	require.Error(t, tmpUint.Scan(int64(-5)))
	require.Error(t, tmpUint.Scan(5.5))
	require.Error(t, tmpUint.Scan("-1"))
	require.Error(t, tmpUint.Scan("18446744073709551616"))
}

func TestProposalBlobKeys(t *testing.T) {
	assert.Equal(t, "p:7:payload", string(types.ProposalPayloadKey(7)))
	assert.Equal(t, "p:7:description", string(types.ProposalDescriptionKey(7)))
	id, suffix, err := types.ParseProposalBlobKey(types.ProposalDescriptionKey(42))
	require.NoError(t, err)
	assert.Equal(t, uint64(42), id)
	assert.Equal(t, types.ProposalDescriptionSuffix, suffix)
	for _, key := range []string{"x:1:payload", "p:1", "p:abc:payload"} {
		_, _, err := types.ParseProposalBlobKey([]byte(key))
		require.Error(t, err, "key %q", key)
	}
}
