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

package types

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	ProposalBlobKeyPrefix     = "p:"
	ProposalPayloadSuffix     = "payload"
	ProposalDescriptionSuffix = "description"
)

func ProposalBlobPrefix(id uint64) []byte {
	return fmt.Appendf(nil, "%s%d:", ProposalBlobKeyPrefix, id)
}

// ProposalPayloadKey returns the blob key holding the call payload of a proposal
func ProposalPayloadKey(id uint64) []byte {
	return append(ProposalBlobPrefix(id), ProposalPayloadSuffix...)
}

// ProposalDescriptionKey returns the blob key holding the description of a proposal
func ProposalDescriptionKey(id uint64) []byte {
	return append(ProposalBlobPrefix(id), ProposalDescriptionSuffix...)
}

// ParseProposalBlobKey splits a proposal blob key into its id and suffix
func ParseProposalBlobKey(key []byte) (uint64, string, error) {
	rest, ok := strings.CutPrefix(string(key), ProposalBlobKeyPrefix)
	if !ok {
		return 0, "", fmt.Errorf("not a proposal blob key: %q", key)
	}
	idStr, suffix, ok := strings.Cut(rest, ":")
	if !ok {
		return 0, "", fmt.Errorf("malformed proposal blob key: %q", key)
	}
	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("malformed proposal blob key: %q: %w", key, err)
	}
	return id, suffix, nil
}
