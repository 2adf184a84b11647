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

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/blinklabs-io/tally"
	"github.com/blinklabs-io/tally/asset"
	"github.com/blinklabs-io/tally/governance"
)

var (
	errBadRequestBody = errors.New("malformed request body")
	errBadAccount     = errors.New("malformed account address")
	errBadProposalID  = errors.New("malformed proposal id")
)

// statusFor maps an operation error to an HTTP status. Token errors are
// checked before ErrTransferFailed since they explain why a transfer
// failed.
func statusFor(err error) int {
	switch {
	case errors.Is(err, tally.ErrNotInitialized):
		return http.StatusServiceUnavailable
	case errors.Is(err, governance.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, governance.ErrProposalNotFound):
		return http.StatusNotFound
	case errors.Is(err, governance.ErrProposalExpired),
		errors.Is(err, governance.ErrProposalInProgress),
		errors.Is(err, governance.ErrAlreadyFinished),
		errors.Is(err, governance.ErrAlreadyVoted),
		errors.Is(err, governance.ErrQuorumNotReached),
		errors.Is(err, governance.ErrFrozenByActiveVote),
		errors.Is(err, governance.ErrReentrantCall):
		return http.StatusConflict
	case errors.Is(err, asset.ErrInsufficientBalance),
		errors.Is(err, asset.ErrInsufficientAllowance),
		errors.Is(err, governance.ErrNoDeposit),
		errors.Is(err, governance.ErrInsufficientDeposit),
		errors.Is(err, governance.ErrInvalidAmount),
		errors.Is(err, governance.ErrAmountOverflow),
		errors.Is(err, governance.ErrInvalidDecision),
		errors.Is(err, governance.ErrInvalidProposal),
		errors.Is(err, errBadAccount),
		errors.Is(err, errBadProposalID):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errBadRequestBody):
		return http.StatusBadRequest
	case errors.Is(err, governance.ErrCallExecutionFailed),
		errors.Is(err, governance.ErrTransferFailed):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeJSON(
	w http.ResponseWriter,
	status int,
	v any,
) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck,errchkjson
	json.NewEncoder(w).Encode(v)
}

func writeError(
	w http.ResponseWriter,
	status int,
	message string,
) {
	writeJSON(w, status, ErrorResponse{
		StatusCode: status,
		Error:      http.StatusText(status),
		Message:    message,
	})
}

// writeOpError reports a failed operation. Internal errors are logged and
// hidden from the client.
func (s *Server) writeOpError(
	w http.ResponseWriter,
	r *http.Request,
	err error,
) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error(
			"request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}
