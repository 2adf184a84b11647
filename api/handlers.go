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
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strconv"

	"github.com/blinklabs-io/tally"
	"github.com/blinklabs-io/tally/governance"
	"github.com/ethereum/go-ethereum/common"
)

func parseAccount(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%w: %q", errBadAccount, s)
	}
	return common.HexToAddress(s), nil
}

func parseProposalID(r *http.Request) (uint64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", errBadProposalID, raw)
	}
	return id, nil
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %w", errBadRequestBody, err)
	}
	return nil
}

// engine returns the governance engine or writes a 503 response
func (s *Server) engine(w http.ResponseWriter) *governance.Engine {
	engine := s.node.Engine()
	if engine == nil {
		writeError(
			w,
			http.StatusServiceUnavailable,
			tally.ErrNotInitialized.Error(),
		)
	}
	return engine
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		IsHealthy:   true,
		Initialized: s.node.Engine() != nil,
	})
}

func (s *Server) handleGovernance(w http.ResponseWriter, _ *http.Request) {
	engine := s.engine(w)
	if engine == nil {
		return
	}
	cfg := engine.Config()
	writeJSON(w, http.StatusOK, GovernanceResponse{
		Chairman:          cfg.Governor.Hex(),
		VoteToken:         cfg.VoteToken.Hex(),
		GovernanceAccount: cfg.GovernanceAccount.Hex(),
		MinimumQuorum:     cfg.MinimumQuorum,
		VotingPeriod:      int64(cfg.VotingPeriod.Seconds()),
		TotalDeposits:     engine.TotalDeposits(),
		ProposalCount:     engine.ProposalCount(),
		Time:              s.node.Now(),
	})
}

func (s *Server) handleDepositOf(w http.ResponseWriter, r *http.Request) {
	engine := s.engine(w)
	if engine == nil {
		return
	}
	account, err := parseAccount(r.PathValue("account"))
	if err != nil {
		s.writeOpError(w, r, err)
		return
	}
	resp := DepositResponse{
		Account: account.Hex(),
		Amount:  engine.DepositOf(account),
	}
	if until, frozen := engine.FrozenUntil(account); frozen {
		resp.FrozenUntil = &until
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	s.handleAmount(w, r, s.node.Deposit)
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	s.handleAmount(w, r, s.node.Withdraw)
}

func (s *Server) handleAmount(
	w http.ResponseWriter,
	r *http.Request,
	op func(ctx context.Context, account common.Address, amount uint64) error,
) {
	var req AmountRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeOpError(w, r, err)
		return
	}
	account, err := parseAccount(req.Sender)
	if err != nil {
		s.writeOpError(w, r, err)
		return
	}
	if err := op(r.Context(), account, req.Amount); err != nil {
		s.writeOpError(w, r, err)
		return
	}
	resp := DepositResponse{Account: account.Hex()}
	if engine := s.node.Engine(); engine != nil {
		resp.Amount = engine.DepositOf(account)
		if until, frozen := engine.FrozenUntil(account); frozen {
			resp.FrozenUntil = &until
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleProposals(w http.ResponseWriter, r *http.Request) {
	engine := s.engine(w)
	if engine == nil {
		return
	}
	page, err := ParsePage(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	proposals := engine.Proposals()
	if page.Order == orderDesc {
		slices.Reverse(proposals)
	}
	start, end := page.bounds(len(proposals))
	now := s.node.Now()
	resp := make([]ProposalResponse, 0, end-start)
	for _, p := range proposals[start:end] {
		resp = append(resp, NewProposalResponse(p, now))
	}
	setPageHeaders(w, len(proposals), page)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleProposal(w http.ResponseWriter, r *http.Request) {
	engine := s.engine(w)
	if engine == nil {
		return
	}
	id, err := parseProposalID(r)
	if err != nil {
		s.writeOpError(w, r, err)
		return
	}
	p, err := engine.Proposal(id)
	if err != nil {
		s.writeOpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, NewProposalResponse(p, s.node.Now()))
}

func (s *Server) handlePropose(w http.ResponseWriter, r *http.Request) {
	var req ProposeRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeOpError(w, r, err)
		return
	}
	caller, err := parseAccount(req.Sender)
	if err != nil {
		s.writeOpError(w, r, err)
		return
	}
	recipient, err := parseAccount(req.Recipient)
	if err != nil {
		s.writeOpError(w, r, err)
		return
	}
	id, err := s.node.Propose(
		r.Context(),
		caller,
		req.Payload,
		recipient,
		req.Description,
	)
	if err != nil {
		s.writeOpError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/v0/proposals/"+strconv.FormatUint(id, 10))
	writeJSON(w, http.StatusCreated, ProposeResponse{ID: id})
}

func (s *Server) handleVoteOf(w http.ResponseWriter, r *http.Request) {
	engine := s.engine(w)
	if engine == nil {
		return
	}
	id, err := parseProposalID(r)
	if err != nil {
		s.writeOpError(w, r, err)
		return
	}
	voter, err := parseAccount(r.PathValue("account"))
	if err != nil {
		s.writeOpError(w, r, err)
		return
	}
	s.writeVote(w, r, engine, id, voter)
}

func (s *Server) writeVote(
	w http.ResponseWriter,
	r *http.Request,
	engine *governance.Engine,
	id uint64,
	voter common.Address,
) {
	vote, err := engine.VoteRecord(id, voter)
	if err != nil {
		s.writeOpError(w, r, err)
		return
	}
	resp := VoteResponse{
		ProposalID: id,
		Voter:      voter.Hex(),
		Decision:   vote.Decision.String(),
		Weight:     vote.Weight,
	}
	if vote.Decision != governance.DecisionNone {
		resp.CastAt = &vote.CastAt
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCastVote(w http.ResponseWriter, r *http.Request) {
	id, err := parseProposalID(r)
	if err != nil {
		s.writeOpError(w, r, err)
		return
	}
	var req VoteRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeOpError(w, r, err)
		return
	}
	caller, err := parseAccount(req.Sender)
	if err != nil {
		s.writeOpError(w, r, err)
		return
	}
	decision, err := governance.ParseDecision(req.Decision)
	if err != nil {
		s.writeOpError(w, r, err)
		return
	}
	if err := s.node.CastVote(r.Context(), caller, id, decision); err != nil {
		s.writeOpError(w, r, err)
		return
	}
	engine := s.engine(w)
	if engine == nil {
		return
	}
	s.writeVote(w, r, engine, id, caller)
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	id, err := parseProposalID(r)
	if err != nil {
		s.writeOpError(w, r, err)
		return
	}
	var req ExecuteRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeOpError(w, r, err)
		return
	}
	caller, err := parseAccount(req.Sender)
	if err != nil {
		s.writeOpError(w, r, err)
		return
	}
	outcome, err := s.node.Execute(r.Context(), caller, id)
	if err != nil {
		s.writeOpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ExecuteResponse{
		ProposalID: id,
		Outcome:    outcome.String(),
	})
}
