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

package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/blinklabs-io/tally"
	"github.com/blinklabs-io/tally/api"
	"github.com/blinklabs-io/tally/asset"
	"github.com/blinklabs-io/tally/call"
	"github.com/blinklabs-io/tally/governance"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

var _ api.GovernanceNode = (*tally.Node)(nil)

var (
	chairman = common.HexToAddress("0x00000000000000000000000000000000000000c1")
	voter1   = common.HexToAddress("0x0000000000000000000000000000000000000001")
	voter2   = common.HexToAddress("0x0000000000000000000000000000000000000002")
)

func newTestNode(t *testing.T) *tally.Node {
	t.Helper()
	n, err := tally.New(tally.NewConfig(tally.WithDatabasePath(t.TempDir())))
	require.NoError(t, err)
	t.Cleanup(func() { _ = n.Close() })
	return n
}

func deploy(t *testing.T, n *tally.Node) governance.Config {
	t.Helper()
	ctx := t.Context()
	cfg, err := n.Init(ctx, tally.DefaultDeployment(chairman))
	require.NoError(t, err)
	require.NoError(t, n.Transfer(ctx, chairman, voter1, 1000))
	require.NoError(t, n.Transfer(ctx, chairman, voter2, 7000))
	require.NoError(t, n.Approve(ctx, voter1, cfg.GovernanceAccount, 1000))
	require.NoError(t, n.Approve(ctx, voter2, cfg.GovernanceAccount, 7000))
	return cfg
}

func newTestServer(t *testing.T, n *tally.Node) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(api.New(api.Config{}, n, nil).Handler())
	t.Cleanup(srv.Close)
	return srv
}

// do sends a JSON request and decodes the response into out when non-nil
func do(
	t *testing.T,
	method string,
	url string,
	body any,
	out any,
) *http.Response {
	t.Helper()
	var reqBody bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&reqBody).Encode(body))
	}
	req, err := http.NewRequestWithContext(t.Context(), method, url, &reqBody)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func demoPayload(t *testing.T) hexutil.Bytes {
	t.Helper()
	payload, err := call.Encode(asset.GovernedDemoFunctionSig)
	require.NoError(t, err)
	return payload
}

func propose(t *testing.T, baseURL string, cfg governance.Config, payload []byte) uint64 {
	t.Helper()
	var created api.ProposeResponse
	resp := do(t, http.MethodPost, baseURL+"/api/v0/proposals", api.ProposeRequest{
		Sender:      chairman.Hex(),
		Recipient:   cfg.VoteToken.Hex(),
		Payload:     payload,
		Description: "call the demo function",
	}, &created)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return created.ID
}

func TestHealthBeforeDeployment(t *testing.T) {
	n := newTestNode(t)
	srv := newTestServer(t, n)

	var health api.HealthResponse
	resp := do(t, http.MethodGet, srv.URL+"/health", nil, &health)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, health.IsHealthy)
	assert.False(t, health.Initialized)

	var errResp api.ErrorResponse
	resp = do(t, http.MethodGet, srv.URL+"/api/v0/governance", nil, &errResp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, http.StatusServiceUnavailable, errResp.StatusCode)

	resp = do(t, http.MethodPost, srv.URL+"/api/v0/deposits", api.AmountRequest{
		Sender: voter1.Hex(),
		Amount: 10,
	}, &errResp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, tally.ErrNotInitialized.Error(), errResp.Message)
}

func TestGovernanceLifecycle(t *testing.T) {
	n := newTestNode(t)
	cfg := deploy(t, n)
	srv := newTestServer(t, n)

	var info api.GovernanceResponse
	resp := do(t, http.MethodGet, srv.URL+"/api/v0/governance", nil, &info)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, chairman.Hex(), info.Chairman)
	assert.Equal(t, cfg.VoteToken.Hex(), info.VoteToken)
	assert.Equal(t, tally.DefaultMinimumQuorum, info.MinimumQuorum)
	assert.Equal(t, int64(tally.DefaultVotingPeriod.Seconds()), info.VotingPeriod)

	// Only the chairman may propose
	var errResp api.ErrorResponse
	resp = do(t, http.MethodPost, srv.URL+"/api/v0/proposals", api.ProposeRequest{
		Sender:    voter1.Hex(),
		Recipient: cfg.VoteToken.Hex(),
		Payload:   demoPayload(t),
	}, &errResp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, governance.ErrUnauthorized.Error(), errResp.Message)

	id := propose(t, srv.URL, cfg, demoPayload(t))
	assert.Equal(t, uint64(0), id)
	proposalURL := srv.URL + "/api/v0/proposals/0"

	var deposit api.DepositResponse
	resp = do(t, http.MethodPost, srv.URL+"/api/v0/deposits", api.AmountRequest{
		Sender: voter2.Hex(),
		Amount: 7000,
	}, &deposit)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, uint64(7000), deposit.Amount)
	assert.Nil(t, deposit.FrozenUntil)

	var vote api.VoteResponse
	resp = do(t, http.MethodPost, proposalURL+"/votes", api.VoteRequest{
		Sender:   voter2.Hex(),
		Decision: "yes",
	}, &vote)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "yes", vote.Decision)
	assert.Equal(t, uint64(7000), vote.Weight)
	require.NotNil(t, vote.CastAt)

	resp = do(t, http.MethodPost, proposalURL+"/votes", api.VoteRequest{
		Sender:   voter2.Hex(),
		Decision: "no",
	}, &errResp)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, governance.ErrAlreadyVoted.Error(), errResp.Message)

	var noVote api.VoteResponse
	resp = do(t, http.MethodGet, proposalURL+"/votes/"+voter1.Hex(), nil, &noVote)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "none", noVote.Decision)
	assert.Nil(t, noVote.CastAt)

	// The vote freezes the deposit until the deadline
	resp = do(t, http.MethodGet, srv.URL+"/api/v0/deposits/"+voter2.Hex(), nil, &deposit)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotNil(t, deposit.FrozenUntil)
	resp = do(t, http.MethodPost, srv.URL+"/api/v0/withdrawals", api.AmountRequest{
		Sender: voter2.Hex(),
		Amount: 1,
	}, &errResp)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = do(t, http.MethodPost, proposalURL+"/execute", api.ExecuteRequest{
		Sender: voter1.Hex(),
	}, &errResp)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, governance.ErrProposalInProgress.Error(), errResp.Message)

	require.NoError(t, n.AdvanceTime(t.Context(), tally.DefaultVotingPeriod))

	var proposal api.ProposalResponse
	resp = do(t, http.MethodGet, proposalURL, nil, &proposal)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, string(governance.StatusAwaitingExecution), proposal.Status)

	var executed api.ExecuteResponse
	resp = do(t, http.MethodPost, proposalURL+"/execute", api.ExecuteRequest{
		Sender: voter1.Hex(),
	}, &executed)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "executed", executed.Outcome)

	resp = do(t, http.MethodPost, proposalURL+"/execute", api.ExecuteRequest{
		Sender: voter1.Hex(),
	}, &errResp)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, governance.ErrAlreadyFinished.Error(), errResp.Message)

	resp = do(t, http.MethodGet, proposalURL, nil, &proposal)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, proposal.Finished)
	assert.Equal(t, string(governance.StatusExecuted), proposal.Status)
	assert.Equal(t, uint64(7000), proposal.VotesYes)
	assert.Equal(t, []byte(demoPayload(t)), []byte(proposal.Payload))

	// Deposits are released once the deadline passed
	resp = do(t, http.MethodPost, srv.URL+"/api/v0/withdrawals", api.AmountRequest{
		Sender: voter2.Hex(),
		Amount: 7000,
	}, &deposit)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, uint64(0), deposit.Amount)
}

func TestExecuteCallFailed(t *testing.T) {
	n := newTestNode(t)
	cfg := deploy(t, n)
	srv := newTestServer(t, n)

	id := propose(t, srv.URL, cfg, []byte{0x07, 0x82, 0x4c, 0x06})
	require.NoError(t, n.Deposit(t.Context(), voter2, 7000))
	require.NoError(t, n.CastVote(t.Context(), voter2, id, governance.DecisionYes))
	require.NoError(t, n.AdvanceTime(t.Context(), tally.DefaultVotingPeriod))

	var errResp api.ErrorResponse
	resp := do(t, http.MethodPost, srv.URL+"/api/v0/proposals/0/execute", api.ExecuteRequest{
		Sender: voter1.Hex(),
	}, &errResp)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Contains(t, errResp.Message, governance.ErrCallExecutionFailed.Error())

	var proposal api.ProposalResponse
	resp = do(t, http.MethodGet, srv.URL+"/api/v0/proposals/0", nil, &proposal)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, string(governance.StatusCallFailed), proposal.Status)
}

func TestBadRequests(t *testing.T) {
	n := newTestNode(t)
	deploy(t, n)
	srv := newTestServer(t, n)

	testDefs := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"malformed body", http.MethodPost, "/api/v0/deposits", "{", http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/api/v0/deposits", `{"owner":"x"}`, http.StatusBadRequest},
		{"bad sender", http.MethodPost, "/api/v0/deposits", `{"sender":"0x12","amount":1}`, http.StatusUnprocessableEntity},
		{"zero amount", http.MethodPost, "/api/v0/deposits", `{"sender":"` + voter1.Hex() + `","amount":0}`, http.StatusUnprocessableEntity},
		{"no allowance", http.MethodPost, "/api/v0/deposits", `{"sender":"` + chairman.Hex() + `","amount":5}`, http.StatusUnprocessableEntity},
		{"bad proposal id", http.MethodGet, "/api/v0/proposals/abc", "", http.StatusUnprocessableEntity},
		{"unknown proposal", http.MethodGet, "/api/v0/proposals/7", "", http.StatusNotFound},
		{"vote without deposit", http.MethodPost, "/api/v0/proposals/0/votes", `{"sender":"` + voter1.Hex() + `","decision":"yes"}`, http.StatusUnprocessableEntity},
		{"bad account", http.MethodGet, "/api/v0/deposits/nobody", "", http.StatusUnprocessableEntity},
		{"bad order", http.MethodGet, "/api/v0/proposals?order=sideways", "", http.StatusBadRequest},
		{"wrong method", http.MethodDelete, "/api/v0/proposals", "", http.StatusMethodNotAllowed},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			req, err := http.NewRequestWithContext(
				t.Context(),
				testDef.method,
				srv.URL+testDef.path,
				strings.NewReader(testDef.body),
			)
			require.NoError(t, err)
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, testDef.status, resp.StatusCode)
		})
	}
}

func TestProposalsPagination(t *testing.T) {
	n := newTestNode(t)
	cfg := deploy(t, n)
	srv := newTestServer(t, n)
	for range 3 {
		propose(t, srv.URL, cfg, demoPayload(t))
	}

	var proposals []api.ProposalResponse
	resp := do(t, http.MethodGet, srv.URL+"/api/v0/proposals", nil, &proposals)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, proposals, 3)
	assert.Equal(t, "3", resp.Header.Get("X-Pagination-Count-Total"))

	resp = do(t, http.MethodGet, srv.URL+"/api/v0/proposals?count=2&page=2", nil, &proposals)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, proposals, 1)
	assert.Equal(t, uint64(2), proposals[0].ID)
	assert.Equal(t, "2", resp.Header.Get("X-Pagination-Page-Total"))

	resp = do(t, http.MethodGet, srv.URL+"/api/v0/proposals?count=2&order=desc", nil, &proposals)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, proposals, 2)
	assert.Equal(t, uint64(2), proposals[0].ID)
	assert.Equal(t, uint64(1), proposals[1].ID)

	resp = do(t, http.MethodGet, srv.URL+"/api/v0/proposals?page=9", nil, &proposals)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, proposals)
}

func TestEventStream(t *testing.T) {
	n := newTestNode(t)
	deploy(t, n)
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	srv := httptest.NewServer(api.New(api.Config{}, n, nil).Handler())
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v0/events"
	conn, resp, err := websocket.DefaultDialer.DialContext(t.Context(), wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	resp.Body.Close()
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)

	require.NoError(t, n.Deposit(t.Context(), voter2, 500))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg struct {
		ID   string                  `json:"id"`
		Type string                  `json:"type"`
		Data governance.DepositEvent `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&msg))
	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, string(governance.DepositEventType), msg.Type)
	assert.Equal(t, voter2, msg.Data.Account)
	assert.Equal(t, uint64(500), msg.Data.Amount)
	assert.Equal(t, uint64(500), msg.Data.TotalDeposits)

	require.NoError(t, conn.WriteMessage(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
	))
}

func TestStartStop(t *testing.T) {
	n := newTestNode(t)
	s := api.New(api.Config{ListenAddress: "127.0.0.1:0"}, n, nil)
	require.NoError(t, s.Start(t.Context()))
	require.Error(t, s.Start(t.Context()))

	addr := s.Addr()
	require.NotNil(t, addr)
	var health api.HealthResponse
	resp := do(t, http.MethodGet, "http://"+addr.String()+"/health", nil, &health)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, health.IsHealthy)

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(stopCtx))
	assert.Nil(t, s.Addr())
	// Stopping twice is a no-op
	require.NoError(t, s.Stop(stopCtx))
}

func TestStopOnContextCancel(t *testing.T) {
	n := newTestNode(t)
	s := api.New(api.Config{ListenAddress: "127.0.0.1:0"}, n, nil)
	ctx, cancel := context.WithCancel(t.Context())
	require.NoError(t, s.Start(ctx))
	cancel()
	require.Eventually(t, func() bool {
		return s.Addr() == nil
	}, 5*time.Second, 10*time.Millisecond)
}
