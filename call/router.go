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

package call

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
)

// Handler executes a decoded method call. Args follow the go-ethereum ABI
// decoding types, in signature order.
type Handler func(ctx context.Context, caller common.Address, args []any) error

type method struct {
	signature string
	inputs    abi.Arguments
	handler   Handler
}

// Contract is a set of methods reachable through a Router
type Contract struct {
	name    string
	methods map[Selector]*method
}

func NewContract(name string) *Contract {
	return &Contract{
		name:    name,
		methods: make(map[Selector]*method),
	}
}

func (c *Contract) Name() string {
	return c.name
}

// Handle registers a handler for a canonical method signature
func (c *Contract) Handle(signature string, handler Handler) error {
	_, inputs, err := parseSignature(signature)
	if err != nil {
		return err
	}
	selector := SelectorOf(signature)
	if _, ok := c.methods[selector]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateMethod, signature)
	}
	c.methods[selector] = &method{
		signature: signature,
		inputs:    inputs,
		handler:   handler,
	}
	return nil
}

// Methods returns the registered signatures in sorted order
func (c *Contract) Methods() []string {
	ret := make([]string, 0, len(c.methods))
	for _, m := range c.methods {
		ret = append(ret, m.signature)
	}
	slices.Sort(ret)
	return ret
}

// Router dispatches payloads to contracts by recipient address. It
// implements governance.Invoker.
type Router struct {
	mu           sync.RWMutex
	contracts    map[common.Address]*Contract
	logger       *slog.Logger
	promRegistry prometheus.Registerer
	metrics      *routerMetrics
}

type RouterOptionFunc func(*Router)

// WithLogger specifies the logger object to use for logging messages
func WithLogger(logger *slog.Logger) RouterOptionFunc {
	return func(r *Router) {
		r.logger = logger
	}
}

// WithPromRegistry specifies the prometheus registry to use for metrics
func WithPromRegistry(registry prometheus.Registerer) RouterOptionFunc {
	return func(r *Router) {
		r.promRegistry = registry
	}
}

func NewRouter(opts ...RouterOptionFunc) *Router {
	r := &Router{
		contracts: make(map[common.Address]*Contract),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	r.logger = r.logger.With("component", "call")
	if r.promRegistry != nil {
		r.initMetrics()
	}
	return r
}

// Register binds a contract to an address
func (r *Router) Register(address common.Address, contract *Contract) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.contracts[address]; ok {
		return fmt.Errorf("%w: %s", ErrTargetExists, address.Hex())
	}
	r.contracts[address] = contract
	r.logger.Debug(
		"registered contract",
		"address", address.Hex(),
		"contract", contract.name,
		"methods", len(contract.methods),
	)
	return nil
}

func (r *Router) lookup(
	recipient common.Address,
	payload []byte,
) (*Contract, *method, error) {
	r.mu.RLock()
	contract, ok := r.contracts[recipient]
	r.mu.RUnlock()
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownTarget, recipient.Hex())
	}
	if len(payload) < SelectorSize {
		return contract, nil, fmt.Errorf(
			"%w: %d bytes",
			ErrPayloadTooShort,
			len(payload),
		)
	}
	var selector Selector
	copy(selector[:], payload[:SelectorSize])
	m, ok := contract.methods[selector]
	if !ok {
		return contract, nil, fmt.Errorf(
			"%w: %s on %s",
			ErrUnknownSelector,
			selector,
			contract.name,
		)
	}
	return contract, m, nil
}

// Describe returns the method signature a payload would call, without
// calling it
func (r *Router) Describe(
	recipient common.Address,
	payload []byte,
) (string, error) {
	_, m, err := r.lookup(recipient, payload)
	if err != nil {
		return "", err
	}
	return m.signature, nil
}

// Invoke decodes payload and runs the matching method of the contract at
// recipient
func (r *Router) Invoke(
	ctx context.Context,
	caller common.Address,
	recipient common.Address,
	payload []byte,
) error {
	contract, m, err := r.lookup(recipient, payload)
	if err != nil {
		r.record("unresolved", err)
		return err
	}
	args, err := m.inputs.Unpack(payload[SelectorSize:])
	if err != nil {
		err = fmt.Errorf("%w: %s: %w", ErrBadArguments, m.signature, err)
		r.record(m.signature, err)
		return err
	}
	if err := m.handler(ctx, caller, args); err != nil {
		err = fmt.Errorf("%s.%s: %w", contract.name, m.signature, err)
		r.record(m.signature, err)
		return err
	}
	r.record(m.signature, nil)
	r.logger.Info(
		"call executed",
		"contract", contract.name,
		"method", m.signature,
		"caller", caller.Hex(),
	)
	return nil
}

func (r *Router) record(method string, err error) {
	if err != nil {
		r.logger.Debug("call failed", "method", method, "error", err)
	}
	if r.metrics == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.metrics.invocations.WithLabelValues(method, result).Inc()
}
