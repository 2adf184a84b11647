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

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/blinklabs-io/tally"
	"github.com/blinklabs-io/tally/internal/config"
	"github.com/blinklabs-io/tally/internal/node"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

type flagsCtxKey struct{}

var (
	errPluginListRequested = errors.New("plugin list requested")
	errNoSender            = errors.New("--sender is required")
	errNoConfig            = errors.New("no config found in context")
)

func withFlags(ctx context.Context, flags *globalFlags) context.Context {
	return context.WithValue(ctx, flagsCtxKey{}, flags)
}

func flagsFromContext(ctx context.Context) *globalFlags {
	flags, ok := ctx.Value(flagsCtxKey{}).(*globalFlags)
	if !ok {
		return &globalFlags{}
	}
	return flags
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid account address %q", s)
	}
	return common.HexToAddress(s), nil
}

// sender returns the --sender account
func sender(cmd *cobra.Command) (common.Address, error) {
	flags := flagsFromContext(cmd.Context())
	if flags.sender == "" {
		return common.Address{}, errNoSender
	}
	return parseAddress(flags.sender)
}

func parseAmount(s string) (uint64, error) {
	amount, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return amount, nil
}

func parseProposalID(s string) (uint64, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid proposal id %q: %w", s, err)
	}
	return id, nil
}

// withNode opens the node for the duration of fn. Logs go to stderr.
func withNode(
	cmd *cobra.Command,
	fn func(ctx context.Context, n *tally.Node, logger *slog.Logger) error,
) error {
	cfg := config.FromContext(cmd.Context())
	if cfg == nil {
		return errNoConfig
	}
	flags := flagsFromContext(cmd.Context())
	logger := commonRun(cmd.ErrOrStderr(), flags.debug)
	n, err := node.Open(cfg, logger, nil)
	if err != nil {
		return err
	}
	fnErr := fn(cmd.Context(), n, logger)
	return errors.Join(fnErr, n.Close())
}

// withDeployedNode is withNode for commands that need a deployment
func withDeployedNode(
	cmd *cobra.Command,
	fn func(ctx context.Context, n *tally.Node) error,
) error {
	return withNode(cmd, func(ctx context.Context, n *tally.Node, _ *slog.Logger) error {
		if !n.Initialized() {
			return tally.ErrNotInitialized
		}
		return fn(ctx, n)
	})
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
