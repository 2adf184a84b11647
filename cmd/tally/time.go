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
	"fmt"
	"time"

	"github.com/blinklabs-io/tally"
	"github.com/spf13/cobra"
)

type timeResult struct {
	Now         time.Time `json:"now"`
	ClockOffset string    `json:"clock_offset"`
}

func timeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "time",
		Short: "Inspect or move the governance clock",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDeployedNode(cmd, func(_ context.Context, n *tally.Node) error {
				return printJSON(cmd, timeResult{
					Now:         n.Now(),
					ClockOffset: n.ClockOffset().String(),
				})
			})
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "advance <duration>",
		Short: "Move the governance clock forward, such as '72h'",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := time.ParseDuration(args[0])
			if err != nil {
				return fmt.Errorf("invalid duration %q: %w", args[0], err)
			}
			return withDeployedNode(cmd, func(ctx context.Context, n *tally.Node) error {
				if err := n.AdvanceTime(ctx, d); err != nil {
					return err
				}
				return printJSON(cmd, timeResult{
					Now:         n.Now(),
					ClockOffset: n.ClockOffset().String(),
				})
			})
		},
	})
	return cmd
}
