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

package asset

import (
	"context"
	"fmt"
	"math/big"

	"github.com/blinklabs-io/tally/call"
	"github.com/ethereum/go-ethereum/common"
)

// Method signatures reachable by proposals
const (
	GovernedDemoFunctionSig = "governedDemoFunction()"
	MintSig                 = "mint(address,uint256)"
	BurnSig                 = "burn(address,uint256)"
	TransferSig             = "transfer(address,uint256)"
	TransferOwnershipSig    = "transferOwnership(address)"
)

// TokenContract exposes the token to a call.Router. The proposal caller,
// normally the governance account, becomes the caller of each method.
func TokenContract(t *Token) (*call.Contract, error) {
	contract := call.NewContract(t.Symbol())
	handlers := map[string]call.Handler{
		GovernedDemoFunctionSig: func(_ context.Context, caller common.Address, _ []any) error {
			return t.GovernedDemoFunction(caller)
		},
		MintSig: func(_ context.Context, caller common.Address, args []any) error {
			to, amount, err := addressAmount(args)
			if err != nil {
				return err
			}
			return t.Mint(caller, to, amount)
		},
		BurnSig: func(_ context.Context, caller common.Address, args []any) error {
			from, amount, err := addressAmount(args)
			if err != nil {
				return err
			}
			return t.Burn(caller, from, amount)
		},
		TransferSig: func(_ context.Context, caller common.Address, args []any) error {
			to, amount, err := addressAmount(args)
			if err != nil {
				return err
			}
			return t.Transfer(caller, to, amount)
		},
		TransferOwnershipSig: func(_ context.Context, caller common.Address, args []any) error {
			newOwner, ok := args[0].(common.Address)
			if !ok {
				return fmt.Errorf("%w: expected address", call.ErrBadArguments)
			}
			return t.TransferOwnership(caller, newOwner)
		},
	}
	for signature, handler := range handlers {
		if err := contract.Handle(signature, handler); err != nil {
			return nil, err
		}
	}
	return contract, nil
}

func addressAmount(args []any) (common.Address, uint64, error) {
	if len(args) != 2 {
		return common.Address{}, 0, fmt.Errorf(
			"%w: expected 2 arguments, got %d",
			call.ErrBadArguments,
			len(args),
		)
	}
	account, ok := args[0].(common.Address)
	if !ok {
		return common.Address{}, 0, fmt.Errorf("%w: expected address", call.ErrBadArguments)
	}
	amount, ok := args[1].(*big.Int)
	if !ok {
		return common.Address{}, 0, fmt.Errorf("%w: expected uint256", call.ErrBadArguments)
	}
	if !amount.IsUint64() {
		return common.Address{}, 0, fmt.Errorf("%w: %s", ErrAmountOutOfRange, amount)
	}
	return account, amount.Uint64(), nil
}
