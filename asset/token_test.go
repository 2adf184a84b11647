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

package asset_test

import (
	"math"
	"math/big"
	"testing"

	"github.com/blinklabs-io/tally/asset"
	"github.com/blinklabs-io/tally/call"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	deployer = common.HexToAddress("0x00000000000000000000000000000000000000c1")
	poolAddr = common.HexToAddress("0x00000000000000000000000000000000000000b0")
	addr1    = common.HexToAddress("0x0000000000000000000000000000000000000001")
	addr2    = common.HexToAddress("0x0000000000000000000000000000000000000002")
)

func newTestToken(t *testing.T) *asset.Token {
	t.Helper()
	token, err := asset.NewToken(deployer)
	require.NoError(t, err)
	require.NoError(t, token.Mint(deployer, addr1, 1000))
	require.NoError(t, token.Mint(deployer, addr2, 9000))
	return token
}

func TestNewToken(t *testing.T) {
	token := newTestToken(t)
	assert.Equal(t, "Vision DAO Token", token.Name())
	assert.Equal(t, "VDT", token.Symbol())
	assert.Equal(t, deployer, token.Owner())
	assert.Equal(t, uint64(10000), token.TotalSupply())
	_, err := asset.NewToken(common.Address{})
	require.ErrorIs(t, err, asset.ErrZeroAddress)
	custom, err := asset.NewToken(deployer, asset.WithMetadata("Other", "OTH"))
	require.NoError(t, err)
	assert.Equal(t, "OTH", custom.Symbol())
}

func TestTokenTransfer(t *testing.T) {
	token := newTestToken(t)
	require.NoError(t, token.Transfer(addr1, addr2, 400))
	assert.Equal(t, uint64(600), token.BalanceOf(addr1))
	assert.Equal(t, uint64(9400), token.BalanceOf(addr2))
	err := token.Transfer(addr1, addr2, 601)
	require.ErrorIs(t, err, asset.ErrInsufficientBalance)
	err = token.Transfer(addr1, common.Address{}, 1)
	require.ErrorIs(t, err, asset.ErrZeroAddress)
	assert.Equal(t, uint64(10000), token.TotalSupply())
}

func TestTokenTransferFrom(t *testing.T) {
	token := newTestToken(t)
	err := token.TransferFrom(poolAddr, addr1, poolAddr, 100)
	require.ErrorIs(t, err, asset.ErrInsufficientAllowance)
	require.NoError(t, token.Approve(addr1, poolAddr, 300))
	require.NoError(t, token.TransferFrom(poolAddr, addr1, poolAddr, 100))
	assert.Equal(t, uint64(200), token.Allowance(addr1, poolAddr))
	assert.Equal(t, uint64(100), token.BalanceOf(poolAddr))
	err = token.TransferFrom(poolAddr, addr1, poolAddr, 201)
	require.ErrorIs(t, err, asset.ErrInsufficientAllowance)

	// Unlimited allowance is not consumed
	require.NoError(t, token.Approve(addr2, poolAddr, math.MaxUint64))
	require.NoError(t, token.TransferFrom(poolAddr, addr2, poolAddr, 9000))
	assert.Equal(t, uint64(math.MaxUint64), token.Allowance(addr2, poolAddr))

	// Allowance larger than the balance still fails on the balance
	require.NoError(t, token.Approve(addr1, addr2, 5000))
	err = token.TransferFrom(addr2, addr1, addr2, 5000)
	require.ErrorIs(t, err, asset.ErrInsufficientBalance)
	assert.Equal(t, uint64(5000), token.Allowance(addr1, addr2))
}

func TestTokenOwnerOnly(t *testing.T) {
	token := newTestToken(t)
	require.ErrorIs(t, token.Mint(addr1, addr1, 1), asset.ErrNotOwner)
	require.ErrorIs(t, token.Burn(addr1, addr1, 1), asset.ErrNotOwner)
	require.ErrorIs(t, token.GovernedDemoFunction(addr1), asset.ErrNotOwner)
	require.ErrorIs(t, token.TransferOwnership(addr1, addr1), asset.ErrNotOwner)

	require.NoError(t, token.Burn(deployer, addr2, 1000))
	assert.Equal(t, uint64(9000), token.TotalSupply())
	require.ErrorIs(t, token.Burn(deployer, addr1, 1001), asset.ErrInsufficientBalance)
	require.ErrorIs(t, token.Mint(deployer, addr1, math.MaxUint64), asset.ErrOverflow)

	require.NoError(t, token.TransferOwnership(deployer, poolAddr))
	assert.Equal(t, poolAddr, token.Owner())
	require.ErrorIs(t, token.GovernedDemoFunction(deployer), asset.ErrNotOwner)
	require.NoError(t, token.GovernedDemoFunction(poolAddr))
	assert.Equal(t, uint64(1), token.GovernedValue())
	require.ErrorIs(t, token.TransferOwnership(poolAddr, common.Address{}), asset.ErrZeroAddress)
}

func TestTokenSnapshotRestore(t *testing.T) {
	token := newTestToken(t)
	require.NoError(t, token.Approve(addr1, poolAddr, 300))
	require.NoError(t, token.GovernedDemoFunction(deployer))
	state := token.Snapshot()

	restored, err := asset.NewToken(poolAddr)
	require.NoError(t, err)
	require.NoError(t, restored.Restore(state))
	assert.Equal(t, deployer, restored.Owner())
	assert.Equal(t, uint64(10000), restored.TotalSupply())
	assert.Equal(t, uint64(9000), restored.BalanceOf(addr2))
	assert.Equal(t, uint64(300), restored.Allowance(addr1, poolAddr))
	assert.Equal(t, uint64(1), restored.GovernedValue())

	// Changing the snapshot does not affect the token
	state.Balances[addr1] = 0
	assert.Equal(t, uint64(1000), token.BalanceOf(addr1))

	state.TotalSupply = 1
	require.ErrorIs(t, restored.Restore(state), asset.ErrInvalidTokenState)
	assert.Equal(t, uint64(10000), restored.TotalSupply())
}

func TestCustody(t *testing.T) {
	token := newTestToken(t)
	custody := asset.NewCustody(token, poolAddr)
	assert.Equal(t, poolAddr, custody.Account())
	err := custody.Debit(t.Context(), addr1, 1000)
	require.ErrorIs(t, err, asset.ErrInsufficientAllowance)
	require.NoError(t, token.Approve(addr1, poolAddr, 1000))
	require.NoError(t, custody.Debit(t.Context(), addr1, 1000))
	assert.Equal(t, uint64(1000), custody.Balance())
	assert.Equal(t, uint64(0), token.BalanceOf(addr1))
	require.NoError(t, custody.Credit(t.Context(), addr1, 400))
	assert.Equal(t, uint64(600), custody.Balance())
	assert.Equal(t, uint64(400), token.BalanceOf(addr1))
	err = custody.Credit(t.Context(), addr1, 601)
	require.ErrorIs(t, err, asset.ErrInsufficientBalance)
}

func TestTokenContract(t *testing.T) {
	token := newTestToken(t)
	require.NoError(t, token.TransferOwnership(deployer, poolAddr))
	contract, err := asset.TokenContract(token)
	require.NoError(t, err)
	assert.Len(t, contract.Methods(), 5)
	tokenAddr := common.HexToAddress("0x00000000000000000000000000000000000000a0")
	router := call.NewRouter()
	require.NoError(t, router.Register(tokenAddr, contract))

	demo, err := call.Encode(asset.GovernedDemoFunctionSig)
	require.NoError(t, err)
	require.NoError(t, router.Invoke(t.Context(), poolAddr, tokenAddr, demo))
	assert.Equal(t, uint64(1), token.GovernedValue())
	err = router.Invoke(t.Context(), addr1, tokenAddr, demo)
	require.ErrorIs(t, err, asset.ErrNotOwner)

	mint, err := call.Encode(asset.MintSig, addr1, big.NewInt(500))
	require.NoError(t, err)
	require.NoError(t, router.Invoke(t.Context(), poolAddr, tokenAddr, mint))
	assert.Equal(t, uint64(1500), token.BalanceOf(addr1))

	huge := new(big.Int).Lsh(big.NewInt(1), 64)
	mint, err = call.Encode(asset.MintSig, addr1, huge)
	require.NoError(t, err)
	err = router.Invoke(t.Context(), poolAddr, tokenAddr, mint)
	require.ErrorIs(t, err, asset.ErrAmountOutOfRange)

	err = router.Invoke(t.Context(), poolAddr, tokenAddr, []byte{0x07, 0x82, 0x4c, 0x06})
	require.ErrorIs(t, err, call.ErrUnknownSelector)
}
