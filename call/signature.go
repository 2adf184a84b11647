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
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// SelectorSize is the number of payload bytes identifying the method
const SelectorSize = 4

type Selector [SelectorSize]byte

func (s Selector) String() string {
	return hexutil.Encode(s[:])
}

// SelectorOf returns the first four bytes of the Keccak-256 hash of a
// canonical signature such as "transfer(address,uint256)"
func SelectorOf(signature string) Selector {
	var ret Selector
	copy(ret[:], crypto.Keccak256([]byte(signature))[:SelectorSize])
	return ret
}

// parseSignature splits "name(type1,type2)" into the method name and ABI
// arguments. Tuple types are not supported.
func parseSignature(signature string) (string, abi.Arguments, error) {
	open := strings.IndexByte(signature, '(')
	if open <= 0 || !strings.HasSuffix(signature, ")") {
		return "", nil, fmt.Errorf("%w: %q", ErrBadSignature, signature)
	}
	name := signature[:open]
	inner := signature[open+1 : len(signature)-1]
	if inner == "" {
		return name, abi.Arguments{}, nil
	}
	var args abi.Arguments
	for idx, typeName := range strings.Split(inner, ",") {
		if strings.ContainsAny(typeName, "() ") {
			return "", nil, fmt.Errorf("%w: %q", ErrBadSignature, signature)
		}
		typ, err := abi.NewType(typeName, "", nil)
		if err != nil {
			return "", nil, fmt.Errorf("%w: argument %d: %w", ErrBadSignature, idx, err)
		}
		args = append(args, abi.Argument{
			Name: fmt.Sprintf("arg%d", idx),
			Type: typ,
		})
	}
	return name, args, nil
}

// Encode builds a call payload: the selector of signature followed by the
// ABI encoding of args. Arguments use go-ethereum types (common.Address,
// *big.Int for uint256).
func Encode(signature string, args ...any) ([]byte, error) {
	_, inputs, err := parseSignature(signature)
	if err != nil {
		return nil, err
	}
	packed, err := inputs.Pack(args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadArguments, err)
	}
	selector := SelectorOf(signature)
	return append(selector[:], packed...), nil
}

// EncodeStrings parses textual arguments according to the signature and
// encodes the call. It backs the CLI and API, which receive arguments as
// strings.
func EncodeStrings(signature string, values []string) ([]byte, error) {
	_, inputs, err := parseSignature(signature)
	if err != nil {
		return nil, err
	}
	if len(values) != len(inputs) {
		return nil, fmt.Errorf(
			"%w: %s takes %d arguments, got %d",
			ErrBadArguments,
			signature,
			len(inputs),
			len(values),
		)
	}
	args := make([]any, 0, len(values))
	for idx, value := range values {
		arg, err := parseValue(inputs[idx].Type, value)
		if err != nil {
			return nil, fmt.Errorf("%w: argument %d: %w", ErrBadArguments, idx, err)
		}
		args = append(args, arg)
	}
	return Encode(signature, args...)
}

func parseValue(typ abi.Type, value string) (any, error) {
	value = strings.TrimSpace(value)
	switch typ.T {
	case abi.AddressTy:
		if !common.IsHexAddress(value) {
			return nil, fmt.Errorf("invalid address %q", value)
		}
		return common.HexToAddress(value), nil
	case abi.BoolTy:
		return strconv.ParseBool(value)
	case abi.StringTy:
		return value, nil
	case abi.BytesTy:
		return hexutil.Decode(value)
	case abi.UintTy, abi.IntTy:
		tmpInt, ok := new(big.Int).SetString(value, 0)
		if !ok {
			return nil, fmt.Errorf("invalid integer %q", value)
		}
		if typ.Size > 64 {
			return tmpInt, nil
		}
		if typ.T == abi.UintTy && typ.Size == 64 && tmpInt.IsUint64() {
			return tmpInt.Uint64(), nil
		}
		if typ.T == abi.IntTy && typ.Size == 64 && tmpInt.IsInt64() {
			return tmpInt.Int64(), nil
		}
		return nil, fmt.Errorf("unsupported integer type %s", typ.String())
	default:
		return nil, fmt.Errorf("unsupported argument type %s", typ.String())
	}
}
