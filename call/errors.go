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

import "errors"

var (
	ErrUnknownTarget   = errors.New("no contract registered at recipient")
	ErrPayloadTooShort = errors.New("payload is shorter than a selector")
	ErrUnknownSelector = errors.New(
		"function selector was not recognized and there's no fallback function",
	)
	ErrBadArguments    = errors.New("malformed call arguments")
	ErrBadSignature    = errors.New("malformed method signature")
	ErrDuplicateMethod = errors.New("method already registered")
	ErrTargetExists    = errors.New("contract already registered at address")
)
