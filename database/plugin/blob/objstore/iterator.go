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

package objstore

import (
	"strings"

	"github.com/blinklabs-io/tally/database/types"
)

type objIterator struct {
	txn     *objTxn
	err     error
	keys    []string
	idx     int
	reverse bool
}

func (it *objIterator) Rewind() {
	it.idx = 0
}

// Seek moves to the first key at or after target in iteration order
func (it *objIterator) Seek(target []byte) {
	it.idx = len(it.keys)
	for i, key := range it.keys {
		if (!it.reverse && key >= string(target)) ||
			(it.reverse && key <= string(target)) {
			it.idx = i
			return
		}
	}
}

func (it *objIterator) Valid() bool {
	return it.err == nil && it.idx < len(it.keys)
}

func (it *objIterator) ValidForPrefix(prefix []byte) bool {
	return it.Valid() && strings.HasPrefix(it.keys[it.idx], string(prefix))
}

func (it *objIterator) Next() {
	if it.idx < len(it.keys) {
		it.idx++
	}
}

func (it *objIterator) Item() types.BlobItem {
	if !it.Valid() {
		return nil
	}
	return &objItem{txn: it.txn, key: it.keys[it.idx]}
}

func (it *objIterator) Close() {}

func (it *objIterator) Err() error {
	return it.err
}

type objItem struct {
	txn *objTxn
	key string
}

func (i *objItem) Key() []byte {
	return []byte(i.key)
}

// ValueCopy fetches the value. The transaction must still be open.
func (i *objItem) ValueCopy(dst []byte) ([]byte, error) {
	data, err := i.txn.store.Get(i.txn, []byte(i.key))
	if err != nil {
		return nil, err
	}
	return append(dst[:0], data...), nil
}
