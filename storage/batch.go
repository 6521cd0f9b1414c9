// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package storage

// size of the sequence number and count that prefix an encoded batch
const batchHeaderSize = 12

type batchRecord struct {
	delete bool
	key    []byte
	value  []byte
}

// Batch - an ordered set of puts and deletes applied atomically
//
// keys and values are copied on entry so callers may reuse buffers
type Batch struct {
	store   Store
	records []batchRecord
	size    int
}

// NewBatch - an empty batch that commits to store
func NewBatch(store Store) *Batch {
	return &Batch{
		store: store,
		size:  batchHeaderSize,
	}
}

// Put - queue a write of key
func (b *Batch) Put(key []byte, value []byte) {
	b.records = append(b.records, batchRecord{
		key:   append([]byte{}, key...),
		value: append([]byte{}, value...),
	})
	b.size += 1 + uvarintSize(len(key)) + len(key) + uvarintSize(len(value)) + len(value)
}

// Delete - queue a removal of key
func (b *Batch) Delete(key []byte) {
	b.records = append(b.records, batchRecord{
		delete: true,
		key:    append([]byte{}, key...),
	})
	b.size += 1 + uvarintSize(len(key)) + len(key)
}

// Len - number of queued operations
func (b *Batch) Len() int {
	return len(b.records)
}

// SizeEstimate - approximate encoded size in bytes
func (b *Batch) SizeEstimate() int {
	return b.size
}

// Clear - drop all queued operations
func (b *Batch) Clear() {
	b.records = nil
	b.size = batchHeaderSize
}

// Replay - send every queued operation to w in insertion order
func (b *Batch) Replay(w Writer) {
	for _, r := range b.records {
		if r.delete {
			w.Delete(r.key)
		} else {
			w.Put(r.key, r.value)
		}
	}
}

// Commit - apply all operations atomically, then clear the batch
//
// on failure nothing is applied and the batch is left intact
func (b *Batch) Commit(sync bool) error {
	err := b.store.Write(b, sync)
	if nil != err {
		return err
	}
	b.Clear()
	return nil
}

func uvarintSize(n int) int {
	size := 1
	for n >= 0x80 {
		n >>= 7
		size += 1
	}
	return size
}
