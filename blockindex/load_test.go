// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockindex

import (
	"errors"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"

	"github.com/bitmark-inc/chainstate/fault"
	"github.com/bitmark-inc/chainstate/storage"
	"github.com/bitmark-inc/chainstate/storage/mocks"
)

func TestLoadEmpty(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store *Store) {
		idx, err := LoadBlockIndex(store, nil)
		assert.Nil(t, err, "load error")
		assert.Equal(t, 0, idx.Len(), "nodes")
		assert.Nil(t, idx.Tip(), "tip of empty index")
	})
}

func TestLoadChain(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store *Store) {
		entries := makeChain(t, store.params, 20)
		assert.Nil(t, store.WriteBatchSync(nil, 0, entries), "write error")

		// records of other families must not be visited
		assert.Nil(t, store.WriteFlag("txindex", true), "flag error")
		assert.Nil(t, store.WriteReindexing(true), "reindex error")

		idx, err := LoadBlockIndex(store, nil)
		assert.Nil(t, err, "load error")
		assert.Equal(t, len(entries), idx.Len(), "nodes")

		for _, entry := range entries {
			node, ok := idx.Lookup(entry.BlockHash())
			if !assert.True(t, ok, "height %d missing", entry.Height) {
				continue
			}
			assert.Equal(t, entry.Height, node.Height, "height")
			assert.Equal(t, entry.Header.PrevBlock, node.PrevHash, "prev")
			assert.Equal(t, entry.Header.MerkleRoot, node.MerkleRoot, "merkle root")
			assert.Equal(t, entry.Header.Nonce, node.Nonce, "nonce")
			assert.Equal(t, entry.Header.Bits, node.Bits, "bits")
			assert.Equal(t, entry.Header.Timestamp.Unix(), node.Time.Unix(), "time")
			assert.Equal(t, entry.Status, node.Status, "status")
			assert.Equal(t, entry.DataPos, node.DataPos, "data pos")
			assert.Equal(t, entry.UndoPos, node.UndoPos, "undo pos")
			assert.Equal(t, entry.StakeModifier, node.StakeModifier, "stake modifier")
			assert.Equal(t, entry.SaplingValue, node.SaplingValue, "sapling value")
			assert.Equal(t, entry.AccumulatorCheckpoint, node.AccumulatorCheckpoint, "accumulator")
		}

		tip := idx.Tip()
		assert.Equal(t, entries[len(entries)-1].BlockHash(), tip.Hash, "tip")

		d, err := tip.Difficulty()
		assert.Nil(t, err, "tip difficulty error")
		assert.Equal(t, "207fffff", d.String(), "tip bits")
		assert.True(t, d.Pdiff() > 0 && d.Pdiff() < 1, "regtest pdiff: %g", d.Pdiff())

		// walk back to the first block
		count := 1
		for n, ok := idx.Parent(tip); ok; n, ok = idx.Parent(n) {
			count += 1
		}
		assert.Equal(t, len(entries), count, "chain length")

		genesis, _ := idx.Lookup(entries[0].BlockHash())
		_, ok := idx.Parent(genesis)
		assert.False(t, ok, "genesis has a parent")
	})
}

func TestLoadCreatesMissingParent(t *testing.T) {
	store := newMemoryStore(t)
	defer store.Close()

	parent := chainhash.DoubleHashH([]byte("not stored"))
	entry := makeEntry(300, parent, hardBits)
	assert.Nil(t, store.WriteBlockIndex(entry), "write error")

	idx, err := LoadBlockIndex(store, nil)
	assert.Nil(t, err, "load error")
	assert.Equal(t, 2, idx.Len(), "nodes")

	node, _ := idx.Lookup(entry.BlockHash())
	p, ok := idx.Parent(node)
	assert.True(t, ok, "parent missing")
	assert.Equal(t, parent, p.Hash, "parent hash")
	assert.Equal(t, int32(0), p.Height, "placeholder height")
}

func TestLoadBadProofOfWork(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store *Store) {
		entries := makeChain(t, store.params, 3)

		bad := makeEntry(3, entries[2].BlockHash(), hardBits)
		entries = append(entries, bad)
		assert.Nil(t, store.WriteBatchSync(nil, 0, entries), "write error")

		idx, err := LoadBlockIndex(store, nil)
		assert.ErrorIs(t, err, fault.ErrCorruptIndex, "load error")
		assert.True(t, fault.IsErrStore(err), "not a store error")
		assert.Nil(t, idx, "index returned on failure")
	})
}

func TestLoadProofOfStakeSkipsWork(t *testing.T) {
	store := newMemoryStore(t)
	defer store.Close()

	height := store.params.PoSActivationHeight
	entry := makeEntry(height, chainhash.DoubleHashH([]byte("parent")), hardBits)
	assert.Nil(t, store.WriteBlockIndex(entry), "write error")

	idx, err := LoadBlockIndex(store, nil)
	assert.Nil(t, err, "load error")
	assert.NotNil(t, idx, "no index")

	below := makeEntry(height-1, chainhash.DoubleHashH([]byte("other")), hardBits)
	assert.Nil(t, store.WriteBlockIndex(below), "write error")

	idx, err = LoadBlockIndex(store, nil)
	assert.ErrorIs(t, err, fault.ErrCorruptIndex, "below activation")
	assert.Nil(t, idx, "index returned on failure")
}

func TestLoadMalformed(t *testing.T) {
	store := newMemoryStore(t)
	defer store.Close()

	key := storage.HashKey(storage.TagBlockIndex, chainhash.DoubleHashH([]byte("broken")))
	assert.Nil(t, store.db.Put(key, []byte{0x01, 0x02}), "put error")

	idx, err := LoadBlockIndex(store, nil)
	assert.ErrorIs(t, err, fault.ErrTruncatedRecord, "load error")
	assert.True(t, fault.IsErrStore(err), "not a store error")
	assert.Nil(t, idx, "index returned on failure")
}

func TestLoadInterrupted(t *testing.T) {
	store := newMemoryStore(t)
	defer store.Close()

	assert.Nil(t, store.WriteBatchSync(nil, 0, makeChain(t, store.params, 2)), "write error")

	shutdown := make(chan struct{})
	close(shutdown)

	idx, err := LoadBlockIndex(store, shutdown)
	assert.Equal(t, fault.ErrInterrupted, err, "load error")
	assert.Nil(t, idx, "index returned on failure")
}

func TestLoadIteratorFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	failure := errors.New("read failure")

	iter := mocks.NewMockIterator(ctrl)
	iter.EXPECT().Next().Return(false)
	iter.EXPECT().Error().Return(failure)
	iter.EXPECT().Release()

	db := mocks.NewMockStore(ctrl)
	db.EXPECT().NewIterator(storage.Pool.BlockIndex.Start(), storage.Pool.BlockIndex.Limit()).Return(iter)

	idx, err := LoadBlockIndex(New(db, regtest(t)), nil)
	assert.Equal(t, failure, err, "load error")
	assert.Nil(t, idx, "index returned on failure")
}

func TestIndexInsert(t *testing.T) {
	idx := NewIndex()
	hash := chainhash.DoubleHashH([]byte("a"))

	n1 := idx.Insert(hash)
	n1.Height = 7
	n2 := idx.Insert(hash)
	assert.True(t, n1 == n2, "insert created a second node")
	assert.Equal(t, 1, idx.Len(), "nodes")

	_, ok := idx.Lookup(chainhash.DoubleHashH([]byte("b")))
	assert.False(t, ok, "unknown hash found")

	_, ok = idx.Parent(nil)
	assert.False(t, ok, "parent of nil")

	// a placeholder has no header yet
	_, err := n1.Difficulty()
	assert.Equal(t, fault.ErrInvalidDifficulty, err, "placeholder difficulty")
}

func TestIndexTipTie(t *testing.T) {
	idx := NewIndex()
	a := idx.Insert(chainhash.Hash{0x02})
	b := idx.Insert(chainhash.Hash{0x01})
	a.Height = 5
	b.Height = 5

	assert.Equal(t, b.Hash, idx.Tip().Hash, "lowest hash wins a tie")
}
