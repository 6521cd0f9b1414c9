// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package coins

import (
	"fmt"
	"testing"

	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/assert"

	"github.com/bitmark-inc/chainstate/fault"
	"github.com/bitmark-inc/chainstate/storage"
)

// write n legacy records, each with outputs 0, 2 (unspendable) and 3
func loadLegacy(t *testing.T, db storage.Store, n int) {
	for i := 0; i < n; i += 1 {
		outputs := []*wire.TxOut{
			{Value: int64(i) + 1, PkScript: payToPubKeyHash(byte(i))},
			nil,
			{Value: 0, PkScript: []byte{txscript.OP_RETURN, 0x04, 't', 'e', 's', 't'}},
			{Value: 5000, PkScript: []byte{txscript.OP_TRUE}},
		}
		record := packLegacy(1, 0 == i%2, 0 != i%2, outputs, uint32(1000+i))
		key := storage.HashKey(storage.TagLegacyCoins, hashOf(fmt.Sprintf("legacy-%d", i)))
		if err := db.Put(key, record); nil != err {
			t.Fatalf("put legacy error: %s", err)
		}
	}
}

func TestUpgradeNothingToDo(t *testing.T) {
	forEachBackend(t, func(t *testing.T, db storage.Store) {
		store := New(db, storage.DefaultOptions())
		assert.Nil(t, store.Upgrade(nil), "upgrade of empty store")
		assert.Equal(t, 0, len(dumpFamily(t, db, storage.Pool.Coins)), "coins created")
	})
}

func TestUpgrade(t *testing.T) {
	for _, batchSize := range []int{1, storage.DefaultBatchSize} {
		t.Run(fmt.Sprintf("batch-%d", batchSize), func(t *testing.T) {
			db := newMemoryDB(t)
			defer db.Close()
			loadLegacy(t, db, 10)

			store := New(db, storage.Options{BatchSize: batchSize})
			assert.Nil(t, store.Upgrade(nil), "upgrade error")

			assert.Equal(t, 0, len(dumpFamily(t, db, storage.Pool.LegacyCoins)), "legacy records left")
			assert.Equal(t, 20, len(dumpFamily(t, db, storage.Pool.Coins)), "coin count")

			for i := 0; i < 10; i += 1 {
				txId := hashOf(fmt.Sprintf("legacy-%d", i))

				c, found, err := store.GetCoin(wire.OutPoint{Hash: txId, Index: 0})
				assert.Nil(t, err, "%d: get error", i)
				assert.True(t, found, "%d: output 0 missing", i)
				assert.Equal(t, int64(i)+1, c.Out.Value, "%d: value", i)
				assert.Equal(t, uint32(1000+i), c.Height, "%d: height", i)
				assert.Equal(t, 0 == i%2, c.CoinBase, "%d: coinbase", i)
				assert.Equal(t, 0 != i%2, c.CoinStake, "%d: coinstake", i)

				for _, index := range []uint32{1, 2} {
					has, _ := store.HaveCoin(wire.OutPoint{Hash: txId, Index: index})
					assert.False(t, has, "%d: output %d should not exist", i, index)
				}

				c, found, _ = store.GetCoin(wire.OutPoint{Hash: txId, Index: 3})
				assert.True(t, found, "%d: output 3 missing", i)
				assert.Equal(t, []byte{txscript.OP_TRUE}, c.Out.PkScript, "%d: script", i)
			}
		})
	}
}

func TestUpgradeTwice(t *testing.T) {
	once := newMemoryDB(t)
	defer once.Close()
	loadLegacy(t, once, 25)
	assert.Nil(t, New(once, storage.DefaultOptions()).Upgrade(nil), "single upgrade")

	twice := newMemoryDB(t)
	defer twice.Close()
	loadLegacy(t, twice, 25)
	store := New(twice, storage.Options{BatchSize: 100})
	assert.Nil(t, store.Upgrade(nil), "first upgrade")
	assert.Nil(t, store.Upgrade(nil), "second upgrade")

	assert.Equal(t, dumpFamily(t, once, storage.Pool.Coins), dumpFamily(t, twice, storage.Pool.Coins), "records differ")
}

func TestUpgradeInterrupted(t *testing.T) {
	db := newMemoryDB(t)
	defer db.Close()
	loadLegacy(t, db, 5)

	shutdown := make(chan struct{})
	close(shutdown)

	store := New(db, storage.DefaultOptions())
	err := store.Upgrade(shutdown)
	assert.Equal(t, fault.ErrInterrupted, err, "interrupted upgrade")
	assert.Equal(t, 5, len(dumpFamily(t, db, storage.Pool.LegacyCoins)), "legacy records lost")

	assert.Nil(t, store.Upgrade(nil), "resumed upgrade")
	assert.Equal(t, 0, len(dumpFamily(t, db, storage.Pool.LegacyCoins)), "legacy records left")
	assert.Equal(t, 10, len(dumpFamily(t, db, storage.Pool.Coins)), "coin count")
}

func TestUpgradeMalformed(t *testing.T) {
	db := newMemoryDB(t)
	defer db.Close()
	loadLegacy(t, db, 3)

	key := storage.HashKey(storage.TagLegacyCoins, hashOf("broken"))
	assert.Nil(t, db.Put(key, []byte{0x01, 0x05, 0x2b}), "put broken")

	err := New(db, storage.DefaultOptions()).Upgrade(nil)
	assert.ErrorIs(t, err, fault.ErrMalformedValue, "malformed legacy record")
	assert.True(t, fault.IsErrStore(err), "not a store error")
}
