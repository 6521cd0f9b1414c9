// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package coins

import (
	"bytes"
	"os"
	"testing"

	"github.com/bitmark-inc/logger"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/bitmark-inc/chainstate/storage"
)

const (
	testingDirName = "testing"
)

func setupTestLogger() {
	removeFiles()
	_ = os.Mkdir(testingDirName, 0700)

	logging := logger.Configuration{
		Directory: testingDirName,
		File:      "testing.log",
		Size:      1048576,
		Count:     10,
		Console:   false,
		Levels: map[string]string{
			logger.DefaultTag: "critical",
		},
	}

	// start logging
	_ = logger.Initialise(logging)
}

func teardownTestLogger() {
	logger.Finalise()
	removeFiles()
}

func removeFiles() {
	_ = os.RemoveAll(testingDirName)
}

func TestMain(m *testing.M) {
	setupTestLogger()
	rc := m.Run()
	teardownTestLogger()
	os.Exit(rc)
}

var backends = []struct {
	name string
	open func() (storage.Store, error)
}{
	{"leveldb", storage.NewMemory},
	{"pebble", storage.NewPebbleMemory},
}

func forEachBackend(t *testing.T, f func(t *testing.T, db storage.Store)) {
	for _, b := range backends {
		b := b
		t.Run(b.name, func(t *testing.T) {
			db, err := b.open()
			if nil != err {
				t.Fatalf("open %s error: %s", b.name, err)
			}
			defer db.Close()
			f(t, db)
		})
	}
}

func newMemoryDB(t *testing.T) storage.Store {
	db, err := storage.NewMemory()
	if nil != err {
		t.Fatalf("open memory error: %s", err)
	}
	return db
}

func hashOf(s string) chainhash.Hash {
	return chainhash.DoubleHashH([]byte(s))
}

func outpoint(s string, index uint32) wire.OutPoint {
	return wire.OutPoint{Hash: hashOf(s), Index: index}
}

func payToPubKeyHash(fill byte) []byte {
	script := []byte{txscript.OP_DUP, txscript.OP_HASH160, txscript.OP_DATA_20}
	script = append(script, bytes.Repeat([]byte{fill}, 20)...)
	return append(script, txscript.OP_EQUALVERIFY, txscript.OP_CHECKSIG)
}

func testCoin(value int64, height uint32) Coin {
	return Coin{
		Out: wire.TxOut{
			Value:    value,
			PkScript: payToPubKeyHash(byte(height)),
		},
		Height: height,
	}
}

// every raw coin record, keyed by hex key
func dumpFamily(t *testing.T, db storage.Store, pool *storage.PoolHandle) map[string][]byte {
	result := make(map[string][]byte)
	err := storage.NewFetchCursor(db, pool).Map(nil, func(key []byte, value []byte) error {
		result[string(key)] = value
		return nil
	})
	if nil != err {
		t.Fatalf("dump %s error: %s", pool.Name(), err)
	}
	return result
}
