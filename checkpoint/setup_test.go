// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package checkpoint

import (
	"os"
	"testing"

	"github.com/bitmark-inc/logger"

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

func forEachBackend(t *testing.T, f func(t *testing.T, db *DB)) {
	for _, b := range backends {
		b := b
		t.Run(b.name, func(t *testing.T) {
			store, err := b.open()
			if nil != err {
				t.Fatalf("open %s error: %s", b.name, err)
			}
			db := New(store)
			defer db.Close()
			f(t, db)
		})
	}
}

var testCheckpoints = map[Checkpoint]int32{
	{0x00000001, 1}:    100,
	{0x00000001, 5}:    101,
	{0x7fff0000, 10}:   2000,
	{0xdeadbeef, 100}:  3000,
	{0xffffffff, 5000}: 4000,
}
