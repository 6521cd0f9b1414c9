// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package storage

import (
	"os"
	"path/filepath"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/chainstate/fault"
)

// Store - ordered key/value engine
//
// keys sort by unsigned byte comparison, reads return copies
type Store interface {
	Get(key []byte) ([]byte, bool, error)
	Has(key []byte) (bool, error)
	Put(key []byte, value []byte) error
	Delete(key []byte) error
	Write(batch *Batch, sync bool) error
	NewIterator(start []byte, limit []byte) Iterator
	ApproximateSize(start []byte, limit []byte) (uint64, error)
	Close() error
}

// Iterator - forward iteration over [start, limit)
//
// a new iterator is unpositioned: call Seek or Next first.
// Key and Value are only valid until the next movement
type Iterator interface {
	Seek(key []byte) bool
	Next() bool
	Valid() bool
	Key() []byte
	Value() []byte
	Error() error
	Release()
}

// Writer - receives the operations of a batch in order
type Writer interface {
	Put(key []byte, value []byte)
	Delete(key []byte)
}

// engine names
const (
	BackendLevelDB = "leveldb"
	BackendPebble  = "pebble"
)

// DefaultBatchSize - flush threshold for large writes
const DefaultBatchSize = 16 << 20

// pool access modes
const (
	ReadOnly  = true
	ReadWrite = false
)

// Options - write tuning shared by the stores built on top of a Store
type Options struct {
	BatchSize  int  // flush an intermediate batch once its estimate exceeds this
	CrashRatio int  // 0 = off, otherwise 1 in N chance of stopping after a partial flush
	Sync       bool // sync the final batch of a commit

	// called instead of exiting when a simulated crash triggers
	CrashHandler func()
}

// DefaultOptions - the values used when nothing is configured
func DefaultOptions() Options {
	return Options{
		BatchSize:  DefaultBatchSize,
		CrashRatio: 0,
		Sync:       true,
	}
}

// Normalise - replace unset values with defaults
func (o Options) Normalise() Options {
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.CrashRatio < 0 {
		o.CrashRatio = 0
	}
	if nil == o.CrashHandler {
		o.CrashHandler = simulatedCrash
	}
	return o
}

func simulatedCrash() {
	fault.Criticalf("simulating a crash")
	fault.Finalise()
	logger.Finalise()
	os.Exit(0)
}

// Open - open one of the named databases below directory
//
// directory/name is created unless readOnly
func Open(backend string, directory string, name string, readOnly bool) (Store, error) {
	path := filepath.Join(directory, name)

	switch backend {
	case BackendLevelDB, "":
		return OpenLevelDB(path, readOnly)
	case BackendPebble:
		return OpenPebble(path, readOnly)
	default:
		return nil, fault.ErrInvalidBackend
	}
}
