// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package checkpoint

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/bitmark-inc/logger"
	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/bitmark-inc/chainstate/fault"
	"github.com/bitmark-inc/chainstate/storage"
)

// Denomination - value class of an accumulator
type Denomination uint32

// Checkpoint - identifies one accumulator checksum record
type Checkpoint struct {
	Checksum     uint32
	Denomination Denomination
}

// CoinSpend - a spent serial and the transaction that spent it
type CoinSpend struct {
	Serial []byte
	TxId   chainhash.Hash
}

// DB - the auxiliary checkpoint database
type DB struct {
	sync.Mutex

	log *logger.L
	db  storage.Store
}

// New - build a checkpoint database over an open store
//
// the DB takes ownership of db
func New(db storage.Store) *DB {
	return &DB{
		log: logger.New("checkpoint"),
		db:  db,
	}
}

// Open - open the checkpoints database below directory
func Open(backend string, directory string, readOnly bool) (*DB, error) {
	db, err := storage.Open(backend, directory, storage.DatabaseCheckpoints, readOnly)
	if nil != err {
		return nil, err
	}
	return New(db), nil
}

// Close - release the database
func (d *DB) Close() error {
	return d.db.Close()
}

// WriteAccChecksum - store the height at which a checksum was recorded
func (d *DB) WriteAccChecksum(checksum uint32, denomination Denomination, height int32) error {
	return d.db.Put(checkpointKey(Checkpoint{checksum, denomination}), packHeight(height))
}

// ReadAccChecksum - the height recorded for a checksum
func (d *DB) ReadAccChecksum(checksum uint32, denomination Denomination) (int32, bool, error) {
	value, found, err := d.db.Get(checkpointKey(Checkpoint{checksum, denomination}))
	if nil != err || !found {
		return 0, false, err
	}
	height, err := unpackHeight(value)
	if nil != err {
		return 0, false, err
	}
	return height, true, nil
}

// EraseAccChecksum - remove one checksum record
func (d *DB) EraseAccChecksum(checksum uint32, denomination Denomination) error {
	return d.db.Delete(checkpointKey(Checkpoint{checksum, denomination}))
}

// ReadAll - every checksum record
func (d *DB) ReadAll(shutdown <-chan struct{}) (map[Checkpoint]int32, error) {
	result := make(map[Checkpoint]int32)

	cursor := storage.NewFetchCursor(d.db, storage.Pool.AccChecksums)
	err := cursor.Map(shutdown, func(payload []byte, value []byte) error {
		checkpoint, err := checkpointFromPayload(payload)
		if nil != err {
			return err
		}
		height, err := unpackHeight(value)
		if nil != err {
			return fmt.Errorf("checksum: %08x  denomination: %d: %w", checkpoint.Checksum, checkpoint.Denomination, err)
		}
		result[checkpoint] = height
		return nil
	})
	if nil != err {
		return nil, err
	}

	d.log.Infof("total acc checksum records: %d", len(result))
	return result, nil
}

// WipeAccChecksums - delete every checksum record in one batch
//
// returns the number of records deleted
func (d *DB) WipeAccChecksums(shutdown <-chan struct{}) (int, error) {
	d.Lock()
	defer d.Unlock()

	batch := storage.NewBatch(d.db)
	cursor := storage.NewFetchCursor(d.db, storage.Pool.AccChecksums)
	err := cursor.Map(shutdown, func(payload []byte, value []byte) error {
		batch.Delete(storage.Pool.AccChecksums.Key(payload))
		return nil
	})
	if nil != err {
		return 0, err
	}

	n := batch.Len()
	if err := batch.Commit(true); nil != err {
		return 0, err
	}
	d.log.Infof("deleted %d acc checksum records", n)
	return n, nil
}

// write a set of checksums in one synced batch
func (d *DB) writeAccChecksums(items map[Checkpoint]int32) error {
	d.Lock()
	defer d.Unlock()

	batch := storage.NewBatch(d.db)
	for checkpoint, height := range items {
		batch.Put(checkpointKey(checkpoint), packHeight(height))
	}
	return batch.Commit(true)
}

// WriteCoinSpendBatch - record spent serials in one synced batch
func (d *DB) WriteCoinSpendBatch(spends []CoinSpend) error {
	d.Lock()
	defer d.Unlock()

	batch := storage.NewBatch(d.db)
	for _, s := range spends {
		batch.Put(serialKey(s.Serial), s.TxId[:])
	}
	d.log.Debugf("writing %d coin spends", len(spends))
	return batch.Commit(true)
}

// ReadCoinSpend - the transaction that spent a serial
func (d *DB) ReadCoinSpend(serial []byte) (chainhash.Hash, bool, error) {
	txId := chainhash.Hash{}
	value, found, err := d.db.Get(serialKey(serial))
	if nil != err || !found {
		return txId, false, err
	}
	if chainhash.HashSize != len(value) {
		return txId, false, fmt.Errorf("coin spend length: %d: %w", len(value), fault.ErrMalformedValue)
	}
	copy(txId[:], value)
	return txId, true, nil
}

// EraseCoinSpend - forget a spent serial
func (d *DB) EraseCoinSpend(serial []byte) error {
	return d.db.Delete(serialKey(serial))
}

// serials are stored under their double SHA-256
func serialKey(serial []byte) []byte {
	return storage.HashKey(storage.TagSerialSpend, chainhash.DoubleHashH(serial))
}

func checkpointKey(c Checkpoint) []byte {
	return storage.NewKey(storage.TagAccChecksum, storage.Uint32Bytes(c.Checksum), storage.Uint32Bytes(uint32(c.Denomination)))
}

func checkpointFromPayload(payload []byte) (Checkpoint, error) {
	checksum, err := storage.Uint32FromPayload(payload, 0)
	if nil != err {
		return Checkpoint{}, err
	}
	denomination, err := storage.Uint32FromPayload(payload, storage.Uint32Size)
	if nil != err {
		return Checkpoint{}, err
	}
	return Checkpoint{checksum, Denomination(denomination)}, nil
}

func packHeight(height int32) []byte {
	buffer := make([]byte, 4)
	binary.LittleEndian.PutUint32(buffer, uint32(height))
	return buffer
}

func unpackHeight(buffer []byte) (int32, error) {
	if 4 != len(buffer) {
		return 0, fmt.Errorf("height length: %d: %w", len(buffer), fault.ErrMalformedValue)
	}
	return int32(binary.LittleEndian.Uint32(buffer)), nil
}
