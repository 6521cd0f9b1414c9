// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockindex

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/bitmark-inc/logger"
	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/bitmark-inc/chainstate/chain"
	"github.com/bitmark-inc/chainstate/fault"
	"github.com/bitmark-inc/chainstate/storage"
)

// flag values
const (
	flagTrue  = '1'
	flagFalse = '0'
)

// FileInfoEntry - a block file number and its statistics
type FileInfoEntry struct {
	File int32
	Info *FileInfo
}

// TxIndexEntry - a transaction and its position
type TxIndexEntry struct {
	TxId     chainhash.Hash
	Position *TxPosition
}

// Store - the block index database
type Store struct {
	sync.Mutex

	log    *logger.L
	db     storage.Store
	params *chain.Params
}

// New - build a block index store over an open database
//
// the store takes ownership of db
func New(db storage.Store, params *chain.Params) *Store {
	return &Store{
		log:    logger.New("blockindex"),
		db:     db,
		params: params,
	}
}

// Open - open the index database below directory
func Open(backend string, directory string, readOnly bool, params *chain.Params) (*Store, error) {
	db, err := storage.Open(backend, directory, storage.DatabaseIndex, readOnly)
	if nil != err {
		return nil, err
	}
	return New(db, params), nil
}

// Close - release the database
func (s *Store) Close() error {
	return s.db.Close()
}

// WriteBlockIndex - store one entry under its block hash
func (s *Store) WriteBlockIndex(entry *DiskBlockIndex) error {
	value, err := entry.Pack()
	if nil != err {
		return err
	}
	return s.db.Put(storage.HashKey(storage.TagBlockIndex, entry.BlockHash()), value)
}

// ReadBlockIndex - fetch one entry by block hash
func (s *Store) ReadBlockIndex(hash chainhash.Hash) (*DiskBlockIndex, bool, error) {
	value, found, err := s.db.Get(storage.HashKey(storage.TagBlockIndex, hash))
	if nil != err || !found {
		return nil, false, err
	}
	entry, err := UnpackDiskBlockIndex(value)
	if nil != err {
		return nil, false, fmt.Errorf("block index: %s: %w", hash, err)
	}
	return entry, true, nil
}

// ReadBlockFileInfo - statistics of one block file
func (s *Store) ReadBlockFileInfo(file int32) (*FileInfo, bool, error) {
	key, err := fileKey(file)
	if nil != err {
		return nil, false, err
	}
	value, found, err := s.db.Get(key)
	if nil != err || !found {
		return nil, false, err
	}
	info, err := UnpackFileInfo(value)
	if nil != err {
		return nil, false, fmt.Errorf("block file info: %d: %w", file, err)
	}
	return info, true, nil
}

// WriteBatchSync - write file statistics, the last file number and
// block index entries as one synced batch
func (s *Store) WriteBatchSync(files []FileInfoEntry, lastFile int32, blocks []*DiskBlockIndex) error {
	s.Lock()
	defer s.Unlock()

	batch := storage.NewBatch(s.db)
	for _, f := range files {
		key, err := fileKey(f.File)
		if nil != err {
			return err
		}
		value, err := f.Info.Pack()
		if nil != err {
			return err
		}
		batch.Put(key, value)
	}

	if lastFile < 0 {
		return fault.ErrInvalidFileNumber
	}
	batch.Put(storage.Pool.LastBlockFile.Key(nil), packInt32(lastFile))

	for _, entry := range blocks {
		value, err := entry.Pack()
		if nil != err {
			return err
		}
		batch.Put(storage.HashKey(storage.TagBlockIndex, entry.BlockHash()), value)
	}

	s.log.Debugf("write %d files  %d blocks  last file: %d", len(files), len(blocks), lastFile)
	return batch.Commit(true)
}

// ReadLastBlockFile - the number of the block file being appended to
func (s *Store) ReadLastBlockFile() (int32, bool, error) {
	return s.readInt32(storage.Pool.LastBlockFile.Key(nil))
}

// ReadTxIndex - position of a transaction
func (s *Store) ReadTxIndex(txId chainhash.Hash) (*TxPosition, bool, error) {
	value, found, err := s.db.Get(storage.HashKey(storage.TagTxIndex, txId))
	if nil != err || !found {
		return nil, false, err
	}
	position, err := UnpackTxPosition(value)
	if nil != err {
		return nil, false, fmt.Errorf("tx index: %s: %w", txId, err)
	}
	return position, true, nil
}

// WriteTxIndex - store transaction positions as one batch
func (s *Store) WriteTxIndex(entries []TxIndexEntry) error {
	s.Lock()
	defer s.Unlock()

	batch := storage.NewBatch(s.db)
	for _, e := range entries {
		value, err := e.Position.Pack()
		if nil != err {
			return err
		}
		batch.Put(storage.HashKey(storage.TagTxIndex, e.TxId), value)
	}
	return batch.Commit(false)
}

// WriteReindexing - record presence means a reindex is in progress
func (s *Store) WriteReindexing(reindexing bool) error {
	key := storage.Pool.Reindex.Key(nil)
	if reindexing {
		return s.db.Put(key, []byte{flagTrue})
	}
	return s.db.Delete(key)
}

// ReadReindexing - true if a reindex was in progress
func (s *Store) ReadReindexing() (bool, error) {
	return s.db.Has(storage.Pool.Reindex.Key(nil))
}

// WriteFlag - store a named boolean
func (s *Store) WriteFlag(name string, value bool) error {
	if "" == name {
		return fault.ErrInvalidName
	}
	b := byte(flagFalse)
	if value {
		b = flagTrue
	}
	return s.db.Put(storage.NameKey(storage.TagFlag, name), []byte{b})
}

// ReadFlag - fetch a named boolean, second result is false if never written
func (s *Store) ReadFlag(name string) (bool, bool, error) {
	if "" == name {
		return false, false, fault.ErrInvalidName
	}
	value, found, err := s.db.Get(storage.NameKey(storage.TagFlag, name))
	if nil != err || !found {
		return false, false, err
	}
	if 1 != len(value) {
		return false, false, fmt.Errorf("flag: %s: %w", name, fault.ErrMalformedValue)
	}
	return flagTrue == value[0], true, nil
}

// WriteInt - store a named integer
func (s *Store) WriteInt(name string, value int32) error {
	if "" == name {
		return fault.ErrInvalidName
	}
	return s.db.Put(storage.NameKey(storage.TagInt, name), packInt32(value))
}

// ReadInt - fetch a named integer
func (s *Store) ReadInt(name string) (int32, bool, error) {
	if "" == name {
		return 0, false, fault.ErrInvalidName
	}
	return s.readInt32(storage.NameKey(storage.TagInt, name))
}

func (s *Store) readInt32(key []byte) (int32, bool, error) {
	value, found, err := s.db.Get(key)
	if nil != err || !found {
		return 0, false, err
	}
	if 4 != len(value) {
		return 0, false, fmt.Errorf("integer length: %d: %w", len(value), fault.ErrMalformedValue)
	}
	return int32(binary.LittleEndian.Uint32(value)), true, nil
}

func packInt32(n int32) []byte {
	buffer := make([]byte, 4)
	binary.LittleEndian.PutUint32(buffer, uint32(n))
	return buffer
}

func fileKey(file int32) ([]byte, error) {
	if file < 0 {
		return nil, fault.ErrInvalidFileNumber
	}
	return storage.Uint32Key(storage.TagBlockFile, uint32(file)), nil
}
