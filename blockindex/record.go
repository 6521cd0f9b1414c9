// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockindex

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"

	"github.com/bitmark-inc/chainstate/fault"
	"github.com/bitmark-inc/chainstate/util"
)

// block status bits that control which positions are stored
const (
	StatusHaveData = 8  // full block available in a block file
	StatusHaveUndo = 16 // undo data available in a rev file
)

// longest stake modifier accepted when decoding
const maxStakeModifierSize = 64

// DiskBlockIndex - the persisted form of one block index entry
type DiskBlockIndex struct {
	ClientVersion uint32 `json:"clientVersion"`
	Height        int32  `json:"height"`
	Status        uint32 `json:"status"`
	TxCount       uint32 `json:"txCount"`
	File          int32  `json:"file"`
	DataPos       uint32 `json:"dataPos"`
	UndoPos       uint32 `json:"undoPos"`

	// proof-of-stake
	Flags         uint32 `json:"flags"`
	StakeModifier []byte `json:"stakeModifier"`

	AccumulatorCheckpoint chainhash.Hash `json:"accumulatorCheckpoint"`

	// shielded pool
	SaplingValue     int64          `json:"saplingValue"`
	FinalSaplingRoot chainhash.Hash `json:"finalSaplingRoot"`

	Header wire.BlockHeader `json:"header"`
}

// BlockHash - the identity of the entry, the double SHA-256 of its header
func (d *DiskBlockIndex) BlockHash() chainhash.Hash {
	return d.Header.BlockHash()
}

// HaveData - a block file position is stored
func (d *DiskBlockIndex) HaveData() bool {
	return 0 != d.Status&StatusHaveData
}

// HaveUndo - an undo file position is stored
func (d *DiskBlockIndex) HaveUndo() bool {
	return 0 != d.Status&StatusHaveUndo
}

// Pack - encode as a database value
func (d *DiskBlockIndex) Pack() ([]byte, error) {
	if d.Height < 0 || d.File < 0 {
		return nil, fmt.Errorf("height: %d  file: %d: %w", d.Height, d.File, fault.ErrMalformedValue)
	}

	buffer := util.ToVarint64(uint64(d.ClientVersion))
	buffer = util.AppendVarint64(buffer, uint64(d.Height))
	buffer = util.AppendVarint64(buffer, uint64(d.Status))
	buffer = util.AppendVarint64(buffer, uint64(d.TxCount))
	if d.HaveData() || d.HaveUndo() {
		buffer = util.AppendVarint64(buffer, uint64(d.File))
	}
	if d.HaveData() {
		buffer = util.AppendVarint64(buffer, uint64(d.DataPos))
	}
	if d.HaveUndo() {
		buffer = util.AppendVarint64(buffer, uint64(d.UndoPos))
	}
	buffer = util.AppendVarint64(buffer, uint64(d.Flags))

	w := bytes.NewBuffer(buffer)
	if err := wire.WriteVarBytes(w, 0, d.StakeModifier); nil != err {
		return nil, err
	}
	w.Write(d.AccumulatorCheckpoint[:])
	w.Write(util.ToVarint64(zigzag(d.SaplingValue)))
	w.Write(d.FinalSaplingRoot[:])
	if err := d.Header.Serialize(w); nil != err {
		return nil, err
	}
	return w.Bytes(), nil
}

// UnpackDiskBlockIndex - decode a database value
func UnpackDiskBlockIndex(buffer []byte) (*DiskBlockIndex, error) {
	d := newDecoder(buffer)

	entry := &DiskBlockIndex{
		ClientVersion: d.uint32(),
		Height:        d.int32(),
		Status:        d.uint32(),
		TxCount:       d.uint32(),
	}
	if entry.HaveData() || entry.HaveUndo() {
		entry.File = d.int32()
	}
	if entry.HaveData() {
		entry.DataPos = d.uint32()
	}
	if entry.HaveUndo() {
		entry.UndoPos = d.uint32()
	}
	entry.Flags = d.uint32()
	entry.StakeModifier = d.compactBytes(maxStakeModifierSize)
	entry.AccumulatorCheckpoint = d.hash()
	entry.SaplingValue = d.zigzag()
	entry.FinalSaplingRoot = d.hash()
	entry.Header = d.header()

	if err := d.finish(); nil != err {
		return nil, err
	}
	return entry, nil
}

// FileInfo - statistics of one block file
type FileInfo struct {
	Blocks      uint32 `json:"blocks"`
	Size        uint32 `json:"size"`
	UndoSize    uint32 `json:"undoSize"`
	HeightFirst int32  `json:"heightFirst"`
	HeightLast  int32  `json:"heightLast"`
	TimeFirst   uint64 `json:"timeFirst"`
	TimeLast    uint64 `json:"timeLast"`
}

// Pack - encode as a database value
func (f *FileInfo) Pack() ([]byte, error) {
	if f.HeightFirst < 0 || f.HeightLast < 0 {
		return nil, fmt.Errorf("file heights: %d..%d: %w", f.HeightFirst, f.HeightLast, fault.ErrMalformedValue)
	}
	buffer := util.ToVarint64(uint64(f.Blocks))
	buffer = util.AppendVarint64(buffer, uint64(f.Size))
	buffer = util.AppendVarint64(buffer, uint64(f.UndoSize))
	buffer = util.AppendVarint64(buffer, uint64(f.HeightFirst))
	buffer = util.AppendVarint64(buffer, uint64(f.HeightLast))
	buffer = util.AppendVarint64(buffer, f.TimeFirst)
	return util.AppendVarint64(buffer, f.TimeLast), nil
}

// UnpackFileInfo - decode a database value
func UnpackFileInfo(buffer []byte) (*FileInfo, error) {
	d := newDecoder(buffer)
	info := &FileInfo{
		Blocks:      d.uint32(),
		Size:        d.uint32(),
		UndoSize:    d.uint32(),
		HeightFirst: d.int32(),
		HeightLast:  d.int32(),
		TimeFirst:   d.varint(),
		TimeLast:    d.varint(),
	}
	if err := d.finish(); nil != err {
		return nil, err
	}
	return info, nil
}

// TxPosition - where a transaction is stored
type TxPosition struct {
	File     int32  `json:"file"`
	BlockPos uint32 `json:"blockPos"`
	TxOffset uint32 `json:"txOffset"` // after the block header
}

// Pack - encode as a database value
func (p *TxPosition) Pack() ([]byte, error) {
	if p.File < 0 {
		return nil, fault.ErrInvalidFileNumber
	}
	buffer := util.ToVarint64(uint64(p.File))
	buffer = util.AppendVarint64(buffer, uint64(p.BlockPos))
	return util.AppendVarint64(buffer, uint64(p.TxOffset)), nil
}

// UnpackTxPosition - decode a database value
func UnpackTxPosition(buffer []byte) (*TxPosition, error) {
	d := newDecoder(buffer)
	position := &TxPosition{
		File:     d.int32(),
		BlockPos: d.uint32(),
		TxOffset: d.uint32(),
	}
	if err := d.finish(); nil != err {
		return nil, err
	}
	return position, nil
}
