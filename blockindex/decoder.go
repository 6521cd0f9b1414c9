// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockindex

import (
	"bytes"
	"errors"
	"io"
	"math"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"

	"github.com/bitmark-inc/chainstate/fault"
	"github.com/bitmark-inc/chainstate/util"
)

// sequential reader over a record value
//
// the first failure sticks and every later read returns a zero value
type decoder struct {
	buffer []byte
	n      int
	err    error
}

func newDecoder(buffer []byte) *decoder {
	return &decoder{buffer: buffer}
}

func (d *decoder) varint() uint64 {
	if nil != d.err {
		return 0
	}
	if d.n >= len(d.buffer) {
		d.err = fault.ErrTruncatedRecord
		return 0
	}
	value, count := util.FromVarint64(d.buffer[d.n:])
	if 0 == count {
		d.err = fault.ErrTruncatedRecord
		return 0
	}
	d.n += count
	return value
}

func (d *decoder) uint32() uint32 {
	value := d.varint()
	if value > math.MaxUint32 {
		d.err = fault.ErrMalformedValue
		return 0
	}
	return uint32(value)
}

// non-negative signed value
func (d *decoder) int32() int32 {
	value := d.varint()
	if value > math.MaxInt32 {
		d.err = fault.ErrMalformedValue
		return 0
	}
	return int32(value)
}

func (d *decoder) zigzag() int64 {
	value := d.varint()
	return int64(value>>1) ^ -int64(value&1)
}

func (d *decoder) hash() chainhash.Hash {
	hash := chainhash.Hash{}
	if nil != d.err {
		return hash
	}
	if len(d.buffer)-d.n < chainhash.HashSize {
		d.err = fault.ErrTruncatedRecord
		return hash
	}
	copy(hash[:], d.buffer[d.n:])
	d.n += chainhash.HashSize
	return hash
}

// CompactSize length followed by that many bytes
func (d *decoder) compactBytes(maximum uint32) []byte {
	if nil != d.err {
		return nil
	}
	r := bytes.NewReader(d.buffer[d.n:])
	b, err := wire.ReadVarBytes(r, 0, maximum, "bytes")
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		d.err = fault.ErrTruncatedRecord
		return nil
	} else if nil != err {
		d.err = fault.ErrMalformedValue
		return nil
	}
	d.n = len(d.buffer) - r.Len()
	if 0 == len(b) {
		return nil
	}
	return b
}

func (d *decoder) header() wire.BlockHeader {
	header := wire.BlockHeader{}
	if nil != d.err {
		return header
	}
	if len(d.buffer)-d.n < wire.MaxBlockHeaderPayload {
		d.err = fault.ErrTruncatedRecord
		return header
	}
	err := header.Deserialize(bytes.NewReader(d.buffer[d.n : d.n+wire.MaxBlockHeaderPayload]))
	if nil != err {
		d.err = fault.ErrMalformedValue
		return header
	}
	d.n += wire.MaxBlockHeaderPayload
	return header
}

// check the whole value was consumed
func (d *decoder) finish() error {
	if nil == d.err && d.n != len(d.buffer) {
		d.err = fault.ErrMalformedValue
	}
	return d.err
}

func zigzag(n int64) uint64 {
	return uint64(n<<1) ^ uint64(n>>63)
}
