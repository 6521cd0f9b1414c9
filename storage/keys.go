// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package storage

import (
	"encoding/binary"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/bitmark-inc/chainstate/fault"
)

// Tag - the single byte that selects a record family
type Tag byte

// record family tags
//
// these are the on-disk values and must never change
const (
	TagCoin          Tag = 'C'
	TagLegacyCoins   Tag = 'c'
	TagBlockFile     Tag = 'f'
	TagTxIndex       Tag = 't'
	TagBlockIndex    Tag = 'b'
	TagBestBlock     Tag = 'B'
	TagHeadBlocks    Tag = 'H'
	TagFlag          Tag = 'F'
	TagReindex       Tag = 'R'
	TagLastBlockFile Tag = 'l'
	TagInt           Tag = 'I'
	TagAccChecksum   Tag = 'A'
	TagSerialSpend   Tag = 's'
)

// sizes of fixed payload components
const (
	HashSize     = chainhash.HashSize
	Uint32Size   = 4
	OutpointSize = HashSize + Uint32Size
)

// Key - a decoded record key
type Key struct {
	Tag     Tag
	Payload []byte
}

// Bytes - encoded form: tag ++ payload
func (k Key) Bytes() []byte {
	buffer := make([]byte, 1, 1+len(k.Payload))
	buffer[0] = byte(k.Tag)
	return append(buffer, k.Payload...)
}

// String - printable form for logs and the dump tool
func (k Key) String() string {
	return fmt.Sprintf("%c:%x", k.Tag, k.Payload)
}

// DecodeKey - split a raw key into tag and payload
//
// the payload is copied so the result outlives any iterator buffer
func DecodeKey(buffer []byte) (Key, error) {
	if len(buffer) < 1 {
		return Key{}, fault.ErrMalformedKey
	}
	tag := Tag(buffer[0])
	pool, ok := poolByTag[tag]
	if !ok {
		return Key{}, fmt.Errorf("unknown tag: 0x%02x: %w", buffer[0], fault.ErrMalformedKey)
	}
	payload := buffer[1:]
	if !pool.validPayload(payload) {
		return Key{}, fmt.Errorf("tag: %c  payload length: %d: %w", tag, len(payload), fault.ErrMalformedKey)
	}
	return Key{
		Tag:     tag,
		Payload: append([]byte{}, payload...),
	}, nil
}

// NewKey - tag followed by the concatenation of the parts
//
// each part must itself be order preserving (fixed width big endian
// integers, raw hashes) for the family to sort by its components
func NewKey(tag Tag, parts ...[]byte) []byte {
	n := 1
	for _, p := range parts {
		n += len(p)
	}
	buffer := make([]byte, 1, n)
	buffer[0] = byte(tag)
	for _, p := range parts {
		buffer = append(buffer, p...)
	}
	return buffer
}

// SingletonKey - a family with exactly one record
func SingletonKey(tag Tag) []byte {
	return []byte{byte(tag)}
}

// HashKey - tag ++ 32 byte hash
func HashKey(tag Tag, hash chainhash.Hash) []byte {
	return NewKey(tag, hash[:])
}

// Uint32Key - tag ++ big endian uint32
func Uint32Key(tag Tag, n uint32) []byte {
	return NewKey(tag, Uint32Bytes(n))
}

// NameKey - tag ++ name
func NameKey(tag Tag, name string) []byte {
	return NewKey(tag, []byte(name))
}

// OutpointKey - tag ++ txid ++ big endian output index
func OutpointKey(tag Tag, txId chainhash.Hash, index uint32) []byte {
	return NewKey(tag, txId[:], Uint32Bytes(index))
}

// Uint32Bytes - big endian bytes of n
func Uint32Bytes(n uint32) []byte {
	buffer := make([]byte, Uint32Size)
	binary.BigEndian.PutUint32(buffer, n)
	return buffer
}

// HashFromPayload - the hash stored at offset in a payload
func HashFromPayload(payload []byte, offset int) (chainhash.Hash, error) {
	hash := chainhash.Hash{}
	if offset < 0 || len(payload) < offset+HashSize {
		return hash, fault.ErrMalformedKey
	}
	copy(hash[:], payload[offset:offset+HashSize])
	return hash, nil
}

// Uint32FromPayload - the big endian integer stored at offset in a payload
func Uint32FromPayload(payload []byte, offset int) (uint32, error) {
	if offset < 0 || len(payload) < offset+Uint32Size {
		return 0, fault.ErrMalformedKey
	}
	return binary.BigEndian.Uint32(payload[offset:]), nil
}
