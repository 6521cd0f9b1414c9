// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/assert"

	"github.com/bitmark-inc/chainstate/blockindex"
	"github.com/bitmark-inc/chainstate/coins"
	"github.com/bitmark-inc/chainstate/fault"
	"github.com/bitmark-inc/chainstate/storage"
)

func TestPoolFromName(t *testing.T) {
	p, err := poolFromName("C")
	assert.Nil(t, err, "tag error")
	assert.Equal(t, storage.Pool.Coins, p, "wrong pool for tag")

	p, err = poolFromName("BlockIndex")
	assert.Nil(t, err, "name error")
	assert.Equal(t, storage.Pool.BlockIndex, p, "wrong pool for name")

	_, err = poolFromName("Z")
	assert.NotNil(t, err, "unknown tag accepted")

	_, err = poolFromName("")
	assert.NotNil(t, err, "empty tag accepted")
}

func TestDecodeValue(t *testing.T) {
	coin := &coins.Coin{
		Out:      wire.TxOut{Value: 5000, PkScript: []byte{0x51}},
		Height:   7,
		CoinBase: true,
	}
	item, err := decodeValue(storage.TagCoin, coin.Pack())
	assert.Nil(t, err, "coin error")
	assert.Equal(t, coin, item, "coin")

	info := &blockindex.FileInfo{Blocks: 3, Size: 1000, HeightFirst: 1, HeightLast: 3}
	value, err := info.Pack()
	assert.Nil(t, err, "file info pack error")
	item, err = decodeValue(storage.TagBlockFile, value)
	assert.Nil(t, err, "file info error")
	assert.Equal(t, info, item, "file info")

	hash := chainhash.DoubleHashH([]byte("best"))
	item, err = decodeValue(storage.TagBestBlock, hash[:])
	assert.Nil(t, err, "best block error")
	assert.Equal(t, hash.String(), item, "best block")

	// count ++ [new, old]
	old := chainhash.DoubleHashH([]byte("old"))
	marker := append([]byte{0x02}, hash[:]...)
	marker = append(marker, old[:]...)
	item, err = decodeValue(storage.TagHeadBlocks, marker)
	assert.Nil(t, err, "head blocks error")
	assert.Equal(t, []string{hash.String(), old.String()}, item, "head blocks")

	_, err = decodeValue(storage.TagBestBlock, marker)
	assert.True(t, errors.Is(err, fault.ErrMalformedValue), "long best block: %v", err)

	item, err = decodeValue(storage.TagInt, []byte{0x2a, 0, 0, 0})
	assert.Nil(t, err, "int error")
	assert.Equal(t, int32(42), item, "int")

	item, err = decodeValue(storage.TagFlag, []byte{'1'})
	assert.Nil(t, err, "flag error")
	assert.Equal(t, "1", item, "flag")

	item, err = decodeValue(storage.TagLegacyCoins, []byte{0x01, 0x02})
	assert.Nil(t, err, "legacy error")
	assert.Nil(t, item, "legacy records are not decoded")

	_, err = decodeValue(storage.TagHeadBlocks, []byte{0x01})
	assert.True(t, errors.Is(err, fault.ErrMalformedValue), "short hash list: %v", err)

	_, err = decodeValue(storage.TagAccChecksum, []byte{0x01})
	assert.True(t, errors.Is(err, fault.ErrMalformedValue), "short integer: %v", err)
}

func TestHexDump(t *testing.T) {
	data := []byte("0123456789abcdefghijklmnopqrstuvwxyz\x00")

	w := &bytes.Buffer{}
	hexDump(w, "> ", "", data)

	lines := strings.Split(strings.TrimSuffix(w.String(), "\n"), "\n")
	assert.Equal(t, 2, len(lines), "line count")
	assert.True(t, strings.HasPrefix(lines[0], "> 0000  30 31 "), "first line: %q", lines[0])
	assert.True(t, strings.HasSuffix(lines[0], "|0123456789abcdefghijklmnopqrstuv|"), "first line: %q", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "> 0020  77 78 79 7a 00 "), "second line: %q", lines[1])
	assert.True(t, strings.HasSuffix(lines[1], "|wxyz.|"), "second line: %q", lines[1])
}

func TestPrintElements(t *testing.T) {
	data := []storage.Element{
		{Key: []byte{0x01, 0x02}, Value: []byte{0x2a, 0, 0, 0}},
	}

	w := &bytes.Buffer{}
	printElements(w, storage.TagInt, data, false, false, true)

	s := w.String()
	assert.Contains(t, s, "0: Key: 0102\n", "key line")
	assert.Contains(t, s, "0: Val: 2a000000\n", "value line")
	assert.Contains(t, s, "(int32) 42", "decoded value")
}
