// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/davecgh/go-spew/spew"

	"github.com/bitmark-inc/chainstate/blockindex"
	"github.com/bitmark-inc/chainstate/coins"
	"github.com/bitmark-inc/chainstate/fault"
	"github.com/bitmark-inc/chainstate/storage"
)

// colours
const (
	keyColour1 = "\033[1;36m"
	keyColour2 = "\033[1;31m"
	valColour1 = "\033[1;33m"
	valColour2 = "\033[1;34m"
	endColour  = "\033[0m"
)

var spewConfig = spew.ConfigState{
	Indent:                  "  ",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

// dump raw records of one family
func (d *dispatch) dump(tagName string, hexPrefix string) error {
	pool, err := poolFromName(tagName)
	if nil != err {
		return err
	}

	prefix, err := hex.DecodeString(hexPrefix)
	if nil != err {
		return fmt.Errorf("convert prefix: %w", err)
	}

	if d.verbose {
		fmt.Printf("read tag: %c (%s) from database: %q\n", pool.Tag(), pool.Name(), pool.Database())
	}

	db := d.configuration.Database
	store, err := storage.Open(db.Backend, db.Directory, pool.Database(), storage.ReadOnly)
	if nil != err {
		return err
	}
	defer store.Close()

	cursor := storage.NewFetchCursor(store, pool)
	if len(prefix) > 0 {
		cursor.Seek(prefix)
	}

	data, err := cursor.Fetch(d.count)
	if nil != err {
		return err
	}

	printElements(os.Stdout, pool.Tag(), data, d.colour, d.ascii, d.verbose)
	return nil
}

// the tag may be its single character or the family name
func poolFromName(name string) (*storage.PoolHandle, error) {
	if 1 == len(name) {
		if p, ok := storage.PoolForTag(storage.Tag(name[0])); ok {
			return p, nil
		}
	}
	for _, p := range storage.Pools() {
		if name == p.Name() {
			return p, nil
		}
	}
	return nil, fmt.Errorf("no pool corresponding to: %q", name)
}

func printElements(w io.Writer, tag storage.Tag, data []storage.Element, colour bool, ascii bool, verbose bool) {
	ck1, ck2, cv1, cv2, ce := "", "", "", "", ""
	if colour {
		ck1 = keyColour1
		ck2 = keyColour2
		cv1 = valColour1
		cv2 = valColour2
		ce = endColour
	}

	for i, e := range data {
		fmt.Fprintf(w, "%d: %sKey: %s%x%s\n", i, ck1, ck2, e.Key, ce)
		if ascii {
			prefix := fmt.Sprintf("%d: %sVal: %s", i, cv1, cv2)
			hexDump(w, prefix, ce, e.Value)
		} else {
			fmt.Fprintf(w, "%d: %sVal: %s%x%s\n", i, cv1, cv2, e.Value, ce)
		}

		if verbose {
			item, err := decodeValue(tag, e.Value)
			if nil != err {
				fmt.Fprintf(w, "%d: decode error: %s\n", i, err)
			} else if nil != item {
				spewConfig.Fdump(w, item)
			}
		}
	}
}

// decode a value according to its family
//
// nil for families with no structured form
func decodeValue(tag storage.Tag, value []byte) (interface{}, error) {
	switch tag {
	case storage.TagCoin:
		return coins.UnpackCoin(value)

	case storage.TagBlockIndex:
		return blockindex.UnpackDiskBlockIndex(value)

	case storage.TagBlockFile:
		return blockindex.UnpackFileInfo(value)

	case storage.TagTxIndex:
		return blockindex.UnpackTxPosition(value)

	case storage.TagBestBlock, storage.TagSerialSpend:
		if chainhash.HashSize != len(value) {
			return nil, fmt.Errorf("hash length: %d: %w", len(value), fault.ErrMalformedValue)
		}
		h, err := chainhash.NewHash(value)
		if nil != err {
			return nil, err
		}
		return h.String(), nil

	case storage.TagHeadBlocks:
		heads, err := coins.UnpackHeadBlocks(value)
		if nil != err {
			return nil, err
		}
		hashes := make([]string, 0, len(heads))
		for _, h := range heads {
			hashes = append(hashes, h.String())
		}
		return hashes, nil

	case storage.TagLastBlockFile, storage.TagInt, storage.TagAccChecksum:
		if 4 != len(value) {
			return nil, fmt.Errorf("integer length: %d: %w", len(value), fault.ErrMalformedValue)
		}
		return int32(binary.LittleEndian.Uint32(value)), nil

	case storage.TagFlag, storage.TagReindex:
		return string(value), nil
	}
	return nil, nil
}

func printDecoded(item interface{}) {
	spewConfig.Dump(item)
}

// dump hex data
func hexDump(w io.Writer, prefix string, suffix string, data []byte) {
	address := 0
	const bytesPerLine = 32
	for i := 0; i < len(data); i += bytesPerLine {
		fmt.Fprintf(w, "%s%04x  ", prefix, address)
		address += bytesPerLine
		for j := 0; j < bytesPerLine; j += 1 {
			if bytesPerLine/2 == j {
				fmt.Fprintf(w, " ")
			}
			if i+j < len(data) {
				fmt.Fprintf(w, "%02x ", data[i+j])
			} else {
				fmt.Fprintf(w, "   ")
			}
		}
		fmt.Fprintf(w, " |")
	ascii_loop:
		for j := 0; j < bytesPerLine; j += 1 {
			if i+j >= len(data) {
				break ascii_loop
			}
			c := data[i+j]
			if c < 32 || c >= 127 {
				c = '.'
			}
			fmt.Fprintf(w, "%c", c)
		}
		fmt.Fprintf(w, "|%s\n", suffix)
	}
}
