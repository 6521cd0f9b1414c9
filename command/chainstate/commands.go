// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/chainstate/blockindex"
	"github.com/bitmark-inc/chainstate/checkpoint"
	"github.com/bitmark-inc/chainstate/coins"
	"github.com/bitmark-inc/chainstate/configuration"
	"github.com/bitmark-inc/chainstate/fault"
	"github.com/bitmark-inc/chainstate/storage"
)

// setup command handler
//
// commands that do not access any database or the configuration file
func processSetupCommand(program string, arguments []string) bool {

	command := "help"
	if len(arguments) > 0 {
		command = arguments[0]
	}

	switch command {
	case "version", "v":
		fmt.Printf("%s\n", version)

	case "tags", "t":
		fmt.Printf(" tags:\n")
		for _, p := range storage.Pools() {
			fmt.Printf("       %c → %-14s (%s)\n", p.Tag(), p.Name(), p.Database())
		}

	case "help", "h", "?", "", " ":
		if "" == command || " " == command {
			fmt.Printf("error: missing command\n")
		}
		printUsage(program)

	default:
		return false
	}

	return true
}

func printUsage(program string) {
	fmt.Printf("usage: %s [--help] [--verbose] [--quiet] [--count=N] --config-file=FILE [[command|help] arguments...]\n", program)

	fmt.Printf("supported commands:\n\n")
	fmt.Printf("  help                       (h)      - display this message\n\n")
	fmt.Printf("  version                    (v)      - display version string\n\n")
	fmt.Printf("  tags                       (t)      - list the record family tags\n\n")

	fmt.Printf("  config-test                (cfg)    - just check the configuration file\n")
	fmt.Printf("\n")

	fmt.Printf("  info                       (i)      - best block, head blocks and index summary\n")
	fmt.Printf("\n")

	fmt.Printf("  upgrade                    (u)      - convert per-transaction coin records\n")
	fmt.Printf("                                        to per-output records\n")
	fmt.Printf("\n")

	fmt.Printf("  coins                      (c)      - list the first --count coins\n")
	fmt.Printf("\n")

	fmt.Printf("  load-index                 (li)     - load and check the whole block index\n")
	fmt.Printf("\n")

	fmt.Printf("  checkpoints                (cp)     - list accumulator checkpoints\n")
	fmt.Printf("\n")

	fmt.Printf("  wipe-checkpoints           (wcp)    - remove all accumulator checkpoints\n")
	fmt.Printf("\n")

	fmt.Printf("  dump TAG [HEX-PREFIX]      (d)      - dump --count records of one family\n")
	fmt.Printf("                                        --ascii for a hex dump, --verbose to decode\n")
	fmt.Printf("\n")
}

// state shared by the commands that need the configuration
type dispatch struct {
	program       string
	configuration *configuration.Configuration
	log           *logger.L
	shutdown      <-chan struct{}
	count         int
	verbose       bool
	quiet         bool
	colour        bool
	ascii         bool
}

// run one data command
func (d *dispatch) run(arguments []string) error {

	command := arguments[0]
	arguments = arguments[1:]

	switch command {
	case "config-test", "cfg":
		return d.configTest()

	case "info", "i":
		return d.info()

	case "upgrade", "u":
		return d.upgrade()

	case "coins", "c":
		return d.listCoins()

	case "load-index", "li":
		return d.loadIndex()

	case "checkpoints", "cp":
		return d.checkpoints()

	case "wipe-checkpoints", "wcp":
		return d.wipeCheckpoints()

	case "dump", "d":
		if 0 == len(arguments) {
			return fmt.Errorf("missing tag")
		}
		prefix := ""
		if len(arguments) > 1 {
			prefix = arguments[1]
		}
		return d.dump(arguments[0], prefix)

	default:
		return fmt.Errorf("no such command: %q", command)
	}
}

func (d *dispatch) configTest() error {
	s, err := json.MarshalIndent(d.configuration, "", "  ")
	if nil != err {
		return err
	}
	if !d.quiet {
		fmt.Printf("configuration: %s\n", s)
	}
	return nil
}

func (d *dispatch) openCoins(readOnly bool) (*coins.Store, error) {
	db := d.configuration.Database
	return coins.Open(db.Backend, db.Directory, readOnly, d.configuration.StorageOptions())
}

func (d *dispatch) openIndex() (*blockindex.Store, error) {
	params, err := d.configuration.ChainParams()
	if nil != err {
		return nil, err
	}
	db := d.configuration.Database
	return blockindex.Open(db.Backend, db.Directory, storage.ReadOnly, params)
}

func (d *dispatch) openCheckpoints(readOnly bool) (*checkpoint.DB, error) {
	db := d.configuration.Database
	return checkpoint.Open(db.Backend, db.Directory, readOnly)
}

func (d *dispatch) info() error {
	store, err := d.openCoins(storage.ReadOnly)
	if nil != err {
		return err
	}
	defer store.Close()

	best, err := store.BestBlock()
	if nil != err {
		return err
	}
	heads, err := store.HeadBlocks()
	if nil != err {
		return err
	}
	size, err := store.EstimateSize()
	if nil != err {
		return err
	}

	fmt.Printf("chain:        %s\n", d.configuration.Chain)
	fmt.Printf("best block:   %s\n", best)
	for i, h := range heads {
		fmt.Printf("head[%d]:      %s\n", i, h)
	}
	fmt.Printf("coins size:   %d bytes\n", size)

	index, err := d.openIndex()
	if nil != err {
		return err
	}
	defer index.Close()

	lastFile, found, err := index.ReadLastBlockFile()
	if nil != err {
		return err
	}
	if found {
		fmt.Printf("last file:    %d\n", lastFile)
		info, found, err := index.ReadBlockFileInfo(lastFile)
		if nil != err {
			return err
		}
		if found {
			fmt.Printf("  blocks:     %d\n", info.Blocks)
			fmt.Printf("  heights:    %d..%d\n", info.HeightFirst, info.HeightLast)
		}
	}

	reindexing, err := index.ReadReindexing()
	if nil != err {
		return err
	}
	fmt.Printf("reindexing:   %t\n", reindexing)
	return nil
}

func (d *dispatch) upgrade() error {
	store, err := d.openCoins(storage.ReadWrite)
	if nil != err {
		return err
	}
	defer store.Close()

	if err := store.Upgrade(d.shutdown); nil != err {
		return err
	}
	if !d.quiet {
		fmt.Printf("upgrade complete\n")
	}
	return nil
}

func (d *dispatch) listCoins() error {
	store, err := d.openCoins(storage.ReadOnly)
	if nil != err {
		return err
	}
	defer store.Close()

	cursor, err := store.Cursor()
	if nil != err {
		return err
	}

	fmt.Printf("best block: %s\n", cursor.BestBlock())

	n := 0
	for ; cursor.Valid() && n < d.count; cursor.Next() {
		outpoint, _ := cursor.Key()
		coin, ok := cursor.Value()
		if !ok {
			cursor.Close()
			return fmt.Errorf("outpoint: %s: %w", outpoint, fault.ErrMalformedValue)
		}
		fmt.Printf("%d: %s  value: %d  height: %d  coinbase: %t  coinstake: %t\n",
			n, outpoint, coin.Out.Value, coin.Height, coin.CoinBase, coin.CoinStake)
		if d.verbose {
			printDecoded(coin)
		}
		n += 1
	}
	return cursor.Close()
}

func (d *dispatch) loadIndex() error {
	index, err := d.openIndex()
	if nil != err {
		return err
	}
	defer index.Close()

	idx, err := blockindex.LoadBlockIndex(index, d.shutdown)
	if nil != err {
		return err
	}

	fmt.Printf("entries: %d\n", idx.Len())
	if tip := idx.Tip(); nil != tip {
		fmt.Printf("tip:     %s  height: %d\n", tip.Hash, tip.Height)
		if diff, err := tip.Difficulty(); nil == err {
			fmt.Printf("bits:    %s  pdiff: %g\n", diff, diff.Pdiff())
		}
		if d.verbose {
			printDecoded(tip)
		}
	}
	return nil
}

func (d *dispatch) checkpoints() error {
	db, err := d.openCheckpoints(storage.ReadOnly)
	if nil != err {
		return err
	}
	defer db.Close()

	items, err := checkpoint.NewCache(db).LoadAll(d.shutdown)
	if nil != err {
		return err
	}

	list := make([]checkpoint.Checkpoint, 0, len(items))
	for c := range items {
		list = append(list, c)
	}
	sort.Slice(list, func(i, j int) bool {
		if items[list[i]] != items[list[j]] {
			return items[list[i]] < items[list[j]]
		}
		if list[i].Checksum != list[j].Checksum {
			return list[i].Checksum < list[j].Checksum
		}
		return list[i].Denomination < list[j].Denomination
	})

	for _, c := range list {
		fmt.Printf("height: %8d  checksum: %08x  denomination: %d\n", items[c], c.Checksum, c.Denomination)
	}
	fmt.Printf("total: %d\n", len(list))
	return nil
}

func (d *dispatch) wipeCheckpoints() error {
	db, err := d.openCheckpoints(storage.ReadWrite)
	if nil != err {
		return err
	}
	defer db.Close()

	n, err := db.WipeAccChecksums(d.shutdown)
	if nil != err {
		return err
	}
	d.log.Infof("wiped %d checkpoints", n)
	if !d.quiet {
		fmt.Printf("wiped: %d\n", n)
	}
	return nil
}
