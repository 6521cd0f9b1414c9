// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package coins

import (
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/bitmark-inc/chainstate/fault"
	"github.com/bitmark-inc/chainstate/storage"
)

// minimum time between progress messages
const progressInterval = 10 * time.Second

// Upgrade - rewrite legacy per-transaction records as per-output coins
//
// no legacy records means nothing to do. An interrupted upgrade
// resumes on the next call since converted records are erased in the
// same batch as their replacements are written
func (s *Store) Upgrade(shutdown <-chan struct{}) error {
	s.Lock()
	defer s.Unlock()

	iter := s.db.NewIterator(storage.Pool.LegacyCoins.Start(), storage.Pool.LegacyCoins.Limit())
	defer iter.Release()

	if !iter.Next() {
		return iter.Error()
	}

	s.log.Info("upgrading database")

	limiter := rate.NewLimiter(rate.Every(progressInterval), 1)
	batch := storage.NewBatch(s.db)
	records := 0
	outputs := 0

	for ok := true; ok; ok = iter.Next() {
		if storage.Interrupted(shutdown) {
			return fault.ErrInterrupted
		}

		key, err := storage.DecodeKey(iter.Key())
		if nil != err {
			return err
		}
		txId, err := storage.HashFromPayload(key.Payload, 0)
		if nil != err {
			return err
		}

		legacy, err := unpackLegacyCoins(iter.Value())
		if nil != err {
			s.log.Errorf("cannot parse legacy coins: %s  error: %s", txId, err)
			return fmt.Errorf("legacy coins: %s: %v: %w", txId, err, fault.ErrMalformedValue)
		}

		for i, out := range legacy.outputs {
			if nil == out || IsUnspendable(out.PkScript) {
				continue
			}
			coin := Coin{
				Out:       *out,
				Height:    legacy.height,
				CoinBase:  legacy.coinBase,
				CoinStake: legacy.coinStake,
			}
			batch.Put(storage.OutpointKey(storage.TagCoin, txId, uint32(i)), coin.Pack())
			outputs += 1
		}
		batch.Delete(key.Bytes())
		records += 1

		if batch.SizeEstimate() > s.options.BatchSize {
			if err := batch.Commit(false); nil != err {
				return err
			}
		}

		if limiter.Allow() {
			s.log.Infof("upgrade progress: %d records  %d outputs", records, outputs)
		}
	}
	if err := iter.Error(); nil != err {
		return err
	}

	if err := batch.Commit(s.options.Sync); nil != err {
		return err
	}
	s.log.Infof("upgrade complete: %d records converted to %d outputs", records, outputs)
	return nil
}
