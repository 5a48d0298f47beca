/*
 * Licensed to the Apache Software Foundation (ASF) under one or more
 * contributor license agreements.  See the NOTICE file distributed with
 * this work for additional information regarding copyright ownership.
 * The ASF licenses this file to You under the Apache License, Version 2.0
 * (the "License"); you may not use this file except in compliance with
 * the License.  You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package theta

import (
	"errors"
	"fmt"
	"slices"

	"github.com/distinctcount/thetasketch/internal"
)

// Union accumulates the union of any number of sketches fed to it one at a
// time via Update, maintaining its own theta independent of each input's.
type Union struct {
	policy    MatchPolicy
	hashtable *Hashtable
	theta     uint64
}

type unionOptions struct {
	theta     uint64
	seed      uint64
	p         float32
	lgCurSize uint8
	lgK       uint8
	rf        GrowthFactor
}

type UnionOptionFunc func(*unionOptions)

// WithUnionLgK sets log2(k), the nominal entry count the union settles to.
func WithUnionLgK(lgK uint8) UnionOptionFunc {
	return func(opts *unionOptions) {
		opts.lgK = lgK
	}
}

// WithUnionGrowthFactor overrides how aggressively the internal table
// grows before it starts discarding entries (default 8x per step).
func WithUnionGrowthFactor(rf GrowthFactor) UnionOptionFunc {
	return func(opts *unionOptions) {
		opts.rf = rf
	}
}

// WithUnionSketchP sets the starting sampling probability (as an initial
// theta). Left at the default of 1, every entry is retained until the
// nominal size is reached, at which point theta starts shrinking on its own.
func WithUnionSketchP(p float32) UnionOptionFunc {
	return func(opts *unionOptions) {
		opts.p = p
	}
}

// WithUnionSeed overrides the seed every sketch fed to this union must
// share; unions built with different seeds can't be mixed.
func WithUnionSeed(seed uint64) UnionOptionFunc {
	return func(opts *unionOptions) {
		opts.seed = seed
	}
}

// NewUnion builds an empty Union ready to accept sketches via Update.
func NewUnion(opts ...UnionOptionFunc) (*Union, error) {
	options := &unionOptions{
		lgK:  DefaultLgK,
		rf:   DefaultGrowthFactor,
		p:    1.0,
		seed: DefaultSeed,
	}
	for _, opt := range opts {
		opt(options)
	}

	if options.lgK < MinLgK {
		return nil, fmt.Errorf("lg_k must not be less than %d: %d", MinLgK, options.lgK)
	}
	if options.lgK > MaxLgK {
		return nil, fmt.Errorf("lg_k must not be greater than %d: %d", MaxLgK, options.lgK)
	}
	if options.p <= 0 || options.p > 1 {
		return nil, errors.New("sampling probability must be between 0 and 1")
	}

	options.lgCurSize = initialLgSizeSubMultiple(options.lgK+1, MinLgK, uint8(options.rf))
	options.theta = initialThetaFromP(options.p)

	table := NewHashtable(
		options.lgCurSize, options.lgK, options.rf, options.p, options.theta, options.seed, true,
	)

	return &Union{
		hashtable: table,
		policy:    &passthroughPolicy{},
		theta:     table.theta,
	}, nil
}

// Update folds another sketch's retained hashes into the running union.
func (u *Union) Update(sketch Estimator) error {
	if sketch.IsEmpty() {
		return nil
	}

	seedHash, err := internal.ComputeSeedHash(int64(u.hashtable.seed))
	if err != nil {
		return err
	}
	sketchSeedHash, err := sketch.SeedHash()
	if err != nil {
		return err
	}
	if uint16(seedHash) != sketchSeedHash {
		return errors.New("seed hash mismatch")
	}

	u.hashtable.isEmpty = false
	u.theta = min(u.theta, sketch.Theta64())

	for entry := range sketch.All() {
		if entry >= u.theta || entry >= u.hashtable.theta {
			if sketch.IsOrdered() {
				break
			}
			continue
		}

		index, err := u.hashtable.Find(entry)
		if err != nil {
			if err == ErrKeyNotFound {
				u.hashtable.Insert(index, entry)
				continue
			}
			return err
		}
		u.policy.Apply(&u.hashtable.entries[index], entry)
	}

	u.theta = min(u.theta, u.hashtable.theta)
	return nil
}

// Result snapshots the union's running state as a CompactSketch, trimming
// down to the nominal size via quickselect if more hashes were retained.
func (u *Union) Result(ordered bool) (*CompactSketch, error) {
	seedHash, err := internal.ComputeSeedHash(int64(u.hashtable.seed))
	if err != nil {
		return nil, err
	}

	if u.hashtable.isEmpty {
		return newCompactSketchFromEntries(true, true, uint16(seedHash), u.theta, nil), nil
	}

	theta := min(u.theta, u.hashtable.theta)
	entries := u.retainedBelow(theta)

	nominalCount := uint32(1 << u.hashtable.lgNomSize)
	if uint32(len(entries)) > nominalCount {
		internal.QuickSelect(entries, 0, len(entries)-1, int(nominalCount))
		theta = entries[nominalCount]
		entries = entries[:nominalCount]
	}

	if ordered {
		slices.Sort(entries)
	}

	return newCompactSketchFromEntries(u.hashtable.isEmpty, ordered, uint16(seedHash), theta, entries), nil
}

// retainedBelow collects the table's non-empty slots, optionally filtered
// to those still under threshold; skipping the filter when threshold is
// already the table's own theta avoids a redundant comparison per entry.
func (u *Union) retainedBelow(threshold uint64) []uint64 {
	var entries []uint64
	filter := threshold < u.hashtable.theta
	for _, entry := range u.hashtable.entries {
		if entry == 0 {
			continue
		}
		if filter && entry >= threshold {
			continue
		}
		entries = append(entries, entry)
	}
	return entries
}

// OrderedResult is Result(true).
func (u *Union) OrderedResult() (*CompactSketch, error) {
	return u.Result(true)
}

// Reset returns the union to its initial, empty state.
func (u *Union) Reset() {
	u.hashtable.Reset()
	u.theta = u.hashtable.theta
}

// MatchPolicy returns the merge policy this union was built with.
func (u *Union) MatchPolicy() MatchPolicy {
	return u.policy
}
