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
	"slices"

	"github.com/distinctcount/thetasketch/internal"
)

type intersectionOptions struct {
	policy MatchPolicy
	seed   uint64
}

type IntersectionOptionFunc func(*intersectionOptions)

// WithIntersectionPolicy overrides how a colliding pair of entries is
// merged into the one the intersection retains. The default leaves the
// first-seen entry untouched.
func WithIntersectionPolicy(policy MatchPolicy) IntersectionOptionFunc {
	return func(i *intersectionOptions) {
		i.policy = policy
	}
}

// WithIntersectionSeed overrides the seed every input sketch to this
// intersection must have been built with.
func WithIntersectionSeed(seed uint64) IntersectionOptionFunc {
	return func(i *intersectionOptions) {
		i.seed = seed
	}
}

// Intersection accumulates the pairwise intersection of a sequence of
// sketches fed to it one at a time via Update: after n updates it holds
// the set of hashes common to all n inputs (with theta narrowed to the
// tightest of them), rather than requiring every sketch up front.
type Intersection struct {
	hashtable *Hashtable
	policy    MatchPolicy
	isValid   bool
}

// NewIntersection builds an empty Intersection with no result yet: at
// least one Update call is required before Result can be called.
func NewIntersection(opts ...IntersectionOptionFunc) *Intersection {
	options := &intersectionOptions{
		policy: &passthroughPolicy{},
		seed:   DefaultSeed,
	}
	for _, opt := range opts {
		opt(options)
	}

	return &Intersection{
		hashtable: emptyIntersectionTable(ThetaLongMax, options.seed, false),
		policy:    options.policy,
		isValid:   false,
	}
}

func emptyIntersectionTable(theta, seed uint64, isEmpty bool) *Hashtable {
	return NewHashtable(0, 0, GrowthX1, 1.0, theta, seed, isEmpty)
}

// Update folds another sketch into the running intersection. Once the
// running set has collapsed to empty, further updates are no-ops: an
// empty intersection with any other set is still empty.
func (i *Intersection) Update(sketch Estimator) error {
	if i.hashtable.isEmpty {
		return nil
	}

	seedHash, err := internal.ComputeSeedHash(int64(i.hashtable.seed))
	if err != nil {
		return err
	}
	sketchSeedHash, err := sketch.SeedHash()
	if err != nil {
		return err
	}
	if !sketch.IsEmpty() && sketchSeedHash != uint16(seedHash) {
		return errors.New("seed hash mismatch")
	}

	i.hashtable.isEmpty = i.hashtable.isEmpty || sketch.IsEmpty()
	if i.hashtable.isEmpty {
		i.hashtable.theta = ThetaLongMax
	} else {
		i.hashtable.theta = min(i.hashtable.theta, sketch.Theta64())
	}

	if i.isValid && i.hashtable.numEntries == 0 {
		return nil
	}

	if sketch.NumRetained() == 0 {
		i.isValid = true
		i.hashtable = emptyIntersectionTable(i.hashtable.theta, i.hashtable.seed, i.hashtable.isEmpty)
		return nil
	}

	if !i.isValid {
		return i.seedFirstUpdate(sketch)
	}
	return i.intersectWithRunning(sketch)
}

// seedFirstUpdate handles the first sketch an Intersection ever sees: with
// nothing to intersect against yet, the running set is simply a copy of
// the incoming sketch's retained hashes.
func (i *Intersection) seedFirstUpdate(sketch Estimator) error {
	i.isValid = true

	lgSize := internal.LgSizeFromCount(sketch.NumRetained(), rebuildThreshold)
	i.hashtable = NewHashtable(lgSize, lgSize-1, GrowthX1, 1.0, i.hashtable.theta, i.hashtable.seed, i.hashtable.isEmpty)

	for entry := range sketch.All() {
		idx, err := i.hashtable.Find(entry)
		if err == nil {
			return errors.New("duplicate key, possibly corrupted input sketch")
		}
		i.hashtable.Insert(idx, entry)
	}

	if i.hashtable.numEntries != sketch.NumRetained() {
		return errors.New("num entries mismatch, possibly corrupted input sketch")
	}
	return nil
}

// intersectWithRunning narrows the running set down to its overlap with
// sketch: every retained hash of sketch below the running theta is probed
// against the running table, and survivors (merged via the policy on a
// match) become the new running set.
func (i *Intersection) intersectWithRunning(sketch Estimator) error {
	var (
		maxMatches     = min(i.hashtable.numEntries, sketch.NumRetained())
		matchesEntries = make([]uint64, 0, maxMatches)
		matchCount     = 0
		count          = 0
	)
	for entry := range sketch.All() {
		if entry < i.hashtable.theta {
			key, err := i.hashtable.Find(entry)
			if err == nil {
				if uint32(matchCount) == maxMatches {
					return errors.New("max matches exceeded, possibly corrupted input sketch")
				}

				i.policy.Apply(&i.hashtable.entries[key], entry)

				matchesEntries = append(matchesEntries, i.hashtable.entries[key])
				matchCount++
			}
		} else if sketch.IsOrdered() {
			break
		}

		count++
	}

	if count > int(sketch.NumRetained()) {
		return errors.New("more keys than expected, possibly corrupted input sketch")
	}
	if !sketch.IsOrdered() && count < int(sketch.NumRetained()) {
		return errors.New("fewer keys than expected, possibly corrupted input sketch")
	}

	if matchCount == 0 {
		i.hashtable = emptyIntersectionTable(i.hashtable.theta, i.hashtable.seed, i.hashtable.isEmpty)
		if i.hashtable.theta == ThetaLongMax {
			i.hashtable.isEmpty = true
		}
		return nil
	}

	lgSize := internal.LgSizeFromCount(uint32(matchCount), rebuildThreshold)
	i.hashtable = NewHashtable(lgSize, lgSize-1, GrowthX1, 1.0, i.hashtable.theta, i.hashtable.seed, i.hashtable.isEmpty)
	for j := 0; j < matchCount; j++ {
		key, err := i.hashtable.Find(matchesEntries[j])
		if err != nil && err == ErrKeyNotFoundAndNoEmptySlots {
			return err
		}
		i.hashtable.Insert(key, matchesEntries[j])
	}
	return nil
}

// Result snapshots the intersection's current running set into a
// CompactSketch. Calling it before any Update is an error: there's no
// meaningful result for an intersection of zero sketches.
func (i *Intersection) Result(ordered bool) (*CompactSketch, error) {
	if !i.isValid {
		return nil, errors.New("calling get_result() before calling update() is undefined")
	}

	entries := make([]uint64, 0, i.hashtable.numEntries)
	if i.hashtable.numEntries > 0 {
		for _, hash := range i.hashtable.entries {
			if hash != 0 {
				entries = append(entries, hash)
			}
		}
		if ordered {
			slices.Sort(entries)
		}
	}

	seedHash, err := internal.ComputeSeedHash(int64(i.hashtable.seed))
	if err != nil {
		return nil, err
	}

	return newCompactSketchFromEntries(
		i.hashtable.isEmpty,
		ordered,
		uint16(seedHash),
		i.hashtable.theta,
		entries,
	), nil
}

// OrderedResult is Result(true).
func (i *Intersection) OrderedResult() (*CompactSketch, error) {
	return i.Result(true)
}

// HasResult reports whether at least one Update has been applied.
func (i *Intersection) HasResult() bool {
	return i.isValid
}

// MatchPolicy returns the merge policy this intersection was built with.
func (i *Intersection) MatchPolicy() MatchPolicy {
	return i.policy
}
