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
	"fmt"
	"slices"

	"github.com/distinctcount/thetasketch/internal"
)

// ANotB returns the hashes present in a but not in b: the asymmetric
// set-difference operator of the Theta sketch family. Unlike Union and
// Intersection it has no stateful accumulator type — a and b are each
// applied exactly once, so a single function call is the whole API.
func ANotB(a, b Estimator, seed uint64, ordered bool) (*CompactSketch, error) {
	seedHash, err := internal.ComputeSeedHash(int64(seed))
	if err != nil {
		return nil, err
	}

	if a.IsEmpty() {
		return NewCompactSketch(a, ordered), nil
	}
	if a.NumRetained() > 0 && b.IsEmpty() {
		return NewCompactSketch(a, ordered), nil
	}

	if err := verifySeedHashMatches(a, "A", uint16(seedHash)); err != nil {
		return nil, err
	}
	if err := verifySeedHashMatches(b, "B", uint16(seedHash)); err != nil {
		return nil, err
	}

	theta := min(a.Theta64(), b.Theta64())

	var entries []uint64
	switch {
	case b.NumRetained() == 0:
		for entry := range a.All() {
			if entry < theta {
				entries = append(entries, entry)
			}
		}
	case a.IsOrdered() && b.IsOrdered():
		entries = orderedSetDifference(a, b, theta)
	default:
		entries, err = hashedSetDifference(a, b, theta)
		if err != nil {
			return nil, err
		}
	}

	isEmpty := a.IsEmpty()
	if len(entries) == 0 && theta == ThetaLongMax {
		isEmpty = true
	}

	if ordered && !a.IsOrdered() {
		slices.Sort(entries)
	}

	return newCompactSketchFromEntries(
		isEmpty,
		a.IsOrdered() || ordered,
		uint16(seedHash),
		theta,
		entries,
	), nil
}

func verifySeedHashMatches(s Estimator, label string, expected uint16) error {
	got, err := s.SeedHash()
	if err != nil {
		return err
	}
	if got != expected {
		return fmt.Errorf("sketch %s seed hash mismatch: expected %d, got %d", label, expected, got)
	}
	return nil
}

// orderedSetDifference handles the case where both operands already retain
// their hashes in ascending order: b is staged into a lookup set once, then
// a is walked and anything also present in b (or at/above theta) is dropped.
func orderedSetDifference(a, b Estimator, theta uint64) []uint64 {
	inB := make(map[uint64]struct{})
	for entry := range b.All() {
		inB[entry] = struct{}{}
	}

	var entries []uint64
	for entry := range a.All() {
		if _, found := inB[entry]; found {
			continue
		}
		if entry < theta {
			entries = append(entries, entry)
		}
	}
	return entries
}

// hashedSetDifference handles the general case by staging b into an
// open-addressed table, then probing it once per hash retained by a. This
// only needs a plain membership table, not a's full update-sketch machinery,
// so it builds a minimal one directly rather than reusing UpdateSketch.
func hashedSetDifference(a, b Estimator, theta uint64) ([]uint64, error) {
	lgSize := internal.LgSizeFromCount(b.NumRetained(), rebuildThreshold)
	table := NewHashtable(lgSize, lgSize, GrowthX1, 1, 0, 0, false)

	for entry := range b.All() {
		if entry >= theta {
			if b.IsOrdered() {
				break
			}
			continue
		}
		idx, err := table.Find(entry)
		if err != nil && err == ErrKeyNotFoundAndNoEmptySlots {
			return nil, err
		}
		table.Insert(idx, entry)
	}

	var entries []uint64
	for entry := range a.All() {
		if entry >= theta {
			if a.IsOrdered() {
				break
			}
			continue
		}
		if _, err := table.Find(entry); err != nil && err == ErrKeyNotFound {
			entries = append(entries, entry)
		}
	}

	return entries, nil
}
