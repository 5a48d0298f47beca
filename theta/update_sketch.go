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
	"iter"
	"math"
	"strings"

	"github.com/distinctcount/thetasketch/internal"
	"github.com/distinctcount/thetasketch/internal/binomialbounds"
)

var (
	ErrUpdateEmptyString = errors.New("cannot update empty string")
	ErrDuplicateKey      = errors.New("duplicate key")
)

// QuickSelectUpdateSketch builds a Theta sketch incrementally: every Update*
// call hashes and screens one item against theta, inserting it into the
// backing Hashtable if it isn't a duplicate and hasn't already been
// screened out.
type QuickSelectUpdateSketch struct {
	table *Hashtable
}

type updateSketchOptions struct {
	theta     uint64
	seed      uint64
	p         float32
	lgCurSize uint8
	lgK       uint8
	rf        GrowthFactor
}

type UpdateSketchOptionFunc func(*updateSketchOptions)

// WithUpdateSketchLgK sets log2(k), the nominal entry count the sketch
// settles to once it leaves exact mode.
func WithUpdateSketchLgK(lgK uint8) UpdateSketchOptionFunc {
	return func(opts *updateSketchOptions) {
		opts.lgK = lgK
	}
}

// WithUpdateSketchGrowthFactor overrides how aggressively the internal
// table grows before it starts discarding entries (default 8x per step).
func WithUpdateSketchGrowthFactor(rf GrowthFactor) UpdateSketchOptionFunc {
	return func(opts *updateSketchOptions) {
		opts.rf = rf
	}
}

// WithUpdateSketchP sets the starting sampling probability (as an initial
// theta). Left at the default of 1, every item is retained until the
// nominal size is reached, at which point theta starts shrinking on its own.
func WithUpdateSketchP(p float32) UpdateSketchOptionFunc {
	return func(opts *updateSketchOptions) {
		opts.p = p
	}
}

// WithUpdateSketchSeed overrides the seed used to hash incoming items.
// Sketches built with different seeds are not compatible with each other.
func WithUpdateSketchSeed(seed uint64) UpdateSketchOptionFunc {
	return func(opts *updateSketchOptions) {
		opts.seed = seed
	}
}

// NewQuickSelectUpdateSketch builds an empty update sketch ready to accept
// items via its Update* methods.
func NewQuickSelectUpdateSketch(opts ...UpdateSketchOptionFunc) (*QuickSelectUpdateSketch, error) {
	options := &updateSketchOptions{
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

	return &QuickSelectUpdateSketch{
		table: NewHashtable(
			options.lgCurSize, options.lgK, options.rf, options.p, options.theta, options.seed, true,
		),
	}, nil
}

// IsEmpty reports whether this sketch represents the empty set. This is
// distinct from having zero retained entries: a sketch that has sampled
// items out via p but kept none can still be non-empty.
func (s *QuickSelectUpdateSketch) IsEmpty() bool {
	return s.table.isEmpty
}

// IsOrdered reports whether retained entries happen to already be sorted.
// An update sketch only guarantees that with at most one entry.
func (s *QuickSelectUpdateSketch) IsOrdered() bool {
	return s.table.numEntries <= 1
}

func (s *QuickSelectUpdateSketch) Theta64() uint64 {
	if s.IsEmpty() {
		return ThetaLongMax
	}
	return s.table.theta
}

func (s *QuickSelectUpdateSketch) NumRetained() uint32 {
	return s.table.numEntries
}

func (s *QuickSelectUpdateSketch) SeedHash() (uint16, error) {
	seedHash, err := internal.ComputeSeedHash(int64(s.table.seed))
	if err != nil {
		return 0, err
	}
	return uint16(seedHash), nil
}

func (s *QuickSelectUpdateSketch) Estimate() float64 {
	return float64(s.NumRetained()) / s.Theta()
}

// LowerBound returns the lower confidence bound on the estimate at
// numStdDevs standard deviations (1, 2 or 3, corresponding to roughly the
// 67%, 95% and 99% confidence levels).
func (s *QuickSelectUpdateSketch) LowerBound(numStdDevs uint8) (float64, error) {
	if !s.IsEstimationMode() {
		return float64(s.NumRetained()), nil
	}
	return binomialbounds.LowerBound(uint64(s.NumRetained()), s.Theta(), uint(numStdDevs))
}

// UpperBound is the upper-bound counterpart to LowerBound.
func (s *QuickSelectUpdateSketch) UpperBound(numStdDevs uint8) (float64, error) {
	if !s.IsEstimationMode() {
		return float64(s.NumRetained()), nil
	}
	return binomialbounds.UpperBound(uint64(s.NumRetained()), s.Theta(), uint(numStdDevs))
}

func (s *QuickSelectUpdateSketch) IsEstimationMode() bool {
	return s.Theta64() < ThetaLongMax && !s.IsEmpty()
}

func (s *QuickSelectUpdateSketch) Theta() float64 {
	return float64(s.Theta64()) / float64(ThetaLongMax)
}

// String renders the same summary block CompactSketch.String uses, plus
// the extra fields (lg sizes, growth factor) only an update sketch has.
func (s *QuickSelectUpdateSketch) String(shouldPrintItems bool) string {
	seedHash, _ := s.SeedHash()
	lb, _ := s.LowerBound(2)
	ub, _ := s.UpperBound(2)

	var result strings.Builder
	fmt.Fprintf(&result, "### Theta sketch summary:\n")
	fmt.Fprintf(&result, "   num retained entries : %d\n", s.NumRetained())
	fmt.Fprintf(&result, "   seed hash            : %d\n", seedHash)
	fmt.Fprintf(&result, "   empty?               : %t\n", s.IsEmpty())
	fmt.Fprintf(&result, "   ordered?             : %t\n", s.IsOrdered())
	fmt.Fprintf(&result, "   estimation mode?     : %t\n", s.IsEstimationMode())
	fmt.Fprintf(&result, "   theta (fraction)     : %f\n", s.Theta())
	fmt.Fprintf(&result, "   theta (raw 64-bit)   : %d\n", s.Theta64())
	fmt.Fprintf(&result, "   estimate             : %f\n", s.Estimate())
	fmt.Fprintf(&result, "   lower bound 95%% conf : %f\n", lb)
	fmt.Fprintf(&result, "   upper bound 95%% conf : %f\n", ub)
	fmt.Fprintf(&result, "   lg nominal size      : %d\n", s.LgK())
	fmt.Fprintf(&result, "   lg current size      : %d\n", s.table.lgCurSize)
	fmt.Fprintf(&result, "   resize factor        : %d\n", 1<<s.GrowthFactor())
	fmt.Fprintf(&result, "### End sketch summary\n")

	if shouldPrintItems {
		fmt.Fprintf(&result, "### Retained entries\n")
		for hash := range s.All() {
			fmt.Fprintf(&result, "%d\n", hash)
		}
		fmt.Fprintf(&result, "### End retained entries\n")
	}

	return result.String()
}

func (s *QuickSelectUpdateSketch) LgK() uint8 {
	return s.table.lgNomSize
}

func (s *QuickSelectUpdateSketch) GrowthFactor() GrowthFactor {
	return s.table.rf
}

// insertHash assumes hash has already been screened against theta; it
// probes the table and either inserts a fresh hash or reports the
// duplicate, factoring out the pattern every Update* variant needs.
func (s *QuickSelectUpdateSketch) insertHash(hash uint64) error {
	index, err := s.table.Find(hash)
	if err != nil {
		if err == ErrKeyNotFound {
			s.table.Insert(index, hash)
			return nil
		}
		return err
	}
	return ErrDuplicateKey
}

// UpdateUint64 adds an unsigned 64-bit integer to the sketch.
func (s *QuickSelectUpdateSketch) UpdateUint64(value uint64) error {
	return s.UpdateInt64(int64(value))
}

// UpdateInt64 adds a signed 64-bit integer to the sketch.
func (s *QuickSelectUpdateSketch) UpdateInt64(value int64) error {
	hash, err := s.table.HashInt64AndScreen(value)
	if err != nil {
		return err
	}
	return s.insertHash(hash)
}

// UpdateUint32 adds an unsigned 32-bit integer to the sketch.
func (s *QuickSelectUpdateSketch) UpdateUint32(value uint32) error {
	return s.UpdateInt64(int64(value))
}

// UpdateInt32 adds a signed 32-bit integer to the sketch.
func (s *QuickSelectUpdateSketch) UpdateInt32(value int32) error {
	hash, err := s.table.HashInt32AndScreen(value)
	if err != nil {
		return err
	}
	return s.insertHash(hash)
}

// UpdateUint16 adds an unsigned 16-bit integer to the sketch.
func (s *QuickSelectUpdateSketch) UpdateUint16(value uint16) error {
	return s.UpdateInt32(int32(value))
}

// UpdateInt16 adds a signed 16-bit integer to the sketch.
func (s *QuickSelectUpdateSketch) UpdateInt16(value int16) error {
	return s.UpdateInt32(int32(value))
}

// UpdateUint8 adds an unsigned 8-bit integer to the sketch.
func (s *QuickSelectUpdateSketch) UpdateUint8(value uint8) error {
	return s.UpdateInt32(int32(value))
}

// UpdateInt8 adds a signed 8-bit integer to the sketch.
func (s *QuickSelectUpdateSketch) UpdateInt8(value int8) error {
	return s.UpdateInt32(int32(value))
}

// UpdateFloat64 adds a double-precision float to the sketch, first
// canonicalizing it so equal values hash identically regardless of
// platform-specific NaN/zero bit patterns.
func (s *QuickSelectUpdateSketch) UpdateFloat64(value float64) error {
	return s.UpdateInt64(canonicalDouble(value))
}

// canonicalDouble normalizes -0.0 to 0.0 and any NaN payload to a single
// canonical bit pattern before the value is hashed.
func canonicalDouble(value float64) int64 {
	if value == 0.0 {
		value = 0.0
	} else if math.IsNaN(value) {
		return 0x7ff8000000000000
	}
	return int64(math.Float64bits(value))
}

// UpdateFloat32 adds a single-precision float to the sketch.
func (s *QuickSelectUpdateSketch) UpdateFloat32(value float32) error {
	return s.UpdateFloat64(float64(value))
}

// UpdateString adds a string to the sketch. Empty strings are rejected
// rather than silently hashed, since they usually indicate a caller bug.
func (s *QuickSelectUpdateSketch) UpdateString(value string) error {
	if value == "" {
		return ErrUpdateEmptyString
	}

	hash, err := s.table.HashStringAndScreen(value)
	if err != nil {
		return err
	}
	return s.insertHash(hash)
}

// UpdateBytes adds an arbitrary byte slice to the sketch.
func (s *QuickSelectUpdateSketch) UpdateBytes(data []byte) error {
	hash, err := s.table.HashBytesAndScreen(data)
	if err != nil {
		return err
	}
	return s.insertHash(hash)
}

// Trim discards any entries retained in excess of the nominal size.
func (s *QuickSelectUpdateSketch) Trim() {
	s.table.Trim()
}

// Reset returns the sketch to its initial, empty state.
func (s *QuickSelectUpdateSketch) Reset() {
	s.table.Reset()
}

func (s *QuickSelectUpdateSketch) All() iter.Seq[uint64] {
	return func(yield func(uint64) bool) {
		for _, entry := range s.table.entries {
			if entry != 0 {
				if !yield(entry) {
					return
				}
			}
		}
	}
}

// Compact freezes the sketch into a CompactSketch snapshot.
func (s *QuickSelectUpdateSketch) Compact(ordered bool) *CompactSketch {
	return NewCompactSketch(s, ordered)
}

// CompactOrdered is Compact(true).
func (s *QuickSelectUpdateSketch) CompactOrdered() *CompactSketch {
	return s.Compact(true)
}
