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
	"bytes"
	"fmt"
	"iter"
	"math/bits"
	"slices"
	"strings"

	"github.com/distinctcount/thetasketch/internal"
	"github.com/distinctcount/thetasketch/internal/binomialbounds"
	"golang.org/x/exp/constraints"
)

// UncompressedSerialVersion is the preamble serial version for the plain,
// one-hash-per-uint64 wire form (v3).
const UncompressedSerialVersion = 3

// CompressedSerialVersion is the preamble serial version for the
// delta+bit-packed wire form (v4).
const CompressedSerialVersion = 4

// CompactSketchType is the family id written into the preamble of a
// serialized compact sketch. Alpha, QuickSelect, Union, Intersection and
// AnotB sketches each have their own id in internal.FamilyEnum, but only
// compact sketches are ever placed on the wire.
var CompactSketchType = internal.FamilyEnum.Compact.Id

// Byte/word offsets into a serialized compact sketch. Units vary by field:
// some are byte offsets, some are uint16/uint32/uint64-unit offsets — see
// the per-constant comment.
const (
	compactSketchPreLongsByte          = 0
	compactSketchSerialVersionByte     = 1
	compactSketchTypeByte              = 2
	compactSketchFlagsByte             = 5
	compactSketchSeedHashU16           = 3 // uint16 units
	compactSketchSingleEntryU64        = 1 // uint64 units (v3)
	compactSketchNumEntriesU32         = 2 // uint32 units (v1-3)
	compactSketchEntriesExactU64       = 2 // uint64 units (v1-3)
	compactSketchEntriesEstimationU64  = 3 // uint64 units (v1-3)
	compactSketchThetaU64              = 2 // uint64 units (v1-3)
	compactSketchV4EntryBitsByte       = 3
	compactSketchV4NumEntriesBytesByte = 4
	compactSketchV4ThetaU64            = 1 // uint64 units
	compactSketchV4PackedDataExactByte = 8
	compactSketchV4PackedDataEstByte   = 16
)

// Flag bit positions in the preamble's flags byte.
const (
	serializationFlagIsBigEndian uint8 = iota
	serializationFlagIsReadOnly
	serializationFlagIsEmpty
	serializationFlagIsCompact
	serializationFlagIsOrdered
)

// CompactSketch is the frozen, serializable form of a Theta sketch: a
// snapshot of retained hashes plus theta and seed-hash metadata, with none
// of the update-sketch machinery needed to keep absorbing new items.
type CompactSketch struct {
	entries   []uint64
	theta     uint64
	seedHash  uint16
	isEmpty   bool
	isOrdered bool
}

// NewCompactSketch freezes any Estimator into a CompactSketch, optionally
// sorting the retained hashes ascending if the source didn't already keep
// them that way.
func NewCompactSketch(source Estimator, ordered bool) *CompactSketch {
	isEmpty := source.IsEmpty()
	sourceOrdered := source.IsOrdered()
	seedHash, _ := source.SeedHash()
	theta := source.Theta64()

	var entries []uint64
	if !isEmpty {
		for entry := range source.All() {
			entries = append(entries, entry)
		}
		if ordered && !sourceOrdered {
			slices.Sort(entries)
		}
	}

	return &CompactSketch{
		isEmpty:   isEmpty,
		isOrdered: sourceOrdered || ordered,
		seedHash:  seedHash,
		theta:     theta,
		entries:   entries,
	}
}

// newCompactSketchFromEntries builds a CompactSketch directly from already-
// computed state, used by the set operators which produce their result
// hashes without going through an Estimator. A single retained entry is
// trivially ordered regardless of what the caller passed.
func newCompactSketchFromEntries(isEmpty, isOrdered bool, seedHash uint16, theta uint64, entries []uint64) *CompactSketch {
	if len(entries) <= 1 {
		isOrdered = true
	}
	return &CompactSketch{
		isEmpty:   isEmpty,
		isOrdered: isOrdered,
		seedHash:  seedHash,
		theta:     theta,
		entries:   entries,
	}
}

func (s *CompactSketch) IsEmpty() bool {
	return s.isEmpty
}

func (s *CompactSketch) IsOrdered() bool {
	return s.isOrdered
}

func (s *CompactSketch) Theta64() uint64 {
	return s.theta
}

func (s *CompactSketch) NumRetained() uint32 {
	return uint32(len(s.entries))
}

func (s *CompactSketch) SeedHash() (uint16, error) {
	return s.seedHash, nil
}

func (s *CompactSketch) Estimate() float64 {
	return float64(s.NumRetained()) / s.Theta()
}

func (s *CompactSketch) LowerBound(numStdDevs uint8) (float64, error) {
	if !s.IsEstimationMode() {
		return float64(len(s.entries)), nil
	}
	return binomialbounds.LowerBound(uint64(s.NumRetained()), s.Theta(), uint(numStdDevs))
}

func (s *CompactSketch) UpperBound(numStdDevs uint8) (float64, error) {
	if !s.IsEstimationMode() {
		return float64(len(s.entries)), nil
	}
	return binomialbounds.UpperBound(uint64(s.NumRetained()), s.Theta(), uint(numStdDevs))
}

func (s *CompactSketch) IsEstimationMode() bool {
	return s.Theta64() < ThetaLongMax && !s.isEmpty
}

func (s *CompactSketch) Theta() float64 {
	return float64(s.Theta64()) / float64(ThetaLongMax)
}

// String renders the same fixed-width summary block every Estimator
// implementation in this package uses, so callers diffing sketch dumps in a
// log see a consistent layout regardless of which concrete type produced it.
func (s *CompactSketch) String(shouldPrintItems bool) string {
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
	fmt.Fprintf(&result, "### End sketch summary\n")

	if shouldPrintItems {
		fmt.Fprintf(&result, "### Retained entries\n")
		for entry := range s.All() {
			fmt.Fprintf(&result, "%d\n", entry)
		}
		fmt.Fprintf(&result, "### End retained entries\n")
	}

	return result.String()
}

// All yields the retained hashes in whatever order they're stored: ascending
// if IsOrdered, insertion order otherwise.
func (s *CompactSketch) All() iter.Seq[uint64] {
	return func(yield func(uint64) bool) {
		for _, entry := range s.entries {
			if !yield(entry) {
				return
			}
		}
	}
}

// MarshalBinary implements encoding.BinaryMarshaler, producing the
// uncompressed (v3) wire form. Use NewEncoder directly to opt into v4
// delta compression.
func (s *CompactSketch) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	if err := NewEncoder(&buf, false).Encode(s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *CompactSketch) preambleLongs(compressed bool) uint8 {
	if compressed {
		if s.IsEstimationMode() {
			return 2
		}
		return 1
	}
	if s.IsEstimationMode() {
		return 3
	}
	if s.isEmpty || len(s.entries) == 1 {
		return 1
	}
	return 2
}

// MaxSerializedSizeBytes bounds the serialized size of any sketch built
// with the given nominal entry count lgK.
func (s *CompactSketch) MaxSerializedSizeBytes(lgK uint8) int {
	capacity := computeCapacity(lgK+1, lgK)
	return 8 * (3 + int(capacity))
}

// SerializedSizeBytes reports how many bytes serializing this sketch right
// now would take. Computing the compressed size requires a full pass over
// the retained hashes to find the delta bit width, and MarshalBinary/Encode
// will walk them again to actually write the bytes.
func (s *CompactSketch) SerializedSizeBytes(compressed bool) int {
	if compressed && s.isSuitableForCompression() {
		entryBits := s.computeEntryBits()
		numEntriesBytes := s.numEntriesBytes()
		return s.compressedSerializedSizeBytes(entryBits, numEntriesBytes)
	}
	return int(s.preambleLongs(false))*8 + len(s.entries)*8
}

func (s *CompactSketch) isSuitableForCompression() bool {
	if !s.isOrdered ||
		len(s.entries) == 0 ||
		(len(s.entries) == 1 && !s.IsEstimationMode()) {
		return false
	}
	return true
}

// computeEntryBits finds the narrowest fixed bit width that can hold every
// delta between consecutive (ascending) retained hashes, by OR-ing the
// deltas together and counting from the highest set bit.
func (s *CompactSketch) computeEntryBits() uint8 {
	var previous, orAccumulator uint64
	for _, entry := range s.entries {
		delta := entry - previous
		orAccumulator |= delta
		previous = entry
	}
	return uint8(64 - bits.LeadingZeros64(orAccumulator))
}

func (s *CompactSketch) numEntriesBytes() uint8 {
	if len(s.entries) == 0 {
		return 1
	}
	leadingZeros := bits.LeadingZeros32(uint32(len(s.entries)))
	return uint8(wholeBytesToHoldBits(32 - leadingZeros))
}

func (s *CompactSketch) compressedSerializedSizeBytes(entryBits, numEntriesBytes uint8) int {
	compressedBits := int(entryBits) * len(s.entries)
	return int(s.preambleLongs(true))*8 + int(numEntriesBytes) + wholeBytesToHoldBits(compressedBits)
}

func wholeBytesToHoldBits[T constraints.Integer](bits T) T {
	var remainder T = 0
	if (bits & 7) > 0 {
		remainder = 1
	}
	return (bits >> 3) + remainder
}
