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
	"encoding/binary"
	"fmt"
	"iter"
	"strings"

	"github.com/distinctcount/thetasketch/internal/binomialbounds"
)

// WrappedCompactSketch gives read-only access to a serialized compact
// sketch without copying its retained hashes out of the original buffer,
// unlike Decode, which copies them into a new CompactSketch.
type WrappedCompactSketch struct {
	data *compactSketchData
}

// WrapCompactSketch parses bytes as a compact sketch wire form without
// materializing its entries, deferring that work to All/String.
func WrapCompactSketch(bytes []byte, seed uint64) (*WrappedCompactSketch, error) {
	data, err := decodeCompactSketch(bytes, seed)
	if err != nil {
		return nil, err
	}
	return &WrappedCompactSketch{data: &data}, nil
}

func (s *WrappedCompactSketch) IsEmpty() bool {
	return s.data.isEmpty
}

func (s *WrappedCompactSketch) IsOrdered() bool {
	return s.data.isOrdered
}

func (s *WrappedCompactSketch) Theta64() uint64 {
	return s.data.theta
}

func (s *WrappedCompactSketch) NumRetained() uint32 {
	return s.data.numEntries
}

func (s *WrappedCompactSketch) SeedHash() (uint16, error) {
	return s.data.seedHash, nil
}

func (s *WrappedCompactSketch) Theta() float64 {
	return float64(s.Theta64()) / float64(ThetaLongMax)
}

func (s *WrappedCompactSketch) IsEstimationMode() bool {
	return s.Theta64() < ThetaLongMax && !s.data.isEmpty
}

func (s *WrappedCompactSketch) Estimate() float64 {
	return float64(s.NumRetained()) / s.Theta()
}

func (s *WrappedCompactSketch) LowerBound(numStdDevs uint8) (float64, error) {
	if !s.IsEstimationMode() {
		return float64(s.NumRetained()), nil
	}
	return binomialbounds.LowerBound(uint64(s.NumRetained()), s.Theta(), uint(numStdDevs))
}

func (s *WrappedCompactSketch) UpperBound(numStdDevs uint8) (float64, error) {
	if !s.IsEstimationMode() {
		return float64(s.NumRetained()), nil
	}
	return binomialbounds.UpperBound(uint64(s.NumRetained()), s.Theta(), uint(numStdDevs))
}

// All lazily decodes and yields the wrapped buffer's retained hashes,
// either reading them as raw little-endian uint64s (entryBits == 64,
// meaning no delta compression was used) or unpacking delta-encoded
// blocks of 8 followed by a one-at-a-time tail.
func (s *WrappedCompactSketch) All() iter.Seq[uint64] {
	if s.data.entryBits == 64 {
		return s.allRaw
	}
	return s.allDeltaEncoded
}

func (s *WrappedCompactSketch) allRaw(yield func(uint64) bool) {
	for i := uint32(0); i < s.data.numEntries; i++ {
		offset := s.data.entriesStartIdx + int(i)*8
		entry := binary.LittleEndian.Uint64(s.data.bytes[offset : offset+8])
		if !yield(entry) {
			return
		}
	}
}

func (s *WrappedCompactSketch) allDeltaEncoded(yield func(uint64) bool) {
	data := s.data.bytes[s.data.entriesStartIdx:]
	var previous uint64
	var buffer [8]uint64
	var bitOffset uint8

	index := uint32(0)
	byteIdx := 0

	for index+7 < s.data.numEntries {
		if err := unpackBitsBlock8(buffer[:], data[byteIdx:], s.data.entryBits); err != nil {
			panic("unexpected error: " + err.Error())
		}
		byteIdx += int(s.data.entryBits)

		for i := 0; i < 8; i++ {
			buffer[i] += previous
			previous = buffer[i]
			if !yield(buffer[i]) {
				return
			}
		}
		index += 8
	}

	for index < s.data.numEntries {
		var delta uint64
		delta, byteIdx, bitOffset = unpackBits(s.data.entryBits, data, byteIdx, bitOffset)
		value := delta + previous
		previous = value
		if !yield(value) {
			return
		}
		index++
	}
}

func (s *WrappedCompactSketch) String(shouldPrintItems bool) string {
	var sb strings.Builder

	seedHash, _ := s.SeedHash()
	lb, _ := s.LowerBound(2)
	ub, _ := s.UpperBound(2)

	fmt.Fprintf(&sb, "### Theta sketch summary:\n")
	fmt.Fprintf(&sb, "   num retained entries : %d\n", s.NumRetained())
	fmt.Fprintf(&sb, "   seed hash            : %d\n", seedHash)
	fmt.Fprintf(&sb, "   empty?               : %t\n", s.IsEmpty())
	fmt.Fprintf(&sb, "   ordered?             : %t\n", s.IsOrdered())
	fmt.Fprintf(&sb, "   estimation mode?     : %t\n", s.IsEstimationMode())
	fmt.Fprintf(&sb, "   theta (fraction)     : %g\n", s.Theta())
	fmt.Fprintf(&sb, "   theta (raw 64-bit)   : %d\n", s.Theta64())
	fmt.Fprintf(&sb, "   estimate             : %g\n", s.Estimate())
	fmt.Fprintf(&sb, "   lower bound 95%% conf : %g\n", lb)
	fmt.Fprintf(&sb, "   upper bound 95%% conf : %g\n", ub)
	fmt.Fprintf(&sb, "### End sketch summary\n")

	if shouldPrintItems {
		fmt.Fprintf(&sb, "### Retained entries\n")
		for entry := range s.All() {
			fmt.Fprintf(&sb, "%d\n", entry)
		}
		fmt.Fprintf(&sb, "### End retained entries\n")
	}

	return sb.String()
}
