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
	"io"

	"github.com/distinctcount/thetasketch/internal"
)

// Decoder reads a serialized compact sketch, checking its embedded seed
// hash against the seed the decoder was built with.
type Decoder struct {
	seed uint64
}

// NewDecoder builds a Decoder that will reject any sketch whose seed hash
// doesn't match seed.
func NewDecoder(seed uint64) Decoder {
	return Decoder{seed: seed}
}

// Decode reads every remaining byte of r and decodes it as one sketch.
func (dec Decoder) Decode(r io.Reader) (*CompactSketch, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Decode(data, dec.seed)
}

// Decode parses a serialized compact sketch out of data, accepting serial
// versions 1 through 4. Versions 1-3 store each retained hash as a raw
// little-endian uint64; version 4 stores them as fixed-width deltas,
// bit-packed in blocks of 8 with a final partial block handled one value
// at a time.
func Decode(data []byte, seed uint64) (*CompactSketch, error) {
	parsed, err := decodeCompactSketch(data, seed)
	if err != nil {
		return nil, err
	}

	if parsed.entryBits == 64 {
		return newCompactSketchFromEntries(
			parsed.isEmpty,
			parsed.isOrdered,
			parsed.seedHash,
			parsed.theta,
			decodeRawEntries(parsed),
		), nil
	}

	entries, err := decodeDeltaEncodedEntries(parsed)
	if err != nil {
		return nil, err
	}
	return newCompactSketchFromEntries(
		parsed.isEmpty,
		parsed.isOrdered,
		parsed.seedHash,
		parsed.theta,
		entries,
	), nil
}

func decodeRawEntries(data compactSketchData) []uint64 {
	entries := make([]uint64, data.numEntries)
	for i := uint32(0); i < data.numEntries; i++ {
		offset := data.entriesStartIdx + int(i)*8
		entries[i] = binary.LittleEndian.Uint64(data.bytes[offset:])
	}
	return entries
}

func decodeDeltaEncodedEntries(data compactSketchData) ([]uint64, error) {
	entries := make([]uint64, data.numEntries)
	ptr := data.bytes[data.entriesStartIdx:]

	i := uint32(0)
	for i+7 < data.numEntries {
		if err := unpackBitsBlock8(entries[i:i+8], ptr, data.entryBits); err != nil {
			return nil, err
		}
		ptr = ptr[data.entryBits:]
		i += 8
	}

	ptrIdx := 0
	bitOffset := uint8(0)
	for i < data.numEntries {
		entries[i], ptrIdx, bitOffset = unpackBits(data.entryBits, ptr, ptrIdx, bitOffset)
		i++
	}

	var previous uint64
	for i := uint32(0); i < data.numEntries; i++ {
		entries[i] += previous
		previous = entries[i]
	}
	return entries, nil
}

// compactSketchData is the version-normalized result of parsing a
// preamble: every decodeVersionN function below produces one of these, and
// Decode doesn't need to know which wire version it came from afterward.
type compactSketchData struct {
	theta           uint64
	bytes           []byte
	entriesStartIdx int
	numEntries      uint32
	seedHash        uint16
	entryBits       uint8
	isEmpty         bool
	isOrdered       bool
}

// emptyCompactSketchData builds the compactSketchData shared by every
// "this sketch represents the empty set" case across versions 1-3: no
// entries, trivially ordered, stored as full 64-bit width since there's
// nothing to pack.
func emptyCompactSketchData(seedHash uint16, theta uint64, raw []byte) compactSketchData {
	return compactSketchData{
		isEmpty:    true,
		isOrdered:  true,
		seedHash:   seedHash,
		numEntries: 0,
		theta:      theta,
		entryBits:  64,
		bytes:      raw,
	}
}

func decodeCompactSketch(bytes []byte, seed uint64) (compactSketchData, error) {
	if err := validateMemorySize(bytes, 8); err != nil {
		return compactSketchData{}, err
	}

	if bytes[compactSketchTypeByte] != byte(CompactSketchType) {
		return compactSketchData{}, fmt.Errorf("invalid sketch type: expected %d, got %d", CompactSketchType, bytes[compactSketchTypeByte])
	}

	switch serialVersion := bytes[compactSketchSerialVersionByte]; serialVersion {
	case 4:
		return decodeVersion4(bytes, seed)
	case 3:
		return decodeVersion3(bytes, seed)
	case 2:
		return decodeVersion2(bytes, seed)
	case 1:
		return decodeVersion1(bytes, seed)
	default:
		return compactSketchData{}, fmt.Errorf("unsupported serial version: %d", serialVersion)
	}
}

// decodeVersion4 parses the delta-compressed wire form. A v4 sketch is
// always ordered and always has at least one entry (the single-entry exact
// case is represented as v3 instead), so unlike the older versions there's
// no empty/single-entry special case here.
func decodeVersion4(bytes []byte, seed uint64) (compactSketchData, error) {
	seedHash := binary.LittleEndian.Uint16(bytes[compactSketchSeedHashU16*2:])
	expectedSeedHash, err := internal.ComputeSeedHash(int64(seed))
	if err != nil {
		return compactSketchData{}, err
	}
	if err := VerifySeedHash(seedHash, uint16(expectedSeedHash)); err != nil {
		return compactSketchData{}, err
	}

	preambleLongs := bytes[compactSketchPreLongsByte]
	hasTheta := preambleLongs > 1
	theta := ThetaLongMax

	if hasTheta {
		if err := validateMemorySize(bytes, 16); err != nil {
			return compactSketchData{}, err
		}
		theta = binary.LittleEndian.Uint64(bytes[compactSketchV4ThetaU64*8:])
	}

	numEntriesBytes := bytes[compactSketchV4NumEntriesBytesByte]
	dataOffsetBytes := compactSketchV4PackedDataExactByte
	if hasTheta {
		dataOffsetBytes = compactSketchV4PackedDataEstByte
	}

	if err := validateMemorySize(bytes, dataOffsetBytes+int(numEntriesBytes)); err != nil {
		return compactSketchData{}, err
	}

	// numEntries is itself variable-width, stored little-endian across
	// numEntriesBytes bytes so tiny sketches don't pay for a full uint32.
	var numEntries uint32
	for i := uint8(0); i < numEntriesBytes; i++ {
		numEntries |= uint32(bytes[dataOffsetBytes+int(i)]) << (i << 3)
	}
	dataOffsetBytes += int(numEntriesBytes)

	entryBits := bytes[compactSketchV4EntryBitsByte]
	expectedBits := uint64(entryBits) * uint64(numEntries)
	expectedSize := dataOffsetBytes + int(wholeBytesToHoldBits(expectedBits))

	if err := validateMemorySize(bytes, expectedSize); err != nil {
		return compactSketchData{}, err
	}

	return compactSketchData{
		isEmpty:         false,
		isOrdered:       true,
		seedHash:        seedHash,
		numEntries:      numEntries,
		theta:           theta,
		entriesStartIdx: dataOffsetBytes,
		entryBits:       entryBits,
		bytes:           bytes,
	}, nil
}

// decodeVersion3 parses the current uncompressed wire form: preamble length
// (1, 2, or 3 longs) tells us whether the sketch is empty, a single exact
// entry, or a general estimation-mode sketch with its own theta.
func decodeVersion3(bytes []byte, seed uint64) (compactSketchData, error) {
	theta := ThetaLongMax
	seedHash := binary.LittleEndian.Uint16(bytes[compactSketchSeedHashU16*2:])

	if bytes[compactSketchFlagsByte]&(1<<serializationFlagIsEmpty) != 0 {
		return emptyCompactSketchData(seedHash, theta, bytes), nil
	}

	expectedSeedHash, err := internal.ComputeSeedHash(int64(seed))
	if err != nil {
		return compactSketchData{}, err
	}
	if err := VerifySeedHash(seedHash, uint16(expectedSeedHash)); err != nil {
		return compactSketchData{}, err
	}

	preambleLongs := bytes[compactSketchPreLongsByte]
	hasTheta := preambleLongs > 2
	if hasTheta {
		if err := validateMemorySize(bytes, (compactSketchThetaU64+1)*8); err != nil {
			return compactSketchData{}, err
		}
		theta = binary.LittleEndian.Uint64(bytes[compactSketchThetaU64*8:])
	}

	if preambleLongs == 1 {
		if err := validateMemorySize(bytes, 16); err != nil {
			return compactSketchData{}, err
		}
		return compactSketchData{
			isEmpty:         false,
			isOrdered:       true,
			seedHash:        seedHash,
			numEntries:      1,
			theta:           theta,
			entriesStartIdx: compactSketchSingleEntryU64 * 8,
			entryBits:       64,
			bytes:           bytes,
		}, nil
	}

	numEntries := binary.LittleEndian.Uint32(bytes[compactSketchNumEntriesU32*4:])
	entriesStartU64 := compactSketchEntriesExactU64
	if hasTheta {
		entriesStartU64 = compactSketchEntriesEstimationU64
	}

	expectedSize := (entriesStartU64 + int(numEntries)) * 8
	if err := validateMemorySize(bytes, expectedSize); err != nil {
		return compactSketchData{}, err
	}

	isOrdered := bytes[compactSketchFlagsByte]&(1<<serializationFlagIsOrdered) != 0

	return compactSketchData{
		isEmpty:         false,
		isOrdered:       isOrdered,
		seedHash:        seedHash,
		numEntries:      numEntries,
		theta:           theta,
		entriesStartIdx: entriesStartU64 * 8,
		entryBits:       64,
		bytes:           bytes,
	}, nil
}

// decodeVersion2 parses the legacy v2 wire form, kept for read compatibility
// with sketches serialized before v3 became the default.
func decodeVersion2(bytes []byte, seed uint64) (compactSketchData, error) {
	preambleSize := bytes[compactSketchPreLongsByte]
	seedHash := binary.LittleEndian.Uint16(bytes[compactSketchSeedHashU16*2:])

	expectedSeedHash, err := internal.ComputeSeedHash(int64(seed))
	if err != nil {
		return compactSketchData{}, err
	}
	if err := VerifySeedHash(seedHash, uint16(expectedSeedHash)); err != nil {
		return compactSketchData{}, err
	}

	switch preambleSize {
	case 1:
		return emptyCompactSketchData(seedHash, ThetaLongMax, bytes), nil
	case 2:
		numEntries := binary.LittleEndian.Uint32(bytes[compactSketchNumEntriesU32*4:])
		if numEntries == 0 {
			return emptyCompactSketchData(seedHash, ThetaLongMax, bytes), nil
		}

		expectedSize := (int(preambleSize) + int(numEntries)) << 3
		if err := validateMemorySize(bytes, expectedSize); err != nil {
			return compactSketchData{}, err
		}

		return compactSketchData{
			isEmpty:         false,
			isOrdered:       true,
			seedHash:        seedHash,
			numEntries:      numEntries,
			theta:           ThetaLongMax,
			entriesStartIdx: compactSketchEntriesExactU64 * 8,
			entryBits:       64,
			bytes:           bytes,
		}, nil
	case 3:
		numEntries := binary.LittleEndian.Uint32(bytes[compactSketchNumEntriesU32*4:])
		theta := binary.LittleEndian.Uint64(bytes[compactSketchThetaU64*8:])

		if numEntries == 0 && theta == ThetaLongMax {
			return emptyCompactSketchData(seedHash, theta, bytes), nil
		}

		expectedSize := (compactSketchEntriesEstimationU64 + int(numEntries)) * 8
		if err := validateMemorySize(bytes, expectedSize); err != nil {
			return compactSketchData{}, err
		}

		return compactSketchData{
			isEmpty:         false,
			isOrdered:       true,
			seedHash:        seedHash,
			numEntries:      numEntries,
			theta:           theta,
			entriesStartIdx: compactSketchEntriesEstimationU64 * 8,
			entryBits:       64,
			bytes:           bytes,
		}, nil
	default:
		return compactSketchData{}, fmt.Errorf("invalid preamble size: %d (expected 1, 2, or 3)", preambleSize)
	}
}

// decodeVersion1 parses the oldest supported wire form. v1 never carried an
// isEmpty flag bit, so emptiness is inferred the same way v2's preambleSize
// 3 case infers it: zero entries at full theta.
func decodeVersion1(bytes []byte, seed uint64) (compactSketchData, error) {
	seedHash, err := internal.ComputeSeedHash(int64(seed))
	if err != nil {
		return compactSketchData{}, err
	}

	numEntries := binary.LittleEndian.Uint32(bytes[compactSketchNumEntriesU32*4:])
	theta := binary.LittleEndian.Uint64(bytes[compactSketchThetaU64*8:])

	if numEntries == 0 && theta == ThetaLongMax {
		return emptyCompactSketchData(uint16(seedHash), theta, bytes), nil
	}

	expectedSize := (compactSketchEntriesEstimationU64 + int(numEntries)) * 8
	if err := validateMemorySize(bytes, expectedSize); err != nil {
		return compactSketchData{}, err
	}

	return compactSketchData{
		isEmpty:         false,
		isOrdered:       true,
		seedHash:        uint16(seedHash),
		numEntries:      numEntries,
		theta:           theta,
		entriesStartIdx: compactSketchEntriesEstimationU64 * 8,
		entryBits:       64,
		bytes:           bytes,
	}, nil
}

func validateMemorySize(bytes []byte, expectedBytes int) error {
	if actualBytes := len(bytes); actualBytes < expectedBytes {
		return fmt.Errorf("at least %d bytes expected, actual %d", expectedBytes, actualBytes)
	}
	return nil
}
