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
	"io"
)

// Encoder writes a CompactSketch to a byte stream, either as raw
// uint64-per-entry (v3) or delta bit-packed (v4) depending on how it was
// constructed.
type Encoder struct {
	w          io.Writer
	compressed bool
}

// NewEncoder builds an Encoder that writes to w. When compressed is true
// and the sketch qualifies (ordered, more than a single exact entry), the
// v4 delta encoding is used; otherwise Encode always falls back to v3.
func NewEncoder(w io.Writer, compressed bool) Encoder {
	return Encoder{w: w, compressed: compressed}
}

// Encode writes sketch to the encoder's writer.
func (enc Encoder) Encode(sketch *CompactSketch) error {
	if enc.compressed {
		return enc.encodeWithCompression(sketch)
	}
	return enc.encodeWithoutCompression(sketch)
}

func (enc Encoder) writeAll(bytes []byte) error {
	n, err := enc.w.Write(bytes)
	if err != nil {
		return err
	}
	if n != len(bytes) {
		return io.ErrShortWrite
	}
	return nil
}

func (enc Encoder) encodeWithCompression(sketch *CompactSketch) error {
	if !sketch.isSuitableForCompression() {
		return enc.encodeWithoutCompression(sketch)
	}

	entryBits := sketch.computeEntryBits()
	numEntriesBytes := sketch.numEntriesBytes()
	size := sketch.compressedSerializedSizeBytes(entryBits, numEntriesBytes)
	bytes := make([]byte, size)

	if err := enc.encodeVersion4(sketch, bytes, entryBits, numEntriesBytes, sketch.preambleLongs(true)); err != nil {
		return err
	}
	return enc.writeAll(bytes)
}

// encodeVersion4 writes the delta bit-packed representation: a short
// preamble, then every retained hash's delta from its predecessor packed
// to a fixed width, in blocks of 8 via packBitsBlock8 with any remainder
// packed one value at a time via packBits.
func (enc Encoder) encodeVersion4(sketch *CompactSketch, bytes []byte, entryBits, numEntriesBytes, preambleLongs uint8) error {
	offset := 0
	bytes[offset] = preambleLongs
	offset++
	bytes[offset] = CompressedSerialVersion
	offset++
	bytes[offset] = byte(CompactSketchType)
	offset++
	bytes[offset] = entryBits
	offset++
	bytes[offset] = numEntriesBytes
	offset++

	flags := byte(0)
	flags |= 1 << serializationFlagIsCompact
	flags |= 1 << serializationFlagIsReadOnly
	flags |= 1 << serializationFlagIsOrdered
	bytes[offset] = flags
	offset++

	bytes[offset] = byte(sketch.seedHash)
	bytes[offset+1] = byte(sketch.seedHash >> 8)
	offset += 2

	if sketch.IsEstimationMode() {
		for i := 0; i < 8; i++ {
			bytes[offset+i] = byte(sketch.theta >> (i * 8))
		}
		offset += 8
	}

	numEntries := uint32(len(sketch.entries))
	for i := uint8(0); i < numEntriesBytes; i++ {
		bytes[offset] = byte(numEntries >> (i << 3))
		offset++
	}

	var previous uint64
	deltas := make([]uint64, 8)

	i := 0
	for i+7 < len(sketch.entries) {
		for j := 0; j < 8; j++ {
			deltas[j] = sketch.entries[i+j] - previous
			previous = sketch.entries[i+j]
		}
		if err := packBitsBlock8(deltas, bytes[offset:], entryBits); err != nil {
			return err
		}
		offset += int(entryBits)
		i += 8
	}

	bytesIdx := 0
	bitOffset := uint8(0)
	for i < len(sketch.entries) {
		delta := sketch.entries[i] - previous
		previous = sketch.entries[i]
		bytesIdx, bitOffset = packBits(delta, entryBits, bytes[offset:], bytesIdx, bitOffset)
		i++
	}

	return nil
}

func (enc Encoder) encodeWithoutCompression(sketch *CompactSketch) error {
	preambleLongs := sketch.preambleLongs(false)
	bytes := make([]byte, sketch.SerializedSizeBytes(false))
	enc.encodeVersion3(sketch, bytes, preambleLongs)
	return enc.writeAll(bytes)
}

// encodeVersion3 writes the uncompressed wire form: a fixed preamble
// followed by each retained hash as a raw little-endian uint64.
func (enc Encoder) encodeVersion3(sketch *CompactSketch, bytes []byte, preambleLongs uint8) {
	var offset int64
	bytes[offset] = preambleLongs
	offset++
	bytes[offset] = UncompressedSerialVersion
	offset++
	bytes[offset] = byte(CompactSketchType)
	offset++

	offset += 2 // unused

	flags := byte(0)
	flags |= 1 << serializationFlagIsCompact
	flags |= 1 << serializationFlagIsReadOnly
	if sketch.IsEmpty() {
		flags |= 1 << serializationFlagIsEmpty
	}
	if sketch.IsOrdered() {
		flags |= 1 << serializationFlagIsOrdered
	}
	bytes[offset] = flags
	offset++

	seedHash, _ := sketch.SeedHash()
	binary.LittleEndian.PutUint16(bytes[offset:offset+2], seedHash)
	offset += 2

	if preambleLongs > 1 {
		binary.LittleEndian.PutUint32(bytes[offset:offset+4], uint32(len(sketch.entries)))
		offset += 4
		offset += 4 // unused
	}

	if sketch.IsEstimationMode() {
		binary.LittleEndian.PutUint64(bytes[offset:offset+8], sketch.theta)
		offset += 8
	}

	for _, entry := range sketch.entries {
		binary.LittleEndian.PutUint64(bytes[offset:offset+8], entry)
		offset += 8
	}
}
