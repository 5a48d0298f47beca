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
)

func compareEqual[T comparable](actual, expected T, description string) error {
	if actual != expected {
		return fmt.Errorf("%s mismatch: expected %v, actual %v", description, expected, actual)
	}
	return nil
}

// VerifySerialVersion rejects a decoded preamble whose serial version byte
// doesn't match what the caller expected to find.
func VerifySerialVersion(actual, expected uint8) error {
	return compareEqual(actual, expected, "serial version")
}

// VerifyEstimatorFamily rejects a decoded preamble whose family id doesn't
// match what the caller expected to find.
func VerifyEstimatorFamily(actual, expected uint8) error {
	return compareEqual(actual, expected, "sketch family")
}

// VerifyEstimatorType rejects a decoded preamble whose flags byte encodes a
// sketch representation other than the one the caller expected.
func VerifyEstimatorType(actual, expected uint8) error {
	return compareEqual(actual, expected, "sketch type")
}

// VerifySeedHash rejects a sketch whose embedded seed hash doesn't match
// the seed hash the caller is operating with, which would otherwise let a
// set operation silently mix sketches built from different hash seeds.
func VerifySeedHash(actual, expected uint16) error {
	return compareEqual(actual, expected, "seed hash")
}

// initialThetaFromP converts a sampling probability into its ThetaLongMax-scaled
// integer form. p == 1 is special-cased so the result lands on ThetaLongMax
// exactly rather than drifting from floating point rounding.
func initialThetaFromP(p float32) uint64 {
	if p < 1 {
		return uint64(float64(ThetaLongMax) * float64(p))
	}
	return ThetaLongMax
}

// initialLgSizeSubMultiple finds the smallest lgCurSize, no smaller than lgMin,
// from which repeated growth steps of lgRf land exactly on lgTgt. A freshly
// built table starts at that size instead of at lgTgt directly. It returns
// lgMin when lgTgt <= lgMin, and lgTgt itself when lgRf is 0.
func initialLgSizeSubMultiple(lgTgt, lgMin, lgRf uint8) uint8 {
	if lgTgt <= lgMin {
		return lgMin
	}
	if lgRf == 0 {
		return lgTgt
	}
	return ((lgTgt - lgMin) % lgRf) + lgMin
}
