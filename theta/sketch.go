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

import "iter"

// Estimator is the common surface shared by every shape a theta sketch can
// take: an update sketch actively absorbing a stream, a compact sketch
// produced for storage or transmission, or the running result of a set
// operator (Union, Intersection, AnotB). All of them answer the same
// questions about the distinct-count estimate and the retained-hash sample
// that backs it; only how they got there differs.
type Estimator interface {
	// IsEmpty reports whether the sketch represents the empty set. An
	// estimator with zero retained entries but theta < 1 is NOT empty: it
	// has simply sampled zero hashes out of a nonempty stream.
	IsEmpty() bool

	// Estimate returns the distinct-count estimate for the stream folded
	// into this sketch so far.
	Estimate() float64

	// LowerBound returns the lower confidence bound on Estimate at the
	// requested number of standard deviations (1, 2, or 3, corresponding
	// roughly to 67%, 95%, and 99% confidence).
	LowerBound(numStdDevs uint8) (float64, error)

	// UpperBound returns the upper confidence bound on Estimate, mirroring
	// LowerBound.
	UpperBound(numStdDevs uint8) (float64, error)

	// IsEstimationMode reports whether the sketch has begun sampling
	// (theta < 1) rather than tracking every distinct hash exactly.
	IsEstimationMode() bool

	// Theta is the current sampling probability, in (0, 1].
	Theta() float64

	// Theta64 is Theta expressed as an integer fraction of ThetaLongMax,
	// the form actually stored and compared against on the hot path.
	Theta64() uint64

	// NumRetained is the number of hashes currently kept in the sketch.
	NumRetained() uint32

	// SeedHash identifies which hash seed produced this sketch's values,
	// so two sketches built with different seeds can be rejected before
	// a set operation silently produces nonsense.
	SeedHash() (uint16, error)

	// IsOrdered reports whether retained hashes are sorted ascending.
	IsOrdered() bool

	// String renders a human-readable summary; when shouldPrintItems is
	// true it also lists every retained hash.
	String(shouldPrintItems bool) string

	// All iterates every retained hash, in whatever order the underlying
	// representation stores them.
	All() iter.Seq[uint64]
}
