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
	"math"

	"github.com/distinctcount/thetasketch/internal/binomialproportionsbounds"
)

// confidenceStdDevs fixes the width of every bound computed in this file to
// a 95% confidence interval (2 standard deviations). Exposing the number of
// standard deviations as a parameter here wasn't worth the interface
// complexity it would add to every caller in the Jaccard/containment path.
const confidenceStdDevs = 2.0

// lowerBoundForBOverA bounds the ratio |B|/|A| from below at 95% confidence,
// given a (the Bernoulli-sampled size of A, inclusion probability f) and b
// (the size of the subset of that sample also found in B). f should
// generally stay under 0.5; above that the interval widens per
// sampleSkewAdjustment and the bound gets conservative rather than wrong.
// f == 1.0 (no sampling) collapses to the exact ratio.
func lowerBoundForBOverA(a, b uint64, f float64) (float64, error) {
	if err := validateSampleCounts(a, b, f); err != nil {
		return 0.0, err
	}
	if a == 0 {
		return 0.0, nil
	}
	if f == 1.0 {
		return float64(b) / float64(a), nil
	}
	return binomialproportionsbounds.ApproximateLowerBoundOnP(a, b, confidenceStdDevs*sampleSkewAdjustment(f))
}

// upperBoundForBOverA is the upper-bound counterpart to lowerBoundForBOverA.
func upperBoundForBOverA(a, b uint64, f float64) (float64, error) {
	if err := validateSampleCounts(a, b, f); err != nil {
		return 0.0, err
	}
	if a == 0 {
		return 1.0, nil
	}
	if f == 1.0 {
		return float64(b) / float64(a), nil
	}
	return binomialproportionsbounds.ApproximateUpperBoundOnP(a, b, confidenceStdDevs*sampleSkewAdjustment(f))
}

// sampleSkewAdjustment widens the standard-deviation multiplier as the
// inclusion probability f climbs past 0.5, where the binomial approximation
// this library relies on starts to skew. The extra term above 0.5 is an
// empirical correction, not a derived one.
func sampleSkewAdjustment(f float64) float64 {
	base := math.Sqrt(1.0 - f)
	if f <= 0.5 {
		return base
	}
	return base + (0.01 * (f - 0.5))
}

func validateSampleCounts(a, b uint64, f float64) error {
	if a < b {
		return fmt.Errorf("a must be >= b: a = %d, b = %d", a, b)
	}
	if f > 1.0 || f <= 0.0 {
		return fmt.Errorf("required: (f <= 1.0) && (f > 0.0), got %f", f)
	}
	return nil
}
