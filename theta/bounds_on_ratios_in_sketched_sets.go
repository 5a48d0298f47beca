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
)

// sketchedRatioCounts restates sketchA and sketchB on a common theta: B's
// theta must be the smaller (or equal) of the two, so every hash B retained
// was also eligible to land in A. countA is then either A's own retained
// count (thetas already match) or the subset of A's hashes below B's theta.
// f is B's sampling rate, used to scale the confidence interval.
func sketchedRatioCounts(sketchA, sketchB Estimator) (countA, countB uint64, f float64, err error) {
	theta64A := sketchA.Theta64()
	theta64B := sketchB.Theta64()
	if theta64B > theta64A {
		return 0, 0, 0, errors.New("theta_b must be <= theta_a")
	}

	countB = uint64(sketchB.NumRetained())
	if theta64A == theta64B {
		countA = uint64(sketchA.NumRetained())
	} else {
		countA = countLessThanTheta64(sketchA, theta64B)
	}
	return countA, countB, sketchB.Theta(), nil
}

// lowerBoundForBOverAInSketchedSets gives the lower end of a 95% confidence
// interval on the true ratio |B|/|A| for two sketches over the same
// universe, derived from their retained counts rather than their estimates.
func lowerBoundForBOverAInSketchedSets(sketchA, sketchB Estimator) (float64, error) {
	countA, countB, f, err := sketchedRatioCounts(sketchA, sketchB)
	if err != nil {
		return 0, err
	}
	if countA == 0 {
		return 0, nil
	}
	return lowerBoundForBOverA(countA, countB, f)
}

// upperBoundForBOverAInSketchedSets gives the upper end of the same
// confidence interval as lowerBoundForBOverAInSketchedSets.
func upperBoundForBOverAInSketchedSets(sketchA, sketchB Estimator) (float64, error) {
	countA, countB, f, err := sketchedRatioCounts(sketchA, sketchB)
	if err != nil {
		return 0, err
	}
	if countA == 0 {
		return 1, nil
	}
	return upperBoundForBOverA(countA, countB, f)
}

// estimateOfBOverAInSketchedSets returns the point estimate for |B|/|A|.
// When A's retained set below B's theta is empty, 0.5 is returned as an
// uninformative midpoint rather than claiming a ratio of zero.
func estimateOfBOverAInSketchedSets(sketchA, sketchB Estimator) (float64, error) {
	countA, countB, _, err := sketchedRatioCounts(sketchA, sketchB)
	if err != nil {
		return 0, err
	}
	if countA == 0 {
		return 0.5, nil
	}
	return float64(countB) / float64(countA), nil
}

func countLessThanTheta64(sketch Estimator, theta uint64) uint64 {
	count := uint64(0)
	for entry := range sketch.All() {
		if entry < theta {
			count++
		}
	}
	return count
}
