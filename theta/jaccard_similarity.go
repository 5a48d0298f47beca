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
	"github.com/distinctcount/thetasketch/internal"
)

// JaccardSimilarityResult holds a Jaccard index estimate together with its
// 95.4%-confidence (+/- 2 standard deviation) bounds.
type JaccardSimilarityResult struct {
	LowerBound float64
	Estimate   float64
	UpperBound float64
}

var certainMatch = JaccardSimilarityResult{1, 1, 1}

// Jaccard computes J(A,B) = |A ∩ B| / |A ∪ B|, the fraction of the combined
// set the two sketches have in common: 1 means identical sets, 0 means
// disjoint sets, 0.95 means a 95% overlap relative to the union.
//
// seed must match the seed sketchA and sketchB were built with. Sketches
// configured with a nominal entry count of 2^25 or 2^26 may produce
// unreliable results here.
func Jaccard(sketchA, sketchB Estimator, seed uint64) (JaccardSimilarityResult, error) {
	if sketchA == sketchB || (sketchA.IsEmpty() && sketchB.IsEmpty()) {
		return certainMatch, nil
	}
	if sketchA.IsEmpty() || sketchB.IsEmpty() {
		return JaccardSimilarityResult{0, 0, 0}, nil
	}

	unionAB, err := computeUnion(sketchA, sketchB, seed)
	if err != nil {
		return JaccardSimilarityResult{}, err
	}
	if identicalSets(sketchA, sketchB, unionAB) {
		return certainMatch, nil
	}

	intersection := NewIntersection(WithIntersectionSeed(seed))
	if err := intersection.Update(sketchA); err != nil {
		return JaccardSimilarityResult{}, err
	}
	if err := intersection.Update(sketchB); err != nil {
		return JaccardSimilarityResult{}, err
	}
	if err := intersection.Update(unionAB); err != nil {
		return JaccardSimilarityResult{}, err
	}

	interABU, err := intersection.Result(false)
	if err != nil {
		return JaccardSimilarityResult{}, err
	}

	return ratioOfSketchedSets(unionAB, interABU)
}

func ratioOfSketchedSets(denominator, numerator Estimator) (JaccardSimilarityResult, error) {
	lb, err := lowerBoundForBOverAInSketchedSets(denominator, numerator)
	if err != nil {
		return JaccardSimilarityResult{}, err
	}
	est, err := estimateOfBOverAInSketchedSets(denominator, numerator)
	if err != nil {
		return JaccardSimilarityResult{}, err
	}
	ub, err := upperBoundForBOverAInSketchedSets(denominator, numerator)
	if err != nil {
		return JaccardSimilarityResult{}, err
	}
	return JaccardSimilarityResult{LowerBound: lb, Estimate: est, UpperBound: ub}, nil
}

// IsExactlyEqual reports whether sketchA and sketchB represent the same set.
// seed must match the seed the sketches were built with.
func IsExactlyEqual(sketchA, sketchB Estimator, seed uint64) (bool, error) {
	if sketchA == sketchB {
		return true, nil
	}
	if sketchA.IsEmpty() && sketchB.IsEmpty() {
		return true, nil
	}
	if sketchA.IsEmpty() || sketchB.IsEmpty() {
		return false, nil
	}

	unionAB, err := computeUnion(sketchA, sketchB, seed)
	if err != nil {
		return false, err
	}

	return identicalSets(sketchA, sketchB, unionAB), nil
}

// IsSimilar reports whether actual is similar enough to expected: the
// lower-bound Jaccard index J_LB must be at least threshold, which gives a
// 97.7% confidence of similarity when true.
func IsSimilar(actual, expected Estimator, threshold float64, seed uint64) (bool, error) {
	jc, err := Jaccard(actual, expected, seed)
	if err != nil {
		return false, err
	}
	return jc.LowerBound >= threshold, nil
}

// IsDissimilar is IsSimilar's mirror image: it reports whether the
// upper-bound Jaccard index J_UB falls at or below threshold, a 97.7%
// confidence of dissimilarity when true.
func IsDissimilar(actual, expected Estimator, threshold float64, seed uint64) (bool, error) {
	jc, err := Jaccard(actual, expected, seed)
	if err != nil {
		return false, err
	}
	return jc.UpperBound <= threshold, nil
}

// computeUnion builds a fresh Union of sketchA and sketchB, sized just
// large enough to hold their combined retained counts without triggering
// an unnecessary extra rebuild.
func computeUnion(sketchA, sketchB Estimator, seed uint64) (Estimator, error) {
	combined := internal.CeilPowerOf2(int(sketchA.NumRetained() + sketchB.NumRetained()))
	lgKValue := min(max(internal.Log2Floor(uint32(combined)), MinLgK), MaxLgK)

	union, err := NewUnion(WithUnionLgK(lgKValue), WithUnionSeed(seed))
	if err != nil {
		return nil, err
	}
	if err := union.Update(sketchA); err != nil {
		return nil, err
	}
	if err := union.Update(sketchB); err != nil {
		return nil, err
	}
	return union.Result(false)
}

// identicalSets reports whether sketchA and sketchB each fully account for
// the union's retained count and theta, meaning the union added nothing
// neither side already had.
func identicalSets(sketchA, sketchB, unionAB Estimator) bool {
	return unionAB.NumRetained() == sketchA.NumRetained() &&
		unionAB.NumRetained() == sketchB.NumRetained() &&
		unionAB.Theta64() == sketchA.Theta64() &&
		unionAB.Theta64() == sketchB.Theta64()
}
