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

// Package binomialbounds computes confidence bounds on the cardinality of a Theta sketch
// from the number of retained entries and the current sampling probability (theta).
//
// The sketch keeps the numSamples smallest of the hashes it has seen below a threshold
// theta. Treating retention as Bernoulli(theta) sampling of an unknown population, these
// functions invert the binomial distribution to produce a lower and upper bound on that
// population for a given confidence expressed in standard deviations (1, 2 or 3, which
// correspond to one-sided tail probabilities of roughly 84%, 97.7% and 99.9%).
package binomialbounds

import (
	"fmt"
	"math"
)

// deltaOfNumStdDevs are one-sided tail probabilities for the normal distribution at
// 1, 2 and 3 standard deviations, indexed by numStdDevs-1.
var deltaOfNumStdDevs = [3]float64{0.1587, 0.02275, 0.00135}

// smallNumSamplesThreshold is the cutover below which the continuous Wilson-style
// approximation is replaced by an exact tail-sum inversion of the binomial PMF.
const smallNumSamplesThreshold = 120

// tinyThetaDivisor is used to decide whether theta is too small, relative to
// numSamples, for the exact tail sum to be numerically stable; the continuous
// approximation is used instead in that regime.
const tinyThetaDivisor = 360.0

// maxTailIterations bounds the exact tail-sum loop so a degenerate (theta, numSamples)
// pair can never spin forever; it is far larger than any mass crossing seen in practice.
const maxTailIterations = 2_000_000

// LowerBound returns the approximate lower error bound on the cardinality estimate,
// given the number of retained samples, the current theta (in [0,1]) and a confidence
// expressed as a number of standard deviations (1, 2 or 3).
func LowerBound(numSamples uint64, theta float64, numStdDevs uint) (float64, error) {
	delta, err := deltaFor(numStdDevs)
	if err != nil {
		return 0, err
	}
	if err := validateTheta(theta); err != nil {
		return 0, err
	}
	if theta >= 1.0 {
		return float64(numSamples), nil
	}
	if numSamples == 0 {
		return 0.0, nil
	}

	estimate := float64(numSamples) / theta
	raw := lowerRaw(numSamples, theta, float64(numStdDevs), delta)
	return math.Min(estimate, math.Max(float64(numSamples), raw)), nil
}

// UpperBound returns the approximate upper error bound on the cardinality estimate,
// given the number of retained samples, the current theta (in [0,1]) and a confidence
// expressed as a number of standard deviations (1, 2 or 3).
func UpperBound(numSamples uint64, theta float64, numStdDevs uint) (float64, error) {
	delta, err := deltaFor(numStdDevs)
	if err != nil {
		return 0, err
	}
	if err := validateTheta(theta); err != nil {
		return 0, err
	}
	if theta >= 1.0 {
		return float64(numSamples), nil
	}

	estimate := float64(numSamples) / theta
	if numSamples == 0 {
		// Poisson-limit bound: the smallest rate whose probability of zero
		// observed hits is still at least delta.
		raw := math.Ceil(math.Log(delta) / math.Log(1-theta))
		return math.Max(estimate, raw), nil
	}

	raw := upperRaw(numSamples, theta, float64(numStdDevs), delta)
	return math.Max(estimate, raw), nil
}

func deltaFor(numStdDevs uint) (float64, error) {
	if numStdDevs < 1 || numStdDevs > 3 {
		return 0, fmt.Errorf("numStdDevs must be 1, 2 or 3: %d", numStdDevs)
	}
	return deltaOfNumStdDevs[numStdDevs-1], nil
}

func validateTheta(theta float64) error {
	if theta < 0.0 || theta > 1.0 {
		return fmt.Errorf("theta must be in [0, 1]: %f", theta)
	}
	return nil
}

// usesContinuousApproximation reports whether (numSamples, theta) falls into the
// regime where the Wilson-style continuous formula is used in place of the exact
// tail-sum inversion: either numSamples is large enough for the normal approximation
// to be accurate, or theta is so small relative to numSamples that the exact sum
// would need an excessive number of terms to converge.
func usesContinuousApproximation(numSamples uint64, theta float64) bool {
	if numSamples > smallNumSamplesThreshold {
		return true
	}
	return theta < float64(numSamples)/tinyThetaDivisor
}

func lowerRaw(numSamples uint64, theta, sigma, delta float64) float64 {
	if usesContinuousApproximation(numSamples, theta) {
		return continuousBound((float64(numSamples)-0.5)/theta, theta, sigma, -1)
	}
	return exactTailBound(numSamples, theta, delta)
}

func upperRaw(numSamples uint64, theta, sigma, delta float64) float64 {
	if usesContinuousApproximation(numSamples, theta) {
		return continuousBound((float64(numSamples)+0.5)/theta, theta, sigma, 1)
	}
	return exactTailBound(numSamples, theta, 1-delta)
}

// continuousBound implements the classical Wilson-type interval used once the normal
// approximation to the binomial applies: nHat is (numSamples ∓ 0.5)/theta and sign
// selects the lower (-1) or upper (+1) half of the interval.
func continuousBound(nHat, theta, sigma float64, sign float64) float64 {
	b := sigma * math.Sqrt((1-theta)/theta)
	d := (b / 2) * math.Sqrt(b*b+4*nHat)
	c := nHat + b*b/2
	return c + sign*d + sign*0.5
}

// exactTailBound inverts the binomial tail exactly by walking m upward from numSamples
// and accumulating term(m) = C(m,numSamples) * theta^numSamples * (1-theta)^(m-numSamples)
// until the running mass reaches threshold, returning one more than the m whose term
// first brings it there (m is advanced before the check).
// Terms are evaluated in log-space via the log-gamma function to avoid overflow for
// large m.
func exactTailBound(numSamples uint64, theta, threshold float64) float64 {
	cumulative := 0.0
	m := numSamples
	for {
		cumulative += math.Exp(logBinomialTerm(m, numSamples, theta))
		m++
		if cumulative >= threshold || m-numSamples > maxTailIterations {
			return float64(m)
		}
	}
}

func logBinomialTerm(m, n uint64, theta float64) float64 {
	logChoose, _ := math.Lgamma(float64(m) + 1)
	a, _ := math.Lgamma(float64(n) + 1)
	b, _ := math.Lgamma(float64(m-n) + 1)
	logChoose = logChoose - a - b
	return logChoose + float64(n)*math.Log(theta) + float64(m-n)*math.Log(1-theta)
}
