package domain

import "math"

// Derived scores are pure functions of the raw counters. Every write path and
// the reconciliation worker share these derivations so a recompute from
// scratch always reproduces the stored values.

// YesNoScore maps yes/no tallies to 0..100. Callers only invoke it after a
// vote landed, so the denominator is at least 1; a zero denominator still
// yields 0 rather than dividing.
func YesNoScore(yes, no int64) int {
	total := yes + no
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(yes) / float64(total) * 100))
}

// RatingScore maps a 5-star counter breakdown to 0..100: the weighted average
// ranges 1..5 and is rescaled linearly so 1 star is 0 and 5 stars is 100.
func RatingScore(counts [5]int64) int {
	var total, weighted int64
	for star, count := range counts {
		total += count
		weighted += int64(star+1) * count
	}
	if total == 0 {
		return 0
	}
	avg := float64(weighted) / float64(total)
	score := int(math.Round((avg - 1) / 4 * 100))
	return clampScore(score)
}

// MeanPositive averages the values that are strictly positive, rounded to the
// nearest integer; 0 when none qualify. Both the department average and the
// constituency manifesto score are defined this way.
func MeanPositive(values []int) int {
	var sum, n int
	for _, v := range values {
		if v > 0 {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return int(math.Round(float64(sum) / float64(n)))
}

func clampScore(s int) int {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}
