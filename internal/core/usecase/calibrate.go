package usecase

import "math"

const (
	calibrationCoverageWeight    = 1.8
	calibrationConsistencyWeight = 1.6
	calibrationDiversityWeight   = 1.2
	calibrationFallbackPenalty   = 0.8
	calibrationBias              = 1.2
)

// calibrateConfidence folds coverage, consistency and diversity into a
// single confidence in (0,1) via a logistic squash. Positive weights keep
// the transform monotonic in every signal; lexical fallback subtracts a
// fixed penalty.
func calibrateConfidence(coverage, consistency, diversity float64, lexicalFallback bool) float64 {
	penalty := 0.0
	if lexicalFallback {
		penalty = calibrationFallbackPenalty
	}
	z := calibrationCoverageWeight*coverage +
		calibrationConsistencyWeight*consistency +
		calibrationDiversityWeight*diversity -
		penalty - calibrationBias
	return math.Round(sigmoid(z)*1000) / 1000
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}
