package usecase

import "github.com/cleanlight/instant-sme/internal/core/domain"

// StubConsistencyChecker always reports high consistency and no
// contradictions. It holds the contract shape open for a real NLI model;
// swapping it out must not change the calibrator or AnswerPack layout.
type StubConsistencyChecker struct{}

func NewStubConsistencyChecker() *StubConsistencyChecker {
	return &StubConsistencyChecker{}
}

func (*StubConsistencyChecker) Check([]domain.RankedCandidate) (float64, []string) {
	return 0.98, nil
}
