package service

// Metrics receives counters from the services. Implementations must be safe for concurrent use.
type Metrics interface {
	RecordCreated(recordType string)
	TransitionApplied(recordType, from, to string)
	TransitionRejected(recordType, reason string)
	ConflictRetried(operation string)
	BudgetObserved(category string, remaining float64, tier string)
}

type noopMetrics struct{}

func (noopMetrics) RecordCreated(string)                     {}
func (noopMetrics) TransitionApplied(string, string, string) {}
func (noopMetrics) TransitionRejected(string, string)        {}
func (noopMetrics) ConflictRetried(string)                   {}
func (noopMetrics) BudgetObserved(string, float64, string)   {}
