package model

import "codejudge/internal/judge/engine"

// Verdict is the judged outcome of one test case.
type Verdict struct {
	Input          string        `json:"input"`
	ExpectedOutput string        `json:"expectedOutput"`
	ActualOutput   *string       `json:"actualOutput"`
	Error          *string       `json:"error"`
	Status         engine.Status `json:"status"`
	Passed         bool          `json:"passed"`
}

// ExecutionReport is what a caller receives for one execution and what is
// kept for later lookup. Error and Details are set instead of Results when
// the batch failed to compile.
type ExecutionReport struct {
	ExecutionID string    `json:"executionId"`
	UserID      string    `json:"userId,omitempty"`
	ProblemID   string    `json:"problemId"`
	Language    string    `json:"language"`
	Mode        Mode      `json:"mode"`
	Success     bool      `json:"success"`
	Error       string    `json:"error,omitempty"`
	Details     string    `json:"details,omitempty"`
	Results     []Verdict `json:"results,omitempty"`
	AllPassed   bool      `json:"allPassed"`
	SourceKey   string    `json:"sourceKey,omitempty"`
	CreatedAt   int64     `json:"createdAt"`
}
