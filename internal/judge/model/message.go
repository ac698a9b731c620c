package model

// SolvedEvent is published the first time a user solves a problem.
type SolvedEvent struct {
	UserID      string `json:"user_id"`
	ProblemID   string `json:"problem_id"`
	Language    string `json:"language"`
	ExecutionID string `json:"execution_id"`
	SolvedAt    int64  `json:"solved_at"`
}
