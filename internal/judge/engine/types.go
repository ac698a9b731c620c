// Package engine talks to a Judge0-compatible execution engine: it submits
// batches of programs and polls their tokens until every run is finished.
package engine

import "strings"

// Token correlates one submitted unit with its result.
type Token string

// SubmissionUnit is one program run against one test case.
type SubmissionUnit struct {
	SourceCode     string
	LanguageID     int
	Stdin          string
	ExpectedOutput string
	CPUTimeLimit   float64
	MemoryLimitKB  int
}

// Judge0 status ids.
const (
	StatusInQueue           = 1
	StatusProcessing        = 2
	StatusAccepted          = 3
	StatusWrongAnswer       = 4
	StatusTimeLimitExceeded = 5
	StatusCompilationError  = 6
	StatusRuntimeSIGSEGV    = 7
	StatusRuntimeSIGXFSZ    = 8
	StatusRuntimeSIGFPE     = 9
	StatusRuntimeSIGABRT    = 10
	StatusRuntimeNZEC       = 11
	StatusRuntimeOther      = 12
	StatusInternalError     = 13
	StatusExecFormatError   = 14
)

var statusLabels = map[int]string{
	StatusInQueue:           "In Queue",
	StatusProcessing:        "Processing",
	StatusAccepted:          "Accepted",
	StatusWrongAnswer:       "Wrong Answer",
	StatusTimeLimitExceeded: "Time Limit Exceeded",
	StatusCompilationError:  "Compilation Error",
	StatusRuntimeSIGSEGV:    "Runtime Error (SIGSEGV)",
	StatusRuntimeSIGXFSZ:    "Runtime Error (SIGXFSZ)",
	StatusRuntimeSIGFPE:     "Runtime Error (SIGFPE)",
	StatusRuntimeSIGABRT:    "Runtime Error (SIGABRT)",
	StatusRuntimeNZEC:       "Runtime Error (NZEC)",
	StatusRuntimeOther:      "Runtime Error (Other)",
	StatusInternalError:     "Internal Error",
	StatusExecFormatError:   "Exec Format Error",
}

// Status is the engine's verdict for a single run.
type Status struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
}

// NewStatus builds a status with the engine's standard label.
func NewStatus(id int) Status {
	return Status{ID: id, Description: statusLabels[id]}
}

// Label returns the description, falling back to the standard label.
func (s Status) Label() string {
	if strings.TrimSpace(s.Description) != "" {
		return s.Description
	}
	if label, ok := statusLabels[s.ID]; ok {
		return label
	}
	return "Unknown"
}

// Terminal reports whether the status will not change on further polling.
func (s Status) Terminal() bool { return s.ID >= StatusAccepted }

// CompileError reports a compilation failure.
func (s Status) CompileError() bool { return s.ID == StatusCompilationError }

// CleanRun reports a run the engine accepted. Only such runs can pass.
func (s Status) CleanRun() bool {
	return s.ID == StatusAccepted
}

// ExecutionResult is a terminal (or last seen) state of one unit.
type ExecutionResult struct {
	Token         Token   `json:"token"`
	Status        Status  `json:"status"`
	Stdout        string  `json:"stdout"`
	Stderr        string  `json:"stderr"`
	CompileOutput string  `json:"compile_output"`
	Message       string  `json:"message,omitempty"`
	TimeSeconds   float64 `json:"time"`
	MemoryKB      int     `json:"memory"`
}
