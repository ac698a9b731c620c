// Package verdict turns engine results into per-case verdicts.
//
// Outputs are compared with every whitespace character removed. This makes
// "1 2 3" equal to "1\n2 3" but also "a b" equal to "ab", so problems whose
// answers depend on internal spacing cannot be judged precisely.
package verdict

import (
	"strings"

	"codejudge/internal/judge/engine"
	"codejudge/internal/judge/model"
)

// Verdict is the judged outcome of one test case.
type Verdict = model.Verdict

// CompileFailure replaces per-case verdicts when any unit failed to compile.
type CompileFailure struct {
	Details string `json:"details"`
}

// Report is the outcome of one batch. Exactly one of Compile and Verdicts is set.
type Report struct {
	Compile   *CompileFailure `json:"compile,omitempty"`
	Verdicts  []Verdict       `json:"verdicts,omitempty"`
	AllPassed bool            `json:"allPassed"`
}

// Normalize pairs cases with results by position. A missing result yields a
// failed verdict with an internal error status.
func Normalize(cases []model.TestCase, results []engine.ExecutionResult) Report {
	for _, r := range results {
		if r.Status.CompileError() {
			return Report{Compile: &CompileFailure{Details: r.CompileOutput}}
		}
	}

	verdicts := make([]Verdict, 0, len(cases))
	allPassed := len(cases) > 0
	for i, tc := range cases {
		var v Verdict
		if i < len(results) {
			v = judge(tc, results[i])
		} else {
			v = Verdict{Input: tc.Input, ExpectedOutput: tc.Output, Status: engine.NewStatus(engine.StatusInternalError)}
		}
		allPassed = allPassed && v.Passed
		verdicts = append(verdicts, v)
	}
	return Report{Verdicts: verdicts, AllPassed: allPassed}
}

func judge(tc model.TestCase, r engine.ExecutionResult) Verdict {
	v := Verdict{
		Input:          tc.Input,
		ExpectedOutput: tc.Output,
		Status:         r.Status,
	}
	if r.Stdout != "" {
		actual := strings.TrimSpace(r.Stdout)
		v.ActualOutput = &actual
	}
	switch {
	case r.Stderr != "":
		v.Error = stringPtr(r.Stderr)
	case r.CompileOutput != "":
		v.Error = stringPtr(r.CompileOutput)
	}
	v.Passed = r.Status.CleanRun() && Equivalent(r.Stdout, tc.Output)
	return v
}

// Equivalent compares two outputs ignoring all whitespace.
func Equivalent(actual, expected string) bool {
	return StripWhitespace(actual) == StripWhitespace(expected)
}

// StripWhitespace removes every Unicode whitespace character.
func StripWhitespace(s string) string {
	return strings.Join(strings.Fields(s), "")
}

func stringPtr(s string) *string { return &s }
