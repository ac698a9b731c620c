package service

import (
	"codejudge/internal/judge/harness"
	appErr "codejudge/pkg/errors"
)

// InspectInput asks how the harness would treat a piece of code.
type InspectInput struct {
	Language string
	Code     string
	Stdin    string
	// Snippet is optional starter code used to derive the value hint.
	Snippet string
}

// InspectResult shows the located signature, how Stdin would be split and
// parsed for it, and the full synthesized program. Arguments holds each
// parsed value in its compact printed form.
type InspectResult struct {
	Signature harness.Signature `json:"signature"`
	Fragments []string          `json:"fragments"`
	Values    []harness.Value   `json:"values"`
	Arguments []string          `json:"arguments"`
	Program   harness.Program   `json:"program"`
}

// Inspect runs the harness offline. It never calls the engine.
func (s *ExecuteService) Inspect(input InspectInput) (*InspectResult, error) {
	return Inspect(input)
}

// Inspect is the dependency-free form used by the CLI.
func Inspect(input InspectInput) (*InspectResult, error) {
	lang, err := harness.ParseLanguage(input.Language)
	if err != nil {
		return nil, err
	}
	if len(input.Code) > defaultMaxCodeBytes {
		return nil, appErr.New(appErr.CodeTooLarge).WithMessage("source code too large")
	}
	program, err := harness.Synthesize(lang, input.Code, harness.DetectValueHint(input.Snippet))
	if err != nil {
		return nil, err
	}
	sig := harness.LocateFunction(input.Code, lang)
	fragments := harness.SplitInput(input.Stdin, sig.ParamCount)
	values := make([]harness.Value, 0, len(fragments))
	arguments := make([]string, 0, len(fragments))
	for _, f := range fragments {
		v := harness.ParseValue(f)
		values = append(values, v)
		arguments = append(arguments, v.String())
	}
	return &InspectResult{Signature: sig, Fragments: fragments, Values: values, Arguments: arguments, Program: program}, nil
}
