package model

// TestCase is one stored or caller supplied input with its expected output.
type TestCase struct {
	Input  string `json:"input"`
	Output string `json:"output"`
}

// Problem is the judge-facing view of a problem.
type Problem struct {
	ID           string            `json:"id"`
	Title        string            `json:"title"`
	TestCases    []TestCase        `json:"testCases"`
	CodeSnippets map[string]string `json:"codeSnippets"`
	UpdatedAt    int64             `json:"updatedAt"`
}

// Snippet returns the starter code for a language tag, or "".
func (p *Problem) Snippet(language string) string {
	if p == nil || p.CodeSnippets == nil {
		return ""
	}
	return p.CodeSnippets[language]
}
