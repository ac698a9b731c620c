// Package harness turns a user's function body into a complete program the
// execution engine can run against stdin-encoded arguments.
package harness

import (
	"strings"

	appErr "codejudge/pkg/errors"
)

// Language is a submission language tag.
type Language string

const (
	JavaScript Language = "JAVASCRIPT"
	Python     Language = "PYTHON"
	Java       Language = "JAVA"
)

// Judge0 CE language ids.
var engineLanguageIDs = map[Language]int{
	JavaScript: 63,
	Python:     71,
	Java:       62,
}

// ParseLanguage normalizes a caller supplied tag. Unknown tags are a validation error.
func ParseLanguage(tag string) (Language, error) {
	lang := Language(strings.ToUpper(strings.TrimSpace(tag)))
	if _, ok := engineLanguageIDs[lang]; !ok {
		return "", appErr.New(appErr.LanguageNotSupported).WithDetail("language", tag)
	}
	return lang, nil
}

// EngineID returns the execution engine's numeric id, or 0 for unknown languages.
func (l Language) EngineID() int {
	return engineLanguageIDs[l]
}

// Languages lists the supported languages in a stable order.
func Languages() []Language {
	return []Language{JavaScript, Python, Java}
}
