package harness

import (
	"regexp"
	"strings"
)

const (
	fallbackFunctionName = "solution"
	fallbackParamCount   = 1
	defaultTypeName      = "Solution"
)

// Param is one declared parameter. Type is empty when the language or the
// declaration does not state it.
type Param struct {
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

// Signature is the best-effort result of locating the user's entry point.
type Signature struct {
	Name       string  `json:"name"`
	ParamCount int     `json:"paramCount"`
	TypeName   string  `json:"typeName"`
	Params     []Param `json:"params,omitempty"`
	Located    bool    `json:"located"`
}

// locatorRule matches a declaration whose match ends on the opening paren of
// the parameter list. A rule with fixedCount >= 0 has no parenthesized list.
type locatorRule struct {
	pattern    *regexp.Regexp
	nameGroup  int
	follow     *regexp.Regexp
	skip       func(name string) bool
	fixedCount int
}

type languageRules struct {
	rules       []locatorRule
	brackets    string
	lineComment *regexp.Regexp
	blockOK     bool
	paramOf     func(fragment string) (Param, bool)
}

var (
	blockComment = regexp.MustCompile(`(?s)/\*.*?\*/`)
	slashComment = regexp.MustCompile(`(?m)^[ \t]*//.*$`)
	hashComment  = regexp.MustCompile(`(?m)^[ \t]*#.*$`)
	classDecl    = regexp.MustCompile(`\bclass\s+([A-Za-z_$][\w$]*)`)
	trailingName = regexp.MustCompile(`([A-Za-z_$][\w$]*)\s*(?:\[\s*\]\s*)*$`)
)

var controlKeywords = map[string]bool{
	"if": true, "for": true, "while": true, "switch": true, "catch": true,
	"function": true, "return": true, "constructor": true, "else": true,
	"new": true, "synchronized": true, "do": true, "try": true,
}

func isKeyword(name string) bool { return controlKeywords[name] }

func isMain(name string) bool { return name == "main" || isKeyword(name) }

func isDunder(name string) bool {
	return strings.HasPrefix(name, "__") && strings.HasSuffix(name, "__")
}

var locatorTable = map[Language]languageRules{
	JavaScript: {
		rules: []locatorRule{
			{
				pattern:    regexp.MustCompile(`\b(?:var|let|const)\s+([A-Za-z_$][\w$]*)\s*=\s*(?:async\s+)?function\b\s*\*?\s*(?:[A-Za-z_$][\w$]*)?\s*\(`),
				nameGroup:  1,
				fixedCount: -1,
			},
			{
				pattern:    regexp.MustCompile(`\b(?:var|let|const)\s+([A-Za-z_$][\w$]*)\s*=\s*(?:async\s*)?\(`),
				nameGroup:  1,
				follow:     regexp.MustCompile(`^\s*=>`),
				fixedCount: -1,
			},
			{
				pattern:    regexp.MustCompile(`\b(?:var|let|const)\s+([A-Za-z_$][\w$]*)\s*=\s*(?:async\s+)?[A-Za-z_$][\w$]*\s*=>`),
				nameGroup:  1,
				fixedCount: 1,
			},
			{
				pattern:    regexp.MustCompile(`\bfunction\b\s*\*?\s*([A-Za-z_$][\w$]*)\s*\(`),
				nameGroup:  1,
				fixedCount: -1,
			},
			{
				pattern:    regexp.MustCompile(`(?m)^[ \t]*(?:static\s+)?(?:async\s+)?\*?([A-Za-z_$][\w$]*)\s*\(`),
				nameGroup:  1,
				follow:     regexp.MustCompile(`^\s*\{`),
				skip:       isKeyword,
				fixedCount: -1,
			},
		},
		brackets:    "([{",
		lineComment: slashComment,
		blockOK:     true,
		paramOf:     scriptParam,
	},
	Python: {
		rules: []locatorRule{
			{
				pattern:    regexp.MustCompile(`(?m)^[ \t]*(?:async\s+)?def\s+([A-Za-z_]\w*)\s*\(`),
				nameGroup:  1,
				skip:       isDunder,
				fixedCount: -1,
			},
		},
		brackets:    "([{",
		lineComment: hashComment,
		paramOf:     pythonParam,
	},
	Java: {
		rules: []locatorRule{
			{
				pattern:    regexp.MustCompile(`\bpublic\s+(?:(?:static|final|synchronized|abstract)\s+)*(?:<[^>]*>\s*)?[\w$.<>\[\],? ]+?\s+([A-Za-z_$][\w$]*)\s*\(`),
				nameGroup:  1,
				skip:       isMain,
				fixedCount: -1,
			},
			{
				pattern:    regexp.MustCompile(`(?m)^[ \t]*(?:(?:private|protected|static|final|synchronized)\s+)*(?:<[^>]*>\s*)?[\w$.<>\[\],?]+\s+([A-Za-z_$][\w$]*)\s*\(`),
				nameGroup:  1,
				follow:     regexp.MustCompile(`^\s*(?:throws[^{;]*)?\{`),
				skip:       isMain,
				fixedCount: -1,
			},
		},
		brackets:    "(<[{",
		lineComment: slashComment,
		blockOK:     true,
		paramOf:     javaParam,
	},
}

// LocateFunction recovers the user's function name and parameter count by
// pattern matching, not parsing. It never fails: when no rule matches it
// returns the "solution" fallback with one parameter.
func LocateFunction(source string, lang Language) Signature {
	fallback := Signature{Name: fallbackFunctionName, ParamCount: fallbackParamCount, TypeName: defaultTypeName}
	table, ok := locatorTable[lang]
	if !ok {
		return fallback
	}
	text := source
	if table.blockOK {
		text = blockComment.ReplaceAllString(text, "")
	}
	text = table.lineComment.ReplaceAllString(text, "")

	for _, rule := range table.rules {
		if sig, ok := applyRule(text, rule, table); ok {
			return sig
		}
	}
	if name := ownerType(text, len(text)); name != "" {
		fallback.TypeName = name
	}
	return fallback
}

func applyRule(text string, rule locatorRule, table languageRules) (Signature, bool) {
	for _, loc := range rule.pattern.FindAllStringSubmatchIndex(text, -1) {
		name := text[loc[2*rule.nameGroup]:loc[2*rule.nameGroup+1]]
		if rule.skip != nil && rule.skip(name) {
			continue
		}
		sig := Signature{Name: name, TypeName: defaultTypeName, Located: true}
		if owner := ownerType(text, loc[0]); owner != "" {
			sig.TypeName = owner
		}
		if rule.fixedCount >= 0 {
			sig.ParamCount = rule.fixedCount
			return sig, true
		}
		inner, end, ok := scanBalanced(text, loc[1], table.brackets)
		if !ok {
			continue
		}
		if rule.follow != nil && !rule.follow.MatchString(text[end:]) {
			continue
		}
		sig.Params = collectParams(inner, table)
		sig.ParamCount = len(sig.Params)
		return sig, true
	}
	return Signature{}, false
}

// scanBalanced reads from just after an opening paren to its matching close.
// It returns the enclosed text and the index after the closing paren.
func scanBalanced(text string, start int, brackets string) (string, int, bool) {
	closers := closersFor(brackets)
	depth := 1
	var quote byte
	for i := start; i < len(text); i++ {
		ch := text[i]
		if quote != 0 {
			if ch == '\\' {
				i++
			} else if ch == quote {
				quote = 0
			}
			continue
		}
		switch {
		case ch == '"' || ch == '\'' || ch == '`':
			quote = ch
		case strings.IndexByte(brackets, ch) >= 0:
			depth++
		case strings.IndexByte(closers, ch) >= 0:
			depth--
			if depth == 0 {
				return text[start:i], i + 1, true
			}
		}
	}
	return "", 0, false
}

func closersFor(brackets string) string {
	pairs := map[byte]byte{'(': ')', '[': ']', '{': '}', '<': '>'}
	out := make([]byte, 0, len(brackets))
	for i := 0; i < len(brackets); i++ {
		out = append(out, pairs[brackets[i]])
	}
	return string(out)
}

func collectParams(inner string, table languageRules) []Param {
	var params []Param
	for _, fragment := range splitTopLevel(inner, ',', table.brackets, closersFor(table.brackets)) {
		if fragment == "" {
			continue
		}
		if p, ok := table.paramOf(fragment); ok {
			params = append(params, p)
		}
	}
	return params
}

func scriptParam(fragment string) (Param, bool) {
	name := fragment
	if i := strings.Index(name, "="); i >= 0 {
		name = name[:i]
	}
	name = strings.TrimPrefix(strings.TrimSpace(name), "...")
	return Param{Name: strings.TrimSpace(name)}, true
}

func pythonParam(fragment string) (Param, bool) {
	decl := fragment
	if i := strings.Index(decl, "="); i >= 0 {
		decl = decl[:i]
	}
	var typ string
	if i := strings.Index(decl, ":"); i >= 0 {
		typ = strings.TrimSpace(decl[i+1:])
		decl = decl[:i]
	}
	name := strings.TrimSpace(decl)
	switch name {
	case "self", "cls", "*", "/":
		return Param{}, false
	}
	return Param{Name: strings.TrimLeft(name, "*"), Type: typ}, true
}

func javaParam(fragment string) (Param, bool) {
	decl := strings.TrimSpace(fragment)
	for strings.HasPrefix(decl, "final ") || strings.HasPrefix(decl, "@") {
		if strings.HasPrefix(decl, "final ") {
			decl = strings.TrimSpace(strings.TrimPrefix(decl, "final "))
			continue
		}
		fields := strings.SplitN(decl, " ", 2)
		if len(fields) < 2 {
			break
		}
		decl = strings.TrimSpace(fields[1])
	}
	m := trailingName.FindStringSubmatchIndex(decl)
	if m == nil {
		return Param{Type: decl}, true
	}
	return Param{
		Name: decl[m[2]:m[3]],
		Type: strings.TrimSpace(decl[:m[0]] + decl[m[3]:]),
	}, true
}

// ownerType prefers a Solution class anywhere in the file, then the last
// class declared before pos.
func ownerType(text string, pos int) string {
	var last string
	for _, m := range classDecl.FindAllStringSubmatchIndex(text, -1) {
		name := text[m[2]:m[3]]
		if name == defaultTypeName {
			return name
		}
		if m[0] < pos {
			last = name
		}
	}
	return last
}
