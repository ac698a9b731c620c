package harness

import (
	"bytes"
	"embed"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"text/template"

	appErr "codejudge/pkg/errors"
)

// ValueHint says whether a problem's arguments are mostly numeric or textual.
type ValueHint string

const (
	HintNumber ValueHint = "NUMBER"
	HintString ValueHint = "STRING"
)

var numberParamDoc = regexp.MustCompile(`@param\s*\{\s*number\s*\}`)

// DetectValueHint inspects a problem's starter snippet.
func DetectValueHint(snippet string) ValueHint {
	if numberParamDoc.MatchString(snippet) {
		return HintNumber
	}
	return HintString
}

// Context is what the synthesizer derived from the submission.
type Context struct {
	FunctionName string    `json:"functionName"`
	ParamCount   int       `json:"paramCount"`
	TypeName     string    `json:"typeName"`
	ValueHint    ValueHint `json:"valueHint"`
}

// Program is a complete source file ready for the execution engine.
type Program struct {
	Language Language `json:"language"`
	Source   string   `json:"source"`
	Context  Context  `json:"context"`
}

//go:embed templates/*.tmpl
var templateFS embed.FS

var drivers = template.Must(template.New("drivers").ParseFS(templateFS, "templates/*.tmpl"))

var driverFiles = map[Language]string{
	JavaScript: "javascript.tmpl",
	Python:     "python.tmpl",
	Java:       "java.tmpl",
}

type driverData struct {
	Context
	Source     string
	Candidates []string
	Imports    []string
}

// Synthesize wraps user source into a runnable program. It fails only for an
// unsupported language; unrecognizable code still yields a program, which
// prints nothing when no callable can be found at run time.
func Synthesize(lang Language, source string, hint ValueHint) (Program, error) {
	file, ok := driverFiles[lang]
	if !ok {
		return Program{}, appErr.New(appErr.LanguageNotSupported).WithDetail("language", string(lang))
	}
	if hint == "" {
		hint = HintString
	}
	sig := LocateFunction(source, lang)
	data := driverData{
		Context: Context{
			FunctionName: sig.Name,
			ParamCount:   sig.ParamCount,
			TypeName:     sig.TypeName,
			ValueHint:    hint,
		},
		Source: source,
	}
	switch lang {
	case JavaScript:
		data.Candidates = scriptCandidates(source, sig.Name)
	case Java:
		data.Source, data.Imports = prepareJava(source)
	}

	var buf bytes.Buffer
	if err := drivers.ExecuteTemplate(&buf, file, data); err != nil {
		return Program{}, appErr.Wrapf(err, appErr.InternalServerError, "render %s driver", lang)
	}
	return Program{Language: lang, Source: buf.String(), Context: data.Context}, nil
}

var (
	scriptTopLevel = regexp.MustCompile(`(?m)^(?:export\s+)?(?:async\s+)?(?:function\s*\*?\s*|(?:var|let|const)\s+)([A-Za-z_$][\w$]*)`)
	identifier     = regexp.MustCompile(`^[A-Za-z_$][\w$]*$`)
)

var scriptReserved = map[string]bool{
	"break": true, "case": true, "catch": true, "class": true, "const": true,
	"continue": true, "debugger": true, "default": true, "delete": true,
	"do": true, "else": true, "export": true, "extends": true, "finally": true,
	"for": true, "function": true, "if": true, "import": true, "in": true,
	"instanceof": true, "let": true, "new": true, "return": true, "super": true,
	"switch": true, "this": true, "throw": true, "try": true, "typeof": true,
	"var": true, "void": true, "while": true, "with": true, "yield": true,
	"await": true, "enum": true, "static": true, "null": true, "true": true,
	"false": true,
}

// scriptCandidates lists the top-level names a JavaScript driver may fall
// back to, located name first. Harness names are never candidates.
func scriptCandidates(source, located string) []string {
	seen := map[string]bool{}
	var out []string
	add := func(name string) {
		if seen[name] || !identifier.MatchString(name) || scriptReserved[name] {
			return
		}
		if strings.HasPrefix(name, "__harness") {
			return
		}
		seen[name] = true
		out = append(out, name)
	}
	add(located)
	for _, m := range scriptTopLevel.FindAllStringSubmatch(source, -1) {
		add(m[1])
	}
	return out
}

var (
	javaPackage     = regexp.MustCompile(`(?m)^[ \t]*package\s+[\w.]+\s*;[ \t]*\r?\n?`)
	javaImport      = regexp.MustCompile(`(?m)^[ \t]*import\s+(?:static\s+)?[\w.]+(?:\.\*)?\s*;[ \t]*\r?\n?`)
	javaPublicClass = regexp.MustCompile(`\bpublic\s+((?:(?:final|abstract|static|strictfp)\s+)*(?:class|interface|enum|record)\s)`)
)

// driverImports are always present in the Java driver.
var driverImports = map[string]bool{
	"import java.io.*;":   true,
	"import java.util.*;": true,
}

// prepareJava drops the package clause, hoists imports and removes public
// from class declarations so Main stays the only public type in the file.
func prepareJava(source string) (string, []string) {
	var imports []string
	seen := map[string]bool{}
	for _, stmt := range javaImport.FindAllString(source, -1) {
		stmt = normalizeImport(stmt)
		if seen[stmt] || driverImports[stmt] {
			continue
		}
		seen[stmt] = true
		imports = append(imports, stmt)
	}
	sort.Strings(imports)

	body := javaPackage.ReplaceAllString(source, "")
	body = javaImport.ReplaceAllString(body, "")
	body = javaPublicClass.ReplaceAllString(body, "${1}")
	return body, imports
}

func normalizeImport(stmt string) string {
	stmt = strings.TrimSpace(stmt)
	stmt = strings.TrimSuffix(stmt, ";")
	return fmt.Sprintf("%s;", strings.Join(strings.Fields(stmt), " "))
}
