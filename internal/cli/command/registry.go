package command

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// fileMarker stands in for a field whose value comes from a companion *_file field.
const fileMarker = "_file_"

func codeFields() []Field {
	return []Field{
		{Name: "code", Prompt: "code", Type: FieldString, Required: true},
		{Name: "code_file", Aliases: []string{"file"}, Prompt: "code_file", Type: FieldFile},
	}
}

// Registry returns all CLI commands keyed by "service action".
func Registry() map[string]Command {
	execFields := append([]Field{
		{Name: "problem_id", Aliases: []string{"problem"}, Prompt: "problem_id", Type: FieldString, Required: true},
		{Name: "language", Aliases: []string{"lang"}, Prompt: "language", Type: FieldString, Required: true},
		{Name: "stdin", Prompt: "stdin", Type: FieldString},
		{Name: "expected", Prompt: "expected", Type: FieldString},
		{Name: "inputs_json", Prompt: "inputs_json (JSON array)", Type: FieldJSON},
	}, codeFields()...)

	commands := []Command{
		{
			Service:      "exec",
			Action:       "run",
			Method:       "POST",
			PathTemplate: "/api/v1/executions",
			Fields:       execFields,
			Help:         "exec run problem_id=two-sum language=PYTHON code_file=./sol.py stdin='[2,7]\\n9' expected='[0,1]'",
		},
		{
			Service:      "exec",
			Action:       "submit",
			Method:       "POST",
			PathTemplate: "/api/v1/executions",
			Fields:       execFields,
			Help:         "exec submit problem_id=two-sum language=JAVA code_file=./Solution.java",
		},
		{
			Service:      "exec",
			Action:       "get",
			Method:       "GET",
			PathTemplate: "/api/v1/executions/:id",
			Fields: []Field{
				{Name: "id", Prompt: "execution_id", Type: FieldString, Required: true},
			},
			Help: "exec get id=<execution id>  (defaults to the last execution)",
		},
		{
			Service:      "exec",
			Action:       "source",
			Method:       "GET",
			PathTemplate: "/api/v1/executions/:id/source",
			Fields: []Field{
				{Name: "id", Prompt: "execution_id", Type: FieldString, Required: true},
			},
			Help: "exec source id=<execution id>",
		},
		{
			Service:      "harness",
			Action:       "inspect",
			Method:       "POST",
			PathTemplate: "/api/v1/harness/inspect",
			Fields: append([]Field{
				{Name: "language", Aliases: []string{"lang"}, Prompt: "language", Type: FieldString, Required: true},
				{Name: "stdin", Prompt: "stdin", Type: FieldString},
				{Name: "snippet", Prompt: "snippet", Type: FieldString},
			}, codeFields()...),
			Help: "harness inspect language=JAVASCRIPT code='function f(a, b) { return a + b }' stdin='1, 2'",
		},
		{
			Service: "harness",
			Action:  "wrap",
			Local:   true,
			Fields: append([]Field{
				{Name: "language", Aliases: []string{"lang"}, Prompt: "language", Type: FieldString, Required: true},
				{Name: "snippet", Prompt: "snippet", Type: FieldString},
				{Name: "out", Prompt: "out", Type: FieldString},
			}, codeFields()...),
			Help: "harness wrap language=PYTHON code_file=./sol.py out=./wrapped.py  (offline)",
		},
		{
			Service:      "judge",
			Action:       "languages",
			Method:       "GET",
			PathTemplate: "/api/v1/languages",
			Help:         "judge languages",
		},
		{
			Service:      "judge",
			Action:       "leaderboard",
			Method:       "GET",
			PathTemplate: "/api/v1/leaderboard",
			Fields: []Field{
				{Name: "limit", Prompt: "limit", Type: FieldInt},
			},
			Help: "judge leaderboard limit=10",
		},
	}

	result := make(map[string]Command, len(commands))
	for _, cmd := range commands {
		result[cmd.Key()] = cmd
	}
	return result
}

// SortedKeys lists command keys alphabetically.
func SortedKeys(commands map[string]Command) []string {
	keys := make([]string, 0, len(commands))
	for k := range commands {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// BuildRequest creates HTTP request spec based on command.
func BuildRequest(cmd Command, params Params) (RequestSpec, error) {
	if cmd.Local {
		return RequestSpec{}, fmt.Errorf("%s runs locally", cmd.Key())
	}
	params.Canonicalize(cmd.Fields)
	path, err := buildPath(cmd.PathTemplate, params)
	if err != nil {
		return RequestSpec{}, err
	}
	if cmd.Service == "judge" && cmd.Action == "leaderboard" && params.Get("limit") != "" {
		limit, err := ParseInt(params.Get("limit"))
		if err != nil || limit <= 0 {
			return RequestSpec{}, fmt.Errorf("invalid limit: %q", params.Get("limit"))
		}
		path += "?" + url.Values{"limit": {fmt.Sprint(limit)}}.Encode()
	}

	var body []byte
	if cmd.Method != "GET" && cmd.Method != "DELETE" {
		payload, err := buildPayload(cmd, params)
		if err != nil {
			return RequestSpec{}, err
		}
		if payload != nil {
			body, err = json.Marshal(payload)
			if err != nil {
				return RequestSpec{}, fmt.Errorf("marshal request body failed: %w", err)
			}
		}
	}

	return RequestSpec{
		Method:  cmd.Method,
		Path:    path,
		Headers: map[string]string{},
		Body:    body,
	}, nil
}

func buildPath(template string, params Params) (string, error) {
	path := template
	placeholder := ":id"
	if strings.Contains(path, placeholder) {
		value := params.Get("id")
		if value == "" {
			return "", fmt.Errorf("missing path parameter: id")
		}
		path = strings.ReplaceAll(path, placeholder, url.PathEscape(value))
	}
	return path, nil
}

func buildPayload(cmd Command, params Params) (interface{}, error) {
	switch cmd.Key() {
	case "exec run", "exec submit":
		return buildExecutePayload(strings.ToUpper(cmd.Action), params)
	case "harness inspect":
		code, err := ResolveCode(params)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{
			"language": params.Get("language"),
			"code":     code,
			"stdin":    Unescape(params.Get("stdin")),
			"snippet":  params.Get("snippet"),
		}, nil
	}
	return nil, nil
}

type testCase struct {
	Input  string `json:"input"`
	Output string `json:"output"`
}

func buildExecutePayload(mode string, params Params) (interface{}, error) {
	code, err := ResolveCode(params)
	if err != nil {
		return nil, err
	}
	payload := map[string]interface{}{
		"problemId": params.Get("problem_id"),
		"language":  params.Get("language"),
		"code":      code,
		"mode":      mode,
	}
	if mode != "RUN" {
		return payload, nil
	}
	switch {
	case params.Get("inputs_json") != "":
		raw, err := ParseJSON(params.Get("inputs_json"))
		if err != nil {
			return nil, fmt.Errorf("invalid inputs_json: %w", err)
		}
		var inputs []testCase
		if err := json.Unmarshal(raw, &inputs); err != nil {
			return nil, fmt.Errorf("inputs_json must be an array of {input, output}: %w", err)
		}
		payload["inputs"] = inputs
	case params.Get("stdin") != "":
		payload["inputs"] = []testCase{{
			Input:  Unescape(params.Get("stdin")),
			Output: Unescape(params.Get("expected")),
		}}
	}
	return payload, nil
}

// ResolveCode returns the inline code, or the content of code_file.
func ResolveCode(params Params) (string, error) {
	code := params.Get("code")
	if (code == "" || code == fileMarker) && params.Get("code_file") != "" {
		data, err := ReadFile(params.Get("code_file"))
		if err != nil {
			return "", err
		}
		code = data
	}
	if code == "" || code == fileMarker {
		return "", fmt.Errorf("code is required")
	}
	return code, nil
}

// MarkFileInputs flags code as coming from code_file so it is not prompted for.
func MarkFileInputs(params Params) {
	if params.Get("code_file") != "" && params.Get("code") == "" {
		params.Set("code", fileMarker)
	}
}

// IsFileMarker reports whether a value defers to a *_file field.
func IsFileMarker(value string) bool {
	return value == fileMarker
}
