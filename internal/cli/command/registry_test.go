package command_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"codejudge/internal/cli/command"
)

type executeBody struct {
	ProblemID string `json:"problemId"`
	Language  string `json:"language"`
	Code      string `json:"code"`
	Mode      string `json:"mode"`
	Inputs    []struct {
		Input  string `json:"input"`
		Output string `json:"output"`
	} `json:"inputs"`
}

func TestRegistryKeys(t *testing.T) {
	t.Parallel()

	commands := command.Registry()
	for _, key := range []string{"exec run", "exec submit", "exec get", "exec source", "harness inspect", "harness wrap", "judge languages", "judge leaderboard"} {
		cmd, ok := commands[key]
		if !ok {
			t.Fatalf("expected command %q to be registered", key)
		}
		if cmd.Help == "" {
			t.Fatalf("expected help text for %q", key)
		}
	}
	keys := command.SortedKeys(commands)
	if keys[0] != "exec get" {
		t.Fatalf("expected sorted keys to start with exec get, got %q", keys[0])
	}
}

func TestBuildRequestRunWithStdin(t *testing.T) {
	t.Parallel()

	cmd := command.Registry()["exec run"]
	params := command.Params{}
	params.Set("problem", "two-sum")
	params.Set("lang", "PYTHON")
	params.Set("code", "def f(a, b): return a + b")
	params.Set("stdin", `1\n2`)
	params.Set("expected", "3")

	req, err := command.BuildRequest(cmd, params)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if req.Method != "POST" || req.Path != "/api/v1/executions" {
		t.Fatalf("unexpected request %s %s", req.Method, req.Path)
	}
	var body executeBody
	if err := json.Unmarshal(req.Body, &body); err != nil {
		t.Fatalf("unmarshal body failed: %v", err)
	}
	if body.ProblemID != "two-sum" || body.Language != "PYTHON" || body.Mode != "RUN" {
		t.Fatalf("unexpected body: %+v", body)
	}
	if len(body.Inputs) != 1 || body.Inputs[0].Input != "1\n2" || body.Inputs[0].Output != "3" {
		t.Fatalf("expected one unescaped input, got %+v", body.Inputs)
	}
}

func TestBuildRequestRunWithInputsJSON(t *testing.T) {
	t.Parallel()

	cmd := command.Registry()["exec run"]
	params := command.Params{
		"problem_id":  "p1",
		"language":    "JAVASCRIPT",
		"code":        "function f(a) { return a }",
		"inputs_json": `[{"input":"1","output":"1"},{"input":"2","output":"2"}]`,
	}
	req, err := command.BuildRequest(cmd, params)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	var body executeBody
	if err := json.Unmarshal(req.Body, &body); err != nil {
		t.Fatalf("unmarshal body failed: %v", err)
	}
	if len(body.Inputs) != 2 {
		t.Fatalf("expected 2 inputs, got %d", len(body.Inputs))
	}

	params["inputs_json"] = `{"input":"1"}`
	if _, err := command.BuildRequest(cmd, params); err == nil {
		t.Fatalf("expected error for non-array inputs_json")
	}
}

func TestBuildRequestSubmitReadsCodeFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "Solution.java")
	source := "class Solution { int add(int a, int b) { return a + b; } }"
	if err := os.WriteFile(path, []byte(source), 0o600); err != nil {
		t.Fatalf("write file failed: %v", err)
	}
	cmd := command.Registry()["exec submit"]
	params := command.Params{"problem_id": "p1", "language": "JAVA", "file": path}
	params.Canonicalize(cmd.Fields)
	command.MarkFileInputs(params)
	if !command.IsFileMarker(params.Get("code")) {
		t.Fatalf("expected code to be marked as file input")
	}

	req, err := command.BuildRequest(cmd, params)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	var body executeBody
	if err := json.Unmarshal(req.Body, &body); err != nil {
		t.Fatalf("unmarshal body failed: %v", err)
	}
	if body.Code != source || body.Mode != "SUBMIT" || body.Inputs != nil {
		t.Fatalf("unexpected submit body: %+v", body)
	}
}

func TestBuildRequestPathsAndQueries(t *testing.T) {
	t.Parallel()

	commands := command.Registry()
	tests := []struct {
		name    string
		key     string
		params  command.Params
		path    string
		wantErr bool
	}{
		{name: "get", key: "exec get", params: command.Params{"id": "e1"}, path: "/api/v1/executions/e1"},
		{name: "source escapes", key: "exec source", params: command.Params{"id": "a/b"}, path: "/api/v1/executions/a%2Fb/source"},
		{name: "missing id", key: "exec get", params: command.Params{}, wantErr: true},
		{name: "leaderboard default", key: "judge leaderboard", params: command.Params{}, path: "/api/v1/leaderboard"},
		{name: "leaderboard limit", key: "judge leaderboard", params: command.Params{"limit": "5"}, path: "/api/v1/leaderboard?limit=5"},
		{name: "leaderboard bad limit", key: "judge leaderboard", params: command.Params{"limit": "-1"}, wantErr: true},
		{name: "local command", key: "harness wrap", params: command.Params{"language": "PYTHON", "code": "x"}, wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req, err := command.BuildRequest(commands[tt.key], tt.params)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got path %q", req.Path)
				}
				return
			}
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if req.Path != tt.path {
				t.Fatalf("expected path %q, got %q", tt.path, req.Path)
			}
			if req.Body != nil {
				t.Fatalf("expected no body for GET, got %s", req.Body)
			}
		})
	}
}

func TestResolveCodeRequiresSource(t *testing.T) {
	t.Parallel()

	if _, err := command.ResolveCode(command.Params{}); err == nil || !strings.Contains(err.Error(), "code is required") {
		t.Fatalf("expected code is required error, got %v", err)
	}
	if _, err := command.ResolveCode(command.Params{"code_file": filepath.Join(t.TempDir(), "missing.py")}); err == nil {
		t.Fatalf("expected read error for missing file")
	}
}

func TestUnescape(t *testing.T) {
	t.Parallel()

	if got := command.Unescape(`[1,2]\n3\tx`); got != "[1,2]\n3\tx" {
		t.Fatalf("unexpected unescape result %q", got)
	}
}
