package repl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"codejudge/internal/cli/command"
	httpclient "codejudge/internal/cli/http"
	"codejudge/internal/cli/state"
	"codejudge/internal/judge/harness"
	pkgerrors "codejudge/pkg/errors"

	"github.com/chzyer/readline"
	"github.com/google/shlex"
)

const defaultPrompt = "codejudge> "

// LineReader is the line source of a session. *readline.Instance satisfies it.
type LineReader interface {
	Readline() (string, error)
	SetPrompt(prompt string)
}

// Session holds REPL state.
type Session struct {
	client     *httpclient.Client
	commands   map[string]command.Command
	state      *state.SessionState
	statePath  string
	prettyJSON bool
	reader     LineReader
	out        io.Writer
}

func New(client *httpclient.Client, commands map[string]command.Command, st *state.SessionState, statePath string, prettyJSON bool, reader LineReader, out io.Writer) *Session {
	return &Session{
		client:     client,
		commands:   commands,
		state:      st,
		statePath:  statePath,
		prettyJSON: prettyJSON,
		reader:     reader,
		out:        out,
	}
}

// Completer offers service and action names for tab completion.
func Completer(commands map[string]command.Command) *readline.PrefixCompleter {
	actions := map[string][]readline.PrefixCompleterInterface{}
	var services []string
	for _, key := range command.SortedKeys(commands) {
		cmd := commands[key]
		if _, ok := actions[cmd.Service]; !ok {
			services = append(services, cmd.Service)
		}
		actions[cmd.Service] = append(actions[cmd.Service], readline.PcItem(cmd.Action))
	}
	items := make([]readline.PrefixCompleterInterface, 0, len(services)+5)
	for _, svc := range services {
		items = append(items, readline.PcItem(svc, actions[svc]...))
	}
	items = append(items,
		readline.PcItem("help"),
		readline.PcItem("exit"),
		readline.PcItem("set", readline.PcItem("base"), readline.PcItem("timeout"), readline.PcItem("user")),
		readline.PcItem("show", readline.PcItem("config"), readline.PcItem("user")),
	)
	return readline.NewPrefixCompleter(items...)
}

// Run reads commands until exit or end of input.
func (s *Session) Run(ctx context.Context) {
	s.reader.SetPrompt(defaultPrompt)
	for {
		line, err := s.reader.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			s.printLine("read input failed: %v", err)
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		handled, exit := s.handleSystemCommand(line)
		if exit {
			return
		}
		if handled {
			continue
		}
		if err := s.handleCommand(ctx, line); err != nil {
			s.printLine("error: %v", err)
		}
	}
}

func (s *Session) handleSystemCommand(line string) (bool, bool) {
	switch line {
	case "exit", "quit":
		s.printLine("bye")
		return true, true
	case "help":
		s.printHelp()
		return true, false
	}
	if strings.HasPrefix(line, "set ") {
		s.handleSet(strings.TrimSpace(strings.TrimPrefix(line, "set ")))
		return true, false
	}
	if strings.HasPrefix(line, "show ") {
		s.handleShow(strings.TrimSpace(strings.TrimPrefix(line, "show ")))
		return true, false
	}
	return false, false
}

func (s *Session) handleSet(args string) {
	parts := strings.Fields(args)
	if len(parts) == 0 {
		s.printLine("usage: set base|timeout|user")
		return
	}
	switch parts[0] {
	case "base":
		if len(parts) < 2 {
			s.printLine("usage: set base http://127.0.0.1:8087")
			return
		}
		s.client.SetBaseURL(parts[1])
		s.printLine("base set to %s", parts[1])
	case "timeout":
		if len(parts) < 2 {
			s.printLine("usage: set timeout 90s")
			return
		}
		dur, err := time.ParseDuration(parts[1])
		if err != nil {
			s.printLine("invalid duration: %v", err)
			return
		}
		s.client.SetTimeout(dur)
		s.printLine("timeout set to %s", dur)
	case "user":
		if len(parts) < 2 {
			s.printLine("usage: set user <user id>")
			return
		}
		s.state.UserID = parts[1]
		s.saveState()
		s.printLine("user set to %s", parts[1])
	default:
		s.printLine("unknown set command")
	}
}

func (s *Session) handleShow(args string) {
	switch args {
	case "user":
		if s.state.UserID == "" {
			s.printLine("user: <anonymous>")
			return
		}
		s.printLine("user: %s", s.state.UserID)
	case "config":
		s.printLine("base: %s", s.client.BaseURL())
		s.printLine("statePath: %s", s.statePath)
		s.printLine("lastExecution: %s", s.state.LastExecutionID)
	default:
		s.printLine("usage: show user|config")
	}
}

func (s *Session) handleCommand(ctx context.Context, line string) error {
	tokens, err := shlex.Split(line)
	if err != nil {
		return fmt.Errorf("parse command failed: %w", err)
	}
	if len(tokens) < 2 {
		return fmt.Errorf("invalid command, use: <service> <action> key=value ...")
	}
	key := fmt.Sprintf("%s %s", tokens[0], tokens[1])
	cmd, ok := s.commands[key]
	if !ok {
		return fmt.Errorf("unknown command: %s", key)
	}
	params := command.Params{}
	for _, token := range tokens[2:] {
		parts := strings.SplitN(token, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid param: %s", token)
		}
		params.Set(parts[0], parts[1])
	}
	params.Canonicalize(cmd.Fields)

	s.applyParamShortcuts(cmd, params)
	if err := s.promptMissing(cmd, params); err != nil {
		return err
	}
	if cmd.Local {
		return s.runLocal(cmd, params)
	}
	req, err := command.BuildRequest(cmd, params)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(ctx, req.Method, req.Path, req.Headers, req.Body)
	if err != nil {
		return err
	}
	s.renderResponse(resp)
	s.rememberExecution(cmd, resp.Body)
	return nil
}

func (s *Session) applyParamShortcuts(cmd command.Command, params command.Params) {
	command.MarkFileInputs(params)
	if cmd.Service == "exec" && (cmd.Action == "get" || cmd.Action == "source") {
		if params.Get("id") == "" && s.state.LastExecutionID != "" {
			params.Set("id", s.state.LastExecutionID)
		}
	}
}

func (s *Session) promptMissing(cmd command.Command, params command.Params) error {
	for _, field := range cmd.Fields {
		if !field.Required {
			continue
		}
		value := params.Get(field.Name)
		if value != "" || command.IsFileMarker(value) {
			continue
		}
		value, err := s.promptValue(field.Prompt)
		if err != nil {
			return err
		}
		params.Set(field.Name, value)
	}
	return nil
}

func (s *Session) promptValue(prompt string) (string, error) {
	s.reader.SetPrompt(prompt + ": ")
	defer s.reader.SetPrompt(defaultPrompt)
	line, err := s.reader.Readline()
	if err != nil {
		return "", fmt.Errorf("read input failed: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// runLocal synthesizes the driver program without contacting the server.
func (s *Session) runLocal(cmd command.Command, params command.Params) error {
	lang, err := harness.ParseLanguage(params.Get("language"))
	if err != nil {
		return err
	}
	code, err := command.ResolveCode(params)
	if err != nil {
		return err
	}
	program, err := harness.Synthesize(lang, code, harness.DetectValueHint(params.Get("snippet")))
	if err != nil {
		return err
	}
	s.printLine("function=%s params=%d type=%s hint=%s",
		program.Context.FunctionName, program.Context.ParamCount, program.Context.TypeName, program.Context.ValueHint)
	if out := params.Get("out"); out != "" {
		if err := os.WriteFile(out, []byte(program.Source), 0o644); err != nil {
			return fmt.Errorf("write program failed: %w", err)
		}
		s.printLine("wrote %s", out)
		return nil
	}
	s.printLine("%s", program.Source)
	return nil
}

func (s *Session) renderResponse(resp httpclient.ResponseInfo) {
	s.printLine("HTTP %d (%s)", resp.StatusCode, resp.Duration)
	if len(resp.Body) == 0 {
		return
	}
	if s.prettyJSON {
		var raw interface{}
		if err := json.Unmarshal(resp.Body, &raw); err == nil {
			formatted, _ := json.MarshalIndent(raw, "", "  ")
			s.printLine("%s", string(formatted))
			return
		}
	}
	s.printLine("%s", string(resp.Body))
}

func (s *Session) rememberExecution(cmd command.Command, body []byte) {
	if cmd.Service != "exec" || (cmd.Action != "run" && cmd.Action != "submit") {
		return
	}
	type respEnvelope struct {
		Code int `json:"code"`
		Data struct {
			ExecutionID string `json:"executionId"`
		} `json:"data"`
	}
	var resp respEnvelope
	if err := json.Unmarshal(body, &resp); err != nil {
		return
	}
	if resp.Code != int(pkgerrors.Success) || resp.Data.ExecutionID == "" {
		return
	}
	s.state.LastExecutionID = resp.Data.ExecutionID
	s.saveState()
}

func (s *Session) saveState() {
	if err := state.Save(s.statePath, *s.state); err != nil {
		s.printLine("save state failed: %v", err)
	}
}

func (s *Session) printHelp() {
	s.printLine("usage: <service> <action> key=value ...")
	s.printLine("system: help | exit | set base|timeout|user | show user|config")
	s.printLine("commands:")
	for _, key := range command.SortedKeys(s.commands) {
		s.printLine("  %s", s.commands[key].Help)
	}
}

func (s *Session) printLine(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(s.out, format+"\n", args...)
}
