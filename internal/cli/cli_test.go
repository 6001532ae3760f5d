// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jeranaias/folio/internal/backend"
	"github.com/jeranaias/folio/internal/config"
	"github.com/jeranaias/folio/internal/widget"
)

// =============================================================================
// ARG PARSER TESTS (args.go)
// =============================================================================

func TestArgParser_BasicParsing(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		switches []string
		wantSub  string
		validate func(*testing.T, *ArgParser)
	}{
		{
			name:    "simple subcommand",
			args:    []string{"show"},
			wantSub: "show",
		},
		{
			name:    "subcommand with flag",
			args:    []string{"serve", "--addr", "0.0.0.0:9000"},
			wantSub: "serve",
			validate: func(t *testing.T, p *ArgParser) {
				if p.Flag("addr") != "0.0.0.0:9000" {
					t.Errorf("Flag(addr) = %q, want %q", p.Flag("addr"), "0.0.0.0:9000")
				}
			},
		},
		{
			name:    "flag with equals",
			args:    []string{"show", "--addr=:8000"},
			wantSub: "show",
			validate: func(t *testing.T, p *ArgParser) {
				if p.Flag("addr") != ":8000" {
					t.Errorf("Flag(addr) = %q, want %q", p.Flag("addr"), ":8000")
				}
			},
		},
		{
			name:     "switch never takes a value",
			args:     []string{"--json", "hello", "world"},
			switches: []string{"json"},
			wantSub:  "hello",
			validate: func(t *testing.T, p *ArgParser) {
				if !p.BoolFlag("json") {
					t.Error("BoolFlag(json) should be true")
				}
				if got := strings.Join(p.PositionalFrom(0), " "); got != "hello world" {
					t.Errorf("positionals = %q, want %q", got, "hello world")
				}
			},
		},
		{
			name:    "double dash ends flags",
			args:    []string{"--", "--not-a-flag", "x"},
			wantSub: "--not-a-flag",
			validate: func(t *testing.T, p *ArgParser) {
				if p.BoolFlag("not-a-flag") {
					t.Error("flag after -- must stay positional")
				}
			},
		},
		{
			name:    "short flag alias",
			args:    []string{"-a", "localhost:1"},
			wantSub: "",
			validate: func(t *testing.T, p *ArgParser) {
				if p.Flag("addr", "a") != "localhost:1" {
					t.Errorf("Flag(addr, a) = %q", p.Flag("addr", "a"))
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewArgParser(tt.args, tt.switches...)
			if got := p.Subcommand(); got != tt.wantSub {
				t.Errorf("Subcommand() = %q, want %q", got, tt.wantSub)
			}
			if tt.validate != nil {
				tt.validate(t, p)
			}
		})
	}
}

func TestArgParser_FlagInt(t *testing.T) {
	p := NewArgParser([]string{"--limit", "7", "--bad", "x1"})

	if n, err := p.FlagInt(3, "limit"); err != nil || n != 7 {
		t.Errorf("FlagInt(limit) = %d, %v; want 7, nil", n, err)
	}
	if n, err := p.FlagInt(3, "missing"); err != nil || n != 3 {
		t.Errorf("FlagInt(missing) = %d, %v; want 3, nil", n, err)
	}
	if _, err := p.FlagInt(3, "bad"); err == nil {
		t.Error("FlagInt(bad) should fail")
	}
}

func TestArgParser_OutOfRange(t *testing.T) {
	p := NewArgParser(nil)
	if p.Positional(0) != "" || p.Positional(-1) != "" {
		t.Error("Positional out of range should be empty")
	}
	if p.PositionalFrom(2) != nil {
		t.Error("PositionalFrom out of range should be nil")
	}
}

// =============================================================================
// COMMAND PARSING TESTS (cli.go)
// =============================================================================

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name    string
		argv    []string
		wantCmd Command
		wantErr bool
		check   func(*testing.T, Args)
	}{
		{name: "no args opens the tui", argv: nil, wantCmd: CmdTUI},
		{
			name:    "tui --open",
			argv:    []string{"tui", "--open"},
			wantCmd: CmdTUI,
			check: func(t *testing.T, a Args) {
				if !a.Open {
					t.Error("Open should be set")
				}
			},
		},
		{
			name:    "ask joins words",
			argv:    []string{"ask", "what", "do", "you", "build?"},
			wantCmd: CmdAsk,
			check: func(t *testing.T, a Args) {
				if a.Query != "what do you build?" {
					t.Errorf("Query = %q", a.Query)
				}
			},
		},
		{
			name:    "global flags anywhere",
			argv:    []string{"ask", "--json", "hi", "--backend", "http://x:1"},
			wantCmd: CmdAsk,
			check: func(t *testing.T, a Args) {
				if !a.JSON || a.BackendURL != "http://x:1" || a.Query != "hi" {
					t.Errorf("args = %+v", a)
				}
			},
		},
		{
			name:    "config path with equals",
			argv:    []string{"--config=/tmp/f.toml", "config", "path"},
			wantCmd: CmdConfig,
			check: func(t *testing.T, a Args) {
				if a.ConfigPath != "/tmp/f.toml" || a.Subcommand != "path" {
					t.Errorf("args = %+v", a)
				}
			},
		},
		{
			name:    "serve flags",
			argv:    []string{"serve", "--watch", "--addr", ":9001"},
			wantCmd: CmdServe,
			check: func(t *testing.T, a Args) {
				if !a.Watch || a.Addr != ":9001" {
					t.Errorf("args = %+v", a)
				}
			},
		},
		{
			name:    "serve port",
			argv:    []string{"serve", "--port", "9002"},
			wantCmd: CmdServe,
			check: func(t *testing.T, a Args) {
				if a.Port != 9002 {
					t.Errorf("Port = %d", a.Port)
				}
			},
		},
		{name: "serve bad port", argv: []string{"serve", "--port", "http"}, wantCmd: CmdServe, wantErr: true},
		{name: "version", argv: []string{"version"}, wantCmd: CmdVersion},
		{name: "help flag", argv: []string{"--help"}, wantCmd: CmdHelp},
		{name: "ask without question", argv: []string{"ask", "  "}, wantCmd: CmdAsk, wantErr: true},
		{name: "unknown config subcommand", argv: []string{"config", "set"}, wantCmd: CmdConfig, wantErr: true},
		{name: "unknown command", argv: []string{"deploy"}, wantCmd: CmdHelp, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, args, err := ParseArgs(tt.argv)
			if cmd != tt.wantCmd {
				t.Errorf("cmd = %v, want %v", cmd, tt.wantCmd)
			}
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrUsage) {
				t.Errorf("parse errors should wrap ErrUsage, got %v", err)
			}
			if tt.check != nil {
				tt.check(t, args)
			}
		})
	}
}

// =============================================================================
// EXIT CODES (errors.go)
// =============================================================================

func TestExitCode(t *testing.T) {
	bad := config.Default()
	bad.Widget.BackendURL = "ftp://nowhere"
	verr := bad.Validate()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"usage", UsageError("nope"), ExitUsageError},
		{"config", verr, ExitConfigError},
		{"wrapped config", errors.Join(errors.New("load"), verr), ExitConfigError},
		{"reply failed", ErrReplyFailed, ExitReplyFailed},
		{"other", errors.New("boom"), ExitGeneralError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestDisplayError(t *testing.T) {
	var buf bytes.Buffer
	DisplayError(&buf, ErrReplyFailed)
	if buf.Len() != 0 {
		t.Errorf("ErrReplyFailed should print nothing, got %q", buf.String())
	}

	DisplayError(&buf, UsageError("bad flag"))
	out := buf.String()
	if !strings.Contains(out, "bad flag") || !strings.Contains(out, "folio help") {
		t.Errorf("usage error output = %q", out)
	}
}

// =============================================================================
// ASK (ask.go)
// =============================================================================

// newAskConfig isolates the config directory and points the widget at url.
func newAskConfig(t *testing.T, url string) *config.Config {
	t.Helper()
	t.Setenv("FOLIO_HOME", t.TempDir())
	cfg := config.Default()
	cfg.Widget.BackendURL = url
	return cfg
}

func TestHandleAsk_Success(t *testing.T) {
	var gotSession string
	var gotReq backend.ChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSession = r.Header.Get(backend.SessionHeader)
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		_ = json.NewEncoder(w).Encode(backend.ChatResponse{Response: "I build terminal tools."})
	}))
	defer srv.Close()

	var out bytes.Buffer
	err := HandleAsk(context.Background(), &out, newAskConfig(t, srv.URL), Args{Query: "What do you build?"})
	if err != nil {
		t.Fatalf("HandleAsk() error = %v", err)
	}
	if gotReq.Message != "What do you build?" {
		t.Errorf("sent message = %q", gotReq.Message)
	}
	if gotSession == "" {
		t.Error("session header should be set")
	}
	if !strings.Contains(out.String(), "I build terminal tools.") {
		t.Errorf("output = %q", out.String())
	}
}

func TestHandleAsk_FailurePrintsClassifiedMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	var out bytes.Buffer
	err := HandleAsk(context.Background(), &out, newAskConfig(t, srv.URL), Args{Query: "hi"})
	if !errors.Is(err, ErrReplyFailed) {
		t.Fatalf("err = %v, want ErrReplyFailed", err)
	}
	if !strings.Contains(out.String(), widget.QuotaMessage) {
		t.Errorf("output = %q, want the quota message", out.String())
	}
}

func TestHandleAsk_JSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(backend.ErrorResponse{Detail: "Key revoked"})
	}))
	defer srv.Close()

	var out bytes.Buffer
	err := HandleAsk(context.Background(), &out, newAskConfig(t, srv.URL), Args{Query: "hi", JSON: true})
	if !errors.Is(err, ErrReplyFailed) {
		t.Fatalf("err = %v, want ErrReplyFailed", err)
	}

	var res AskResult
	if err := json.Unmarshal(out.Bytes(), &res); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out.String())
	}
	if res.OK || res.Reply != "Key revoked" || res.Status != http.StatusUnauthorized || res.Question != "hi" {
		t.Errorf("result = %+v", res)
	}
	if res.Kind != widget.KindAuthMisconfigured.String() {
		t.Errorf("kind = %q", res.Kind)
	}
}

func TestHandleAsk_BackendDown(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	var out bytes.Buffer
	err := HandleAsk(context.Background(), &out, newAskConfig(t, url), Args{Query: "anyone there?"})
	if !errors.Is(err, ErrReplyFailed) {
		t.Fatalf("err = %v, want ErrReplyFailed", err)
	}
	if !strings.Contains(out.String(), widget.GenericMessage) {
		t.Errorf("output = %q", out.String())
	}
}

// =============================================================================
// CONFIG (config.go, setup.go)
// =============================================================================

func TestHandleConfig_InitPathShow(t *testing.T) {
	home := t.TempDir()
	t.Setenv("FOLIO_HOME", home)
	t.Setenv("MISTRAL_API_KEY", "sk-test-secret")
	want := filepath.Join(home, "config.toml")

	var out bytes.Buffer
	if err := HandleConfig(&out, Args{Subcommand: "path", JSON: true}); err != nil {
		t.Fatalf("path: %v", err)
	}
	var pd ConfigPathData
	if err := json.Unmarshal(out.Bytes(), &pd); err != nil {
		t.Fatalf("path output: %v", err)
	}
	if pd.Path != want || pd.Exists {
		t.Errorf("path = %+v, want %s (missing)", pd, want)
	}

	out.Reset()
	if err := HandleConfig(&out, Args{Subcommand: "init"}); err != nil {
		t.Fatalf("init: %v", err)
	}
	info, err := os.Stat(want)
	if err != nil {
		t.Fatalf("config not written: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("config perm = %o, want 0600", perm)
	}
	if err := HandleConfig(&out, Args{Subcommand: "init"}); err == nil {
		t.Error("second init should refuse to overwrite")
	}

	out.Reset()
	if err := HandleConfig(&out, Args{Subcommand: "show"}); err != nil {
		t.Fatalf("show: %v", err)
	}
	if strings.Contains(out.String(), "sk-test-secret") {
		t.Error("config show leaked the API key")
	}
	if !strings.Contains(out.String(), "[widget]") {
		t.Errorf("show output = %q", out.String())
	}
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("FOLIO_HOME", t.TempDir())

	cfg, err := LoadConfig(Args{BackendURL: "https://chat.example.com", Verbose: true})
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Widget.BackendURL != "https://chat.example.com" || cfg.Log.Level != "debug" {
		t.Errorf("overrides not applied: %+v", cfg.Widget)
	}

	_, err = LoadConfig(Args{BackendURL: "not a url"})
	if ExitCode(err) != ExitConfigError {
		t.Errorf("bad backend URL: ExitCode = %d, err = %v", ExitCode(err), err)
	}
}

// =============================================================================
// VERSION / MISC
// =============================================================================

func TestRun_Version(t *testing.T) {
	var out bytes.Buffer
	if err := Run(context.Background(), &out, CmdVersion, Args{JSON: true}); err != nil {
		t.Fatal(err)
	}
	var v VersionData
	if err := json.Unmarshal(out.Bytes(), &v); err != nil {
		t.Fatalf("version output: %v", err)
	}
	if v.Version != Version || v.GoVersion == "" {
		t.Errorf("version = %+v", v)
	}
}

func TestAssistantTitle(t *testing.T) {
	tests := map[string]string{
		"Anmol Kashyap": "Anmol's AI Assistant",
		"Cher":          "Cher's AI Assistant",
		"  ":            "AI Assistant",
	}
	for name, want := range tests {
		if got := assistantTitle(name); got != want {
			t.Errorf("assistantTitle(%q) = %q, want %q", name, got, want)
		}
	}
}
