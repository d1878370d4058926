package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/MikeSquared-Agency/intake/internal/anthropic"
	"github.com/MikeSquared-Agency/intake/internal/api"
	"github.com/MikeSquared-Agency/intake/internal/config"
	"github.com/MikeSquared-Agency/intake/internal/openai"
	"github.com/MikeSquared-Agency/intake/internal/reconcile"
)

func init() {
	color.NoColor = true
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// isolateEnv unsets every variable config reads so defaults apply.
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"INTAKE_PORT", "DATABASE_URL", "LOG_LEVEL",
		"ELEVENLABS_API_KEY", "ELEVENLABS_INTERVIEW_AGENT_ID", "ELEVENLABS_BASE_URL",
		"ELEVENLABS_APP_URL", "ELEVENLABS_TIMEOUT",
		"NATS_URL", "NATS_TOKEN", "SLACK_BOT_TOKEN", "SLACK_SYNC_CHANNEL", "SYNC_SCHEDULE",
		"ANALYSIS_PROVIDER", "ANTHROPIC_API_KEY", "ANTHROPIC_MODEL",
		"OPENAI_API_KEY", "OPENAI_BASE_URL", "OPENAI_MODEL",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	t.Setenv("LOG_LEVEL", "error")
}

func TestPrintReport(t *testing.T) {
	var buf bytes.Buffer
	printReport(&buf, &reconcile.Report{
		Success: true,
		Message: "Synced 1 new, updated 2 existing",
		Synced:  1,
		Updated: 2,
		Errors:  []string{"Failed to sync conv_c: elevenlabs api error: 500"},
	})

	out := buf.String()
	for _, want := range []string{
		"✓ Synced 1 new, updated 2 existing",
		"new:     1",
		"updated: 2",
		"! 1 error(s)",
		"- Failed to sync conv_c",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestPrintReport_NoErrors(t *testing.T) {
	var buf bytes.Buffer
	printReport(&buf, &reconcile.Report{Message: "Synced 0 new, updated 0 existing", Errors: []string{}})
	if strings.Contains(buf.String(), "error(s)") {
		t.Errorf("expected no error section, got:\n%s", buf.String())
	}
}

func TestPrintStatus(t *testing.T) {
	var buf bytes.Buffer
	printStatus(&buf, &reconcile.Status{AgentID: "agent_1", TotalConversations: 7, InterviewURL: "https://example.test?agent_id=agent_1"})
	out := buf.String()
	if !strings.Contains(out, "agent_1") || !strings.Contains(out, "Conversations: 7") {
		t.Errorf("unexpected status output:\n%s", out)
	}
}

func TestLoadEnvFile(t *testing.T) {
	isolateEnv(t)

	if err := loadEnvFile(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Errorf("missing env file should be ignored, got %v", err)
	}

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("ELEVENLABS_INTERVIEW_AGENT_ID=agent_from_file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ELEVENLABS_INTERVIEW_AGENT_ID", "")
	os.Unsetenv("ELEVENLABS_INTERVIEW_AGENT_ID")
	if err := loadEnvFile(path); err != nil {
		t.Fatalf("loadEnvFile failed: %v", err)
	}
	if got := os.Getenv("ELEVENLABS_INTERVIEW_AGENT_ID"); got != "agent_from_file" {
		t.Errorf("expected agent_from_file, got %q", got)
	}
}

func TestIsMissing(t *testing.T) {
	err := &config.MissingError{Keys: []string{"DATABASE_URL"}}
	if !isMissing(err, "DATABASE_URL") {
		t.Error("expected DATABASE_URL to be reported missing")
	}
	if isMissing(err, "ELEVENLABS_API_KEY") {
		t.Error("did not expect ELEVENLABS_API_KEY to be reported missing")
	}
	if isMissing(errors.New("boom"), "DATABASE_URL") {
		t.Error("plain errors are never missing-config errors")
	}
}

func TestNewCompleter(t *testing.T) {
	cfg := config.Config{AnalysisProvider: "openai", OpenAIAPIKey: "sk-test", OpenAIModel: "gpt-4o-mini"}
	oc, ok := newCompleter(cfg, discardLogger()).(*openai.Client)
	if !ok {
		t.Fatal("expected openai client")
	}
	if oc.Model() != "gpt-4o-mini" {
		t.Errorf("expected model gpt-4o-mini, got %q", oc.Model())
	}

	for _, provider := range []string{"anthropic", "", "mystery"} {
		cfg := config.Config{AnalysisProvider: provider, AnthropicAPIKey: "sk-ant", AnthropicModel: "m"}
		ac, ok := newCompleter(cfg, discardLogger()).(*anthropic.Client)
		if !ok {
			t.Errorf("provider %q: expected anthropic client", provider)
			continue
		}
		if ac.Model() != "m" {
			t.Errorf("provider %q: expected model m, got %q", provider, ac.Model())
		}
	}
}

func TestReconciler_MissingConfig(t *testing.T) {
	d := &deps{cfg: config.Config{ElevenLabsAPIKey: "key", InterviewAgentID: "agent_1"}, logger: discardLogger()}
	_, err := d.reconciler()
	if !isMissing(err, "DATABASE_URL") {
		t.Errorf("expected missing DATABASE_URL, got %v", err)
	}

	d = &deps{cfg: config.Config{}, logger: discardLogger()}
	_, err = d.reconciler()
	if !isMissing(err, "ELEVENLABS_API_KEY") || !isMissing(err, "ELEVENLABS_INTERVIEW_AGENT_ID") {
		t.Errorf("expected missing elevenlabs keys, got %v", err)
	}
}

func fakeElevenLabs(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("xi-api-key") != "test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.URL.Path {
		case "/convai/conversations":
			json.NewEncoder(w).Encode(map[string]any{"conversations": []map[string]any{
				{"conversation_id": "conv_a", "agent_id": "agent_1", "status": "done", "start_time": "2025-03-01T10:00:00Z"},
			}})
		case "/convai/conversations/conv_a":
			json.NewEncoder(w).Encode(map[string]any{
				"conversation_id": "conv_a",
				"agent_id":        "agent_1",
				"status":          "done",
				"transcript": []map[string]any{
					{"role": "agent", "message": "How do orders arrive?"},
					{"role": "user", "message": "By fax."},
				},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestSyncCmd_EndToEndSQLite(t *testing.T) {
	isolateEnv(t)
	server := fakeElevenLabs(t)

	t.Setenv("ELEVENLABS_API_KEY", "test-key")
	t.Setenv("ELEVENLABS_INTERVIEW_AGENT_ID", "agent_1")
	t.Setenv("ELEVENLABS_BASE_URL", server.URL)
	t.Setenv("DATABASE_URL", "sqlite:"+filepath.Join(t.TempDir(), "intake.db"))

	run := func() *reconcile.Report {
		var out bytes.Buffer
		root := RootCmd()
		root.SetOut(&out)
		root.SetErr(io.Discard)
		root.SetArgs([]string{"sync", "--json", "--env-file", ""})
		if err := root.Execute(); err != nil {
			t.Fatalf("sync failed: %v", err)
		}
		var report reconcile.Report
		if err := json.Unmarshal(out.Bytes(), &report); err != nil {
			t.Fatalf("decode report: %v\n%s", err, out.String())
		}
		return &report
	}

	first := run()
	if first.Synced != 1 || first.Updated != 0 || len(first.Errors) != 0 {
		t.Errorf("unexpected first report %+v", first)
	}

	second := run()
	if second.Synced != 0 || second.Updated != 0 {
		t.Errorf("expected idempotent second run, got %+v", second)
	}
	if second.Message != "Synced 0 new, updated 0 existing" {
		t.Errorf("unexpected message %q", second.Message)
	}
}

func TestSyncCmd_FatalExitsWithError(t *testing.T) {
	isolateEnv(t)
	server := fakeElevenLabs(t)

	t.Setenv("ELEVENLABS_API_KEY", "wrong-key")
	t.Setenv("ELEVENLABS_INTERVIEW_AGENT_ID", "agent_1")
	t.Setenv("ELEVENLABS_BASE_URL", server.URL)
	t.Setenv("DATABASE_URL", "sqlite:"+filepath.Join(t.TempDir(), "intake.db"))

	var errOut bytes.Buffer
	root := RootCmd()
	root.SetOut(io.Discard)
	root.SetErr(&errOut)
	root.SetArgs([]string{"sync", "--env-file", ""})

	err := root.Execute()
	if err == nil {
		t.Fatal("expected error for rejected api key")
	}
	if !strings.Contains(err.Error(), "401") {
		t.Errorf("expected 401 in error, got %v", err)
	}
	if !strings.Contains(errOut.String(), "Failed to sync with ElevenLabs") {
		t.Errorf("expected failure banner, got %q", errOut.String())
	}
}

func TestSyncCmd_Unconfigured(t *testing.T) {
	isolateEnv(t)

	root := RootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"sync", "--env-file", ""})

	err := root.Execute()
	var missing *config.MissingError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingError, got %v", err)
	}
}

func TestSyncOptions_StatusOnlyWithoutDatabase(t *testing.T) {
	server := fakeElevenLabs(t)
	d := &deps{
		cfg: config.Config{
			ElevenLabsAPIKey:  "test-key",
			InterviewAgentID:  "agent_1",
			ElevenLabsBaseURL: server.URL,
		},
		logger: discardLogger(),
	}

	rec, opts := d.syncOptions()
	if rec != nil {
		t.Fatal("expected no runnable reconciler without a database")
	}
	handler := api.NewServer(0, discardLogger(), opts...).Handler()

	req := httptest.NewRequest(http.MethodGet, "/sync", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 from status, got %d: %s", w.Code, w.Body.String())
	}
	var status reconcile.Status
	if err := json.NewDecoder(w.Body).Decode(&status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status.AgentID != "agent_1" || status.TotalConversations != 1 {
		t.Errorf("unexpected status %+v", status)
	}

	req = httptest.NewRequest(http.MethodPost, "/sync", nil)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusInternalServerError || !strings.Contains(w.Body.String(), api.NotConfiguredDatabase) {
		t.Errorf("expected database error on run, got %d: %s", w.Code, w.Body.String())
	}
}

func TestSyncOptions_MissingElevenLabs(t *testing.T) {
	d := &deps{cfg: config.Config{}, logger: discardLogger()}
	rec, opts := d.syncOptions()
	if rec != nil {
		t.Fatal("expected no reconciler")
	}
	handler := api.NewServer(0, discardLogger(), opts...).Handler()

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sync", nil))
	if w.Code != http.StatusInternalServerError || !strings.Contains(w.Body.String(), api.NotConfiguredElevenLabs) {
		t.Errorf("expected elevenlabs error, got %d: %s", w.Code, w.Body.String())
	}
}

func TestTranscriptCmd(t *testing.T) {
	isolateEnv(t)
	server := fakeElevenLabs(t)

	t.Setenv("ELEVENLABS_API_KEY", "test-key")
	t.Setenv("ELEVENLABS_BASE_URL", server.URL)

	var out bytes.Buffer
	root := RootCmd()
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"transcript", "conv_a", "--env-file", ""})
	if err := root.Execute(); err != nil {
		t.Fatalf("transcript failed: %v", err)
	}
	for _, want := range []string{"Interviewer: How do orders arrive?", "Stakeholder: By fax."} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out.String())
		}
	}
}

func TestTranscriptCmd_MissingKey(t *testing.T) {
	isolateEnv(t)

	root := RootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"transcript", "conv_a", "--env-file", ""})
	if err := root.Execute(); !isMissing(err, "ELEVENLABS_API_KEY") {
		t.Errorf("expected missing ELEVENLABS_API_KEY, got %v", err)
	}
}
