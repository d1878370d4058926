package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/intake/internal/elevenlabs"
	"github.com/MikeSquared-Agency/intake/internal/interview"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeRemote serves the two ElevenLabs endpoints the reconciler uses.
type fakeRemote struct {
	mu            sync.Mutex
	conversations []map[string]any
	transcripts   map[string][]map[string]any
	failGet       map[string]int // conversation id -> status code
	failList      int
	calls         atomic.Int64
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		transcripts: make(map[string][]map[string]any),
		failGet:     make(map[string]int),
	}
}

func (f *fakeRemote) add(id string, messages ...elevenlabs.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.conversations = append(f.conversations, map[string]any{
		"conversation_id": id,
		"agent_id":        "agent_1",
		"status":          "done",
		"start_time":      "2025-03-01T10:00:00Z",
	})
	var msgs []map[string]any
	for _, m := range messages {
		msgs = append(msgs, map[string]any{"role": m.Role, "message": m.Message})
	}
	f.transcripts[id] = msgs
}

func (f *fakeRemote) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.calls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()

	if r.URL.Path == "/convai/conversations" {
		if f.failList != 0 {
			w.WriteHeader(f.failList)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"conversations": f.conversations})
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/convai/conversations/")
	if code, bad := f.failGet[id]; bad {
		w.WriteHeader(code)
		return
	}
	msgs, found := f.transcripts[id]
	if !found {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	json.NewEncoder(w).Encode(map[string]any{
		"conversation_id": id,
		"agent_id":        "agent_1",
		"status":          "done",
		"transcript":      msgs,
		"end_time":        "2025-03-01T10:20:00Z",
	})
}

func startRemote(t *testing.T, f *fakeRemote) *elevenlabs.Client {
	t.Helper()
	server := httptest.NewServer(f)
	t.Cleanup(server.Close)
	return elevenlabs.NewClient("test-key", elevenlabs.WithBaseURL(server.URL))
}

// memStore is an in-memory InterviewStore.
type memStore struct {
	mu        sync.Mutex
	records   []interview.Interview
	failKnown error
	failWrite map[string]error // conversation id -> insert/attach error
	failList  error
	writes    int
}

func newMemStore() *memStore {
	return &memStore{failWrite: make(map[string]error)}
}

func (m *memStore) KnownConversationIDs(ctx context.Context) (map[string]struct{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failKnown != nil {
		return nil, m.failKnown
	}
	ids := make(map[string]struct{})
	for _, r := range m.records {
		if r.ConversationID != nil {
			ids[*r.ConversationID] = struct{}{}
		}
	}
	return ids, nil
}

func (m *memStore) FindPlaceholder(ctx context.Context, agentID string) (*interview.Interview, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var candidates []interview.Interview
	for _, r := range m.records {
		if r.AgentID != nil && *r.AgentID == agentID && r.Status == interview.StatusScheduled && r.ConversationID == nil {
			candidates = append(candidates, r)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i].ScheduledAt, candidates[j].ScheduledAt
		if a == nil {
			return false
		}
		if b == nil {
			return true
		}
		return a.Before(*b)
	})
	c := candidates[0]
	return &c, nil
}

func (m *memStore) AttachConversation(ctx context.Context, id uuid.UUID, w interview.TranscriptWrite) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failWrite[w.ConversationID]; err != nil {
		return err
	}
	for i := range m.records {
		r := &m.records[i]
		if r.ID != id || r.ConversationID != nil {
			continue
		}
		m.apply(r, w)
		m.writes++
		return nil
	}
	return interview.ErrNotFound
}

func (m *memStore) InsertTranscribed(ctx context.Context, w interview.TranscriptWrite) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failWrite[w.ConversationID]; err != nil {
		return uuid.Nil, err
	}
	for _, r := range m.records {
		if r.ConversationID != nil && *r.ConversationID == w.ConversationID {
			return uuid.Nil, errors.New("duplicate conversation id")
		}
	}
	typ := interview.TypeDiscovery
	rec := interview.Interview{ID: uuid.New(), InterviewType: &typ, CreatedAt: time.Now()}
	m.apply(&rec, w)
	m.records = append(m.records, rec)
	m.writes++
	return rec.ID, nil
}

func (m *memStore) apply(r *interview.Interview, w interview.TranscriptWrite) {
	convID, agentID, text := w.ConversationID, w.AgentID, w.Text
	r.ConversationID = &convID
	r.AgentID = &agentID
	r.TranscriptRaw = w.Raw
	r.TranscriptText = &text
	r.Status = interview.StatusTranscribed
	r.StartedAt = w.StartedAt
	r.EndedAt = w.EndedAt
}

func (m *memStore) ListMissingTranscripts(ctx context.Context) ([]interview.Interview, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failList != nil {
		return nil, m.failList
	}
	var out []interview.Interview
	for _, r := range m.records {
		if r.ConversationID != nil && r.TranscriptText == nil {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStore) UpdateTranscript(ctx context.Context, id uuid.UUID, raw json.RawMessage, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.records {
		if m.records[i].ID == id {
			m.records[i].TranscriptRaw = raw
			m.records[i].TranscriptText = &text
			m.records[i].Status = interview.StatusTranscribed
			m.writes++
			return nil
		}
	}
	return interview.ErrNotFound
}

func (m *memStore) byConversation(id string) []interview.Interview {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []interview.Interview
	for _, r := range m.records {
		if r.ConversationID != nil && *r.ConversationID == id {
			out = append(out, r)
		}
	}
	return out
}

func (m *memStore) get(id uuid.UUID) interview.Interview {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.ID == id {
			return r
		}
	}
	return interview.Interview{}
}

func strPtr(s string) *string { return &s }

type recordingNotifier struct {
	reports []*Report
	err     error
}

func (n *recordingNotifier) NotifySync(ctx context.Context, report *Report) error {
	n.reports = append(n.reports, report)
	return n.err
}
