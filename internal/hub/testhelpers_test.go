package hub

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

var testKey = []byte("0123456789abcdef")

const testKeyHex = "30313233343536373839616263646566"

// fakeCloud is a minimal KAKU cloud for tests.
type fakeCloud struct {
	t *testing.T

	mu            sync.Mutex
	loginResponse string
	records       []syncRecord
	syncStatus    int
	commandFails  int // number of 503s before a command succeeds
	commands      []commandPayload
	calls         map[string]int
}

func newFakeCloud(t *testing.T) (*fakeCloud, *httptest.Server) {
	t.Helper()
	f := &fakeCloud{
		t:             t,
		loginResponse: `{"homes":[{"home_id":12345,"home_name":"Home","mac":"AABBCCDDEEFF","aes_key":"` + testKeyHex + `"}]}`,
		syncStatus:    http.StatusOK,
		calls:         make(map[string]int),
	}
	srv := httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeCloud) serve(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[r.URL.Path]++

	switch r.URL.Path {
	case "/account.php":
		_, _ = w.Write([]byte(f.loginResponse))
	case "/gateway.php":
		if f.syncStatus != http.StatusOK {
			w.WriteHeader(f.syncStatus)
			return
		}
		_ = json.NewEncoder(w).Encode(f.records)
	case "/command.php":
		if f.commandFails > 0 {
			f.commandFails--
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		plain, err := decrypt(testKey, r.PostForm.Get("command"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		var cmd commandPayload
		_ = json.Unmarshal(plain, &cmd)
		f.commands = append(f.commands, cmd)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeCloud) addRecord(id string, data, status any) {
	f.t.Helper()
	rec := syncRecord{ID: flexString(id)}
	if data != nil {
		rec.Data = mustEncrypt(f.t, data)
	}
	if status != nil {
		rec.Status = mustEncrypt(f.t, status)
	}
	f.mu.Lock()
	f.records = append(f.records, rec)
	f.mu.Unlock()
}

func (f *fakeCloud) callCount(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[path]
}

func mustEncrypt(t *testing.T, v any) string {
	t.Helper()
	plain, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	enc, err := encrypt(testKey, plain)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	return enc
}

func loggedInClient(t *testing.T, srv *httptest.Server, overrides map[int]Override) *Client {
	t.Helper()
	c := NewClient(NewSession(srv.URL, "user@example.com", "secret", 5*time.Second), overrides)
	c.SetRetry(RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2})
	if err := c.Login(t.Context()); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	return c
}
