package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"cancioneiro/internal/services/jobs/domain"

	"github.com/google/uuid"
)

func TestHTTPTrigger_PostsCursor(t *testing.T) {
	t.Parallel()
	id := uuid.New()
	var got domain.ContinueInput
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/jobs/"+id.String()+"/continue" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	tr := NewHTTPTrigger(TriggerOptions{BaseURL: srv.URL + "/", Timeout: time.Second})
	if err := tr.Trigger(context.Background(), id, domain.Cursor{Song: 2, Word: 7}); err != nil {
		t.Fatalf("trigger: %v", err)
	}
	if got.Cursor != (domain.Cursor{Song: 2, Word: 7}) {
		t.Fatalf("cursor = %+v", got.Cursor)
	}
}

func TestHTTPTrigger_RetriesServerErrors(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	tr := NewHTTPTrigger(TriggerOptions{BaseURL: srv.URL, Attempts: 3, Backoff: time.Millisecond})
	if err := tr.Trigger(context.Background(), uuid.New(), domain.Cursor{}); err != nil {
		t.Fatalf("trigger: %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("calls = %d, want 3", calls.Load())
	}
}

func TestHTTPTrigger_ClientErrorIsFinal(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	tr := NewHTTPTrigger(TriggerOptions{BaseURL: srv.URL, Attempts: 3, Backoff: time.Millisecond})
	if err := tr.Trigger(context.Background(), uuid.New(), domain.Cursor{}); err == nil {
		t.Fatal("want error")
	}
	if calls.Load() != 1 {
		t.Fatalf("calls = %d, want 1", calls.Load())
	}
}

func TestHTTPTrigger_IgnoresCallerCancel(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tr := NewHTTPTrigger(TriggerOptions{BaseURL: srv.URL})
	if err := tr.Trigger(ctx, uuid.New(), domain.Cursor{}); err != nil {
		t.Fatalf("trigger after caller cancel: %v", err)
	}
}
