package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/LeventeLantos/weekly-quiz-bot/internal/config"
	"github.com/LeventeLantos/weekly-quiz-bot/internal/model"
	"github.com/LeventeLantos/weekly-quiz-bot/internal/repo"
	"github.com/LeventeLantos/weekly-quiz-bot/internal/service"
)

func TestLoggingMiddleware_PassesThroughAndCapturesStatus(t *testing.T) {
	var gotID string
	handler := loggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = service.RequestID(r.Context())
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("ok"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, rr.Code)
	}
	if body := rr.Body.String(); body != "ok" {
		t.Fatalf("expected body %q, got %q", "ok", body)
	}
	if gotID == "" || rr.Header().Get(requestIDHeader) != gotID {
		t.Fatalf("expected generated request id echoed, ctx=%q header=%q", gotID, rr.Header().Get(requestIDHeader))
	}
}

func TestLoggingMiddleware_KeepsIncomingRequestID(t *testing.T) {
	var gotID string
	handler := loggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = service.RequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodPost, "/webhook", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if gotID != "abc-123" || rr.Header().Get(requestIDHeader) != "abc-123" {
		t.Fatalf("expected incoming id kept, ctx=%q header=%q", gotID, rr.Header().Get(requestIDHeader))
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer

	newLogger(config.LogConfig{Level: "warn", Format: "json"}, &buf).Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("info should be filtered at warn level, got %q", buf.String())
	}

	newLogger(config.LogConfig{Level: "debug", Format: "text"}, &buf).Debug("shown", "k", "v")
	if !strings.Contains(buf.String(), "msg=shown") {
		t.Fatalf("expected text output, got %q", buf.String())
	}

	buf.Reset()
	newLogger(config.LogConfig{Level: "bogus", Format: "json"}, &buf).Info("fallback")
	if !strings.Contains(buf.String(), `"msg":"fallback"`) {
		t.Fatalf("expected json output at info, got %q", buf.String())
	}
}

type fakeBlacklister struct {
	users       map[string]*model.User
	blacklisted []int64
	err         error
}

var _ userBlacklister = (*fakeBlacklister)(nil)

func (f *fakeBlacklister) GetByPhone(ctx context.Context, phone string) (*model.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	if u, ok := f.users[phone]; ok {
		return u, nil
	}
	return nil, repo.ErrUserNotFound
}

func (f *fakeBlacklister) Create(ctx context.Context, phone string) (*model.User, error) {
	u := &model.User{ID: int64(len(f.users) + 1), PhoneNumber: phone}
	f.users[phone] = u
	return u, nil
}

func (f *fakeBlacklister) Blacklist(ctx context.Context, id int64) error {
	f.blacklisted = append(f.blacklisted, id)
	return nil
}

func TestRunCommand_Blacklist(t *testing.T) {
	f := &fakeBlacklister{users: map[string]*model.User{"51999": {ID: 7, PhoneNumber: "51999"}}}

	if err := runCommand(context.Background(), f, []string{"blacklist", "51999"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := runCommand(context.Background(), f, []string{"blacklist", " 51000 "}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.blacklisted) != 2 || f.blacklisted[0] != 7 {
		t.Fatalf("unexpected blacklisted ids %v", f.blacklisted)
	}
	if _, ok := f.users["51000"]; !ok {
		t.Fatalf("expected unknown number to be created before blacklisting")
	}
}

func TestRunCommand_Errors(t *testing.T) {
	f := &fakeBlacklister{users: map[string]*model.User{}}

	for _, args := range [][]string{{"blacklist"}, {"blacklist", " "}, {"purge", "51999"}} {
		if err := runCommand(context.Background(), f, args); err == nil {
			t.Fatalf("expected error for %v", args)
		}
	}

	f.err = errors.New("db down")
	if err := runCommand(context.Background(), f, []string{"blacklist", "51999"}); err == nil {
		t.Fatalf("expected lookup error")
	}
}
