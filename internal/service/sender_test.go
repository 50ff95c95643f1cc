package service_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/LeventeLantos/weekly-quiz-bot/internal/client"
	"github.com/LeventeLantos/weekly-quiz-bot/internal/model"
	"github.com/LeventeLantos/weekly-quiz-bot/internal/service"
)

func TestSender_DeliversThroughCloudAPI(t *testing.T) {
	t.Parallel()

	var (
		mu    sync.Mutex
		types []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		var req struct {
			Type string `json:"type"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		mu.Lock()
		types = append(types, req.Type)
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"messaging_product": "whatsapp",
			"messages":          []map[string]string{{"id": "wamid.HBgL"}},
		})
	}))
	t.Cleanup(srv.Close)

	c := client.NewWhatsAppClient(srv.URL, "1234", "token")
	sender := service.NewSender(c, 160)

	var remoteIDs []string
	sender.WithHooks(
		func(ctx context.Context, to string, d model.Directive, remoteMessageID string) {
			remoteIDs = append(remoteIDs, remoteMessageID)
		},
		func(ctx context.Context, to string, d model.Directive, reason string) {
			t.Errorf("did not expect failure hook, got %s", reason)
		},
	)

	sent, failed := sender.Deliver(context.Background(), "51999", []model.Directive{
		{Kind: model.DirectiveText, Body: "hola"},
		{Kind: model.DirectiveButtons, Body: "¿Sí?", Buttons: []model.Button{{ID: "yes_button", Title: "Sí"}, {ID: "no_button", Title: "No"}}},
		{Kind: model.DirectiveList, Body: "Elige", ButtonText: "Ver", Sections: []model.ListSection{{Rows: []model.ListRow{{ID: "day_1", Title: "Lunes"}}}}},
	})

	if sent != 3 || failed != 0 {
		t.Fatalf("expected sent=3 failed=0, got sent=%d failed=%d", sent, failed)
	}
	if len(remoteIDs) != 3 || remoteIDs[0] != "wamid.HBgL" {
		t.Fatalf("expected remote ids from sent hook, got %+v", remoteIDs)
	}

	mu.Lock()
	defer mu.Unlock()
	if strings.Join(types, ",") != "text,interactive,interactive" {
		t.Fatalf("unexpected message types %v", types)
	}
}

func TestSender_FailsWhenContentTooLong(t *testing.T) {
	t.Parallel()

	ch := &fakeChannel{}
	sender := service.NewSender(ch, 3)

	var reasons []string
	sender.WithHooks(
		func(ctx context.Context, to string, d model.Directive, remoteMessageID string) {},
		func(ctx context.Context, to string, d model.Directive, reason string) {
			reasons = append(reasons, reason)
		},
	)

	sent, failed := sender.Deliver(context.Background(), "51999", []model.Directive{
		{Kind: model.DirectiveText, Body: "abcd"},
		{Kind: model.DirectiveText, Body: "abc"},
	})

	if sent != 1 || failed != 1 {
		t.Fatalf("expected sent=1 failed=1, got sent=%d failed=%d", sent, failed)
	}
	if len(reasons) != 1 || !strings.Contains(reasons[0], "exceeds 3") {
		t.Fatalf("expected a length reason, got %+v", reasons)
	}
	if msgs := ch.messages(); len(msgs) != 1 || msgs[0].Body != "abc" {
		t.Fatalf("expected only the short message sent, got %+v", msgs)
	}
}

func TestSender_CountsChannelFailuresAndUnknownKinds(t *testing.T) {
	t.Parallel()

	sender := service.NewSender(&fakeChannel{fail: true}, 0)
	sent, failed := sender.Deliver(context.Background(), "51999", []model.Directive{
		{Kind: model.DirectiveText, Body: "hola"},
		{Kind: "carousel"},
	})
	if sent != 0 || failed != 2 {
		t.Fatalf("expected sent=0 failed=2, got sent=%d failed=%d", sent, failed)
	}
}
