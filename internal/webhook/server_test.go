package webhook

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"pagebot/internal/bus"
	"pagebot/internal/domain"
)

const testSecret = "app-secret"

func newTestServer(t *testing.T) (*Server, *bus.InMemoryBus) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	b := bus.New(16, logger)
	s := NewServer(ServerConfig{
		Host:            "127.0.0.1",
		Port:            0,
		WebhookPath:     "/webhook",
		AppSecret:       testSecret,
		ValidationToken: "verify-me",
		Bus:             b,
		Logger:          logger,
	})
	return s, b
}

func signedPost(t *testing.T, body []byte) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SignatureHeader, Sign(testSecret, body))
	return req
}

func pageEnvelope(t *testing.T, events ...domain.MessagingEvent) []byte {
	t.Helper()
	body, err := json.Marshal(domain.InboundEnvelope{
		Object: "page",
		Entry: []domain.Entry{{
			ID: "page1", Time: time.Now().UnixMilli(), Messaging: events,
		}},
	})
	if err != nil {
		t.Fatal(err)
	}
	return body
}

func textEvent(text string) domain.MessagingEvent {
	return domain.MessagingEvent{
		Sender:  domain.Party{ID: "user1"},
		Message: &domain.Message{MID: "mid.1", Text: text},
	}
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"object":"page"}`)
	if err := VerifySignature(testSecret, body, Sign(testSecret, body)); err != nil {
		t.Errorf("valid signature rejected: %v", err)
	}
	if err := VerifySignature(testSecret, body, Sign("other-secret", body)); err != ErrSignatureMismatch {
		t.Errorf("want mismatch, got %v", err)
	}
	if err := VerifySignature(testSecret, body, "sha256=abcdef"); err != ErrMalformedSignature {
		t.Errorf("want malformed for wrong method, got %v", err)
	}
	if err := VerifySignature(testSecret, body, "garbage"); err != ErrMalformedSignature {
		t.Errorf("want malformed, got %v", err)
	}
}

func TestHandshake_Accepts(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet,
		"/webhook?hub.mode=subscribe&hub.verify_token=verify-me&hub.challenge=12345", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Body.String(); got != "12345" {
		t.Errorf("challenge echo = %q", got)
	}
}

func TestHandshake_RejectsBadToken(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet,
		"/webhook?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=12345", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestHandleEvent_SchedulesSignedEnvelope(t *testing.T) {
	s, b := newTestServer(t)
	body := pageEnvelope(t, textEvent("hello"))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, signedPost(t, body))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if got := rec.Body.String(); got != "EVENT_RECEIVED" {
		t.Errorf("ack body = %q", got)
	}

	select {
	case evt := <-b.Subscribe():
		if evt.PageID != "page1" {
			t.Errorf("page id = %q", evt.PageID)
		}
		if evt.Event.Message == nil || evt.Event.Message.Text != "hello" {
			t.Errorf("unexpected event: %+v", evt.Event)
		}
	case <-time.After(time.Second):
		t.Fatal("event not published")
	}
}

func TestHandleEvent_RejectsBadSignature(t *testing.T) {
	s, b := newTestServer(t)
	body := pageEnvelope(t, textEvent("hello"))
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body))
	req.Header.Set(SignatureHeader, Sign("other-secret", body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
	if b.Depth() != 0 {
		t.Error("rejected request must not publish events")
	}
}

func TestHandleEvent_MissingSignatureTolerated(t *testing.T) {
	s, b := newTestServer(t)
	body := pageEnvelope(t, textEvent("hello"))
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, unsigned requests are tolerated", rec.Code)
	}
	if b.Depth() != 1 {
		t.Errorf("bus depth = %d, want 1", b.Depth())
	}
}

func TestHandleEvent_BadJSON(t *testing.T) {
	s, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, signedPost(t, []byte("{not json")))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleEvent_NonPageObjectAckedButIgnored(t *testing.T) {
	s, b := newTestServer(t)
	body := []byte(`{"object":"instagram","entry":[{"id":"x","messaging":[{"sender":{"id":"u"},"message":{"text":"hi"}}]}]}`)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, signedPost(t, body))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, non-page envelopes still ack", rec.Code)
	}
	if b.Depth() != 0 {
		t.Error("non-page envelope must not publish events")
	}
}

func TestHandleEvent_SkipsMalformedEvents(t *testing.T) {
	s, b := newTestServer(t)
	ambiguous := domain.MessagingEvent{
		Sender:   domain.Party{ID: "user1"},
		Message:  &domain.Message{Text: "hi"},
		Postback: &domain.Postback{Payload: "p"},
	}
	body := pageEnvelope(t, ambiguous, textEvent("ok"))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, signedPost(t, body))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if b.Depth() != 1 {
		t.Errorf("bus depth = %d, only the valid event should be scheduled", b.Depth())
	}
}

func TestHealthz(t *testing.T) {
	s, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	data, _ := io.ReadAll(rec.Body)
	var status map[string]string
	if err := json.Unmarshal(data, &status); err != nil || status["status"] != "ok" {
		t.Errorf("unexpected health body: %s", data)
	}
}
