package parseserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"pagebot/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{
		BaseURL:       srv.URL + "/parse",
		ApplicationID: "myAppId",
		RESTKey:       "myRestKey",
		Logger:        testLogger(),
	})
}

func TestGetReply_ExtractsReplyMsg(t *testing.T) {
	var gotPath, gotAppID, gotRESTKey string
	var gotBody map[string]string

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAppID = r.Header.Get("X-Parse-Application-Id")
		gotRESTKey = r.Header.Get("X-Parse-REST-API-Key")
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]any{
			"result": map[string]string{"msg": "ok", "replyMsg": "hello back"},
		})
	})

	reply, err := c.GetReply(context.Background(), "hello")
	if err != nil {
		t.Fatal(err)
	}
	if reply != "hello back" {
		t.Errorf("expected hello back, got %q", reply)
	}
	if gotPath != "/parse/functions/getReplyMsg" {
		t.Errorf("unexpected path: %s", gotPath)
	}
	if gotAppID != "myAppId" || gotRESTKey != "myRestKey" {
		t.Errorf("credential headers missing: %s %s", gotAppID, gotRESTKey)
	}
	if gotBody["msg"] != "hello" {
		t.Errorf("unexpected request body: %v", gotBody)
	}
}

func TestGetReply_EmptyReply(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"result": map[string]string{"msg": "no rule matched", "replyMsg": ""},
		})
	})
	reply, err := c.GetReply(context.Background(), "gibberish")
	if err != nil {
		t.Fatal(err)
	}
	if reply != "" {
		t.Errorf("expected empty reply, got %q", reply)
	}
}

func TestCallFunction_Non200(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	if _, err := c.GetReply(context.Background(), "hello"); err == nil {
		t.Error("expected error for 500 response")
	}
}

func TestCallFunction_BadJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	})
	if _, err := c.GetReply(context.Background(), "hello"); err == nil {
		t.Error("expected error for malformed response")
	}
}

func TestTrain_PostsRecord(t *testing.T) {
	var gotPath string
	var gotRec domain.TrainingRecord

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotRec)
		json.NewEncoder(w).Encode(map[string]any{
			"result": map[string]string{"msg": "trained", "replyMsg": "trained"},
		})
	})

	rec := domain.TrainingRecord{Msg: "hello", ReplyMsg: []string{"hi", "hey"}}
	reply, err := c.Train(context.Background(), rec)
	if err != nil {
		t.Fatal(err)
	}
	if reply != "trained" {
		t.Errorf("expected trained, got %q", reply)
	}
	if gotPath != "/parse/functions/botTraining" {
		t.Errorf("unexpected path: %s", gotPath)
	}
	if gotRec.Msg != "hello" || len(gotRec.ReplyMsg) != 2 {
		t.Errorf("record not forwarded: %+v", gotRec)
	}
}

func TestTestMessage_Path(t *testing.T) {
	var gotPath string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewEncoder(w).Encode(map[string]any{
			"result": map[string]string{"replyMsg": "echo"},
		})
	})
	if _, err := c.TestMessage(context.Background(), "ping"); err != nil {
		t.Fatal(err)
	}
	if gotPath != "/parse/functions/testMsg" {
		t.Errorf("unexpected path: %s", gotPath)
	}
}
