package bot

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/ragequit-tracker/platform/pkg/xclient"
)

func newTriggerRouter(platform *fakePlatform, store *fakeStore, secret string) *mux.Router {
	handler := NewTriggerHandler(newTestPoller(platform, store), NewPollLock(nil, 0), secret)
	r := mux.NewRouter()
	handler.Register(r)
	return r
}

func TestTriggerRejectsMissingSecret(t *testing.T) {
	router := newTriggerRouter(&fakePlatform{configured: true}, newFakeStore(), "s3cret")

	req := httptest.NewRequest(http.MethodGet, "/bot/poll", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestTriggerRejectsWrongSecret(t *testing.T) {
	router := newTriggerRouter(&fakePlatform{configured: true}, newFakeStore(), "s3cret")

	req := httptest.NewRequest(http.MethodGet, "/bot/poll", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestTriggerSkipsWhenUnconfigured(t *testing.T) {
	router := newTriggerRouter(&fakePlatform{configured: false}, newFakeStore(), "s3cret")

	req := httptest.NewRequest(http.MethodGet, "/bot/poll", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body["status"] != "skipped" || body["reason"] != "X_BEARER_TOKEN not set" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestTriggerReportsCounts(t *testing.T) {
	platform := &fakePlatform{
		configured: true,
		botID:      "bot-1",
		batch: xclient.MentionBatch{
			Mentions: []xclient.Mention{mentionOf("m1", "hi", "alice", "")},
			NewestID: "m1",
		},
	}
	router := newTriggerRouter(platform, newFakeStore(), "s3cret")

	req := httptest.NewRequest(http.MethodPost, "/bot/poll", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Status    string `json:"status"`
		Processed int    `json:"processed"`
		Skipped   int    `json:"skipped"`
		Total     int    `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Status != "ok" || body.Processed != 1 || body.Skipped != 0 || body.Total != 1 {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestTriggerEmptySecretNeverAuthorizes(t *testing.T) {
	router := newTriggerRouter(&fakePlatform{configured: true}, newFakeStore(), "")

	req := httptest.NewRequest(http.MethodGet, "/bot/poll", nil)
	req.Header.Set("Authorization", "Bearer ")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with unset secret, got %d", rec.Code)
	}
}
