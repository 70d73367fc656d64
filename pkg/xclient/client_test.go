package xclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Options{
		BaseURL:        srv.URL,
		BearerToken:    "read-token",
		BotAccessToken: "write-token",
	})
}

func TestBotUserID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users/me" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer read-token" {
			t.Errorf("unexpected auth header %q", got)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]string{"id": "bot-123", "username": "ragequitbot"},
		})
	})

	id, err := client.BotUserID(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "bot-123" {
		t.Fatalf("expected bot-123, got %q", id)
	}
}

func TestBotUserIDWithoutCredential(t *testing.T) {
	client := New(Options{BaseURL: "http://unused"})
	if _, err := client.BotUserID(context.Background()); !errors.Is(err, ErrNoCredential) {
		t.Fatalf("expected ErrNoCredential, got %v", err)
	}
}

func TestMentionsJoinsAuthors(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("since_id"); got != "900" {
			t.Errorf("expected since_id=900, got %q", got)
		}
		if got := r.URL.Query().Get("max_results"); got != "100" {
			t.Errorf("expected max_results=100, got %q", got)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{
				{
					"id":        "1001",
					"text":      "@ragequitbot look at this",
					"author_id": "u1",
					"referenced_tweets": []map[string]string{
						{"type": "replied_to", "id": "555"},
					},
				},
				{"id": "1002", "text": "@ragequitbot hello", "author_id": "u-missing"},
			},
			"includes": map[string]interface{}{
				"users": []map[string]string{{"id": "u1", "name": "Alice", "username": "alice"}},
			},
			"meta": map[string]interface{}{"newest_id": "1002", "result_count": 2},
		})
	})

	batch, err := client.Mentions(context.Background(), "bot-123", "900")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if batch.NewestID != "1002" {
		t.Fatalf("expected newest id 1002, got %q", batch.NewestID)
	}
	if len(batch.Mentions) != 2 {
		t.Fatalf("expected 2 mentions, got %d", len(batch.Mentions))
	}
	if batch.Mentions[0].Author.Username != "alice" {
		t.Errorf("expected expanded author, got %+v", batch.Mentions[0].Author)
	}
	if got := batch.Mentions[0].ParentTweetID(); got != "555" {
		t.Errorf("expected parent 555, got %q", got)
	}
	if batch.Mentions[1].Author.Username != "unknown" {
		t.Errorf("expected placeholder author for missing expansion, got %+v", batch.Mentions[1].Author)
	}
	if got := batch.Mentions[1].ParentTweetID(); got != "" {
		t.Errorf("expected no parent, got %q", got)
	}
}

func TestMentionsEmpty(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"meta": map[string]interface{}{"result_count": 0},
		})
	})

	batch, err := client.Mentions(context.Background(), "bot-123", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(batch.Mentions) != 0 || batch.NewestID != "" {
		t.Fatalf("expected empty batch, got %+v", batch)
	}
}

func TestTweetNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	})

	post, err := client.Tweet(context.Background(), "nope")
	if err != nil {
		t.Fatalf("expected nil error on 404, got %v", err)
	}
	if post != nil {
		t.Fatalf("expected nil post, got %+v", post)
	}
}

func TestTweetUpstreamError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	})

	_, err := client.Tweet(context.Background(), "123")
	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if upstream.Status != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", upstream.Status)
	}
}

func TestTweetMetrics(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tweets/555" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]interface{}{
				"id":        "555",
				"text":      "I resigned today.",
				"author_id": "u9",
				"public_metrics": map[string]int{
					"retweet_count":    12,
					"reply_count":      3,
					"like_count":       88,
					"impression_count": 4000,
				},
			},
			"includes": map[string]interface{}{
				"users": []map[string]string{{"id": "u9", "name": "Jan", "username": "jan"}},
			},
		})
	})

	post, err := client.Tweet(context.Background(), "555")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if post.Author.Username != "jan" {
		t.Errorf("expected author jan, got %+v", post.Author)
	}
	if post.Tweet.PublicMetrics == nil || post.Tweet.PublicMetrics.LikeCount != 88 {
		t.Errorf("expected like count 88, got %+v", post.Tweet.PublicMetrics)
	}
}

func TestPostReply(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/tweets" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer write-token" {
			t.Errorf("expected write credential, got %q", got)
		}
		var body struct {
			Text  string `json:"text"`
			Reply struct {
				InReplyToTweetID string `json:"in_reply_to_tweet_id"`
			} `json:"reply"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body.Reply.InReplyToTweetID != "1001" {
			t.Errorf("expected reply to 1001, got %q", body.Reply.InReplyToTweetID)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]string{"id": "reply-77"},
		})
	})

	id, err := client.PostReply(context.Background(), "1001", "thanks!")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "reply-77" {
		t.Fatalf("expected reply-77, got %q", id)
	}
}

func TestPostReplyWithoutWriteCredential(t *testing.T) {
	client := New(Options{BaseURL: "http://unused", BearerToken: "read-token"})
	if _, err := client.PostReply(context.Background(), "1", "hi"); !errors.Is(err, ErrNoCredential) {
		t.Fatalf("expected ErrNoCredential, got %v", err)
	}
}
