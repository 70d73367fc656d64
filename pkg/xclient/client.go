// Package xclient is a thin client for the X API v2 surface the tracker
// bot needs: identity lookup, mentions since a cursor, single-tweet lookup
// with engagement metrics, and reply posting. Read calls use the app-only
// bearer token; posting uses the bot's user-context access token.
package xclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"
)

const defaultBaseURL = "https://api.x.com/2"

// ErrNoCredential is returned when an operation needs a token that was not
// configured.
var ErrNoCredential = errors.New("x api credential not configured")

// UpstreamError is a non-2xx response from the platform.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("x api error (status %d): %s", e.Status, e.Body)
}

type Options struct {
	BaseURL string
	// BearerToken authenticates read operations.
	BearerToken string
	// BotAccessToken authenticates reply posting.
	BotAccessToken string
	Timeout        time.Duration
}

type Client struct {
	baseURL string
	read    *http.Client
	write   *http.Client
}

func New(opts Options) *Client {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL: baseURL,
		read:    tokenClient(opts.BearerToken, timeout),
		write:   tokenClient(opts.BotAccessToken, timeout),
	}
}

// tokenClient builds a bearer-authenticated client over a transport tuned
// for outbound service calls. Returns nil when no token is configured.
func tokenClient(token string, timeout time.Duration) *http.Client {
	if token == "" {
		return nil
	}

	base := &http.Client{
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
			MaxIdleConns:        100,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 5 * time.Second,
		},
	}

	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
	client.Timeout = timeout
	return client
}

// Configured reports whether read operations can be attempted at all.
func (c *Client) Configured() bool {
	return c.read != nil
}

type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
}

type Metrics struct {
	RetweetCount    int `json:"retweet_count"`
	ReplyCount      int `json:"reply_count"`
	LikeCount       int `json:"like_count"`
	ImpressionCount int `json:"impression_count"`
}

type ReferencedTweet struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type Tweet struct {
	ID               string            `json:"id"`
	Text             string            `json:"text"`
	AuthorID         string            `json:"author_id"`
	ConversationID   string            `json:"conversation_id,omitempty"`
	ReferencedTweets []ReferencedTweet `json:"referenced_tweets,omitempty"`
	PublicMetrics    *Metrics          `json:"public_metrics,omitempty"`
	CreatedAt        string            `json:"created_at,omitempty"`
}

// ParentTweetID is the id of the tweet this one replies to, or empty when
// it is not a reply.
func (t Tweet) ParentTweetID() string {
	for _, ref := range t.ReferencedTweets {
		if ref.Type == "replied_to" {
			return ref.ID
		}
	}
	return ""
}

// Mention is a tweet tagging the bot, with its author resolved from the
// response's user expansion.
type Mention struct {
	Tweet
	Author User
}

type MentionBatch struct {
	Mentions []Mention
	// NewestID is empty when the response carried no items.
	NewestID string
}

// Post is a resolved tweet plus its author.
type Post struct {
	Tweet  Tweet
	Author User
}

type includes struct {
	Users  []User  `json:"users,omitempty"`
	Tweets []Tweet `json:"tweets,omitempty"`
}

type mentionsResponse struct {
	Data     []Tweet  `json:"data"`
	Includes includes `json:"includes"`
	Meta     struct {
		NewestID    string `json:"newest_id"`
		OldestID    string `json:"oldest_id"`
		ResultCount int    `json:"result_count"`
		NextToken   string `json:"next_token"`
	} `json:"meta"`
}

type tweetResponse struct {
	Data     *Tweet   `json:"data"`
	Includes includes `json:"includes"`
}

// BotUserID resolves the authenticated bot account's user id, needed for
// the mentions endpoint.
func (c *Client) BotUserID(ctx context.Context) (string, error) {
	if c.read == nil {
		return "", ErrNoCredential
	}

	var resp struct {
		Data User `json:"data"`
	}
	if err := c.get(ctx, "/users/me", nil, &resp); err != nil {
		return "", err
	}
	return resp.Data.ID, nil
}

// Mentions fetches up to 100 mentions of userID newer than sinceID,
// newest-first as the platform returns them. sinceID may be empty on the
// first-ever poll. An empty batch is a normal outcome, not an error.
func (c *Client) Mentions(ctx context.Context, userID, sinceID string) (MentionBatch, error) {
	if c.read == nil {
		return MentionBatch{}, ErrNoCredential
	}

	params := url.Values{}
	params.Set("tweet.fields", "author_id,conversation_id,referenced_tweets,public_metrics,created_at,in_reply_to_user_id")
	params.Set("user.fields", "name,username")
	params.Set("expansions", "author_id,referenced_tweets.id")
	params.Set("max_results", "100")
	if sinceID != "" {
		params.Set("since_id", sinceID)
	}

	var resp mentionsResponse
	if err := c.get(ctx, "/users/"+userID+"/mentions", params, &resp); err != nil {
		return MentionBatch{}, err
	}
	if len(resp.Data) == 0 {
		return MentionBatch{}, nil
	}

	users := make(map[string]User, len(resp.Includes.Users))
	for _, u := range resp.Includes.Users {
		users[u.ID] = u
	}

	batch := MentionBatch{NewestID: resp.Meta.NewestID}
	for _, tweet := range resp.Data {
		author, ok := users[tweet.AuthorID]
		if !ok {
			author = User{ID: tweet.AuthorID, Name: "Unknown", Username: "unknown"}
		}
		batch.Mentions = append(batch.Mentions, Mention{Tweet: tweet, Author: author})
	}
	return batch, nil
}

// Tweet fetches a single tweet with engagement metrics. A not-found
// response returns (nil, nil).
func (c *Client) Tweet(ctx context.Context, tweetID string) (*Post, error) {
	if c.read == nil {
		return nil, ErrNoCredential
	}

	params := url.Values{}
	params.Set("tweet.fields", "author_id,public_metrics,created_at,text,conversation_id,referenced_tweets")
	params.Set("user.fields", "name,username")
	params.Set("expansions", "author_id")

	var resp tweetResponse
	err := c.get(ctx, "/tweets/"+tweetID, params, &resp)
	var upstream *UpstreamError
	if errors.As(err, &upstream) && upstream.Status == http.StatusNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return nil, nil
	}

	author := User{ID: resp.Data.AuthorID, Name: "Unknown", Username: "unknown"}
	if len(resp.Includes.Users) > 0 {
		author = resp.Includes.Users[0]
	}
	return &Post{Tweet: *resp.Data, Author: author}, nil
}

// PostReply posts a reply from the bot account and returns the new
// tweet's id. Callers treat failures as best-effort.
func (c *Client) PostReply(ctx context.Context, inReplyToID, text string) (string, error) {
	if c.write == nil {
		return "", ErrNoCredential
	}

	payload := map[string]interface{}{
		"text":  text,
		"reply": map[string]string{"in_reply_to_tweet_id": inReplyToID},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal reply: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/tweets", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var resp struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := c.do(c.write, req, &resp); err != nil {
		return "", err
	}
	return resp.Data.ID, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return c.do(c.read, req, result)
}

func (c *Client) do(client *http.Client, req *http.Request, result interface{}) error {
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &UpstreamError{Status: resp.StatusCode, Body: string(body)}
	}

	if result != nil && len(body) > 0 {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}
