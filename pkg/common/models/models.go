package models

import (
	"time"

	"github.com/google/uuid"
)

type Company string

const (
	CompanyOpenAI         Company = "OPENAI"
	CompanyAnthropic      Company = "ANTHROPIC"
	CompanyGoogleDeepMind Company = "GOOGLE_DEEPMIND"
)

var CompanyLabels = map[Company]string{
	CompanyOpenAI:         "OpenAI",
	CompanyAnthropic:      "Anthropic",
	CompanyGoogleDeepMind: "Google DeepMind",
}

func (c Company) Valid() bool {
	_, ok := CompanyLabels[c]
	return ok
}

type DepartureStatus string

const (
	DepartureConfirmed DepartureStatus = "CONFIRMED"
	DepartureRumored   DepartureStatus = "RUMORED"
)

func (s DepartureStatus) Valid() bool {
	return s == DepartureConfirmed || s == DepartureRumored
}

type SubmissionStatus string

const (
	SubmissionPending   SubmissionStatus = "PENDING"
	SubmissionApproved  SubmissionStatus = "APPROVED"
	SubmissionRejected  SubmissionStatus = "REJECTED"
	SubmissionDuplicate SubmissionStatus = "DUPLICATE"
)

// Departure is the curated record of one person's exit from one lab.
type Departure struct {
	ID              uuid.UUID              `json:"id"`
	PersonName      string                 `json:"person_name"`
	Role            string                 `json:"role"`
	Company         Company                `json:"company"`
	DepartureDate   time.Time              `json:"departure_date"`
	Summary         string                 `json:"summary"`
	ProfileImageURL string                 `json:"profile_image_url,omitempty"`
	Status          DepartureStatus        `json:"status"`
	PublicityScore  float64                `json:"publicity_score"`
	Metadata        map[string]interface{} `json:"metadata,omitempty"`
	Tweets          []Tweet                `json:"tweets,omitempty"`
	NewsArticles    []NewsArticle          `json:"news_articles,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
}

// Tweet is an engagement snapshot of one social post backing a departure.
type Tweet struct {
	ID               uuid.UUID `json:"id"`
	TweetID          string    `json:"tweet_id"`
	URL              string    `json:"url"`
	Text             string    `json:"text,omitempty"`
	Likes            int       `json:"likes"`
	Retweets         int       `json:"retweets"`
	Replies          int       `json:"replies"`
	Views            int       `json:"views"`
	MetricsUpdatedAt time.Time `json:"metrics_updated_at"`
}

type NewsArticle struct {
	ID          uuid.UUID  `json:"id"`
	URL         string     `json:"url"`
	Title       string     `json:"title"`
	Source      string     `json:"source"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// Submission is one inbound bot mention waiting for human review.
type Submission struct {
	ID             uuid.UUID        `json:"id"`
	MentionTweetID string           `json:"mention_tweet_id"`
	MentionAuthor  string           `json:"mention_author"`
	MentionText    string           `json:"mention_text"`
	ParentTweetID  string           `json:"parent_tweet_id,omitempty"`
	ParentTweetURL string           `json:"parent_tweet_url,omitempty"`
	ParentAuthor   string           `json:"parent_author,omitempty"`
	ParentName     string           `json:"parent_name,omitempty"`
	ParentText     string           `json:"parent_text,omitempty"`
	ParentLikes    int              `json:"parent_likes"`
	ParentRetweets int              `json:"parent_retweets"`
	ParentReplies  int              `json:"parent_replies"`
	ParentViews    int              `json:"parent_views"`
	Status         SubmissionStatus `json:"status"`
	ReviewNote     string           `json:"review_note,omitempty"`
	DepartureID    *uuid.UUID       `json:"departure_id,omitempty"`
	BotReplied     bool             `json:"bot_replied"`
	BotReplyID     string           `json:"bot_reply_id,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// BotState is the single-row ingestion cursor.
type BotState struct {
	LastMentionID string     `json:"last_mention_id,omitempty"`
	LastPollAt    *time.Time `json:"last_poll_at,omitempty"`
}

type TweetInput struct {
	TweetID  string `json:"tweet_id"`
	URL      string `json:"url"`
	Text     string `json:"text,omitempty"`
	Likes    int    `json:"likes"`
	Retweets int    `json:"retweets"`
	Replies  int    `json:"replies"`
	Views    int    `json:"views"`
}

type NewsArticleInput struct {
	URL         string     `json:"url"`
	Title       string     `json:"title"`
	Source      string     `json:"source"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

type CreateDepartureRequest struct {
	PersonName      string             `json:"person_name"`
	Role            string             `json:"role"`
	Company         Company            `json:"company"`
	DepartureDate   string             `json:"departure_date"`
	Summary         string             `json:"summary"`
	ProfileImageURL string             `json:"profile_image_url,omitempty"`
	Status          DepartureStatus    `json:"status,omitempty"`
	Tweets          []TweetInput       `json:"tweets,omitempty"`
	NewsArticles    []NewsArticleInput `json:"news_articles,omitempty"`
}

type ApproveSubmissionRequest struct {
	PersonName    string  `json:"person_name"`
	Role          string  `json:"role"`
	Company       Company `json:"company"`
	DepartureDate string  `json:"departure_date"`
	Summary       string  `json:"summary"`
}

// Event is the envelope published to the broker for downstream consumers.
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
}
