// Package bot implements the mention-ingestion pipeline: it polls the
// platform for mentions of the bot account, turns new ones into moderation
// submissions, acknowledges them with a reply, and advances the poll
// cursor.
package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ragequit-tracker/platform/pkg/common/logger"
	"github.com/ragequit-tracker/platform/pkg/common/models"
	"github.com/ragequit-tracker/platform/pkg/submissions"
	"github.com/ragequit-tracker/platform/pkg/xclient"
)

// Platform is the slice of the X API the pipeline needs. *xclient.Client
// implements it.
type Platform interface {
	Configured() bool
	BotUserID(ctx context.Context) (string, error)
	Mentions(ctx context.Context, userID, sinceID string) (xclient.MentionBatch, error)
	Tweet(ctx context.Context, tweetID string) (*xclient.Post, error)
	PostReply(ctx context.Context, inReplyToID, text string) (string, error)
}

// Store is the persistence surface of one poll cycle.
// *submissions.Repository implements it.
type Store interface {
	BotState(ctx context.Context) (models.BotState, error)
	AdvanceCursor(ctx context.Context, newestID string, at time.Time) error
	HasMention(ctx context.Context, mentionTweetID string) (bool, error)
	HasActiveParent(ctx context.Context, parentTweetID string) (bool, error)
	CreateSubmission(ctx context.Context, sub models.Submission, raw map[string]interface{}) (models.Submission, error)
	MarkReplied(ctx context.Context, mentionTweetID, replyID string) error
}

type Publisher interface {
	PublishEvent(ctx context.Context, eventType string, source string, data map[string]interface{}) error
}

type Poller struct {
	platform  Platform
	store     Store
	events    Publisher
	templates ReplyTemplates
	siteURL   string
}

// NewPoller builds the ingestion pipeline. events may be nil.
func NewPoller(platform Platform, store Store, events Publisher, templates ReplyTemplates, siteURL string) *Poller {
	return &Poller{
		platform:  platform,
		store:     store,
		events:    events,
		templates: templates,
		siteURL:   siteURL,
	}
}

type Result struct {
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
	Total     int `json:"total"`
}

// Poll runs one ingestion cycle. The cursor only advances after every
// mention in the batch has been handled; any failure before that leaves it
// untouched so the next cycle re-fetches the same window, where the
// per-mention existence check keeps re-processing idempotent.
func (p *Poller) Poll(ctx context.Context) (Result, error) {
	var res Result

	state, err := p.store.BotState(ctx)
	if err != nil {
		return res, fmt.Errorf("loading bot state: %w", err)
	}

	botID, err := p.platform.BotUserID(ctx)
	if err != nil {
		return res, fmt.Errorf("resolving bot identity: %w", err)
	}

	batch, err := p.platform.Mentions(ctx, botID, state.LastMentionID)
	if err != nil {
		return res, fmt.Errorf("fetching mentions: %w", err)
	}
	res.Total = len(batch.Mentions)

	for _, mention := range batch.Mentions {
		processed, err := p.handleMention(ctx, mention)
		if err != nil {
			// Abort the rest of the batch with the cursor untouched;
			// everything already durable is skipped on the retry.
			return res, fmt.Errorf("handling mention %s: %w", mention.ID, err)
		}
		if processed {
			res.Processed++
		} else {
			res.Skipped++
		}
	}

	if batch.NewestID != "" {
		if err := p.store.AdvanceCursor(ctx, batch.NewestID, time.Now().UTC()); err != nil {
			return res, fmt.Errorf("advancing cursor: %w", err)
		}
	}

	logger.Log.WithFields(map[string]interface{}{
		"processed": res.Processed,
		"skipped":   res.Skipped,
		"total":     res.Total,
	}).Info("poll cycle complete")
	return res, nil
}

func (p *Poller) handleMention(ctx context.Context, mention xclient.Mention) (bool, error) {
	exists, err := p.store.HasMention(ctx, mention.ID)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	var parent *xclient.Post
	if parentID := mention.ParentTweetID(); parentID != "" {
		parent, err = p.platform.Tweet(ctx, parentID)
		if err != nil {
			return false, fmt.Errorf("fetching parent tweet %s: %w", parentID, err)
		}
	}

	sub := models.Submission{
		MentionTweetID: mention.ID,
		MentionAuthor:  mention.Author.Username,
		MentionText:    mention.Text,
	}
	if parent != nil {
		sub.ParentTweetID = parent.Tweet.ID
		sub.ParentTweetURL = fmt.Sprintf("https://x.com/%s/status/%s", parent.Author.Username, parent.Tweet.ID)
		sub.ParentAuthor = parent.Author.Username
		sub.ParentName = parent.Author.Name
		sub.ParentText = parent.Tweet.Text
		if m := parent.Tweet.PublicMetrics; m != nil {
			sub.ParentLikes = m.LikeCount
			sub.ParentRetweets = m.RetweetCount
			sub.ParentReplies = m.ReplyCount
			sub.ParentViews = m.ImpressionCount
		}
	}

	raw := map[string]interface{}{
		"id":         mention.ID,
		"text":       mention.Text,
		"author_id":  mention.AuthorID,
		"author":     mention.Author.Username,
		"created_at": mention.CreatedAt,
	}

	if parent != nil {
		duplicate, err := p.store.HasActiveParent(ctx, parent.Tweet.ID)
		if err != nil {
			return false, err
		}
		if duplicate {
			sub.Status = models.SubmissionDuplicate
			sub.ReviewNote = fmt.Sprintf("Duplicate of submission for tweet %s", parent.Tweet.ID)
			if _, err := p.store.CreateSubmission(ctx, sub, raw); err != nil {
				return false, err
			}
			p.publish(ctx, "submission.duplicate", map[string]interface{}{
				"mention_tweet_id": mention.ID,
				"parent_tweet_id":  parent.Tweet.ID,
			})
			return false, nil
		}
	}

	sub.Status = models.SubmissionPending
	if _, err := p.store.CreateSubmission(ctx, sub, raw); err != nil {
		if errors.Is(err, submissions.ErrMentionExists) {
			// Another cycle won the race for this mention.
			return false, nil
		}
		return false, err
	}

	replyText := p.templates.GenericReply(p.siteURL)
	if parent != nil {
		replyText = p.templates.FoundReply(parent.Author.Name, p.siteURL)
	}

	// Best-effort: a failed reply never rolls back or blocks the
	// submission.
	replyID, err := p.platform.PostReply(ctx, mention.ID, replyText)
	if err != nil {
		logger.Log.WithError(err).WithField("mention_tweet_id", mention.ID).Warn("failed to post reply")
	} else if replyID != "" {
		if err := p.store.MarkReplied(ctx, mention.ID, replyID); err != nil {
			logger.Log.WithError(err).WithField("mention_tweet_id", mention.ID).Warn("failed to record reply")
		}
	}

	p.publish(ctx, "submission.received", map[string]interface{}{
		"mention_tweet_id": mention.ID,
		"mention_author":   mention.Author.Username,
		"parent_tweet_id":  sub.ParentTweetID,
	})
	return true, nil
}

func (p *Poller) publish(ctx context.Context, eventType string, data map[string]interface{}) {
	if p.events == nil {
		return
	}
	_ = p.events.PublishEvent(ctx, eventType, "bot", data)
}
