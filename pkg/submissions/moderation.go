package submissions

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ragequit-tracker/platform/pkg/common/logger"
	"github.com/ragequit-tracker/platform/pkg/common/models"
	"github.com/ragequit-tracker/platform/pkg/departures"
	"github.com/ragequit-tracker/platform/pkg/scoring"
)

// Store is the persistence surface the moderation state machine needs.
// *Repository implements it; tests substitute an in-memory fake.
type Store interface {
	GetSubmission(ctx context.Context, id uuid.UUID) (models.Submission, error)
	ApproveSubmission(ctx context.Context, id uuid.UUID, dep models.Departure) (models.Departure, error)
	RejectSubmission(ctx context.Context, id uuid.UUID, note string) error
	ListSubmissions(ctx context.Context, status models.SubmissionStatus, limit int) ([]models.Submission, error)
}

type Publisher interface {
	PublishEvent(ctx context.Context, eventType string, source string, data map[string]interface{}) error
}

// Moderator runs the submission review state machine:
// PENDING -> APPROVED | REJECTED. DUPLICATE is terminal and only ever
// assigned by the ingestion pipeline.
type Moderator struct {
	store  Store
	events Publisher
}

// NewModerator builds the moderation service. events may be nil.
func NewModerator(store Store, events Publisher) *Moderator {
	return &Moderator{store: store, events: events}
}

// Approve promotes a pending submission into a departure. The submission's
// resolved parent tweet, when present, becomes the departure's initial
// evidence and seeds its publicity score.
func (m *Moderator) Approve(ctx context.Context, id uuid.UUID, req models.ApproveSubmissionRequest) (models.Departure, error) {
	if req.PersonName == "" || req.Role == "" || req.DepartureDate == "" || req.Summary == "" {
		return models.Departure{}, fmt.Errorf("%w: person_name, role, departure_date, and summary are required", departures.ErrValidation)
	}
	if !req.Company.Valid() {
		return models.Departure{}, fmt.Errorf("%w: unknown company %q", departures.ErrValidation, req.Company)
	}
	date, err := time.Parse("2006-01-02", req.DepartureDate)
	if err != nil {
		return models.Departure{}, fmt.Errorf("%w: departure_date must be YYYY-MM-DD", departures.ErrValidation)
	}

	sub, err := m.store.GetSubmission(ctx, id)
	if err != nil {
		return models.Departure{}, err
	}
	if sub.Status != models.SubmissionPending {
		return models.Departure{}, fmt.Errorf("%w: status is %s", ErrInvalidState, sub.Status)
	}

	var tweets []models.Tweet
	var metrics []scoring.TweetMetrics
	if sub.ParentTweetID != "" {
		tweets = append(tweets, models.Tweet{
			TweetID:          sub.ParentTweetID,
			URL:              sub.ParentTweetURL,
			Text:             sub.ParentText,
			Likes:            sub.ParentLikes,
			Retweets:         sub.ParentRetweets,
			Replies:          sub.ParentReplies,
			Views:            sub.ParentViews,
			MetricsUpdatedAt: time.Now().UTC(),
		})
		metrics = append(metrics, scoring.TweetMetrics{
			Likes:    sub.ParentLikes,
			Retweets: sub.ParentRetweets,
			Replies:  sub.ParentReplies,
			Views:    sub.ParentViews,
		})
	}

	dep := models.Departure{
		PersonName:     req.PersonName,
		Role:           req.Role,
		Company:        req.Company,
		DepartureDate:  date,
		Summary:        req.Summary,
		Status:         models.DepartureConfirmed,
		PublicityScore: scoring.PublicityScore(metrics, 0),
		Tweets:         tweets,
	}

	created, err := m.store.ApproveSubmission(ctx, id, dep)
	if err != nil {
		return models.Departure{}, err
	}

	logger.Log.WithFields(map[string]interface{}{
		"submission_id": id.String(),
		"departure_id":  created.ID.String(),
		"person_name":   created.PersonName,
	}).Info("submission approved")

	m.publish(ctx, "submission.approved", map[string]interface{}{
		"submission_id": id.String(),
		"departure_id":  created.ID.String(),
	})
	return created, nil
}

// Reject closes a pending submission. Rejecting an already-terminal
// submission fails with ErrInvalidState, mirroring Approve.
func (m *Moderator) Reject(ctx context.Context, id uuid.UUID) error {
	sub, err := m.store.GetSubmission(ctx, id)
	if err != nil {
		return err
	}
	if sub.Status != models.SubmissionPending {
		return fmt.Errorf("%w: status is %s", ErrInvalidState, sub.Status)
	}

	if err := m.store.RejectSubmission(ctx, id, "Rejected by admin"); err != nil {
		return err
	}

	logger.Log.WithField("submission_id", id.String()).Info("submission rejected")
	m.publish(ctx, "submission.rejected", map[string]interface{}{
		"submission_id": id.String(),
	})
	return nil
}

func (m *Moderator) Get(ctx context.Context, id uuid.UUID) (models.Submission, error) {
	return m.store.GetSubmission(ctx, id)
}

func (m *Moderator) List(ctx context.Context, status models.SubmissionStatus, limit int) ([]models.Submission, error) {
	return m.store.ListSubmissions(ctx, status, limit)
}

func (m *Moderator) publish(ctx context.Context, eventType string, data map[string]interface{}) {
	if m.events == nil {
		return
	}
	_ = m.events.PublishEvent(ctx, eventType, "moderation", data)
}
