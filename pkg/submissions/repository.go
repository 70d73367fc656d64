package submissions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ragequit-tracker/platform/pkg/common/models"
	"github.com/ragequit-tracker/platform/pkg/departures"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrMentionExists      = errors.New("submission already exists for mention")
	ErrInvalidState       = errors.New("submission is not pending")
)

const botStateKey = "singleton"

type Repository struct {
	db         *gorm.DB
	departures *departures.Repository
}

func NewRepository(db *gorm.DB, departureRepo *departures.Repository) *Repository {
	return &Repository{db: db, departures: departureRepo}
}

type SubmissionModel struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	MentionTweetID string    `gorm:"uniqueIndex"`
	MentionAuthor  string
	MentionText    string
	ParentTweetID  string `gorm:"index"`
	ParentTweetURL string
	ParentAuthor   string
	ParentName     string
	ParentText     string
	ParentLikes    int
	ParentRetweets int
	ParentReplies  int
	ParentViews    int
	Status         string `gorm:"index"`
	ReviewNote     string
	DepartureID    *uuid.UUID `gorm:"type:uuid"`
	BotReplied     bool
	BotReplyID     string
	RawMention     datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (SubmissionModel) TableName() string {
	return "submissions"
}

type BotStateModel struct {
	ID            string `gorm:"primaryKey"`
	LastMentionID string
	LastPollAt    *time.Time
	UpdatedAt     time.Time
}

func (BotStateModel) TableName() string {
	return "bot_state"
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&SubmissionModel{}, &BotStateModel{})
}

// HasMention reports whether a submission already exists for a mentioning
// tweet id. This is the re-poll idempotency check.
func (r *Repository) HasMention(ctx context.Context, mentionTweetID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&SubmissionModel{}).
		Where("mention_tweet_id = ?", mentionTweetID).
		Count(&count).Error
	return count > 0, err
}

// HasActiveParent reports whether a non-rejected submission is already tied
// to the given parent tweet id. Rejected ones do not block a re-mention.
func (r *Repository) HasActiveParent(ctx context.Context, parentTweetID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&SubmissionModel{}).
		Where("parent_tweet_id = ? AND status <> ?", parentTweetID, string(models.SubmissionRejected)).
		Count(&count).Error
	return count > 0, err
}

func (r *Repository) CreateSubmission(ctx context.Context, sub models.Submission, raw map[string]interface{}) (models.Submission, error) {
	var existing int64
	if err := r.db.WithContext(ctx).Model(&SubmissionModel{}).
		Where("mention_tweet_id = ?", sub.MentionTweetID).
		Count(&existing).Error; err != nil {
		return models.Submission{}, err
	}
	if existing > 0 {
		return models.Submission{}, ErrMentionExists
	}

	status := sub.Status
	if status == "" {
		status = models.SubmissionPending
	}

	row := SubmissionModel{
		ID:             uuid.New(),
		MentionTweetID: sub.MentionTweetID,
		MentionAuthor:  sub.MentionAuthor,
		MentionText:    sub.MentionText,
		ParentTweetID:  sub.ParentTweetID,
		ParentTweetURL: sub.ParentTweetURL,
		ParentAuthor:   sub.ParentAuthor,
		ParentName:     sub.ParentName,
		ParentText:     sub.ParentText,
		ParentLikes:    sub.ParentLikes,
		ParentRetweets: sub.ParentRetweets,
		ParentReplies:  sub.ParentReplies,
		ParentViews:    sub.ParentViews,
		Status:         string(status),
		ReviewNote:     sub.ReviewNote,
		RawMention:     datatypes.JSONMap(raw),
		CreatedAt:      time.Now().UTC(),
		UpdatedAt:      time.Now().UTC(),
	}

	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return models.Submission{}, err
	}
	return mapSubmissionModel(row), nil
}

func (r *Repository) MarkReplied(ctx context.Context, mentionTweetID, replyID string) error {
	return r.db.WithContext(ctx).Model(&SubmissionModel{}).
		Where("mention_tweet_id = ?", mentionTweetID).
		Updates(map[string]interface{}{
			"bot_replied":  true,
			"bot_reply_id": replyID,
			"updated_at":   time.Now().UTC(),
		}).Error
}

func (r *Repository) GetSubmission(ctx context.Context, id uuid.UUID) (models.Submission, error) {
	var row SubmissionModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Submission{}, ErrSubmissionNotFound
	}
	if err != nil {
		return models.Submission{}, err
	}
	return mapSubmissionModel(row), nil
}

func (r *Repository) ListSubmissions(ctx context.Context, status models.SubmissionStatus, limit int) ([]models.Submission, error) {
	if limit <= 0 {
		limit = 50
	}

	query := r.db.WithContext(ctx).Model(&SubmissionModel{}).Order("created_at DESC").Limit(limit)
	if status != "" {
		query = query.Where("status = ?", string(status))
	}

	var rows []SubmissionModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]models.Submission, 0, len(rows))
	for _, row := range rows {
		out = append(out, mapSubmissionModel(row))
	}
	return out, nil
}

// ApproveSubmission persists the departure (with its evidence) and flips
// the submission to APPROVED in one transaction. The status guard runs
// inside the transaction so a concurrent second approval loses.
func (r *Repository) ApproveSubmission(ctx context.Context, id uuid.UUID, dep models.Departure) (models.Departure, error) {
	var created models.Departure
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		created, err = r.departures.CreateTx(tx, dep)
		if err != nil {
			return fmt.Errorf("creating departure: %w", err)
		}

		result := tx.Model(&SubmissionModel{}).
			Where("id = ? AND status = ?", id, string(models.SubmissionPending)).
			Updates(map[string]interface{}{
				"status":       string(models.SubmissionApproved),
				"departure_id": created.ID,
				"updated_at":   time.Now().UTC(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrInvalidState
		}
		return nil
	})
	if err != nil {
		return models.Departure{}, err
	}
	return created, nil
}

func (r *Repository) RejectSubmission(ctx context.Context, id uuid.UUID, note string) error {
	result := r.db.WithContext(ctx).Model(&SubmissionModel{}).
		Where("id = ? AND status = ?", id, string(models.SubmissionPending)).
		Updates(map[string]interface{}{
			"status":      string(models.SubmissionRejected),
			"review_note": note,
			"updated_at":  time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrInvalidState
	}
	return nil
}

// BotState loads the singleton cursor row, creating it on first use.
func (r *Repository) BotState(ctx context.Context) (models.BotState, error) {
	row := BotStateModel{ID: botStateKey}
	if err := r.db.WithContext(ctx).FirstOrCreate(&row, BotStateModel{ID: botStateKey}).Error; err != nil {
		return models.BotState{}, err
	}
	return models.BotState{LastMentionID: row.LastMentionID, LastPollAt: row.LastPollAt}, nil
}

// AdvanceCursor records the newest mention id seen by a completed batch.
func (r *Repository) AdvanceCursor(ctx context.Context, newestID string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&BotStateModel{}).
		Where("id = ?", botStateKey).
		Updates(map[string]interface{}{
			"last_mention_id": newestID,
			"last_poll_at":    at,
			"updated_at":      time.Now().UTC(),
		}).Error
}

func mapSubmissionModel(row SubmissionModel) models.Submission {
	return models.Submission{
		ID:             row.ID,
		MentionTweetID: row.MentionTweetID,
		MentionAuthor:  row.MentionAuthor,
		MentionText:    row.MentionText,
		ParentTweetID:  row.ParentTweetID,
		ParentTweetURL: row.ParentTweetURL,
		ParentAuthor:   row.ParentAuthor,
		ParentName:     row.ParentName,
		ParentText:     row.ParentText,
		ParentLikes:    row.ParentLikes,
		ParentRetweets: row.ParentRetweets,
		ParentReplies:  row.ParentReplies,
		ParentViews:    row.ParentViews,
		Status:         models.SubmissionStatus(row.Status),
		ReviewNote:     row.ReviewNote,
		DepartureID:    row.DepartureID,
		BotReplied:     row.BotReplied,
		BotReplyID:     row.BotReplyID,
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
	}
}
