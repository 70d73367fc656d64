package departures

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ragequit-tracker/platform/pkg/common/models"
	"github.com/ragequit-tracker/platform/pkg/scoring"
)

// ErrValidation marks malformed curator input. Wrapped errors carry the
// field detail.
var ErrValidation = errors.New("validation failed")

const dateLayout = "2006-01-02"

type Publisher interface {
	PublishEvent(ctx context.Context, eventType string, source string, data map[string]interface{}) error
}

type Service struct {
	repo   *Repository
	events Publisher
}

// NewService builds the departure CRUD service. events may be nil.
func NewService(repo *Repository, events Publisher) *Service {
	return &Service{repo: repo, events: events}
}

func (s *Service) Create(ctx context.Context, req models.CreateDepartureRequest) (models.Departure, error) {
	dep, err := departureFromRequest(req)
	if err != nil {
		return models.Departure{}, err
	}

	dep.PublicityScore = scoreEvidence(dep.Tweets, len(dep.NewsArticles))

	created, err := s.repo.Create(ctx, dep)
	if err != nil {
		return models.Departure{}, fmt.Errorf("creating departure: %w", err)
	}

	s.publish(ctx, "departure.created", map[string]interface{}{
		"departure_id":    created.ID.String(),
		"person_name":     created.PersonName,
		"company":         string(created.Company),
		"publicity_score": created.PublicityScore,
	})
	return created, nil
}

// Update applies non-empty curated fields over the stored record, replaces
// the evidence collections wholesale with the request's lists, and
// recomputes the score from the new evidence.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req models.CreateDepartureRequest) (models.Departure, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return models.Departure{}, err
	}

	if req.PersonName != "" {
		existing.PersonName = req.PersonName
	}
	if req.Role != "" {
		existing.Role = req.Role
	}
	if req.Company != "" {
		if !req.Company.Valid() {
			return models.Departure{}, fmt.Errorf("%w: unknown company %q", ErrValidation, req.Company)
		}
		existing.Company = req.Company
	}
	if req.DepartureDate != "" {
		date, err := time.Parse(dateLayout, req.DepartureDate)
		if err != nil {
			return models.Departure{}, fmt.Errorf("%w: departure_date must be YYYY-MM-DD", ErrValidation)
		}
		existing.DepartureDate = date
	}
	if req.Summary != "" {
		existing.Summary = req.Summary
	}
	if req.ProfileImageURL != "" {
		existing.ProfileImageURL = req.ProfileImageURL
	}
	if req.Status != "" {
		if !req.Status.Valid() {
			return models.Departure{}, fmt.Errorf("%w: unknown status %q", ErrValidation, req.Status)
		}
		existing.Status = req.Status
	}

	existing.Tweets, existing.NewsArticles, err = evidenceFromInputs(req.Tweets, req.NewsArticles)
	if err != nil {
		return models.Departure{}, err
	}
	existing.PublicityScore = scoreEvidence(existing.Tweets, len(existing.NewsArticles))

	return s.repo.Update(ctx, existing)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (models.Departure, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]models.Departure, error) {
	return s.repo.List(ctx, filter)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) Stats(ctx context.Context) ([]CompanyStat, error) {
	return s.repo.Stats(ctx)
}

// RecomputeScore rescores one departure from its current evidence.
func (s *Service) RecomputeScore(ctx context.Context, id uuid.UUID) (float64, error) {
	dep, err := s.repo.Get(ctx, id)
	if err != nil {
		return 0, err
	}

	score := scoreEvidence(dep.Tweets, len(dep.NewsArticles))
	if err := s.repo.UpdateScore(ctx, id, score); err != nil {
		return 0, err
	}
	return score, nil
}

// RecomputeAllScores rescores every departure. Used after a scoring
// formula change or a bulk evidence import.
func (s *Service) RecomputeAllScores(ctx context.Context) (int, error) {
	deps, err := s.repo.List(ctx, ListFilter{Limit: 10000})
	if err != nil {
		return 0, err
	}

	for _, dep := range deps {
		score := scoreEvidence(dep.Tweets, len(dep.NewsArticles))
		if err := s.repo.UpdateScore(ctx, dep.ID, score); err != nil {
			return 0, fmt.Errorf("rescoring departure %s: %w", dep.ID, err)
		}
	}

	s.publish(ctx, "departures.rescored", map[string]interface{}{"count": len(deps)})
	return len(deps), nil
}

func (s *Service) publish(ctx context.Context, eventType string, data map[string]interface{}) {
	if s.events == nil {
		return
	}
	_ = s.events.PublishEvent(ctx, eventType, "departures", data)
}

func departureFromRequest(req models.CreateDepartureRequest) (models.Departure, error) {
	if req.PersonName == "" || req.Role == "" || req.Summary == "" || req.DepartureDate == "" {
		return models.Departure{}, fmt.Errorf("%w: person_name, role, departure_date, and summary are required", ErrValidation)
	}
	if !req.Company.Valid() {
		return models.Departure{}, fmt.Errorf("%w: unknown company %q", ErrValidation, req.Company)
	}

	date, err := time.Parse(dateLayout, req.DepartureDate)
	if err != nil {
		return models.Departure{}, fmt.Errorf("%w: departure_date must be YYYY-MM-DD", ErrValidation)
	}

	status := req.Status
	if status == "" {
		status = models.DepartureConfirmed
	}
	if !status.Valid() {
		return models.Departure{}, fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}

	tweets, articles, err := evidenceFromInputs(req.Tweets, req.NewsArticles)
	if err != nil {
		return models.Departure{}, err
	}

	return models.Departure{
		PersonName:      req.PersonName,
		Role:            req.Role,
		Company:         req.Company,
		DepartureDate:   date,
		Summary:         req.Summary,
		ProfileImageURL: req.ProfileImageURL,
		Status:          status,
		Tweets:          tweets,
		NewsArticles:    articles,
	}, nil
}

func evidenceFromInputs(tweetInputs []models.TweetInput, articleInputs []models.NewsArticleInput) ([]models.Tweet, []models.NewsArticle, error) {
	var tweets []models.Tweet
	for i, in := range tweetInputs {
		if in.TweetID == "" || in.URL == "" {
			return nil, nil, fmt.Errorf("%w: tweet %d needs tweet_id and url", ErrValidation, i)
		}
		if in.Likes < 0 || in.Retweets < 0 || in.Replies < 0 || in.Views < 0 {
			return nil, nil, fmt.Errorf("%w: tweet %d has negative engagement", ErrValidation, i)
		}
		tweets = append(tweets, models.Tweet{
			TweetID:          in.TweetID,
			URL:              in.URL,
			Text:             in.Text,
			Likes:            in.Likes,
			Retweets:         in.Retweets,
			Replies:          in.Replies,
			Views:            in.Views,
			MetricsUpdatedAt: time.Now().UTC(),
		})
	}

	var articles []models.NewsArticle
	for i, in := range articleInputs {
		if in.URL == "" || in.Title == "" || in.Source == "" {
			return nil, nil, fmt.Errorf("%w: article %d needs url, title, and source", ErrValidation, i)
		}
		articles = append(articles, models.NewsArticle{
			URL:         in.URL,
			Title:       in.Title,
			Source:      in.Source,
			PublishedAt: in.PublishedAt,
		})
	}
	return tweets, articles, nil
}

func scoreEvidence(tweets []models.Tweet, articleCount int) float64 {
	metrics := make([]scoring.TweetMetrics, 0, len(tweets))
	for _, t := range tweets {
		metrics = append(metrics, scoring.TweetMetrics{
			Likes:    t.Likes,
			Retweets: t.Retweets,
			Replies:  t.Replies,
			Views:    t.Views,
		})
	}
	return scoring.PublicityScore(metrics, articleCount)
}
