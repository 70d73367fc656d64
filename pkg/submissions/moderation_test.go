package submissions

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/ragequit-tracker/platform/pkg/common/logger"
	"github.com/ragequit-tracker/platform/pkg/common/models"
	"github.com/ragequit-tracker/platform/pkg/departures"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

type fakeStore struct {
	subs       map[uuid.UUID]models.Submission
	departures []models.Departure
}

func newStore(subs ...models.Submission) *fakeStore {
	store := &fakeStore{subs: map[uuid.UUID]models.Submission{}}
	for _, sub := range subs {
		store.subs[sub.ID] = sub
	}
	return store
}

func (f *fakeStore) GetSubmission(ctx context.Context, id uuid.UUID) (models.Submission, error) {
	sub, ok := f.subs[id]
	if !ok {
		return models.Submission{}, ErrSubmissionNotFound
	}
	return sub, nil
}

func (f *fakeStore) ApproveSubmission(ctx context.Context, id uuid.UUID, dep models.Departure) (models.Departure, error) {
	sub, ok := f.subs[id]
	if !ok {
		return models.Departure{}, ErrSubmissionNotFound
	}
	if sub.Status != models.SubmissionPending {
		return models.Departure{}, ErrInvalidState
	}

	dep.ID = uuid.New()
	f.departures = append(f.departures, dep)

	sub.Status = models.SubmissionApproved
	sub.DepartureID = &dep.ID
	f.subs[id] = sub
	return dep, nil
}

func (f *fakeStore) RejectSubmission(ctx context.Context, id uuid.UUID, note string) error {
	sub, ok := f.subs[id]
	if !ok {
		return ErrSubmissionNotFound
	}
	if sub.Status != models.SubmissionPending {
		return ErrInvalidState
	}
	sub.Status = models.SubmissionRejected
	sub.ReviewNote = note
	f.subs[id] = sub
	return nil
}

func (f *fakeStore) ListSubmissions(ctx context.Context, status models.SubmissionStatus, limit int) ([]models.Submission, error) {
	var out []models.Submission
	for _, sub := range f.subs {
		if status == "" || sub.Status == status {
			out = append(out, sub)
		}
	}
	return out, nil
}

func pendingSubmission() models.Submission {
	return models.Submission{
		ID:             uuid.New(),
		MentionTweetID: "m1",
		MentionAuthor:  "alice",
		ParentTweetID:  "p1",
		ParentTweetURL: "https://x.com/janleike/status/p1",
		ParentAuthor:   "janleike",
		ParentName:     "Jan Leike",
		ParentText:     "I resigned from OpenAI.",
		ParentLikes:    52000,
		ParentRetweets: 12000,
		ParentReplies:  3200,
		ParentViews:    18000000,
		Status:         models.SubmissionPending,
	}
}

func approveRequest() models.ApproveSubmissionRequest {
	return models.ApproveSubmissionRequest{
		PersonName:    "Jan Leike",
		Role:          "Co-lead of Superalignment Team",
		Company:       models.CompanyOpenAI,
		DepartureDate: "2024-05-15",
		Summary:       "Resigned citing safety disagreements.",
	}
}

func TestApprovePromotesSubmission(t *testing.T) {
	sub := pendingSubmission()
	store := newStore(sub)
	moderator := NewModerator(store, nil)

	dep, err := moderator.Approve(context.Background(), sub.ID, approveRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if dep.PersonName != "Jan Leike" || dep.Company != models.CompanyOpenAI {
		t.Errorf("departure fields not applied: %+v", dep)
	}
	if dep.Status != models.DepartureConfirmed {
		t.Errorf("expected CONFIRMED, got %s", dep.Status)
	}
	if len(dep.Tweets) != 1 || dep.Tweets[0].TweetID != "p1" {
		t.Fatalf("expected the parent tweet as sole evidence, got %+v", dep.Tweets)
	}
	// Weighted engagement is 274,400: 10*log10 of that rounds to 54.4.
	// No articles yet, so the news component is zero.
	if dep.PublicityScore != 54.4 {
		t.Errorf("expected score 54.4, got %v", dep.PublicityScore)
	}

	updated := store.subs[sub.ID]
	if updated.Status != models.SubmissionApproved {
		t.Errorf("expected APPROVED, got %s", updated.Status)
	}
	if updated.DepartureID == nil || *updated.DepartureID != dep.ID {
		t.Errorf("expected back-reference to departure, got %v", updated.DepartureID)
	}
}

func TestApproveTwiceFails(t *testing.T) {
	sub := pendingSubmission()
	store := newStore(sub)
	moderator := NewModerator(store, nil)

	if _, err := moderator.Approve(context.Background(), sub.ID, approveRequest()); err != nil {
		t.Fatalf("first approve: %v", err)
	}
	_, err := moderator.Approve(context.Background(), sub.ID, approveRequest())
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
	if len(store.departures) != 1 {
		t.Fatalf("second approve must not create a departure, got %d", len(store.departures))
	}
}

func TestApproveMissingSubmission(t *testing.T) {
	moderator := NewModerator(newStore(), nil)
	_, err := moderator.Approve(context.Background(), uuid.New(), approveRequest())
	if !errors.Is(err, ErrSubmissionNotFound) {
		t.Fatalf("expected ErrSubmissionNotFound, got %v", err)
	}
}

func TestApproveValidatesInput(t *testing.T) {
	sub := pendingSubmission()
	store := newStore(sub)
	moderator := NewModerator(store, nil)

	cases := []models.ApproveSubmissionRequest{
		{},
		{PersonName: "Jan", Role: "r", Company: "NOT_A_LAB", DepartureDate: "2024-05-15", Summary: "s"},
		{PersonName: "Jan", Role: "r", Company: models.CompanyOpenAI, DepartureDate: "May 15th", Summary: "s"},
	}
	for i, req := range cases {
		if _, err := moderator.Approve(context.Background(), sub.ID, req); !errors.Is(err, departures.ErrValidation) {
			t.Errorf("case %d: expected ErrValidation, got %v", i, err)
		}
	}
	if len(store.departures) != 0 {
		t.Fatalf("invalid input must not create departures, got %d", len(store.departures))
	}
}

func TestApproveWithoutParentEvidence(t *testing.T) {
	sub := models.Submission{
		ID:             uuid.New(),
		MentionTweetID: "m2",
		MentionAuthor:  "bob",
		Status:         models.SubmissionPending,
	}
	store := newStore(sub)
	moderator := NewModerator(store, nil)

	dep, err := moderator.Approve(context.Background(), sub.ID, approveRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(dep.Tweets) != 0 {
		t.Errorf("expected no evidence tweets, got %d", len(dep.Tweets))
	}
	if dep.PublicityScore != 0 {
		t.Errorf("expected zero score without evidence, got %v", dep.PublicityScore)
	}
}

func TestRejectPending(t *testing.T) {
	sub := pendingSubmission()
	store := newStore(sub)
	moderator := NewModerator(store, nil)

	if err := moderator.Reject(context.Background(), sub.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	updated := store.subs[sub.ID]
	if updated.Status != models.SubmissionRejected {
		t.Errorf("expected REJECTED, got %s", updated.Status)
	}
	if updated.ReviewNote == "" {
		t.Error("expected a review note")
	}
}

func TestRejectTerminalSubmissionFails(t *testing.T) {
	approved := pendingSubmission()
	approved.Status = models.SubmissionApproved
	rejected := pendingSubmission()
	rejected.ID = uuid.New()
	rejected.Status = models.SubmissionRejected
	duplicate := pendingSubmission()
	duplicate.ID = uuid.New()
	duplicate.Status = models.SubmissionDuplicate

	store := newStore(approved, rejected, duplicate)
	moderator := NewModerator(store, nil)

	for _, id := range []uuid.UUID{approved.ID, rejected.ID, duplicate.ID} {
		if err := moderator.Reject(context.Background(), id); !errors.Is(err, ErrInvalidState) {
			t.Errorf("expected ErrInvalidState for %s, got %v", id, err)
		}
	}
}

func TestRejectMissingSubmission(t *testing.T) {
	moderator := NewModerator(newStore(), nil)
	if err := moderator.Reject(context.Background(), uuid.New()); !errors.Is(err, ErrSubmissionNotFound) {
		t.Fatalf("expected ErrSubmissionNotFound, got %v", err)
	}
}
