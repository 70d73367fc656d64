package departures

import (
	"errors"
	"testing"

	"github.com/ragequit-tracker/platform/pkg/common/models"
)

func TestDepartureFromRequestValidation(t *testing.T) {
	valid := models.CreateDepartureRequest{
		PersonName:    "Jan Leike",
		Role:          "Co-lead of Superalignment Team",
		Company:       models.CompanyOpenAI,
		DepartureDate: "2024-05-15",
		Summary:       "Resigned over safety priorities.",
	}

	dep, err := departureFromRequest(valid)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dep.Status != models.DepartureConfirmed {
		t.Errorf("expected default CONFIRMED status, got %s", dep.Status)
	}
	if dep.DepartureDate.Format("2006-01-02") != "2024-05-15" {
		t.Errorf("unexpected date %v", dep.DepartureDate)
	}

	cases := []struct {
		name   string
		mutate func(*models.CreateDepartureRequest)
	}{
		{"missing name", func(r *models.CreateDepartureRequest) { r.PersonName = "" }},
		{"missing role", func(r *models.CreateDepartureRequest) { r.Role = "" }},
		{"missing summary", func(r *models.CreateDepartureRequest) { r.Summary = "" }},
		{"bad company", func(r *models.CreateDepartureRequest) { r.Company = "MICROSOFT" }},
		{"bad date", func(r *models.CreateDepartureRequest) { r.DepartureDate = "May 2024" }},
		{"bad status", func(r *models.CreateDepartureRequest) { r.Status = "MAYBE" }},
	}
	for _, tc := range cases {
		req := valid
		tc.mutate(&req)
		if _, err := departureFromRequest(req); !errors.Is(err, ErrValidation) {
			t.Errorf("%s: expected ErrValidation, got %v", tc.name, err)
		}
	}
}

func TestEvidenceFromInputsValidation(t *testing.T) {
	_, _, err := evidenceFromInputs([]models.TweetInput{{URL: "https://x.com/a/status/1"}}, nil)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for missing tweet id, got %v", err)
	}

	_, _, err = evidenceFromInputs([]models.TweetInput{{TweetID: "1", URL: "u", Likes: -1}}, nil)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for negative counts, got %v", err)
	}

	_, _, err = evidenceFromInputs(nil, []models.NewsArticleInput{{URL: "u"}})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for incomplete article, got %v", err)
	}

	tweets, articles, err := evidenceFromInputs(
		[]models.TweetInput{{TweetID: "1", URL: "https://x.com/a/status/1", Likes: 5}},
		[]models.NewsArticleInput{{URL: "https://nyt.example/a", Title: "t", Source: "NYT"}},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tweets) != 1 || len(articles) != 1 {
		t.Fatalf("expected evidence built, got %d/%d", len(tweets), len(articles))
	}
	if tweets[0].MetricsUpdatedAt.IsZero() {
		t.Error("expected metrics capture timestamp set")
	}
}

func TestScoreEvidence(t *testing.T) {
	tweets := []models.Tweet{{Likes: 52000, Retweets: 12000, Replies: 3200, Views: 18000000}}
	if got := scoreEvidence(tweets, 2); got != 67.7 {
		t.Fatalf("expected 67.7, got %v", got)
	}
	if got := scoreEvidence(nil, 0); got != 0 {
		t.Fatalf("expected 0 for no evidence, got %v", got)
	}
}
