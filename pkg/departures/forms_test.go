package departures

import (
	"net/url"
	"testing"

	"github.com/ragequit-tracker/platform/pkg/common/models"
)

func TestDecodeTweetInputsStopsAtGap(t *testing.T) {
	values := url.Values{}
	values.Set("tweet_url_0", "https://x.com/a/status/1")
	values.Set("tweet_id_0", "1")
	values.Set("tweet_likes_0", "10")
	values.Set("tweet_url_1", "https://x.com/b/status/2")
	values.Set("tweet_id_1", "2")
	// index 2 missing, index 3 present and must be ignored
	values.Set("tweet_url_3", "https://x.com/c/status/4")

	tweets := DecodeTweetInputs(values)
	if len(tweets) != 2 {
		t.Fatalf("expected decoding to stop at the first gap, got %d tweets", len(tweets))
	}
	if tweets[0].Likes != 10 || tweets[0].TweetID != "1" {
		t.Errorf("unexpected first tweet: %+v", tweets[0])
	}
}

func TestDecodeTweetInputsBadCounts(t *testing.T) {
	values := url.Values{}
	values.Set("tweet_url_0", "https://x.com/a/status/1")
	values.Set("tweet_id_0", "1")
	values.Set("tweet_likes_0", "not-a-number")

	tweets := DecodeTweetInputs(values)
	if len(tweets) != 1 || tweets[0].Likes != 0 {
		t.Fatalf("expected unparseable count to decode as zero, got %+v", tweets)
	}
}

func TestDecodeArticleInputs(t *testing.T) {
	values := url.Values{}
	values.Set("article_url_0", "https://nyt.example/a")
	values.Set("article_title_0", "Safety researcher resigns")
	values.Set("article_source_0", "NYT")
	values.Set("article_published_0", "2024-05-17")

	articles := DecodeArticleInputs(values)
	if len(articles) != 1 {
		t.Fatalf("expected one article, got %d", len(articles))
	}
	if articles[0].PublishedAt == nil || articles[0].PublishedAt.Format("2006-01-02") != "2024-05-17" {
		t.Errorf("unexpected publish date: %v", articles[0].PublishedAt)
	}
}

func TestDecodeDepartureForm(t *testing.T) {
	values := url.Values{}
	values.Set("person_name", "Jan Leike")
	values.Set("role", "Co-lead of Superalignment Team")
	values.Set("company", "OPENAI")
	values.Set("departure_date", "2024-05-15")
	values.Set("summary", "Resigned over safety priorities.")
	values.Set("status", "CONFIRMED")
	values.Set("tweet_url_0", "https://x.com/janleike/status/1")
	values.Set("tweet_id_0", "1")
	values.Set("article_url_0", "https://nyt.example/a")
	values.Set("article_title_0", "Resignation")
	values.Set("article_source_0", "NYT")

	req := DecodeDepartureForm(values)
	if req.PersonName != "Jan Leike" || req.Company != models.CompanyOpenAI {
		t.Errorf("unexpected request: %+v", req)
	}
	if len(req.Tweets) != 1 || len(req.NewsArticles) != 1 {
		t.Errorf("expected evidence decoded, got %d tweets %d articles", len(req.Tweets), len(req.NewsArticles))
	}
}
