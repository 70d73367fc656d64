package departures

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/ragequit-tracker/platform/pkg/common/models"
)

// The admin form submits evidence lists as flat indexed fields
// (tweet_url_0, tweet_url_1, ...). Decoding probes indexes in order and
// stops at the first missing one.

func DecodeTweetInputs(values url.Values) []models.TweetInput {
	var tweets []models.TweetInput
	for i := 0; ; i++ {
		if !values.Has(fmt.Sprintf("tweet_url_%d", i)) {
			break
		}
		tweets = append(tweets, models.TweetInput{
			URL:      values.Get(fmt.Sprintf("tweet_url_%d", i)),
			TweetID:  values.Get(fmt.Sprintf("tweet_id_%d", i)),
			Text:     values.Get(fmt.Sprintf("tweet_text_%d", i)),
			Likes:    atoiOrZero(values.Get(fmt.Sprintf("tweet_likes_%d", i))),
			Retweets: atoiOrZero(values.Get(fmt.Sprintf("tweet_retweets_%d", i))),
			Replies:  atoiOrZero(values.Get(fmt.Sprintf("tweet_replies_%d", i))),
			Views:    atoiOrZero(values.Get(fmt.Sprintf("tweet_views_%d", i))),
		})
	}
	return tweets
}

func DecodeArticleInputs(values url.Values) []models.NewsArticleInput {
	var articles []models.NewsArticleInput
	for i := 0; ; i++ {
		if !values.Has(fmt.Sprintf("article_url_%d", i)) {
			break
		}
		articles = append(articles, models.NewsArticleInput{
			URL:         values.Get(fmt.Sprintf("article_url_%d", i)),
			Title:       values.Get(fmt.Sprintf("article_title_%d", i)),
			Source:      values.Get(fmt.Sprintf("article_source_%d", i)),
			PublishedAt: parseDateOrNil(values.Get(fmt.Sprintf("article_published_%d", i))),
		})
	}
	return articles
}

// DecodeDepartureForm builds a create/update request from flat form
// fields, evidence lists included.
func DecodeDepartureForm(values url.Values) models.CreateDepartureRequest {
	return models.CreateDepartureRequest{
		PersonName:      values.Get("person_name"),
		Role:            values.Get("role"),
		Company:         models.Company(values.Get("company")),
		DepartureDate:   values.Get("departure_date"),
		Summary:         values.Get("summary"),
		ProfileImageURL: values.Get("profile_image_url"),
		Status:          models.DepartureStatus(values.Get("status")),
		Tweets:          DecodeTweetInputs(values),
		NewsArticles:    DecodeArticleInputs(values),
	}
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

func parseDateOrNil(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil
	}
	return &t
}
