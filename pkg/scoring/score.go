// Package scoring computes the publicity score of a departure from its
// social engagement and news coverage. All functions are pure.
package scoring

import "math"

// TweetMetrics are the engagement counters of one evidence tweet.
type TweetMetrics struct {
	Likes    int
	Retweets int
	Replies  int
	Views    int
}

const (
	tweetScoreCap = 70
	newsScoreCap  = 30
)

// TweetScore maps total weighted engagement onto a log scale so raw
// virality has diminishing returns. Bounded to [0, 70].
func TweetScore(tweets []TweetMetrics) float64 {
	if len(tweets) == 0 {
		return 0
	}

	var engagement float64
	for _, t := range tweets {
		engagement += float64(t.Retweets)*3 + float64(t.Replies)*2 + float64(t.Likes) + float64(t.Views)*0.01
	}

	return math.Min(tweetScoreCap, math.Log10(math.Max(1, engagement))*10)
}

// NewsScore is a saturating curve over article count: the first few
// corroborating articles count heavily, later ones flatten out. Bounded to
// [0, 30].
func NewsScore(articleCount int) float64 {
	if articleCount == 0 {
		return 0
	}
	n := float64(articleCount)
	return math.Min(newsScoreCap, n*10/(1+n*0.25))
}

// PublicityScore combines both components, rounded to one decimal place.
func PublicityScore(tweets []TweetMetrics, articleCount int) float64 {
	return math.Round((TweetScore(tweets)+NewsScore(articleCount))*10) / 10
}
