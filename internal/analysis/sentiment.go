package analysis

import (
	"context"
	"fmt"
	"math"
	"time"

	"invest-signals/internal/types"
)

// SentimentScorer scores market mood on a 0-100 scale: news sentiment 50
// points, analyst consensus 50. With no inputs at all it returns a neutral
// 50, never a missing component.
type SentimentScorer struct{}

func NewSentimentScorer() *SentimentScorer { return &SentimentScorer{} }

func (s *SentimentScorer) Name() string { return "sentiment" }

func (s *SentimentScorer) Score(ctx context.Context, data *types.AsOfContext) (types.ComponentResult, error) {
	newsPoints, avgSent, counted := scoreNews(data.News, data.AsOfDate)
	analystPoints, consensus := scoreAnalyst(data.Ratings, data.Prices)

	score := clamp100(newsPoints + analystPoints)

	breakdown := map[string]float64{
		"news":          newsPoints,
		"analyst":       analystPoints,
		"articles_used": float64(counted),
	}
	if counted > 0 {
		breakdown["avg_sentiment"] = avgSent
	}

	confidence := 30.0
	if counted >= 5 {
		confidence += 30
	} else if counted > 0 {
		confidence += 15
	}
	if len(data.Ratings) > 0 {
		confidence += 25
	}

	return types.ComponentResult{
		Name:       s.Name(),
		Score:      score,
		Confidence: math.Min(confidence, 90),
		Breakdown:  breakdown,
		Rationale:  sentimentCommentary(counted, avgSent, consensus, score),
	}, nil
}

// scoreNews awards up to 50 points from article sentiment. Articles inside
// the last week get double weight; importance scales each article's vote.
func scoreNews(articles []types.NewsArticle, asOf time.Time) (points, avg float64, counted int) {
	if len(articles) == 0 {
		return 25, 0, 0 // neutral half
	}

	weekAgo := asOf.AddDate(0, 0, -7)
	sum, weight := 0.0, 0.0
	for _, a := range articles {
		w := 1.0
		if a.Importance > 0 {
			w = a.Importance
		}
		if a.PublishedDate.After(weekAgo) {
			w *= 2
		}
		sum += a.SentimentScore * w
		weight += w
		counted++
	}
	if weight == 0 {
		return 25, 0, counted
	}

	avg = sum / weight // -1..1
	return 25 + avg*25, avg, counted
}

// scoreAnalyst awards up to 50 points from consensus rating and price-target
// upside against the latest close.
func scoreAnalyst(ratings []types.AnalystRating, prices []types.PricePoint) (float64, string) {
	if len(ratings) == 0 {
		return 25, "" // neutral half
	}

	latest := ratings[len(ratings)-1]
	points := 25.0
	switch latest.Consensus {
	case "strong_buy":
		points = 45
	case "buy":
		points = 38
	case "hold":
		points = 25
	case "underperform":
		points = 12
	case "sell":
		points = 5
	}

	if latest.PriceTarget > 0 && len(prices) > 0 {
		last := prices[len(prices)-1].Close
		if last > 0 {
			upside := (latest.PriceTarget - last) / last * 100
			points += math.Max(-5, math.Min(5, upside*0.25))
		}
	}
	return math.Max(0, math.Min(50, points)), latest.Consensus
}

func sentimentCommentary(counted int, avg float64, consensus string, score float64) string {
	c := ""
	if counted == 0 {
		c += "No recent news coverage, assuming neutral sentiment. "
	} else if avg > 0.1 {
		c += fmt.Sprintf("News flow positive across %d articles. ", counted)
	} else if avg < -0.1 {
		c += fmt.Sprintf("News flow negative across %d articles. ", counted)
	} else {
		c += fmt.Sprintf("News flow mixed across %d articles. ", counted)
	}
	if consensus != "" {
		c += fmt.Sprintf("Analyst consensus is %s. ", consensus)
	}
	c += fmt.Sprintf("Sentiment score: %.1f.", score)
	return c
}
