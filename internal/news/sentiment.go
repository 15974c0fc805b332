package news

import (
	"strings"

	"invest-signals/internal/types"
)

// Lexicon-based headline scoring. Cheap enough to run on every scraped
// article; LLM mode re-evaluates sentiment on its own from the raw titles.

var positiveTerms = []string{
	"beats", "beat", "surges", "surge", "soars", "rally", "rallies", "record",
	"upgrade", "upgraded", "raises", "raised", "strong", "growth", "tops",
	"outperform", "buyback", "dividend increase", "profit jumps", "exceeds",
	"breakthrough", "wins", "award", "expands", "partnership",
}

var negativeTerms = []string{
	"misses", "miss", "plunges", "plunge", "falls", "drops", "slumps", "cuts",
	"cut", "downgrade", "downgraded", "lawsuit", "probe", "investigation",
	"recall", "layoffs", "warning", "warns", "weak", "loss", "losses",
	"bankruptcy", "fraud", "delays", "halts", "underperform",
}

// highImpactTerms mark headlines that tend to move the stock.
var highImpactTerms = []string{
	"earnings", "guidance", "acquisition", "merger", "sec", "fda", "ceo",
	"bankruptcy", "dividend", "split", "buyback", "downgrade", "upgrade",
}

// ScoreHeadline rates a headline in [-1, 1] with an importance weight in
// [0.5, 1]. Neutral headlines score zero.
func ScoreHeadline(title string) (score, importance float64) {
	lower := strings.ToLower(title)

	hits := 0
	for _, term := range positiveTerms {
		if strings.Contains(lower, term) {
			score += 0.4
			hits++
		}
	}
	for _, term := range negativeTerms {
		if strings.Contains(lower, term) {
			score -= 0.4
			hits++
		}
	}
	if score > 1 {
		score = 1
	}
	if score < -1 {
		score = -1
	}

	importance = 0.5
	for _, term := range highImpactTerms {
		if strings.Contains(lower, term) {
			importance = 1.0
			break
		}
	}
	return score, importance
}

// Label maps a score onto the coarse sentiment label.
func Label(score float64) string {
	switch {
	case score > 0.15:
		return "positive"
	case score < -0.15:
		return "negative"
	default:
		return "neutral"
	}
}

// Annotate fills sentiment fields on scraped articles in place and returns
// the slice for chaining. Articles that already carry a sentiment are left
// untouched.
func Annotate(articles []types.NewsArticle) []types.NewsArticle {
	for i := range articles {
		if articles[i].Sentiment != "" {
			continue
		}
		score, importance := ScoreHeadline(articles[i].Title + " " + articles[i].Summary)
		articles[i].SentimentScore = score
		articles[i].Importance = importance
		articles[i].Sentiment = Label(score)
	}
	return articles
}
