package yahoo

import (
	"bytes"
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"invest-signals/internal/trace"
	"invest-signals/internal/types"
)

// statisticRows maps the labels on the key-statistics page to our metric
// names. Only rows listed here are extracted.
var statisticRows = map[string]string{
	"Total Revenue":             "revenue",
	"Net Income Avi to Common":  "net_income",
	"Diluted EPS":               "eps",
	"Total Debt/Equity":         "debt_to_equity",
	"Current Ratio":             "current_ratio",
	"Trailing P/E":              "pe_ratio",
	"Profit Margin":             "net_margin",
	"Quarterly Revenue Growth":  "revenue_growth",
	"Quarterly Earnings Growth": "earnings_growth",
}

// FetchFundamentals scrapes the key-statistics page. The snapshot is dated
// today: a statistics page only ever shows current values, so the result is
// a point-in-time observation, never a history.
func (c *Client) FetchFundamentals(ctx context.Context, ticker string) ([]types.FinancialStatement, error) {
	ctx, span := trace.StartSpan(ctx, "yahoo.FetchFundamentals")
	defer span.End()

	pageURL := c.siteBase + "/quote/" + url.PathEscape(ticker) + "/key-statistics"
	body, err := c.get(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	fy, fq := today.Year(), int(today.Month()-1)/3+1

	var out []types.FinancialStatement
	doc.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}
		label := strings.TrimSpace(cells.First().Text())
		metric, wanted := matchStatistic(label)
		if !wanted {
			return
		}
		value, ok := parseStatValue(strings.TrimSpace(cells.Eq(1).Text()))
		if !ok {
			return
		}
		out = append(out, types.FinancialStatement{
			Ticker:        ticker,
			StatementType: "snapshot",
			FiscalYear:    fy,
			FiscalQuarter: fq,
			ReportDate:    today,
			Metric:        metric,
			Value:         value,
		})
	})
	return out, nil
}

// FetchRatings scrapes the analyst consensus block from the analysis page.
func (c *Client) FetchRatings(ctx context.Context, ticker string) ([]types.AnalystRating, error) {
	ctx, span := trace.StartSpan(ctx, "yahoo.FetchRatings")
	defer span.End()

	pageURL := c.siteBase + "/quote/" + url.PathEscape(ticker) + "/analysis"
	body, err := c.get(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	rating := types.AnalystRating{
		Ticker:     ticker,
		RatingDate: time.Now().UTC().Truncate(24 * time.Hour),
	}

	doc.Find("[data-testid=price-targets] .price-targets span, .recommendation span").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if v, ok := parseStatValue(text); ok && rating.PriceTarget == 0 {
			rating.PriceTarget = v
		}
	})
	doc.Find("[data-testid=rec-rating], .rating-text").Each(func(_ int, s *goquery.Selection) {
		if rating.Consensus == "" {
			rating.Consensus = normalizeConsensus(s.Text())
		}
	})

	if rating.Consensus == "" && rating.PriceTarget == 0 {
		return nil, nil
	}
	rating.Rating = rating.Consensus
	return []types.AnalystRating{rating}, nil
}

func matchStatistic(label string) (string, bool) {
	for prefix, metric := range statisticRows {
		if strings.HasPrefix(label, prefix) {
			return metric, true
		}
	}
	return "", false
}

// parseStatValue parses Yahoo's abbreviated numbers ("1.25T", "845.3M",
// "12.4%", "N/A").
func parseStatValue(raw string) (float64, bool) {
	raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if raw == "" || raw == "N/A" || raw == "--" {
		return 0, false
	}

	mult := 1.0
	if strings.HasSuffix(raw, "%") {
		raw = strings.TrimSuffix(raw, "%")
	} else {
		switch {
		case strings.HasSuffix(raw, "T"):
			mult, raw = 1e12, strings.TrimSuffix(raw, "T")
		case strings.HasSuffix(raw, "B"):
			mult, raw = 1e9, strings.TrimSuffix(raw, "B")
		case strings.HasSuffix(raw, "M"):
			mult, raw = 1e6, strings.TrimSuffix(raw, "M")
		case strings.HasSuffix(raw, "k"):
			mult, raw = 1e3, strings.TrimSuffix(raw, "k")
		}
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v * mult, true
}

func normalizeConsensus(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.ReplaceAll(s, " ", "_")
	switch s {
	case "strong_buy", "buy", "hold", "underperform", "sell":
		return s
	}
	return ""
}
