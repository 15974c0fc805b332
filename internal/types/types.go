package types

import "time"

// TemporalRecord is any data point that carries the date on which the
// information became publicly known. Filtering on EffectiveDate is what keeps
// historical analyses free of look-ahead bias.
type TemporalRecord interface {
	EffectiveDate() time.Time
}

// PricePoint is one day of market data for a ticker.
type PricePoint struct {
	Ticker         string    `json:"ticker"`
	Name           string    `json:"name,omitempty"`
	Market         string    `json:"market,omitempty"`
	InstrumentType string    `json:"instrument_type,omitempty"`
	Date           time.Time `json:"date"`
	Open           float64   `json:"open"`
	High           float64   `json:"high"`
	Low            float64   `json:"low"`
	Close          float64   `json:"close"`
	Volume         float64   `json:"volume"`
	AdjustedClose  float64   `json:"adjusted_close,omitempty"`
	Currency       string    `json:"currency,omitempty"`
}

func (p PricePoint) EffectiveDate() time.Time { return p.Date }

// FinancialStatement is a single reported metric from a filing. ReportDate is
// when the filing became public, not the end of the fiscal period it covers.
type FinancialStatement struct {
	Ticker        string    `json:"ticker"`
	StatementType string    `json:"statement_type"` // income, balance, cashflow
	FiscalYear    int       `json:"fiscal_year"`
	FiscalQuarter int       `json:"fiscal_quarter,omitempty"`
	ReportDate    time.Time `json:"report_date"`
	Metric        string    `json:"metric"`
	Value         float64   `json:"value"`
	Unit          string    `json:"unit,omitempty"`
}

func (f FinancialStatement) EffectiveDate() time.Time { return f.ReportDate }

// NewsArticle is a published news item with optional pre-computed sentiment.
type NewsArticle struct {
	Ticker         string    `json:"ticker"`
	Title          string    `json:"title"`
	Summary        string    `json:"summary,omitempty"`
	Source         string    `json:"source,omitempty"`
	URL            string    `json:"url,omitempty"`
	PublishedDate  time.Time `json:"published_date"`
	Sentiment      string    `json:"sentiment,omitempty"` // positive, negative, neutral
	SentimentScore float64   `json:"sentiment_score"`     // -1..1
	Importance     float64   `json:"importance,omitempty"`
}

func (n NewsArticle) EffectiveDate() time.Time { return n.PublishedDate }

// AnalystRating is a consensus snapshot published on RatingDate.
type AnalystRating struct {
	Ticker      string    `json:"ticker"`
	RatingDate  time.Time `json:"rating_date"`
	Rating      string    `json:"rating"`
	PriceTarget float64   `json:"price_target,omitempty"`
	NumAnalysts int       `json:"num_analysts,omitempty"`
	Consensus   string    `json:"consensus,omitempty"`
}

func (a AnalystRating) EffectiveDate() time.Time { return a.RatingDate }

// AsOfContext is the full data picture for a ticker as it was knowable on
// AsOfDate. It is assembled once per analysis and treated as read-only after.
type AsOfContext struct {
	Ticker        string               `json:"ticker"`
	AsOfDate      time.Time            `json:"as_of_date"`
	LookbackDays  int                  `json:"lookback_days"`
	Prices        []PricePoint         `json:"prices"`
	Fundamentals  []FinancialStatement `json:"fundamentals"`
	News          []NewsArticle        `json:"news"`
	Ratings       []AnalystRating      `json:"ratings"`
	Warnings      []string             `json:"warnings,omitempty"`
	DataAvailable bool                 `json:"data_available"`
	RetrievedAt   time.Time            `json:"retrieved_at"`
}

// LatestPrice returns the most recent price on or before the given date.
// The bool is false when no such price exists.
func (c *AsOfContext) LatestPrice(onOrBefore time.Time) (PricePoint, bool) {
	var best PricePoint
	found := false
	for _, p := range c.Prices {
		if SameOrBeforeDay(p.Date, onOrBefore) && (!found || p.Date.After(best.Date)) {
			best = p
			found = true
		}
	}
	return best, found
}

// SameOrBeforeDay compares calendar dates, ignoring time of day. A record
// published at any time on the as-of date itself counts as known.
func SameOrBeforeDay(t, ref time.Time) bool {
	ty, tm, td := t.Date()
	ry, rm, rd := ref.Date()
	if ty != ry {
		return ty < ry
	}
	if tm != rm {
		return tm < rm
	}
	return td <= rd
}

// ComponentResult is one analysis dimension scored on a 0-100 scale.
type ComponentResult struct {
	Name       string             `json:"name"`
	Score      float64            `json:"score"`      // 0-100
	Confidence float64            `json:"confidence"` // 0-100
	Breakdown  map[string]float64 `json:"breakdown,omitempty"`
	Rationale  string             `json:"rationale,omitempty"`
}

// UnifiedAnalysisResult is the common shape both analysis modes are
// normalized into. Downstream synthesis only ever sees this type.
type UnifiedAnalysisResult struct {
	Ticker       string          `json:"ticker"`
	AnalysisDate time.Time       `json:"analysis_date"`
	Mode         string          `json:"mode"` // rule_based or llm
	Technical    ComponentResult `json:"technical"`
	Fundamental  ComponentResult `json:"fundamental"`
	Sentiment    ComponentResult `json:"sentiment"`
	Warnings     []string        `json:"warnings,omitempty"`
}

// Components returns the three component results in fixed order.
func (u *UnifiedAnalysisResult) Components() []ComponentResult {
	return []ComponentResult{u.Technical, u.Fundamental, u.Sentiment}
}

// RiskFlag marks a specific concern surfaced during risk assessment.
type RiskFlag struct {
	Name     string `json:"name"`
	Severity string `json:"severity"` // high or medium
	Detail   string `json:"detail,omitempty"`
}

// RiskAssessment summarizes risk flags for a ticker.
type RiskAssessment struct {
	Ticker string     `json:"ticker"`
	Level  string     `json:"level"` // low, elevated, high
	Flags  []RiskFlag `json:"flags,omitempty"`
}

// HasHighSeverity reports whether any flag is high severity.
func (r RiskAssessment) HasHighSeverity() bool {
	for _, f := range r.Flags {
		if f.Severity == "high" {
			return true
		}
	}
	return false
}

// PortfolioContext carries the caller's current exposure, used to temper
// recommendations for tickers already held.
type PortfolioContext struct {
	Holdings map[string]float64 `json:"holdings,omitempty"` // ticker -> weight 0..1
	CashPct  float64            `json:"cash_pct,omitempty"`
}

// InvestmentSignal is the final synthesized output for one ticker on one date.
type InvestmentSignal struct {
	Ticker            string             `json:"ticker"`
	AnalysisDate      time.Time          `json:"analysis_date"`
	GeneratedAt       time.Time          `json:"generated_at"`
	Mode              string             `json:"mode"`
	Recommendation    string             `json:"recommendation"` // buy, hold_bullish, hold_bearish, sell, avoid
	FinalScore        float64            `json:"final_score"`    // 0-100
	Confidence        float64            `json:"confidence"`     // 0-100
	CurrentPrice      float64            `json:"current_price"`
	ExpectedReturnLow float64            `json:"expected_return_low"`
	ExpectedReturnHi  float64            `json:"expected_return_high"`
	ComponentScores   map[string]float64 `json:"component_scores"`
	RiskFlags         []RiskFlag         `json:"risk_flags,omitempty"`
	Warnings          []string           `json:"warnings,omitempty"`
	KeyReasons        []string           `json:"key_reasons"`
	Rationale         string             `json:"rationale"`
}
