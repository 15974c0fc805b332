package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"invest-signals/internal/logger"
	"invest-signals/internal/types"
)

// Chat is a minimal completion client. Claude and OpenAI both satisfy it.
type Chat interface {
	Complete(ctx context.Context, system, user string) (string, error)
	Provider() string
}

// ComponentScore is the flat per-component output of an LLM analysis task.
// Unlike the synthesis payload, component tasks retain their factor detail.
type ComponentScore struct {
	Component  string             `json:"component"`
	Score      float64            `json:"score"`
	Confidence float64            `json:"confidence"`
	Factors    map[string]float64 `json:"factors,omitempty"`
	Rationale  string             `json:"rationale"`

	// Parsed is false when the model reply could not be interpreted and the
	// score is a placeholder.
	Parsed bool `json:"-"`
}

// Synthesis is the deliberately minimal aggregate the synthesis task yields.
// It never carries factor detail.
type Synthesis struct {
	TechnicalScore   float64 `json:"technical_score"`
	FundamentalScore float64 `json:"fundamental_score"`
	SentimentScore   float64 `json:"sentiment_score"`
	Recommendation   string  `json:"recommendation"`
	Summary          string  `json:"summary"`
}

// Output is the full flat-shaped result of an LLM-mode analysis.
type Output struct {
	Ticker       string                    `json:"ticker"`
	AnalysisDate time.Time                 `json:"analysis_date"`
	Components   map[string]ComponentScore `json:"components"`
	Synthesis    Synthesis                 `json:"synthesis"`
	Warnings     []string                  `json:"warnings,omitempty"`
}

// Analyzer drives the LLM-mode analysis: one task per component plus a
// synthesis task, all against the same point-in-time context digest.
type Analyzer struct {
	client Chat
	system string
}

var componentNames = []string{"technical", "fundamental", "sentiment"}

// NewAnalyzer creates an LLM analyzer on top of a chat client.
func NewAnalyzer(client Chat, system string) *Analyzer {
	if system == "" {
		system = "You are a disciplined equity analyst. You only use the data provided; you never assume facts from after the analysis date. Output STRICT JSON."
	}
	return &Analyzer{client: client, system: system}
}

// Analyze runs the component tasks concurrently, then the synthesis task.
func (a *Analyzer) Analyze(ctx context.Context, data *types.AsOfContext) (*Output, error) {
	timer := logger.StartOperation(ctx, "llm.Analyze", "ticker", data.Ticker, "provider", a.client.Provider())
	ctx = timer.GetContext()

	digest := buildDigest(data)
	out := &Output{
		Ticker:       data.Ticker,
		AnalysisDate: data.AsOfDate,
		Components:   make(map[string]ComponentScore, len(componentNames)),
		Warnings:     append([]string(nil), data.Warnings...),
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	for _, name := range componentNames {
		wg.Add(1)
		go func(component string) {
			defer wg.Done()
			cs := a.scoreComponent(ctx, component, digest)
			mu.Lock()
			out.Components[component] = cs
			mu.Unlock()
		}(name)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		timer.EndWithError(err)
		return nil, err
	}

	out.Synthesis = a.synthesize(ctx, out, digest)

	timer.End("parsed_components", countParsed(out.Components))
	return out, nil
}

func (a *Analyzer) scoreComponent(ctx context.Context, component, digest string) ComponentScore {
	user := fmt.Sprintf(
		"Task: %s analysis.\nData:\n%s\n\nRespond ONLY with compact JSON: "+
			`{"component":"%s","score":<0-100>,"confidence":<0-100>,"factors":{...},"rationale":"..."}`,
		component, digest, component)

	text, err := a.client.Complete(ctx, a.system, user)
	if err != nil {
		logger.ErrorWithErr(ctx, "LLM component task failed", err, "component", component)
		return ComponentScore{Component: component, Score: 50, Rationale: "llm_call_failed", Parsed: false}
	}

	cs := parseComponentFromText(text)
	cs.Component = component
	return cs
}

func (a *Analyzer) synthesize(ctx context.Context, out *Output, digest string) Synthesis {
	scores, _ := json.Marshal(out.Components)
	user := fmt.Sprintf(
		"Task: synthesis.\nComponent results:\n%s\n\nRespond ONLY with compact JSON: "+
			`{"technical_score":<0-100>,"fundamental_score":<0-100>,"sentiment_score":<0-100>,"recommendation":"...","summary":"..."}`,
		string(scores))

	text, err := a.client.Complete(ctx, a.system, user)
	if err != nil {
		logger.ErrorWithErr(ctx, "LLM synthesis task failed", err)
		return fallbackSynthesis(out)
	}

	var s Synthesis
	if raw, ok := extractJSON(text); ok && json.Unmarshal([]byte(raw), &s) == nil {
		return s
	}
	return fallbackSynthesis(out)
}

// fallbackSynthesis echoes the component scores when the synthesis reply is
// unusable. Detail never comes from here anyway.
func fallbackSynthesis(out *Output) Synthesis {
	return Synthesis{
		TechnicalScore:   out.Components["technical"].Score,
		FundamentalScore: out.Components["fundamental"].Score,
		SentimentScore:   out.Components["sentiment"].Score,
		Recommendation:   "hold",
		Summary:          "synthesis unavailable, component scores passed through",
	}
}

// parseComponentFromText tries to locate a JSON object in text and unmarshal
// it into a ComponentScore.
func parseComponentFromText(text string) ComponentScore {
	raw, ok := extractJSON(text)
	if !ok {
		return ComponentScore{Score: 50, Rationale: "unable_to_parse_llm_output", Parsed: false}
	}

	var cs ComponentScore
	if err := json.Unmarshal([]byte(raw), &cs); err != nil {
		return ComponentScore{Score: 50, Rationale: "unable_to_parse_llm_output", Parsed: false}
	}
	cs.Parsed = true
	return cs
}

// extractJSON finds the outermost JSON object in a model reply, tolerating
// prose or code fences around it.
func extractJSON(text string) (string, bool) {
	t := strings.TrimSpace(text)
	if strings.HasPrefix(t, "{") && strings.HasSuffix(t, "}") {
		return t, true
	}
	start := strings.Index(t, "{")
	end := strings.LastIndex(t, "}")
	if start >= 0 && end > start {
		return t[start : end+1], true
	}
	return "", false
}

// buildDigest renders the context into a compact text block for prompting.
// Only data already filtered to the as-of date goes in.
func buildDigest(data *types.AsOfContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "ticker: %s\nanalysis_date: %s\n", data.Ticker, data.AsOfDate.Format("2006-01-02"))

	n := len(data.Prices)
	if n > 0 {
		first, last := data.Prices[0], data.Prices[n-1]
		fmt.Fprintf(&b, "prices: %d bars from %s to %s, last close %.2f\n",
			n, first.Date.Format("2006-01-02"), last.Date.Format("2006-01-02"), last.Close)
		recent := data.Prices
		if n > 20 {
			recent = data.Prices[n-20:]
		}
		b.WriteString("recent closes:")
		for _, p := range recent {
			fmt.Fprintf(&b, " %.2f", p.Close)
		}
		b.WriteString("\n")
	} else {
		b.WriteString("prices: none\n")
	}

	if len(data.Fundamentals) > 0 {
		b.WriteString("fundamentals:\n")
		for _, st := range data.Fundamentals {
			fmt.Fprintf(&b, "  %s %s (reported %s): %.4g\n",
				st.StatementType, st.Metric, st.ReportDate.Format("2006-01-02"), st.Value)
		}
	}

	if len(data.News) > 0 {
		b.WriteString("news headlines:\n")
		for i, a := range data.News {
			if i >= 15 {
				break
			}
			fmt.Fprintf(&b, "  [%s] %s\n", a.PublishedDate.Format("2006-01-02"), a.Title)
		}
	}

	for _, r := range data.Ratings {
		fmt.Fprintf(&b, "analyst consensus (%s): %s target %.2f from %d analysts\n",
			r.RatingDate.Format("2006-01-02"), r.Consensus, r.PriceTarget, r.NumAnalysts)
	}

	if len(data.Warnings) > 0 {
		fmt.Fprintf(&b, "data warnings: %s\n", strings.Join(data.Warnings, "; "))
	}
	return b.String()
}

func countParsed(components map[string]ComponentScore) int {
	n := 0
	for _, c := range components {
		if c.Parsed {
			n++
		}
	}
	return n
}
