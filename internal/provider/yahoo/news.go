package yahoo

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"invest-signals/internal/api"
	"invest-signals/internal/logger"
	"invest-signals/internal/news"
	"invest-signals/internal/trace"
	"invest-signals/internal/types"
)

// articleSelectors defines CSS selectors for extracting article data from the
// quote news page.
type articleSelectors struct {
	Container   string
	Title       string
	URL         string
	Summary     string
	PublishedAt string
	Source      string
}

func defaultSelectors() articleSelectors {
	return articleSelectors{
		Container:   "li.stream-item, li.js-stream-content",
		Title:       "h3 a, h3",
		URL:         "h3 a, a",
		Summary:     "p",
		PublishedAt: "time",
		Source:      "div.publishing, span.publisher",
	}
}

// FetchNews scrapes recent headlines from the ticker's news page and scores
// their sentiment with the headline lexicon.
func (c *Client) FetchNews(ctx context.Context, ticker string, start, end time.Time, limit int) ([]types.NewsArticle, error) {
	ctx, span := trace.StartSpan(ctx, "yahoo.FetchNews")
	defer span.End()

	if limit <= 0 || limit > c.maxArticles {
		limit = c.maxArticles
	}
	sel := defaultSelectors()

	articles := []types.NewsArticle{}
	col := colly.NewCollector(
		colly.AllowedDomains(hostOf(c.siteBase)),
		colly.MaxDepth(1),
		colly.Async(false),
	)
	col.SetRequestTimeout(c.httpClient.Timeout())

	col.OnRequest(func(r *colly.Request) {
		for key, value := range api.BrowserHeaders() {
			r.Headers.Set(key, value)
		}
	})

	col.OnHTML(sel.Container, func(e *colly.HTMLElement) {
		if len(articles) >= limit {
			return
		}

		title := strings.TrimSpace(e.ChildText(sel.Title))
		if title == "" {
			return
		}

		articleURL := e.ChildAttr(sel.URL, "href")
		if articleURL != "" && !strings.HasPrefix(articleURL, "http") {
			articleURL = c.siteBase + articleURL
		}

		published := parseArticleTime(e.ChildAttr(sel.PublishedAt, "datetime"), end)
		if published.Before(start) || published.After(end) {
			return
		}

		articles = append(articles, types.NewsArticle{
			Ticker:        ticker,
			Title:         title,
			Summary:       strings.TrimSpace(e.ChildText(sel.Summary)),
			Source:        firstNonEmpty(strings.TrimSpace(e.ChildText(sel.Source)), "yahoo"),
			URL:           articleURL,
			PublishedDate: published,
		})
	})

	col.OnError(func(r *colly.Response, err error) {
		logger.ErrorWithErr(ctx, "News scraping error", err, "ticker", ticker, "url", r.Request.URL.String())
	})

	newsURL := c.siteBase + "/quote/" + url.PathEscape(ticker) + "/news"
	if err := col.Visit(newsURL); err != nil {
		return nil, err
	}
	col.Wait()

	logger.Info(ctx, "News scraping completed", "ticker", ticker, "articles", len(articles))
	return news.Annotate(articles), nil
}

// parseArticleTime parses an article timestamp, defaulting to the end of the
// requested window when the page omits one.
func parseArticleTime(raw string, fallback time.Time) time.Time {
	if raw == "" {
		return fallback
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05Z0700", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC()
		}
	}
	return fallback
}

func hostOf(base string) string {
	u, err := url.Parse(base)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
