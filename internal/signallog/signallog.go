package signallog

import (
	"compress/gzip"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"invest-signals/internal/types"
)

// Log persists emitted signals as daily JSONL files plus a per-day CSV
// summary for spreadsheet consumption.
type Log struct {
	mu  sync.Mutex
	dir string
	now func() time.Time
}

func New(dir string) *Log {
	if dir == "" {
		dir = "signals"
	}
	return &Log{dir: dir, now: time.Now}
}

func (l *Log) dailyFilepath(t time.Time) string {
	return filepath.Join(l.dir, t.Format("2006-01-02")+".jsonl")
}

func (l *Log) summaryFilepath(t time.Time) string {
	return filepath.Join(l.dir, t.Format("2006-01-02")+".csv")
}

// Append records one signal in the day's JSONL file and refreshes the CSV
// summary row for it.
func (l *Log) Append(sig *types.InvestmentSignal) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	day := l.now()
	p := l.dailyFilepath(day)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	b, _ := json.Marshal(sig)
	if _, err := fmt.Fprintln(f, string(b)); err != nil {
		return err
	}
	return l.appendSummary(day, sig)
}

func (l *Log) appendSummary(day time.Time, sig *types.InvestmentSignal) error {
	p := l.summaryFilepath(day)
	_, statErr := os.Stat(p)
	writeHeader := os.IsNotExist(statErr)

	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if writeHeader {
		if err := w.Write([]string{
			"ticker", "analysis_date", "recommendation", "final_score",
			"confidence", "price", "mode", "risk_flags",
		}); err != nil {
			return err
		}
	}
	flags := make([]string, 0, len(sig.RiskFlags))
	for _, rf := range sig.RiskFlags {
		flags = append(flags, rf.Name)
	}
	if err := w.Write([]string{
		sig.Ticker,
		sig.AnalysisDate.Format("2006-01-02"),
		sig.Recommendation,
		strconv.FormatFloat(sig.FinalScore, 'f', 2, 64),
		strconv.FormatFloat(sig.Confidence, 'f', 2, 64),
		strconv.FormatFloat(sig.CurrentPrice, 'f', 2, 64),
		sig.Mode,
		strings.Join(flags, "|"),
	}); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

// ReadDay returns all signals logged on the given day.
func (l *Log) ReadDay(day time.Time) ([]types.InvestmentSignal, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.dailyFilepath(day))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var out []types.InvestmentSignal
	dec := json.NewDecoder(f)
	for {
		var sig types.InvestmentSignal
		if err := dec.Decode(&sig); err == io.EOF {
			break
		} else if err != nil {
			return out, err
		}
		out = append(out, sig)
	}
	return out, nil
}

// CompressOlder gzips signal files older than the retention window. A zero
// or negative retention disables compression.
func (l *Log) CompressOlder(retentionDays int) error {
	if retentionDays <= 0 {
		return nil
	}
	cutoff := l.now().AddDate(0, 0, -retentionDays)
	return filepath.WalkDir(l.dir, func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		ext := filepath.Ext(p)
		if ext != ".jsonl" && ext != ".csv" {
			return nil
		}
		info, er := os.Stat(p)
		if er != nil || !info.ModTime().Before(cutoff) {
			return nil
		}
		gz := p + ".gz"
		// if already gz exists, remove original
		if _, e2 := os.Stat(gz); e2 == nil {
			_ = os.Remove(p)
			return nil
		}

		in, e3 := os.Open(p)
		if e3 != nil {
			return nil
		}
		defer in.Close()

		out, e4 := os.OpenFile(gz, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
		if e4 != nil {
			return nil
		}
		gw := gzip.NewWriter(out)
		if _, e5 := io.Copy(gw, in); e5 == nil {
			_ = gw.Close()
			_ = out.Close()
			_ = os.Remove(p)
		} else {
			_ = gw.Close()
			_ = out.Close()
		}
		return nil
	})
}
