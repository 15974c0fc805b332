package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// DataType identifies what kind of market data an entry holds. Each type has
// its own freshness policy.
type DataType string

const (
	TypePrices     DataType = "prices"
	TypeNews       DataType = "news"
	TypeStatements DataType = "statements"
	TypeRatings    DataType = "ratings"
)

const (
	priceTTLMarketHours = 1 * time.Hour
	priceTTLOffHours    = 24 * time.Hour
	newsTTL             = 4 * time.Hour
	ratingsTTL          = 24 * time.Hour
	statementsTTL       = 7 * 24 * time.Hour
)

// Store provides file-based caching of provider responses. Live entries
// expire by data-type TTL; historical snapshot entries are keyed by as-of
// date and never expire.
type Store struct {
	dir string
	mu  sync.RWMutex
	now func() time.Time
}

// entry is the on-disk representation of a cached item.
type entry struct {
	Key       string    `json:"key"`
	Data      []byte    `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// NewStore creates a cache store rooted at dir.
func NewStore(dir string) *Store {
	if dir == "" {
		dir = "cache/market"
	}
	os.MkdirAll(dir, 0755)
	return &Store{dir: dir, now: time.Now}
}

// TTLFor returns the freshness window for a data type at the given time.
// Prices go stale quickly while the market is trading and slowly overnight.
func TTLFor(dt DataType, at time.Time) time.Duration {
	switch dt {
	case TypePrices:
		if marketHours(at) {
			return priceTTLMarketHours
		}
		return priceTTLOffHours
	case TypeNews:
		return newsTTL
	case TypeRatings:
		return ratingsTTL
	case TypeStatements:
		return statementsTTL
	default:
		return ratingsTTL
	}
}

// marketHours reports whether t falls inside regular US trading hours.
func marketHours(t time.Time) bool {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		loc = time.UTC
	}
	local := t.In(loc)
	if wd := local.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}
	mins := local.Hour()*60 + local.Minute()
	return mins >= 9*60+30 && mins < 16*60
}

// Get retrieves a live entry, honoring the data type's TTL. A corrupted or
// expired entry counts as a miss and is removed.
func (s *Store) Get(dt DataType, ticker string) ([]byte, bool) {
	path := s.livePath(dt, ticker)

	s.mu.RLock()
	data, ok, drop := s.lookupLive(dt, path)
	s.mu.RUnlock()

	if drop {
		s.removeEntry(path)
	}
	return data, ok
}

// lookupLive reads a live entry under the read lock. drop marks an expired or
// corrupted file for removal by the caller, which must not hold the lock.
func (s *Store) lookupLive(dt DataType, path string) (data []byte, ok, drop bool) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, false, false
	}
	if s.now().Sub(info.ModTime()) > TTLFor(dt, s.now()) {
		return nil, false, true
	}
	data, ok, corrupt := s.readEntry(path)
	return data, ok, corrupt
}

// Set stores a live entry.
func (s *Store) Set(dt DataType, ticker string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeEntry(s.livePath(dt, ticker), dt, ticker, data)
}

// GetAsOf retrieves the historical snapshot with the nearest as-of date at
// or before the requested date. Snapshot entries never expire.
func (s *Store) GetAsOf(dt DataType, ticker string, asOf time.Time) ([]byte, time.Time, bool) {
	s.mu.RLock()
	data, bestDate, ok, corrupt, bestPath := s.lookupAsOf(dt, ticker, asOf)
	s.mu.RUnlock()

	if corrupt {
		s.removeEntry(bestPath)
	}
	if !ok {
		return nil, time.Time{}, false
	}
	return data, bestDate, true
}

func (s *Store) lookupAsOf(dt DataType, ticker string, asOf time.Time) (data []byte, bestDate time.Time, ok, corrupt bool, bestPath string) {
	prefix := fmt.Sprintf("%s_%s_", dt, strings.ToUpper(ticker))
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, time.Time{}, false, false, ""
	}

	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".json") {
			continue
		}
		d, err := time.Parse("2006-01-02", strings.TrimSuffix(name[len(prefix):], ".json"))
		if err != nil {
			continue
		}
		if d.After(asOf) {
			continue
		}
		if bestPath == "" || d.After(bestDate) {
			bestDate = d
			bestPath = filepath.Join(s.dir, name)
		}
	}

	if bestPath == "" {
		return nil, time.Time{}, false, false, ""
	}
	data, ok, corrupt = s.readEntry(bestPath)
	return data, bestDate, ok, corrupt, bestPath
}

// SetAsOf stores a historical snapshot keyed by as-of date.
func (s *Store) SetAsOf(dt DataType, ticker string, asOf time.Time, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeEntry(s.asOfPath(dt, ticker, asOf), dt, ticker, data)
}

// GetOrFetch retrieves a live entry or fetches and caches it. A failed cache
// write never fails the fetch.
func (s *Store) GetOrFetch(dt DataType, ticker string, fetchFn func() ([]byte, error)) ([]byte, error) {
	if data, ok := s.Get(dt, ticker); ok {
		return data, nil
	}

	data, err := fetchFn()
	if err != nil {
		return nil, err
	}

	s.Set(dt, ticker, data)
	return data, nil
}

// Clear removes all cache entries.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return os.RemoveAll(s.dir)
}

// CleanupExpired removes live entries past their TTL. Snapshot entries are
// left alone.
func (s *Store) CleanupExpired() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return err
	}

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		dt, snapshot := classify(e.Name())
		if snapshot {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if s.now().Sub(info.ModTime()) > TTLFor(dt, s.now()) {
			os.Remove(filepath.Join(s.dir, e.Name()))
		}
	}
	return nil
}

// classify parses a cache filename into its data type and whether it is a
// dated snapshot.
func classify(name string) (DataType, bool) {
	base := strings.TrimSuffix(name, ".json")
	parts := strings.Split(base, "_")
	dt := DataType(parts[0])
	if len(parts) >= 3 {
		if _, err := time.Parse("2006-01-02", parts[len(parts)-1]); err == nil {
			return dt, true
		}
	}
	return dt, false
}

func (s *Store) livePath(dt DataType, ticker string) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s_%s.json", dt, strings.ToUpper(ticker)))
}

func (s *Store) asOfPath(dt DataType, ticker string, asOf time.Time) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s_%s_%s.json", dt, strings.ToUpper(ticker), asOf.Format("2006-01-02")))
}

// readEntry decodes an entry file. corrupt marks an undecodable file; the
// caller removes it once the read lock is released.
func (s *Store) readEntry(path string) (data []byte, ok, corrupt bool) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, false, false
	}
	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, false, true
	}
	return e.Data, true, false
}

func (s *Store) removeEntry(path string) {
	s.mu.Lock()
	os.Remove(path)
	s.mu.Unlock()
}

func (s *Store) writeEntry(path string, dt DataType, ticker string, data []byte) error {
	e := entry{
		Key:       fmt.Sprintf("%s_%s", dt, strings.ToUpper(ticker)),
		Data:      data,
		Timestamp: s.now(),
	}
	raw, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0644)
}
