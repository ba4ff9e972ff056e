package finops

import (
	"log/slog"
	"sync"
	"time"

	"github.com/lithammer/shortuuid/v4"

	"github.com/hrygo/tempo/internal/errors"
)

// UsageRecord is an immutable log entry for one model invocation.
type UsageRecord struct {
	ID               string    `json:"id"`
	UserID           string    `json:"userId"`
	PromptTokens     int       `json:"promptTokens"`
	CompletionTokens int       `json:"completionTokens"`
	TotalTokens      int       `json:"totalTokens"`
	Model            string    `json:"model"`
	Cost             float64   `json:"cost"`
	RequestID        string    `json:"requestId"`
	Timestamp        time.Time `json:"timestamp"`
}

// Limits holds per-user token quotas.
type Limits struct {
	DailyTokens   int64 `json:"dailyTokens"`
	MonthlyTokens int64 `json:"monthlyTokens"`
}

// DefaultLimits applies when a user has no explicit override.
var DefaultLimits = Limits{
	DailyTokens:   100_000,
	MonthlyTokens: 2_000_000,
}

// LimitStatus is the advisory result of a quota check. The tracker never
// blocks; callers decide whether to refuse the request.
type LimitStatus struct {
	DailyExceeded   bool   `json:"dailyExceeded"`
	MonthlyExceeded bool   `json:"monthlyExceeded"`
	DailyUsed       int64  `json:"dailyUsed"`
	MonthlyUsed     int64  `json:"monthlyUsed"`
	Limits          Limits `json:"limits"`
}

// UsageStats aggregates usage over a timeframe.
type UsageStats struct {
	Requests         int     `json:"requests"`
	PromptTokens     int64   `json:"promptTokens"`
	CompletionTokens int64   `json:"completionTokens"`
	TotalTokens      int64   `json:"totalTokens"`
	Cost             float64 `json:"cost"`
}

// Timeframe selects an aggregation window for Stats.
type Timeframe string

const (
	TimeframeToday Timeframe = "today"
	TimeframeMonth Timeframe = "month"
	TimeframeAll   Timeframe = "all"
)

// DefaultRetention is how long usage records are kept before pruning.
const DefaultRetention = 30 * 24 * time.Hour

// Tracker records token usage per user. Append-only; records are never
// mutated after creation and are pruned by age on an external schedule.
// Safe for concurrent callers.
type Tracker struct {
	mu        sync.RWMutex
	records   map[string][]UsageRecord
	limits    map[string]Limits
	retention time.Duration
	logger    *slog.Logger

	// now is swapped in tests for deterministic windows.
	now func() time.Time
}

// NewTracker creates a usage tracker with the default retention window.
func NewTracker() *Tracker {
	return &Tracker{
		records:   make(map[string][]UsageRecord),
		limits:    make(map[string]Limits),
		retention: DefaultRetention,
		logger:    slog.Default(),
		now:       time.Now,
	}
}

// Track appends a usage record for one model invocation and returns it.
// Negative token counts are programmer errors and rejected.
func (t *Tracker) Track(userID string, promptTokens, completionTokens int, model, requestID string) (*UsageRecord, error) {
	if promptTokens < 0 || completionTokens < 0 {
		return nil, errors.InvalidArgument("token counts cannot be negative")
	}
	if model == "" {
		model = DefaultModel
	}

	record := UsageRecord{
		ID:               shortuuid.New(),
		UserID:           userID,
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		TotalTokens:      promptTokens + completionTokens,
		Model:            model,
		Cost:             CostOf(model, promptTokens, completionTokens),
		RequestID:        requestID,
		Timestamp:        t.now().UTC(),
	}

	t.mu.Lock()
	t.records[userID] = append(t.records[userID], record)
	t.mu.Unlock()

	t.logger.Debug("tracked model usage",
		"user_id", userID,
		"model", model,
		"total_tokens", record.TotalTokens,
		"cost", record.Cost)

	return &record, nil
}

// Stats aggregates a user's usage over the given timeframe.
func (t *Tracker) Stats(userID string, frame Timeframe) UsageStats {
	since := time.Time{}
	now := t.now().UTC()
	switch frame {
	case TimeframeToday:
		since = startOfDay(now)
	case TimeframeMonth:
		since = startOfMonth(now)
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	var stats UsageStats
	for _, r := range t.records[userID] {
		if r.Timestamp.Before(since) {
			continue
		}
		stats.Requests++
		stats.PromptTokens += int64(r.PromptTokens)
		stats.CompletionTokens += int64(r.CompletionTokens)
		stats.TotalTokens += int64(r.TotalTokens)
		stats.Cost += r.Cost
	}
	return stats
}

// CheckLimits reports whether the user's cumulative usage strictly exceeds
// the daily or monthly quota. Advisory only.
func (t *Tracker) CheckLimits(userID string) LimitStatus {
	now := t.now().UTC()
	dayStart := startOfDay(now)
	monthStart := startOfMonth(now)

	t.mu.RLock()
	defer t.mu.RUnlock()

	limits, ok := t.limits[userID]
	if !ok {
		limits = DefaultLimits
	}

	var daily, monthly int64
	for _, r := range t.records[userID] {
		if !r.Timestamp.Before(monthStart) {
			monthly += int64(r.TotalTokens)
		}
		if !r.Timestamp.Before(dayStart) {
			daily += int64(r.TotalTokens)
		}
	}

	return LimitStatus{
		DailyExceeded:   daily > limits.DailyTokens,
		MonthlyExceeded: monthly > limits.MonthlyTokens,
		DailyUsed:       daily,
		MonthlyUsed:     monthly,
		Limits:          limits,
	}
}

// SetLimits overrides the quotas for a user. Takes effect on the next
// CheckLimits call.
func (t *Tracker) SetLimits(userID string, limits Limits) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.limits[userID] = limits
}

// Prune drops records older than the retention window. Records inside the
// current day or month aggregation window are always kept so live quota
// checks never lose data. Returns the number of records removed.
func (t *Tracker) Prune() int {
	now := t.now().UTC()
	cutoff := now.Add(-t.retention)
	if monthStart := startOfMonth(now); cutoff.After(monthStart) {
		cutoff = monthStart
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	removed := 0
	for userID, records := range t.records {
		kept := records[:0]
		for _, r := range records {
			if r.Timestamp.Before(cutoff) {
				removed++
				continue
			}
			kept = append(kept, r)
		}
		if len(kept) == 0 {
			delete(t.records, userID)
		} else {
			t.records[userID] = kept
		}
	}

	if removed > 0 {
		t.logger.Info("pruned usage records", "removed", removed, "cutoff", cutoff)
	}
	return removed
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func startOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
