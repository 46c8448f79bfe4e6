package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"faq-chatter/internal/storage"
)

const topUnmatched = 5

// DailyStats summarizes one local day of answered questions.
type DailyStats struct {
	Date          string         `json:"date"`
	TotalMessages int            `json:"total_messages"`
	UniqueUsers   int            `json:"unique_users"`
	ByKind        map[string]int `json:"by_kind"`
	// Unmatched lists the most frequent questions the corpus could not
	// answer, most frequent first.
	Unmatched []QuestionCount `json:"unmatched"`
	// Attributed counts messages that carried a user id. The Sheets sink
	// stores none, so unique users are unknown when this is zero.
	Attributed int `json:"attributed_messages"`
}

type QuestionCount struct {
	Question string `json:"question"`
	Count    int    `json:"count"`
}

// AnalyzeDaily counts records whose timestamp falls on targetDate in
// targetDate's location. Records without a user id count toward totals but
// not toward unique users.
func AnalyzeDaily(records []storage.Record, targetDate time.Time) *DailyStats {
	loc := targetDate.Location()
	startOfDay := time.Date(targetDate.Year(), targetDate.Month(), targetDate.Day(), 0, 0, 0, 0, loc)
	endOfDay := startOfDay.AddDate(0, 0, 1)

	stats := &DailyStats{
		Date:   startOfDay.Format("2006-01-02"),
		ByKind: make(map[string]int),
	}
	uniqueUsers := make(map[string]bool)
	unmatched := make(map[string]int)

	for _, rec := range records {
		ts := rec.Timestamp.In(loc)
		if ts.Before(startOfDay) || !ts.Before(endOfDay) {
			continue
		}
		if strings.TrimSpace(rec.Question) == "" {
			continue
		}
		stats.TotalMessages++
		stats.ByKind[rec.Kind.String()]++
		if rec.UserID != "" {
			stats.Attributed++
			uniqueUsers[rec.UserID] = true
		}
		if rec.Kind != storage.RetrievalMatch {
			unmatched[strings.TrimSpace(rec.Question)]++
		}
	}
	stats.UniqueUsers = len(uniqueUsers)

	for q, n := range unmatched {
		stats.Unmatched = append(stats.Unmatched, QuestionCount{Question: q, Count: n})
	}
	sort.Slice(stats.Unmatched, func(i, j int) bool {
		a, b := stats.Unmatched[i], stats.Unmatched[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Question < b.Question
	})
	if len(stats.Unmatched) > topUnmatched {
		stats.Unmatched = stats.Unmatched[:topUnmatched]
	}
	return stats
}

// Daily loads every record and analyzes targetDate.
func Daily(ctx context.Context, loader storage.Loader, targetDate time.Time) (*DailyStats, error) {
	records, err := loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load interactions: %w", err)
	}
	return AnalyzeDaily(records, targetDate), nil
}

// RetrievalRate is the share of questions answered straight from the corpus.
func (ds *DailyStats) RetrievalRate() float64 {
	if ds.TotalMessages == 0 {
		return 0
	}
	return float64(ds.ByKind[storage.RetrievalMatch.String()]) / float64(ds.TotalMessages)
}

func (ds *DailyStats) GenerateReportSummary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "FAQ bot activity for %s:\n", ds.Date)
	fmt.Fprintf(&b, "- Questions: %d\n", ds.TotalMessages)
	if ds.Attributed > 0 {
		fmt.Fprintf(&b, "- Unique users: %d\n", ds.UniqueUsers)
	}
	fmt.Fprintf(&b, "- Answered from corpus: %.1f%%\n", ds.RetrievalRate()*100)

	for _, k := range []storage.Kind{storage.RetrievalMatch, storage.GeneratedFallback, storage.ErrorFallback} {
		fmt.Fprintf(&b, "- %s: %d\n", k, ds.ByKind[k.String()])
	}
	if len(ds.Unmatched) > 0 {
		b.WriteString("Most asked questions without a corpus answer:\n")
		for _, q := range ds.Unmatched {
			fmt.Fprintf(&b, "- %s (%d)\n", q.Question, q.Count)
		}
	}
	return b.String()
}

func (ds *DailyStats) ToJSON() (string, error) {
	data, err := json.MarshalIndent(ds, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
