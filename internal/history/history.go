package history

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"clubconsole/internal/apiclient"
)

// Entry is one row of the merged attendance feed, with the derived
// stats the console renders. Entries are read-only views over
// server-owned records.
type Entry struct {
	ID             string               `json:"id"`
	Kind           apiclient.RecordKind `json:"kind"`
	Title          string               `json:"title"`
	Date           time.Time            `json:"date"`
	RawDate        string               `json:"rawDate"`
	RoomNo         string               `json:"roomNo,omitempty"`
	TotalPresent   int                  `json:"totalPresent"`
	TotalAbsent    int                  `json:"totalAbsent"`
	AttendanceRate float64              `json:"attendanceRate"`
	CreatedAt      string               `json:"createdAt"`
}

// Service loads and merges the two record families.
type Service struct {
	API *apiclient.Client
}

// Load fetches event and practice records concurrently and merges them
// into one reverse-chronological feed. Records with no id, and
// event records whose event linkage is gone, are dropped: bad
// persisted data must not take the view down. Records with an
// unparseable date keep their raw text but sort as the oldest.
func (s *Service) Load(ctx context.Context, clubID string) ([]Entry, error) {
	var (
		wg          sync.WaitGroup
		events      []apiclient.EventRecord
		practices   []apiclient.PracticeRecord
		eventErr    error
		practiceErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		events, eventErr = s.API.ListAttendance(ctx, clubID)
	}()
	go func() {
		defer wg.Done()
		practices, practiceErr = s.API.ListPracticeAttendance(ctx, clubID)
	}()
	wg.Wait()
	if eventErr != nil {
		return nil, eventErr
	}
	if practiceErr != nil {
		return nil, practiceErr
	}

	merged := make([]Entry, 0, len(events)+len(practices))
	for _, rec := range events {
		if rec.ID == "" || rec.Event == nil || rec.Event.ID == "" {
			continue
		}
		p, a := tally(rec.Entries)
		merged = append(merged, Entry{
			ID:             rec.ID,
			Kind:           apiclient.KindEvent,
			Title:          rec.Event.Title,
			Date:           parseDate(rec.Date),
			RawDate:        rec.Date,
			TotalPresent:   p,
			TotalAbsent:    a,
			AttendanceRate: rate(p, a),
			CreatedAt:      rec.CreatedAt,
		})
	}
	for _, rec := range practices {
		if rec.ID == "" {
			continue
		}
		p, a := tally(rec.Entries)
		merged = append(merged, Entry{
			ID:             rec.ID,
			Kind:           apiclient.KindPractice,
			Title:          rec.Title,
			Date:           parseDate(rec.Date),
			RawDate:        rec.Date,
			RoomNo:         rec.RoomNo,
			TotalPresent:   p,
			TotalAbsent:    a,
			AttendanceRate: rate(p, a),
			CreatedAt:      rec.CreatedAt,
		})
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Date.After(merged[j].Date)
	})
	return merged, nil
}

// PresentRoster returns the frozen present-list for a history entry.
// 404 surfaces as NotFoundError for the specific viewer; siblings keep
// working.
func (s *Service) PresentRoster(ctx context.Context, kind apiclient.RecordKind, recordID string) ([]apiclient.Member, error) {
	return s.API.PresentRoster(ctx, kind, recordID)
}

func tally(entries []apiclient.Entry) (present, absent int) {
	for _, e := range entries {
		switch e.Status {
		case "present":
			present++
		case "absent":
			absent++
		}
	}
	return present, absent
}

// rate is the present percentage rounded to 2 decimals, 0 for an
// empty record.
func rate(present, absent int) float64 {
	total := present + absent
	if total == 0 {
		return 0
	}
	return math.Round(float64(present)/float64(total)*100*100) / 100
}

func parseDate(raw string) time.Time {
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t
	}
	return time.Unix(0, 0).UTC()
}
