package submit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"clubconsole/internal/apiclient"
	"clubconsole/internal/session"
	"clubconsole/internal/validate"
)

// SubmissionError means the backend rejected the session or transport
// failed after the retry budget. The session is left intact so the
// operator can retry manually.
type SubmissionError struct {
	Message string
	Err     error
}

func (e *SubmissionError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("submission failed: %v", e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// Receipt identifies the record a successful submission created.
type Receipt struct {
	ID   string
	Kind apiclient.RecordKind
}

// Controller validates and submits attendance sessions.
type Controller struct {
	API      *apiclient.Client
	Attempts int           // total tries, default 3
	Backoff  time.Duration // first retry delay, doubles each retry

	now   func() time.Time
	sleep func(time.Duration)
}

// NewController creates a controller with the default retry budget.
func NewController(api *apiclient.Client) *Controller {
	return &Controller{
		API:      api,
		Attempts: 3,
		Backoff:  time.Second,
		now:      time.Now,
		sleep:    time.Sleep,
	}
}

// Validate checks a session against the submission rules, in order,
// stopping at the first failure. events is the currently loaded event
// list for the session's club; it only matters for event sessions.
func (c *Controller) Validate(sess *session.Session, events []apiclient.Event) error {
	if sess.ClubID == "" {
		return validate.Failf("club", "Select a club")
	}
	switch sess.Kind {
	case apiclient.KindEvent:
		if sess.ReferenceID == "" {
			return validate.Failf("event", "Select an event")
		}
	case apiclient.KindPractice:
		if strings.TrimSpace(sess.Title) == "" {
			return validate.Failf("title", "Title is required")
		}
		if _, err := validate.DateYMD(sess.Date); err != nil {
			return validate.Failf("date", "Date must be in YYYY-MM-DD format")
		}
		if sess.Date > c.now().Format("2006-01-02") {
			return validate.Failf("date", "Date cannot be in the future")
		}
		if strings.TrimSpace(sess.RoomNo) == "" {
			return validate.Failf("roomNo", "Room number is required")
		}
	default:
		return validate.Failf("kind", "Unknown session kind")
	}

	if !sess.IsComplete() {
		return validate.Failf("attendance", "Mark attendance for at least one member")
	}

	if sess.Kind == apiclient.KindEvent {
		found := false
		for _, ev := range events {
			if ev.ID == sess.ReferenceID {
				found = true
				break
			}
		}
		if !found {
			return validate.Failf("event", "Selected event no longer exists")
		}
	}
	return nil
}

// Submit serializes the marked entries and posts them, retrying
// transient failures with exponential backoff. Auth failures abort
// immediately: an invalid session will not get better by retrying.
// Everything else, a validation-shaped 4xx included, burns one try —
// observed behavior of the workflow, preserved as-is.
func (c *Controller) Submit(ctx context.Context, sess *session.Session) (Receipt, error) {
	entries := sess.Marked()
	post := func(ctx context.Context) (string, error) {
		if sess.Kind == apiclient.KindPractice {
			return c.API.CreatePracticeAttendance(ctx, apiclient.PracticeSubmission{
				Club:       sess.ClubID,
				Title:      sess.Title,
				Date:       sess.Date,
				RoomNo:     sess.RoomNo,
				Attendance: entries,
			})
		}
		return c.API.CreateAttendance(ctx, apiclient.AttendanceSubmission{
			Club:       sess.ClubID,
			Event:      sess.ReferenceID,
			Date:       sess.Date,
			Attendance: entries,
		})
	}

	attempts := c.Attempts
	if attempts <= 0 {
		attempts = 3
	}
	backoff := c.Backoff

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		submitAttempts.WithLabelValues(string(sess.Kind)).Inc()
		id, err := post(ctx)
		if err == nil {
			if id == "" {
				// 2xx without an id is useless: the record cannot be
				// referenced for reports or history lookups.
				submitOutcomes.WithLabelValues(string(sess.Kind), "invalid").Inc()
				return Receipt{}, &SubmissionError{Message: "invalid response: record id missing"}
			}
			submitOutcomes.WithLabelValues(string(sess.Kind), "success").Inc()
			return Receipt{ID: id, Kind: sess.Kind}, nil
		}

		var authErr *apiclient.AuthError
		if errors.As(err, &authErr) {
			submitOutcomes.WithLabelValues(string(sess.Kind), "auth").Inc()
			return Receipt{}, err
		}

		lastErr = err
		if attempt < attempts {
			c.sleep(backoff)
			backoff *= 2
		}
	}

	submitOutcomes.WithLabelValues(string(sess.Kind), "failed").Inc()
	return Receipt{}, &SubmissionError{Message: failureMessage(lastErr), Err: lastErr}
}

// failureMessage prefers the server-provided message when one exists.
func failureMessage(err error) string {
	var fe *apiclient.FetchError
	if errors.As(err, &fe) && fe.Message != "" {
		return fe.Message
	}
	return ""
}
