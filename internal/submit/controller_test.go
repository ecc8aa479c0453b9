package submit

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"clubconsole/internal/apiclient"
	"clubconsole/internal/session"
	"clubconsole/internal/validate"
)

func testRoster(ids ...string) []apiclient.Member {
	out := make([]apiclient.Member, 0, len(ids))
	for _, id := range ids {
		out = append(out, apiclient.Member{ID: id})
	}
	return out
}

func testController(api *apiclient.Client) *Controller {
	c := NewController(api)
	c.sleep = func(time.Duration) {}
	return c
}

func TestValidateOrder(t *testing.T) {
	events := []apiclient.Event{{ID: "ev-1", Title: "Tech Talk"}}

	marked := func(kind apiclient.RecordKind, clubID, ref string) *session.Session {
		s := session.Open(kind, clubID, ref, testRoster("a", "b"))
		s.SetStatus("a", session.Present)
		s.SetStatus("b", session.Present)
		return s
	}

	cases := []struct {
		name    string
		sess    func() *session.Session
		wantMsg string
	}{
		{
			name:    "no club",
			sess:    func() *session.Session { return marked(apiclient.KindEvent, "", "ev-1") },
			wantMsg: "Select a club",
		},
		{
			name:    "no event",
			sess:    func() *session.Session { return marked(apiclient.KindEvent, "club-1", "") },
			wantMsg: "Select an event",
		},
		{
			name: "practice missing title",
			sess: func() *session.Session {
				s := marked(apiclient.KindPractice, "club-1", "")
				s.Date = "2024-01-10"
				s.RoomNo = "101"
				return s
			},
			wantMsg: "Title is required",
		},
		{
			name: "practice bad date",
			sess: func() *session.Session {
				s := marked(apiclient.KindPractice, "club-1", "")
				s.Title = "Drills"
				s.Date = "10/01/2024"
				s.RoomNo = "101"
				return s
			},
			wantMsg: "Date must be in YYYY-MM-DD format",
		},
		{
			name: "practice future date",
			sess: func() *session.Session {
				s := marked(apiclient.KindPractice, "club-1", "")
				s.Title = "Drills"
				s.Date = time.Now().AddDate(0, 0, 1).Format("2006-01-02")
				s.RoomNo = "101"
				return s
			},
			wantMsg: "Date cannot be in the future",
		},
		{
			name: "practice missing room",
			sess: func() *session.Session {
				s := marked(apiclient.KindPractice, "club-1", "")
				s.Title = "Drills"
				s.Date = "2024-01-10"
				return s
			},
			wantMsg: "Room number is required",
		},
		{
			name: "nothing marked",
			sess: func() *session.Session {
				return session.Open(apiclient.KindEvent, "club-1", "ev-1", testRoster("a"))
			},
			wantMsg: "Mark attendance for at least one member",
		},
		{
			name:    "event vanished",
			sess:    func() *session.Session { return marked(apiclient.KindEvent, "club-1", "ev-gone") },
			wantMsg: "Selected event no longer exists",
		},
	}

	c := testController(nil)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := c.Validate(tc.sess(), events)
			var ve *validate.Error
			if !errors.As(err, &ve) {
				t.Fatalf("Validate = %v, want validate.Error", err)
			}
			if ve.Message != tc.wantMsg {
				t.Fatalf("message = %q, want %q", ve.Message, tc.wantMsg)
			}
		})
	}
}

func TestValidateAcceptsCompleteSessions(t *testing.T) {
	events := []apiclient.Event{{ID: "ev-1"}}
	s := session.Open(apiclient.KindEvent, "club-1", "ev-1", testRoster("a", "b"))
	s.Toggle("a")

	c := testController(nil)
	if err := c.Validate(s, events); err != nil {
		t.Fatalf("Validate = %v, want nil", err)
	}
}

func TestSubmitPayloadOmitsUnmarked(t *testing.T) {
	var got apiclient.AttendanceSubmission
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/attendance" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"data":{"id":"rec-1"}}`))
	}))
	defer srv.Close()

	s := session.Open(apiclient.KindEvent, "club-1", "ev-1", testRoster("a", "b", "c"))
	s.SetStatus("a", session.Present)
	s.SetStatus("b", session.Absent)

	c := testController(apiclient.New(srv.URL))
	receipt, err := c.Submit(context.Background(), s)
	if err != nil {
		t.Fatalf("Submit = %v", err)
	}
	if receipt.ID != "rec-1" || receipt.Kind != apiclient.KindEvent {
		t.Fatalf("receipt = %+v", receipt)
	}

	want := []apiclient.Entry{{UserID: "a", Status: "present"}, {UserID: "b", Status: "absent"}}
	if len(got.Attendance) != len(want) {
		t.Fatalf("payload attendance = %v, want %v", got.Attendance, want)
	}
	for i := range want {
		if got.Attendance[i] != want[i] {
			t.Fatalf("payload[%d] = %v, want %v", i, got.Attendance[i], want[i])
		}
	}

	// The caller resets after success; the full cycle lands all-unmarked.
	s.Reset()
	for _, id := range []string{"a", "b", "c"} {
		if st := s.StatusOf(id); st != session.Unmarked {
			t.Fatalf("after reset StatusOf(%s) = %v", id, st)
		}
	}
}

func TestSubmitPracticeEndpoint(t *testing.T) {
	var got apiclient.PracticeSubmission
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/practice-attendance" {
			t.Errorf("path = %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"attendance":{"id":"prac-9"}}`))
	}))
	defer srv.Close()

	s := session.Open(apiclient.KindPractice, "club-1", "", testRoster("a"))
	s.Title = "Drills"
	s.Date = "2024-01-10"
	s.RoomNo = "101"
	s.Toggle("a")

	c := testController(apiclient.New(srv.URL))
	receipt, err := c.Submit(context.Background(), s)
	if err != nil {
		t.Fatalf("Submit = %v", err)
	}
	if receipt.ID != "prac-9" {
		t.Fatalf("receipt id = %s", receipt.ID)
	}
	if got.Title != "Drills" || got.RoomNo != "101" {
		t.Fatalf("payload = %+v", got)
	}
}

func TestSubmitRetriesThenFails(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"database offline"}`))
	}))
	defer srv.Close()

	s := session.Open(apiclient.KindEvent, "club-1", "ev-1", testRoster("a"))
	s.Toggle("a")

	var slept []time.Duration
	c := NewController(apiclient.New(srv.URL))
	c.sleep = func(d time.Duration) { slept = append(slept, d) }

	_, err := c.Submit(context.Background(), s)
	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3", attempts)
	}
	var se *SubmissionError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want SubmissionError", err)
	}
	if se.Message != "database offline" {
		t.Fatalf("message = %q, want server-provided message", se.Message)
	}
	if len(slept) != 2 || slept[0] != time.Second || slept[1] != 2*time.Second {
		t.Fatalf("backoff = %v, want [1s 2s]", slept)
	}
}

func TestSubmitAbortsOnAuthFailure(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	s := session.Open(apiclient.KindEvent, "club-1", "ev-1", testRoster("a"))
	s.Toggle("a")

	c := testController(apiclient.New(srv.URL))
	_, err := c.Submit(context.Background(), s)
	if attempts != 1 {
		t.Fatalf("attempts = %d, want 1", attempts)
	}
	var ae *apiclient.AuthError
	if !errors.As(err, &ae) {
		t.Fatalf("err = %v, want AuthError", err)
	}
}

func TestSubmitRejectsMissingRecordID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{}}`))
	}))
	defer srv.Close()

	s := session.Open(apiclient.KindEvent, "club-1", "ev-1", testRoster("a"))
	s.Toggle("a")

	c := testController(apiclient.New(srv.URL))
	_, err := c.Submit(context.Background(), s)
	var se *SubmissionError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want SubmissionError", err)
	}
	if se.Message != "invalid response: record id missing" {
		t.Fatalf("message = %q", se.Message)
	}
}
