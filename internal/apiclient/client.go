package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// RecordKind distinguishes the two attendance record families.
type RecordKind string

const (
	KindEvent    RecordKind = "event"
	KindPractice RecordKind = "practice"
)

// Valid reports whether k is one of the known kinds.
func (k RecordKind) Valid() bool {
	return k == KindEvent || k == KindPractice
}

// User is the authenticated console operator.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Club holds the membership-management view of a club, including the
// privileged id lists used for roster exclusion.
type Club struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	CreatedBy        string   `json:"createdBy"`
	SuperAdmins      []string `json:"superAdmins"`
	HeadCoordinators []string `json:"headCoordinators"`
}

// Member is an ordinary club member eligible for attendance tracking.
type Member struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	RollNo         string `json:"rollNo"`
	Branch         string `json:"branch"`
	Semester       int    `json:"semester"`
	Course         string `json:"course"`
	Specialization string `json:"specialization"`
	IsACEMStudent  bool   `json:"isACEMStudent"`
}

// Event is a scheduled club event attendance can be taken against.
type Event struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Date  string `json:"date"`
	Club  string `json:"club"`
}

// Entry is one member's status inside a submission or persisted record.
type Entry struct {
	UserID string `json:"userId"`
	Status string `json:"status"`
}

// EventRef is the event linkage embedded in a persisted event record.
type EventRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// EventRecord is a persisted event-kind attendance record.
type EventRecord struct {
	ID        string    `json:"id"`
	Club      string    `json:"club"`
	Event     *EventRef `json:"event"`
	Date      string    `json:"date"`
	Entries   []Entry   `json:"attendanceEntries"`
	CreatedAt string    `json:"createdAt"`
}

// PracticeRecord is a persisted ad-hoc practice attendance record.
type PracticeRecord struct {
	ID        string  `json:"id"`
	Club      string  `json:"club"`
	Title     string  `json:"title"`
	Date      string  `json:"date"`
	RoomNo    string  `json:"roomNo"`
	Entries   []Entry `json:"attendanceEntries"`
	CreatedAt string  `json:"createdAt"`
}

// AttendanceSubmission is the POST body for event attendance.
type AttendanceSubmission struct {
	Club       string  `json:"club"`
	Event      string  `json:"event"`
	Date       string  `json:"date"`
	Attendance []Entry `json:"attendance"`
}

// PracticeSubmission is the POST body for practice attendance.
type PracticeSubmission struct {
	Club       string  `json:"club"`
	Title      string  `json:"title"`
	Date       string  `json:"date"`
	RoomNo     string  `json:"roomNo"`
	Attendance []Entry `json:"attendance"`
}

// NewStudent is the POST body for adding a roster member.
type NewStudent struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	RollNo         string `json:"rollNo,omitempty"`
	Branch         string `json:"branch"`
	Semester       int    `json:"semester"`
	Course         string `json:"course"`
	Specialization string `json:"specialization"`
	IsACEMStudent  bool   `json:"isACEMStudent"`
}

// Client calls the club-manager backend REST API.
type Client struct {
	BaseURL string
	HTTP    *http.Client

	// OnUnauthorized runs whenever the backend answers 401/403,
	// before the AuthError is returned. Used to clear stored
	// credentials so the operator is forced back through login.
	OnUnauthorized func()

	interceptors []RequestInterceptor
}

// New creates a client with the fixed transport timeout. Interceptors
// run against every outgoing request in order.
func New(baseURL string, interceptors ...RequestInterceptor) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: &http.Client{
			Timeout: 10 * time.Second,
		},
		interceptors: interceptors,
	}
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, ic := range c.interceptors {
		ic(req)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return &FetchError{Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		b, _ := io.ReadAll(resp.Body)
		if c.OnUnauthorized != nil {
			c.OnUnauthorized()
		}
		return &AuthError{Status: resp.StatusCode, Message: serverMessage(b)}
	case resp.StatusCode == http.StatusNotFound:
		io.Copy(io.Discard, resp.Body)
		return &NotFoundError{}
	case resp.StatusCode >= 300:
		b, _ := io.ReadAll(resp.Body)
		return &FetchError{Status: resp.StatusCode, Message: serverMessage(b)}
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &FetchError{Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// CurrentUser returns the profile behind the bearer token.
func (c *Client) CurrentUser(ctx context.Context) (User, error) {
	var out User
	if err := c.do(ctx, http.MethodGet, "/api/auth/user", nil, &out); err != nil {
		return User{}, err
	}
	return out, nil
}

// ListClubs returns every club in the system.
func (c *Client) ListClubs(ctx context.Context) ([]Club, error) {
	var out []Club
	if err := c.do(ctx, http.MethodGet, "/api/clubs", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetClub returns one club with its privileged id lists.
func (c *Client) GetClub(ctx context.Context, clubID string) (Club, error) {
	var out Club
	if err := c.do(ctx, http.MethodGet, "/api/clubs/"+url.PathEscape(clubID), nil, &out); err != nil {
		return Club{}, err
	}
	return out, nil
}

// ListMembers returns the raw member list of a club, privileged users
// included. Roster exclusion happens in the roster loader.
func (c *Client) ListMembers(ctx context.Context, clubID string) ([]Member, error) {
	var out []Member
	if err := c.do(ctx, http.MethodGet, "/api/clubs/"+url.PathEscape(clubID)+"/members", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListEvents returns the events scoped to a club.
func (c *Client) ListEvents(ctx context.Context, clubID string) ([]Event, error) {
	var out []Event
	if err := c.do(ctx, http.MethodGet, "/api/events?club="+url.QueryEscape(clubID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateAttendance persists an event attendance record and returns the
// new record id. The two record families answer with different
// envelopes; both are handled here so callers only see an id.
func (c *Client) CreateAttendance(ctx context.Context, sub AttendanceSubmission) (string, error) {
	var out struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/attendance", sub, &out); err != nil {
		return "", err
	}
	return out.Data.ID, nil
}

// CreatePracticeAttendance persists a practice attendance record.
func (c *Client) CreatePracticeAttendance(ctx context.Context, sub PracticeSubmission) (string, error) {
	var out struct {
		Attendance struct {
			ID string `json:"id"`
		} `json:"attendance"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/practice-attendance", sub, &out); err != nil {
		return "", err
	}
	return out.Attendance.ID, nil
}

// ListAttendance returns the persisted event records for a club.
func (c *Client) ListAttendance(ctx context.Context, clubID string) ([]EventRecord, error) {
	var out []EventRecord
	if err := c.do(ctx, http.MethodGet, "/api/attendance?club="+url.QueryEscape(clubID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListPracticeAttendance returns the persisted practice records for a club.
func (c *Client) ListPracticeAttendance(ctx context.Context, clubID string) ([]PracticeRecord, error) {
	var out []PracticeRecord
	if err := c.do(ctx, http.MethodGet, "/api/practice-attendance?club="+url.QueryEscape(clubID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// PresentRoster returns the frozen present-list of a record. A 404
// means the record was deleted after the history list was loaded.
func (c *Client) PresentRoster(ctx context.Context, kind RecordKind, recordID string) ([]Member, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown record kind %q", kind)
	}
	var out []Member
	err := c.do(ctx, http.MethodGet, kindPath(kind)+"/"+url.PathEscape(recordID)+"/present", nil, &out)
	if err != nil {
		var nf *NotFoundError
		if errors.As(err, &nf) {
			nf.Resource = "attendance record"
		}
		return nil, err
	}
	return out, nil
}

// DownloadReport fetches the binary DOCX report artifact for a record.
func (c *Client) DownloadReport(ctx context.Context, kind RecordKind, recordID string) ([]byte, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown record kind %q", kind)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+kindPath(kind)+"/"+url.PathEscape(recordID)+"/report", nil)
	if err != nil {
		return nil, err
	}
	for _, ic := range c.interceptors {
		ic(req)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, &FetchError{Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		if c.OnUnauthorized != nil {
			c.OnUnauthorized()
		}
		return nil, &AuthError{Status: resp.StatusCode}
	case resp.StatusCode == http.StatusNotFound:
		return nil, &NotFoundError{Resource: "report"}
	case resp.StatusCode >= 300:
		b, _ := io.ReadAll(resp.Body)
		return nil, &FetchError{Status: resp.StatusCode, Message: serverMessage(b)}
	}
	return io.ReadAll(resp.Body)
}

// AddStudent creates a new roster member in a club.
func (c *Client) AddStudent(ctx context.Context, clubID string, student NewStudent) (Member, error) {
	var out Member
	if err := c.do(ctx, http.MethodPost, "/api/clubs/"+url.PathEscape(clubID)+"/add-student", student, &out); err != nil {
		return Member{}, err
	}
	return out, nil
}

func kindPath(kind RecordKind) string {
	if kind == KindPractice {
		return "/api/practice-attendance"
	}
	return "/api/attendance"
}
