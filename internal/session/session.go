package session

import (
	"clubconsole/internal/apiclient"
)

// Status is a member's mark inside an open session. The zero value is
// Unmarked: a freshly seeded roster carries no marks at all.
type Status int

const (
	Unmarked Status = iota
	Present
	Absent
)

// String returns the wire spelling used in submission payloads.
func (s Status) String() string {
	switch s {
	case Present:
		return "present"
	case Absent:
		return "absent"
	default:
		return "unmarked"
	}
}

// ParseStatus maps a wire spelling back to a Status.
func ParseStatus(s string) (Status, bool) {
	switch s {
	case "present":
		return Present, true
	case "absent":
		return Absent, true
	case "unmarked", "":
		return Unmarked, true
	}
	return Unmarked, false
}

// Session is the transient working set for one attendance-taking act.
// It exists only in console memory; the backend learns about it at
// submission time, and only about the non-Unmarked entries.
type Session struct {
	ClubID      string
	Kind        apiclient.RecordKind
	ReferenceID string // event id; empty for practice sessions
	Title       string
	Date        string // YYYY-MM-DD
	RoomNo      string

	members  []apiclient.Member
	statuses map[string]Status
}

// Open starts a session seeded with Unmarked for every roster member.
// Any previously open session is simply replaced by the caller.
func Open(kind apiclient.RecordKind, clubID, referenceID string, roster []apiclient.Member) *Session {
	s := &Session{
		ClubID:      clubID,
		Kind:        kind,
		ReferenceID: referenceID,
		members:     make([]apiclient.Member, len(roster)),
		statuses:    make(map[string]Status, len(roster)),
	}
	copy(s.members, roster)
	for _, m := range roster {
		s.statuses[m.ID] = Unmarked
	}
	return s
}

// Toggle cycles one member's mark: Unmarked, Present, Absent, back to
// Unmarked. Unknown member ids are a no-op, not an error: the roster
// defines who can be marked.
func (s *Session) Toggle(memberID string) {
	cur, ok := s.statuses[memberID]
	if !ok {
		return
	}
	switch cur {
	case Unmarked:
		s.statuses[memberID] = Present
	case Present:
		s.statuses[memberID] = Absent
	default:
		s.statuses[memberID] = Unmarked
	}
}

// SetStatus sets one member's mark directly. Unknown ids are a no-op.
func (s *Session) SetStatus(memberID string, st Status) {
	if _, ok := s.statuses[memberID]; !ok {
		return
	}
	s.statuses[memberID] = st
}

// AddMember appends a newly created student to the roster, Unmarked,
// without touching anyone else's mark. Duplicate ids are ignored.
func (s *Session) AddMember(m apiclient.Member) {
	if _, ok := s.statuses[m.ID]; ok {
		return
	}
	s.members = append(s.members, m)
	s.statuses[m.ID] = Unmarked
}

// StatusOf returns the current mark for a member, Unmarked if unknown.
func (s *Session) StatusOf(memberID string) Status {
	return s.statuses[memberID]
}

// Members returns the roster snapshot in load order.
func (s *Session) Members() []apiclient.Member {
	out := make([]apiclient.Member, len(s.members))
	copy(out, s.members)
	return out
}

// IsComplete reports whether the session can be submitted. The bar is
// deliberately "at least one member marked", not "everyone marked":
// partial attendance is allowed.
func (s *Session) IsComplete() bool {
	for _, st := range s.statuses {
		if st != Unmarked {
			return true
		}
	}
	return false
}

// Marked returns the submission entries, roster order, omitting every
// member still Unmarked. The backend never learns about unmarked rows.
func (s *Session) Marked() []apiclient.Entry {
	var out []apiclient.Entry
	for _, m := range s.members {
		if st := s.statuses[m.ID]; st != Unmarked {
			out = append(out, apiclient.Entry{UserID: m.ID, Status: st.String()})
		}
	}
	return out
}

// Snapshot returns an independent copy of the session, so a submission
// can build and retry its payload without holding the manager lock
// across network calls.
func (s *Session) Snapshot() *Session {
	out := &Session{
		ClubID:      s.ClubID,
		Kind:        s.Kind,
		ReferenceID: s.ReferenceID,
		Title:       s.Title,
		Date:        s.Date,
		RoomNo:      s.RoomNo,
		members:     make([]apiclient.Member, len(s.members)),
		statuses:    make(map[string]Status, len(s.statuses)),
	}
	copy(out.members, s.members)
	for id, st := range s.statuses {
		out.statuses[id] = st
	}
	return out
}

// Reset clears every mark back to Unmarked. Idempotent.
func (s *Session) Reset() {
	for id := range s.statuses {
		s.statuses[id] = Unmarked
	}
}
