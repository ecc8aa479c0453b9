package roster

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"clubconsole/internal/apiclient"
	"clubconsole/internal/auth"
	"clubconsole/internal/cache"
)

func clubBackend(t *testing.T, clubs string, club string, members string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/clubs", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(clubs))
	})
	mux.HandleFunc("/api/clubs/club-1", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(club))
	})
	mux.HandleFunc("/api/clubs/club-1/members", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(members))
	})
	return httptest.NewServer(mux)
}

func TestAuthorizedClubsFiltersByRole(t *testing.T) {
	srv := clubBackend(t, `[
		{"id":"club-1","name":"Robotics","createdBy":"u-9","superAdmins":["u-1"],"headCoordinators":[]},
		{"id":"club-2","name":"Drama","createdBy":"u-2","superAdmins":[],"headCoordinators":["u-1"]},
		{"id":"club-3","name":"Chess","createdBy":"u-3","superAdmins":[],"headCoordinators":[]}
	]`, `{}`, `[]`)
	defer srv.Close()

	l := &Loader{API: apiclient.New(srv.URL)}
	clubs, err := l.AuthorizedClubs(context.Background(), apiclient.User{ID: "u-1"})
	if err != nil {
		t.Fatalf("AuthorizedClubs = %v", err)
	}
	if len(clubs) != 2 || clubs[0].ID != "club-1" || clubs[1].ID != "club-2" {
		t.Fatalf("clubs = %+v", clubs)
	}
}

func TestAuthorizedClubsNoAccessFlavors(t *testing.T) {
	cases := []struct {
		name         string
		clubs        string
		noClubsExist bool
	}{
		{"no clubs system-wide", `[]`, true},
		{"clubs exist but none mine", `[{"id":"club-3","createdBy":"u-3","superAdmins":[],"headCoordinators":[]}]`, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := clubBackend(t, tc.clubs, `{}`, `[]`)
			defer srv.Close()

			l := &Loader{API: apiclient.New(srv.URL)}
			_, err := l.AuthorizedClubs(context.Background(), apiclient.User{ID: "u-1"})
			var na *NoAccessError
			if !errors.As(err, &na) {
				t.Fatalf("err = %v, want NoAccessError", err)
			}
			if na.NoClubsExist != tc.noClubsExist {
				t.Fatalf("NoClubsExist = %v, want %v", na.NoClubsExist, tc.noClubsExist)
			}
		})
	}
}

func TestAuthorizedClubsMissingToken(t *testing.T) {
	l := &Loader{API: apiclient.New("http://127.0.0.1:0"), Tokens: auth.NewTokenStore("")}
	_, err := l.AuthorizedClubs(context.Background(), apiclient.User{ID: "u-1"})
	var ae *apiclient.AuthError
	if !errors.As(err, &ae) {
		t.Fatalf("err = %v, want AuthError", err)
	}
}

func TestRosterExcludesPrivilegedMembers(t *testing.T) {
	srv := clubBackend(t,
		`[]`,
		`{"id":"club-1","superAdmins":["m-admin"],"headCoordinators":["m-head"]}`,
		`[
			{"id":"m-1","name":"Asha"},
			{"id":"m-admin","name":"Super Admin"},
			{"id":"m-2","name":"Bilal"},
			{"id":"m-head","name":"Head Coordinator"}
		]`)
	defer srv.Close()

	l := &Loader{API: apiclient.New(srv.URL)}
	members, err := l.Roster(context.Background(), "club-1")
	if err != nil {
		t.Fatalf("Roster = %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("members = %+v, want 2 ordinary members", members)
	}
	for _, m := range members {
		if m.ID == "m-admin" || m.ID == "m-head" {
			t.Fatalf("privileged member %s leaked into roster", m.ID)
		}
	}
}

func TestRosterEmptyClubIsNotAnError(t *testing.T) {
	srv := clubBackend(t, `[]`, `{"id":"club-1","superAdmins":[],"headCoordinators":[]}`, `[]`)
	defer srv.Close()

	l := &Loader{API: apiclient.New(srv.URL)}
	members, err := l.Roster(context.Background(), "club-1")
	if err != nil {
		t.Fatalf("Roster = %v", err)
	}
	if members == nil || len(members) != 0 {
		t.Fatalf("members = %v, want empty slice", members)
	}
}

func TestRosterUsesCacheUntilInvalidated(t *testing.T) {
	calls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/api/clubs/club-1", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"club-1","superAdmins":[],"headCoordinators":[]}`))
	})
	mux.HandleFunc("/api/clubs/club-1/members", func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`[{"id":"m-1","name":"Asha"}]`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	l := &Loader{API: apiclient.New(srv.URL), Cache: cache.NewMemory(), CacheTTL: time.Minute}
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := l.Roster(ctx, "club-1"); err != nil {
			t.Fatalf("Roster: %v", err)
		}
	}
	if calls != 1 {
		t.Fatalf("backend member calls = %d, want 1 (cached)", calls)
	}

	l.InvalidateRoster(ctx, "club-1")
	if _, err := l.Roster(ctx, "club-1"); err != nil {
		t.Fatalf("Roster: %v", err)
	}
	if calls != 2 {
		t.Fatalf("backend member calls after invalidate = %d, want 2", calls)
	}
}
