package roster

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"clubconsole/internal/apiclient"
	"clubconsole/internal/auth"
	"clubconsole/internal/cache"
)

// NoAccessError means the operator is authenticated but manages no
// club. The two flavors render different empty states: a system with
// no clubs at all versus clubs that just are not yours.
type NoAccessError struct {
	NoClubsExist bool
}

func (e *NoAccessError) Error() string {
	if e.NoClubsExist {
		return "no clubs exist yet"
	}
	return "you do not manage any clubs"
}

// Loader fetches clubs and attendance rosters. All loads are
// idempotent network reads, which is what makes the cache safe.
type Loader struct {
	API      *apiclient.Client
	Tokens   *auth.TokenStore
	Cache    cache.Store   // optional
	CacheTTL time.Duration // applied when Cache is set
}

// AuthorizedClubs returns the clubs the operator may take attendance
// for: created by them, or where they are super-admin or
// head-coordinator. A missing or locally expired token short-circuits
// with AuthError before any round-trip.
func (l *Loader) AuthorizedClubs(ctx context.Context, user apiclient.User) ([]apiclient.Club, error) {
	if l.Tokens != nil {
		if l.Tokens.Token() == "" {
			return nil, &apiclient.AuthError{Status: http.StatusUnauthorized, Message: "missing bearer token"}
		}
		if l.Tokens.Expired(time.Now()) {
			l.Tokens.Clear()
			return nil, &apiclient.AuthError{Status: http.StatusUnauthorized, Message: "token expired"}
		}
	}

	clubs, err := l.API.ListClubs(ctx)
	if err != nil {
		return nil, err
	}
	if len(clubs) == 0 {
		return nil, &NoAccessError{NoClubsExist: true}
	}

	var mine []apiclient.Club
	for _, c := range clubs {
		if c.CreatedBy == user.ID || containsID(c.SuperAdmins, user.ID) || containsID(c.HeadCoordinators, user.ID) {
			mine = append(mine, c)
		}
	}
	if len(mine) == 0 {
		return nil, &NoAccessError{}
	}
	return mine, nil
}

// Roster returns the club's ordinary members: the raw member list with
// super-admins and head-coordinators excluded, since privileged users
// are not tracked for attendance. A club with zero ordinary members
// yields an empty slice, not an error.
func (l *Loader) Roster(ctx context.Context, clubID string) ([]apiclient.Member, error) {
	key := "roster:" + clubID
	if l.Cache != nil {
		if raw, ok, err := l.Cache.Get(ctx, key); err == nil && ok {
			var cached []apiclient.Member
			if json.Unmarshal(raw, &cached) == nil {
				return cached, nil
			}
		}
	}

	var (
		wg         sync.WaitGroup
		members    []apiclient.Member
		club       apiclient.Club
		membersErr error
		clubErr    error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		members, membersErr = l.API.ListMembers(ctx, clubID)
	}()
	go func() {
		defer wg.Done()
		club, clubErr = l.API.GetClub(ctx, clubID)
	}()
	wg.Wait()
	if membersErr != nil {
		return nil, membersErr
	}
	if clubErr != nil {
		return nil, clubErr
	}

	privileged := make(map[string]struct{}, len(club.SuperAdmins)+len(club.HeadCoordinators))
	for _, id := range club.SuperAdmins {
		privileged[id] = struct{}{}
	}
	for _, id := range club.HeadCoordinators {
		privileged[id] = struct{}{}
	}

	out := make([]apiclient.Member, 0, len(members))
	for _, m := range members {
		if _, ok := privileged[m.ID]; ok {
			continue
		}
		out = append(out, m)
	}

	if l.Cache != nil {
		if raw, err := json.Marshal(out); err == nil {
			_ = l.Cache.Set(ctx, key, raw, l.CacheTTL)
		}
	}
	return out, nil
}

// InvalidateRoster drops the cached roster so the next load refetches,
// e.g. after a student was added.
func (l *Loader) InvalidateRoster(ctx context.Context, clubID string) {
	if l.Cache != nil {
		_ = l.Cache.Delete(ctx, "roster:"+clubID)
	}
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
