package directory

import (
	"context"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/githubdatabridge/sih-atellica-qplus-backend-sub000/config"
	"github.com/githubdatabridge/sih-atellica-qplus-backend-sub000/utils"
	"github.com/sirupsen/logrus"
)

// User is one identity-directory entry as the external identity service
// exposes it.
type User struct {
	Id    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Fetcher supplies the current user list of one tenant scope from the
// external identity service.
type Fetcher interface {
	FetchUsers(ctx context.Context, tenancy utils.Tenancy) ([]User, error)
}

// Snapshot is one immutable generation of the directory: tenant key → user
// list. Readers hold a *Snapshot and never observe a partial refresh.
type Snapshot struct {
	Users     map[string][]User
	FetchedAt time.Time
}

const defaultRefreshSeconds = 5

// Service keeps a periodically refreshed directory snapshot. One writer (the
// Run loop), many readers; the snapshot is swapped atomically. When the
// identity service is unreachable the last known list survives in redis and
// in the previous snapshot.
type Service struct {
	Fetcher  Fetcher
	Logger   *logrus.Logger
	Interval time.Duration

	mu       sync.Mutex
	tenants  []utils.Tenancy
	snapshot atomic.Pointer[Snapshot]
}

func NewService(fetcher Fetcher, logger *logrus.Logger) *Service {
	interval := time.Duration(defaultRefreshSeconds) * time.Second
	if raw := os.Getenv("DIRECTORY_REFRESH_SECONDS"); raw != "" {
		if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
			interval = time.Duration(secs) * time.Second
		}
	}
	s := &Service{
		Fetcher:  fetcher,
		Logger:   logger,
		Interval: interval,
	}
	s.snapshot.Store(&Snapshot{Users: map[string][]User{}})
	return s
}

func tenantKey(tenancy utils.Tenancy) string {
	return tenancy.CustomerId + ":" + tenancy.TenantId + ":" + tenancy.AppId
}

func cacheKey(tenancy utils.Tenancy) string {
	return "directoryUsers:" + tenantKey(tenancy)
}

// RegisterTenant adds a tenant scope to the refresh set and primes its entry
// immediately so callers don't race the first tick.
func (s *Service) RegisterTenant(ctx context.Context, tenancy utils.Tenancy) {
	s.mu.Lock()
	for _, t := range s.tenants {
		if t == tenancy {
			s.mu.Unlock()
			return
		}
	}
	s.tenants = append(s.tenants, tenancy)
	s.mu.Unlock()

	s.refreshOnce(ctx)
}

// Run refreshes the snapshot at the configured interval until the context is
// cancelled.
func (s *Service) Run(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		s.refreshOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.Interval):
		}
	}
}

// refreshOnce builds the next generation off-line and swaps it in atomically.
// A fetch failure for one tenant keeps that tenant's previous list (redis
// copy first, then the live snapshot).
func (s *Service) refreshOnce(ctx context.Context) {
	s.mu.Lock()
	tenants := make([]utils.Tenancy, len(s.tenants))
	copy(tenants, s.tenants)
	s.mu.Unlock()

	previous := s.snapshot.Load()
	next := &Snapshot{
		Users:     make(map[string][]User, len(tenants)),
		FetchedAt: time.Now().UTC(),
	}

	for _, tenancy := range tenants {
		key := tenantKey(tenancy)
		users, err := s.Fetcher.FetchUsers(ctx, tenancy)
		if err == nil {
			sort.Slice(users, func(i, j int) bool { return users[i].Id < users[j].Id })
			next.Users[key] = users
			if cacheErr := config.SetRedisObject(cacheKey(tenancy), users, 24*time.Hour); cacheErr != nil {
				config.LogError(s.Logger, "directory", "refreshOnce", "cache write", key, cacheErr)
			}
			continue
		}
		config.LogError(s.Logger, "directory", "refreshOnce", "fetch users", key, err)

		var cached []User
		if found, cacheErr := config.GetRedisObject(cacheKey(tenancy), &cached); cacheErr == nil && found {
			next.Users[key] = cached
			continue
		}
		if prev, ok := previous.Users[key]; ok {
			next.Users[key] = prev
		}
	}

	s.snapshot.Store(next)
}

// Users returns the current user list of one tenant scope. The returned slice
// is shared; callers must not mutate it.
func (s *Service) Users(tenancy utils.Tenancy) []User {
	snap := s.snapshot.Load()
	return snap.Users[tenantKey(tenancy)]
}

// Validate checks candidate user ids against the snapshot and returns the
// ones the directory does not know. An empty result means all ids are valid.
// A tenant scope seen for the first time is registered and primed
// synchronously, so the first sharing call of a tenant does not reject every
// candidate while waiting for the next refresh tick.
func (s *Service) Validate(tenancy utils.Tenancy, userIds []string) []string {
	if _, ok := s.snapshot.Load().Users[tenantKey(tenancy)]; !ok {
		s.RegisterTenant(context.Background(), tenancy)
	}
	users := s.Users(tenancy)
	known := make(map[string]bool, len(users))
	for _, u := range users {
		known[u.Id] = true
	}
	var invalid []string
	for _, id := range utils.UniqueSlice(userIds) {
		if !known[id] {
			invalid = append(invalid, id)
		}
	}
	return invalid
}
