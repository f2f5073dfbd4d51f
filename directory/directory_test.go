package directory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/githubdatabridge/sih-atellica-qplus-backend-sub000/config"
	"github.com/githubdatabridge/sih-atellica-qplus-backend-sub000/directory"
	"github.com/githubdatabridge/sih-atellica-qplus-backend-sub000/utils"
)

type scriptedFetcher struct {
	users []directory.User
	err   error
	calls int
}

func (f *scriptedFetcher) FetchUsers(_ context.Context, _ utils.Tenancy) ([]directory.User, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.users, nil
}

func testTenancy() utils.Tenancy {
	return utils.Tenancy{CustomerId: "cust-1", TenantId: "tenant-1", AppId: "qlik-app-1"}
}

func TestRegisterTenant_PrimesSnapshot(t *testing.T) {
	fetcher := &scriptedFetcher{users: []directory.User{
		{Id: "alice", Name: "Alice", Email: "alice@corp.test"},
		{Id: "bob", Name: "Bob", Email: "bob@corp.test"},
	}}
	svc := directory.NewService(fetcher, config.GetLogger())

	svc.RegisterTenant(context.Background(), testTenancy())

	users := svc.Users(testTenancy())
	if len(users) != 2 {
		t.Fatalf("expected 2 users after priming, got %d", len(users))
	}
	if fetcher.calls != 1 {
		t.Fatalf("expected exactly one fetch, got %d", fetcher.calls)
	}
	// registering the same tenant again is a no-op
	svc.RegisterTenant(context.Background(), testTenancy())
	if fetcher.calls != 1 {
		t.Fatalf("re-register must not refetch, got %d calls", fetcher.calls)
	}
}

func TestValidate_ReportsUnknownIds(t *testing.T) {
	fetcher := &scriptedFetcher{users: []directory.User{
		{Id: "alice"}, {Id: "bob"},
	}}
	svc := directory.NewService(fetcher, config.GetLogger())
	svc.RegisterTenant(context.Background(), testTenancy())

	if invalid := svc.Validate(testTenancy(), []string{"alice", "bob"}); len(invalid) != 0 {
		t.Fatalf("expected all ids valid, got %v", invalid)
	}
	invalid := svc.Validate(testTenancy(), []string{"alice", "ghost", "ghost", "phantom"})
	if len(invalid) != 2 {
		t.Fatalf("expected deduplicated unknown ids, got %v", invalid)
	}
}

func TestRefresh_KeepsLastKnownListOnFetchFailure(t *testing.T) {
	fetcher := &scriptedFetcher{users: []directory.User{{Id: "alice"}}}
	svc := directory.NewService(fetcher, config.GetLogger())
	ctx := context.Background()
	svc.RegisterTenant(ctx, testTenancy())

	if users := svc.Users(testTenancy()); len(users) != 1 {
		t.Fatalf("expected primed list, got %v", users)
	}

	// identity service goes away; the previous list survives the refresh
	fetcher.err = errors.New("identity service unreachable")
	svc.RegisterTenant(ctx, utils.Tenancy{CustomerId: "cust-2", TenantId: "tenant-2", AppId: "app-2"})

	if users := svc.Users(testTenancy()); len(users) != 1 || users[0].Id != "alice" {
		t.Fatalf("expected last known list to survive, got %v", users)
	}
	if users := svc.Users(utils.Tenancy{CustomerId: "cust-2", TenantId: "tenant-2", AppId: "app-2"}); len(users) != 0 {
		t.Fatalf("unfetched tenant must be empty, got %v", users)
	}
}

// The first Validate of a tenant scope primes the directory itself; a fresh
// process would otherwise reject every candidate until the next refresh tick.
func TestValidate_PrimesUnregisteredTenant(t *testing.T) {
	fetcher := &scriptedFetcher{users: []directory.User{
		{Id: "alice"}, {Id: "bob"},
	}}
	svc := directory.NewService(fetcher, config.GetLogger())

	if invalid := svc.Validate(testTenancy(), []string{"alice", "bob"}); len(invalid) != 0 {
		t.Fatalf("expected self-primed validation to pass, got %v", invalid)
	}
	if fetcher.calls != 1 {
		t.Fatalf("expected exactly one priming fetch, got %d", fetcher.calls)
	}
	// later validations read the snapshot without refetching
	if invalid := svc.Validate(testTenancy(), []string{"ghost"}); len(invalid) != 1 || invalid[0] != "ghost" {
		t.Fatalf("expected ghost to be unknown, got %v", invalid)
	}
	if fetcher.calls != 1 {
		t.Fatalf("validating a known scope must not refetch, got %d calls", fetcher.calls)
	}
}
