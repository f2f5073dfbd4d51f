package workflow_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/githubdatabridge/sih-atellica-qplus-backend-sub000/config"
	"github.com/githubdatabridge/sih-atellica-qplus-backend-sub000/models"
	"github.com/githubdatabridge/sih-atellica-qplus-backend-sub000/notify"
	"github.com/githubdatabridge/sih-atellica-qplus-backend-sub000/utils"
)

const (
	testCustomerId = "cust-1"
	testTenantId   = "tenant-1"
	testAppId      = "qlik-app-1"
)

func setupTestDB(t *testing.T) {
	t.Helper()
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_DSN", "file:"+filepath.Join(t.TempDir(), "collab_test.db"))
	if err := config.ConnectDatabase(); err != nil {
		t.Fatalf("ConnectDatabase: %v", err)
	}
	models.MigrateTable()
}

func identityContext(callerId string, role string, scopes ...string) context.Context {
	ctx := context.Background()
	ctx = utils.SetCallerIdInContext(ctx, callerId)
	ctx = utils.SetCallerNameInContext(ctx, "User "+callerId)
	ctx = utils.SetCustomerIdInContext(ctx, testCustomerId)
	ctx = utils.SetTenantIdInContext(ctx, testTenantId)
	ctx = utils.SetAppIdInContext(ctx, testAppId)
	if role != "" {
		ctx = utils.SetActiveRoleInContext(ctx, role)
	}
	if len(scopes) > 0 {
		ctx = utils.SetScopesInContext(ctx, scopes)
	}
	return ctx
}

func testTenancy() utils.Tenancy {
	return utils.Tenancy{CustomerId: testCustomerId, TenantId: testTenantId, AppId: testAppId}
}

// stubDirectory knows a fixed set of user ids.
type stubDirectory struct {
	known []string
}

func (d *stubDirectory) Validate(_ utils.Tenancy, userIds []string) []string {
	var invalid []string
	for _, id := range utils.UniqueSlice(userIds) {
		if !utils.ContainsSlice(d.known, id) {
			invalid = append(invalid, id)
		}
	}
	return invalid
}

// recorderDispatcher captures notifications; dispatch happens on a goroutine
// so readers synchronize through the mutex and poll.
type recorderDispatcher struct {
	mu   sync.Mutex
	sent []*notify.Notification
}

func (r *recorderDispatcher) Dispatch(_ context.Context, n *notify.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return nil
}

func (r *recorderDispatcher) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

func (r *recorderDispatcher) last() *notify.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sent) == 0 {
		return nil
	}
	return r.sent[len(r.sent)-1]
}

func (r *recorderDispatcher) ofKind(kind string) []*notify.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*notify.Notification
	for _, n := range r.sent {
		if n.Type == kind {
			out = append(out, n)
		}
	}
	return out
}

// waitForNotifications polls until the recorder holds at least n entries.
func waitForNotifications(t *testing.T, r *recorderDispatcher, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if r.count() >= n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d notifications, have %d", n, r.count())
}

// failingDispatcher always errors; delivery failures must never surface.
type failingDispatcher struct{}

func (failingDispatcher) Dispatch(context.Context, *notify.Notification) error {
	return errors.New("pubsub unavailable")
}

func mustCreateDataset(t *testing.T, ctx context.Context, name string, visualizations ...string) *models.Dataset {
	t.Helper()
	if len(visualizations) == 0 {
		visualizations = []string{"barchart", "linechart", "piechart"}
	}
	dataset, err := models.CreateDataset(ctx, &models.NewDataset{
		Name:           name,
		Visualizations: visualizations,
	})
	if err != nil {
		t.Fatalf("CreateDataset(%s): %v", name, err)
	}
	return dataset
}

func mustCreateReport(t *testing.T, ctx context.Context, datasetId int, title string, visualization string) *models.Report {
	t.Helper()
	report, err := models.CreateReport(ctx, &models.NewReport{
		Title:             title,
		Content:           `{"layout":"default"}`,
		VisualizationType: visualization,
		DatasetId:         datasetId,
	})
	if err != nil {
		t.Fatalf("CreateReport(%s): %v", title, err)
	}
	return report
}
