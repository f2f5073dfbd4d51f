package models_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/githubdatabridge/sih-atellica-qplus-backend-sub000/config"
	"github.com/githubdatabridge/sih-atellica-qplus-backend-sub000/models"
	"github.com/githubdatabridge/sih-atellica-qplus-backend-sub000/utils"
)

const (
	testCustomerId = "cust-1"
	testTenantId   = "tenant-1"
	testAppId      = "qlik-app-1"
)

// setupTestDB points the global store at a fresh on-disk sqlite file so each
// test starts from an empty schema.
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

func mustCreateReport(t *testing.T, ctx context.Context, datasetId int, title string) *models.Report {
	t.Helper()
	report, err := models.CreateReport(ctx, &models.NewReport{
		Title:             title,
		Content:           `{"layout":"default"}`,
		VisualizationType: "barchart",
		DatasetId:         datasetId,
	})
	if err != nil {
		t.Fatalf("CreateReport(%s): %v", title, err)
	}
	return report
}

func shareReportDirect(t *testing.T, ctx context.Context, reportId int, userIds ...string) {
	t.Helper()
	db := config.GetDB()
	for _, userId := range userIds {
		grant := models.UserReport{
			CustomerId: testCustomerId,
			TenantId:   testTenantId,
			AppId:      testAppId,
			ReportId:   reportId,
			AppUserId:  userId,
		}
		if err := db.WithContext(ctx).Create(&grant).Error; err != nil {
			t.Fatalf("create grant for %s: %v", userId, err)
		}
	}
}
