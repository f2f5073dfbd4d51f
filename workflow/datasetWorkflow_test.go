package workflow_test

import (
	"errors"
	"testing"

	"github.com/githubdatabridge/sih-atellica-qplus-backend-sub000/config"
	"github.com/githubdatabridge/sih-atellica-qplus-backend-sub000/models"
	"github.com/githubdatabridge/sih-atellica-qplus-backend-sub000/utils"
	"github.com/githubdatabridge/sih-atellica-qplus-backend-sub000/workflow"
	"gorm.io/gorm"
)

func newDatasetService() *workflow.DatasetService {
	return workflow.NewDatasetService(config.GetDB(), config.GetLogger())
}

func TestRenameVisualization_RetargetsReports(t *testing.T) {
	setupTestDB(t)
	admin := identityContext("alice", utils.RoleAdmin)
	dataset := mustCreateDataset(t, admin, "Sales", "barchart", "linechart")
	report := mustCreateReport(t, admin, dataset.ID, "Bar Report", "barchart")
	untouched := mustCreateReport(t, admin, dataset.ID, "Line Report", "linechart")
	svc := newDatasetService()

	updated, err := svc.RenameVisualization(admin, dataset.ID, "barchart", "columnchart")
	if err != nil {
		t.Fatalf("RenameVisualization: %v", err)
	}
	names, err := updated.VisualizationList()
	if err != nil {
		t.Fatalf("VisualizationList: %v", err)
	}
	if utils.ContainsSlice(names, "barchart") || !utils.ContainsSlice(names, "columnchart") {
		t.Fatalf("catalog not renamed: %v", names)
	}

	got, err := models.GetReport(admin, report.ID)
	if err != nil {
		t.Fatalf("GetReport: %v", err)
	}
	if got.VisualizationType != "columnchart" {
		t.Fatalf("report not retargeted, still %q", got.VisualizationType)
	}
	other, err := models.GetReport(admin, untouched.ID)
	if err != nil {
		t.Fatalf("GetReport untouched: %v", err)
	}
	if other.VisualizationType != "linechart" {
		t.Fatalf("unrelated report changed to %q", other.VisualizationType)
	}

	// duplicate target name rejected
	if _, err := svc.RenameVisualization(admin, dataset.ID, "columnchart", "linechart"); !utils.IsValidation(err) {
		t.Fatalf("expected validation for duplicate name, got %v", err)
	}
}

func TestRemoveVisualization_ReferencedWithoutCascadeIsForbidden(t *testing.T) {
	setupTestDB(t)
	admin := identityContext("alice", utils.RoleAdmin)
	dataset := mustCreateDataset(t, admin, "Sales", "barchart", "linechart")
	report := mustCreateReport(t, admin, dataset.ID, "Bar Report", "barchart")
	svc := newDatasetService()

	if _, err := svc.RemoveVisualization(admin, dataset.ID, "barchart", false); !utils.IsForbidden(err) {
		t.Fatalf("expected forbidden for referenced removal, got %v", err)
	}
	// nothing removed
	if _, err := models.GetReport(admin, report.ID); err != nil {
		t.Fatalf("report must survive rejected removal: %v", err)
	}
	got, err := models.GetDataset(admin, dataset.ID)
	if err != nil {
		t.Fatalf("GetDataset: %v", err)
	}
	names, _ := got.VisualizationList()
	if !utils.ContainsSlice(names, "barchart") {
		t.Fatalf("catalog changed on rejected removal: %v", names)
	}
}

func TestRemoveVisualization_CascadeDeletesReferencingReports(t *testing.T) {
	setupTestDB(t)
	admin := identityContext("alice", utils.RoleAdmin)
	dataset := mustCreateDataset(t, admin, "Sales", "barchart", "linechart")
	doomed := mustCreateReport(t, admin, dataset.ID, "Bar Report", "barchart")
	survivor := mustCreateReport(t, admin, dataset.ID, "Line Report", "linechart")
	svc := newDatasetService()
	sharing := newSharingService(&recorderDispatcher{})
	if _, err := sharing.ShareReport(admin, doomed.ID, []string{"bob"}); err != nil {
		t.Fatalf("ShareReport: %v", err)
	}

	updated, err := svc.RemoveVisualization(admin, dataset.ID, "barchart", true)
	if err != nil {
		t.Fatalf("RemoveVisualization cascade: %v", err)
	}
	names, _ := updated.VisualizationList()
	if utils.ContainsSlice(names, "barchart") {
		t.Fatalf("catalog still lists removed visualization: %v", names)
	}

	if _, err := models.GetReport(admin, doomed.ID); !utils.IsNotFound(err) {
		t.Fatalf("expected referencing report deleted, got %v", err)
	}
	if _, err := models.GetReport(admin, survivor.ID); err != nil {
		t.Fatalf("unrelated report must survive cascade: %v", err)
	}
	grants, err := models.GetSharedUserIdsOfReport(admin, testTenancy(), doomed.ID)
	if err != nil {
		t.Fatalf("GetSharedUserIdsOfReport: %v", err)
	}
	if len(grants) != 0 {
		t.Fatalf("expected grants removed with report, got %v", grants)
	}
}

func TestRemoveVisualization_LastVisualizationRejected(t *testing.T) {
	setupTestDB(t)
	admin := identityContext("alice", utils.RoleAdmin)
	dataset := mustCreateDataset(t, admin, "Tiny", "barchart")
	svc := newDatasetService()

	if _, err := svc.RemoveVisualization(admin, dataset.ID, "barchart", false); !utils.IsValidation(err) {
		t.Fatalf("expected validation for removing the last visualization, got %v", err)
	}
}

func TestAddVisualization_DuplicateRejected(t *testing.T) {
	setupTestDB(t)
	admin := identityContext("alice", utils.RoleAdmin)
	dataset := mustCreateDataset(t, admin, "Sales", "barchart")
	svc := newDatasetService()

	if _, err := svc.AddVisualization(admin, dataset.ID, "barchart"); !utils.IsValidation(err) {
		t.Fatalf("expected validation for duplicate visualization, got %v", err)
	}
	updated, err := svc.AddVisualization(admin, dataset.ID, "piechart")
	if err != nil {
		t.Fatalf("AddVisualization: %v", err)
	}
	names, _ := updated.VisualizationList()
	if !utils.ContainsSlice(names, "piechart") {
		t.Fatalf("visualization not added: %v", names)
	}

	// admin only
	if _, err := svc.AddVisualization(identityContext("bob", ""), dataset.ID, "table"); !utils.IsForbidden(err) {
		t.Fatalf("expected forbidden for non-admin, got %v", err)
	}
}

// A failure anywhere inside the cascade rolls the whole transaction back:
// the report, its grants and its state stay intact.
func TestDeleteReportCascade_RollsBackAtomically(t *testing.T) {
	setupTestDB(t)
	admin := identityContext("alice", utils.RoleAdmin)
	dataset := mustCreateDataset(t, admin, "Sales")
	report := mustCreateReport(t, admin, dataset.ID, "Survivor", "barchart")
	sharing := newSharingService(&recorderDispatcher{})
	if _, err := sharing.ShareReport(admin, report.ID, []string{"bob", "carol"}); err != nil {
		t.Fatalf("ShareReport: %v", err)
	}

	db := config.GetDB()
	boom := errors.New("simulated failure after cascade")
	err := db.WithContext(admin).Transaction(func(tx *gorm.DB) error {
		if err := models.DeleteReportCascade(tx, report); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected the simulated failure to propagate, got %v", err)
	}

	if _, err := models.GetReport(admin, report.ID); err != nil {
		t.Fatalf("report must survive the rollback: %v", err)
	}
	grants, err := models.GetSharedUserIdsOfReport(admin, testTenancy(), report.ID)
	if err != nil {
		t.Fatalf("GetSharedUserIdsOfReport: %v", err)
	}
	if len(grants) != 2 {
		t.Fatalf("grants must survive the rollback, got %v", grants)
	}
}
