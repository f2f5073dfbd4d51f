package workflow

import (
	"context"

	"github.com/githubdatabridge/sih-atellica-qplus-backend-sub000/models"
	"github.com/githubdatabridge/sih-atellica-qplus-backend-sub000/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// DatasetService keeps the dataset catalog and the reports referencing it
// consistent: renames retarget, removals either block on live references or
// cascade-delete them, all in one transaction.
type DatasetService struct {
	DB     *gorm.DB
	Logger *logrus.Logger
}

func NewDatasetService(db *gorm.DB, logger *logrus.Logger) *DatasetService {
	return &DatasetService{DB: db, Logger: logger}
}

func (s *DatasetService) loadDataset(ctx context.Context, datasetId int) (*models.Dataset, utils.Tenancy, []string, error) {
	tenancy, ok := utils.GetTenancyFromContext(ctx)
	if !ok {
		return nil, utils.Tenancy{}, nil, utils.NewValidationError("tenancy context is required")
	}
	if err := models.EnsureAdmin(ctx); err != nil {
		return nil, utils.Tenancy{}, nil, err
	}
	dataset, err := models.GetDataset(ctx, datasetId)
	if err != nil {
		return nil, utils.Tenancy{}, nil, err
	}
	names, err := dataset.VisualizationList()
	if err != nil {
		return nil, utils.Tenancy{}, nil, err
	}
	return dataset, tenancy, names, nil
}

// AddVisualization appends a chart-type name to the dataset. Duplicate names
// within one dataset are rejected.
func (s *DatasetService) AddVisualization(ctx context.Context, datasetId int, name string) (*models.Dataset, error) {
	if name == "" {
		return nil, utils.NewValidationError("visualization name is required")
	}
	dataset, _, names, err := s.loadDataset(ctx, datasetId)
	if err != nil {
		return nil, err
	}
	if utils.ContainsSlice(names, name) {
		return nil, utils.NewValidationError("duplicate visualization name " + name)
	}

	err = s.saveVisualizations(ctx, dataset, append(names, name), "visualization added")
	if err != nil {
		return nil, err
	}
	return models.GetDataset(ctx, datasetId)
}

// RenameVisualization changes one chart-type name and retargets every
// referencing report to the new name inside the same transaction; reports
// are never deleted on rename.
func (s *DatasetService) RenameVisualization(ctx context.Context, datasetId int, oldName string, newName string) (*models.Dataset, error) {
	if oldName == "" || newName == "" {
		return nil, utils.NewValidationError("old and new visualization names are required")
	}
	dataset, tenancy, names, err := s.loadDataset(ctx, datasetId)
	if err != nil {
		return nil, err
	}
	if !utils.ContainsSlice(names, oldName) {
		return nil, utils.NewNotFoundError("visualization " + oldName + " not found on dataset")
	}
	if utils.ContainsSlice(names, newName) {
		return nil, utils.NewValidationError("duplicate visualization name " + newName)
	}

	renamed := make([]string, 0, len(names))
	for _, n := range names {
		if n == oldName {
			n = newName
		}
		renamed = append(renamed, n)
	}
	serialized, err := utils.MarshalToJSON(renamed)
	if err != nil {
		return nil, err
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Report{}).
			Where("customer_id = ? AND tenant_id = ? AND app_id = ?", tenancy.CustomerId, tenancy.TenantId, tenancy.AppId).
			Where("dataset_id = ? AND visualization_type = ?", dataset.ID, oldName).
			Update("visualization_type", newName).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Dataset{}).Where("id = ?", dataset.ID).
			Update("visualizations", serialized).Error; err != nil {
			return err
		}
		return models.SaveDatasetHistory(tx, dataset.ID, dataset, renamed, "visualization renamed")
	})
	if err != nil {
		return nil, err
	}
	return models.GetDataset(ctx, datasetId)
}

// RemoveVisualization drops one chart-type name. When reports still
// reference it the operation is forbidden unless cascade is set, in which
// case the referencing reports are deleted (grants and states included) in
// the same transaction.
func (s *DatasetService) RemoveVisualization(ctx context.Context, datasetId int, name string, cascade bool) (*models.Dataset, error) {
	if name == "" {
		return nil, utils.NewValidationError("visualization name is required")
	}
	dataset, tenancy, names, err := s.loadDataset(ctx, datasetId)
	if err != nil {
		return nil, err
	}
	if !utils.ContainsSlice(names, name) {
		return nil, utils.NewNotFoundError("visualization " + name + " not found on dataset")
	}

	remaining := make([]string, 0, len(names))
	for _, n := range names {
		if n != name {
			remaining = append(remaining, n)
		}
	}
	if len(remaining) == 0 {
		return nil, utils.NewValidationError("a dataset requires at least one visualization")
	}

	referencing, err := models.ReportsUsingVisualization(ctx, tenancy, dataset.ID, name)
	if err != nil {
		return nil, err
	}
	if len(referencing) > 0 && !cascade {
		return nil, utils.NewForbiddenError("visualization " + name + " is still referenced by reports")
	}

	serialized, err := utils.MarshalToJSON(remaining)
	if err != nil {
		return nil, err
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, report := range referencing {
			if err := models.DeleteReportCascade(tx, report); err != nil {
				return err
			}
		}
		if err := tx.Model(&models.Dataset{}).Where("id = ?", dataset.ID).
			Update("visualizations", serialized).Error; err != nil {
			return err
		}
		return models.SaveDatasetHistory(tx, dataset.ID, dataset, remaining, "visualization removed")
	})
	if err != nil {
		return nil, err
	}
	return models.GetDataset(ctx, datasetId)
}

func (s *DatasetService) saveVisualizations(ctx context.Context, dataset *models.Dataset, names []string, note string) error {
	serialized, err := utils.MarshalToJSON(names)
	if err != nil {
		return err
	}
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Dataset{}).Where("id = ?", dataset.ID).
			Update("visualizations", serialized).Error; err != nil {
			return err
		}
		return models.SaveDatasetHistory(tx, dataset.ID, dataset, names, note)
	})
}
