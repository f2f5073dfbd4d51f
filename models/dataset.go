package models

import (
	"context"
	"time"

	"github.com/githubdatabridge/sih-atellica-qplus-backend-sub000/config"
	"github.com/githubdatabridge/sih-atellica-qplus-backend-sub000/utils"
	"gorm.io/gorm"
)

// Dataset is a named catalog entry carrying the list of visualization names
// that are valid for reports built on it. The list is stored serialized;
// names are unique within one dataset.
type Dataset struct {
	ID             int            `gorm:"primary_key" json:"id"`
	CustomerId     string         `gorm:"index;size:64;not null" json:"customer_id"`
	TenantId       string         `gorm:"index;size:64;not null" json:"tenant_id"`
	AppId          string         `gorm:"index;size:64;not null" json:"app_id"`
	Name           string         `gorm:"size:255;not null" json:"name"`
	Description    string         `gorm:"size:1024" json:"description"`
	Visualizations string         `gorm:"type:text;not null" json:"visualizations"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

type NewDataset struct {
	Name           string   `json:"name" validate:"required"`
	Description    string   `json:"description"`
	Visualizations []string `json:"visualizations" validate:"required,min=1"`
}

// VisualizationList deserializes the stored names.
func (d *Dataset) VisualizationList() ([]string, error) {
	var names []string
	if err := utils.UnmarshalFromJSON([]byte(d.Visualizations), &names); err != nil {
		return nil, utils.NewBadDataError("dataset visualization list is corrupt")
	}
	return names, nil
}

// HasVisualization reports whether the dataset carries the named
// visualization.
func (d *Dataset) HasVisualization(name string) (bool, error) {
	names, err := d.VisualizationList()
	if err != nil {
		return false, err
	}
	return utils.ContainsSlice(names, name), nil
}

func (d *Dataset) setVisualizations(names []string) error {
	names = utils.UniqueSlice(names)
	if len(names) == 0 {
		return utils.NewValidationError("a dataset requires at least one visualization")
	}
	serialized, err := utils.MarshalToJSON(names)
	if err != nil {
		return err
	}
	d.Visualizations = serialized
	return nil
}

// CreateDataset inserts a catalog entry. Admin only; names are unique per
// tenancy scope.
func CreateDataset(ctx context.Context, input *NewDataset) (*Dataset, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	if err := EnsureAdmin(ctx); err != nil {
		return nil, err
	}
	tenancy, ok := utils.GetTenancyFromContext(ctx)
	if !ok {
		return nil, utils.NewValidationError("tenancy context is required")
	}
	if err := utils.ValidateUnique[Dataset](ctx, tenancy, "name", input.Name, nil); err != nil {
		return nil, err
	}

	dataset := Dataset{
		CustomerId:  tenancy.CustomerId,
		TenantId:    tenancy.TenantId,
		AppId:       tenancy.AppId,
		Name:        input.Name,
		Description: input.Description,
	}
	if err := dataset.setVisualizations(input.Visualizations); err != nil {
		return nil, err
	}

	db := config.GetDB()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&dataset).Error; err != nil {
			return err
		}
		return createHistory(tx, "CREATE", dataset.ID, "datasets", nil, &dataset, "dataset created")
	})
	if err != nil {
		return nil, err
	}
	return &dataset, nil
}

// GetDataset returns one catalog entry. Datasets are readable by every user
// in the tenancy scope.
func GetDataset(ctx context.Context, id int) (*Dataset, error) {
	tenancy, ok := utils.GetTenancyFromContext(ctx)
	if !ok {
		return nil, utils.NewValidationError("tenancy context is required")
	}
	dataset, err := utils.FetchModel[Dataset](ctx, tenancy, id)
	if err != nil {
		return nil, utils.NewNotFoundError("dataset not found")
	}
	return dataset, nil
}

// GetAllDatasets lists the catalog for the tenancy scope, name order.
func GetAllDatasets(ctx context.Context) ([]*Dataset, error) {
	tenancy, ok := utils.GetTenancyFromContext(ctx)
	if !ok {
		return nil, utils.NewValidationError("tenancy context is required")
	}
	db := config.GetDB()
	var datasets []*Dataset
	err := db.WithContext(ctx).
		Where("customer_id = ? AND tenant_id = ? AND app_id = ?", tenancy.CustomerId, tenancy.TenantId, tenancy.AppId).
		Order("name ASC").
		Find(&datasets).Error
	if err != nil {
		return nil, err
	}
	return datasets, nil
}

// ReportsUsingVisualization returns the reports of the tenancy scope that
// reference one dataset visualization. Deliberately unscoped by caller
// visibility: consistency checks must see every referencing report.
func ReportsUsingVisualization(ctx context.Context, tenancy utils.Tenancy, datasetId int, visualization string) ([]*Report, error) {
	db := config.GetDB()
	var reports []*Report
	err := db.WithContext(ctx).
		Where("customer_id = ? AND tenant_id = ? AND app_id = ?", tenancy.CustomerId, tenancy.TenantId, tenancy.AppId).
		Where("dataset_id = ? AND visualization_type = ?", datasetId, visualization).
		Find(&reports).Error
	if err != nil {
		return nil, err
	}
	return reports, nil
}

// validateDatasetHasVisualization gates report create/update: the report's
// visualization type must exist on its dataset.
func validateDatasetHasVisualization(ctx context.Context, tenancy utils.Tenancy, datasetId int, visualization string) error {
	dataset, err := utils.FetchModel[Dataset](ctx, tenancy, datasetId)
	if err != nil {
		return utils.NewNotFoundError("dataset not found")
	}
	ok, err := dataset.HasVisualization(visualization)
	if err != nil {
		return err
	}
	if !ok {
		return utils.NewValidationError("visualization " + visualization + " does not exist on dataset " + dataset.Name)
	}
	return nil
}
