package models

import (
	"context"
	"time"

	"github.com/githubdatabridge/sih-atellica-qplus-backend-sub000/config"
	"github.com/githubdatabridge/sih-atellica-qplus-backend-sub000/utils"
	"gorm.io/gorm"
)

// Report is an owned visualization snapshot. A report with IsSystem set is a
// broadcast/template report: visible to every user in the tenant/app scope,
// never shareable or favouritable. TemplateId marks the canonical template
// instance (self-reference), which requires the template scope to mutate.
type Report struct {
	ID                int            `gorm:"primary_key" json:"id"`
	CustomerId        string         `gorm:"index;size:64;not null" json:"customer_id"`
	TenantId          string         `gorm:"index;size:64;not null" json:"tenant_id"`
	AppId             string         `gorm:"index;size:64;not null" json:"app_id"`
	OwnerId           string         `gorm:"index;size:64;not null" json:"owner_id"`
	Title             string         `gorm:"size:255;not null" json:"title"`
	Content           string         `gorm:"type:text" json:"content"`
	VisualizationType string         `gorm:"size:100" json:"visualization_type"`
	DatasetId         int            `gorm:"index" json:"dataset_id"`
	QlikStateId       *int           `json:"qlik_state_id"`
	IsSystem          bool           `gorm:"index;not null;default:false" json:"is_system"`
	TemplateId        *int           `json:"template_id"`
	IsPinwallable     bool           `gorm:"not null;default:false" json:"is_pinwallable"`
	IsFavourite       bool           `gorm:"not null;default:false" json:"is_favourite"`
	CreatedAt         time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`
}

type NewReport struct {
	Title             string        `json:"title" validate:"required"`
	Content           string        `json:"content"`
	VisualizationType string        `json:"visualization_type" validate:"required"`
	DatasetId         int           `json:"dataset_id" validate:"required"`
	IsPinwallable     bool          `json:"is_pinwallable"`
	QlikState         *NewQlikState `json:"qlik_state"`
}

type UpdateReportInput struct {
	Title             *string       `json:"title"`
	Content           *string       `json:"content"`
	VisualizationType *string       `json:"visualization_type"`
	IsPinwallable     *bool         `json:"is_pinwallable"`
	IsFavourite       *bool         `json:"is_favourite"`
	QlikState         *NewQlikState `json:"qlik_state"`
}

// ReportListOptions carries the three visibility modes plus the structured
// filter/search/order protocol for one page.
type ReportListOptions struct {
	WithPersonal bool
	WithTemplate bool
	WithShared   bool
	Filters      []FilterCondition
	Search       []FilterCondition
	OrderBy      *OrderBy
	CurrentPage  int
	PerPage      int
}

var reportQuerySpec = QuerySpec{
	Columns: map[string]string{
		"title":             "title",
		"visualizationType": "visualization_type",
		"datasetId":         "dataset_id",
		"isSystem":          "is_system",
		"isPinwallable":     "is_pinwallable",
		"isFavourite":       "is_favourite",
		"createdAt":         "created_at",
		"updatedAt":         "updated_at",
	},
	Filterable: map[string][]FilterOperator{
		"title":             {FilterOpEq, FilterOpNot, FilterOpLike},
		"visualizationType": {FilterOpEq, FilterOpNot, FilterOpLike},
		"datasetId":         {FilterOpEq, FilterOpNot},
		"isSystem":          {FilterOpEq, FilterOpNot},
		"isPinwallable":     {FilterOpEq, FilterOpNot},
		"isFavourite":       {FilterOpEq, FilterOpNot},
		"createdAt":         {FilterOpEq, FilterOpNot, FilterOpLt, FilterOpGt, FilterOpLte, FilterOpGte},
		"updatedAt":         {FilterOpEq, FilterOpNot, FilterOpLt, FilterOpGt, FilterOpLte, FilterOpGte},
	},
	Searchable: map[string]bool{
		"title":             true,
		"visualizationType": true,
	},
	Orderable: map[string]bool{
		"title":             true,
		"visualizationType": true,
		"createdAt":         true,
		"updatedAt":         true,
	},
}

// CreateReport inserts a report (and its optional qlik state) in one
// transaction. Creation is admin-gated; duplicate titles per owner are
// rejected.
func CreateReport(ctx context.Context, input *NewReport) (*Report, error) {
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
	callerId, ok := utils.GetCallerIdFromContext(ctx)
	if !ok || callerId == "" {
		return nil, utils.NewValidationError("caller identity is required")
	}

	if err := validateDatasetHasVisualization(ctx, tenancy, input.DatasetId, input.VisualizationType); err != nil {
		return nil, err
	}

	var count int64
	db := config.GetDB()
	if err := db.WithContext(ctx).Model(&Report{}).
		Where("customer_id = ? AND tenant_id = ? AND app_id = ?", tenancy.CustomerId, tenancy.TenantId, tenancy.AppId).
		Where("owner_id = ? AND title = ?", callerId, input.Title).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, utils.NewAlreadyExistsError("duplicate title")
	}

	report := Report{
		CustomerId:        tenancy.CustomerId,
		TenantId:          tenancy.TenantId,
		AppId:             tenancy.AppId,
		OwnerId:           callerId,
		Title:             input.Title,
		Content:           input.Content,
		VisualizationType: input.VisualizationType,
		DatasetId:         input.DatasetId,
		IsPinwallable:     input.IsPinwallable,
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if input.QlikState != nil {
			state, err := createQlikState(tx, tenancy, input.QlikState)
			if err != nil {
				return err
			}
			report.QlikStateId = &state.ID
		}
		if err := tx.Create(&report).Error; err != nil {
			return err
		}
		return createHistory(tx, "CREATE", report.ID, "reports", nil, &report, "report created")
	})
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// GetReport returns the report iff the caller may read it: system, shared
// with the caller, owned by the caller, or the caller is admin. Anything else
// is not_found.
func GetReport(ctx context.Context, id int) (*Report, error) {
	return fetchVisibleReport(ctx, id)
}

func fetchVisibleReport(ctx context.Context, id int) (*Report, error) {
	tenancy, ok := utils.GetTenancyFromContext(ctx)
	if !ok {
		return nil, utils.NewValidationError("tenancy context is required")
	}
	callerId, ok := utils.GetCallerIdFromContext(ctx)
	if !ok || callerId == "" {
		return nil, utils.NewValidationError("caller identity is required")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).
		Where("customer_id = ? AND tenant_id = ? AND app_id = ?", tenancy.CustomerId, tenancy.TenantId, tenancy.AppId).
		Where("id = ?", id)

	if !utils.IsAdminFromContext(ctx) {
		shared := db.Model(&UserReport{}).Select("report_id").
			Where("customer_id = ? AND tenant_id = ? AND app_id = ?", tenancy.CustomerId, tenancy.TenantId, tenancy.AppId).
			Where("app_user_id = ?", callerId)
		dbCtx = dbCtx.Where(
			db.Where("is_system = ?", true).
				Or("owner_id = ?", callerId).
				Or("id IN (?)", shared),
		)
	}

	var report Report
	if err := dbCtx.First(&report).Error; err != nil {
		return nil, utils.NewNotFoundError("report not found")
	}
	return &report, nil
}

// GetAllReports composes one filtered/searched/ordered/paginated query across
// the three visibility modes. Modes combine with OR, so an item satisfying
// several modes still appears exactly once. All modes false returns an empty
// page with zeroed pagination, not an error.
func GetAllReports(ctx context.Context, opts *ReportListOptions) (*Page[Report], error) {
	if opts == nil {
		opts = &ReportListOptions{}
	}
	if !opts.WithPersonal && !opts.WithTemplate && !opts.WithShared {
		return EmptyPage[Report](opts.CurrentPage, opts.PerPage), nil
	}

	tenancy, ok := utils.GetTenancyFromContext(ctx)
	if !ok {
		return nil, utils.NewValidationError("tenancy context is required")
	}
	callerId, ok := utils.GetCallerIdFromContext(ctx)
	if !ok || callerId == "" {
		return nil, utils.NewValidationError("caller identity is required")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&Report{}).
		Where("customer_id = ? AND tenant_id = ? AND app_id = ?", tenancy.CustomerId, tenancy.TenantId, tenancy.AppId)

	var visibility *gorm.DB
	orMode := func(cond *gorm.DB) {
		if visibility == nil {
			visibility = cond
		} else {
			visibility = visibility.Or(cond)
		}
	}
	if opts.WithPersonal {
		orMode(db.Where("owner_id = ? AND is_system = ?", callerId, false))
	}
	if opts.WithTemplate {
		orMode(db.Where("is_system = ?", true))
	}
	if opts.WithShared {
		shared := db.Model(&UserReport{}).Select("report_id").
			Where("customer_id = ? AND tenant_id = ? AND app_id = ?", tenancy.CustomerId, tenancy.TenantId, tenancy.AppId).
			Where("app_user_id = ?", callerId)
		orMode(db.Where("reports.id IN (?)", shared))
	}
	dbCtx = dbCtx.Where(visibility)

	dbCtx, err := reportQuerySpec.ApplyFilters(dbCtx, opts.Filters)
	if err != nil {
		return nil, err
	}
	dbCtx, err = reportQuerySpec.ApplySearch(dbCtx, opts.Search)
	if err != nil {
		return nil, err
	}
	dbCtx, err = reportQuerySpec.ApplyOrder(dbCtx, opts.OrderBy)
	if err != nil {
		return nil, err
	}

	return FetchPageOffset[Report](dbCtx, opts.CurrentPage, opts.PerPage)
}

// GetAllFollowersOfReport resolves the de-duplicated set of user ids entitled
// to see the report right now: the owner plus every live grant holder, minus
// the optional skip list (e.g. the acting user). Pure function of committed
// grant state.
func GetAllFollowersOfReport(ctx context.Context, reportId int, skip ...string) ([]string, error) {
	tenancy, ok := utils.GetTenancyFromContext(ctx)
	if !ok {
		return nil, utils.NewValidationError("tenancy context is required")
	}
	report, err := utils.FetchModel[Report](ctx, tenancy, reportId)
	if err != nil {
		return nil, utils.NewNotFoundError("report not found")
	}
	grantIds, err := GetSharedUserIdsOfReport(ctx, tenancy, reportId)
	if err != nil {
		return nil, err
	}
	followers := utils.UniqueSlice(append([]string{report.OwnerId}, grantIds...))
	if len(skip) > 0 {
		followers = utils.SubtractSlice(followers, skip)
	}
	return followers, nil
}

// UpdateReport applies a partial update under the mutation gate. Shared
// reports cannot become pinwallable; system reports cannot become favourites.
func UpdateReport(ctx context.Context, id int, input *UpdateReportInput) (*Report, error) {
	tenancy, ok := utils.GetTenancyFromContext(ctx)
	if !ok {
		return nil, utils.NewValidationError("tenancy context is required")
	}
	report, err := fetchVisibleReport(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := EnsureCanMutateReport(ctx, report); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if input.Title != nil && *input.Title != report.Title {
		var count int64
		db := config.GetDB()
		if err := db.WithContext(ctx).Model(&Report{}).
			Where("customer_id = ? AND tenant_id = ? AND app_id = ?", tenancy.CustomerId, tenancy.TenantId, tenancy.AppId).
			Where("owner_id = ? AND title = ? AND NOT id = ?", report.OwnerId, *input.Title, report.ID).
			Count(&count).Error; err != nil {
			return nil, err
		}
		if count > 0 {
			return nil, utils.NewAlreadyExistsError("duplicate title")
		}
		updates["title"] = *input.Title
	}
	if input.Content != nil {
		updates["content"] = *input.Content
	}
	if input.VisualizationType != nil && *input.VisualizationType != report.VisualizationType {
		if err := validateDatasetHasVisualization(ctx, tenancy, report.DatasetId, *input.VisualizationType); err != nil {
			return nil, err
		}
		updates["visualization_type"] = *input.VisualizationType
	}
	if input.IsFavourite != nil {
		if report.IsSystem && *input.IsFavourite {
			return nil, utils.NewValidationError("system reports cannot be favourited")
		}
		updates["is_favourite"] = *input.IsFavourite
	}
	if input.IsPinwallable != nil {
		if *input.IsPinwallable {
			shared, err := IsReportShared(ctx, tenancy, report.ID)
			if err != nil {
				return nil, err
			}
			if shared {
				return nil, utils.NewValidationError("shared reports cannot be pinwallable")
			}
		}
		updates["is_pinwallable"] = *input.IsPinwallable
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if input.QlikState != nil {
			if err := deleteQlikState(tx, report.QlikStateId); err != nil {
				return err
			}
			state, err := createQlikState(tx, tenancy, input.QlikState)
			if err != nil {
				return err
			}
			updates["qlik_state_id"] = state.ID
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&Report{}).Where("id = ?", report.ID).Updates(updates).Error; err != nil {
			return err
		}
		return createHistory(tx, "UPDATE", report.ID, "reports", report, updates, "report updated")
	})
	if err != nil {
		return nil, err
	}
	return utils.FetchModel[Report](ctx, tenancy, id)
}

// PromoteReportToTemplate marks a report as the canonical system/template
// instance. Stricter than plain admin: requires the template scope. A report
// with live grants must be fully unshared first.
func PromoteReportToTemplate(ctx context.Context, id int) (*Report, error) {
	tenancy, ok := utils.GetTenancyFromContext(ctx)
	if !ok {
		return nil, utils.NewValidationError("tenancy context is required")
	}
	if err := EnsureAdmin(ctx); err != nil {
		return nil, err
	}
	if err := EnsureTemplateScope(ctx); err != nil {
		return nil, err
	}
	report, err := fetchVisibleReport(ctx, id)
	if err != nil {
		return nil, err
	}
	if report.IsSystem {
		return report, nil
	}
	shared, err := IsReportShared(ctx, tenancy, report.ID)
	if err != nil {
		return nil, err
	}
	if shared {
		return nil, utils.NewValidationError("shared reports cannot be promoted; remove all grants first")
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"is_system":    true,
			"template_id":  report.ID,
			"is_favourite": false,
		}
		if err := tx.Model(&Report{}).Where("id = ?", report.ID).Updates(updates).Error; err != nil {
			return err
		}
		return createHistory(tx, "UPDATE", report.ID, "reports", report, updates, "report promoted to template")
	})
	if err != nil {
		return nil, err
	}
	return utils.FetchModel[Report](ctx, tenancy, id)
}

// DeleteReport soft-deletes the report and cascades to its share grants and
// qlik state inside one transaction.
func DeleteReport(ctx context.Context, id int) (*Report, error) {
	report, err := fetchVisibleReport(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := EnsureCanMutateReport(ctx, report); err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := DeleteReportCascade(tx, report); err != nil {
			return err
		}
		return createHistory(tx, "DELETE", report.ID, "reports", report, nil, "report deleted")
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// DeleteReportCascade removes one report and its dependent rows inside the
// caller's transaction. Also used by the dataset visualization cascade.
func DeleteReportCascade(tx *gorm.DB, report *Report) error {
	if err := tx.Where("report_id = ?", report.ID).Delete(&UserReport{}).Error; err != nil {
		return err
	}
	if err := deleteQlikState(tx, report.QlikStateId); err != nil {
		return err
	}
	return tx.Delete(&Report{}, report.ID).Error
}
