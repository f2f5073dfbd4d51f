package models

import (
	"context"
	"time"

	"github.com/githubdatabridge/sih-atellica-qplus-backend-sub000/config"
	"github.com/githubdatabridge/sih-atellica-qplus-backend-sub000/utils"
	"gorm.io/gorm"
)

// History is the append-only audit row written alongside every mutation, in
// the same transaction, so the audit trail can never diverge from the data.
type History struct {
	ID            int       `gorm:"primary_key" json:"id"`
	CustomerId    string    `gorm:"index;size:64;not null" json:"customer_id"`
	TenantId      string    `gorm:"index;size:64;not null" json:"tenant_id"`
	AppId         string    `gorm:"index;size:64;not null" json:"app_id"`
	Action        string    `gorm:"size:20;not null" json:"action"`
	TableName     string    `gorm:"size:64;not null" json:"table_name"`
	ResourceId    int       `gorm:"index;not null" json:"resource_id"`
	ActorId       string    `gorm:"size:64" json:"actor_id"`
	ActorName     string    `gorm:"size:255" json:"actor_name"`
	OldValues     *string   `gorm:"type:text" json:"old_values"`
	NewValues     *string   `gorm:"type:text" json:"new_values"`
	Note          string    `gorm:"size:255" json:"note"`
	CorrelationId string    `gorm:"size:64" json:"correlation_id"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// createHistory appends one audit row inside the caller's transaction. Actor
// identity and correlation id come off the transaction's context; a missing
// identity still records the row rather than failing the mutation.
func createHistory(tx *gorm.DB, action string, resourceId int, tableName string, oldValues interface{}, newValues interface{}, note string) error {
	ctx := tx.Statement.Context

	row := History{
		Action:     action,
		TableName:  tableName,
		ResourceId: resourceId,
		Note:       note,
	}
	if tenancy, ok := utils.GetTenancyFromContext(ctx); ok {
		row.CustomerId = tenancy.CustomerId
		row.TenantId = tenancy.TenantId
		row.AppId = tenancy.AppId
	}
	if callerId, ok := utils.GetCallerIdFromContext(ctx); ok {
		row.ActorId = callerId
	}
	if callerName, ok := utils.GetCallerNameFromContext(ctx); ok {
		row.ActorName = callerName
	}
	if correlationId, ok := utils.GetCorrelationIdFromContext(ctx); ok {
		row.CorrelationId = correlationId
	}

	if oldValues != nil {
		if serialized, err := utils.MarshalToJSON(oldValues); err == nil {
			row.OldValues = &serialized
		}
	}
	if newValues != nil {
		if serialized, err := utils.MarshalToJSON(newValues); err == nil {
			row.NewValues = &serialized
		}
	}

	return tx.Create(&row).Error
}

// SaveShareHistory appends the audit row of one grant mutation, inside the
// same transaction as the grant rows.
func SaveShareHistory(tx *gorm.DB, action string, resourceId int, tableName string, userIds []string) error {
	values := map[string]interface{}{"userIds": userIds}
	return createHistory(tx, action, resourceId, tableName, nil, values, "share grants changed")
}

// SaveDatasetHistory appends the audit row of one catalog mutation.
func SaveDatasetHistory(tx *gorm.DB, datasetId int, before *Dataset, visualizations []string, note string) error {
	values := map[string]interface{}{"visualizations": visualizations}
	return createHistory(tx, "UPDATE", datasetId, "datasets", before, values, note)
}

// HistoryListOptions pages the audit trail of one resource.
type HistoryListOptions struct {
	TableName   string
	ResourceId  int
	CurrentPage int
	PerPage     int
}

// GetHistoryOfResource returns the audit trail of one row, newest first.
// Admin only; history rows are never exposed to regular users.
func GetHistoryOfResource(ctx context.Context, opts *HistoryListOptions) (*Page[History], error) {
	if err := EnsureAdmin(ctx); err != nil {
		return nil, err
	}
	tenancy, ok := utils.GetTenancyFromContext(ctx)
	if !ok {
		return nil, utils.NewValidationError("tenancy context is required")
	}
	if opts == nil || opts.TableName == "" || opts.ResourceId == 0 {
		return nil, utils.NewValidationError("table name and resource id are required")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&History{}).
		Where("customer_id = ? AND tenant_id = ? AND app_id = ?", tenancy.CustomerId, tenancy.TenantId, tenancy.AppId).
		Where("table_name = ? AND resource_id = ?", opts.TableName, opts.ResourceId).
		Order("created_at DESC")

	return FetchPageOffset[History](dbCtx, opts.CurrentPage, opts.PerPage)
}
