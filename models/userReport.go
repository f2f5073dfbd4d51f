package models

import (
	"context"
	"time"

	"github.com/githubdatabridge/sih-atellica-qplus-backend-sub000/config"
	"github.com/githubdatabridge/sih-atellica-qplus-backend-sub000/utils"
	"gorm.io/gorm"
)

// UserReport is one share grant: one user's explicit access to one report.
// The owner never appears as a grant row (redundant with ownership) and
// grants are unique per (report, user).
type UserReport struct {
	ID         int            `gorm:"primary_key" json:"id"`
	CustomerId string         `gorm:"index;size:64;not null" json:"customer_id"`
	TenantId   string         `gorm:"index;size:64;not null" json:"tenant_id"`
	AppId      string         `gorm:"index;size:64;not null" json:"app_id"`
	ReportId   int            `gorm:"index;not null;uniqueIndex:idx_user_reports_grant" json:"report_id"`
	AppUserId  string         `gorm:"size:64;not null;uniqueIndex:idx_user_reports_grant" json:"app_user_id"`
	CreatedAt  time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index;uniqueIndex:idx_user_reports_grant" json:"-"`
}

// GetSharedUserIdsOfReport returns the live grant holders of one report.
func GetSharedUserIdsOfReport(ctx context.Context, tenancy utils.Tenancy, reportId int) ([]string, error) {
	db := config.GetDB()
	var userIds []string
	err := db.WithContext(ctx).Model(&UserReport{}).
		Where("customer_id = ? AND tenant_id = ? AND app_id = ?", tenancy.CustomerId, tenancy.TenantId, tenancy.AppId).
		Where("report_id = ?", reportId).
		Pluck("app_user_id", &userIds).Error
	if err != nil {
		return nil, err
	}
	return userIds, nil
}

// IsReportShared reports whether at least one live grant exists.
func IsReportShared(ctx context.Context, tenancy utils.Tenancy, reportId int) (bool, error) {
	count, err := utils.ResourceCountWhere[UserReport](ctx, tenancy, "report_id = ?", reportId)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
