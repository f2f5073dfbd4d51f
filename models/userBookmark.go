package models

import (
	"context"
	"time"

	"github.com/githubdatabridge/sih-atellica-qplus-backend-sub000/config"
	"github.com/githubdatabridge/sih-atellica-qplus-backend-sub000/utils"
	"gorm.io/gorm"
)

// UserBookmark is one share grant for a bookmark, mirroring UserReport.
type UserBookmark struct {
	ID         int            `gorm:"primary_key" json:"id"`
	CustomerId string         `gorm:"index;size:64;not null" json:"customer_id"`
	TenantId   string         `gorm:"index;size:64;not null" json:"tenant_id"`
	AppId      string         `gorm:"index;size:64;not null" json:"app_id"`
	BookmarkId int            `gorm:"index;not null;uniqueIndex:idx_user_bookmarks_grant" json:"bookmark_id"`
	AppUserId  string         `gorm:"size:64;not null;uniqueIndex:idx_user_bookmarks_grant" json:"app_user_id"`
	CreatedAt  time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index;uniqueIndex:idx_user_bookmarks_grant" json:"-"`
}

// GetSharedUserIdsOfBookmark returns the live grant holders of one bookmark.
func GetSharedUserIdsOfBookmark(ctx context.Context, tenancy utils.Tenancy, bookmarkId int) ([]string, error) {
	db := config.GetDB()
	var userIds []string
	err := db.WithContext(ctx).Model(&UserBookmark{}).
		Where("customer_id = ? AND tenant_id = ? AND app_id = ?", tenancy.CustomerId, tenancy.TenantId, tenancy.AppId).
		Where("bookmark_id = ?", bookmarkId).
		Pluck("app_user_id", &userIds).Error
	if err != nil {
		return nil, err
	}
	return userIds, nil
}

// IsBookmarkShared reports whether at least one live grant exists.
func IsBookmarkShared(ctx context.Context, tenancy utils.Tenancy, bookmarkId int) (bool, error) {
	count, err := utils.ResourceCountWhere[UserBookmark](ctx, tenancy, "bookmark_id = ?", bookmarkId)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
