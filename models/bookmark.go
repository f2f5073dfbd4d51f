package models

import (
	"context"
	"time"

	"github.com/githubdatabridge/sih-atellica-qplus-backend-sub000/config"
	"github.com/githubdatabridge/sih-atellica-qplus-backend-sub000/utils"
	"gorm.io/gorm"
)

// Bookmark bundles saved selections across one or more Qlik apps. IsPublic is
// derived from its items: true iff the items carry free-form selections
// rather than Qlik bookmark references. Items are homogeneous, never mixed,
// and a bookmark that is private can never become public on update.
type Bookmark struct {
	ID         int            `gorm:"primary_key" json:"id"`
	CustomerId string         `gorm:"index;size:64;not null" json:"customer_id"`
	TenantId   string         `gorm:"index;size:64;not null" json:"tenant_id"`
	AppId      string         `gorm:"index;size:64;not null" json:"app_id"`
	OwnerId    string         `gorm:"index;size:64;not null" json:"owner_id"`
	Name       string         `gorm:"size:255;not null" json:"name"`
	IsPublic   bool           `gorm:"not null;default:false" json:"is_public"`
	Items      []BookmarkItem `gorm:"foreignKey:BookmarkId" json:"items"`
	CreatedAt  time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

// BookmarkItem binds one Qlik app to one saved state.
type BookmarkItem struct {
	ID          int            `gorm:"primary_key" json:"id"`
	CustomerId  string         `gorm:"index;size:64;not null" json:"customer_id"`
	TenantId    string         `gorm:"index;size:64;not null" json:"tenant_id"`
	AppId       string         `gorm:"index;size:64;not null" json:"app_id"`
	BookmarkId  int            `gorm:"index;not null" json:"bookmark_id"`
	QlikAppId   string         `gorm:"size:64;not null" json:"qlik_app_id"`
	QlikStateId int            `gorm:"not null" json:"qlik_state_id"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

type NewBookmarkItem struct {
	QlikAppId string        `json:"qlik_app_id" validate:"required"`
	QlikState *NewQlikState `json:"qlik_state" validate:"required"`
}

type NewBookmark struct {
	Name  string            `json:"name" validate:"required"`
	Items []NewBookmarkItem `json:"items" validate:"required,min=1,dive"`
}

type UpdateBookmarkInput struct {
	Name  *string           `json:"name"`
	Items []NewBookmarkItem `json:"items"`
}

// BookmarkListOptions mirrors ReportListOptions without the template mode;
// bookmarks have no broadcast visibility.
type BookmarkListOptions struct {
	WithPersonal bool
	WithShared   bool
	Filters      []FilterCondition
	Search       []FilterCondition
	OrderBy      *OrderBy
	CurrentPage  int
	PerPage      int
}

var bookmarkQuerySpec = QuerySpec{
	Columns: map[string]string{
		"name":      "name",
		"isPublic":  "is_public",
		"createdAt": "created_at",
		"updatedAt": "updated_at",
	},
	Filterable: map[string][]FilterOperator{
		"name":      {FilterOpEq, FilterOpNot, FilterOpLike},
		"isPublic":  {FilterOpEq, FilterOpNot},
		"createdAt": {FilterOpEq, FilterOpNot, FilterOpLt, FilterOpGt, FilterOpLte, FilterOpGte},
		"updatedAt": {FilterOpEq, FilterOpNot, FilterOpLt, FilterOpGt, FilterOpLte, FilterOpGte},
	},
	Searchable: map[string]bool{
		"name": true,
	},
	Orderable: map[string]bool{
		"name":      true,
		"createdAt": true,
		"updatedAt": true,
	},
}

// validateItemHomogeneity enforces the all-private or all-public invariant
// and reports the resulting public flag.
func validateItemHomogeneity(items []NewBookmarkItem) (bool, error) {
	isPublic := false
	for i, item := range items {
		if item.QlikState == nil {
			return false, utils.NewValidationError("bookmark items require a qlik state")
		}
		if err := item.QlikState.validate(); err != nil {
			return false, err
		}
		public := item.QlikState.IsPublic()
		if i == 0 {
			isPublic = public
			continue
		}
		if public != isPublic {
			return false, utils.NewValidationError("bookmark items must be homogeneously public or private")
		}
	}
	return isPublic, nil
}

// CreateBookmark inserts a bookmark, its items and their states in one
// transaction. Any authenticated user may create; names are unique per owner.
func CreateBookmark(ctx context.Context, input *NewBookmark) (*Bookmark, error) {
	if err := utils.ValidateStruct(input); err != nil {
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

	isPublic, err := validateItemHomogeneity(input.Items)
	if err != nil {
		return nil, err
	}
	if err := validateUniqueBookmarkName(ctx, tenancy, callerId, input.Name, 0); err != nil {
		return nil, err
	}

	bookmark := Bookmark{
		CustomerId: tenancy.CustomerId,
		TenantId:   tenancy.TenantId,
		AppId:      tenancy.AppId,
		OwnerId:    callerId,
		Name:       input.Name,
		IsPublic:   isPublic,
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&bookmark).Error; err != nil {
			return err
		}
		if err := createBookmarkItems(tx, tenancy, &bookmark, input.Items); err != nil {
			return err
		}
		return createHistory(tx, "CREATE", bookmark.ID, "bookmarks", nil, &bookmark, "bookmark created")
	})
	if err != nil {
		return nil, err
	}
	return GetBookmark(ctx, bookmark.ID)
}

func createBookmarkItems(tx *gorm.DB, tenancy utils.Tenancy, bookmark *Bookmark, inputs []NewBookmarkItem) error {
	for _, input := range inputs {
		state, err := createQlikState(tx, tenancy, input.QlikState)
		if err != nil {
			return err
		}
		item := BookmarkItem{
			CustomerId:  tenancy.CustomerId,
			TenantId:    tenancy.TenantId,
			AppId:       tenancy.AppId,
			BookmarkId:  bookmark.ID,
			QlikAppId:   input.QlikAppId,
			QlikStateId: state.ID,
		}
		if err := tx.Create(&item).Error; err != nil {
			return err
		}
	}
	return nil
}

func validateUniqueBookmarkName(ctx context.Context, tenancy utils.Tenancy, ownerId string, name string, exceptId int) error {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&Bookmark{}).
		Where("customer_id = ? AND tenant_id = ? AND app_id = ?", tenancy.CustomerId, tenancy.TenantId, tenancy.AppId).
		Where("owner_id = ? AND name = ?", ownerId, name)
	if exceptId != 0 {
		dbCtx = dbCtx.Where("NOT id = ?", exceptId)
	}
	var count int64
	if err := dbCtx.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return utils.NewAlreadyExistsError("duplicate name")
	}
	return nil
}

// GetBookmark returns the bookmark with its items iff the caller owns it or
// holds a grant; anything else is not_found.
func GetBookmark(ctx context.Context, id int) (*Bookmark, error) {
	return fetchVisibleBookmark(ctx, id)
}

func fetchVisibleBookmark(ctx context.Context, id int) (*Bookmark, error) {
	tenancy, ok := utils.GetTenancyFromContext(ctx)
	if !ok {
		return nil, utils.NewValidationError("tenancy context is required")
	}
	callerId, ok := utils.GetCallerIdFromContext(ctx)
	if !ok || callerId == "" {
		return nil, utils.NewValidationError("caller identity is required")
	}

	db := config.GetDB()
	shared := db.Model(&UserBookmark{}).Select("bookmark_id").
		Where("customer_id = ? AND tenant_id = ? AND app_id = ?", tenancy.CustomerId, tenancy.TenantId, tenancy.AppId).
		Where("app_user_id = ?", callerId)

	var bookmark Bookmark
	err := db.WithContext(ctx).
		Preload("Items").
		Where("customer_id = ? AND tenant_id = ? AND app_id = ?", tenancy.CustomerId, tenancy.TenantId, tenancy.AppId).
		Where("id = ?", id).
		Where(db.Where("owner_id = ?", callerId).Or("id IN (?)", shared)).
		First(&bookmark).Error
	if err != nil {
		return nil, utils.NewNotFoundError("bookmark not found")
	}
	return &bookmark, nil
}

// GetAllBookmarks composes one filtered/ordered/paginated query across the
// personal and shared visibility modes. All modes false returns an empty page.
func GetAllBookmarks(ctx context.Context, opts *BookmarkListOptions) (*Page[Bookmark], error) {
	if opts == nil {
		opts = &BookmarkListOptions{}
	}
	if !opts.WithPersonal && !opts.WithShared {
		return EmptyPage[Bookmark](opts.CurrentPage, opts.PerPage), nil
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
	dbCtx := db.WithContext(ctx).Model(&Bookmark{}).Preload("Items").
		Where("customer_id = ? AND tenant_id = ? AND app_id = ?", tenancy.CustomerId, tenancy.TenantId, tenancy.AppId)

	var visibility *gorm.DB
	if opts.WithPersonal {
		visibility = db.Where("owner_id = ?", callerId)
	}
	if opts.WithShared {
		shared := db.Model(&UserBookmark{}).Select("bookmark_id").
			Where("customer_id = ? AND tenant_id = ? AND app_id = ?", tenancy.CustomerId, tenancy.TenantId, tenancy.AppId).
			Where("app_user_id = ?", callerId)
		cond := db.Where("bookmarks.id IN (?)", shared)
		if visibility == nil {
			visibility = cond
		} else {
			visibility = visibility.Or(cond)
		}
	}
	dbCtx = dbCtx.Where(visibility)

	dbCtx, err := bookmarkQuerySpec.ApplyFilters(dbCtx, opts.Filters)
	if err != nil {
		return nil, err
	}
	dbCtx, err = bookmarkQuerySpec.ApplySearch(dbCtx, opts.Search)
	if err != nil {
		return nil, err
	}
	dbCtx, err = bookmarkQuerySpec.ApplyOrder(dbCtx, opts.OrderBy)
	if err != nil {
		return nil, err
	}

	return FetchPageOffset[Bookmark](dbCtx, opts.CurrentPage, opts.PerPage)
}

// GetAllFollowersOfBookmark resolves the owner plus every live grant holder,
// minus the optional skip list.
func GetAllFollowersOfBookmark(ctx context.Context, bookmarkId int, skip ...string) ([]string, error) {
	tenancy, ok := utils.GetTenancyFromContext(ctx)
	if !ok {
		return nil, utils.NewValidationError("tenancy context is required")
	}
	bookmark, err := utils.FetchModel[Bookmark](ctx, tenancy, bookmarkId)
	if err != nil {
		return nil, utils.NewNotFoundError("bookmark not found")
	}
	grantIds, err := GetSharedUserIdsOfBookmark(ctx, tenancy, bookmarkId)
	if err != nil {
		return nil, err
	}
	followers := utils.UniqueSlice(append([]string{bookmark.OwnerId}, grantIds...))
	if len(skip) > 0 {
		followers = utils.SubtractSlice(followers, skip)
	}
	return followers, nil
}

// UpdateBookmark applies a partial update. Replacing the items replaces
// their states too; a private bookmark never becomes public again.
func UpdateBookmark(ctx context.Context, id int, input *UpdateBookmarkInput) (*Bookmark, error) {
	tenancy, ok := utils.GetTenancyFromContext(ctx)
	if !ok {
		return nil, utils.NewValidationError("tenancy context is required")
	}
	bookmark, err := fetchVisibleBookmark(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := EnsureCanMutateBookmark(ctx, bookmark); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if input.Name != nil && *input.Name != bookmark.Name {
		if err := validateUniqueBookmarkName(ctx, tenancy, bookmark.OwnerId, *input.Name, bookmark.ID); err != nil {
			return nil, err
		}
		updates["name"] = *input.Name
	}

	var newItems []NewBookmarkItem
	if input.Items != nil {
		if len(input.Items) == 0 {
			return nil, utils.NewValidationError("a bookmark requires at least one item")
		}
		isPublic, err := validateItemHomogeneity(input.Items)
		if err != nil {
			return nil, err
		}
		if isPublic && !bookmark.IsPublic {
			return nil, utils.NewValidationError("a private bookmark cannot become public")
		}
		updates["is_public"] = isPublic
		newItems = input.Items
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if newItems != nil {
			if err := deleteBookmarkItems(tx, bookmark); err != nil {
				return err
			}
			if err := createBookmarkItems(tx, tenancy, bookmark, newItems); err != nil {
				return err
			}
		}
		if len(updates) > 0 {
			if err := tx.Model(&Bookmark{}).Where("id = ?", bookmark.ID).Updates(updates).Error; err != nil {
				return err
			}
		}
		return createHistory(tx, "UPDATE", bookmark.ID, "bookmarks", bookmark, updates, "bookmark updated")
	})
	if err != nil {
		return nil, err
	}
	return GetBookmark(ctx, id)
}

// DeleteBookmark soft-deletes the bookmark, its items, their states and the
// share grants in one transaction.
func DeleteBookmark(ctx context.Context, id int) (*Bookmark, error) {
	bookmark, err := fetchVisibleBookmark(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := EnsureCanMutateBookmark(ctx, bookmark); err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := deleteBookmarkItems(tx, bookmark); err != nil {
			return err
		}
		if err := tx.Where("bookmark_id = ?", bookmark.ID).Delete(&UserBookmark{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&Bookmark{}, bookmark.ID).Error; err != nil {
			return err
		}
		return createHistory(tx, "DELETE", bookmark.ID, "bookmarks", bookmark, nil, "bookmark deleted")
	})
	if err != nil {
		return nil, err
	}
	return bookmark, nil
}

func deleteBookmarkItems(tx *gorm.DB, bookmark *Bookmark) error {
	var items []BookmarkItem
	if err := tx.Where("bookmark_id = ?", bookmark.ID).Find(&items).Error; err != nil {
		return err
	}
	for _, item := range items {
		stateId := item.QlikStateId
		if err := deleteQlikState(tx, &stateId); err != nil {
			return err
		}
	}
	return tx.Where("bookmark_id = ?", bookmark.ID).Delete(&BookmarkItem{}).Error
}
