package models_test

import (
	"testing"

	"github.com/githubdatabridge/sih-atellica-qplus-backend-sub000/config"
	"github.com/githubdatabridge/sih-atellica-qplus-backend-sub000/models"
	"github.com/githubdatabridge/sih-atellica-qplus-backend-sub000/utils"
)

func privateItem(qsBookmarkId string) models.NewBookmarkItem {
	return models.NewBookmarkItem{
		QlikAppId: "qlik-app-1",
		QlikState: &models.NewQlikState{QsBookmarkId: &qsBookmarkId},
	}
}

func publicItem(selections string) models.NewBookmarkItem {
	return models.NewBookmarkItem{
		QlikAppId: "qlik-app-1",
		QlikState: &models.NewQlikState{Selections: &selections},
	}
}

func TestCreateBookmark_HomogeneityAndDerivedPublic(t *testing.T) {
	setupTestDB(t)
	ctx := identityContext("alice", "")

	if _, err := models.CreateBookmark(ctx, &models.NewBookmark{
		Name:  "Mixed",
		Items: []models.NewBookmarkItem{privateItem("bm-1"), publicItem(`{"Region":["EU"]}`)},
	}); !utils.IsValidation(err) {
		t.Fatalf("expected validation for mixed items, got %v", err)
	}

	private, err := models.CreateBookmark(ctx, &models.NewBookmark{
		Name:  "Private Set",
		Items: []models.NewBookmarkItem{privateItem("bm-1"), privateItem("bm-2")},
	})
	if err != nil {
		t.Fatalf("CreateBookmark private: %v", err)
	}
	if private.IsPublic {
		t.Fatalf("private bookmark flagged public")
	}
	if len(private.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(private.Items))
	}

	public, err := models.CreateBookmark(ctx, &models.NewBookmark{
		Name:  "Public Set",
		Items: []models.NewBookmarkItem{publicItem(`{"Region":["EU"]}`)},
	})
	if err != nil {
		t.Fatalf("CreateBookmark public: %v", err)
	}
	if !public.IsPublic {
		t.Fatalf("public bookmark not flagged public")
	}

	if _, err := models.CreateBookmark(ctx, &models.NewBookmark{
		Name:  "Private Set",
		Items: []models.NewBookmarkItem{privateItem("bm-3")},
	}); !utils.IsAlreadyExists(err) {
		t.Fatalf("expected already_exists for duplicate name, got %v", err)
	}
}

func TestUpdateBookmark_PublicIsOneWay(t *testing.T) {
	setupTestDB(t)
	ctx := identityContext("alice", "")

	public, err := models.CreateBookmark(ctx, &models.NewBookmark{
		Name:  "Toggle",
		Items: []models.NewBookmarkItem{publicItem(`{"Region":["EU"]}`)},
	})
	if err != nil {
		t.Fatalf("CreateBookmark: %v", err)
	}

	// public -> private is allowed
	updated, err := models.UpdateBookmark(ctx, public.ID, &models.UpdateBookmarkInput{
		Items: []models.NewBookmarkItem{privateItem("bm-1")},
	})
	if err != nil {
		t.Fatalf("UpdateBookmark to private: %v", err)
	}
	if updated.IsPublic {
		t.Fatalf("bookmark still public after private update")
	}

	// private -> public is rejected
	if _, err := models.UpdateBookmark(ctx, public.ID, &models.UpdateBookmarkInput{
		Items: []models.NewBookmarkItem{publicItem(`{"Region":["US"]}`)},
	}); !utils.IsValidation(err) {
		t.Fatalf("expected validation for private->public, got %v", err)
	}
}

func TestBookmark_VisibilityAndOwnerOnlyMutation(t *testing.T) {
	setupTestDB(t)
	owner := identityContext("alice", "")
	bookmark, err := models.CreateBookmark(owner, &models.NewBookmark{
		Name:  "Shared Set",
		Items: []models.NewBookmarkItem{privateItem("bm-1")},
	})
	if err != nil {
		t.Fatalf("CreateBookmark: %v", err)
	}

	db := config.GetDB()
	grant := models.UserBookmark{
		CustomerId: testCustomerId,
		TenantId:   testTenantId,
		AppId:      testAppId,
		BookmarkId: bookmark.ID,
		AppUserId:  "bob",
	}
	if err := db.WithContext(owner).Create(&grant).Error; err != nil {
		t.Fatalf("create grant: %v", err)
	}

	if _, err := models.GetBookmark(identityContext("bob", ""), bookmark.ID); err != nil {
		t.Fatalf("grantee should see the bookmark: %v", err)
	}
	if _, err := models.GetBookmark(identityContext("carol", ""), bookmark.ID); !utils.IsNotFound(err) {
		t.Fatalf("stranger should get not_found, got %v", err)
	}
	// admins have no special access to bookmarks
	if _, err := models.GetBookmark(identityContext("dave", utils.RoleAdmin), bookmark.ID); !utils.IsNotFound(err) {
		t.Fatalf("admin should get not_found for foreign bookmark, got %v", err)
	}

	name := "Renamed"
	if _, err := models.UpdateBookmark(identityContext("bob", ""), bookmark.ID, &models.UpdateBookmarkInput{
		Name: &name,
	}); !utils.IsForbidden(err) {
		t.Fatalf("expected forbidden for grantee update, got %v", err)
	}
}

func TestGetAllBookmarks_Modes(t *testing.T) {
	setupTestDB(t)
	alice := identityContext("alice", "")
	bob := identityContext("bob", "")

	mine, err := models.CreateBookmark(bob, &models.NewBookmark{
		Name:  "Mine",
		Items: []models.NewBookmarkItem{privateItem("bm-1")},
	})
	if err != nil {
		t.Fatalf("CreateBookmark mine: %v", err)
	}
	foreign, err := models.CreateBookmark(alice, &models.NewBookmark{
		Name:  "Alice Shared",
		Items: []models.NewBookmarkItem{privateItem("bm-2")},
	})
	if err != nil {
		t.Fatalf("CreateBookmark foreign: %v", err)
	}
	db := config.GetDB()
	grant := models.UserBookmark{
		CustomerId: testCustomerId,
		TenantId:   testTenantId,
		AppId:      testAppId,
		BookmarkId: foreign.ID,
		AppUserId:  "bob",
	}
	if err := db.WithContext(alice).Create(&grant).Error; err != nil {
		t.Fatalf("create grant: %v", err)
	}

	page, err := models.GetAllBookmarks(bob, &models.BookmarkListOptions{WithPersonal: true})
	if err != nil {
		t.Fatalf("GetAllBookmarks personal: %v", err)
	}
	if len(page.Data) != 1 || page.Data[0].ID != mine.ID {
		t.Fatalf("personal mode wrong contents")
	}

	page, err = models.GetAllBookmarks(bob, &models.BookmarkListOptions{WithPersonal: true, WithShared: true})
	if err != nil {
		t.Fatalf("GetAllBookmarks combined: %v", err)
	}
	if page.Pagination.Total != 2 {
		t.Fatalf("expected 2 bookmarks, got %d", page.Pagination.Total)
	}

	page, err = models.GetAllBookmarks(bob, &models.BookmarkListOptions{})
	if err != nil {
		t.Fatalf("GetAllBookmarks no modes: %v", err)
	}
	if len(page.Data) != 0 || page.Pagination.Total != 0 {
		t.Fatalf("expected zeroed page, got %+v", page.Pagination)
	}
}

func TestDeleteBookmark_CascadesItemsAndGrants(t *testing.T) {
	setupTestDB(t)
	owner := identityContext("alice", "")
	bookmark, err := models.CreateBookmark(owner, &models.NewBookmark{
		Name:  "Doomed",
		Items: []models.NewBookmarkItem{privateItem("bm-1"), privateItem("bm-2")},
	})
	if err != nil {
		t.Fatalf("CreateBookmark: %v", err)
	}

	if _, err := models.DeleteBookmark(owner, bookmark.ID); err != nil {
		t.Fatalf("DeleteBookmark: %v", err)
	}
	if _, err := models.GetBookmark(owner, bookmark.ID); !utils.IsNotFound(err) {
		t.Fatalf("expected not_found after delete, got %v", err)
	}

	db := config.GetDB()
	var itemCount int64
	if err := db.WithContext(owner).Model(&models.BookmarkItem{}).
		Where("bookmark_id = ?", bookmark.ID).Count(&itemCount).Error; err != nil {
		t.Fatalf("count items: %v", err)
	}
	if itemCount != 0 {
		t.Fatalf("expected items removed, got %d", itemCount)
	}
}
