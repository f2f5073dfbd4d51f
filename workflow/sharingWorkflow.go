package workflow

import (
	"context"

	"github.com/githubdatabridge/sih-atellica-qplus-backend-sub000/models"
	"github.com/githubdatabridge/sih-atellica-qplus-backend-sub000/notify"
	"github.com/githubdatabridge/sih-atellica-qplus-backend-sub000/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// DirectoryValidator answers which of the candidate user ids the tenant
// directory does not know. Satisfied by directory.Service.
type DirectoryValidator interface {
	Validate(tenancy utils.Tenancy, userIds []string) []string
}

// SharingService runs the share/unshare state machine for reports and
// bookmarks: candidate validation against the tenant directory, idempotent
// grant mutation in one transaction, post-commit notification fan-out.
type SharingService struct {
	DB        *gorm.DB
	Logger    *logrus.Logger
	Directory DirectoryValidator
	Notifier  notify.Dispatcher
}

func NewSharingService(db *gorm.DB, logger *logrus.Logger, directory DirectoryValidator, notifier notify.Dispatcher) *SharingService {
	return &SharingService{
		DB:        db,
		Logger:    logger,
		Directory: directory,
		Notifier:  notifier,
	}
}

// validateCandidates applies the rules shared by every grant mutation: a
// non-empty deduplicated list, the owner never a candidate, and every id
// known to the tenant directory. A single invalid id rejects the whole
// operation, listing all offenders.
func (s *SharingService) validateCandidates(tenancy utils.Tenancy, ownerId string, userIds []string) ([]string, error) {
	candidates := utils.UniqueSlice(userIds)
	if len(candidates) == 0 {
		return nil, utils.NewValidationError("at least one user id is required")
	}
	if utils.ContainsSlice(candidates, ownerId) {
		return nil, utils.NewValidationError("the owner cannot be a sharing candidate", ownerId)
	}
	if s.Directory != nil {
		if invalid := s.Directory.Validate(tenancy, candidates); len(invalid) > 0 {
			return nil, utils.NewValidationError("unknown user ids", invalid...)
		}
	}
	return candidates, nil
}

func (s *SharingService) dispatch(ctx context.Context, kind string, tenancy utils.Tenancy, recipients []string, data map[string]interface{}) {
	if len(recipients) == 0 {
		return
	}
	go notify.FireAndForget(s.Notifier, s.Logger, &notify.Notification{
		Type:          kind,
		AppUserIds:    recipients,
		CustomerId:    tenancy.CustomerId,
		TenantId:      tenancy.TenantId,
		AppId:         tenancy.AppId,
		Data:          data,
		CorrelationId: utils.GetOrNewCorrelationId(ctx),
	})
}

// ShareReport grants the candidate users access to the report. Already-shared
// ids are dropped silently so re-sharing is idempotent; only newly granted
// users are notified.
func (s *SharingService) ShareReport(ctx context.Context, reportId int, userIds []string) ([]string, error) {
	tenancy, ok := utils.GetTenancyFromContext(ctx)
	if !ok {
		return nil, utils.NewValidationError("tenancy context is required")
	}
	report, err := models.GetReport(ctx, reportId)
	if err != nil {
		return nil, err
	}
	if err := models.EnsureCanShareReport(ctx, report); err != nil {
		return nil, err
	}
	candidates, err := s.validateCandidates(tenancy, report.OwnerId, userIds)
	if err != nil {
		return nil, err
	}

	existing, err := models.GetSharedUserIdsOfReport(ctx, tenancy, reportId)
	if err != nil {
		return nil, err
	}
	newIds := utils.SubtractSlice(candidates, existing)
	if len(newIds) == 0 {
		return existing, nil
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, userId := range newIds {
			grant := models.UserReport{
				CustomerId: tenancy.CustomerId,
				TenantId:   tenancy.TenantId,
				AppId:      tenancy.AppId,
				ReportId:   reportId,
				AppUserId:  userId,
			}
			if err := tx.Create(&grant).Error; err != nil {
				return err
			}
		}
		return models.SaveShareHistory(tx, "SHARE", reportId, "reports", newIds)
	})
	if err != nil {
		return nil, err
	}

	s.dispatch(ctx, notify.KindReportShared, tenancy, newIds, map[string]interface{}{
		"reportId": reportId,
		"title":    report.Title,
	})
	return append(existing, newIds...), nil
}

// UnshareReport revokes grants. Every candidate must currently hold a grant;
// a report with no grants at all is reported as not_found.
func (s *SharingService) UnshareReport(ctx context.Context, reportId int, userIds []string) ([]string, error) {
	tenancy, ok := utils.GetTenancyFromContext(ctx)
	if !ok {
		return nil, utils.NewValidationError("tenancy context is required")
	}
	report, err := models.GetReport(ctx, reportId)
	if err != nil {
		return nil, err
	}
	candidates := utils.UniqueSlice(userIds)
	if len(candidates) == 0 {
		return nil, utils.NewValidationError("at least one user id is required")
	}
	if err := models.EnsureCanUnshareReport(ctx, report, candidates); err != nil {
		return nil, err
	}

	existing, err := models.GetSharedUserIdsOfReport(ctx, tenancy, reportId)
	if err != nil {
		return nil, err
	}
	if len(existing) == 0 {
		return nil, utils.NewNotFoundError("report has no share grants")
	}
	if missing := utils.SubtractSlice(candidates, existing); len(missing) > 0 {
		return nil, utils.NewValidationError("users do not hold a share grant", missing...)
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("report_id = ? AND app_user_id IN ?", reportId, candidates).
			Where("customer_id = ? AND tenant_id = ? AND app_id = ?", tenancy.CustomerId, tenancy.TenantId, tenancy.AppId).
			Delete(&models.UserReport{}).Error; err != nil {
			return err
		}
		return models.SaveShareHistory(tx, "UNSHARE", reportId, "reports", candidates)
	})
	if err != nil {
		return nil, err
	}

	s.dispatch(ctx, notify.KindReportUnshared, tenancy, candidates, map[string]interface{}{
		"reportId": reportId,
		"title":    report.Title,
	})
	return utils.SubtractSlice(existing, candidates), nil
}

// ShareBookmark mirrors ShareReport for bookmarks; only the owner may share.
func (s *SharingService) ShareBookmark(ctx context.Context, bookmarkId int, userIds []string) ([]string, error) {
	tenancy, ok := utils.GetTenancyFromContext(ctx)
	if !ok {
		return nil, utils.NewValidationError("tenancy context is required")
	}
	bookmark, err := models.GetBookmark(ctx, bookmarkId)
	if err != nil {
		return nil, err
	}
	if err := models.EnsureCanMutateBookmark(ctx, bookmark); err != nil {
		return nil, err
	}
	candidates, err := s.validateCandidates(tenancy, bookmark.OwnerId, userIds)
	if err != nil {
		return nil, err
	}

	existing, err := models.GetSharedUserIdsOfBookmark(ctx, tenancy, bookmarkId)
	if err != nil {
		return nil, err
	}
	newIds := utils.SubtractSlice(candidates, existing)
	if len(newIds) == 0 {
		return existing, nil
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, userId := range newIds {
			grant := models.UserBookmark{
				CustomerId: tenancy.CustomerId,
				TenantId:   tenancy.TenantId,
				AppId:      tenancy.AppId,
				BookmarkId: bookmarkId,
				AppUserId:  userId,
			}
			if err := tx.Create(&grant).Error; err != nil {
				return err
			}
		}
		return models.SaveShareHistory(tx, "SHARE", bookmarkId, "bookmarks", newIds)
	})
	if err != nil {
		return nil, err
	}

	s.dispatch(ctx, notify.KindBookmarkShared, tenancy, newIds, map[string]interface{}{
		"bookmarkId": bookmarkId,
		"name":       bookmark.Name,
	})
	return append(existing, newIds...), nil
}

// UnshareBookmark mirrors UnshareReport; a non-owner may remove exactly
// themselves.
func (s *SharingService) UnshareBookmark(ctx context.Context, bookmarkId int, userIds []string) ([]string, error) {
	tenancy, ok := utils.GetTenancyFromContext(ctx)
	if !ok {
		return nil, utils.NewValidationError("tenancy context is required")
	}
	bookmark, err := models.GetBookmark(ctx, bookmarkId)
	if err != nil {
		return nil, err
	}
	candidates := utils.UniqueSlice(userIds)
	if len(candidates) == 0 {
		return nil, utils.NewValidationError("at least one user id is required")
	}
	if err := models.EnsureCanUnshareBookmark(ctx, bookmark, candidates); err != nil {
		return nil, err
	}

	existing, err := models.GetSharedUserIdsOfBookmark(ctx, tenancy, bookmarkId)
	if err != nil {
		return nil, err
	}
	if len(existing) == 0 {
		return nil, utils.NewNotFoundError("bookmark has no share grants")
	}
	if missing := utils.SubtractSlice(candidates, existing); len(missing) > 0 {
		return nil, utils.NewValidationError("users do not hold a share grant", missing...)
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("bookmark_id = ? AND app_user_id IN ?", bookmarkId, candidates).
			Where("customer_id = ? AND tenant_id = ? AND app_id = ?", tenancy.CustomerId, tenancy.TenantId, tenancy.AppId).
			Delete(&models.UserBookmark{}).Error; err != nil {
			return err
		}
		return models.SaveShareHistory(tx, "UNSHARE", bookmarkId, "bookmarks", candidates)
	})
	if err != nil {
		return nil, err
	}

	s.dispatch(ctx, notify.KindBookmarkUnshared, tenancy, candidates, map[string]interface{}{
		"bookmarkId": bookmarkId,
		"name":       bookmark.Name,
	})
	return utils.SubtractSlice(existing, candidates), nil
}
