package models

import (
	"context"

	"github.com/githubdatabridge/sih-atellica-qplus-backend-sub000/utils"
)

// Authorization gate: boolean/throwing checks applied before any mutation.
// Read-visibility failures are surfaced as not_found by the fetch paths so an
// unauthorized caller cannot confirm an entity exists; the forbidden kind is
// reserved for entities the caller can already see.

func EnsureAdmin(ctx context.Context) error {
	if !utils.IsAdminFromContext(ctx) {
		return utils.NewForbiddenError("admin role is required")
	}
	return nil
}

// EnsureTemplateScope is the stricter check gating system/template reports;
// plain admin is not enough.
func EnsureTemplateScope(ctx context.Context) error {
	if !utils.HasScopeInContext(ctx, utils.ScopeTemplatesManage) {
		return utils.NewForbiddenError("scope " + utils.ScopeTemplatesManage + " is required")
	}
	return nil
}

// EnsureCanMutateReport allows the owner or an admin; the canonical template
// instance additionally requires the template scope, even for admins.
func EnsureCanMutateReport(ctx context.Context, report *Report) error {
	callerId, ok := utils.GetCallerIdFromContext(ctx)
	if !ok || callerId == "" {
		return utils.NewForbiddenError("caller identity is required")
	}
	if report.OwnerId != callerId && !utils.IsAdminFromContext(ctx) {
		return utils.NewForbiddenError("only the owner or an admin may modify this report")
	}
	if report.TemplateId != nil {
		if err := EnsureTemplateScope(ctx); err != nil {
			return err
		}
	}
	return nil
}

// EnsureCanShareReport allows the owner or an admin to initiate sharing.
// System reports never enter the sharing state machine, and a shared report
// can never be pinwallable, so a pinwallable one must be unpinned first.
func EnsureCanShareReport(ctx context.Context, report *Report) error {
	if report.IsSystem {
		return utils.NewValidationError("system reports cannot be shared")
	}
	if report.IsPinwallable {
		return utils.NewValidationError("a pinwallable report cannot be shared; unpin it first")
	}
	callerId, ok := utils.GetCallerIdFromContext(ctx)
	if !ok || callerId == "" {
		return utils.NewForbiddenError("caller identity is required")
	}
	if report.OwnerId != callerId && !utils.IsAdminFromContext(ctx) {
		return utils.NewForbiddenError("only the owner or an admin may share this report")
	}
	return nil
}

// EnsureCanUnshareReport allows owner/admin; a non-owner may unshare exactly
// themselves (single-candidate list containing only their own id).
func EnsureCanUnshareReport(ctx context.Context, report *Report, candidateIds []string) error {
	callerId, ok := utils.GetCallerIdFromContext(ctx)
	if !ok || callerId == "" {
		return utils.NewForbiddenError("caller identity is required")
	}
	if report.OwnerId == callerId || utils.IsAdminFromContext(ctx) {
		return nil
	}
	if len(candidateIds) == 1 && candidateIds[0] == callerId {
		return nil
	}
	return utils.NewForbiddenError("only the owner or an admin may unshare other users")
}

// EnsureCanMutateBookmark allows only the owner; bookmarks have no admin override.
func EnsureCanMutateBookmark(ctx context.Context, bookmark *Bookmark) error {
	callerId, ok := utils.GetCallerIdFromContext(ctx)
	if !ok || callerId == "" {
		return utils.NewForbiddenError("caller identity is required")
	}
	if bookmark.OwnerId != callerId {
		return utils.NewForbiddenError("only the owner may modify this bookmark")
	}
	return nil
}

// EnsureCanUnshareBookmark mirrors the report rule without the admin path.
func EnsureCanUnshareBookmark(ctx context.Context, bookmark *Bookmark, candidateIds []string) error {
	callerId, ok := utils.GetCallerIdFromContext(ctx)
	if !ok || callerId == "" {
		return utils.NewForbiddenError("caller identity is required")
	}
	if bookmark.OwnerId == callerId {
		return nil
	}
	if len(candidateIds) == 1 && candidateIds[0] == callerId {
		return nil
	}
	return utils.NewForbiddenError("only the owner may unshare other users")
}
