package utils

import (
	"context"

	"github.com/githubdatabridge/sih-atellica-qplus-backend-sub000/appctx"
	"github.com/google/uuid"
)

const (
	// RoleAdmin is the activeRole value that grants tenant-level administration.
	RoleAdmin = "admin"

	// ScopeTemplatesManage gates creation and mutation of system/template
	// reports; it is a stricter check than plain admin.
	ScopeTemplatesManage = "templates:manage"
)

// Tenancy is the customer/tenant/app triple scoping every query.
type Tenancy struct {
	CustomerId string
	TenantId   string
	AppId      string
}

func GetCallerIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, appctx.ContextKeyCallerId)
}

func GetCallerNameFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, appctx.ContextKeyCallerName)
}

func GetCustomerIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, appctx.ContextKeyCustomerId)
}

func GetTenantIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, appctx.ContextKeyTenantId)
}

func GetAppIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, appctx.ContextKeyAppId)
}

func GetActiveRoleFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, appctx.ContextKeyActiveRole)
}

func GetRolesFromContext(ctx context.Context) ([]string, bool) {
	return appctx.GetStringSlice(ctx, appctx.ContextKeyRoles)
}

func GetScopesFromContext(ctx context.Context) ([]string, bool) {
	return appctx.GetStringSlice(ctx, appctx.ContextKeyScopes)
}

func GetCorrelationIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, appctx.ContextKeyCorrelationId)
}

func SetCallerIdInContext(ctx context.Context, callerId string) context.Context {
	return appctx.Set(ctx, appctx.ContextKeyCallerId, callerId)
}

func SetCallerNameInContext(ctx context.Context, callerName string) context.Context {
	return appctx.Set(ctx, appctx.ContextKeyCallerName, callerName)
}

func SetCustomerIdInContext(ctx context.Context, customerId string) context.Context {
	return appctx.Set(ctx, appctx.ContextKeyCustomerId, customerId)
}

func SetTenantIdInContext(ctx context.Context, tenantId string) context.Context {
	return appctx.Set(ctx, appctx.ContextKeyTenantId, tenantId)
}

func SetAppIdInContext(ctx context.Context, appId string) context.Context {
	return appctx.Set(ctx, appctx.ContextKeyAppId, appId)
}

func SetActiveRoleInContext(ctx context.Context, role string) context.Context {
	return appctx.Set(ctx, appctx.ContextKeyActiveRole, role)
}

func SetRolesInContext(ctx context.Context, roles []string) context.Context {
	return appctx.Set(ctx, appctx.ContextKeyRoles, roles)
}

func SetScopesInContext(ctx context.Context, scopes []string) context.Context {
	return appctx.Set(ctx, appctx.ContextKeyScopes, scopes)
}

func SetCorrelationIdInContext(ctx context.Context, correlationId string) context.Context {
	return appctx.Set(ctx, appctx.ContextKeyCorrelationId, correlationId)
}

func SetSkipTenantScopeInContext(ctx context.Context, skip bool) context.Context {
	return appctx.Set(ctx, appctx.ContextKeySkipTenantScope, skip)
}

// GetTenancyFromContext returns the full triple; ok is false when any part is missing.
func GetTenancyFromContext(ctx context.Context) (Tenancy, bool) {
	customerId, ok := GetCustomerIdFromContext(ctx)
	if !ok || customerId == "" {
		return Tenancy{}, false
	}
	tenantId, ok := GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return Tenancy{}, false
	}
	appId, ok := GetAppIdFromContext(ctx)
	if !ok || appId == "" {
		return Tenancy{}, false
	}
	return Tenancy{CustomerId: customerId, TenantId: tenantId, AppId: appId}, true
}

// GetOrNewCorrelationId returns the request's correlation id, minting one
// when the caller arrived without it so downstream events stay traceable.
func GetOrNewCorrelationId(ctx context.Context) string {
	if id, ok := GetCorrelationIdFromContext(ctx); ok && id != "" {
		return id
	}
	return uuid.NewString()
}

func IsAdminFromContext(ctx context.Context) bool {
	role, ok := GetActiveRoleFromContext(ctx)
	return ok && role == RoleAdmin
}

func HasScopeInContext(ctx context.Context, scope string) bool {
	scopes, ok := GetScopesFromContext(ctx)
	if !ok {
		return false
	}
	for _, s := range scopes {
		if s == scope {
			return true
		}
	}
	return false
}
