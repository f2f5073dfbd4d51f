package utils

import (
	"context"
	"reflect"

	"github.com/githubdatabridge/sih-atellica-qplus-backend-sub000/config"
)

// check if id exists within the tenancy scope, return RecordNotFound error
func ValidateResourceId[T any](ctx context.Context, tenancy Tenancy, id interface{}) error {

	count, err := ResourceCountWhere[T](ctx, tenancy, "id = ?", id)
	if err != nil {
		return err
	}
	if count <= 0 {
		return ErrorRecordNotFound
	}

	return nil
}

// ValidateUnique rejects a duplicate column value within the tenancy scope;
// exceptId excludes the row being updated.
func ValidateUnique[T any](ctx context.Context, tenancy Tenancy, column string, value interface{}, exceptId interface{}) error {
	var count int64
	var err error
	if exceptId == nil || reflect.ValueOf(exceptId).IsZero() {
		count, err = ResourceCountWhere[T](ctx, tenancy, column+" = ?", value)
	} else {
		count, err = ResourceCountWhere[T](ctx, tenancy, column+" = ? AND NOT id = ?", value, exceptId)
	}

	if err != nil {
		return err
	}
	if count > 0 {
		return NewAlreadyExistsError("duplicate " + column)
	}
	return nil
}

// count records, using WHERE <tenancy triple> AND $condition
func ResourceCountWhere[T any](ctx context.Context, tenancy Tenancy, condition string, value ...interface{}) (int64, error) {
	var model T

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&model).
		Where("customer_id = ? AND tenant_id = ? AND app_id = ?", tenancy.CustomerId, tenancy.TenantId, tenancy.AppId).
		Where(condition, value...)
	var count int64
	if err := dbCtx.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
