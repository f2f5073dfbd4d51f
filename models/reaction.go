package models

import (
	"context"
	"time"

	"github.com/githubdatabridge/sih-atellica-qplus-backend-sub000/config"
	"github.com/githubdatabridge/sih-atellica-qplus-backend-sub000/utils"
	"gorm.io/gorm"
)

// Reaction is an emoji/kind on exactly one of a report or a visualization,
// unique per (target, user, kind).
type Reaction struct {
	ID              int            `gorm:"primary_key" json:"id"`
	CustomerId      string         `gorm:"index;size:64;not null" json:"customer_id"`
	TenantId        string         `gorm:"index;size:64;not null" json:"tenant_id"`
	AppId           string         `gorm:"index;size:64;not null" json:"app_id"`
	AuthorId        string         `gorm:"index;size:64;not null" json:"author_id"`
	ReportId        *int           `gorm:"index" json:"report_id"`
	VisualizationId *string        `gorm:"index;size:64" json:"visualization_id"`
	Kind            string         `gorm:"size:64;not null" json:"kind"`
	QlikStateId     *int           `json:"qlik_state_id"`
	CreatedAt       time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

type NewReaction struct {
	ReportId        *int          `json:"report_id"`
	VisualizationId *string       `json:"visualization_id"`
	Kind            string        `json:"kind" validate:"required"`
	QlikState       *NewQlikState `json:"qlik_state"`
}

// CreateReaction validates the XOR target and the per-(target, user, kind)
// uniqueness, then inserts in one transaction.
func CreateReaction(ctx context.Context, input *NewReaction) (*Reaction, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	if err := validateCommentTarget(input.ReportId, input.VisualizationId); err != nil {
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

	if input.ReportId != nil {
		if _, err := fetchVisibleReport(ctx, *input.ReportId); err != nil {
			return nil, err
		}
	}

	db := config.GetDB()
	dup := db.WithContext(ctx).Model(&Reaction{}).
		Where("customer_id = ? AND tenant_id = ? AND app_id = ?", tenancy.CustomerId, tenancy.TenantId, tenancy.AppId).
		Where("author_id = ? AND kind = ?", callerId, input.Kind)
	if input.ReportId != nil {
		dup = dup.Where("report_id = ?", *input.ReportId)
	} else {
		dup = dup.Where("visualization_id = ?", *input.VisualizationId)
	}
	var count int64
	if err := dup.Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, utils.NewAlreadyExistsError("duplicate reaction")
	}

	reaction := Reaction{
		CustomerId:      tenancy.CustomerId,
		TenantId:        tenancy.TenantId,
		AppId:           tenancy.AppId,
		AuthorId:        callerId,
		ReportId:        input.ReportId,
		VisualizationId: input.VisualizationId,
		Kind:            input.Kind,
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if input.QlikState != nil {
			state, err := createQlikState(tx, tenancy, input.QlikState)
			if err != nil {
				return err
			}
			reaction.QlikStateId = &state.ID
		}
		return tx.Create(&reaction).Error
	})
	if err != nil {
		return nil, err
	}
	return &reaction, nil
}

// GetReactionsOfReport lists the reactions on one visible report.
func GetReactionsOfReport(ctx context.Context, reportId int) ([]*Reaction, error) {
	if _, err := fetchVisibleReport(ctx, reportId); err != nil {
		return nil, err
	}
	tenancy, _ := utils.GetTenancyFromContext(ctx)
	db := config.GetDB()
	var reactions []*Reaction
	err := db.WithContext(ctx).
		Where("customer_id = ? AND tenant_id = ? AND app_id = ?", tenancy.CustomerId, tenancy.TenantId, tenancy.AppId).
		Where("report_id = ?", reportId).
		Order("created_at ASC").
		Find(&reactions).Error
	if err != nil {
		return nil, err
	}
	return reactions, nil
}

// DeleteReaction removes the author's own reaction with its optional state.
func DeleteReaction(ctx context.Context, id int) (*Reaction, error) {
	tenancy, ok := utils.GetTenancyFromContext(ctx)
	if !ok {
		return nil, utils.NewValidationError("tenancy context is required")
	}
	reaction, err := utils.FetchModel[Reaction](ctx, tenancy, id)
	if err != nil {
		return nil, utils.NewNotFoundError("reaction not found")
	}
	callerId, ok := utils.GetCallerIdFromContext(ctx)
	if !ok || callerId == "" {
		return nil, utils.NewForbiddenError("caller identity is required")
	}
	if reaction.AuthorId != callerId && !utils.IsAdminFromContext(ctx) {
		return nil, utils.NewForbiddenError("only the author or an admin may remove this reaction")
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := deleteQlikState(tx, reaction.QlikStateId); err != nil {
			return err
		}
		return tx.Delete(&Reaction{}, reaction.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return reaction, nil
}
