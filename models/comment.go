package models

import (
	"context"
	"time"

	"github.com/githubdatabridge/sih-atellica-qplus-backend-sub000/config"
	"github.com/githubdatabridge/sih-atellica-qplus-backend-sub000/utils"
	"gorm.io/gorm"
)

// Comment is attached to exactly one of a report or a raw visualization id.
// Threading is one level deep: a reply carries ParentId and a reply can never
// itself be a parent. The optional qlik state captures the selections the
// author was looking at.
type Comment struct {
	ID              int            `gorm:"primary_key" json:"id"`
	CustomerId      string         `gorm:"index;size:64;not null" json:"customer_id"`
	TenantId        string         `gorm:"index;size:64;not null" json:"tenant_id"`
	AppId           string         `gorm:"index;size:64;not null" json:"app_id"`
	AuthorId        string         `gorm:"index;size:64;not null" json:"author_id"`
	AuthorName      string         `gorm:"size:255" json:"author_name"`
	ReportId        *int           `gorm:"index" json:"report_id"`
	VisualizationId *string        `gorm:"index;size:64" json:"visualization_id"`
	ParentId        *int           `gorm:"index" json:"parent_id"`
	Body            string         `gorm:"type:text;not null" json:"body"`
	QlikStateId     *int           `json:"qlik_state_id"`
	CreatedAt       time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

type NewComment struct {
	ReportId        *int          `json:"report_id"`
	VisualizationId *string       `json:"visualization_id"`
	ParentId        *int          `json:"parent_id"`
	Body            string        `json:"body" validate:"required"`
	QlikState       *NewQlikState `json:"qlik_state"`
}

func validateCommentTarget(reportId *int, visualizationId *string) error {
	hasReport := reportId != nil && *reportId != 0
	hasVisualization := visualizationId != nil && *visualizationId != ""
	if hasReport == hasVisualization {
		return utils.NewValidationError("a comment targets exactly one of report_id or visualization_id")
	}
	return nil
}

// CreateComment validates the XOR target and the one-level threading rule,
// then inserts the comment (with its optional state) in one transaction. The
// caller must be able to see the target report. Notification fan-out happens
// in the workflow layer, after commit.
func CreateComment(ctx context.Context, input *NewComment) (*Comment, error) {
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
	if input.ParentId != nil {
		parent, err := GetComment(ctx, *input.ParentId)
		if err != nil {
			return nil, err
		}
		if parent.ParentId != nil {
			return nil, utils.NewValidationError("replies to replies are not allowed")
		}
		if !sameCommentTarget(parent, input.ReportId, input.VisualizationId) {
			return nil, utils.NewValidationError("a reply must target the same entity as its parent")
		}
	}

	callerName, _ := utils.GetCallerNameFromContext(ctx)
	comment := Comment{
		CustomerId:      tenancy.CustomerId,
		TenantId:        tenancy.TenantId,
		AppId:           tenancy.AppId,
		AuthorId:        callerId,
		AuthorName:      callerName,
		ReportId:        input.ReportId,
		VisualizationId: input.VisualizationId,
		ParentId:        input.ParentId,
		Body:            input.Body,
	}

	db := config.GetDB()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if input.QlikState != nil {
			state, err := createQlikState(tx, tenancy, input.QlikState)
			if err != nil {
				return err
			}
			comment.QlikStateId = &state.ID
		}
		return tx.Create(&comment).Error
	})
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

func sameCommentTarget(parent *Comment, reportId *int, visualizationId *string) bool {
	if parent.ReportId != nil {
		return reportId != nil && *reportId == *parent.ReportId
	}
	return visualizationId != nil && parent.VisualizationId != nil && *visualizationId == *parent.VisualizationId
}

// GetComment returns one comment within the tenancy scope.
func GetComment(ctx context.Context, id int) (*Comment, error) {
	tenancy, ok := utils.GetTenancyFromContext(ctx)
	if !ok {
		return nil, utils.NewValidationError("tenancy context is required")
	}
	comment, err := utils.FetchModel[Comment](ctx, tenancy, id)
	if err != nil {
		return nil, utils.NewNotFoundError("comment not found")
	}
	return comment, nil
}

// GetCommentsOfReport lists the comment thread of one visible report, oldest
// first, replies interleaved after their parents on the client side.
func GetCommentsOfReport(ctx context.Context, reportId int) ([]*Comment, error) {
	if _, err := fetchVisibleReport(ctx, reportId); err != nil {
		return nil, err
	}
	tenancy, _ := utils.GetTenancyFromContext(ctx)
	db := config.GetDB()
	var comments []*Comment
	err := db.WithContext(ctx).
		Where("customer_id = ? AND tenant_id = ? AND app_id = ?", tenancy.CustomerId, tenancy.TenantId, tenancy.AppId).
		Where("report_id = ?", reportId).
		Order("created_at ASC").
		Find(&comments).Error
	if err != nil {
		return nil, err
	}
	return comments, nil
}

// GetCommentsOfVisualization lists the comments attached to one raw
// visualization id.
func GetCommentsOfVisualization(ctx context.Context, visualizationId string) ([]*Comment, error) {
	tenancy, ok := utils.GetTenancyFromContext(ctx)
	if !ok {
		return nil, utils.NewValidationError("tenancy context is required")
	}
	db := config.GetDB()
	var comments []*Comment
	err := db.WithContext(ctx).
		Where("customer_id = ? AND tenant_id = ? AND app_id = ?", tenancy.CustomerId, tenancy.TenantId, tenancy.AppId).
		Where("visualization_id = ?", visualizationId).
		Order("created_at ASC").
		Find(&comments).Error
	if err != nil {
		return nil, err
	}
	return comments, nil
}

// DeleteComment removes a comment (author or admin), its replies and their
// states in one transaction.
func DeleteComment(ctx context.Context, id int) (*Comment, error) {
	comment, err := GetComment(ctx, id)
	if err != nil {
		return nil, err
	}
	callerId, ok := utils.GetCallerIdFromContext(ctx)
	if !ok || callerId == "" {
		return nil, utils.NewForbiddenError("caller identity is required")
	}
	if comment.AuthorId != callerId && !utils.IsAdminFromContext(ctx) {
		return nil, utils.NewForbiddenError("only the author or an admin may delete this comment")
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var replies []Comment
		if err := tx.Where("parent_id = ?", comment.ID).Find(&replies).Error; err != nil {
			return err
		}
		for _, reply := range replies {
			if err := deleteQlikState(tx, reply.QlikStateId); err != nil {
				return err
			}
		}
		if err := tx.Where("parent_id = ?", comment.ID).Delete(&Comment{}).Error; err != nil {
			return err
		}
		if err := deleteQlikState(tx, comment.QlikStateId); err != nil {
			return err
		}
		return tx.Delete(&Comment{}, comment.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return comment, nil
}
