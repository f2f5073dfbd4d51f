package models

import (
	"time"

	"github.com/githubdatabridge/sih-atellica-qplus-backend-sub000/utils"
	"gorm.io/gorm"
)

// QlikState is a saved-selection snapshot. Exactly one of QsBookmarkId
// (reference to a Qlik-side bookmark, private) or Selections (free-form
// serialized selections, public) is set. A state is owned by exactly one
// parent (report, bookmark item, comment or reaction) and lives and dies with
// it; states are never shared on their own.
type QlikState struct {
	ID           int            `gorm:"primary_key" json:"id"`
	CustomerId   string         `gorm:"index;size:64;not null" json:"customer_id"`
	TenantId     string         `gorm:"index;size:64;not null" json:"tenant_id"`
	AppId        string         `gorm:"index;size:64;not null" json:"app_id"`
	QsBookmarkId *string        `gorm:"size:255" json:"qs_bookmark_id"`
	Selections   *string        `gorm:"type:text" json:"selections"`
	CreatedAt    time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

type NewQlikState struct {
	QsBookmarkId *string `json:"qs_bookmark_id"`
	Selections   *string `json:"selections"`
}

// IsPublic reports whether the state carries free-form selections rather than
// a Qlik bookmark reference.
func (s *NewQlikState) IsPublic() bool {
	return s.Selections != nil && *s.Selections != ""
}

func (s *NewQlikState) validate() error {
	hasBookmark := s.QsBookmarkId != nil && *s.QsBookmarkId != ""
	hasSelections := s.Selections != nil && *s.Selections != ""
	if hasBookmark == hasSelections {
		return utils.NewValidationError("qlik state requires exactly one of qs_bookmark_id or selections")
	}
	if hasSelections && !utils.IsValidJSON(*s.Selections) {
		return utils.NewBadDataError("qlik state selections payload is not valid JSON")
	}
	return nil
}

// createQlikState inserts the state inside the parent's transaction.
func createQlikState(tx *gorm.DB, tenancy utils.Tenancy, input *NewQlikState) (*QlikState, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	state := QlikState{
		CustomerId:   tenancy.CustomerId,
		TenantId:     tenancy.TenantId,
		AppId:        tenancy.AppId,
		QsBookmarkId: input.QsBookmarkId,
		Selections:   input.Selections,
	}
	if err := tx.Create(&state).Error; err != nil {
		return nil, err
	}
	return &state, nil
}

// deleteQlikState removes the state inside the parent's transaction; a nil id
// is a no-op so callers can pass the parent's optional reference directly.
func deleteQlikState(tx *gorm.DB, id *int) error {
	if id == nil || *id == 0 {
		return nil
	}
	return tx.Delete(&QlikState{}, *id).Error
}
