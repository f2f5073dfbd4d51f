package models

import (
	"github.com/githubdatabridge/sih-atellica-qplus-backend-sub000/utils"
	"gorm.io/gorm"
)

const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// Pagination is the offset-based envelope every listing returns.
type Pagination struct {
	Total       int64 `json:"total"`
	LastPage    int   `json:"lastPage"`
	CurrentPage int   `json:"currentPage"`
	PerPage     int   `json:"perPage"`
	From        int   `json:"from"`
	To          int   `json:"to"`
}

type Page[T any] struct {
	Data       []*T       `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// EmptyPage returns a zeroed envelope; listings with no enabled visibility
// mode return this instead of touching the store.
func EmptyPage[T any](currentPage int, perPage int) *Page[T] {
	currentPage, perPage = normalizePageParams(currentPage, perPage)
	return &Page[T]{
		Data: make([]*T, 0),
		Pagination: Pagination{
			Total:       0,
			LastPage:    0,
			CurrentPage: currentPage,
			PerPage:     perPage,
			From:        0,
			To:          0,
		},
	}
}

// FetchPageOffset counts, then fetches one page of the composed query. A
// malformed result from the store (negative count) is an internal error so
// callers never render a partial listing as complete.
func FetchPageOffset[T any](dbCtx *gorm.DB, currentPage int, perPage int) (*Page[T], error) {
	currentPage, perPage = normalizePageParams(currentPage, perPage)

	var total int64
	if err := dbCtx.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, err
	}
	if total < 0 {
		return nil, utils.NewInternalError("store returned a malformed page count")
	}

	offset := (currentPage - 1) * perPage
	nodes := make([]*T, 0, perPage)
	if err := dbCtx.Offset(offset).Limit(perPage).Find(&nodes).Error; err != nil {
		return nil, err
	}

	lastPage := int((total + int64(perPage) - 1) / int64(perPage))
	from := 0
	to := 0
	if len(nodes) > 0 {
		from = offset + 1
		to = offset + len(nodes)
	}

	return &Page[T]{
		Data: nodes,
		Pagination: Pagination{
			Total:       total,
			LastPage:    lastPage,
			CurrentPage: currentPage,
			PerPage:     perPage,
			From:        from,
			To:          to,
		},
	}, nil
}

func normalizePageParams(currentPage int, perPage int) (int, int) {
	if currentPage < 1 {
		currentPage = 1
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	return currentPage, perPage
}
