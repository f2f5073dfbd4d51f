package models

import (
	"fmt"
	"strings"

	"github.com/githubdatabridge/sih-atellica-qplus-backend-sub000/utils"
	"gorm.io/gorm"
)

// FilterOperator is the closed set of operators the listing protocol accepts.
type FilterOperator string

const (
	FilterOpEq   FilterOperator = "eq"
	FilterOpNot  FilterOperator = "not"
	FilterOpLike FilterOperator = "like"
	FilterOpLt   FilterOperator = "lt"
	FilterOpGt   FilterOperator = "gt"
	FilterOpLte  FilterOperator = "lte"
	FilterOpGte  FilterOperator = "gte"
)

const (
	OrderAsc  = "ASC"
	OrderDesc = "DESC"
)

// FilterCondition is one [field, operator, value] triple from the caller.
type FilterCondition struct {
	Field    string         `json:"field"`
	Operator FilterOperator `json:"operator"`
	Value    interface{}    `json:"value"`
}

// OrderBy is the [field, direction] pair from the caller.
type OrderBy struct {
	Field     string `json:"field"`
	Direction string `json:"direction"`
}

// QuerySpec declares, per entity, which fields may be filtered, searched and
// ordered, and with which operators. Caller-supplied field names are never
// interpolated into SQL: they are mapped through Columns first, and anything
// outside the allow-list is rejected before querying so a typo cannot produce
// an ambiguous empty result.
type QuerySpec struct {
	// Columns maps an external field name to its database column.
	Columns map[string]string
	// Filterable maps an external field name to its allowed operators.
	Filterable map[string][]FilterOperator
	// Searchable lists fields usable in search triples (eq/like only).
	Searchable map[string]bool
	// Orderable lists fields usable in order-by.
	Orderable map[string]bool
}

var operatorSQL = map[FilterOperator]string{
	FilterOpEq:   "=",
	FilterOpNot:  "<>",
	FilterOpLike: "LIKE",
	FilterOpLt:   "<",
	FilterOpGt:   ">",
	FilterOpLte:  "<=",
	FilterOpGte:  ">=",
}

func (s *QuerySpec) column(field string) (string, error) {
	column, ok := s.Columns[field]
	if !ok {
		return "", utils.NewValidationError(fmt.Sprintf("unknown field %q", field))
	}
	return column, nil
}

func (s *QuerySpec) operatorAllowed(field string, op FilterOperator) bool {
	for _, allowed := range s.Filterable[field] {
		if allowed == op {
			return true
		}
	}
	return false
}

// ApplyFilters ANDs every condition onto the query.
func (s *QuerySpec) ApplyFilters(dbCtx *gorm.DB, filters []FilterCondition) (*gorm.DB, error) {
	for _, f := range filters {
		if _, ok := s.Filterable[f.Field]; !ok {
			return nil, utils.NewValidationError(fmt.Sprintf("field %q is not filterable", f.Field))
		}
		if !s.operatorAllowed(f.Field, f.Operator) {
			return nil, utils.NewValidationError(fmt.Sprintf("operator %q is not allowed on field %q", f.Operator, f.Field))
		}
		column, err := s.column(f.Field)
		if err != nil {
			return nil, err
		}
		value := f.Value
		if f.Operator == FilterOpLike {
			value = likePattern(f.Value)
		}
		dbCtx = dbCtx.Where(fmt.Sprintf("%s %s ?", column, operatorSQL[f.Operator]), value)
	}
	return dbCtx, nil
}

// ApplySearch ORs the search triples together (eq/like only) and ANDs the
// group onto the query.
func (s *QuerySpec) ApplySearch(dbCtx *gorm.DB, search []FilterCondition) (*gorm.DB, error) {
	if len(search) == 0 {
		return dbCtx, nil
	}
	var group *gorm.DB
	base := dbCtx.Session(&gorm.Session{NewDB: true})
	for _, f := range search {
		if !s.Searchable[f.Field] {
			return nil, utils.NewValidationError(fmt.Sprintf("field %q is not searchable", f.Field))
		}
		if f.Operator != FilterOpEq && f.Operator != FilterOpLike {
			return nil, utils.NewValidationError(fmt.Sprintf("operator %q is not allowed in search", f.Operator))
		}
		column, err := s.column(f.Field)
		if err != nil {
			return nil, err
		}
		value := f.Value
		if f.Operator == FilterOpLike {
			value = likePattern(f.Value)
		}
		cond := base.Where(fmt.Sprintf("%s %s ?", column, operatorSQL[f.Operator]), value)
		if group == nil {
			group = cond
		} else {
			group = group.Or(cond)
		}
	}
	return dbCtx.Where(group), nil
}

// ApplyOrder validates the order-by pair; without one the listing defaults to
// created_at DESC so pages stay deterministic.
func (s *QuerySpec) ApplyOrder(dbCtx *gorm.DB, orderBy *OrderBy) (*gorm.DB, error) {
	if orderBy == nil {
		return dbCtx.Order("created_at DESC"), nil
	}
	if !s.Orderable[orderBy.Field] {
		return nil, utils.NewValidationError(fmt.Sprintf("field %q is not orderable", orderBy.Field))
	}
	column, err := s.column(orderBy.Field)
	if err != nil {
		return nil, err
	}
	direction := strings.ToUpper(orderBy.Direction)
	if direction != OrderAsc && direction != OrderDesc {
		return nil, utils.NewValidationError(fmt.Sprintf("invalid order direction %q", orderBy.Direction))
	}
	return dbCtx.Order(column + " " + direction), nil
}

func likePattern(value interface{}) string {
	str := fmt.Sprint(value)
	if strings.ContainsAny(str, "%_") {
		return str
	}
	return "%" + str + "%"
}
