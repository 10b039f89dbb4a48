package repository

import (
	"errors"
	"math"
	"strings"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

var ErrInvalidSort = errors.New("invalid sort parameters")

type PageRequest struct {
	Page     int
	PageSize int
}

type PageResult[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	TotalPages int   `json:"totalPages"`
}

type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

func normalizePageRequest(in PageRequest) PageRequest {
	page := in.Page
	if page < 1 {
		page = DefaultPage
	}
	pageSize := in.PageSize
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return PageRequest{Page: page, PageSize: pageSize}
}

func (p PageRequest) offset() int {
	return (p.Page - 1) * p.PageSize
}

func calcTotalPages(total int64, pageSize int) int {
	if total <= 0 || pageSize <= 0 {
		return 0
	}
	return int(math.Ceil(float64(total) / float64(pageSize)))
}

// orderClause resolves a public sort field against allowed (field -> column)
// and returns a safe ORDER BY clause. Empty field and order fall back to the
// defaults.
func orderClause(allowed map[string]string, field, order, defaultField string) (string, error) {
	if field == "" {
		field = defaultField
	}
	column, ok := allowed[field]
	if !ok {
		return "", ErrInvalidSort
	}
	dir := SortOrder(strings.ToLower(strings.TrimSpace(order)))
	switch dir {
	case "":
		dir = SortDesc
	case SortAsc, SortDesc:
	default:
		return "", ErrInvalidSort
	}
	return column + " " + strings.ToUpper(string(dir)), nil
}

// likePattern lowercases q and escapes LIKE wildcards so the term matches as a
// literal substring. Pair with ESCAPE '\'.
func likePattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(q)) + "%"
}
