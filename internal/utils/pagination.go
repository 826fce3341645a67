package utils

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const MaxPageSize = 100

// Pagination holds page parameters extracted from a request.
type Pagination struct {
	Page     int
	PageSize int
}

// PaginationFromContext reads "page" and "page_size", clamping page_size to
// MaxPageSize and falling back to defaultSize.
func PaginationFromContext(c *gin.Context, defaultSize int) Pagination {
	if defaultSize <= 0 {
		defaultSize = 10
	}
	page, _ := strconv.Atoi(c.Query("page"))
	if page < 1 {
		page = 1
	}
	size, _ := strconv.Atoi(c.Query("page_size"))
	if size <= 0 {
		size = defaultSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return Pagination{Page: page, PageSize: size}
}

// Offset is the number of rows to skip.
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// Page wraps one page of results.
type Page struct {
	Count    int64       `json:"count"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
	HasNext  bool        `json:"has_next"`
	Results  interface{} `json:"results"`
}

func NewPage(results interface{}, total int64, p Pagination) Page {
	return Page{
		Count:    total,
		Page:     p.Page,
		PageSize: p.PageSize,
		HasNext:  int64(p.Offset()+p.PageSize) < total,
		Results:  results,
	}
}
