package core

import (
	"math"
	"strings"

	db "github.com/JonMunkholm/pima/internal/database"
)

// maxPage keeps Page*Size inside int32 for the query offset.
const maxPage = math.MaxInt32 / MaxPageSize

// Normalize applies defaults and limits: negative pages become 0, size is
// clamped to 1..MaxPageSize, unknown sort keys fall back to purchaseDate and
// any direction other than "asc" is descending.
func (r PageRequest) Normalize() PageRequest {
	if r.Page < 0 {
		r.Page = 0
	}
	if r.Page > maxPage {
		r.Page = maxPage
	}
	switch {
	case r.Size <= 0:
		r.Size = DefaultPageSize
	case r.Size > MaxPageSize:
		r.Size = MaxPageSize
	}
	if _, ok := db.SortColumns[r.Sort]; !ok {
		r.Sort = DefaultSortKey
	}
	if strings.EqualFold(strings.TrimSpace(r.Direction), "asc") {
		r.Direction = "asc"
	} else {
		r.Direction = "desc"
	}
	return r
}

// Offset returns the row offset of the first item on the page.
func (r PageRequest) Offset() int {
	return r.Page * r.Size
}

// totalPages mirrors the usual page count: zero when there are no rows.
func totalPages(total int64, size int) int {
	if total <= 0 || size <= 0 {
		return 0
	}
	return int((total + int64(size) - 1) / int64(size))
}
