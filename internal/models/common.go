package models

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

// normalisePage clamps page/size values the same way for every listing.
func normalisePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return page, size
}

// PageWindow returns the effective page, page size and row offset.
func PageWindow(page, size int) (int, int, int) {
	page, size = normalisePage(page, size)
	return page, size, (page - 1) * size
}
