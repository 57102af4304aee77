package shared

// DefaultPageSize applies when a Filter leaves PageSize unset
const DefaultPageSize = 20

// Filter selects one page of a listing. Page is 1-based. OrderBy is checked
// against a per-store whitelist; OrderDir is "asc" or anything else for
// descending.
type Filter struct {
	Page     int
	PageSize int
	OrderBy  string
	OrderDir string
	Status   string
}

// Limit returns the page size, falling back to DefaultPageSize
func (f Filter) Limit() int {
	if f.PageSize <= 0 {
		return DefaultPageSize
	}
	return f.PageSize
}

// Offset returns the number of rows to skip for the filter's page
func (f Filter) Offset() int {
	if f.Page <= 1 {
		return 0
	}
	return (f.Page - 1) * f.Limit()
}
