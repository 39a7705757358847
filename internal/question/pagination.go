package question

import "strconv"

// QuestionsPerPage is the fixed page size for every paginated listing.
const QuestionsPerPage = 10

// ParsePage reads a 1-based page number. Missing or malformed values fall
// back to the first page; zero and negative values are kept as given.
func ParsePage(raw string) int {
	page, err := strconv.Atoi(raw)
	if err != nil {
		return 1
	}
	return page
}

// Paginate returns the page-th slice of QuestionsPerPage items. Pages below
// one or past the end yield an empty, non-nil slice.
func Paginate[T any](items []T, page int) []T {
	if page < 1 {
		return []T{}
	}
	pages := (len(items) + QuestionsPerPage - 1) / QuestionsPerPage
	if page > pages {
		return []T{}
	}
	start := (page - 1) * QuestionsPerPage
	end := min(start+QuestionsPerPage, len(items))
	return items[start:end]
}
