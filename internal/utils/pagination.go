// Package utils holds small helpers shared by the transport and service
// layers: transcript pagination and text folding for keyword matching.
package utils

import "strconv"

// PageParams parses the page and page-size query values of a transcript
// listing. Missing or unparsable values fall back to page 1 and defSize;
// page is at least 1 and size is clamped to [1, maxSize].
func PageParams(pageStr, sizeStr string, defSize, maxSize int) (page, size int) {
	page = atoiDefault(pageStr, 1)
	if page < 1 {
		page = 1
	}
	size = atoiDefault(sizeStr, defSize)
	if size < 1 {
		size = 1
	}
	if maxSize > 0 && size > maxSize {
		size = maxSize
	}
	return page, size
}

// Offset is the zero-based row offset of page.
func Offset(page, size int) int {
	if page < 1 || size < 1 {
		return 0
	}
	return (page - 1) * size
}

// TotalPages is the number of pages needed for total rows; zero rows is
// zero pages.
func TotalPages(total int64, size int) int {
	if total <= 0 || size < 1 {
		return 0
	}
	return int((total + int64(size) - 1) / int64(size))
}

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}
