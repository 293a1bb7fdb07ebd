package services

import "gorm.io/gorm"

const maxPageSize = 100

// Page selects a window of a listing. Number is 1-based; the zero Page means everything.
type Page struct {
	Number int
	Size   int
}

// NewPage clamps user supplied values into a usable page
func NewPage(number, size, defaultSize int) Page {
	if number < 1 {
		number = 1
	}
	if size < 1 {
		size = defaultSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return Page{Number: number, Size: size}
}

func (p Page) offset() int {
	if p.Number < 1 {
		return 0
	}
	return (p.Number - 1) * p.Size
}

func (p Page) scope(db *gorm.DB) *gorm.DB {
	if p.Size <= 0 {
		return db
	}
	return db.Limit(p.Size).Offset(p.offset())
}
