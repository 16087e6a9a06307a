package domain

import "strings"

// Column represents one board column. Its position is its index in the board's column sequence.
type Column struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// NewColumn constructs a new value for this package.
func NewColumn(id, title string) (Column, error) {
	id = strings.TrimSpace(id)
	title = strings.TrimSpace(title)
	if id == "" {
		return Column{}, ErrInvalidID
	}
	if title == "" {
		return Column{}, ErrInvalidTitle
	}
	return Column{ID: id, Title: title}, nil
}

// Rename renames the column.
func (c *Column) Rename(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrInvalidTitle
	}
	c.Title = title
	return nil
}
