package domain

import "strings"

// Card is a single task card owned by exactly one column.
type Card struct {
	ID       string `json:"id"`
	ColumnID string `json:"column_id"`
	Content  string `json:"content"`
}

// NewCard constructs a new value for this package. Content may be empty.
func NewCard(id, columnID, content string) (Card, error) {
	id = strings.TrimSpace(id)
	columnID = strings.TrimSpace(columnID)
	if id == "" {
		return Card{}, ErrInvalidID
	}
	if columnID == "" {
		return Card{}, ErrInvalidColumnID
	}
	return Card{ID: id, ColumnID: columnID, Content: content}, nil
}

// Edit replaces the card content.
func (c *Card) Edit(content string) {
	c.Content = content
}

// MoveTo reassigns the owning column.
func (c *Card) MoveTo(columnID string) error {
	columnID = strings.TrimSpace(columnID)
	if columnID == "" {
		return ErrInvalidColumnID
	}
	c.ColumnID = columnID
	return nil
}
