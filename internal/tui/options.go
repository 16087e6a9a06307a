package tui

import "github.com/atotto/clipboard"

// Option configures a Model.
type Option func(*Model)

// DefaultActivationDistance is how far, in cells, the pointer must travel
// after a press before the press becomes a drag.
const DefaultActivationDistance = 2

// WithActivationDistance sets the mouse drag activation distance.
func WithActivationDistance(cells int) Option {
	return func(m *Model) {
		if cells >= 0 {
			m.activationDistance = cells
		}
	}
}

// WithClipboard replaces the function used to copy card content.
func WithClipboard(write func(string) error) Option {
	return func(m *Model) {
		if write != nil {
			m.copyText = write
		}
	}
}

// WithTitle sets the header title.
func WithTitle(title string) Option {
	return func(m *Model) {
		if title != "" {
			m.title = title
		}
	}
}

func defaultClipboard(text string) error {
	return clipboard.WriteAll(text)
}
