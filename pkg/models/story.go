package models

import "time"

// Story is the persisted form of a finished picture book. Created once on
// explicit save, immutable afterwards except for whole-story deletion.
type Story struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Title       string    `json:"title"`
	Theme       string    `json:"theme"`
	Pages       []Page    `json:"pages"`
	StyleID     string    `json:"style_id,omitempty"`
	AspectRatio string    `json:"aspect_ratio,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ThemeSuggestion is one candidate story theme shown on the creation
// screen. Ephemeral: regenerated on demand, no identity beyond display.
type ThemeSuggestion struct {
	Title    string `json:"title"`
	Category string `json:"category"`
}
