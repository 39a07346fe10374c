package progress

import "time"

// Event types pushed to workflow watchers.
const (
	EventStoryGenerated   = "story.generated"
	EventIllustrationPage = "illustration.page"
	EventIllustrationDone = "illustration.done"
	EventStorySaved       = "story.saved"
)

// Event is one workflow progress notification. PageNumber and OK are only
// meaningful for illustration.page events.
type Event struct {
	Type       string    `json:"type"`
	UserID     string    `json:"user_id"`
	BatchID    string    `json:"batch_id,omitempty"`
	PageNumber int       `json:"page_number,omitempty"`
	OK         *bool     `json:"ok,omitempty"`
	Pages      int       `json:"pages,omitempty"`
	Failed     int       `json:"failed,omitempty"`
	StoryID    string    `json:"story_id,omitempty"`
	At         time.Time `json:"at"`
}
