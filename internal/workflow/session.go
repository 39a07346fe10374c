package workflow

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"picbook/internal/generate"
	"picbook/internal/progress"
	"picbook/pkg/models"
)

// Stage names the four steps of the creation wizard.
type Stage string

const (
	StageTheme                Stage = "theme"
	StageStory                Stage = "story"
	StageIllustrationSettings Stage = "illustration-settings"
	StageIllustration         Stage = "illustration"
)

var (
	// ErrWrongStage: the requested action is not valid from the
	// session's current stage.
	ErrWrongStage = errors.New("action not allowed in current stage")
	// ErrBatchInFlight: an illustration batch is already running for
	// this session; re-entrant triggers are suppressed.
	ErrBatchInFlight = errors.New("illustration batch already in flight")
	// ErrNoPages: illustration or save requested with no generated story.
	ErrNoPages = errors.New("no story pages")
)

// StoryGenerator produces the page list for a theme.
type StoryGenerator interface {
	GenerateStory(ctx context.Context, theme string) ([]models.Page, error)
}

// PageIllustrator runs one illustration batch over a page list.
type PageIllustrator interface {
	Generate(ctx context.Context, pages []models.Page, cfg models.IllustrationConfig, fn generate.ProgressFunc) ([]models.Page, []int)
}

// StoryStore persists finished books.
type StoryStore interface {
	Save(ctx context.Context, s models.Story) (models.Story, error)
}

// Notifier receives progress events; the WebSocket hub implements it.
type Notifier interface {
	Broadcast(ev progress.Event)
}

// session is one user's in-memory wizard state. It lives only in memory:
// navigating away or restarting the server loses the draft.
type session struct {
	stage        Stage
	theme        string
	pages        []models.Page
	config       models.IllustrationConfig
	failedPages  []int
	batchID      string
	illustrating bool
}

func newSession() *session {
	return &session{stage: StageTheme}
}

// Snapshot is the read-only view of a session handed to the UI.
type Snapshot struct {
	Stage        Stage                     `json:"stage"`
	Theme        string                    `json:"theme,omitempty"`
	Pages        []models.Page             `json:"pages,omitempty"`
	Config       models.IllustrationConfig `json:"config,omitempty"`
	FailedPages  []int                     `json:"failed_pages,omitempty"`
	Illustrating bool                      `json:"illustrating"`
}

// Manager owns every user's creation session and sequences the wizard:
// theme -> story -> illustration-settings -> illustration, with guards on
// each forward transition. One manager serves the whole process.
type Manager struct {
	Generator   StoryGenerator
	Illustrator PageIllustrator
	Store       StoryStore
	Hub         Notifier

	mu       sync.Mutex
	sessions map[string]*session
}

func NewManager(g StoryGenerator, il PageIllustrator, store StoryStore, hub Notifier) *Manager {
	return &Manager{
		Generator:   g,
		Illustrator: il,
		Store:       store,
		Hub:         hub,
		sessions:    make(map[string]*session),
	}
}

// locked runs fn with the manager lock held, on the user's session.
func (m *Manager) locked(userID string, fn func(s *session) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	if !ok {
		s = newSession()
		m.sessions[userID] = s
	}
	return fn(s)
}

func (m *Manager) notify(ev progress.Event) {
	if m.Hub == nil {
		return
	}
	ev.At = time.Now().UTC()
	m.Hub.Broadcast(ev)
}

// Snapshot returns the user's current wizard state.
func (m *Manager) Snapshot(userID string) Snapshot {
	var snap Snapshot
	_ = m.locked(userID, func(s *session) error {
		snap = Snapshot{
			Stage:        s.stage,
			Theme:        s.theme,
			Pages:        append([]models.Page(nil), s.pages...),
			Config:       s.config,
			FailedPages:  append([]int(nil), s.failedPages...),
			Illustrating: s.illustrating,
		}
		return nil
	})
	return snap
}

// GenerateStory runs the story generator for the theme. Only valid from
// the theme stage; on success the session advances to story review, on
// failure it stays put and the error is surfaced.
func (m *Manager) GenerateStory(ctx context.Context, userID, theme string) ([]models.Page, error) {
	if err := m.locked(userID, func(s *session) error {
		if s.stage != StageTheme {
			return fmt.Errorf("%w: generate story from %q", ErrWrongStage, s.stage)
		}
		s.theme = theme
		return nil
	}); err != nil {
		return nil, err
	}

	pages, err := m.Generator.GenerateStory(ctx, theme)
	if err != nil {
		return nil, err
	}

	_ = m.locked(userID, func(s *session) error {
		s.pages = pages
		s.failedPages = nil
		s.stage = StageStory
		return nil
	})

	m.notify(progress.Event{
		Type:   progress.EventStoryGenerated,
		UserID: userID,
		Pages:  len(pages),
	})
	return pages, nil
}

// Advance moves story review -> illustration settings. The only manual
// forward transition; everything else is guarded by generation results.
func (m *Manager) Advance(userID string) error {
	return m.locked(userID, func(s *session) error {
		if s.stage != StageStory {
			return fmt.Errorf("%w: advance from %q", ErrWrongStage, s.stage)
		}
		s.stage = StageIllustrationSettings
		return nil
	})
}

// Back moves illustration settings -> story review, unconditionally. If a
// batch is in flight its results will be discarded when they arrive.
func (m *Manager) Back(userID string) error {
	return m.locked(userID, func(s *session) error {
		if s.stage != StageIllustrationSettings {
			return fmt.Errorf("%w: back from %q", ErrWrongStage, s.stage)
		}
		s.stage = StageStory
		s.batchID = ""
		s.illustrating = false
		return nil
	})
}

// GenerateIllustrations runs one illustration batch over the session's
// pages. Guards: must be on the settings stage with a generated story,
// and only one batch per session may be in flight. Each batch gets a
// fresh id; results arriving for a superseded batch are dropped so a
// restarted generation can never be contaminated by a stale one.
func (m *Manager) GenerateIllustrations(ctx context.Context, userID string, cfg models.IllustrationConfig) ([]models.Page, []int, error) {
	normalized, err := cfg.Normalize()
	if err != nil {
		return nil, nil, err
	}

	var (
		batchID string
		pages   []models.Page
	)
	if err := m.locked(userID, func(s *session) error {
		if s.stage != StageIllustrationSettings {
			return fmt.Errorf("%w: illustrate from %q", ErrWrongStage, s.stage)
		}
		if len(s.pages) == 0 {
			return ErrNoPages
		}
		if s.illustrating {
			return ErrBatchInFlight
		}
		s.illustrating = true
		s.batchID = uuid.NewString()
		batchID = s.batchID
		pages = append([]models.Page(nil), s.pages...)
		return nil
	}); err != nil {
		return nil, nil, err
	}

	result, failed := m.Illustrator.Generate(ctx, pages, normalized, func(i int, ok bool) {
		okCopy := ok
		m.notify(progress.Event{
			Type:       progress.EventIllustrationPage,
			UserID:     userID,
			BatchID:    batchID,
			PageNumber: pages[i].PageNumber,
			OK:         &okCopy,
		})
	})

	applied := false
	_ = m.locked(userID, func(s *session) error {
		if s.batchID != batchID {
			// superseded while we were generating
			log.Printf("[workflow] dropping stale illustration batch %s for user %s", batchID, userID)
			return nil
		}
		s.pages = result
		s.failedPages = failed
		s.config = normalized
		s.stage = StageIllustration
		s.illustrating = false
		applied = true
		return nil
	})
	if !applied {
		return nil, nil, ErrWrongStage
	}

	m.notify(progress.Event{
		Type:    progress.EventIllustrationDone,
		UserID:  userID,
		BatchID: batchID,
		Pages:   len(result),
		Failed:  len(failed),
	})
	return result, failed, nil
}

// Save persists the finished book and resets the wizard to the theme
// stage. Only valid from the illustration review stage.
func (m *Manager) Save(ctx context.Context, userID, title string) (models.Story, error) {
	var draft models.Story
	if err := m.locked(userID, func(s *session) error {
		if s.stage != StageIllustration {
			return fmt.Errorf("%w: save from %q", ErrWrongStage, s.stage)
		}
		if len(s.pages) == 0 {
			return ErrNoPages
		}
		draft = models.Story{
			OwnerID:     userID,
			Title:       title,
			Theme:       s.theme,
			Pages:       append([]models.Page(nil), s.pages...),
			StyleID:     s.config.StyleID,
			AspectRatio: s.config.AspectRatio,
		}
		return nil
	}); err != nil {
		return models.Story{}, err
	}

	if draft.Title == "" {
		draft.Title = draft.Theme
	}

	saved, err := m.Store.Save(ctx, draft)
	if err != nil {
		return models.Story{}, err
	}

	_ = m.locked(userID, func(s *session) error {
		*s = *newSession()
		return nil
	})

	m.notify(progress.Event{
		Type:    progress.EventStorySaved,
		UserID:  userID,
		StoryID: saved.ID,
		Pages:   len(saved.Pages),
	})
	return saved, nil
}

// Reset discards the user's wizard state. An in-flight batch keeps
// running but its results will be dropped on arrival.
func (m *Manager) Reset(userID string) {
	_ = m.locked(userID, func(s *session) error {
		*s = *newSession()
		return nil
	})
}
