package generate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"picbook/internal/provider"
	"picbook/pkg/models"
)

// DefaultSceneCount is how many scenes a picture book has.
const DefaultSceneCount = 6

const storySystemPrompt = `You are a children's picture book author writing bilingual (Chinese and English) stories.
Given a theme, write a complete story of exactly %d scenes.
Respond with ONLY a JSON object, no markdown, no commentary, in this exact shape:
{"scenes":[{"scene_number":1,"title":"场景标题","title_en":"Scene title","narrative":"该场景的完整中文故事文字","narrative_en":"The full English narrative for this scene","illustration_prompt":"该场景插画的中文描述","illustration_prompt_en":"A detailed English description of the illustration for this scene"}]}
Rules:
- exactly %d entries in "scenes"
- every field non-empty
- narratives warm and age-appropriate for young children
- illustration prompts describe one concrete picture: characters, setting, mood`

// scene is the wire shape we instruct the provider to return. The
// provider's own scene_number is parsed but deliberately ignored in favor
// of positional numbering.
type scene struct {
	SceneNumber          int    `json:"scene_number"`
	Title                string `json:"title"`
	TitleEN              string `json:"title_en"`
	Narrative            string `json:"narrative"`
	NarrativeEN          string `json:"narrative_en"`
	IllustrationPrompt   string `json:"illustration_prompt"`
	IllustrationPromptEN string `json:"illustration_prompt_en"`
}

type sceneList struct {
	Scenes []scene `json:"scenes"`
}

// Generator turns a free-text theme into an ordered page list via the
// chat provider.
type Generator struct {
	Chat       provider.ChatClient
	SceneCount int
	Timeout    time.Duration
	RetryWait  time.Duration
}

func NewGenerator(chat provider.ChatClient, timeout time.Duration) *Generator {
	return &Generator{
		Chat:       chat,
		SceneCount: DefaultSceneCount,
		Timeout:    timeout,
		RetryWait:  2 * time.Second,
	}
}

// GenerateStory produces the page list for a theme, or a GenerationError.
// Transport-level failures get one retry after a short wait; malformed
// content does not (it is not transient).
func (g *Generator) GenerateStory(ctx context.Context, theme string) ([]models.Page, error) {
	theme = strings.TrimSpace(theme)
	if theme == "" {
		return nil, &GenerationError{Kind: KindEmptyTheme, Err: errors.New("theme is empty")}
	}

	count := g.SceneCount
	if count <= 0 {
		count = DefaultSceneCount
	}

	ctx, cancel := context.WithTimeout(ctx, g.Timeout)
	defer cancel()

	system := fmt.Sprintf(storySystemPrompt, count, count)

	raw, err := g.Chat.Complete(ctx, system, theme)
	if err != nil {
		var te *provider.TransportError
		if errors.As(err, &te) && ctx.Err() == nil {
			log.Printf("[storygen] transport failure, retrying once: %v", err)
			select {
			case <-time.After(g.RetryWait):
			case <-ctx.Done():
				return nil, &GenerationError{Kind: KindTimeout, Err: ctx.Err()}
			}
			raw, err = g.Chat.Complete(ctx, system, theme)
		}
	}
	if err != nil {
		return nil, classify(ctx, err)
	}

	scenes, err := parseScenes(raw)
	if err != nil {
		return nil, &GenerationError{Kind: KindEmptyOrMalformed, Err: err}
	}

	pages := make([]models.Page, len(scenes))
	for i, s := range scenes {
		pages[i] = models.Page{
			PageNumber:                   i + 1, // positional, not provider-declared
			Title:                        strings.TrimSpace(s.Title),
			TitleTranslated:              strings.TrimSpace(s.TitleEN),
			Narrative:                    strings.TrimSpace(s.Narrative),
			NarrativeTranslated:          strings.TrimSpace(s.NarrativeEN),
			IllustrationPrompt:           strings.TrimSpace(s.IllustrationPrompt),
			IllustrationPromptTranslated: strings.TrimSpace(s.IllustrationPromptEN),
		}
	}

	log.Printf("[storygen] generated %d pages for theme %q", len(pages), theme)
	return pages, nil
}

func classify(ctx context.Context, err error) *GenerationError {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &GenerationError{Kind: KindTimeout, Err: err}
	}
	var ce *provider.ConfigError
	if errors.As(err, &ce) {
		// keep the config error reachable via Unwrap for the handler
		return &GenerationError{Kind: KindTransport, Err: err}
	}
	var te *provider.TransportError
	if errors.As(err, &te) {
		return &GenerationError{Kind: KindTransport, Err: err}
	}
	return &GenerationError{Kind: KindEmptyOrMalformed, Err: err}
}

// parseScenes strips the markdown code fences models like to wrap JSON in,
// then unmarshals the scene list.
func parseScenes(raw string) ([]scene, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var list sceneList
	if err := json.Unmarshal([]byte(cleaned), &list); err != nil {
		return nil, fmt.Errorf("parse scenes: %w", err)
	}
	if len(list.Scenes) == 0 {
		return nil, errors.New("parse scenes: empty scene list")
	}
	return list.Scenes, nil
}
