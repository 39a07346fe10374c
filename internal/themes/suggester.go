package themes

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"picbook/internal/provider"
	"picbook/pkg/models"
)

// DefaultCount is how many suggestions the creation screen shows.
const DefaultCount = 5

// fallback themes, used whenever the provider is unreachable or returns
// fewer usable lines than asked for.
var builtinThemes = []models.ThemeSuggestion{
	{Title: "火烈鸟和狐狸的友谊", Category: "友谊"},
	{Title: "农夫与蛇的智慧较量", Category: "寓言"},
	{Title: "小马过河的勇气", Category: "勇气"},
	{Title: "国王和农夫的交易", Category: "智慧"},
	{Title: "聪明的狐狸和笨鸟", Category: "寓言"},
	{Title: "勇敢的小兔子", Category: "勇气"},
	{Title: "月亮上的小熊", Category: "幻想"},
	{Title: "会唱歌的大树", Category: "自然"},
	{Title: "海底的邮递员", Category: "冒险"},
	{Title: "爱画画的小恐龙", Category: "梦想"},
}

const themeSystemPrompt = `你是一位儿童绘本编辑。请推荐适合儿童绘本的故事主题。
每行一个，格式为：标题（分类）。标题不超过12个字，不要编号以外的多余说明。`

// Suggester asks the chat provider for candidate story themes and parses
// its free-text reply. It never fails: one attempt, then the built-in
// set fills whatever is missing.
type Suggester struct {
	Chat    provider.ChatClient
	Timeout time.Duration
}

func NewSuggester(chat provider.ChatClient) *Suggester {
	return &Suggester{Chat: chat, Timeout: 15 * time.Second}
}

// Suggest returns exactly count suggestions.
func (s *Suggester) Suggest(ctx context.Context, count int) []models.ThemeSuggestion {
	if count <= 0 {
		count = DefaultCount
	}

	var parsed []models.ThemeSuggestion
	if s.Chat != nil {
		ctx, cancel := context.WithTimeout(ctx, s.Timeout)
		defer cancel()

		raw, err := s.Chat.Complete(ctx, themeSystemPrompt, fmt.Sprintf("请推荐%d个主题", count))
		if err != nil {
			// absorbed: the caller always gets a usable list
			log.Printf("[themes] provider unavailable, using built-in set: %v", err)
		} else {
			parsed = ParseSuggestions(raw)
		}
	}

	if len(parsed) > count {
		parsed = parsed[:count]
	}
	return padFromBuiltin(parsed, count)
}

// list-marker prefixes: "1." "1、" "1)" "-" "*"
var listPrefixRe = regexp.MustCompile(`^(?:\d+\s*[.、)．]\s*|[-*•]\s*)`)

// trailing category in half-width or full-width parentheses
var categoryRe = regexp.MustCompile(`^(.*?)\s*[（(]([^（）()]*)[)）]\s*$`)

// ParseSuggestions extracts {title, category} pairs from a free-text
// reply. Blank lines are skipped and lines without a usable title are
// discarded.
func ParseSuggestions(raw string) []models.ThemeSuggestion {
	var out []models.ThemeSuggestion

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		line = strings.TrimSpace(listPrefixRe.ReplaceAllString(line, ""))

		title, category := line, ""
		if m := categoryRe.FindStringSubmatch(line); m != nil {
			title = strings.TrimSpace(m[1])
			category = strings.TrimSpace(m[2])
		}
		if title == "" {
			continue
		}
		if category == "" {
			category = "其他"
		}
		out = append(out, models.ThemeSuggestion{Title: title, Category: category})
	}
	return out
}

// padFromBuiltin tops the list up to count entries with built-in themes
// that do not duplicate an already present title.
func padFromBuiltin(got []models.ThemeSuggestion, count int) []models.ThemeSuggestion {
	if len(got) >= count {
		return got[:count]
	}

	seen := make(map[string]struct{}, len(got))
	for _, t := range got {
		seen[t.Title] = struct{}{}
	}

	for _, t := range builtinThemes {
		if len(got) >= count {
			break
		}
		if _, ok := seen[t.Title]; ok {
			continue
		}
		seen[t.Title] = struct{}{}
		got = append(got, t)
	}

	// count larger than the combined pool: cycle the built-ins
	for i := 0; len(got) < count; i++ {
		got = append(got, builtinThemes[i%len(builtinThemes)])
	}
	return got
}
