package themes

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"picbook/pkg/models"
)

type chatFunc func(ctx context.Context, system, user string) (string, error)

func (f chatFunc) Complete(ctx context.Context, system, user string) (string, error) {
	return f(ctx, system, user)
}

func TestParseSuggestions(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []models.ThemeSuggestion
	}{
		{
			name: "numbered list with full-width parens",
			raw:  "1. 勇敢的小兔子（勇气）\n2. 月亮上的小熊（幻想）",
			want: []models.ThemeSuggestion{
				{Title: "勇敢的小兔子", Category: "勇气"},
				{Title: "月亮上的小熊", Category: "幻想"},
			},
		},
		{
			name: "half-width parens and dashes",
			raw:  "- 海底的邮递员 (冒险)\n* 会唱歌的大树 (自然)",
			want: []models.ThemeSuggestion{
				{Title: "海底的邮递员", Category: "冒险"},
				{Title: "会唱歌的大树", Category: "自然"},
			},
		},
		{
			name: "blank lines skipped",
			raw:  "\n\n1、小马过河的勇气（勇气）\n\n",
			want: []models.ThemeSuggestion{
				{Title: "小马过河的勇气", Category: "勇气"},
			},
		},
		{
			name: "missing category defaults",
			raw:  "爱画画的小恐龙",
			want: []models.ThemeSuggestion{
				{Title: "爱画画的小恐龙", Category: "其他"},
			},
		},
		{
			name: "line with only a marker is dropped",
			raw:  "1.\n2. 国王和农夫的交易（智慧）",
			want: []models.ThemeSuggestion{
				{Title: "国王和农夫的交易", Category: "智慧"},
			},
		},
		{
			name: "empty reply",
			raw:  "",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseSuggestions(tt.raw)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseSuggestions() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestSuggest(t *testing.T) {
	t.Run("returns exactly count on provider success", func(t *testing.T) {
		s := NewSuggester(chatFunc(func(ctx context.Context, system, user string) (string, error) {
			return "1. 甲（友谊）\n2. 乙（寓言）\n3. 丙（勇气）", nil
		}))

		got := s.Suggest(context.Background(), 5)
		if len(got) != 5 {
			t.Fatalf("len = %d, want 5", len(got))
		}
		if got[0].Title != "甲" || got[1].Title != "乙" || got[2].Title != "丙" {
			t.Errorf("provider suggestions should come first, got %+v", got[:3])
		}
	})

	t.Run("provider failure falls back to built-ins", func(t *testing.T) {
		s := NewSuggester(chatFunc(func(ctx context.Context, system, user string) (string, error) {
			return "", errors.New("connection refused")
		}))

		got := s.Suggest(context.Background(), 5)
		if len(got) != 5 {
			t.Fatalf("len = %d, want 5", len(got))
		}
		for i, sug := range got {
			if sug.Title == "" || sug.Category == "" {
				t.Errorf("suggestion %d incomplete: %+v", i, sug)
			}
		}
	})

	t.Run("overlong provider reply is truncated", func(t *testing.T) {
		s := NewSuggester(chatFunc(func(ctx context.Context, system, user string) (string, error) {
			return "1. 甲\n2. 乙\n3. 丙\n4. 丁\n5. 戊\n6. 己", nil
		}))

		got := s.Suggest(context.Background(), 3)
		if len(got) != 3 {
			t.Fatalf("len = %d, want 3", len(got))
		}
	})

	t.Run("count beyond combined pool cycles built-ins", func(t *testing.T) {
		s := NewSuggester(chatFunc(func(ctx context.Context, system, user string) (string, error) {
			return "", errors.New("unavailable")
		}))

		got := s.Suggest(context.Background(), 15)
		if len(got) != 15 {
			t.Fatalf("len = %d, want 15", len(got))
		}
	})

	t.Run("nonpositive count uses default", func(t *testing.T) {
		s := NewSuggester(nil)
		got := s.Suggest(context.Background(), 0)
		if len(got) != DefaultCount {
			t.Fatalf("len = %d, want %d", len(got), DefaultCount)
		}
	})

	t.Run("built-in padding never duplicates provider titles", func(t *testing.T) {
		s := NewSuggester(chatFunc(func(ctx context.Context, system, user string) (string, error) {
			return "勇敢的小兔子（勇气）", nil
		}))

		got := s.Suggest(context.Background(), 10)
		seen := make(map[string]int)
		for _, sug := range got {
			seen[sug.Title]++
		}
		if seen["勇敢的小兔子"] != 1 {
			t.Errorf("duplicate title appeared %d times", seen["勇敢的小兔子"])
		}
	})
}
