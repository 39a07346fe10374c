package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"picbook/pkg/models"
)

const defaultBaseURL = "http://localhost:8080"

type tokenData struct {
	Token string `json:"token"`
}

type authResponse struct {
	Token string `json:"token"`
}

type themesResponse struct {
	Count int                      `json:"count"`
	Items []models.ThemeSuggestion `json:"items"`
}

type pagesResponse struct {
	Pages       []models.Page `json:"pages"`
	FailedPages []int         `json:"failed_pages"`
}

type storiesResponse struct {
	Total int            `json:"total"`
	Items []models.Story `json:"items"`
}

func main() {
	global := flag.NewFlagSet("picbook", flag.ExitOnError)
	baseURL := global.String("api", defaultBaseURL, "API base URL")
	tokenPath := global.String("token", defaultTokenPath(), "token file path")
	if err := global.Parse(os.Args[1:]); err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	args := global.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	ctx := context.Background()
	cmd := args[0]
	sub := ""
	if len(args) > 1 {
		sub = args[1]
	}

	// story generation can take a while; generous client timeout
	client := &http.Client{Timeout: 5 * time.Minute}

	switch cmd {
	case "auth":
		handleAuth(ctx, client, *baseURL, *tokenPath, sub, args[2:])
	case "themes":
		handleThemes(ctx, client, *baseURL, args[1:])
	case "create":
		handleCreate(ctx, client, *baseURL, *tokenPath, sub, args[2:])
	case "stories":
		handleStories(ctx, client, *baseURL, *tokenPath, sub, args[2:])
	case "watch":
		handleWatch(*baseURL)
	default:
		printUsage()
		os.Exit(1)
	}
}

func handleAuth(ctx context.Context, client *http.Client, baseURL, tokenPath, sub string, args []string) {
	switch sub {
	case "send-code":
		fs := flag.NewFlagSet("auth send-code", flag.ExitOnError)
		phone := fs.String("phone", "", "phone number")
		_ = fs.Parse(args)

		if *phone == "" {
			log.Fatal("phone is required")
		}

		payload := map[string]string{"phone": *phone}
		if err := doJSON(ctx, client, http.MethodPost, baseURL+"/auth/send-code", "", payload, nil); err != nil {
			log.Fatalf("send code failed: %v", err)
		}
		fmt.Println("✅ code sent (check the server log)")
	case "verify":
		fs := flag.NewFlagSet("auth verify", flag.ExitOnError)
		phone := fs.String("phone", "", "phone number")
		code := fs.String("code", "", "verification code")
		_ = fs.Parse(args)

		if *phone == "" || *code == "" {
			log.Fatal("phone and code are required")
		}

		payload := map[string]string{"phone": *phone, "code": *code}
		var resp authResponse
		if err := doJSON(ctx, client, http.MethodPost, baseURL+"/auth/verify", "", payload, &resp); err != nil {
			log.Fatalf("verify failed: %v", err)
		}
		if err := saveToken(tokenPath, resp.Token); err != nil {
			log.Fatalf("save token: %v", err)
		}
		fmt.Println("✅ logged in")
	case "logout":
		token := mustToken(tokenPath)
		if err := doJSON(ctx, client, http.MethodPost, baseURL+"/auth/logout", token, nil, nil); err != nil {
			log.Fatalf("logout failed: %v", err)
		}
		if err := clearToken(tokenPath); err != nil {
			log.Fatalf("clear token: %v", err)
		}
		fmt.Println("✅ logged out")
	default:
		printUsage()
		os.Exit(1)
	}
}

func handleThemes(ctx context.Context, client *http.Client, baseURL string, args []string) {
	fs := flag.NewFlagSet("themes", flag.ExitOnError)
	count := fs.Int("count", 5, "number of suggestions")
	_ = fs.Parse(args)

	u := fmt.Sprintf("%s/themes/suggestions?count=%d", baseURL, *count)
	var resp themesResponse
	if err := doJSON(ctx, client, http.MethodGet, u, "", nil, &resp); err != nil {
		log.Fatalf("themes failed: %v", err)
	}
	for i, t := range resp.Items {
		fmt.Printf("%2d. %s（%s）\n", i+1, t.Title, t.Category)
	}
}

func handleCreate(ctx context.Context, client *http.Client, baseURL, tokenPath, sub string, args []string) {
	token := mustToken(tokenPath)

	switch sub {
	case "story":
		fs := flag.NewFlagSet("create story", flag.ExitOnError)
		theme := fs.String("theme", "", "story theme")
		_ = fs.Parse(args)

		if strings.TrimSpace(*theme) == "" {
			log.Fatal("theme is required")
		}

		var resp pagesResponse
		payload := map[string]string{"theme": *theme}
		if err := doJSON(ctx, client, http.MethodPost, baseURL+"/users/workflow/story", token, payload, &resp); err != nil {
			log.Fatalf("story generation failed: %v", err)
		}
		for _, p := range resp.Pages {
			fmt.Printf("--- Scene %d: %s | %s ---\n%s\n\n", p.PageNumber, p.Title, p.TitleTranslated, p.Narrative)
		}
	case "advance":
		if err := doJSON(ctx, client, http.MethodPost, baseURL+"/users/workflow/advance", token, struct{}{}, nil); err != nil {
			log.Fatalf("advance failed: %v", err)
		}
		fmt.Println("✅ now on illustration settings")
	case "back":
		if err := doJSON(ctx, client, http.MethodPost, baseURL+"/users/workflow/back", token, struct{}{}, nil); err != nil {
			log.Fatalf("back failed: %v", err)
		}
		fmt.Println("✅ back to story review")
	case "illustrate":
		fs := flag.NewFlagSet("create illustrate", flag.ExitOnError)
		style := fs.String("style", "watercolor", "style id")
		ratio := fs.String("ratio", "16:9", "aspect ratio")
		_ = fs.Parse(args)

		payload := map[string]string{"style_id": *style, "aspect_ratio": *ratio}
		var resp pagesResponse
		if err := doJSON(ctx, client, http.MethodPost, baseURL+"/users/workflow/illustrations", token, payload, &resp); err != nil {
			log.Fatalf("illustration failed: %v", err)
		}
		for _, p := range resp.Pages {
			mark := "✅"
			if p.ImageURL == "" {
				mark = "⚠️ no image"
			}
			fmt.Printf("Scene %d: %s %s\n", p.PageNumber, mark, p.ImageURL)
		}
		if len(resp.FailedPages) > 0 {
			fmt.Printf("pages without illustration: %v (re-run illustrate to retry)\n", resp.FailedPages)
		}
	case "save":
		fs := flag.NewFlagSet("create save", flag.ExitOnError)
		title := fs.String("title", "", "book title (defaults to the theme)")
		_ = fs.Parse(args)

		var saved models.Story
		payload := map[string]string{"title": *title}
		if err := doJSON(ctx, client, http.MethodPost, baseURL+"/users/workflow/save", token, payload, &saved); err != nil {
			log.Fatalf("save failed: %v", err)
		}
		fmt.Printf("✅ saved %q (%s), %d pages\n", saved.Title, saved.ID, len(saved.Pages))
	case "status":
		var snap map[string]any
		if err := doJSON(ctx, client, http.MethodGet, baseURL+"/users/workflow", token, nil, &snap); err != nil {
			log.Fatalf("status failed: %v", err)
		}
		printJSON(snap)
	case "reset":
		if err := doJSON(ctx, client, http.MethodPost, baseURL+"/users/workflow/reset", token, struct{}{}, nil); err != nil {
			log.Fatalf("reset failed: %v", err)
		}
		fmt.Println("✅ workflow reset")
	default:
		printUsage()
		os.Exit(1)
	}
}

func handleStories(ctx context.Context, client *http.Client, baseURL, tokenPath, sub string, args []string) {
	token := mustToken(tokenPath)

	switch sub {
	case "list":
		var resp storiesResponse
		if err := doJSON(ctx, client, http.MethodGet, baseURL+"/users/stories", token, nil, &resp); err != nil {
			log.Fatalf("list failed: %v", err)
		}
		for _, s := range resp.Items {
			fmt.Printf("%s  %s  (%d pages, %s)\n", s.ID, s.Title, len(s.Pages), s.CreatedAt.Format("2006-01-02"))
		}
	case "show":
		fs := flag.NewFlagSet("stories show", flag.ExitOnError)
		id := fs.String("id", "", "story id")
		_ = fs.Parse(args)
		if *id == "" {
			log.Fatal("id is required")
		}

		var s models.Story
		if err := doJSON(ctx, client, http.MethodGet, baseURL+"/users/stories/"+*id, token, nil, &s); err != nil {
			log.Fatalf("show failed: %v", err)
		}
		printJSON(s)
	case "delete":
		fs := flag.NewFlagSet("stories delete", flag.ExitOnError)
		id := fs.String("id", "", "story id")
		_ = fs.Parse(args)
		if *id == "" {
			log.Fatal("id is required")
		}

		if err := doJSON(ctx, client, http.MethodDelete, baseURL+"/users/stories/"+*id, token, nil, nil); err != nil {
			log.Fatalf("delete failed: %v", err)
		}
		fmt.Println("✅ deleted")
	case "export":
		fs := flag.NewFlagSet("stories export", flag.ExitOnError)
		format := fs.String("format", "json", "json or csv")
		out := fs.String("out", "", "output path")
		_ = fs.Parse(args)

		var resp storiesResponse
		if err := doJSON(ctx, client, http.MethodGet, baseURL+"/users/stories", token, nil, &resp); err != nil {
			log.Fatalf("export failed: %v", err)
		}

		switch *format {
		case "json":
			path := *out
			if path == "" {
				path = "data/stories.json"
			}
			if err := writeJSON(path, resp.Items); err != nil {
				log.Fatalf("write json: %v", err)
			}
			fmt.Printf("✅ exported %d stories to %s\n", len(resp.Items), path)
		case "csv":
			path := *out
			if path == "" {
				path = "data/stories.csv"
			}
			if err := writeCSV(path, resp.Items); err != nil {
				log.Fatalf("write csv: %v", err)
			}
			fmt.Printf("✅ exported %d stories to %s\n", len(resp.Items), path)
		default:
			log.Fatalf("unknown format: %s", *format)
		}
	default:
		printUsage()
		os.Exit(1)
	}
}

func handleWatch(baseURL string) {
	wsURL, err := websocketURL(baseURL, "/ws")
	if err != nil {
		log.Fatalf("bad base url: %v", err)
	}
	if err := runWebSocket(wsURL); err != nil {
		log.Fatalf("watch failed: %v", err)
	}
}

func runWebSocket(wsURL string) error {
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	log.Printf("[watch] connected to %s", wsURL)
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		fmt.Println(strings.TrimSpace(string(msg)))
	}
}

func writeJSON(path string, items []models.Story) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

func writeCSV(path string, items []models.Story) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{
		"id", "title", "theme", "pages", "style_id", "aspect_ratio", "created_at",
	}); err != nil {
		return err
	}
	for _, s := range items {
		if err := writer.Write([]string{
			s.ID,
			s.Title,
			s.Theme,
			fmt.Sprintf("%d", len(s.Pages)),
			s.StyleID,
			s.AspectRatio,
			s.CreatedAt.Format(time.RFC3339),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func doJSON(ctx context.Context, client *http.Client, method, endpoint, token string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = strings.NewReader(string(b))
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s failed: %s", method, endpoint, strings.TrimSpace(string(data)))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return err
	}
	return nil
}

func printJSON(v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("json: %v", err)
	}
	fmt.Println(string(b))
}

func defaultTokenPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./.picbook-token.json"
	}
	return filepath.Join(home, ".picbook", "token.json")
}

func saveToken(path, token string) error {
	if token == "" {
		return errors.New("empty token")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(tokenData{Token: token}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func readToken(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	var td tokenData
	if err := json.Unmarshal(data, &td); err != nil {
		return "", err
	}
	return strings.TrimSpace(td.Token), nil
}

func mustToken(path string) string {
	token, err := readToken(path)
	if err != nil {
		log.Fatalf("token not found, please login: %v", err)
	}
	if token == "" {
		log.Fatal("token empty, please login")
	}
	return token
}

func clearToken(path string) error {
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	return nil
}

func websocketURL(baseURL, path string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	scheme := "ws"
	if u.Scheme == "https" {
		scheme = "wss"
	}
	return (&url.URL{
		Scheme: scheme,
		Host:   u.Host,
		Path:   path,
	}).String(), nil
}

func printUsage() {
	fmt.Println("picbook <command> [subcommand] [flags]")
	fmt.Println("commands:")
	fmt.Println("  auth send-code|verify|logout")
	fmt.Println("  themes [-count N]")
	fmt.Println("  create story|advance|back|illustrate|save|status|reset")
	fmt.Println("  stories list|show|delete|export")
	fmt.Println("  watch")
}
