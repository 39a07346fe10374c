package main

import (
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"flag"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"picbook/pkg/database"
	"picbook/pkg/models"
)

func main() {
	var (
		storiesOut = flag.String("stories", "data/stories.csv", "output CSV path for stories")
		pagesOut   = flag.String("pages", "data/pages.csv", "output CSV path for story pages")
	)
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db := database.MustOpen(database.DefaultConfig())
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	if err := exportStories(ctx, db, *storiesOut); err != nil {
		log.Fatalf("export stories failed: %v", err)
	}
	if err := exportPages(ctx, db, *pagesOut); err != nil {
		log.Fatalf("export pages failed: %v", err)
	}

	log.Printf("✅ exported stories to %s and pages to %s", *storiesOut, *pagesOut)
}

func exportStories(ctx context.Context, db *sql.DB, outPath string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}

	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"id", "owner_id", "title", "theme", "page_count", "style_id", "aspect_ratio", "created_at"}); err != nil {
		return err
	}

	rows, err := db.QueryContext(ctx, `
        SELECT id, owner_id, title, theme, pages, style_id, aspect_ratio, created_at
        FROM stories
        ORDER BY created_at DESC
    `)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id          string
			ownerID     string
			title       string
			theme       sql.NullString
			pagesJSON   sql.NullString
			styleID     sql.NullString
			aspectRatio sql.NullString
			createdAt   sql.NullTime
		)

		if err := rows.Scan(&id, &ownerID, &title, &theme, &pagesJSON, &styleID, &aspectRatio, &createdAt); err != nil {
			return err
		}

		count := ""
		if pagesJSON.Valid && pagesJSON.String != "" {
			var pages []models.Page
			if err := json.Unmarshal([]byte(pagesJSON.String), &pages); err == nil {
				count = strconv.Itoa(len(pages))
			}
		}

		created := ""
		if createdAt.Valid {
			created = createdAt.Time.Format(time.RFC3339)
		}

		if err := w.Write([]string{
			id,
			ownerID,
			title,
			theme.String,
			count,
			styleID.String,
			aspectRatio.String,
			created,
		}); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	w.Flush()
	return w.Error()
}

func exportPages(ctx context.Context, db *sql.DB, outPath string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}

	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"story_id", "page_number", "title", "title_en", "narrative", "narrative_en", "image_url"}); err != nil {
		return err
	}

	rows, err := db.QueryContext(ctx, `
        SELECT id, pages
        FROM stories
        ORDER BY created_at DESC
    `)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id        string
			pagesJSON sql.NullString
		)

		if err := rows.Scan(&id, &pagesJSON); err != nil {
			return err
		}
		if !pagesJSON.Valid || pagesJSON.String == "" {
			continue
		}

		var pages []models.Page
		if err := json.Unmarshal([]byte(pagesJSON.String), &pages); err != nil {
			log.Printf("[export] skipping story %s: malformed pages: %v", id, err)
			continue
		}

		for _, p := range pages {
			if err := w.Write([]string{
				id,
				strconv.Itoa(p.PageNumber),
				p.Title,
				p.TitleTranslated,
				p.Narrative,
				p.NarrativeTranslated,
				p.ImageURL,
			}); err != nil {
				return err
			}
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	w.Flush()
	return w.Error()
}
