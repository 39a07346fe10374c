package models

// Page is one scene of a generated picture book: bilingual text plus the
// prompt that drives its illustration. ImageURL stays empty until the
// illustration pass has produced a picture for the page.
//
// PageNumber values across a story always form a contiguous 1..N range and
// the display order equals ascending PageNumber. The story generator
// enforces this by numbering pages positionally, whatever numbering the
// provider claims.
type Page struct {
	PageNumber                   int    `json:"page_number"`
	Title                        string `json:"title"`
	TitleTranslated              string `json:"title_translated"`
	Narrative                    string `json:"narrative"`
	NarrativeTranslated          string `json:"narrative_translated"`
	IllustrationPrompt           string `json:"illustration_prompt"`
	IllustrationPromptTranslated string `json:"illustration_prompt_translated"`
	ImageURL                     string `json:"image_url,omitempty"`
}

// HasImage reports whether the illustration pass produced a picture
// for this page.
func (p Page) HasImage() bool {
	return p.ImageURL != ""
}
