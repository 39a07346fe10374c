package models

import "fmt"

// IllustrationConfig is the style snapshot applied uniformly to every page
// of one illustration pass. Re-running the pass with a different config
// overwrites all image URLs.
type IllustrationConfig struct {
	StyleID     string `json:"style_id"`
	Style       string `json:"style,omitempty"`    // provider style family, filled by Normalize
	Substyle    string `json:"substyle,omitempty"` // provider substyle, filled by Normalize
	AspectRatio string `json:"aspect_ratio"`
	Size        string `json:"size,omitempty"` // resolved pixel size, e.g. "1820x1024"
}

// IllustrationStyle is one entry of the style catalog shown on the
// illustration-settings step.
type IllustrationStyle struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Style    string `json:"style"`    // provider style family
	Substyle string `json:"substyle"` // provider substyle
}

// Styles is the supported style catalog, mapped onto the image provider's
// style/substyle pairs.
var Styles = []IllustrationStyle{
	{ID: "fairytale", Name: "童话风", Style: "digital_illustration", Substyle: "hand_drawn"},
	{ID: "realistic", Name: "写实风", Style: "realistic_image", Substyle: "natural_light"},
	{ID: "watercolor", Name: "水彩风", Style: "digital_illustration", Substyle: "watercolor"},
	{ID: "cartoon", Name: "卡通风", Style: "digital_illustration", Substyle: "2d_art_poster"},
	{ID: "sketch", Name: "素描风", Style: "digital_illustration", Substyle: "pencil_sketch"},
	{ID: "pixel", Name: "像素风", Style: "digital_illustration", Substyle: "pixel_art"},
	{ID: "oil", Name: "油画风", Style: "digital_illustration", Substyle: "oil_painting"},
	{ID: "comic", Name: "漫画风", Style: "digital_illustration", Substyle: "comic_book"},
	{ID: "papercut", Name: "剪纸风", Style: "digital_illustration", Substyle: "paper_cutout"},
	{ID: "ink", Name: "国画风", Style: "digital_illustration", Substyle: "ink_wash"},
}

// sizes per supported aspect ratio, chosen from the provider's fixed
// resolution grid.
var ratioSizes = map[string]string{
	"16:9": "1820x1024",
	"4:3":  "1365x1024",
	"1:1":  "1024x1024",
}

// AspectRatios lists the supported ratios in display order.
func AspectRatios() []string {
	return []string{"16:9", "4:3", "1:1"}
}

// StyleByID looks up a catalog entry.
func StyleByID(id string) (IllustrationStyle, bool) {
	for _, s := range Styles {
		if s.ID == id {
			return s, true
		}
	}
	return IllustrationStyle{}, false
}

// Normalize validates the config against the catalogs and fills in the
// provider substyle and resolved pixel size.
func (c IllustrationConfig) Normalize() (IllustrationConfig, error) {
	style, ok := StyleByID(c.StyleID)
	if !ok {
		return c, fmt.Errorf("unknown style: %q", c.StyleID)
	}

	size, ok := ratioSizes[c.AspectRatio]
	if !ok {
		return c, fmt.Errorf("unsupported aspect ratio: %q", c.AspectRatio)
	}

	c.Style = style.Style
	c.Substyle = style.Substyle
	c.Size = size
	return c, nil
}
