package provider

import (
	"context"
	"hash/fnv"
	"log"
)

// placeholder pictures served when the image provider runs in mock mode.
var mockImageURLs = []string{
	"https://picsum.photos/800/600?random=1",
	"https://picsum.photos/800/600?random=2",
	"https://picsum.photos/800/600?random=3",
	"https://picsum.photos/800/600?random=4",
	"https://picsum.photos/800/600?random=5",
}

// MockImageClient returns canned placeholder URLs without touching the
// network. Enabled with PICBOOK_MOCK_IMAGES=true so the whole workflow
// can be exercised without an image API key.
type MockImageClient struct{}

func (MockImageClient) Generate(_ context.Context, r ImageRequest) (string, error) {
	h := fnv.New32a()
	_, _ = h.Write([]byte(r.Prompt))
	url := mockImageURLs[int(h.Sum32())%len(mockImageURLs)]
	log.Printf("[image-mock] prompt %q -> %s", truncate(r.Prompt, 40), url)
	return url, nil
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "…"
}
