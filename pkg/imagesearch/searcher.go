// Package imagesearch looks up an illustrative image URL for a short query.
package imagesearch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// MaxQueryWords bounds queries sent to the search backend.
const MaxQueryWords = 6

type Searcher interface {
	// Search returns the first image URL for query. found is false when the
	// backend had no result.
	Search(ctx context.Context, query string) (imageURL string, found bool, err error)
}

// TrimQuery keeps the first MaxQueryWords words of query.
func TrimQuery(query string) string {
	words := strings.Fields(query)
	if len(words) > MaxQueryWords {
		words = words[:MaxQueryWords]
	}
	return strings.Join(words, " ")
}

type NopSearcher struct{}

func (NopSearcher) Search(context.Context, string) (string, bool, error) {
	return "", false, nil
}

const googleEndpoint = "https://www.googleapis.com/customsearch/v1"

// GoogleSearcher queries the Custom Search JSON API in image mode.
type GoogleSearcher struct {
	apiKey   string
	engineID string
	endpoint string
	client   *http.Client
}

func NewGoogleSearcher(apiKey, engineID string) *GoogleSearcher {
	return NewGoogleSearcherWithEndpoint(apiKey, engineID, googleEndpoint)
}

func NewGoogleSearcherWithEndpoint(apiKey, engineID, endpoint string) *GoogleSearcher {
	return &GoogleSearcher{
		apiKey:   apiKey,
		engineID: engineID,
		endpoint: endpoint,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

type googleResponse struct {
	Items []struct {
		Link string `json:"link"`
	} `json:"items"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (g *GoogleSearcher) Search(ctx context.Context, query string) (string, bool, error) {
	query = TrimQuery(query)
	if query == "" {
		return "", false, nil
	}

	params := url.Values{}
	params.Set("key", g.apiKey)
	params.Set("cx", g.engineID)
	params.Set("q", query)
	params.Set("searchType", "image")
	params.Set("num", "1")
	params.Set("safe", "active")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return "", false, fmt.Errorf("create request: %w", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return "", false, fmt.Errorf("image search request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", false, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", false, fmt.Errorf("image search error (status %d): %s", resp.StatusCode, string(body))
	}

	var out googleResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", false, fmt.Errorf("decode response: %w", err)
	}
	if out.Error != nil {
		return "", false, fmt.Errorf("image search returned error %d: %s", out.Error.Code, out.Error.Message)
	}
	if len(out.Items) == 0 || out.Items[0].Link == "" {
		return "", false, nil
	}
	return out.Items[0].Link, true, nil
}
