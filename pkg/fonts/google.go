// google.go - Google Fonts webfonts API client. A missing API key is a valid
// configuration: URL lookups then report no result and callers fall back to
// the embedded fonts.
package fonts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"
)

// DefaultAPIBase is the Google Fonts webfonts endpoint.
const DefaultAPIBase = "https://www.googleapis.com/webfonts/v1/webfonts"

const maxFontBytes = 16 << 20

var (
	// ErrNoAPIKey is returned by listing calls when no key is configured.
	ErrNoAPIKey = errors.New("google fonts API key is not configured")
	// ErrNotFound means the family/weight has no downloadable file.
	ErrNotFound = errors.New("font not found")
)

// Client talks to the Google Fonts API.
type Client struct {
	APIKey  string
	BaseURL string
	HTTP    *http.Client
}

// NewClient creates a client with the given per-request timeout.
func NewClient(apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		APIKey:  apiKey,
		BaseURL: DefaultAPIBase,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

// FontInfo describes one family available from the API.
type FontInfo struct {
	Family  string `json:"family"`
	Weights []int  `json:"weights"`
	Subset  string `json:"subset"`
}

type webfont struct {
	Family   string            `json:"family"`
	Variants []string          `json:"variants"`
	Subsets  []string          `json:"subsets"`
	Files    map[string]string `json:"files"`
}

type webfontList struct {
	Items []webfont `json:"items"`
}

// GetFontURL returns the download URL of family at weight. It returns ""
// with a nil error when no key is configured or the family is unknown; an
// unavailable weight falls back to the family's regular file.
func (c *Client) GetFontURL(ctx context.Context, family string, weight int) (string, error) {
	if c.APIKey == "" {
		return "", nil
	}
	q := url.Values{"family": {family}, "key": {c.APIKey}}
	list, err := c.query(ctx, q)
	if err != nil {
		return "", err
	}
	if len(list.Items) == 0 || list.Items[0].Files == nil {
		return "", nil
	}
	files := list.Items[0].Files
	if u := files[strconv.Itoa(weight)]; u != "" {
		return u, nil
	}
	return files["regular"], nil
}

// ListAvailableFonts returns up to limit families (by popularity) that
// cover subset.
func (c *Client) ListAvailableFonts(ctx context.Context, subset string, limit int) ([]FontInfo, error) {
	if c.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	if subset == "" {
		subset = "latin"
	}
	if limit <= 0 {
		limit = 100
	}

	q := url.Values{"sort": {"popularity"}, "capability": {"WOFF2"}, "key": {c.APIKey}}
	list, err := c.query(ctx, q)
	if err != nil {
		return nil, err
	}

	var out []FontInfo
	for _, f := range list.Items {
		if len(out) == limit {
			break
		}
		if !slices.Contains(f.Subsets, subset) {
			continue
		}
		out = append(out, FontInfo{Family: f.Family, Weights: parseWeights(f.Variants), Subset: subset})
	}
	return out, nil
}

// Download fetches a font file.
func (c *Client) Download(ctx context.Context, fontURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fontURL, nil)
	if err != nil {
		return nil, fmt.Errorf("font request: %w", err)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch font: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch font %s: status %d", fontURL, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFontBytes))
	if err != nil {
		return nil, fmt.Errorf("read font: %w", err)
	}
	return data, nil
}

// Load resolves and downloads family at weight.
func (c *Client) Load(ctx context.Context, family string, weight int) ([]byte, error) {
	u, err := c.GetFontURL(ctx, family, weight)
	if err != nil {
		return nil, err
	}
	if u == "" {
		return nil, fmt.Errorf("%w: %s %d", ErrNotFound, family, weight)
	}
	return c.Download(ctx, u)
}

func (c *Client) query(ctx context.Context, q url.Values) (*webfontList, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("webfonts request: %w", err)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("webfonts query: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("webfonts query: %s", resp.Status)
	}
	var list webfontList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("decode webfonts: %w", err)
	}
	return &list, nil
}

// parseWeights maps API variant names ("regular", "700", "700italic") to
// upright numeric weights.
func parseWeights(variants []string) []int {
	var out []int
	for _, v := range variants {
		if strings.HasSuffix(v, "italic") {
			continue
		}
		w := 400
		if v != "regular" {
			n, err := strconv.Atoi(v)
			if err != nil {
				continue
			}
			w = n
		}
		if !slices.Contains(out, w) {
			out = append(out, w)
		}
	}
	slices.Sort(out)
	return out
}
