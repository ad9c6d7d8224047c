package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	apperrors "tanyabot/errors"
)

const (
	DefaultBingEndpoint      = "https://api.bing.microsoft.com/v7.0/search"
	DefaultWikipediaEndpoint = "https://id.wikipedia.org/w/api.php"
	DefaultTimeout           = 5 * time.Second

	// maxResponseBytes caps how much of a search response is read.
	maxResponseBytes = 1 << 20
)

// Source is one external knowledge provider. Search returns the raw snippet of
// the top result, or "" when the provider found nothing.
type Source interface {
	Name() string
	Search(ctx context.Context, query string) (string, error)
}

type bingResponse struct {
	WebPages struct {
		Value []struct {
			Snippet string `json:"snippet"`
		} `json:"value"`
	} `json:"webPages"`
}

// BingSource queries the Bing Web Search v7 API.
type BingSource struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

func NewBingSource(endpoint, apiKey string, httpClient *http.Client) *BingSource {
	if endpoint == "" {
		endpoint = DefaultBingEndpoint
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &BingSource{endpoint: endpoint, apiKey: apiKey, httpClient: httpClient}
}

func (s *BingSource) Name() string { return "bing" }

func (s *BingSource) Search(ctx context.Context, query string) (string, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("textDecorations", "true")
	params.Set("textFormat", "HTML")
	params.Set("setLang", "id")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return "", apperrors.WrapError(apperrors.ErrLookup, fmt.Sprintf("create bing request: %v", err))
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", s.apiKey)

	var br bingResponse
	if err := getJSON(s.httpClient, req, &br); err != nil {
		return "", apperrors.WrapError(err, "bing")
	}
	if len(br.WebPages.Value) == 0 {
		return "", nil
	}
	return br.WebPages.Value[0].Snippet, nil
}

type wikipediaResponse struct {
	Query struct {
		Search []struct {
			Title   string `json:"title"`
			Snippet string `json:"snippet"`
		} `json:"search"`
	} `json:"query"`
}

// WikipediaSource queries the MediaWiki search API, Indonesian edition by default.
type WikipediaSource struct {
	endpoint   string
	httpClient *http.Client
}

func NewWikipediaSource(endpoint string, httpClient *http.Client) *WikipediaSource {
	if endpoint == "" {
		endpoint = DefaultWikipediaEndpoint
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &WikipediaSource{endpoint: endpoint, httpClient: httpClient}
}

func (s *WikipediaSource) Name() string { return "wikipedia" }

func (s *WikipediaSource) Search(ctx context.Context, query string) (string, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("list", "search")
	params.Set("srsearch", query)
	params.Set("format", "json")
	params.Set("utf8", "1")
	params.Set("srlimit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return "", apperrors.WrapError(apperrors.ErrLookup, fmt.Sprintf("create wikipedia request: %v", err))
	}
	req.Header.Set("User-Agent", "tanyabot/1.0")

	var wr wikipediaResponse
	if err := getJSON(s.httpClient, req, &wr); err != nil {
		return "", apperrors.WrapError(err, "wikipedia")
	}
	if len(wr.Query.Search) == 0 {
		return "", nil
	}
	return wr.Query.Search[0].Snippet, nil
}

// getJSON performs req and decodes a 2xx body into out. Every failure matches errors.ErrLookup.
func getJSON(client *http.Client, req *http.Request, out any) error {
	resp, err := client.Do(req)
	if err != nil {
		return apperrors.WrapError(apperrors.ErrLookup, err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return apperrors.WrapError(apperrors.ErrLookup, fmt.Sprintf("read response: %v", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apperrors.WrapErrorf(apperrors.ErrLookup, "status %s", resp.Status)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return apperrors.WrapError(apperrors.ErrLookup, fmt.Sprintf("decode response: %v", err))
	}
	return nil
}
