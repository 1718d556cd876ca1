// Package catalog はTMDB（The Movie Database）による作品検索機能を提供する。
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/MikeLowry-021/sanctifai-core-v1/internal/model"
)

const (
	// defaultBaseURL はTMDB API v3のベースURL。
	defaultBaseURL = "https://api.themoviedb.org/3"
	// posterBaseURL はポスター画像のベースURL。
	posterBaseURL = "https://image.tmdb.org/t/p/w500"
	// maxResults は検索結果の最大件数。
	maxResults = 10
)

// Client はTMDB APIのクライアント。
// マルチ検索エンドポイントを使用して映画・TV番組を横断検索する。
type Client struct {
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
	baseURL    string // テスト用にエンドポイントを差し替え可能
}

// NewClient はClientの新しいインスタンスを生成する。
func NewClient(apiKey string, httpClient *http.Client, logger *slog.Logger) *Client {
	return &Client{
		apiKey:     apiKey,
		httpClient: httpClient,
		logger:     logger,
		baseURL:    defaultBaseURL,
	}
}

// tmdbSearchResponse はTMDB検索エンドポイントのレスポンス。
type tmdbSearchResponse struct {
	Results []tmdbResult `json:"results"`
}

// tmdbResult はTMDB検索結果の1件。映画はtitle/release_date、
// TV番組はname/first_air_dateを使用する。
type tmdbResult struct {
	MediaType    string `json:"media_type"`
	Title        string `json:"title"`
	Name         string `json:"name"`
	ReleaseDate  string `json:"release_date"`
	FirstAirDate string `json:"first_air_date"`
	Overview     string `json:"overview"`
	PosterPath   string `json:"poster_path"`
}

// Search はクエリに一致する作品を検索する。
// mediaTypeが"movie"または"tv"の場合は該当エンドポイントに絞り、
// それ以外はマルチ検索で映画・TV番組を横断する。
func (c *Client) Search(ctx context.Context, query, mediaType string) ([]model.MediaResult, error) {
	endpoint := "/search/multi"
	switch mediaType {
	case "movie":
		endpoint = "/search/movie"
	case "tv":
		endpoint = "/search/tv"
	}

	reqURL, err := url.Parse(c.baseURL + endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to parse search URL: %w", err)
	}

	q := reqURL.Query()
	q.Set("api_key", c.apiKey)
	q.Set("query", query)
	q.Set("include_adult", "false")
	reqURL.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("catalog search request failed",
			slog.String("error", err.Error()),
			slog.String("query", query),
		)
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("catalog search returned error status",
			slog.Int("http_status", resp.StatusCode),
			slog.String("query", query),
		)
		return nil, fmt.Errorf("catalog search failed with status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read search response: %w", err)
	}

	var searchResp tmdbSearchResponse
	if err := json.Unmarshal(body, &searchResp); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}

	results := make([]model.MediaResult, 0, len(searchResp.Results))
	for _, r := range searchResp.Results {
		mapped, ok := mapResult(r, mediaType)
		if !ok {
			continue
		}
		results = append(results, mapped)
		if len(results) >= maxResults {
			break
		}
	}

	return results, nil
}

// mapResult はTMDBの検索結果1件をMediaResultに変換する。
// マルチ検索ではperson等の作品以外のエンティティも返るため除外する。
func mapResult(r tmdbResult, requestedType string) (model.MediaResult, bool) {
	mediaType := r.MediaType
	if mediaType == "" {
		// 単一タイプのエンドポイントではmedia_typeが省略される
		mediaType = requestedType
	}
	if mediaType != "movie" && mediaType != "tv" {
		return model.MediaResult{}, false
	}

	title := r.Title
	date := r.ReleaseDate
	if mediaType == "tv" {
		title = r.Name
		date = r.FirstAirDate
	}
	if title == "" {
		return model.MediaResult{}, false
	}

	releaseYear := ""
	if len(date) >= 4 {
		releaseYear = date[:4]
	}

	posterURL := ""
	if r.PosterPath != "" {
		posterURL = posterBaseURL + r.PosterPath
	}

	return model.MediaResult{
		Title:       title,
		MediaType:   mediaType,
		ReleaseYear: releaseYear,
		Overview:    r.Overview,
		PosterURL:   posterURL,
	}, true
}
