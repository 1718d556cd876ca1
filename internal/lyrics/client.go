// Package lyrics は楽曲の歌詞取得機能を提供する。
// 取得した歌詞は音楽作品の分析プロンプトを補強するために使用する。
package lyrics

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
)

// Client は歌詞プロバイダーAPIのクライアント。
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient はClientの新しいインスタンスを生成する。
// baseURLは設定のLYRICS_PROVIDERから渡される。
func NewClient(apiKey, baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	return &Client{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

type lyricsResponse struct {
	Lyrics string `json:"lyrics"`
}

// Fetch はアーティスト名と曲名から歌詞を取得する。
// 見つからない場合は空文字列を返す。呼び出し元はエラー時も
// 歌詞なしで分析を続行する。
func (c *Client) Fetch(ctx context.Context, artist, title string) (string, error) {
	reqURL, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse lyrics provider URL: %w", err)
	}

	q := reqURL.Query()
	q.Set("artist", artist)
	q.Set("title", title)
	reqURL.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create lyrics request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("lyrics fetch failed",
			slog.String("error", err.Error()),
			slog.String("title", title),
		)
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", nil
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("lyrics provider returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read lyrics response: %w", err)
	}

	var lyricsResp lyricsResponse
	if err := json.Unmarshal(body, &lyricsResp); err != nil {
		return "", fmt.Errorf("failed to parse lyrics response: %w", err)
	}

	return lyricsResp.Lyrics, nil
}
