package catalog

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pugtube/pugtube/pkg/logger"
)

const (
	defaultBaseURL = "https://api.pexels.com/videos"

	popularVideosTemplate = "%s/popular?per_page=%d&min_duration=%d&max_duration=%d"

	requestTimeout = time.Second * 30
)

const (
	DefaultQuantity    = 40
	DefaultMinDuration = 60
	DefaultMaxDuration = 120
)

var log = logger.Get("Catalog")

type (
	Config struct {
		// APIKey is sent verbatim as the Authorization header on every
		// catalog request.
		APIKey string `yaml:"api_key" env:"PEXELS_API_KEY" env-required:"true"`

		// BaseURL overrides the production catalog host; mainly used
		// by tests. Leave empty for the default.
		BaseURL string `yaml:"base_url" env:"PEXELS_BASE_URL"`
	}

	// VideoFile is one downloadable binary rendition of a catalog video.
	VideoFile struct {
		Link     string  `json:"link"`
		Quality  string  `json:"quality"`
		FileType string  `json:"file_type"`
		Fps      float64 `json:"fps"`
	}

	// Video is a single candidate record as returned by the catalog. It is
	// ephemeral; it exists only for the duration of one ingestion cycle and
	// is never persisted verbatim.
	Video struct {
		ID         int         `json:"id"`
		URL        string      `json:"url"`
		Width      int         `json:"width"`
		Height     int         `json:"height"`
		Duration   int         `json:"duration"`
		VideoFiles []VideoFile `json:"video_files"`
	}

	// Page holds one page of popular videos, in the order the catalog
	// returned them. That order is treated as relevance order and is
	// preserved downstream.
	Page struct {
		Videos []Video `json:"videos"`
	}

	// client is the primary access point to the external stock-video
	// catalog ("popular videos" endpoint). Each FetchPopular call uses a
	// fresh connection; no connection reuse is guaranteed across calls.
	client struct {
		config Config
	}
)

func NewClient(config Config) *client {
	return &client{config}
}

// FetchPopular requests one page of popular videos from the catalog,
// filtered by duration bounds. Any transport error, non-2xx response or
// undecodable payload results in a *CatalogUnavailableError; the caller
// receives no partial data.
func (client *client) FetchPopular(quantity int, minDuration int, maxDuration int) (*Page, error) {
	baseURL := client.config.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	path := fmt.Sprintf(popularVideosTemplate, baseURL, quantity, minDuration, maxDuration)
	log.Emit(logger.DEBUG, "Fetching popular videos from %s\n", path)

	var page Page
	if err := client.httpGetJsonResponse(path, &page); err != nil {
		return nil, err
	}

	return &page, nil
}

func (client *client) httpGetJsonResponse(urlPath string, targetInterface interface{}) error {
	req, err := http.NewRequest(http.MethodGet, urlPath, nil)
	if err != nil {
		return &CatalogUnavailableError{target: urlPath, reason: err.Error()}
	}

	req.Header.Set("Authorization", client.config.APIKey)
	req.Close = true

	httpClient := &http.Client{Timeout: requestTimeout}
	resp, err := httpClient.Do(req)
	if err != nil {
		return &CatalogUnavailableError{target: urlPath, reason: fmt.Sprintf("failed to perform GET: %s", err.Error())}
	}

	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &CatalogUnavailableError{target: urlPath, httpCode: resp.StatusCode, reason: "non-OK response from catalog"}
	}

	if err != nil {
		return &CatalogUnavailableError{target: urlPath, reason: fmt.Sprintf("failed to read response body: %s", err.Error())}
	}

	if err := json.Unmarshal(respBody, targetInterface); err != nil {
		return &CatalogUnavailableError{target: urlPath, reason: fmt.Sprintf("response JSON could not be unmarshalled: %s", err.Error())}
	}

	return nil
}

// CatalogUnavailableError indicates the catalog query failed as a whole -
// transport failure, non-2xx response, or a malformed payload. It carries
// the failed request's target so operators can see which call failed.
type CatalogUnavailableError struct {
	target   string
	httpCode int
	reason   string
}

func (err *CatalogUnavailableError) Error() string {
	if err.httpCode != 0 {
		return fmt.Sprintf("catalog request to %s failed (HTTP %d): %s", err.target, err.httpCode, err.reason)
	}

	return fmt.Sprintf("catalog request to %s failed: %s", err.target, err.reason)
}

func (err *CatalogUnavailableError) Target() string { return err.target }
