package scrape

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/foliarr/foliarr/pkg/config"
	"github.com/foliarr/foliarr/pkg/errcodes"
	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
)

// Client talks to the external scrape service over its JSON API. The service
// does the actual catalog scraping; this side only validates what comes back.
type Client struct {
	configService *config.Service
	client        *http.Client
}

func NewClient(configService *config.Service) *Client {
	return &Client{
		configService: configService,
		client:        &http.Client{Timeout: 120 * time.Second},
	}
}

func (c *Client) FetchAuthor(ctx context.Context, key string) (*AuthorData, error) {
	body, err := c.get(ctx, "/authors/"+url.PathEscape(key), nil)
	if err != nil {
		return nil, err
	}

	data := &AuthorData{}
	if err := json.Unmarshal(body, data); err != nil {
		return nil, errcodes.ScrapeFailure("parse author response: " + err.Error())
	}
	if err := Validate(data); err != nil {
		return nil, err
	}
	return data, nil
}

func (c *Client) SearchAuthors(ctx context.Context, query string) ([]AuthorRef, error) {
	body, err := c.get(ctx, "/authors", url.Values{"q": []string{query}})
	if err != nil {
		return nil, err
	}

	var refs []AuthorRef
	if err := json.Unmarshal(body, &refs); err != nil {
		return nil, errcodes.ScrapeFailure("parse search response: " + err.Error())
	}
	return refs, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	cfg := c.configService.UserConfig()
	if cfg.ScraperURL == "" {
		return nil, errcodes.ScrapeFailure("no scraper URL configured")
	}

	endpoint := strings.TrimSuffix(cfg.ScraperURL, "/") + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errcodes.ScrapeFailure(err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errcodes.ScrapeFailure("scrape service returned HTTP " + resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errcodes.ScrapeFailure(err.Error())
	}
	return body, nil
}
