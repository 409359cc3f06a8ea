package indexer

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/foliarr/foliarr/pkg/config"
	"github.com/foliarr/foliarr/pkg/errcodes"
	"github.com/foliarr/foliarr/pkg/fuzzy"
	"github.com/foliarr/foliarr/pkg/models"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/segmentio/encoding/json"
	"golang.org/x/time/rate"
)

const manualPageSize = 50

// Newznab queries a newznab-compatible indexer over its JSON API. Calls are
// serialized through a rate limiter so back-to-back ladder queries respect
// the indexer's minimum interval.
type Newznab struct {
	configService *config.Service
	client        *http.Client
	limiter       *rate.Limiter
}

func NewNewznab(configService *config.Service) *Newznab {
	cfg := configService.UserConfig()
	interval := time.Duration(cfg.IndexerMinInterval) * time.Second
	if interval <= 0 {
		interval = time.Second
	}
	return &Newznab{
		configService: configService,
		client:        &http.Client{Timeout: 60 * time.Second},
		limiter:       rate.NewLimiter(rate.Every(interval), 1),
	}
}

// QueryBook walks the query ladder and returns the best release of the first
// query whose best result scores above the similarity threshold.
func (n *Newznab) QueryBook(ctx context.Context, book *models.Book, audio bool) (*Release, error) {
	log := logger.FromContext(ctx)
	cfg := n.configService.UserConfig()

	for _, query := range buildQueries(book) {
		releases, _, err := n.search(ctx, query, audio, 0)
		if err != nil {
			return nil, err
		}
		if len(releases) == 0 {
			continue
		}

		names := make([]string, len(releases))
		for i, r := range releases {
			names[i] = r.Name
		}
		idx, score := fuzzy.BestMatch(query, names)
		log.Info("indexer query", logger.Data{
			"query":   query,
			"results": len(releases),
			"score":   score,
		})
		if score > cfg.IndexerMatchThreshold {
			return &releases[idx], nil
		}
	}

	return nil, nil
}

// QueryManual returns one raw result page for the first ladder query, for an
// operator to pick from by hand.
func (n *Newznab) QueryManual(ctx context.Context, book *models.Book, page int, audio bool) (*ManualPage, error) {
	queries := buildQueries(book)
	if len(queries) == 0 {
		return &ManualPage{}, nil
	}
	query := queries[0]

	releases, total, err := n.search(ctx, query, audio, page*manualPageSize)
	if err != nil {
		return nil, err
	}

	pages := (total + manualPageSize - 1) / manualPageSize
	if pages == 0 && len(releases) > 0 {
		pages = 1
	}
	return &ManualPage{Query: query, Releases: releases, Pages: pages}, nil
}

// Grab downloads the NZB payload behind a release link.
func (n *Newznab) Grab(ctx context.Context, link string) ([]byte, error) {
	if err := n.limiter.Wait(ctx); err != nil {
		return nil, errors.WithStack(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	resp, err := n.client.Do(req)
	if err != nil {
		return nil, errcodes.IndexerFailure(err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errcodes.IndexerFailure("indexer grab returned status " + resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errcodes.IndexerFailure(err.Error())
	}
	return data, nil
}

func (n *Newznab) search(ctx context.Context, query string, audio bool, offset int) ([]Release, int, error) {
	if err := n.limiter.Wait(ctx); err != nil {
		return nil, 0, errors.WithStack(err)
	}

	cfg := n.configService.UserConfig()
	if cfg.IndexerURL == "" {
		return nil, 0, errcodes.IndexerFailure("no indexer configured")
	}

	category := cfg.IndexerBookCategory
	if audio {
		category = cfg.IndexerAudioCategory
	}

	params := url.Values{}
	params.Set("t", "search")
	params.Set("apikey", cfg.IndexerAPIKey)
	params.Set("q", query)
	params.Set("cat", strconv.Itoa(category))
	params.Set("o", "json")
	params.Set("limit", strconv.Itoa(manualPageSize))
	params.Set("offset", strconv.Itoa(offset))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.IndexerURL+"/api?"+params.Encode(), nil)
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}
	resp, err := n.client.Do(req)
	if err != nil {
		return nil, 0, errcodes.IndexerFailure(err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, 0, errcodes.IndexerFailure("indexer returned status " + resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, errcodes.IndexerFailure(err.Error())
	}

	return parseSearchResponse(body)
}

// newznab JSON is RSS squeezed into JSON: a single item arrives as an object
// instead of a one-element array, and attributes hide in "@attributes" maps.
type searchResponse struct {
	Channel struct {
		Response struct {
			Attributes struct {
				Total string `json:"total"`
			} `json:"@attributes"`
		} `json:"response"`
		Item json.RawMessage `json:"item"`
	} `json:"channel"`
}

type searchItem struct {
	Title     string `json:"title"`
	GUID      string `json:"guid"`
	Link      string `json:"link"`
	Enclosure struct {
		Attributes struct {
			URL string `json:"url"`
		} `json:"@attributes"`
	} `json:"enclosure"`
}

func parseSearchResponse(body []byte) ([]Release, int, error) {
	parsed := searchResponse{}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, 0, errcodes.IndexerFailure("malformed indexer response: " + err.Error())
	}

	var items []searchItem
	if len(parsed.Channel.Item) > 0 {
		if err := json.Unmarshal(parsed.Channel.Item, &items); err != nil {
			single := searchItem{}
			if err := json.Unmarshal(parsed.Channel.Item, &single); err != nil {
				return nil, 0, errcodes.IndexerFailure("malformed indexer item: " + err.Error())
			}
			items = []searchItem{single}
		}
	}

	releases := make([]Release, 0, len(items))
	for _, item := range items {
		link := item.Enclosure.Attributes.URL
		if link == "" {
			link = item.Link
		}
		releases = append(releases, Release{
			Name: item.Title,
			GUID: item.GUID,
			Link: link,
		})
	}

	total, _ := strconv.Atoi(parsed.Channel.Response.Attributes.Total)
	return releases, total, nil
}
