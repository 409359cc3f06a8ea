package downloader

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"time"

	"github.com/foliarr/foliarr/pkg/config"
	"github.com/foliarr/foliarr/pkg/errcodes"
	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
)

// SABnzbd drives a SABnzbd instance over its JSON API.
type SABnzbd struct {
	configService *config.Service
	client        *http.Client
}

func NewSABnzbd(configService *config.Service) *SABnzbd {
	return &SABnzbd{
		configService: configService,
		client:        &http.Client{Timeout: 60 * time.Second},
	}
}

func (s *SABnzbd) Download(ctx context.Context, nzb []byte, name string) (string, error) {
	cfg := s.configService.UserConfig()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("name", name+".nzb")
	if err != nil {
		return "", errors.WithStack(err)
	}
	if _, err := part.Write(nzb); err != nil {
		return "", errors.WithStack(err)
	}
	if err := writer.Close(); err != nil {
		return "", errors.WithStack(err)
	}

	params := url.Values{}
	params.Set("mode", "addfile")
	params.Set("nzbname", name)
	params.Set("cat", cfg.DownloaderCategory)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL(params), &body)
	if err != nil {
		return "", errors.WithStack(err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	parsed := struct {
		Status bool     `json:"status"`
		NzoIDs []string `json:"nzo_ids"`
	}{}
	if err := s.do(req, &parsed); err != nil {
		return "", err
	}
	if !parsed.Status || len(parsed.NzoIDs) == 0 {
		return "", errcodes.DownloaderFailure("downloader rejected the NZB")
	}
	return parsed.NzoIDs[0], nil
}

func (s *SABnzbd) Queue(ctx context.Context) (map[string]Job, error) {
	params := url.Values{}
	params.Set("mode", "queue")

	parsed := struct {
		Queue struct {
			Slots []struct {
				NzoID      string `json:"nzo_id"`
				Filename   string `json:"filename"`
				Status     string `json:"status"`
				Percentage string `json:"percentage"`
			} `json:"slots"`
		} `json:"queue"`
	}{}
	if err := s.get(ctx, params, &parsed); err != nil {
		return nil, err
	}

	jobs := make(map[string]Job, len(parsed.Queue.Slots))
	for _, slot := range parsed.Queue.Slots {
		pct, _ := strconv.ParseFloat(slot.Percentage, 64)
		jobs[slot.NzoID] = Job{
			ID:         slot.NzoID,
			Name:       slot.Filename,
			Status:     slot.Status,
			Percentage: pct,
		}
	}
	return jobs, nil
}

func (s *SABnzbd) History(ctx context.Context) (map[string]Job, error) {
	params := url.Values{}
	params.Set("mode", "history")
	params.Set("limit", "200")

	parsed := struct {
		History struct {
			Slots []struct {
				NzoID   string `json:"nzo_id"`
				Name    string `json:"name"`
				Status  string `json:"status"`
				Storage string `json:"storage"`
			} `json:"slots"`
		} `json:"history"`
	}{}
	if err := s.get(ctx, params, &parsed); err != nil {
		return nil, err
	}

	jobs := make(map[string]Job, len(parsed.History.Slots))
	for _, slot := range parsed.History.Slots {
		jobs[slot.NzoID] = Job{
			ID:          slot.NzoID,
			Name:        slot.Name,
			Status:      slot.Status,
			Percentage:  100,
			StoragePath: slot.Storage,
		}
	}
	return jobs, nil
}

func (s *SABnzbd) RemoveFromQueue(ctx context.Context, id string) error {
	params := url.Values{}
	params.Set("mode", "queue")
	params.Set("name", "delete")
	params.Set("value", id)
	return s.get(ctx, params, &struct{}{})
}

func (s *SABnzbd) RemoveFromHistory(ctx context.Context, id string) error {
	params := url.Values{}
	params.Set("mode", "history")
	params.Set("name", "delete")
	params.Set("value", id)
	return s.get(ctx, params, &struct{}{})
}

// CategoryDir resolves our category's completed-download directory from the
// SABnzbd config: the category dir joined onto the complete_dir when it is
// relative.
func (s *SABnzbd) CategoryDir(ctx context.Context) (string, error) {
	cfg := s.configService.UserConfig()

	params := url.Values{}
	params.Set("mode", "get_config")

	parsed := struct {
		Config struct {
			Misc struct {
				CompleteDir string `json:"complete_dir"`
			} `json:"misc"`
			Categories []struct {
				Name string `json:"name"`
				Dir  string `json:"dir"`
			} `json:"categories"`
		} `json:"config"`
	}{}
	if err := s.get(ctx, params, &parsed); err != nil {
		return "", err
	}

	dir := ""
	for _, cat := range parsed.Config.Categories {
		if cat.Name == cfg.DownloaderCategory {
			dir = cat.Dir
			break
		}
	}
	if dir == "" {
		dir = cfg.DownloaderCategory
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(parsed.Config.Misc.CompleteDir, dir)
	}
	return dir, nil
}

func (s *SABnzbd) apiURL(params url.Values) string {
	cfg := s.configService.UserConfig()
	params.Set("apikey", cfg.DownloaderAPIKey)
	params.Set("output", "json")
	return cfg.DownloaderURL + "/api?" + params.Encode()
}

func (s *SABnzbd) get(ctx context.Context, params url.Values, out any) error {
	cfg := s.configService.UserConfig()
	if cfg.DownloaderURL == "" {
		return errcodes.DownloaderFailure("no downloader configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.apiURL(params), nil)
	if err != nil {
		return errors.WithStack(err)
	}
	return s.do(req, out)
}

func (s *SABnzbd) do(req *http.Request, out any) error {
	resp, err := s.client.Do(req)
	if err != nil {
		return errcodes.DownloaderFailure(err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errcodes.DownloaderFailure("downloader returned status " + resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errcodes.DownloaderFailure(err.Error())
	}
	if err := json.Unmarshal(body, out); err != nil {
		return errcodes.DownloaderFailure("malformed downloader response: " + err.Error())
	}
	return nil
}
