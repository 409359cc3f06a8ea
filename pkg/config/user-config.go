package config

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/creasty/defaults"
	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
)

// UserConfig holds every operator-tunable setting. It is persisted as JSON in
// the config directory; missing keys fall back to the struct defaults so an
// older file keeps working after an upgrade.
type UserConfig struct {
	// Destination path templates, evaluated per media type. Braces delimit
	// optional groups; single-brace segments inside a group are field
	// references.
	AudioPathTemplate string `json:"audio_path_template" default:"{{author.name}}/{{series.name}}/{{book.position} - }{{book.name}}"`
	BookPathTemplate  string `json:"book_path_template" default:"{{author.name}}/{{series.name}}/{{book.position} - }{{book.name}}"`

	// Library roots per media type, plus an optional staging root scanned by
	// the reimport job.
	AudioPath  string `json:"audio_path" default:"/media/audiobooks"`
	BookPath   string `json:"book_path" default:"/media/books"`
	IngestPath string `json:"ingest_path"`

	// AudioExtensionsRating is a ranked preference list: the import picks the
	// most frequent extension of a release, preferring earlier entries.
	AudioExtensionsRating []string `json:"audio_extensions_rating" default:"[\".m4b\",\".mp3\",\".flac\",\".ogg\",\".aac\"]"`
	BookExtensions        []string `json:"book_extensions" default:"[\".epub\",\".mobi\",\".azw3\",\".pdf\"]"`

	// Job intervals in seconds. A value <= 0 disables the job.
	ImportPollInterval int `json:"import_poll_interval" default:"60"`
	RescanInterval     int `json:"rescan_interval" default:"3600"`
	ReimportInterval   int `json:"reimport_interval" default:"3600"`

	// Fuzzy match thresholds, 0-100. Series union and book dedup are kept
	// separate on purpose since the source material tolerates different
	// amounts of noise.
	SeriesMatchThreshold   int `json:"series_match_threshold" default:"80"`
	BookMatchThreshold     int `json:"book_match_threshold" default:"90"`
	ReimportMatchThreshold int `json:"reimport_match_threshold" default:"80"`
	IndexerMatchThreshold  int `json:"indexer_match_threshold" default:"45"`

	// IgnoreSafeDelete permits deleting a source directory even when it was
	// not a self-contained release directory. The shared category root is
	// never deleted regardless.
	IgnoreSafeDelete bool `json:"ignore_safe_delete"`

	// KnownBundlePatterns are regexes for box-set style titles that must
	// never be assigned a series position.
	KnownBundlePatterns []string `json:"known_bundle_patterns" default:"[\"(?i)sammelband\",\"(?i)box.?set\",\"(?i)bundle\"]"`

	// ScraperURL is the base URL of the external catalog scrape service.
	ScraperURL string `json:"scraper_url"`

	IndexerURL           string `json:"indexer_url"`
	IndexerAPIKey        string `json:"indexer_api_key"`
	IndexerAudioCategory int    `json:"indexer_audio_category" default:"3030"`
	IndexerBookCategory  int    `json:"indexer_book_category" default:"7020"`
	// IndexerMinInterval is the minimum number of seconds between calls to
	// one indexer.
	IndexerMinInterval int `json:"indexer_min_interval" default:"2"`

	DownloaderURL      string `json:"downloader_url"`
	DownloaderAPIKey   string `json:"downloader_api_key"`
	DownloaderCategory string `json:"downloader_category" default:"foliarr"`
}

// JobInterval returns the configured interval for a scheduler task name.
func (uc *UserConfig) JobInterval(task string) int {
	switch task {
	case "import":
		return uc.ImportPollInterval
	case "rescan":
		return uc.RescanInterval
	case "reimport":
		return uc.ReimportInterval
	}
	return 0
}

// DefaultUserConfig returns a UserConfig with every default applied.
func DefaultUserConfig() (*UserConfig, error) {
	userConfig := &UserConfig{}
	if err := defaults.Set(userConfig); err != nil {
		return nil, errors.WithStack(err)
	}
	return userConfig, nil
}

func loadUserConfig(configFilePath string) (*UserConfig, error) {
	userConfig, err := DefaultUserConfig()
	if err != nil {
		return nil, err
	}
	if configFilePath == "" {
		return userConfig, nil
	}

	data, err := os.ReadFile(configFilePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return userConfig, nil
		}
		return nil, errors.WithStack(err)
	}

	if err := json.Unmarshal(data, userConfig); err != nil {
		return nil, errors.WithStack(err)
	}

	return userConfig, nil
}

func saveUserConfigFile(userConfig *UserConfig, userConfigFilePath string) error {
	if userConfigFilePath == "" {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(userConfigFilePath), 0755); err != nil {
		return errors.WithStack(err)
	}

	data, err := json.MarshalIndent(userConfig, "", "  ")
	if err != nil {
		return errors.WithStack(err)
	}

	err = os.WriteFile(userConfigFilePath, data, 0644) //nolint:gosec
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}
