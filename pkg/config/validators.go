package config

// UpdateSettingsPayload mirrors UserConfig with every field optional; absent
// fields keep their current values.
type UpdateSettingsPayload struct {
	AudioPathTemplate *string `json:"audio_path_template,omitempty" validate:"omitempty,min=1"`
	BookPathTemplate  *string `json:"book_path_template,omitempty" validate:"omitempty,min=1"`

	AudioPath  *string `json:"audio_path,omitempty"`
	BookPath   *string `json:"book_path,omitempty"`
	IngestPath *string `json:"ingest_path,omitempty"`

	AudioExtensionsRating []string `json:"audio_extensions_rating,omitempty" validate:"omitempty,dive,startswith=."`
	BookExtensions        []string `json:"book_extensions,omitempty" validate:"omitempty,dive,startswith=."`

	ImportPollInterval *int `json:"import_poll_interval,omitempty"`
	RescanInterval     *int `json:"rescan_interval,omitempty"`
	ReimportInterval   *int `json:"reimport_interval,omitempty"`

	SeriesMatchThreshold   *int `json:"series_match_threshold,omitempty" validate:"omitempty,min=0,max=100"`
	BookMatchThreshold     *int `json:"book_match_threshold,omitempty" validate:"omitempty,min=0,max=100"`
	ReimportMatchThreshold *int `json:"reimport_match_threshold,omitempty" validate:"omitempty,min=0,max=100"`
	IndexerMatchThreshold  *int `json:"indexer_match_threshold,omitempty" validate:"omitempty,min=0,max=100"`

	IgnoreSafeDelete *bool `json:"ignore_safe_delete,omitempty"`

	KnownBundlePatterns []string `json:"known_bundle_patterns,omitempty"`

	ScraperURL *string `json:"scraper_url,omitempty" validate:"omitempty,url"`

	IndexerURL           *string `json:"indexer_url,omitempty" validate:"omitempty,url"`
	IndexerAPIKey        *string `json:"indexer_api_key,omitempty"`
	IndexerAudioCategory *int    `json:"indexer_audio_category,omitempty"`
	IndexerBookCategory  *int    `json:"indexer_book_category,omitempty"`
	IndexerMinInterval   *int    `json:"indexer_min_interval,omitempty" validate:"omitempty,min=0"`

	DownloaderURL      *string `json:"downloader_url,omitempty" validate:"omitempty,url"`
	DownloaderAPIKey   *string `json:"downloader_api_key,omitempty"`
	DownloaderCategory *string `json:"downloader_category,omitempty"`
}
