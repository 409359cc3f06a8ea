package series

type DeleteSeriesQuery struct {
	Files bool `query:"files" json:"files,omitempty"`
}

type UnionSeriesPayload struct {
	SeriesKeys []string `json:"series_keys" validate:"required,len=2,dive,required"`
}
