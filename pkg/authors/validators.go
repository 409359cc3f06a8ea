package authors

type ListAuthorsQuery struct {
	Limit  int     `query:"limit" json:"limit,omitempty" default:"50" validate:"min=1,max=200"`
	Offset int     `query:"offset" json:"offset,omitempty" validate:"min=0"`
	Search *string `query:"search" json:"search,omitempty" validate:"omitempty,max=200"`
}

type ImportAuthorQuery struct {
	Override bool `query:"override" json:"override,omitempty"`
}

type DeleteAuthorQuery struct {
	Files bool `query:"files" json:"files,omitempty"`
}

type SearchAuthorsQuery struct {
	Query string `query:"query" json:"query" validate:"required,max=200"`
}

type CreateSeriesAuthorPayload struct {
	SeriesKey string `json:"series_key" validate:"required"`
}
