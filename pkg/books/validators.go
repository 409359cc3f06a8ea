package books

type UpdateBookPayload struct {
	Name      *string  `json:"name,omitempty" validate:"omitempty,min=1,max=500"`
	Position  *float64 `json:"position,omitempty" validate:"omitempty,min=0"`
	SeriesKey *string  `json:"series_key,omitempty"`
	Blocked   *bool    `json:"blocked,omitempty"`
}

type DeleteBookQuery struct {
	Files bool `query:"files" json:"files,omitempty"`
	Block bool `query:"block" json:"block,omitempty"`
}

type DeleteBookFilesQuery struct {
	Audio bool `query:"audio" json:"audio,omitempty"`
}

type RetagBookQuery struct {
	Audio bool `query:"audio" json:"audio,omitempty"`
}
