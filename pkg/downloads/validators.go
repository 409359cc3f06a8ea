package downloads

// DownloadQuery selects which media slot to acquire.
type DownloadQuery struct {
	Audio bool `query:"audio" json:"audio,omitempty"`
}

type ManualSearchQuery struct {
	Audio bool `query:"audio" json:"audio,omitempty"`
	Page  int  `query:"page" json:"page,omitempty" validate:"min=0"`
}

// GrabPayload is an operator-chosen release from the manual search page.
type GrabPayload struct {
	Audio bool   `json:"audio"`
	Name  string `json:"name" validate:"required" mod:"trim"`
	Link  string `json:"link" validate:"required,url"`
}
