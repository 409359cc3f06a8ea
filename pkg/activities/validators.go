package activities

type ListActivitiesQuery struct {
	Limit    int      `query:"limit" json:"limit,omitempty" default:"50" validate:"min=1,max=200"`
	Offset   int      `query:"offset" json:"offset,omitempty" validate:"min=0"`
	BookKey  *string  `query:"book_key" json:"book_key,omitempty"`
	Statuses []string `query:"status" json:"status,omitempty" validate:"omitempty,dive,oneof=download imported canceled failed overwritten deleted"`
}
