package libraries

type CreateLibraryPayload struct {
	Name           string   `json:"name" validate:"required,max=100"`
	MediaKind      string   `json:"media_kind" validate:"required,oneof=book podcast"`
	AudiobooksOnly bool     `json:"audiobooks_only"`
	Folders        []string `json:"folders" validate:"required,min=1,max=50,dive,required"`
}

type ListLibrariesQuery struct {
	Limit   int  `query:"limit" json:"limit,omitempty" default:"10" validate:"min=1,max=100"`
	Offset  int  `query:"offset" json:"offset,omitempty" validate:"min=0"`
	Deleted bool `query:"deleted" json:"deleted,omitempty"`
}

type UpdateLibraryPayload struct {
	Name           *string  `json:"name,omitempty" validate:"omitempty,max=100"`
	AudiobooksOnly *bool    `json:"audiobooks_only,omitempty"`
	Folders        []string `json:"folders,omitempty" validate:"omitempty,min=1,max=50,dive,required"`
	Deleted        *bool    `json:"deleted,omitempty" validate:"omitempty"`
}
