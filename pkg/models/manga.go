package models

type Manga struct {
	ID     int64  `json:"id"`
	Slug   string `json:"slug"`
	EnName string `json:"en_name,omitempty"`
	JpName string `json:"jp_name,omitempty"`
	Author string `json:"author,omitempty"`
}

// PageRef identifies one page in a volume, as listed for navigation.
type PageRef struct {
	VolumeNum  int  `json:"volume_num"`
	PageNum    int  `json:"page_num"`
	ChapterNum *int `json:"chapter_num,omitempty"`
}
