package entity

// LinkPreview is the card shown for a subscription's link
type LinkPreview struct {
	OK          bool   `json:"ok"`
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Image       string `json:"image"`
	SiteName    string `json:"siteName"`
	Favicon     string `json:"favicon"`
}
