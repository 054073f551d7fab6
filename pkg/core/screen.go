package core

import "time"

// Sentinel hash values. They are valid strings but never count as similar.
const (
	NoXML       = "no_xml"
	NoImage     = "no_image"
	HashError   = "hash_error"
	UnknownDest = "UNKNOWN_DEST"
	SaveError   = "save_error"
)

// Screen is a discovered UI state. It is never mutated after creation.
type Screen struct {
	ID             int64     `json:"screenId"`
	XMLHash        string    `json:"xmlHash"`
	VisualHash     string    `json:"visualHash"`
	CompositeHash  string    `json:"compositeHash"`
	ScreenshotPath string    `json:"screenshotPath,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Transition is one logged action attempt from a source screen.
type Transition struct {
	ID         int64     `json:"transitionId"`
	SourceHash string    `json:"sourceCompositeHash"`
	Action     string    `json:"actionDescription"`
	DestHash   string    `json:"destCompositeHash"`
	CreatedAt  time.Time `json:"createdAt"`
}

// CompositeHash joins the structural and perceptual hashes of a screen.
func CompositeHash(xmlHash, visualHash string) string {
	return xmlHash + "_" + visualHash
}
