// Package uiautomator2 provides HTTP client for UIAutomator2 server.
package uiautomator2

// ErrorValue represents an error from UIAutomator2.
type ErrorValue struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Capabilities for session creation.
type Capabilities struct {
	PlatformName string `json:"platformName,omitempty"`
	DeviceName   string `json:"deviceName,omitempty"`
}

// SessionRequest for creating a session.
type SessionRequest struct {
	Capabilities Capabilities `json:"capabilities"`
}

// ElementModel represents an element reference.
type ElementModel struct {
	ELEMENT string `json:"ELEMENT"`
}

// FindElementRequest for finding elements.
type FindElementRequest struct {
	Strategy string `json:"strategy"`
	Selector string `json:"selector"`
	Context  string `json:"context,omitempty"`
}

// InputTextRequest for typing text.
type InputTextRequest struct {
	Text string `json:"text"`
}

// PointModel represents coordinates.
type PointModel struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// ElementRect represents element bounds from /element/{id}/rect API.
type ElementRect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// WindowRect is the window size from /window/current/size.
type WindowRect struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// ClickRequest for tap gestures.
type ClickRequest struct {
	Origin *ElementModel `json:"origin,omitempty"`
	Offset *PointModel   `json:"offset,omitempty"`
}

// LongClickRequest for long press gestures.
type LongClickRequest struct {
	Origin   *ElementModel `json:"origin,omitempty"`
	Offset   *PointModel   `json:"offset,omitempty"`
	Duration int           `json:"duration,omitempty"` // milliseconds
}

// DeviceInfo from device info endpoint.
type DeviceInfo struct {
	AndroidID       string `json:"androidId"`
	Manufacturer    string `json:"manufacturer"`
	Model           string `json:"model"`
	Brand           string `json:"brand"`
	APIVersion      string `json:"apiVersion"`
	PlatformVersion string `json:"platformVersion"`
	RealDisplaySize string `json:"realDisplaySize"`
	DisplayDensity  int    `json:"displayDensity"`
}

// Locator strategies.
const (
	StrategyID              = "id"
	StrategyAccessibilityID = "accessibility id"
	StrategyXPath           = "xpath"
	StrategyClassName       = "class name"
	StrategyUIAutomator     = "-android uiautomator"
)
