package contracts

const (
	// MessageTypeRender updates the browser with the rendered, formatted document.
	MessageTypeRender = "render"
)

// RenderMessage carries rendered HTML and revision metadata to the browser.
type RenderMessage struct {
	Type     string `json:"type"`
	HTML     string `json:"html"`
	Filename string `json:"filename"`
	// Formatted reports whether the source already matched the formatter output.
	Formatted bool   `json:"formatted"`
	Rev       uint64 `json:"rev"`
}
