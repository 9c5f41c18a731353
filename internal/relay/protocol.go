package relay

import "encoding/json"

// Wire contract between the worker relay client and the gateway's system
// socket. Both sides import these types so the payload shapes cannot
// drift.

const (
	EventThumbnailCompleted = "system:thumbnailCompleted"
	EventThumbnailError     = "system:thumbnailError"
)

type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type CompletedPayload struct {
	UserID       int    `json:"userId"`
	OriginalPath string `json:"originalPath"`
	ThumbPath    string `json:"thumbPath"`
}

// ErrorPayload mirrors the completion payload so the gateway-side error
// handler has the same addressing fields available.
type ErrorPayload struct {
	UserID       int    `json:"userId"`
	OriginalPath string `json:"originalPath"`
	ThumbPath    string `json:"thumbPath"`
	Error        string `json:"error"`
}

func NewEnvelope(event string, payload any) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Event: event, Data: data}, nil
}
