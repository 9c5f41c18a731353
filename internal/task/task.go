package task

import "encoding/json"

// Email template types. The consumer selects subject and body by this
// discriminator.
const (
	EmailConfirmation  = "CONFIRMATION"
	EmailPasswordReset = "PASSWORD_RESET"
	EmailWelcome       = "WELCOME"
	EmailGeneric       = "GENERIC"
	EmailGoodbye       = "GOODBYE"
)

// EmailData carries template parameters. Fields are optional; which ones
// a template uses depends on the email type.
type EmailData struct {
	Token string `json:"token,omitempty"`
	URL   string `json:"url,omitempty"`
	Name  string `json:"name,omitempty"`
}

// EmailTask is a self-contained, replayable unit of work: everything the
// worker needs to render and send one email.
type EmailTask struct {
	ID       string    `json:"id,omitempty"`
	To       string    `json:"to"`
	Subject  string    `json:"subject,omitempty"`
	Type     string    `json:"type"`
	Data     EmailData `json:"data"`
	Language string    `json:"language"`
}

type ThumbSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// ThumbnailTask asks the worker to resize the image at OriginalPath into
// ThumbPath at the requested dimensions.
type ThumbnailTask struct {
	ID           string    `json:"id,omitempty"`
	UserID       int       `json:"userId"`
	OriginalPath string    `json:"originalPath"`
	ThumbPath    string    `json:"thumbPath"`
	ThumbSize    ThumbSize `json:"thumbSize"`
}

func Marshal(payload any) ([]byte, error) {
	return json.Marshal(payload)
}

func UnmarshalEmail(data []byte) (EmailTask, error) {
	var t EmailTask
	err := json.Unmarshal(data, &t)
	return t, err
}

func UnmarshalThumbnail(data []byte) (ThumbnailTask, error) {
	var t ThumbnailTask
	err := json.Unmarshal(data, &t)
	return t, err
}
