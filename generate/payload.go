package generate

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// Example is a reference piece the script should take inspiration from.
type Example struct {
	Type  string `json:"type"`
	URL   string `json:"url"`
	Title string `json:"title"`
}

func (e Example) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Type, validation.Required, validation.In("link", "image")),
		validation.Field(&e.URL, validation.Required, is.URL),
	)
}

// ScriptRequest is the generation webhook payload. The JSON field names are
// the webhook's contract; the service keys on them.
type ScriptRequest struct {
	Topic          string    `json:"scriptTopic"`
	Platform       string    `json:"platform"`
	Duration       string    `json:"duration"`
	TargetAudience string    `json:"targetAudience"`
	Examples       []Example `json:"examples"`
}

func (r ScriptRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Topic, validation.Required, validation.Length(1, 500)),
		validation.Field(&r.Platform, validation.Required),
		validation.Field(&r.Duration, validation.Required),
		validation.Field(&r.TargetAudience, validation.Required),
		validation.Field(&r.Examples),
	)
}
