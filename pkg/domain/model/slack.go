package model

// SlackConfig posts a report digest to an incoming webhook
type SlackConfig struct {
	WebhookURL string `yaml:"webhook_url,omitempty"`
	Message    string `yaml:"message,omitempty"`    // text/template over SlackMessageData
	IconEmoji  string `yaml:"icon_emoji,omitempty"` // :emoji: format (only works if webhook allows customization)
	UserName   string `yaml:"username,omitempty"`   // sender name (only works if webhook allows customization)
}

// SlackMessageData is the template input of SlackConfig.Message
type SlackMessageData struct {
	DagID     string
	Period    string
	Window    string
	Total     int
	Failed    int
	DagRuns   int
	Dropped   int
	ReportID  string
	Generated string
}

// SlackPayload represents the JSON payload for Slack webhook
type SlackPayload struct {
	Text        string       `json:"text"`
	UserName    string       `json:"username,omitempty"`
	IconEmoji   string       `json:"icon_emoji,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

type Attachment struct {
	Color     string  `json:"color,omitempty"`
	Title     string  `json:"title,omitempty"`
	Text      string  `json:"text,omitempty"`
	Footer    string  `json:"footer,omitempty"`
	Timestamp int64   `json:"ts,omitempty"`
	Fields    []Field `json:"fields,omitempty"`
}

type Field struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}
