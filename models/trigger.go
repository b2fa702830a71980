package models

// TriggerType is the closed set of notification sink kinds.
type TriggerType string

const (
	TriggerSlack    TriggerType = "Slack"
	TriggerDiscord  TriggerType = "Discord"
	TriggerTelegram TriggerType = "Telegram"
	TriggerEmail    TriggerType = "Email"
	TriggerWebhook  TriggerType = "Webhook"
	TriggerScript   TriggerType = "Script"
)

// NotificationMessage is the templated payload every trigger kind carries.
// BodyTemplate supports "${var}" interpolation against the match's variable
// bag (see blockwatcher.buildVariables).
type NotificationMessage struct {
	Title        string `json:"title"`
	BodyTemplate string `json:"body_template"`
}

// SlackConfig configures a Slack incoming-webhook trigger.
type SlackConfig struct {
	WebhookURL string `json:"webhook_url"`
}

// DiscordConfig configures a Discord webhook trigger.
type DiscordConfig struct {
	WebhookURL string `json:"webhook_url"`
}

// TelegramConfig configures a Telegram bot-API trigger.
type TelegramConfig struct {
	BotToken string `json:"bot_token"`
	ChatID   string `json:"chat_id"`
}

// EmailConfig configures an SMTP trigger.
type EmailConfig struct {
	Host       string   `json:"host"`
	Port       int      `json:"port"`
	Username   string   `json:"username"`
	Password   string   `json:"password"`
	From       string   `json:"from"`
	Recipients []string `json:"recipients"`
}

// WebhookConfig configures a generic JSON webhook trigger.
type WebhookConfig struct {
	URL        string            `json:"url"`
	Method     string            `json:"method"`
	Headers    map[string]string `json:"headers,omitempty"`
	SigningKey string            `json:"signing_key,omitempty"`
}

// ScriptConfig configures a script/executable trigger. ScriptPath ending in
// ".tengo" is interpreted in-process by the tengo VM; anything else is
// invoked as a subprocess whose last stdout line must be "true"/"false".
type ScriptConfig struct {
	ScriptPath string   `json:"script_path"`
	Args       []string `json:"args,omitempty"`
	TimeoutMs  uint64   `json:"timeout_ms,omitempty"`
}

// Trigger is a named notification sink. Exactly one of the *Config fields
// is populated, selected by Type.
type Trigger struct {
	Name    string               `json:"name"`
	Type    TriggerType          `json:"type"`
	Message NotificationMessage  `json:"message"`
	Slack   *SlackConfig         `json:"slack,omitempty"`
	Discord *DiscordConfig       `json:"discord,omitempty"`
	Telegram *TelegramConfig     `json:"telegram,omitempty"`
	Email   *EmailConfig         `json:"email,omitempty"`
	Webhook *WebhookConfig       `json:"webhook,omitempty"`
	Script  *ScriptConfig        `json:"script,omitempty"`
}
