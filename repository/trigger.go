package repository

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/thrasher-corp/chainmonitor/models"
)

// TriggerRepository holds every loaded Trigger keyed by name. It satisfies
// triggersvc.TriggerLookup.
type TriggerRepository struct {
	triggers map[string]models.Trigger
}

// NewTriggerRepository loads every triggers/*.json file under dir, each
// containing a map of trigger_name -> Trigger.
func NewTriggerRepository(dir string) (*TriggerRepository, error) {
	triggers := make(map[string]models.Trigger)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, LoadError("reading triggers directory "+dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, LoadError("reading "+path, err)
		}

		var fileTriggers map[string]models.Trigger
		if err := json.Unmarshal(data, &fileTriggers); err != nil {
			return nil, LoadError("parsing "+path, err)
		}
		for name, trig := range fileTriggers {
			if _, exists := triggers[name]; exists {
				return nil, ValidationError(fmt.Sprintf("%s: duplicate trigger name %q", path, name))
			}
			if err := validateTrigger(name, trig); err != nil {
				return nil, err
			}
			trig.Name = name
			triggers[name] = trig
		}
	}

	return &TriggerRepository{triggers: triggers}, nil
}

func validateTrigger(name string, trig models.Trigger) error {
	if name == "" {
		return ValidationError("trigger has empty name")
	}
	switch trig.Type {
	case models.TriggerSlack:
		if trig.Slack == nil || trig.Slack.WebhookURL == "" {
			return ValidationError(fmt.Sprintf("trigger %q: slack config missing webhook_url", name))
		}
	case models.TriggerDiscord:
		if trig.Discord == nil || trig.Discord.WebhookURL == "" {
			return ValidationError(fmt.Sprintf("trigger %q: discord config missing webhook_url", name))
		}
	case models.TriggerTelegram:
		if trig.Telegram == nil || trig.Telegram.BotToken == "" || trig.Telegram.ChatID == "" {
			return ValidationError(fmt.Sprintf("trigger %q: telegram config missing bot_token or chat_id", name))
		}
	case models.TriggerEmail:
		if trig.Email == nil || trig.Email.Host == "" || len(trig.Email.Recipients) == 0 {
			return ValidationError(fmt.Sprintf("trigger %q: email config missing host or recipients", name))
		}
	case models.TriggerWebhook:
		if trig.Webhook == nil || trig.Webhook.URL == "" {
			return ValidationError(fmt.Sprintf("trigger %q: webhook config missing url", name))
		}
	case models.TriggerScript:
		if trig.Script == nil || trig.Script.ScriptPath == "" {
			return ValidationError(fmt.Sprintf("trigger %q: script config missing script_path", name))
		}
	default:
		return ValidationError(fmt.Sprintf("trigger %q: unknown type %q", name, trig.Type))
	}
	return nil
}

// Trigger returns the trigger with the given name.
func (r *TriggerRepository) Trigger(name string) (*models.Trigger, bool) {
	t, ok := r.triggers[name]
	if !ok {
		return nil, false
	}
	return &t, true
}

// All returns every loaded trigger, keyed by name.
func (r *TriggerRepository) All() map[string]models.Trigger {
	out := make(map[string]models.Trigger, len(r.triggers))
	for k, v := range r.triggers {
		out[k] = v
	}
	return out
}
