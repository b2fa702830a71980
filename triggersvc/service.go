package triggersvc

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	"github.com/thrasher-corp/chainmonitor/models"
	"github.com/thrasher-corp/chainmonitor/notify"
	"github.com/thrasher-corp/chainmonitor/notify/base"
	"github.com/thrasher-corp/chainmonitor/notify/discord"
	"github.com/thrasher-corp/chainmonitor/notify/script"
	"github.com/thrasher-corp/chainmonitor/notify/slack"
	"github.com/thrasher-corp/chainmonitor/notify/smtp"
	"github.com/thrasher-corp/chainmonitor/notify/telegram"
	"github.com/thrasher-corp/chainmonitor/notify/webhook"
)

// TriggerLookup resolves a trigger's configuration by name; repository.TriggerRepository
// satisfies this.
type TriggerLookup interface {
	Trigger(name string) (*models.Trigger, bool)
}

// AuditRecorder persists a durable trail of trigger dispatch outcomes;
// audit.Repository satisfies this via its Event method. Left nil, a
// Service simply does not record a trail (the in-memory/no-SQL-storage
// default).
type AuditRecorder interface {
	Event(identifier, message, kind string) error
}

// Service is the concrete blockwatcher.TriggerExecutionService: it resolves
// each named trigger, interpolates its message against the supplied
// variables, and dispatches to the sink matching its Type. Per spec.md §5 a
// match's triggers run sequentially in declaration order, and one
// trigger's failure does not stop the rest.
type Service struct {
	triggers TriggerLookup
	audit    AuditRecorder
}

func NewService(triggers TriggerLookup) *Service {
	return &Service{triggers: triggers}
}

// SetAuditRecorder installs the audit trail sink; every dispatch attempt
// thereafter is recorded success or failure, keyed by trigger name.
func (s *Service) SetAuditRecorder(a AuditRecorder) {
	s.audit = a
}

func (s *Service) Execute(ctx context.Context, triggerNames []string, variables map[string]string) error {
	executionID := variables["execution_id"]
	var err error
	for _, name := range triggerNames {
		e := s.executeOne(ctx, name, variables)
		s.recordAudit(name, executionID, e)
		if e != nil {
			log.Errorw("triggersvc: trigger failed", "trigger", name, "execution_id", executionID, "error", e)
			err = multierr.Append(err, e)
		}
	}
	return err
}

// recordAudit appends one dispatch outcome to the audit trail when a
// recorder is installed; a failure to write the audit entry itself is
// logged but never escalated into the trigger dispatch's own error, since
// an audit-write failure must not mask (or retry) a notification that
// already fired.
func (s *Service) recordAudit(triggerName, executionID string, dispatchErr error) {
	if s.audit == nil {
		return
	}
	kind := "success"
	message := fmt.Sprintf("trigger %s dispatched (execution %s)", triggerName, executionID)
	if dispatchErr != nil {
		kind = "failure"
		message = fmt.Sprintf("trigger %s failed (execution %s): %v", triggerName, executionID, dispatchErr)
	}
	if err := s.audit.Event(triggerName, message, kind); err != nil {
		log.Errorw("triggersvc: audit write failed", "trigger", triggerName, "error", err)
	}
}

func (s *Service) executeOne(ctx context.Context, name string, variables map[string]string) error {
	trig, ok := s.triggers.Trigger(name)
	if !ok {
		return triggerError(name, fmt.Errorf("unknown trigger"))
	}

	sink, err := s.sinkFor(trig)
	if err != nil {
		return triggerError(name, err)
	}

	title := base.Interpolate(trig.Message.Title, variables)
	body := base.Interpolate(trig.Message.BodyTemplate, variables)

	type contextSender interface {
		SendContext(ctx context.Context, title, body string) error
	}
	if cs, ok := sink.(contextSender); ok {
		if err := cs.SendContext(ctx, title, body); err != nil {
			return triggerError(name, err)
		}
		return nil
	}
	if err := sink.Send(title, body); err != nil {
		return triggerError(name, err)
	}
	return nil
}

func (s *Service) sinkFor(trig *models.Trigger) (base.Sink, error) {
	switch trig.Type {
	case models.TriggerSlack:
		if trig.Slack == nil {
			return nil, notify.ConfigError("slack", "trigger missing slack config")
		}
		return slack.New(*trig.Slack)
	case models.TriggerDiscord:
		if trig.Discord == nil {
			return nil, notify.ConfigError("discord", "trigger missing discord config")
		}
		return discord.New(*trig.Discord)
	case models.TriggerTelegram:
		if trig.Telegram == nil {
			return nil, notify.ConfigError("telegram", "trigger missing telegram config")
		}
		return telegram.New(*trig.Telegram)
	case models.TriggerEmail:
		if trig.Email == nil {
			return nil, notify.ConfigError("email", "trigger missing email config")
		}
		return smtp.New(*trig.Email)
	case models.TriggerWebhook:
		if trig.Webhook == nil {
			return nil, notify.ConfigError("webhook", "trigger missing webhook config")
		}
		return webhook.New(*trig.Webhook)
	case models.TriggerScript:
		if trig.Script == nil {
			return nil, notify.ConfigError("script", "trigger missing script config")
		}
		return script.New(*trig.Script)
	default:
		return nil, notify.ConfigError(string(trig.Type), "unknown trigger type")
	}
}
