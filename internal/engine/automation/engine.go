package automation

import (
	"context"

	"github.com/rs/zerolog/log"

	"leadflow/internal/platform/models"
	"leadflow/internal/platform/observability"
	"leadflow/internal/platform/repositories"
)

// Engine evaluates automation rules against leads. All dependencies are
// injected so handlers, the ingest receiver, and tests share one wiring
// point.
type Engine struct {
	automations *repositories.AutomationRepository
	leads       *repositories.LeadRepository
	mailer      Mailer
	webhooks    *WebhookCaller
}

func NewEngine(
	automations *repositories.AutomationRepository,
	leads *repositories.LeadRepository,
	mailer Mailer,
	webhooks *WebhookCaller,
) *Engine {
	return &Engine{
		automations: automations,
		leads:       leads,
		mailer:      mailer,
		webhooks:    webhooks,
	}
}

// Evaluate runs every active rule for the lead's campaign and trigger type.
// It never returns an error: a broken rule or failing action is logged and
// skipped, and each action runs regardless of what happened to the ones
// before it.
func (e *Engine) Evaluate(ctx context.Context, lead *models.Lead, triggerType string) {
	rules, err := e.automations.ListActiveByTrigger(lead.CampaignID, triggerType)
	if err != nil {
		log.Error().Err(err).
			Str("campaign_id", lead.CampaignID).
			Str("trigger", triggerType).
			Msg("automation rule lookup failed")
		return
	}

	for _, rule := range rules {
		rs, err := ParseRuleSet(rule.TriggerConfig, rule.Actions)
		if err != nil {
			// rules are validated at write time, so this means the stored
			// blob was edited out of band
			log.Warn().Err(err).
				Str("automation_id", rule.ID).
				Msg("skipping malformed automation rule")
			continue
		}

		if !rs.MatchesLead(lead) {
			continue
		}

		for i, action := range rs.Actions {
			e.execute(ctx, rule.ID, i, action, lead)
		}
	}
}

func (e *Engine) execute(ctx context.Context, ruleID string, index int, action Action, lead *models.Lead) {
	defer func() {
		if r := recover(); r != nil {
			observability.AutomationActions.WithLabelValues(action.Type, "panic").Inc()
			log.Error().
				Str("automation_id", ruleID).
				Int("action_index", index).
				Str("action_type", action.Type).
				Interface("panic", r).
				Msg("automation action panicked")
		}
	}()

	var err error
	switch action.Type {
	case ActionSendEmail:
		err = e.sendEmail(action, lead)
	case ActionUpdateLead:
		err = e.updateLead(action, lead)
	case ActionWebhook:
		err = e.webhooks.Call(ctx, action, lead)
	}

	if err != nil {
		observability.AutomationActions.WithLabelValues(action.Type, "error").Inc()
		log.Error().Err(err).
			Str("automation_id", ruleID).
			Int("action_index", index).
			Str("action_type", action.Type).
			Str("lead_id", lead.ID).
			Msg("automation action failed")
		return
	}

	observability.AutomationActions.WithLabelValues(action.Type, "ok").Inc()
	log.Debug().
		Str("automation_id", ruleID).
		Str("action_type", action.Type).
		Str("lead_id", lead.ID).
		Msg("automation action executed")
}

func (e *Engine) sendEmail(action Action, lead *models.Lead) error {
	if lead.Email == nil || *lead.Email == "" {
		log.Debug().Str("lead_id", lead.ID).Msg("send_email skipped: lead has no email")
		return nil
	}
	return e.mailer.Send(*lead.Email, action.TemplateID, lead)
}

// updateLead persists the field updates and mirrors them onto the in-memory
// lead so later actions in the same rule observe the new values.
func (e *Engine) updateLead(action Action, lead *models.Lead) error {
	if err := e.leads.UpdateFields(lead.ID, action.Updates); err != nil {
		return err
	}
	for field, value := range action.Updates {
		v := value
		switch field {
		case "email":
			lead.Email = &v
		case "full_name":
			lead.FullName = &v
		case "phone":
			lead.Phone = &v
		case "status":
			lead.Status = v
		case "source":
			lead.Source = v
		}
	}
	return nil
}
