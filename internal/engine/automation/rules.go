package automation

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"leadflow/internal/platform/models"
)

const (
	TriggerNewLead      = "new_lead"
	TriggerStatusChange = "status_change"
)

const (
	OpEquals   = "equals"
	OpContains = "contains"
)

const (
	ActionSendEmail  = "send_email"
	ActionUpdateLead = "update_lead"
	ActionWebhook    = "webhook"
)

// conditionFields is the closed set of lead attributes a condition may read.
// Unknown field names are rejected when the rule is parsed instead of
// silently reading as absent.
var conditionFields = map[string]func(*models.Lead) string{
	"email":     func(l *models.Lead) string { return deref(l.Email) },
	"full_name": func(l *models.Lead) string { return deref(l.FullName) },
	"phone":     func(l *models.Lead) string { return deref(l.Phone) },
	"status":    func(l *models.Lead) string { return l.Status },
	"source":    func(l *models.Lead) string { return l.Source },
}

type Condition struct {
	Field    string      `json:"field"`
	Operator string      `json:"operator"`
	Value    interface{} `json:"value"`
}

// Matches evaluates one condition against a lead, both sides coerced to
// text. Unrecognized operators contribute no check and pass: long-standing
// behavior, kept deliberately (see TestCondition_UnknownOperatorPasses).
func (c Condition) Matches(lead *models.Lead) bool {
	accessor, ok := conditionFields[c.Field]
	if !ok {
		// only reachable for rules stored before field validation existed
		return false
	}

	leadValue := accessor(lead)
	condValue := coerce(c.Value)

	switch c.Operator {
	case OpEquals:
		return leadValue == condValue
	case OpContains:
		return strings.Contains(strings.ToLower(leadValue), strings.ToLower(condValue))
	default:
		return true
	}
}

type triggerConfig struct {
	Conditions []Condition `json:"conditions"`
}

// Action is a tagged descriptor; Type selects which of the remaining fields
// apply.
type Action struct {
	Type string `json:"type"`

	// send_email
	TemplateID string `json:"template_id,omitempty"`

	// update_lead
	Updates map[string]string `json:"updates,omitempty"`

	// webhook
	URL    string `json:"url,omitempty"`
	Secret string `json:"secret,omitempty"`
}

func (a Action) validate() error {
	switch a.Type {
	case ActionSendEmail:
		return nil
	case ActionUpdateLead:
		if len(a.Updates) == 0 {
			return fmt.Errorf("update_lead action requires updates")
		}
		for field := range a.Updates {
			if _, ok := conditionFields[field]; !ok {
				return fmt.Errorf("update_lead action targets unknown field %q", field)
			}
		}
		return nil
	case ActionWebhook:
		if a.URL == "" {
			return fmt.Errorf("webhook action requires a url")
		}
		return nil
	default:
		return fmt.Errorf("unknown action type %q", a.Type)
	}
}

// RuleSet is the parsed form of an automation's trigger_config and actions
// blobs. Parsing happens once per load so malformed rules fail at
// configuration time, not per lead.
type RuleSet struct {
	Conditions []Condition
	Actions    []Action
}

func ParseRuleSet(triggerConfigRaw, actionsRaw json.RawMessage) (*RuleSet, error) {
	rs := &RuleSet{}

	if len(triggerConfigRaw) > 0 && string(triggerConfigRaw) != "null" {
		var cfg triggerConfig
		if err := json.Unmarshal(triggerConfigRaw, &cfg); err != nil {
			return nil, fmt.Errorf("invalid trigger_config: %w", err)
		}
		for _, cond := range cfg.Conditions {
			if _, ok := conditionFields[cond.Field]; !ok {
				return nil, fmt.Errorf("condition references unknown field %q", cond.Field)
			}
		}
		rs.Conditions = cfg.Conditions
	}

	if len(actionsRaw) > 0 && string(actionsRaw) != "null" {
		if err := json.Unmarshal(actionsRaw, &rs.Actions); err != nil {
			return nil, fmt.Errorf("invalid actions: %w", err)
		}
		for i, action := range rs.Actions {
			if err := action.validate(); err != nil {
				return nil, fmt.Errorf("action %d: %w", i, err)
			}
		}
	}

	return rs, nil
}

// MatchesLead applies AND semantics: every condition must hold. A rule with
// no conditions matches unconditionally.
func (rs *RuleSet) MatchesLead(lead *models.Lead) bool {
	for _, cond := range rs.Conditions {
		if !cond.Matches(lead) {
			return false
		}
	}
	return true
}

func coerce(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
