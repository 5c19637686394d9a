package ingest

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Alias lists for auto-detection, in priority order. The first alias found
// in the flattened payload wins.
var (
	emailAliases = []string{
		"email", "Email", "e-mail", "emailAddress", "email_address",
		"user_email", "contact_email", "mail",
	}
	nameAliases = []string{
		"name", "Name", "full_name", "fullName", "fullname",
		"contact_name", "userName", "user_name",
	}
	phoneAliases = []string{
		"phone", "Phone", "telephone", "mobile", "phone_number",
		"phoneNumber", "contact_number", "tel",
	}
)

// Normalized is the canonical shape every inbound payload reduces to. Data
// always carries the full original payload, not the flattened form.
type Normalized struct {
	Email    *string                `json:"email"`
	FullName *string                `json:"full_name"`
	Phone    *string                `json:"phone"`
	Data     map[string]interface{} `json:"data"`
}

// Normalize maps an arbitrary payload to the canonical lead fields, via the
// endpoint's custom mapping when present, alias auto-detection otherwise.
// It never fails: worst case every canonical field is nil and Data holds
// the raw payload.
func Normalize(payload map[string]interface{}, mapping map[string]string) Normalized {
	flat := Flatten(payload)
	normalized := Normalized{Data: payload}

	if len(mapping) > 0 {
		for sourcePath, target := range mapping {
			value, ok := flat[sourcePath]
			if !ok || value == nil {
				continue
			}
			s := stringify(value)
			switch target {
			case "email":
				normalized.Email = &s
			case "full_name":
				normalized.FullName = &s
			case "phone":
				normalized.Phone = &s
			}
			// mappings targeting anything else are ignored
		}
		return normalized
	}

	normalized.Email = findAlias(flat, emailAliases)
	normalized.FullName = findAlias(flat, nameAliases)
	normalized.Phone = findAlias(flat, phoneAliases)
	return normalized
}

// Flatten converts a nested object into a single-level map keyed by dotted
// path. Only objects are recursed into; arrays stay as leaf values under
// their container key.
func Flatten(payload map[string]interface{}) map[string]interface{} {
	flat := make(map[string]interface{}, len(payload))
	flattenInto(flat, "", payload)
	return flat
}

func flattenInto(flat map[string]interface{}, prefix string, m map[string]interface{}) {
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := v.(map[string]interface{}); ok {
			flattenInto(flat, key, nested)
			continue
		}
		flat[key] = v
	}
}

func findAlias(flat map[string]interface{}, aliases []string) *string {
	for _, alias := range aliases {
		value, ok := flat[alias]
		if !ok {
			continue
		}
		if value == nil {
			return nil
		}
		s := stringify(value)
		return &s
	}
	return nil
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case json.Number:
		return t.String()
	default:
		if b, err := json.Marshal(t); err == nil {
			return string(b)
		}
		return fmt.Sprintf("%v", t)
	}
}
