package ingest

import (
	"reflect"
	"testing"
)

func strPtr(s string) *string { return &s }

func TestFlatten(t *testing.T) {
	tests := []struct {
		name     string
		payload  map[string]interface{}
		expected map[string]interface{}
	}{
		{
			name:     "Flat object unchanged",
			payload:  map[string]interface{}{"email": "a@b.com", "age": 30.0},
			expected: map[string]interface{}{"email": "a@b.com", "age": 30.0},
		},
		{
			name: "Nested objects joined with dots",
			payload: map[string]interface{}{
				"lead": map[string]interface{}{
					"contact": map[string]interface{}{"email": "a@b.com"},
				},
			},
			expected: map[string]interface{}{"lead.contact.email": "a@b.com"},
		},
		{
			name: "Arrays kept as leaf values",
			payload: map[string]interface{}{
				"tags": []interface{}{"a", "b"},
				"form": map[string]interface{}{"fields": []interface{}{1.0, 2.0}},
			},
			expected: map[string]interface{}{
				"tags":        []interface{}{"a", "b"},
				"form.fields": []interface{}{1.0, 2.0},
			},
		},
		{
			name:     "Empty object",
			payload:  map[string]interface{}{},
			expected: map[string]interface{}{},
		},
		{
			name:     "Null leaf preserved",
			payload:  map[string]interface{}{"email": nil},
			expected: map[string]interface{}{"email": nil},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Flatten(tt.payload)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestNormalize_AutoDetect(t *testing.T) {
	tests := []struct {
		name     string
		payload  map[string]interface{}
		email    *string
		fullName *string
		phone    *string
	}{
		{
			name:     "Plain fields",
			payload:  map[string]interface{}{"email": "a@b.com", "name": "Jane Doe", "phone": "123"},
			email:    strPtr("a@b.com"),
			fullName: strPtr("Jane Doe"),
			phone:    strPtr("123"),
		},
		{
			name:     "Alternate aliases",
			payload:  map[string]interface{}{"contact_email": "x@y.com", "fullName": "X Y"},
			email:    strPtr("x@y.com"),
			fullName: strPtr("X Y"),
			phone:    nil,
		},
		{
			name:    "Alias priority order wins",
			payload: map[string]interface{}{"mail": "low@prio.com", "email": "high@prio.com"},
			email:   strPtr("high@prio.com"),
		},
		{
			name:    "Unknown aliases ignored",
			payload: map[string]interface{}{"courriel": "fr@example.com"},
			email:   nil,
		},
		{
			name:    "Numeric phone stringified",
			payload: map[string]interface{}{"phone_number": 5551234.0},
			phone:   strPtr("5551234"),
		},
		{
			name:    "Nothing usable",
			payload: map[string]interface{}{"foo": "bar"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.payload, nil)
			assertField(t, "email", got.Email, tt.email)
			assertField(t, "full_name", got.FullName, tt.fullName)
			assertField(t, "phone", got.Phone, tt.phone)
			if !reflect.DeepEqual(got.Data, tt.payload) {
				t.Errorf("Data should carry the original payload, got %v", got.Data)
			}
		})
	}
}

func TestNormalize_CustomMapping(t *testing.T) {
	payload := map[string]interface{}{
		"entry": map[string]interface{}{
			"123": "a@b.com",
			"456": "Jane Doe",
		},
		"email": "ignored@example.com",
	}
	mapping := map[string]string{
		"entry.123": "email",
		"entry.456": "full_name",
		"entry.999": "phone",   // absent from payload
		"email":     "company", // not a canonical field
	}

	got := Normalize(payload, mapping)

	assertField(t, "email", got.Email, strPtr("a@b.com"))
	assertField(t, "full_name", got.FullName, strPtr("Jane Doe"))
	assertField(t, "phone", got.Phone, nil)
	if !reflect.DeepEqual(got.Data, payload) {
		t.Errorf("Data should carry the original payload even under custom mapping")
	}
}

func TestNormalize_MappingDisablesAutoDetect(t *testing.T) {
	payload := map[string]interface{}{"email": "auto@example.com"}
	mapping := map[string]string{"missing.path": "email"}

	got := Normalize(payload, mapping)
	if got.Email != nil {
		t.Errorf("Custom mapping should suppress alias detection, got email %q", *got.Email)
	}
}

func TestNormalize_DeepNestedAliasNotDetected(t *testing.T) {
	// aliases match flattened keys exactly; "lead.email" is not "email"
	payload := map[string]interface{}{
		"lead": map[string]interface{}{"email": "a@b.com"},
	}
	got := Normalize(payload, nil)
	if got.Email != nil {
		t.Errorf("Nested email should not auto-detect without a mapping, got %q", *got.Email)
	}
}

func assertField(t *testing.T, name string, got, expected *string) {
	t.Helper()
	if expected == nil {
		if got != nil {
			t.Errorf("Expected %s to be nil, got %q", name, *got)
		}
		return
	}
	if got == nil {
		t.Errorf("Expected %s %q, got nil", name, *expected)
		return
	}
	if *got != *expected {
		t.Errorf("Expected %s %q, got %q", name, *expected, *got)
	}
}
