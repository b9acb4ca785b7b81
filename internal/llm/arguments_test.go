package llm

import (
	"reflect"
	"testing"
)

func TestParseToolArguments(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want map[string]interface{}
	}{
		{"valid object", `{"category": "A"}`, map[string]interface{}{"category": "A"}},
		{"empty payload", ``, map[string]interface{}{}},
		{"string-wrapped object", `"{\"category\": \"A\"}"`, map[string]interface{}{"category": "A"}},
		{"single quotes", `{'category': 'A'}`, map[string]interface{}{"category": "A"}},
		{"trailing comma", `{"category": "A",}`, map[string]interface{}{"category": "A"}},
		{"non-object payload", `[1, 2, 3]`, map[string]interface{}{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseToolArguments([]byte(tt.raw))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parseToolArguments(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}
