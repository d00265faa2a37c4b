package validation

import (
	"strings"
	"testing"
	"time"
)

type sample struct {
	ID    string   `yaml:"id" validate:"required"`
	Kind  string   `yaml:"kind" validate:"required,oneof=entity activity"`
	Types []string `yaml:"types" validate:"min=1"`
}

func TestStruct(t *testing.T) {
	tests := []struct {
		name    string
		in      sample
		wantErr string
	}{
		{"valid", sample{ID: "a", Kind: "entity", Types: []string{"x"}}, ""},
		{"missing id", sample{Kind: "entity", Types: []string{"x"}}, "id: field is required"},
		{"bad kind", sample{ID: "a", Kind: "thing", Types: []string{"x"}}, "kind:"},
		{"empty types", sample{ID: "a", Kind: "entity"}, "types: must have at least 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(&tt.in)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Struct() unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Struct() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfigValidatorCollectsAllErrors(t *testing.T) {
	cv := NewConfigValidator("Config")
	cv.Required("Backend", "").
		Positive("Workers", 0).
		OneOf("Level", "loud", []string{"debug", "info"}).
		RangeDuration("Timeout", time.Hour, time.Millisecond, time.Minute).
		URL("DatabaseURL", "postgres://db/prov", "postgres", "postgresql")

	err := cv.Validate()
	if err == nil || !strings.Contains(err.Error(), "4 error(s)") {
		t.Errorf("Validate() = %v", err)
	}
}

func TestConfigValidatorWhen(t *testing.T) {
	cv := NewConfigValidator("Config")
	cv.When(false, func(cv *ConfigValidator) { cv.Required("X", "") })
	if err := cv.Validate(); err != nil {
		t.Error("skipped branch should not record errors")
	}
	cv.When(true, func(cv *ConfigValidator) { cv.URL("X", "not a url") })
	if err := cv.Validate(); err == nil {
		t.Error("URL without scheme should fail")
	}
}
