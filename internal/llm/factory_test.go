package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestNewGenerator_Disabled(t *testing.T) {
	gen, err := NewGenerator(Config{Provider: ""})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gen != nil {
		t.Errorf("empty provider returned a generator: %v", gen)
	}
}

func TestNewGenerator_UnknownProvider(t *testing.T) {
	_, err := NewGenerator(Config{Provider: "bard"})
	if err == nil {
		t.Fatal("unknown provider accepted")
	}
	if !strings.Contains(err.Error(), "bard") {
		t.Errorf("error does not name the provider: %v", err)
	}
}

func TestNewGenerator_MissingAPIKey(t *testing.T) {
	for _, provider := range []string{"openai", "anthropic"} {
		if _, err := NewGenerator(Config{Provider: provider}); err == nil {
			t.Errorf("%s without API key accepted", provider)
		}
	}
}

func TestNewGenerator_Providers(t *testing.T) {
	tests := []struct {
		provider string
		config   Config
		wantName string
	}{
		{"openai", Config{Provider: "openai", APIKey: "sk-test"}, "openai"},
		{"anthropic", Config{Provider: "anthropic", APIKey: "sk-ant-test"}, "anthropic"},
		{"claude alias", Config{Provider: "claude", APIKey: "sk-ant-test"}, "anthropic"},
		{"ollama", Config{Provider: "ollama"}, "ollama"},
		{"case insensitive", Config{Provider: "OpenAI", APIKey: "sk-test"}, "openai"},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			gen, err := NewGenerator(tt.config)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if gen.Name() != tt.wantName {
				t.Errorf("name = %q, want %q", gen.Name(), tt.wantName)
			}
		})
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"transient provider error", &Error{Provider: "openai", StatusCode: 503, Transient: true}, true},
		{"rate limited", &Error{Provider: "openai", StatusCode: 429, Transient: true}, true},
		{"invalid request", &Error{Provider: "openai", StatusCode: 400}, false},
		{"deadline exceeded", context.DeadlineExceeded, true},
		{"wrapped deadline", errors.Join(errors.New("call failed"), context.DeadlineExceeded), true},
		{"plain error", errors.New("boom"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestTransientStatus(t *testing.T) {
	transient := []int{408, 429, 500, 502, 503, 529}
	for _, code := range transient {
		if !transientStatus(code) {
			t.Errorf("status %d not classified transient", code)
		}
	}
	permanent := []int{200, 400, 401, 403, 404, 422}
	for _, code := range permanent {
		if transientStatus(code) {
			t.Errorf("status %d classified transient", code)
		}
	}
}

func TestError_Message(t *testing.T) {
	withStatus := &Error{Provider: "openai", StatusCode: 429, Message: "rate limited"}
	if got := withStatus.Error(); !strings.Contains(got, "429") || !strings.Contains(got, "openai") {
		t.Errorf("error string missing detail: %q", got)
	}

	withoutStatus := &Error{Provider: "ollama", Message: "connection refused"}
	if got := withoutStatus.Error(); strings.Contains(got, "status") {
		t.Errorf("zero status rendered: %q", got)
	}
}
