package telegram

import (
	"errors"
	"strings"
	"testing"
)

func TestFormatter_T(t *testing.T) {
	tests := []struct {
		name string
		lang Lang
		key  string
		want string
	}{
		{"english", LangEN, "access_denied", "⛔ Access denied"},
		{"russian", LangRU, "access_denied", "⛔ Доступ запрещен"},
		{"unknown key", LangEN, "no_such_key", "no_such_key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFormatter(tt.lang)
			if got := f.T(tt.key); got != tt.want {
				t.Errorf("T() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewFormatter_FallsBackToEnglish(t *testing.T) {
	f := NewFormatter("de")
	if f.GetLang() != LangEN {
		t.Errorf("GetLang() = %v, want %v", f.GetLang(), LangEN)
	}
}

func TestFormatter_FormatError(t *testing.T) {
	f := NewFormatter(LangEN)
	got := f.FormatError(errors.New("boom"))
	if got != "❌ Error: boom" {
		t.Errorf("FormatError() = %q", got)
	}
}

func TestFormatter_HelpListsCommands(t *testing.T) {
	f := NewFormatter(LangEN)
	help := f.FormatHelp()
	for _, cmd := range []string{"/positions", "/log", "/stats", "/status", "/help"} {
		if !strings.Contains(help, cmd) {
			t.Errorf("FormatHelp() missing %s", cmd)
		}
	}
	if !strings.Contains(f.FormatWelcome(), "Trade Journal Bot") {
		t.Error("FormatWelcome() missing bot name")
	}
}
