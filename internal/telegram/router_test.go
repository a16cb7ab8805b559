package telegram

import (
	"context"
	"testing"
)

func TestRouter_HandleCommand(t *testing.T) {
	am := NewAuthManager([]int64{ownerID}, 1, 1)
	router := NewRouter(am, NewFormatter(LangEN))
	router.RegisterHandler("help", func(_ context.Context, _ *CommandArgs) (string, error) {
		return "help text", nil
	})

	got, err := router.HandleCommand(context.Background(), ownerID, "/help")
	if err != nil || got != "help text" {
		t.Fatalf("HandleCommand() = %q, %v", got, err)
	}

	// второй запрос в ту же секунду упирается в лимит
	got, _ = router.HandleCommand(context.Background(), ownerID, "/help")
	if got != "❌ Error: rate limit exceeded, please slow down" {
		t.Errorf("HandleCommand() = %q, want rate limit error", got)
	}

	got, _ = router.HandleCommand(context.Background(), 999, "/help")
	if got != "⛔ Access denied" {
		t.Errorf("HandleCommand() = %q, want access denied", got)
	}
}

func TestRouter_LoadingText(t *testing.T) {
	router := NewRouter(NewAuthManager(nil, 1, 1), NewFormatter(LangRU))
	router.RegisterSlowHandler("log", "loading_log", func(_ context.Context, _ *CommandArgs) (string, error) {
		return "", nil
	})

	if got := router.LoadingText("/log 5"); got != "⏳ Загружаю журнал..." {
		t.Errorf("LoadingText() = %q", got)
	}
	if got := router.LoadingText("/help"); got != "" {
		t.Errorf("LoadingText() = %q, want empty", got)
	}
}
