package telegram

import (
	"testing"

	"golang.org/x/time/rate"
)

func TestAuthManager_IsAllowed(t *testing.T) {
	am := NewAuthManager([]int64{123}, 2, 1)

	tests := []struct {
		name   string
		userID int64
		want   bool
	}{
		{"allowed user", 123, true},
		{"stranger", 999, false},
		{"zero id", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := am.IsAllowed(tt.userID); got != tt.want {
				t.Errorf("IsAllowed() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAuthManager_IsAllowed_Open(t *testing.T) {
	// без списка бот открыт всем
	am := NewAuthManager(nil, 2, 1)

	if am.IsRestricted() {
		t.Error("IsRestricted() should be false without allowed ids")
	}
	if !am.IsAllowed(42) {
		t.Error("IsAllowed() should return true when no user is configured")
	}
}

func TestAuthManager_CheckRateLimit(t *testing.T) {
	am := NewAuthManager([]int64{123}, 1, 2)

	for i := 0; i < 2; i++ {
		if err := am.CheckRateLimit(123); err != nil {
			t.Fatalf("request %d should pass: %v", i+1, err)
		}
	}
	if err := am.CheckRateLimit(123); err == nil {
		t.Error("third request in a burst should be limited")
	}

	// лимиты независимы для разных пользователей
	if err := am.CheckRateLimit(456); err != nil {
		t.Errorf("other user should not be limited: %v", err)
	}
}

func TestAuthManager_CleanupRateLimiters(t *testing.T) {
	am := NewAuthManager(nil, 1, 1)

	_ = am.CheckRateLimit(1)
	am.mu.Lock()
	am.rateLimiters[2] = rate.NewLimiter(am.limit, am.burst)
	am.mu.Unlock()

	removed := am.CleanupRateLimiters()
	if removed != 1 {
		t.Errorf("CleanupRateLimiters() removed = %d, want 1", removed)
	}
	if _, ok := am.rateLimiters[1]; !ok {
		t.Error("active limiter should be kept")
	}
}
