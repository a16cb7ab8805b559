package telegram

import (
	"fmt"
	"sync"

	"golang.org/x/time/rate"
)

// AuthManager управляет доступом и rate limiting
type AuthManager struct {
	allowed      map[int64]bool
	rateLimiters map[int64]*rate.Limiter
	limit        rate.Limit
	burst        int
	mu           sync.Mutex
}

// NewAuthManager создает менеджер авторизации.
// Пустой список разрешает доступ всем.
func NewAuthManager(allowedIDs []int64, perSecond float64, burst int) *AuthManager {
	if perSecond <= 0 {
		perSecond = 2
	}
	if burst <= 0 {
		burst = 1
	}
	am := &AuthManager{
		allowed:      make(map[int64]bool, len(allowedIDs)),
		rateLimiters: make(map[int64]*rate.Limiter),
		limit:        rate.Limit(perSecond),
		burst:        burst,
	}
	for _, id := range allowedIDs {
		if id != 0 {
			am.allowed[id] = true
		}
	}
	return am
}

// IsRestricted сообщает, ограничен ли доступ списком пользователей
func (am *AuthManager) IsRestricted() bool {
	am.mu.Lock()
	defer am.mu.Unlock()
	return len(am.allowed) > 0
}

// IsAllowed проверяет, разрешен ли доступ пользователю
func (am *AuthManager) IsAllowed(userID int64) bool {
	am.mu.Lock()
	defer am.mu.Unlock()

	if len(am.allowed) == 0 {
		return true
	}
	return am.allowed[userID]
}

// CheckRateLimit проверяет rate limit для пользователя
func (am *AuthManager) CheckRateLimit(userID int64) error {
	am.mu.Lock()
	limiter, exists := am.rateLimiters[userID]
	if !exists {
		limiter = rate.NewLimiter(am.limit, am.burst)
		am.rateLimiters[userID] = limiter
	}
	am.mu.Unlock()

	if !limiter.Allow() {
		return fmt.Errorf("rate limit exceeded, please slow down")
	}
	return nil
}

// CleanupRateLimiters удаляет лимитеры неактивных пользователей (вызывать периодически)
func (am *AuthManager) CleanupRateLimiters() int {
	am.mu.Lock()
	defer am.mu.Unlock()

	removed := 0
	for userID, limiter := range am.rateLimiters {
		// полный бакет: пользователь давно ничего не присылал
		if limiter.Tokens() >= float64(am.burst) {
			delete(am.rateLimiters, userID)
			removed++
		}
	}
	return removed
}
