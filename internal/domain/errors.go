package domain

import "errors"

var (
	// ErrNotFound возвращается когда запись не найдена
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput возвращается при некорректных входных данных
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized возвращается при ошибке авторизации
	ErrUnauthorized = errors.New("unauthorized")

	// ErrMarketData возвращается при сбое сервиса рыночных данных
	ErrMarketData = errors.New("market data service error")

	// ErrRateLimited возвращается когда сервис рыночных данных ограничил запросы
	ErrRateLimited = errors.New("market data rate limited")

	// ErrOracleUnavailable возвращается когда LLM-парсер недоступен или ответил мусором
	ErrOracleUnavailable = errors.New("oracle unavailable")

	// ErrNoPosition возвращается когда для выхода не найдено открытой позиции
	ErrNoPosition = errors.New("no open position")

	// ErrAmbiguousExit возвращается когда символу соответствует несколько открытых позиций
	ErrAmbiguousExit = errors.New("ambiguous exit")

	// ErrDatabaseConnection возвращается при ошибке подключения к БД
	ErrDatabaseConnection = errors.New("database connection error")
)
