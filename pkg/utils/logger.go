package utils

import (
	"io"
	"log"
	"os"
	"strings"
)

type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

// Logger простой уровневый логгер поверх log.Logger
type Logger struct {
	level  LogLevel
	prefix string
	logger *log.Logger
}

var defaultLogger *Logger

func init() {
	defaultLogger = NewLogger("info")
}

// ParseLevel разбирает уровень из конфигурации, по умолчанию INFO
func ParseLevel(levelStr string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(levelStr)) {
	case "debug":
		return DEBUG
	case "warn", "warning":
		return WARN
	case "error":
		return ERROR
	default:
		return INFO
	}
}

func NewLogger(levelStr string) *Logger {
	return NewLoggerWithWriter(levelStr, os.Stdout)
}

// NewLoggerWithWriter создает логгер с произвольным выводом (используется в тестах)
func NewLoggerWithWriter(levelStr string, w io.Writer) *Logger {
	return &Logger{
		level:  ParseLevel(levelStr),
		logger: log.New(w, "", log.LstdFlags),
	}
}

// NewNopLogger логгер, который ничего не пишет
func NewNopLogger() *Logger {
	return NewLoggerWithWriter("error", io.Discard)
}

// Named возвращает логгер компонента с префиксом "[name]"
func (l *Logger) Named(name string) *Logger {
	prefix := l.prefix + "[" + name + "] "
	return &Logger{level: l.level, prefix: prefix, logger: l.logger}
}

func (l *Logger) Debug(format string, v ...interface{}) {
	if l.level <= DEBUG {
		l.logger.Printf("[DEBUG] "+l.prefix+format, v...)
	}
}

func (l *Logger) Info(format string, v ...interface{}) {
	if l.level <= INFO {
		l.logger.Printf("[INFO] "+l.prefix+format, v...)
	}
}

func (l *Logger) Warn(format string, v ...interface{}) {
	if l.level <= WARN {
		l.logger.Printf("[WARN] "+l.prefix+format, v...)
	}
}

func (l *Logger) Error(format string, v ...interface{}) {
	if l.level <= ERROR {
		l.logger.Printf("[ERROR] "+l.prefix+format, v...)
	}
}

// SetDefault заменяет глобальный логгер
func SetDefault(l *Logger) {
	if l != nil {
		defaultLogger = l
	}
}

// Global logging functions
func LogInfo(format string, v ...interface{}) {
	defaultLogger.Info(format, v...)
}

func LogWarn(format string, v ...interface{}) {
	defaultLogger.Warn(format, v...)
}

func LogError(format string, v ...interface{}) {
	defaultLogger.Error(format, v...)
}
