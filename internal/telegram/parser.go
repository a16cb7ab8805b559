package telegram

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kirillm/trade-journal/internal/domain"
)

// CommandArgs представляет распарсенные аргументы команды
type CommandArgs struct {
	Command string
	Count   int
	Raw     []string
}

// CommandType представляет тип команды
type CommandType string

const (
	CmdStart     CommandType = "start"
	CmdHelp      CommandType = "help"
	CmdStatus    CommandType = "status"
	CmdPositions CommandType = "positions"
	CmdBalance   CommandType = "balance"
	CmdLog       CommandType = "log"
	CmdStats     CommandType = "stats"
)

const maxLogCount = 100

// ParseCommand парсит команду и аргументы
func ParseCommand(text string) (*CommandArgs, error) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return nil, fmt.Errorf("not a command")
	}

	parts := strings.Fields(text)
	if len(parts) == 0 || parts[0] == "/" {
		return nil, fmt.Errorf("empty command")
	}

	// /log@my_journal_bot 5
	cmd := strings.TrimPrefix(parts[0], "/")
	if i := strings.Index(cmd, "@"); i >= 0 {
		cmd = cmd[:i]
	}
	cmd = normalizeCommand(cmd)

	args := &CommandArgs{
		Command: cmd,
		Raw:     parts[1:],
	}

	switch CommandType(cmd) {
	case CmdStart, CmdHelp, CmdStatus, CmdPositions, CmdStats:
		return args, nil

	case CmdLog:
		// /log [N]
		args.Count = domain.DefaultLogLimit
		if len(parts) >= 2 {
			if !isNumber(parts[1]) {
				return nil, fmt.Errorf("usage: /log [N]")
			}
			args.Count = parseInt(parts[1], domain.DefaultLogLimit)
		}
		if args.Count < 1 || args.Count > maxLogCount {
			return nil, fmt.Errorf("count must be between 1 and %d", maxLogCount)
		}
		return args, nil

	default:
		return nil, fmt.Errorf("unknown command: %s", cmd)
	}
}

// normalizeCommand нормализует команду (алиасы и русские команды)
func normalizeCommand(cmd string) string {
	cmd = strings.ToLower(strings.TrimSpace(cmd))

	aliases := map[string]string{
		"balance":    "positions",
		"статус":     "status",
		"помощь":     "help",
		"позиции":    "positions",
		"баланс":     "positions",
		"журнал":     "log",
		"статистика": "stats",
	}

	if en, ok := aliases[cmd]; ok {
		return en
	}
	return cmd
}

// isNumber проверяет, является ли строка целым числом
func isNumber(s string) bool {
	_, err := strconv.Atoi(s)
	return err == nil
}

// parseInt безопасно парсит int
func parseInt(s string, defaultVal int) int {
	val, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return val
}
