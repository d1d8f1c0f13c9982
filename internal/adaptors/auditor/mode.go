package auditor

import (
	"strings"

	"web_accessibility_analyzer/internal/domain/adaptors"
	"web_accessibility_analyzer/internal/pkg/errors"

	log "github.com/sirupsen/logrus"
)

type Mode string

const (
	ModeBrowser Mode = "browser"
	ModeStatic  Mode = "static"
)

func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeBrowser, nil
	case ModeBrowser, ModeStatic:
		return m, nil
	default:
		return "", errors.Errorf(`unknown auditor mode %q`, s)
	}
}

// New builds the PageAuditor for mode.
func New(mode Mode, log *log.Logger, webClient adaptors.WebClient, cfg BrowserConfig) (adaptors.PageAuditor, error) {
	switch mode {
	case ModeBrowser:
		return NewBrowserAuditor(log, webClient, cfg), nil
	case ModeStatic:
		return NewStaticAuditor(log, webClient, defaultRuleWorkers), nil
	default:
		return nil, errors.Errorf(`unknown auditor mode %q`, mode)
	}
}
