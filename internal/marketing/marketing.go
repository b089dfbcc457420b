// Package marketing suggests a promotion strategy for a category, audience
// and budget level from the configured tables.
package marketing

import (
	"fmt"
	"strings"

	"github.com/czhharrison/MerchantChat/internal/config"
)

// Advisor looks up strategy and budget advice. Lookups never fail; unknown
// keys fall back to the configured defaults.
type Advisor struct {
	cfg        config.Marketing
	categories map[string]map[string]string
}

func NewAdvisor(cfg config.Marketing) *Advisor {
	cats := make(map[string]map[string]string, len(cfg.Strategies))
	for _, s := range cfg.Strategies {
		cats[s.Category] = s.Audiences
	}
	return &Advisor{cfg: cfg, categories: cats}
}

// Strategy returns the strategy line for category and audience.
func (a *Advisor) Strategy(category, audience string) string {
	table, ok := a.categories[strings.TrimSpace(category)]
	if !ok {
		table = a.categories[a.cfg.DefaultCategory]
	}
	if s, ok := table[strings.TrimSpace(audience)]; ok {
		return s
	}
	return table[a.cfg.FallbackAudience]
}

// Budget returns the budget advice for level.
func (a *Advisor) Budget(level string) string {
	if b, ok := a.cfg.Budgets[strings.TrimSpace(level)]; ok {
		return b
	}
	return a.cfg.Budgets[a.cfg.DefaultBudget]
}

// Suggest renders the combined strategy text.
func (a *Advisor) Suggest(category, audience, budget string) string {
	return fmt.Sprintf("策略建议：%s。预算策略：%s", a.Strategy(category, audience), a.Budget(budget))
}
