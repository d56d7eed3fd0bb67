package factory

import (
	"github.com/mikey/mail-sorter/internal/config"
	"github.com/mikey/mail-sorter/internal/core"
)

// ServiceConfig builds the rule service tunables from configuration
func ServiceConfig(cfg *config.Config) (core.ServiceConfig, error) {
	budget, err := cfg.GetDuration("discovery.time_budget")
	if err != nil {
		return core.ServiceConfig{}, err
	}
	rules := cfg.GetRules()

	return core.ServiceConfig{
		BatchSize:          cfg.GetSweep().BatchSize,
		PerLabelLimit:      cfg.GetDiscovery().PerLabelLimit,
		TimeBudget:         budget,
		ReservedCategories: rules.ReservedCategories,
		MinConfidence:      cfg.GetLLM().MinConfidence,
		AutoConsolidate:    rules.AutoConsolidate,
	}, nil
}
