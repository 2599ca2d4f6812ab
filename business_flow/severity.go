package businessflow

import (
	"github.com/stroomalert/stroomalert/config"
	"github.com/stroomalert/stroomalert/models"
)

// CriticalThreshold is the number of impacted households at which an outage
// is always classified critical, regardless of configuration.
const CriticalThreshold = 3000

// severityTier holds the static campaign defaults for one severity level.
// Budgets are daily euros per platform; they are caps and get clamped to
// the configured per-platform maxima in DeriveSeverity.
type severityTier struct {
	label        string
	googleBudget float64
	metaBudget   float64
	radiusKm     float64
}

var severityTable = map[models.SeverityLevel]severityTier{
	models.SeverityCritical: {label: "Critical outage", googleBudget: 75, metaBudget: 75, radiusKm: 15},
	models.SeverityMajor:    {label: "Major outage", googleBudget: 40, metaBudget: 40, radiusKm: 10},
	models.SeverityMinor:    {label: "Minor outage", googleBudget: 15, metaBudget: 15, radiusKm: 5},
}

// ClassifySeverity maps an impact magnitude onto a severity tier with its
// default budgets and radius. Thresholds are evaluated high to low:
// critical at CriticalThreshold and above, major at majorThreshold and
// above, minor otherwise. Pure and deterministic.
func ClassifySeverity(impactHouseholds, majorThreshold int) models.Severity {
	level := models.SeverityMinor
	switch {
	case impactHouseholds >= CriticalThreshold:
		level = models.SeverityCritical
	case impactHouseholds >= majorThreshold:
		level = models.SeverityMajor
	}

	tier := severityTable[level]
	return models.Severity{
		Level:        level,
		Label:        tier.label,
		GoogleBudget: tier.googleBudget,
		MetaBudget:   tier.metaBudget,
		RadiusKm:     tier.radiusKm,
	}
}

// DeriveSeverity classifies an impact magnitude and clamps the tier budgets
// to the configured per-platform daily maxima. Used at enrichment time and
// again on every update that carries a new impact value.
func DeriveSeverity(impactHouseholds int, cfg config.EngineConfig) models.Severity {
	severity := ClassifySeverity(impactHouseholds, cfg.MajorThreshold)
	if severity.GoogleBudget > cfg.MaxDailyBudgetGoogle {
		severity.GoogleBudget = cfg.MaxDailyBudgetGoogle
	}
	if severity.MetaBudget > cfg.MaxDailyBudgetMeta {
		severity.MetaBudget = cfg.MaxDailyBudgetMeta
	}
	return severity
}
