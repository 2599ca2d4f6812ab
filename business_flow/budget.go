package businessflow

import (
	"sync"
	"time"

	"github.com/stroomalert/stroomalert/config"
	"github.com/stroomalert/stroomalert/models"
)

// BudgetController enforces the rolling per-platform spend ceilings that
// gate new campaign creation. The bare CanAdmit check is advisory and racy
// by design (evaluated once before the asynchronous create call); callers
// that need the gap closed use the Reserve/Release pair, which provisionally
// debits the window until the created campaign lands in the ledger.
type BudgetController struct {
	ledger *CampaignLedger
	cfg    config.EngineConfig

	mu       sync.Mutex
	reserved map[models.Platform]float64
}

// NewBudgetController creates a budget controller over the given ledger
func NewBudgetController(ledger *CampaignLedger, cfg config.EngineConfig) *BudgetController {
	return &BudgetController{
		ledger:   ledger,
		cfg:      cfg,
		reserved: make(map[models.Platform]float64),
	}
}

// Ceiling returns the configured rolling-window spend ceiling for a platform
func (b *BudgetController) Ceiling(platform models.Platform) float64 {
	switch platform {
	case models.PlatformGoogle:
		return b.cfg.CeilingGoogle
	case models.PlatformMeta:
		return b.cfg.CeilingMeta
	default:
		return 0
	}
}

// WindowSpend returns the committed spend on a platform within the trailing
// budget window, excluding outstanding reservations.
func (b *BudgetController) WindowSpend(platform models.Platform, now time.Time) float64 {
	return b.ledger.ActiveSpendWithin(platform, b.cfg.BudgetWindow, now)
}

// CanAdmit reports whether a campaign with the requested budget fits under
// the platform ceiling, boundary inclusive. The window sum is recomputed
// fresh on every call.
func (b *BudgetController) CanAdmit(platform models.Platform, requestedBudget float64, now time.Time) bool {
	b.mu.Lock()
	reserved := b.reserved[platform]
	b.mu.Unlock()

	spent := b.WindowSpend(platform, now) + reserved
	return spent+requestedBudget <= b.Ceiling(platform)
}

// Reserve provisionally debits the window before the external create call.
// Returns false without debiting when the budget does not fit.
func (b *BudgetController) Reserve(platform models.Platform, budget float64, now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	spent := b.ledger.ActiveSpendWithin(platform, b.cfg.BudgetWindow, now) + b.reserved[platform]
	if spent+budget > b.Ceiling(platform) {
		return false
	}
	b.reserved[platform] += budget
	return true
}

// Release returns a reservation to the window, either after the created
// campaign was registered in the ledger or after the create call failed.
func (b *BudgetController) Release(platform models.Platform, budget float64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.reserved[platform] -= budget
	if b.reserved[platform] < 0 {
		b.reserved[platform] = 0
	}
}
