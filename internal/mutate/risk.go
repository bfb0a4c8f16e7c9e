package mutate

import (
	"context"

	"github.com/cerberus-code/cerberus/pkg/cerberus/model"
)

// riskGate is advisory only: it estimates blast radius from how many
// resolved call sites a symbol has. Churn (edits per unit time) would
// sharpen this into a real HIGH tier, but the core tracks no VCS
// history, so this only ever returns SAFE or MEDIUM — HIGH is reserved
// for a churn signal this package doesn't yet compute.
func (e *Engine) riskGate(ctx context.Context, symbolName string) (RiskLevel, error) {
	refs, err := e.cfg.Store.QuerySymbolReferencesFiltered(ctx, model.RefCalls, symbolName)
	if err != nil {
		return RiskSafe, err
	}
	if len(refs) == 0 {
		return RiskSafe, nil
	}
	return RiskMedium, nil
}
