// internal/scoring/suggestions.go
package scoring

import (
	"sort"

	"tidescore-workers/internal/models"
)

var suggestionMessages = map[string]string{
	CategoryPersonal:   "Complete employment and residency verification to strengthen your profile",
	CategoryAirtime:    "Maintain consistent airtime and data purchases every month",
	CategoryBills:      "Add more verified bill payments such as electricity, internet, or rent",
	CategoryP2P:        "Build a wider history of verified peer-to-peer transactions",
	CategoryBank:       "Keep regular monthly deposits and a healthier average bank balance",
	CategoryGuarantors: "Provide two verified guarantors with strong relationships",
}

// suggestions returns improvement advice for every category below the
// cutoff, weakest first. The breakdown arrives in canonical order and the
// sort is stable, so equal sub-scores keep canonical order.
func (e *Engine) suggestions(breakdown models.Breakdown) []string {
	type weak struct {
		score int
		msg   string
	}
	var weaks []weak
	for _, cs := range breakdown {
		if cs.SubScore >= e.model.ImprovementCutoff {
			continue
		}
		msg, ok := suggestionMessages[cs.Category]
		if !ok {
			continue
		}
		weaks = append(weaks, weak{score: cs.SubScore, msg: msg})
	}

	sort.SliceStable(weaks, func(i, j int) bool { return weaks[i].score < weaks[j].score })

	out := make([]string, 0, len(weaks))
	for _, w := range weaks {
		out = append(out, w.msg)
	}
	return out
}
