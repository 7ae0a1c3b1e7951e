// internal/analysis/recommendation.go
package analysis

import (
	"fmt"
	"time"

	"github.com/hospitalops/parlogic/internal/domain"
)

// RecommendationEngine classifies current stock against PAR levels and
// derives reorder quantities.
type RecommendationEngine struct {
	par *PARLevelEngine
}

// NewRecommendationEngine builds an engine over the given PAR calculator.
func NewRecommendationEngine(par *PARLevelEngine) *RecommendationEngine {
	return &RecommendationEngine{par: par}
}

// GetRecommendations computes PAR levels per item and compares them against
// currentStock; items absent from the map default to zero stock.
//
// needsReorder triggers at stock <= reorderPoint while BELOW_MIN requires
// stock strictly below minPAR, so the boundary stock == reorderPoint yields
// needsReorder=true together with status=OPTIMAL. That interaction is part
// of the contract and must hold exactly.
func (e *RecommendationEngine) GetRecommendations(
	itemID string,
	currentStock map[string]float64,
	currentMonth time.Month,
) (map[string]domain.RecommendationResult, error) {
	levels, err := e.par.CalculatePARLevels(itemID, currentMonth)
	if err != nil {
		return nil, err
	}

	recommendations := make(map[string]domain.RecommendationResult, len(levels))
	for item, l := range levels {
		stock := currentStock[item]

		needsReorder := stock <= l.ReorderPoint

		var reorderAmount float64
		if needsReorder {
			reorderAmount = l.MaxPAR - stock
		}

		var status domain.StockStatus
		switch {
		case stock < l.MinPAR:
			status = domain.StatusBelowMin
		case stock > l.MaxPAR:
			status = domain.StatusAboveMax
		default:
			status = domain.StatusOptimal
		}

		recommendations[item] = domain.RecommendationResult{
			ItemID:         item,
			MinPAR:         l.MinPAR,
			MaxPAR:         l.MaxPAR,
			ReorderPoint:   l.ReorderPoint,
			SafetyStock:    l.SafetyStock,
			AvgDailyUsage:  l.AvgDailyUsage,
			CurrentStock:   stock,
			NeedsReorder:   needsReorder,
			ReorderAmount:  reorderAmount,
			Status:         status,
			Recommendation: renderRecommendation(stock, l, needsReorder, reorderAmount, status),
		}
	}

	return recommendations, nil
}

func renderRecommendation(stock float64, l domain.PARLevelResult, needsReorder bool, reorderAmount float64, status domain.StockStatus) string {
	switch {
	case needsReorder:
		return fmt.Sprintf(
			"Place order for %d units to reach optimal stock level. Current stock (%d) is below reorder point (%d).",
			int(reorderAmount), int(stock), int(l.ReorderPoint),
		)
	case status == domain.StatusAboveMax:
		return fmt.Sprintf(
			"Stock level (%d) is above maximum PAR (%d). Consider reducing order quantities.",
			int(stock), int(l.MaxPAR),
		)
	default:
		return "Stock levels are within optimal range. No action needed."
	}
}
