package interfaces

import (
	"invest-signals/internal/types"
)

// RiskAssessor flags risk conditions for a scored ticker.
type RiskAssessor interface {
	Assess(result *types.UnifiedAnalysisResult, data *types.AsOfContext) types.RiskAssessment
}
