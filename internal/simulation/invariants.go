package simulation

import (
	"fmt"
	"math"

	"github.com/nvandessel/smesim/internal/constants"
	"github.com/nvandessel/smesim/internal/dimensions"
	"github.com/nvandessel/smesim/internal/models"
)

// structural is the part of an agent that only specific stages may change.
type structural struct {
	size      models.SizeCategory
	formality models.Formality
}

func captureStructure(agents []models.Agent, buf []structural) []structural {
	if cap(buf) < len(agents) {
		buf = make([]structural, len(agents))
	}
	buf = buf[:len(agents)]
	for i := range agents {
		buf[i] = structural{size: agents[i].Size, formality: agents[i].Formality}
	}
	return buf
}

// checkInvariants verifies every agent after stage ran. before holds each
// agent's size and formality from just before the stage.
func checkInvariants(stage string, year int, agents []models.Agent, before []structural) error {
	if len(agents) != len(before) {
		return &dimensions.DimensionUpdateError{
			Dimension: stage, Year: year, AgentID: -1,
			Reason: fmt.Sprintf("agent count changed from %d to %d", len(before), len(agents)),
		}
	}

	for i := range agents {
		if reason := agentViolation(stage, &agents[i], before[i]); reason != "" {
			return &dimensions.DimensionUpdateError{
				Dimension: stage, Year: year, AgentID: agents[i].ID, Reason: reason,
			}
		}
	}
	return nil
}

func agentViolation(stage string, a *models.Agent, prev structural) string {
	if a.Size < prev.size {
		return fmt.Sprintf("size moved down from %s to %s", prev.size, a.Size)
	}
	if a.Size != prev.size && stage != dimensions.StageSegmentation {
		return fmt.Sprintf("size changed from %s to %s outside segmentation", prev.size, a.Size)
	}
	if !a.Size.Valid() {
		return fmt.Sprintf("invalid size %s", a.Size)
	}
	if prev.formality == models.Formal && a.Formality != models.Formal {
		return "formal agent became informal"
	}
	if a.Formality != prev.formality && stage != dimensions.StageRegulatory {
		return fmt.Sprintf("formality changed to %s outside regulatory", a.Formality)
	}

	for _, f := range []struct {
		name string
		v    float64
	}{
		{"revenue", a.Revenue},
		{"debt", a.Debt},
		{"costs_this_year", a.CostsThisYear},
		{"productivity", a.Productivity},
		{"interest_rate", a.InterestRate},
	} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) || f.v < 0 {
			return fmt.Sprintf("%s = %v, want finite and non-negative", f.name, f.v)
		}
	}

	for _, f := range []struct {
		name string
		v    float64
	}{
		{"debt_ratio", a.DebtRatio},
		{"creditworthiness", a.Creditworthiness},
		{"digital_literacy", a.DigitalLiteracy},
		{"resilience_score", a.ResilienceScore},
		{"inclusion_score", a.InclusionScore},
		{"compliance_cost_factor", a.ComplianceCostFactor},
	} {
		if !(f.v >= 0 && f.v <= 1) {
			return fmt.Sprintf("%s = %v outside [0, 1]", f.name, f.v)
		}
	}

	if !(a.SkillLevel >= constants.MinSkillLevel && a.SkillLevel <= constants.MaxSkillLevel) {
		return fmt.Sprintf("skill_level = %v outside [%v, %v]", a.SkillLevel, constants.MinSkillLevel, constants.MaxSkillLevel)
	}
	if a.Age < 0 {
		return fmt.Sprintf("age = %d, want non-negative", a.Age)
	}
	return ""
}
