// Package dimensions implements the twelve yearly update rules applied to
// every SME agent. Each Model mutates the agent table in place, visiting
// agents in index order so that random draws happen in a fixed order.
package dimensions

import (
	"fmt"

	"github.com/nvandessel/smesim/internal/models"
	"github.com/nvandessel/smesim/internal/params"
	"github.com/nvandessel/smesim/internal/randstream"
)

// Stage names, in application order.
const (
	StageSegmentation         = "segmentation"
	StageBusinessEnvironment  = "business_environment"
	StageFinancing            = "financing"
	StageTechnology           = "technology"
	StageMarketAccess         = "market_access"
	StageHumanCapital         = "human_capital"
	StageRegulatory           = "regulatory"
	StageInnovation           = "innovation"
	StageSustainability       = "sustainability"
	StageResilience           = "resilience"
	StageInternationalization = "internationalization"
	StageInclusion            = "inclusion"
)

// Model is one dimension's yearly update rule.
type Model interface {
	Name() string
	ApplyYear(y *Year) error
}

// Year is everything a model may read or write while applying one year.
type Year struct {
	Agents []models.Agent
	Params *params.Set
	Year   int
	Rand   *randstream.Stream
	Env    *Environment
	Tally  *Tally
}

// Environment is the scenario-wide state shared by all agents.
type Environment struct {
	InfrastructureIndex  float64 `json:"infrastructure_index"`
	CompetitionLevel     float64 `json:"competition_level"`
	PrevTechAdoptionRate float64 `json:"prev_tech_adoption_rate"`
}

// NewEnvironment returns the environment before the first simulated year.
// The peer adoption rate is taken from the initial population.
func NewEnvironment(p *params.Set, agents []models.Agent) *Environment {
	env := &Environment{
		InfrastructureIndex: p.BusinessEnvironment.InitialInfrastructureIndex,
		CompetitionLevel:    p.BusinessEnvironment.CompetitionLevel,
	}
	if len(agents) > 0 {
		adopters := 0
		for i := range agents {
			if agents[i].HasAdoptedTech {
				adopters++
			}
		}
		env.PrevTechAdoptionRate = float64(adopters) / float64(len(agents))
	}
	return env
}

// Tally counts the events of one year. It is reset before every year.
type Tally struct {
	SizeUpgrades          int     `json:"size_upgrades"`
	LoansSought           int     `json:"loans_sought"`
	LoansApproved         int     `json:"loans_approved"`
	NewLoanRateSum        float64 `json:"new_loan_rate_sum"`
	Repayments            int     `json:"repayments"`
	NewTechAdopters       int     `json:"new_tech_adopters"`
	NewEcommerceUsers     int     `json:"new_ecommerce_users"`
	SkillImprovements     int     `json:"skill_improvements"`
	NewFormalizations     int     `json:"new_formalizations"`
	NewInnovators         int     `json:"new_innovators"`
	NewSustainable        int     `json:"new_sustainable"`
	ResilienceGains       int     `json:"resilience_gains"`
	Shocked               int     `json:"shocked"`
	NewExporters          int     `json:"new_exporters"`
	InclusionImprovements int     `json:"inclusion_improvements"`
}

// Counts returns the integer counters keyed by their JSON names.
func (t *Tally) Counts() map[string]int {
	return map[string]int{
		"size_upgrades":          t.SizeUpgrades,
		"loans_sought":           t.LoansSought,
		"loans_approved":         t.LoansApproved,
		"repayments":             t.Repayments,
		"new_tech_adopters":      t.NewTechAdopters,
		"new_ecommerce_users":    t.NewEcommerceUsers,
		"skill_improvements":     t.SkillImprovements,
		"new_formalizations":     t.NewFormalizations,
		"new_innovators":         t.NewInnovators,
		"new_sustainable":        t.NewSustainable,
		"resilience_gains":       t.ResilienceGains,
		"shocked":                t.Shocked,
		"new_exporters":          t.NewExporters,
		"inclusion_improvements": t.InclusionImprovements,
	}
}

// MeanNewLoanRate is the average interest rate of loans approved this year.
func (t *Tally) MeanNewLoanRate() float64 {
	if t.LoansApproved == 0 {
		return 0
	}
	return t.NewLoanRateSum / float64(t.LoansApproved)
}

// DimensionUpdateError reports a stage that failed or left an agent in a
// state that violates an invariant.
// AgentID is -1 when the failure is not tied to one agent.
type DimensionUpdateError struct {
	Dimension string
	Year      int
	AgentID   int
	Reason    string
	Err       error
}

func (e *DimensionUpdateError) Error() string {
	if e.AgentID < 0 {
		return fmt.Sprintf("dimension %s failed in year %d: %s", e.Dimension, e.Year, e.Reason)
	}
	return fmt.Sprintf("dimension %s failed in year %d for agent %d: %s", e.Dimension, e.Year, e.AgentID, e.Reason)
}

func (e *DimensionUpdateError) Unwrap() error { return e.Err }

// Stages returns a fresh instance of every model in application order.
func Stages() []Model {
	return []Model{
		Segmentation{},
		BusinessEnvironment{},
		Financing{},
		Technology{},
		MarketAccess{},
		HumanCapital{},
		Regulatory{},
		Innovation{},
		Sustainability{},
		Resilience{},
		Internationalization{},
		Inclusion{},
	}
}

// StageNames returns the stage names in application order.
func StageNames() []string {
	stages := Stages()
	names := make([]string, len(stages))
	for i, m := range stages {
		names[i] = m.Name()
	}
	return names
}

// scale multiplies revenue by factor, flooring the result at zero.
func scale(a *models.Agent, factor float64) {
	a.Revenue *= factor
	if a.Revenue < 0 {
		a.Revenue = 0
	}
}
