// Package models defines the SME agent record and the yearly aggregate record
// shared by the population generator, the dimension models, and the result sinks.
package models

// Agent is one simulated enterprise. Fields are grouped by the dimension that
// owns them; later dimensions in a year may read fields earlier ones wrote.
type Agent struct {
	// Identity and segmentation
	ID          int          `json:"id"`
	Sector      Sector       `json:"sector"`
	Size        SizeCategory `json:"size"`
	Formality   Formality    `json:"formality"`
	Location    Location     `json:"location"`
	Age         int          `json:"age"`
	OwnerGender Gender       `json:"owner_gender"`
	YouthLed    bool         `json:"youth_led"`

	// Financial
	Revenue              float64 `json:"revenue"`
	Debt                 float64 `json:"debt"`
	DebtRatio            float64 `json:"debt_ratio"`
	Creditworthiness     float64 `json:"creditworthiness"`
	HasFormalFinancing   bool    `json:"has_formal_financing"`
	InterestRate         float64 `json:"interest_rate"`
	LoanApprovedThisYear bool    `json:"loan_approved_this_year"`

	// Technology
	DigitalLiteracy float64 `json:"digital_literacy"`
	HasAdoptedTech  bool    `json:"has_adopted_tech"`
	Productivity    float64 `json:"productivity"`

	// Market access
	UsesEcommerce bool `json:"uses_ecommerce"`

	// Human capital
	SkillLevel float64 `json:"skill_level"`

	// Regulatory
	ComplianceCostFactor float64 `json:"compliance_cost_factor"`
	FormalizedThisYear   bool    `json:"formalized_this_year"`

	// Innovation, sustainability, resilience, internationalization, inclusion
	IsInnovator     bool    `json:"is_innovator"`
	IsSustainable   bool    `json:"is_sustainable"`
	ResilienceScore float64 `json:"resilience_score"`
	ShockedThisYear bool    `json:"shocked_this_year"`
	IsExporter      bool    `json:"is_exporter"`
	InclusionScore  float64 `json:"inclusion_score"`

	// CostsThisYear accumulates compliance, technology, sustainability and
	// debt service costs. Reset at the start of every year.
	CostsThisYear float64 `json:"costs_this_year"`
}

// IsFormal reports whether the agent is registered.
func (a *Agent) IsFormal() bool {
	return a.Formality == Formal
}

// UpdateDebtRatio recomputes DebtRatio from Debt and Revenue, clamped to [0, 1].
// An agent with debt and no revenue is fully leveraged.
func (a *Agent) UpdateDebtRatio() {
	switch {
	case a.Debt <= 0:
		a.DebtRatio = 0
	case a.Revenue <= 0:
		a.DebtRatio = 1
	default:
		r := a.Debt / a.Revenue
		if r > 1 {
			r = 1
		}
		a.DebtRatio = r
	}
}

// Population is the agent table owned by one scenario run.
type Population []Agent

// Clone returns a deep copy of the population. Agents hold no references,
// so a slice copy is sufficient.
func (p Population) Clone() Population {
	out := make(Population, len(p))
	copy(out, p)
	return out
}
