package models

// AggregateRecord summarizes the agent table of one scenario at the end of one
// year. It is the unit handed to result sinks.
type AggregateRecord struct {
	Scenario string `json:"scenario"`
	Year     int    `json:"year"`

	TotalSMEs   int `json:"total_smes"`
	MicroCount  int `json:"micro_count"`
	SmallCount  int `json:"small_count"`
	MediumCount int `json:"medium_count"`
	FormalCount int `json:"formal_count"`

	MeanRevenue          float64 `json:"mean_revenue"`
	TotalRevenue         float64 `json:"total_revenue"`
	MeanDebtRatio        float64 `json:"mean_debt_ratio"`
	MeanCreditworthiness float64 `json:"mean_creditworthiness"`
	MeanDigitalLiteracy  float64 `json:"mean_digital_literacy"`
	MeanProductivity     float64 `json:"mean_productivity"`
	MeanSkillLevel       float64 `json:"mean_skill_level"`
	MeanComplianceCost   float64 `json:"mean_compliance_cost"`
	MeanCosts            float64 `json:"mean_costs"`
	MeanResilience       float64 `json:"mean_resilience"`
	MeanInclusion        float64 `json:"mean_inclusion"`

	FormalShare         float64 `json:"formal_share"`
	FinancingAccessRate float64 `json:"financing_access_rate"`
	TechAdoptionRate    float64 `json:"tech_adoption_rate"`
	EcommerceRate       float64 `json:"ecommerce_rate"`
	InnovatorRate       float64 `json:"innovator_rate"`
	SustainabilityRate  float64 `json:"sustainability_rate"`
	ExporterRate        float64 `json:"exporter_rate"`
	ExporterCount       int     `json:"exporter_count"`

	// Events recorded during the year.
	LoansSought          int     `json:"loans_sought"`
	LoansApproved        int     `json:"loans_approved"`
	MeanNewLoanRate      float64 `json:"mean_new_loan_rate"`
	NewTechAdopters      int     `json:"new_tech_adopters"`
	NewEcommerceUsers    int     `json:"new_ecommerce_users"`
	SkillImprovements    int     `json:"skill_improvements"`
	NewFormalizations    int     `json:"new_formalizations"`
	NewInnovators        int     `json:"new_innovators"`
	NewSustainable       int     `json:"new_sustainable"`
	ShockedCount         int     `json:"shocked_count"`
	NewExporters         int     `json:"new_exporters"`
	InclusionImprovement int     `json:"inclusion_improvements"`
	SizeUpgrades         int     `json:"size_upgrades"`

	InfrastructureIndex float64 `json:"infrastructure_index"`
}
