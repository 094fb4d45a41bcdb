package params

import (
	"bytes"
	"fmt"
	"math"

	"github.com/nvandessel/smesim/internal/models"
	"gopkg.in/yaml.v3"
)

// Range is a closed numeric interval used for uniform sampling.
type Range struct {
	Min float64 `yaml:"min" json:"min"`
	Max float64 `yaml:"max" json:"max"`
}

// Distribution maps category names to sampling weights.
type Distribution map[string]float64

// SimulationParams controls the simulated time horizon and the base seed.
type SimulationParams struct {
	StartYear  int   `yaml:"start_year" json:"start_year"`
	EndYear    int   `yaml:"end_year" json:"end_year"`
	TimeStep   int   `yaml:"time_step" json:"time_step"`
	RandomSeed int64 `yaml:"random_seed" json:"random_seed"`
}

// Years returns the simulated years in order.
func (s SimulationParams) Years() []int {
	if s.TimeStep <= 0 || s.EndYear < s.StartYear {
		return nil
	}
	years := make([]int, 0, (s.EndYear-s.StartYear)/s.TimeStep+1)
	for y := s.StartYear; y <= s.EndYear; y += s.TimeStep {
		years = append(years, y)
	}
	return years
}

// Set is the fully resolved, validated parameter set of one scenario.
// It is read-only once decoded.
type Set struct {
	Simulation SimulationParams `yaml:"-" json:"simulation"`

	Segmentation         SegmentationParams         `yaml:"sme_segmentation" json:"sme_segmentation"`
	BusinessEnvironment  BusinessEnvironmentParams  `yaml:"business_environment" json:"business_environment"`
	Financing            FinancingParams            `yaml:"financing" json:"financing"`
	Technology           TechnologyParams           `yaml:"technology_adoption" json:"technology_adoption"`
	MarketAccess         MarketAccessParams         `yaml:"market_access" json:"market_access"`
	HumanCapital         HumanCapitalParams         `yaml:"human_capital" json:"human_capital"`
	Regulatory           RegulatoryParams           `yaml:"regulatory" json:"regulatory"`
	Innovation           InnovationParams           `yaml:"innovation" json:"innovation"`
	Sustainability       SustainabilityParams       `yaml:"sustainability" json:"sustainability"`
	Resilience           ResilienceParams           `yaml:"resilience" json:"resilience"`
	Internationalization InternationalizationParams `yaml:"internationalization" json:"internationalization"`
	Inclusion            InclusionParams            `yaml:"inclusion" json:"inclusion"`
}

// SegmentationParams drives population generation and yearly growth.
type SegmentationParams struct {
	NumSyntheticSMEs      int          `yaml:"num_synthetic_smes" json:"num_synthetic_smes"`
	SectorDistribution    Distribution `yaml:"sector_distribution" json:"sector_distribution"`
	SizeDistribution      Distribution `yaml:"size_distribution" json:"size_distribution"`
	FormalityDistribution Distribution `yaml:"formality_distribution" json:"formality_distribution"`
	LocationDistribution  Distribution `yaml:"location_distribution" json:"location_distribution"`

	AvgBusinessAge        float64 `yaml:"avg_business_age" json:"avg_business_age"`
	RevenueRange          Range   `yaml:"initial_revenue_range" json:"initial_revenue_range"`
	DebtRatioRange        Range   `yaml:"initial_debt_ratio_range" json:"initial_debt_ratio_range"`
	CreditworthinessRange Range   `yaml:"initial_creditworthiness_range" json:"initial_creditworthiness_range"`
	DigitalLiteracyRange  Range   `yaml:"initial_digital_literacy_range" json:"initial_digital_literacy_range"`
	SkillLevelRange       Range   `yaml:"initial_skill_level_range" json:"initial_skill_level_range"`
	ResilienceRange       Range   `yaml:"initial_resilience_range" json:"initial_resilience_range"`
	InclusionRange        Range   `yaml:"initial_inclusion_range" json:"initial_inclusion_range"`

	InitialTechAdoptionRate float64 `yaml:"initial_tech_adoption_rate" json:"initial_tech_adoption_rate"`
	InitialEcommerceRate    float64 `yaml:"initial_ecommerce_rate" json:"initial_ecommerce_rate"`
	WomenOwnershipRate      float64 `yaml:"initial_women_ownership_rate" json:"initial_women_ownership_rate"`
	YouthLedRate            float64 `yaml:"initial_youth_led_rate" json:"initial_youth_led_rate"`

	BaseRevenueGrowthRate float64 `yaml:"base_revenue_growth_rate" json:"base_revenue_growth_rate"`
	MicroToSmallProb      float64 `yaml:"micro_to_small_prob" json:"micro_to_small_prob"`
	SmallToMediumProb     float64 `yaml:"small_to_medium_prob" json:"small_to_medium_prob"`
	GrowthMinRevenue      float64 `yaml:"growth_min_revenue" json:"growth_min_revenue"`
}

type BusinessEnvironmentParams struct {
	InitialInfrastructureIndex    float64 `yaml:"initial_infrastructure_index" json:"initial_infrastructure_index"`
	InfrastructureImprovementRate float64 `yaml:"infrastructure_improvement_rate" json:"infrastructure_improvement_rate"`
	CompetitionLevel              float64 `yaml:"competition_level" json:"competition_level"`
	InfrastructureRevenueEffect   float64 `yaml:"infrastructure_revenue_effect" json:"infrastructure_revenue_effect"`
	RuralInfrastructureMultiplier float64 `yaml:"rural_infrastructure_multiplier" json:"rural_infrastructure_multiplier"`
}

type FinancingParams struct {
	BaseLoanSeekProb              float64 `yaml:"base_loan_seek_prob" json:"base_loan_seek_prob"`
	BaseLoanApprovalProbFactor    float64 `yaml:"base_loan_approval_prob_factor" json:"base_loan_approval_prob_factor"`
	AvgLoanSizeFactor             float64 `yaml:"avg_loan_size_factor" json:"avg_loan_size_factor"`
	MaxDebtRatioThreshold         float64 `yaml:"max_debt_ratio_threshold" json:"max_debt_ratio_threshold"`
	CreditGuaranteeAvailable      bool    `yaml:"credit_guarantee_available" json:"credit_guarantee_available"`
	CreditGuaranteeEffectiveness  float64 `yaml:"credit_guarantee_effectiveness" json:"credit_guarantee_effectiveness"`
	InterestRateMean              float64 `yaml:"interest_rate_mean" json:"interest_rate_mean"`
	InterestRateStddev            float64 `yaml:"interest_rate_stddev" json:"interest_rate_stddev"`
	RepaymentDueFraction          float64 `yaml:"repayment_due_fraction" json:"repayment_due_fraction"`
	RepaymentCapacityFactor       float64 `yaml:"repayment_capacity_factor" json:"repayment_capacity_factor"`
	CreditworthinessRepaymentGain float64 `yaml:"creditworthiness_repayment_gain" json:"creditworthiness_repayment_gain"`
}

type TechnologyParams struct {
	BaseAdoptionProb               float64 `yaml:"base_adoption_prob" json:"base_adoption_prob"`
	LiteracyInfluenceOnAdoption    float64 `yaml:"literacy_influence_on_adoption" json:"literacy_influence_on_adoption"`
	PeerInfluenceOnAdoption        float64 `yaml:"peer_influence_on_adoption" json:"peer_influence_on_adoption"`
	TechProductivityBoost          float64 `yaml:"tech_productivity_boost" json:"tech_productivity_boost"`
	TechCostFactorRevenue          float64 `yaml:"tech_cost_factor_revenue" json:"tech_cost_factor_revenue"`
	DigitalLiteracyImprovementRate float64 `yaml:"digital_literacy_improvement_rate" json:"digital_literacy_improvement_rate"`
}

type MarketAccessParams struct {
	BaseEcommerceAdoptionProb          float64 `yaml:"base_ecommerce_adoption_prob" json:"base_ecommerce_adoption_prob"`
	InfrastructureInfluenceOnEcommerce float64 `yaml:"infrastructure_influence_on_ecommerce" json:"infrastructure_influence_on_ecommerce"`
	LiteracyInfluenceOnEcommerce       float64 `yaml:"literacy_influence_on_ecommerce" json:"literacy_influence_on_ecommerce"`
	EcommerceRevenueBoostFactor        float64 `yaml:"ecommerce_revenue_boost_factor" json:"ecommerce_revenue_boost_factor"`
}

type HumanCapitalParams struct {
	SkillImprovementProb   float64 `yaml:"skill_improvement_prob" json:"skill_improvement_prob"`
	SkillImprovementAmount float64 `yaml:"skill_improvement_amount" json:"skill_improvement_amount"`
	SkillProductivityBoost float64 `yaml:"skill_productivity_boost" json:"skill_productivity_boost"`
}

type RegulatoryParams struct {
	FormalizationProbFactor  float64 `yaml:"formalization_prob_factor" json:"formalization_prob_factor"`
	BaseComplianceCostFactor float64 `yaml:"base_compliance_cost_factor" json:"base_compliance_cost_factor"`
}

type InnovationParams struct {
	BaseInnovationProb          float64 `yaml:"base_innovation_prob" json:"base_innovation_prob"`
	SkillInfluenceOnInnovation  float64 `yaml:"skill_influence_on_innovation" json:"skill_influence_on_innovation"`
	TechAdopterInnovationBonus  float64 `yaml:"tech_adopter_innovation_bonus" json:"tech_adopter_innovation_bonus"`
	InnovationProductivityBoost float64 `yaml:"innovation_productivity_boost" json:"innovation_productivity_boost"`
}

type SustainabilityParams struct {
	BaseSustainabilityAdoptionProb  float64 `yaml:"base_sustainability_adoption_prob" json:"base_sustainability_adoption_prob"`
	GreenIncentiveProbBonus         float64 `yaml:"green_incentive_prob_bonus" json:"green_incentive_prob_bonus"`
	SustainabilityCostFactorRevenue float64 `yaml:"sustainability_cost_factor_revenue" json:"sustainability_cost_factor_revenue"`
	SustainabilityResilienceBoost   float64 `yaml:"sustainability_resilience_boost" json:"sustainability_resilience_boost"`
}

type ResilienceParams struct {
	ShockEventProb              float64 `yaml:"shock_event_prob" json:"shock_event_prob"`
	ShockImpactFactor           float64 `yaml:"shock_impact_factor" json:"shock_impact_factor"`
	ResilienceMitigationFactor  float64 `yaml:"resilience_mitigation_factor" json:"resilience_mitigation_factor"`
	ResilienceImprovementProb   float64 `yaml:"resilience_improvement_prob" json:"resilience_improvement_prob"`
	ResilienceImprovementAmount float64 `yaml:"resilience_improvement_amount" json:"resilience_improvement_amount"`
}

type InternationalizationParams struct {
	MinRevenueForExport float64             `yaml:"min_revenue_for_export" json:"min_revenue_for_export"`
	MinSizeForExport    models.SizeCategory `yaml:"min_size_for_export" json:"min_size_for_export"`
	BaseExportStartProb float64             `yaml:"base_export_start_prob" json:"base_export_start_prob"`
	ExportRevenueBoost  float64             `yaml:"export_revenue_boost" json:"export_revenue_boost"`
}

type InclusionParams struct {
	InclusionImprovementProb   float64 `yaml:"inclusion_improvement_prob" json:"inclusion_improvement_prob"`
	InclusionImprovementAmount float64 `yaml:"inclusion_improvement_amount" json:"inclusion_improvement_amount"`
	WomenLedSupportBonus       float64 `yaml:"women_led_support_bonus" json:"women_led_support_bonus"`
	YouthLedSupportBonus       float64 `yaml:"youth_led_support_bonus" json:"youth_led_support_bonus"`
}

// requiredPaths lists every leaf a resolved tree must carry. It is derived
// from the Set's own YAML shape so the two cannot drift apart.
var requiredPaths = func() []string {
	data, err := yaml.Marshal(Set{})
	if err != nil {
		panic(fmt.Sprintf("params: marshaling zero Set: %v", err))
	}
	var t Tree
	if err := yaml.Unmarshal(data, &t); err != nil {
		panic(fmt.Sprintf("params: reading zero Set: %v", err))
	}
	return LeafPaths(t)
}()

// RequiredPaths returns the dotted path of every parameter a Set needs.
func RequiredPaths() []string {
	out := make([]string, len(requiredPaths))
	copy(out, requiredPaths)
	return out
}

// Decode converts a resolved tree into a validated Set. Simulation settings
// are not part of the tree; callers attach them with the returned Set's
// Simulation field before validating, or use ResolveSet.
func Decode(tree Tree) (*Set, error) {
	for _, path := range requiredPaths {
		if v, ok := Lookup(tree, path); !ok || v == nil {
			return nil, &MissingParameterError{Path: path}
		}
	}

	data, err := yaml.Marshal(tree)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding parameter tree: %v", ErrConfiguration, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var s Set
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("%w: decoding parameters: %v", ErrConfiguration, err)
	}
	return &s, nil
}

// ResolveSet merges overrides into defaults, decodes the result and validates
// it together with the simulation settings.
func ResolveSet(sim SimulationParams, defaults, overrides Tree) (*Set, error) {
	tree, err := Resolve(defaults, overrides)
	if err != nil {
		return nil, err
	}
	s, err := Decode(tree)
	if err != nil {
		return nil, err
	}
	s.Simulation = sim
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks every parameter against its allowed range and returns the
// first violation as *InvalidParameterError.
func (s *Set) Validate() error {
	v := &validator{}

	sim := s.Simulation
	if sim.TimeStep < 1 {
		v.fail("simulation_parameters.time_step", sim.TimeStep, "must be at least 1")
	}
	if sim.EndYear < sim.StartYear {
		v.fail("simulation_parameters.end_year", sim.EndYear, fmt.Sprintf("must not precede start_year %d", sim.StartYear))
	}

	seg := s.Segmentation
	if seg.NumSyntheticSMEs < 0 {
		v.fail("sme_segmentation.num_synthetic_smes", seg.NumSyntheticSMEs, "must not be negative")
	}
	v.nonNegative("sme_segmentation.avg_business_age", seg.AvgBusinessAge)
	v.rangeWithin("sme_segmentation.initial_revenue_range", seg.RevenueRange, 0, math.Inf(1))
	v.rangeWithin("sme_segmentation.initial_debt_ratio_range", seg.DebtRatioRange, 0, 1)
	v.rangeWithin("sme_segmentation.initial_creditworthiness_range", seg.CreditworthinessRange, 0, 1)
	v.rangeWithin("sme_segmentation.initial_digital_literacy_range", seg.DigitalLiteracyRange, 0, 1)
	v.rangeWithin("sme_segmentation.initial_skill_level_range", seg.SkillLevelRange, 1, 10)
	v.rangeWithin("sme_segmentation.initial_resilience_range", seg.ResilienceRange, 0, 1)
	v.rangeWithin("sme_segmentation.initial_inclusion_range", seg.InclusionRange, 0, 1)
	v.prob("sme_segmentation.initial_tech_adoption_rate", seg.InitialTechAdoptionRate)
	v.prob("sme_segmentation.initial_ecommerce_rate", seg.InitialEcommerceRate)
	v.prob("sme_segmentation.initial_women_ownership_rate", seg.WomenOwnershipRate)
	v.prob("sme_segmentation.initial_youth_led_rate", seg.YouthLedRate)
	v.nonNegative("sme_segmentation.base_revenue_growth_rate", seg.BaseRevenueGrowthRate)
	v.prob("sme_segmentation.micro_to_small_prob", seg.MicroToSmallProb)
	v.prob("sme_segmentation.small_to_medium_prob", seg.SmallToMediumProb)
	v.nonNegative("sme_segmentation.growth_min_revenue", seg.GrowthMinRevenue)

	env := s.BusinessEnvironment
	v.prob("business_environment.initial_infrastructure_index", env.InitialInfrastructureIndex)
	v.nonNegative("business_environment.infrastructure_improvement_rate", env.InfrastructureImprovementRate)
	v.prob("business_environment.competition_level", env.CompetitionLevel)
	v.nonNegative("business_environment.infrastructure_revenue_effect", env.InfrastructureRevenueEffect)
	v.nonNegative("business_environment.rural_infrastructure_multiplier", env.RuralInfrastructureMultiplier)

	fin := s.Financing
	v.prob("financing.base_loan_seek_prob", fin.BaseLoanSeekProb)
	v.nonNegative("financing.base_loan_approval_prob_factor", fin.BaseLoanApprovalProbFactor)
	v.nonNegative("financing.avg_loan_size_factor", fin.AvgLoanSizeFactor)
	v.nonNegative("financing.max_debt_ratio_threshold", fin.MaxDebtRatioThreshold)
	v.prob("financing.credit_guarantee_effectiveness", fin.CreditGuaranteeEffectiveness)
	v.nonNegative("financing.interest_rate_mean", fin.InterestRateMean)
	v.nonNegative("financing.interest_rate_stddev", fin.InterestRateStddev)
	v.prob("financing.repayment_due_fraction", fin.RepaymentDueFraction)
	v.prob("financing.repayment_capacity_factor", fin.RepaymentCapacityFactor)
	v.prob("financing.creditworthiness_repayment_gain", fin.CreditworthinessRepaymentGain)

	tech := s.Technology
	v.prob("technology_adoption.base_adoption_prob", tech.BaseAdoptionProb)
	v.nonNegative("technology_adoption.literacy_influence_on_adoption", tech.LiteracyInfluenceOnAdoption)
	v.nonNegative("technology_adoption.peer_influence_on_adoption", tech.PeerInfluenceOnAdoption)
	v.nonNegative("technology_adoption.tech_productivity_boost", tech.TechProductivityBoost)
	v.nonNegative("technology_adoption.tech_cost_factor_revenue", tech.TechCostFactorRevenue)
	v.prob("technology_adoption.digital_literacy_improvement_rate", tech.DigitalLiteracyImprovementRate)

	mkt := s.MarketAccess
	v.prob("market_access.base_ecommerce_adoption_prob", mkt.BaseEcommerceAdoptionProb)
	v.nonNegative("market_access.infrastructure_influence_on_ecommerce", mkt.InfrastructureInfluenceOnEcommerce)
	v.nonNegative("market_access.literacy_influence_on_ecommerce", mkt.LiteracyInfluenceOnEcommerce)
	v.nonNegative("market_access.ecommerce_revenue_boost_factor", mkt.EcommerceRevenueBoostFactor)

	hc := s.HumanCapital
	v.prob("human_capital.skill_improvement_prob", hc.SkillImprovementProb)
	v.nonNegative("human_capital.skill_improvement_amount", hc.SkillImprovementAmount)
	v.nonNegative("human_capital.skill_productivity_boost", hc.SkillProductivityBoost)

	reg := s.Regulatory
	v.prob("regulatory.formalization_prob_factor", reg.FormalizationProbFactor)
	v.prob("regulatory.base_compliance_cost_factor", reg.BaseComplianceCostFactor)

	inn := s.Innovation
	v.prob("innovation.base_innovation_prob", inn.BaseInnovationProb)
	v.nonNegative("innovation.skill_influence_on_innovation", inn.SkillInfluenceOnInnovation)
	v.nonNegative("innovation.tech_adopter_innovation_bonus", inn.TechAdopterInnovationBonus)
	v.nonNegative("innovation.innovation_productivity_boost", inn.InnovationProductivityBoost)

	sus := s.Sustainability
	v.prob("sustainability.base_sustainability_adoption_prob", sus.BaseSustainabilityAdoptionProb)
	v.nonNegative("sustainability.green_incentive_prob_bonus", sus.GreenIncentiveProbBonus)
	v.prob("sustainability.sustainability_cost_factor_revenue", sus.SustainabilityCostFactorRevenue)
	v.prob("sustainability.sustainability_resilience_boost", sus.SustainabilityResilienceBoost)

	res := s.Resilience
	v.prob("resilience.shock_event_prob", res.ShockEventProb)
	v.prob("resilience.shock_impact_factor", res.ShockImpactFactor)
	v.prob("resilience.resilience_mitigation_factor", res.ResilienceMitigationFactor)
	v.prob("resilience.resilience_improvement_prob", res.ResilienceImprovementProb)
	v.prob("resilience.resilience_improvement_amount", res.ResilienceImprovementAmount)

	intl := s.Internationalization
	v.nonNegative("internationalization.min_revenue_for_export", intl.MinRevenueForExport)
	if !intl.MinSizeForExport.Valid() {
		v.fail("internationalization.min_size_for_export", intl.MinSizeForExport, "unknown size category")
	}
	v.prob("internationalization.base_export_start_prob", intl.BaseExportStartProb)
	v.nonNegative("internationalization.export_revenue_boost", intl.ExportRevenueBoost)

	inc := s.Inclusion
	v.prob("inclusion.inclusion_improvement_prob", inc.InclusionImprovementProb)
	v.prob("inclusion.inclusion_improvement_amount", inc.InclusionImprovementAmount)
	v.nonNegative("inclusion.women_led_support_bonus", inc.WomenLedSupportBonus)
	v.nonNegative("inclusion.youth_led_support_bonus", inc.YouthLedSupportBonus)

	return v.err
}

// validator keeps the first failure and ignores the rest.
type validator struct {
	err error
}

func (v *validator) fail(path string, value any, reason string) {
	if v.err == nil {
		v.err = &InvalidParameterError{Path: path, Value: value, Reason: reason}
	}
}

func (v *validator) finite(path string, x float64) bool {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		v.fail(path, x, "must be finite")
		return false
	}
	return true
}

func (v *validator) prob(path string, p float64) {
	if v.finite(path, p) && (p < 0 || p > 1) {
		v.fail(path, p, "must be within [0, 1]")
	}
}

func (v *validator) nonNegative(path string, x float64) {
	if v.finite(path, x) && x < 0 {
		v.fail(path, x, "must not be negative")
	}
}

func (v *validator) rangeWithin(path string, r Range, lo, hi float64) {
	if !v.finite(path+".min", r.Min) || !v.finite(path+".max", r.Max) {
		return
	}
	if r.Min > r.Max {
		v.fail(path, fmt.Sprintf("[%g, %g]", r.Min, r.Max), "min must not exceed max")
		return
	}
	if r.Min < lo || r.Max > hi {
		v.fail(path, fmt.Sprintf("[%g, %g]", r.Min, r.Max), fmt.Sprintf("must lie within [%g, %g]", lo, hi))
	}
}
