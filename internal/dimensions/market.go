package dimensions

import "github.com/nvandessel/smesim/internal/randstream"

// MarketAccess handles e-commerce adoption and its revenue effect.
type MarketAccess struct{}

func (MarketAccess) Name() string { return StageMarketAccess }

func (MarketAccess) ApplyYear(y *Year) error {
	mkt := y.Params.MarketAccess
	infra := y.Env.InfrastructureIndex * mkt.InfrastructureInfluenceOnEcommerce

	for i := range y.Agents {
		a := &y.Agents[i]
		if !a.UsesEcommerce {
			p := mkt.BaseEcommerceAdoptionProb + infra + a.DigitalLiteracy*mkt.LiteracyInfluenceOnEcommerce
			if y.Rand.Bernoulli(randstream.Clamp01(p)) {
				a.UsesEcommerce = true
				y.Tally.NewEcommerceUsers++
			}
		}
		if a.UsesEcommerce {
			scale(a, 1+mkt.EcommerceRevenueBoostFactor)
		}
	}
	return nil
}
