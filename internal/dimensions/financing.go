package dimensions

import (
	"math"

	"github.com/nvandessel/smesim/internal/randstream"
)

// Financing runs the yearly formal loan market and debt service.
//
// Every agent draws whether it seeks a loan. Only formal seekers can be
// approved; approval odds scale with creditworthiness, rise with a credit
// guarantee and drop to zero above the debt ratio threshold. All indebted
// agents then repay what their revenue allows.
type Financing struct{}

func (Financing) Name() string { return StageFinancing }

func (Financing) ApplyYear(y *Year) error {
	fin := y.Params.Financing

	for i := range y.Agents {
		a := &y.Agents[i]
		a.UpdateDebtRatio()

		if !y.Rand.Bernoulli(fin.BaseLoanSeekProb) {
			continue
		}
		y.Tally.LoansSought++
		if !a.IsFormal() {
			continue
		}

		p := fin.BaseLoanApprovalProbFactor * a.Creditworthiness
		if fin.CreditGuaranteeAvailable {
			p += fin.CreditGuaranteeEffectiveness
		}
		if a.DebtRatio > fin.MaxDebtRatioThreshold {
			p = 0
		}
		if !y.Rand.Bernoulli(randstream.Clamp01(p)) {
			continue
		}

		a.Debt += a.Revenue * fin.AvgLoanSizeFactor
		a.HasFormalFinancing = true
		a.LoanApprovedThisYear = true
		a.InterestRate = math.Max(0, y.Rand.Normal(fin.InterestRateMean, fin.InterestRateStddev))
		y.Tally.LoansApproved++
		y.Tally.NewLoanRateSum += a.InterestRate
	}

	for i := range y.Agents {
		a := &y.Agents[i]
		if a.Debt > 0 {
			payment := math.Min(a.Debt*fin.RepaymentDueFraction, a.Revenue*fin.RepaymentCapacityFactor)
			if payment > 0 {
				a.Debt -= payment
				if a.Debt < 0 {
					a.Debt = 0
				}
				a.CostsThisYear += payment
				a.Creditworthiness = randstream.Clamp01(a.Creditworthiness + fin.CreditworthinessRepaymentGain)
				y.Tally.Repayments++
			}
		}
		a.UpdateDebtRatio()
	}
	return nil
}
