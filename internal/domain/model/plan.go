package model

import (
	"fmt"

	"github.com/scantablehq/billing-service/internal/domain/billing"
)

// PlanID identifies a paid tier. Free is a valid entitlement value but never
// a purchasable plan.
type PlanID string

const (
	PlanPro      PlanID = "pro"
	PlanBusiness PlanID = "business"
)

// ParsePlan validates a client-supplied plan and rejects anything that is not
// a paid tier.
func ParsePlan(s string) (PlanID, error) {
	switch PlanID(s) {
	case PlanPro, PlanBusiness:
		return PlanID(s), nil
	default:
		return "", fmt.Errorf("plan %q is not a purchasable tier", s)
	}
}

// Monthly prices in the minor unit of each supported settlement currency.
var monthlyPrices = map[PlanID]map[string]int64{
	PlanPro: {
		"USD": 900,
		"EUR": 900,
		"GBP": 800,
		"NGN": 1250000,
		"GHS": 12000,
		"KES": 120000,
		"ZAR": 16900,
		"UGX": 3400000,
		"TZS": 2300000,
	},
	PlanBusiness: {
		"USD": 2900,
		"EUR": 2900,
		"GBP": 2500,
		"NGN": 4150000,
		"GHS": 39000,
		"KES": 390000,
		"ZAR": 54900,
		"UGX": 11000000,
		"TZS": 7400000,
	},
}

// Paid trials charge a token amount so the provider returns a reusable
// authorization for the renewal charge.
var trialPrices = map[string]int64{
	"USD": 100,
	"EUR": 100,
	"GBP": 100,
	"NGN": 10000,
	"GHS": 200,
	"KES": 5000,
	"ZAR": 2000,
	"UGX": 400000,
	"TZS": 250000,
}

const yearlyMonthsCharged = 10 // two months free on annual billing

// PlanPrice returns the charge amount in minor units for a plan, currency and
// interval, or false when the currency is not supported.
func PlanPrice(plan PlanID, currency string, interval billing.Interval) (int64, bool) {
	if interval == billing.IntervalTrial {
		amount, ok := trialPrices[currency]
		return amount, ok
	}

	prices, ok := monthlyPrices[plan]
	if !ok {
		return 0, false
	}
	monthly, ok := prices[currency]
	if !ok {
		return 0, false
	}
	if interval == billing.IntervalYearly {
		return monthly * yearlyMonthsCharged, true
	}
	return monthly, true
}
