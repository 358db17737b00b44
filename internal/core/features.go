package core

import (
	"fmt"
	"sort"
)

type (
	Plan    string
	Feature string
)

const (
	PlanFree    Plan = "free"
	PlanPremium Plan = "premium"
)

const (
	FeatureTransactions    Feature = "transactions"
	FeatureBasicFilters    Feature = "basic_filters"
	FeatureBasicChart      Feature = "basic_chart"
	FeatureBasicGoals      Feature = "basic_goals"
	FeatureHistory         Feature = "history"
	FeatureDarkMode        Feature = "dark_mode"
	FeatureEnvelopes       Feature = "envelopes"
	FeatureInsights        Feature = "insights"
	FeatureCreditCards     Feature = "credit_cards"
	FeatureInvoices        Feature = "invoices"
	FeatureRecurringBills  Feature = "recurring_bills"
	FeatureExportData      Feature = "export_data"
	FeatureAdvancedCharts  Feature = "advanced_charts"
	FeatureCategoryRanking Feature = "category_ranking"
)

var freeFeatures = []Feature{
	FeatureTransactions,
	FeatureBasicFilters,
	FeatureBasicChart,
	FeatureBasicGoals,
	FeatureHistory,
	FeatureDarkMode,
}

var premiumFeatures = []Feature{
	FeatureEnvelopes,
	FeatureInsights,
	FeatureCreditCards,
	FeatureInvoices,
	FeatureRecurringBills,
	FeatureExportData,
	FeatureAdvancedCharts,
	FeatureCategoryRanking,
}

func (p Plan) Valid() bool {
	return p == PlanFree || p == PlanPremium
}

// Capabilities is the set of features enabled for a plan. It is built once
// at startup and handed to the services and handlers that gate on it.
type Capabilities struct {
	plan     Plan
	features map[Feature]struct{}
}

// NewCapabilities returns the capability set of a plan. Unknown plans fall
// back to the free feature list.
func NewCapabilities(plan Plan) Capabilities {
	c := Capabilities{plan: plan, features: make(map[Feature]struct{})}
	for _, f := range freeFeatures {
		c.features[f] = struct{}{}
	}
	if plan == PlanPremium {
		for _, f := range premiumFeatures {
			c.features[f] = struct{}{}
		}
	} else {
		c.plan = PlanFree
	}
	return c
}

func (c Capabilities) Plan() Plan { return c.plan }

func (c Capabilities) Has(f Feature) bool {
	_, ok := c.features[f]
	return ok
}

func (c Capabilities) IsPremium() bool { return c.plan == PlanPremium }

// Require returns ErrFeatureUnavailable when f is not enabled.
func (c Capabilities) Require(f Feature) error {
	if c.Has(f) {
		return nil
	}
	return fmt.Errorf("%s: %w", f, ErrFeatureUnavailable)
}

// List returns the enabled features sorted by name.
func (c Capabilities) List() []Feature {
	out := make([]Feature, 0, len(c.features))
	for f := range c.features {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
