package domain

import "gorm.io/datatypes"

// Definition is a seed entry. Only the name and presentation fields are
// honored; price, limits and features always come from the canonical table.
type Definition struct {
	Name        string
	DisplayName string
	Description string
	Benefits    []string
}

type canonicalPlan struct {
	displayName    string
	description    string
	price          int64
	maxInvoices    int64
	maxCustomers   int64
	maxTeamMembers int64
	isPopular      bool
	features       Features
	benefits       []string
}

var canonical = map[string]canonicalPlan{
	PlanFree: {
		displayName:    "Freemium",
		description:    "Start invoicing your customers at no cost",
		price:          0,
		maxInvoices:    10,
		maxCustomers:   5,
		maxTeamMembers: 1,
		features: Features{
			FeatureWhatsAppSharing: true,
			FeaturePDFExport:       true,
			FeatureNigerianVAT:     true,
		},
		benefits: []string{
			"Up to 10 invoices",
			"Up to 5 customers",
			"WhatsApp invoice sharing",
			"PDF export",
		},
	},
	PlanBasic: {
		displayName:    "Basic",
		description:    "For growing businesses that want to get paid online",
		price:          2000,
		maxInvoices:    Unlimited,
		maxCustomers:   Unlimited,
		maxTeamMembers: 2,
		isPopular:      true,
		features: Features{
			FeatureWhatsAppSharing: true,
			FeaturePDFExport:       true,
			FeatureNigerianVAT:     true,
			FeatureOnlinePayments:  true,
			FeatureAnalytics:       true,
		},
		benefits: []string{
			"Unlimited invoices",
			"Unlimited customers",
			"Online payments",
			"Business analytics",
			"2 team members",
		},
	},
	PlanPremium: {
		displayName:    "Premium",
		description:    "Automate billing and tax reporting",
		price:          3500,
		maxInvoices:    Unlimited,
		maxCustomers:   Unlimited,
		maxTeamMembers: 5,
		features: Features{
			FeatureWhatsAppSharing:   true,
			FeaturePDFExport:         true,
			FeatureNigerianVAT:       true,
			FeatureOnlinePayments:    true,
			FeatureAnalytics:         true,
			FeatureRecurringInvoices: true,
			FeatureTaxReports:        true,
			FeatureMultiCurrency:     true,
		},
		benefits: []string{
			"Everything in Basic",
			"Recurring invoices",
			"Tax reports",
			"Multi-currency invoices",
			"5 team members",
		},
	},
	PlanEnterprise: {
		displayName:    "Enterprise",
		description:    "White-label billing with API access",
		price:          5000,
		maxInvoices:    Unlimited,
		maxCustomers:   Unlimited,
		maxTeamMembers: Unlimited,
		features: Features{
			FeatureWhatsAppSharing:   true,
			FeaturePDFExport:         true,
			FeatureNigerianVAT:       true,
			FeatureOnlinePayments:    true,
			FeatureAnalytics:         true,
			FeatureRecurringInvoices: true,
			FeatureTaxReports:        true,
			FeatureMultiCurrency:     true,
			FeatureWhiteLabel:        true,
			FeatureAPIAccess:         true,
		},
		benefits: []string{
			"Everything in Premium",
			"White-label invoices",
			"API access",
			"Unlimited team members",
		},
	},
}

// DefaultDefinitions returns the seed set used at process start.
func DefaultDefinitions() []Definition {
	return []Definition{
		{Name: PlanFree},
		{Name: PlanBasic},
		{Name: PlanPremium},
		{Name: PlanEnterprise},
	}
}

// Canonicalize builds the plan row for a definition. Caller-supplied
// presentation fields win; everything that affects entitlement is fixed by name.
func Canonicalize(def Definition) (Plan, bool) {
	name := NormalizeName(def.Name)
	c, ok := canonical[name]
	if !ok {
		return Plan{}, false
	}

	features := make(Features, len(FeatureOrder))
	for _, key := range FeatureOrder {
		features[key] = c.features[key]
	}

	plan := Plan{
		Name:           name,
		DisplayName:    c.displayName,
		Description:    c.description,
		Price:          c.price,
		Currency:       CurrencyNGN,
		BillingCycle:   CycleMonthly,
		MaxInvoices:    c.maxInvoices,
		MaxCustomers:   c.maxCustomers,
		MaxTeamMembers: c.maxTeamMembers,
		Features:       datatypes.NewJSONType(features),
		Benefits:       datatypes.JSONSlice[string](append([]string(nil), c.benefits...)),
		IsPopular:      c.isPopular,
		IsActive:       true,
	}
	if def.DisplayName != "" {
		plan.DisplayName = def.DisplayName
	}
	if def.Description != "" {
		plan.Description = def.Description
	}
	if len(def.Benefits) > 0 {
		plan.Benefits = datatypes.JSONSlice[string](append([]string(nil), def.Benefits...))
	}
	return plan, true
}
