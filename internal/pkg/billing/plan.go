package billing

import (
	"strings"
	"time"

	"github.com/epreuvespro/epreuvespro/internal/pkg/entitlements"
)

// Offer is one column of the plan comparison page. Prices are in FCFA.
type Offer struct {
	Plan        entitlements.Plan
	Name        string
	Price       int
	Period      string
	Downloads   string
	Features    []string
	Savings     int
	Recommended bool
}

const (
	MonthlyPrice = 2500
	YearlyPrice  = 20000
)

// Offers lists the plans in display order.
var Offers = []Offer{
	{
		Plan:      entitlements.PlanFree,
		Name:      "Gratuit",
		Price:     0,
		Period:    "",
		Downloads: "3 téléchargements",
		Features: []string{
			"3 épreuves premium offertes",
			"Épreuves gratuites illimitées",
			"Favoris et historique",
		},
	},
	{
		Plan:        entitlements.PlanMonthly,
		Name:        "Mensuel",
		Price:       MonthlyPrice,
		Period:      "mois",
		Downloads:   "Illimité",
		Recommended: true,
		Features: []string{
			"Toutes les épreuves et corrigés",
			"Bibliothèque numérique complète",
			"Lecture en ligne",
		},
	},
	{
		Plan:      entitlements.PlanYearly,
		Name:      "Annuel",
		Price:     YearlyPrice,
		Period:    "an",
		Downloads: "Illimité",
		Savings:   12*MonthlyPrice - YearlyPrice,
		Features: []string{
			"Tous les avantages du mensuel",
			"Deux mois et plus offerts",
			"Accès pendant toute l'année scolaire",
		},
	},
}

// OfferFor returns the offer of a plan, the free offer for unknown input.
func OfferFor(plan string) Offer {
	p := entitlements.ParsePlan(plan)
	for _, o := range Offers {
		if o.Plan == p {
			return o
		}
	}
	return Offers[0]
}

func normalizePlan(plan string) string {
	return string(entitlements.ParsePlan(plan))
}

func planRank(plan string) int {
	switch normalizePlan(plan) {
	case string(entitlements.PlanYearly):
		return 2
	case string(entitlements.PlanMonthly):
		return 1
	default:
		return 0
	}
}

// expiryFrom adds one billing period of the plan to start. Free plans never expire.
func expiryFrom(plan string, start time.Time) *time.Time {
	var t time.Time
	switch normalizePlan(plan) {
	case string(entitlements.PlanMonthly):
		t = start.AddDate(0, 1, 0)
	case string(entitlements.PlanYearly):
		t = start.AddDate(1, 0, 0)
	default:
		return nil
	}
	return &t
}

func isKnownPlan(plan string) bool {
	switch strings.ToLower(strings.TrimSpace(plan)) {
	case string(entitlements.PlanFree), string(entitlements.PlanMonthly), string(entitlements.PlanYearly):
		return true
	default:
		return false
	}
}
