package quote

import "math"

// Plan describes the (fictional) health plan quoted by the flow.
type Plan struct {
	Operator              string
	Name                  string
	Coverages             []string
	BaseMonthlyPrice      float64
	ApartamentoMultiplier float64
}

// HealthPlan is the rate table used for every quote.
var HealthPlan = Plan{
	Operator: "Saude Segura",
	Name:     "Essencial Plus",
	Coverages: []string{
		"Consultas medicas ilimitadas",
		"Internacao hospitalar",
		"Exames laboratoriais e de imagem",
		"Pronto-socorro 24h",
		"Cirurgias eletivas e de urgencia",
		"Quimioterapia e radioterapia",
	},
	BaseMonthlyPrice:      280,
	ApartamentoMultiplier: 1.4,
}

// ageBand is an inclusive upper bound on the range midpoint.
type ageBand struct {
	maxMidpoint float64
	label       string
	multiplier  float64
}

var ageBands = []ageBand{
	{18, "0-18", 0.7},
	{23, "19-23", 0.8},
	{28, "24-28", 0.9},
	{33, "29-33", 1.0},
	{38, "34-38", 1.1},
	{43, "39-43", 1.2},
	{48, "44-48", 1.4},
	{53, "49-53", 1.6},
	{58, "54-58", 1.9},
	{math.Inf(1), "59+", 2.3},
}

// AgeMultiplier buckets the midpoint of a "min-max" range into one of the
// ten age bands. An unparseable range prices as the reference band (1.0).
func AgeMultiplier(ageRange string) float64 {
	lo, hi, ok := parseRange(ageRange)
	if !ok {
		return 1.0
	}
	return multiplierFor(float64(lo+hi) / 2)
}

func multiplierFor(midpoint float64) float64 {
	for _, b := range ageBands {
		if midpoint <= b.maxMidpoint {
			return b.multiplier
		}
	}
	return ageBands[len(ageBands)-1].multiplier
}

// TierMultiplier is 1 for enfermaria and the apartamento surcharge otherwise.
func TierMultiplier(p PlanType) float64 {
	if p == PlanApartamento {
		return HealthPlan.ApartamentoMultiplier
	}
	return 1.0
}

// MonthlyTotal computes round(base × lives × ageMultiplier × tierMultiplier).
func MonthlyTotal(lives int, ageRange string, plan PlanType) int {
	v := HealthPlan.BaseMonthlyPrice * float64(lives) * AgeMultiplier(ageRange) * TierMultiplier(plan)
	return int(math.Round(v))
}
