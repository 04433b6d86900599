package domain

import (
	"fmt"
	"math"
	"strings"
)

// FinancialAssumptions son los supuestos de financiación de una consulta.
// Todas las cantidades monetarias son mensuales y en USD.
type FinancialAssumptions struct {
	TargetProfit       float64 // beneficio mensual objetivo
	DownPaymentPct     float64 // entrada, 0–100
	AnnualInterestRate float64 // tipo anual en %, >= 0
	LoanTermYears      int
}

// DefaultAssumptions devuelve los valores por defecto del formulario de búsqueda.
func DefaultAssumptions() FinancialAssumptions {
	return FinancialAssumptions{
		TargetProfit:       500,
		DownPaymentPct:     20,
		AnnualInterestRate: 7.0,
		LoanTermYears:      30,
	}
}

// MaxLoanTermYears acota el plazo del préstamo.
const MaxLoanTermYears = 100

// Validate falla en cuanto encuentra un campo inválido.
func (a FinancialAssumptions) Validate() error {
	if !finite(a.TargetProfit) {
		return invalid("target_profit", a.TargetProfit, "must be a finite number")
	}
	if !finite(a.DownPaymentPct) || a.DownPaymentPct < 0 || a.DownPaymentPct > 100 {
		return invalid("down_payment_pct", a.DownPaymentPct, "must be within [0, 100]")
	}
	if !finite(a.AnnualInterestRate) || a.AnnualInterestRate < 0 {
		return invalid("annual_interest_rate", a.AnnualInterestRate, "must be >= 0")
	}
	if a.LoanTermYears <= 0 || a.LoanTermYears > MaxLoanTermYears {
		return invalid("loan_term_years", a.LoanTermYears, fmt.Sprintf("must be within [1, %d]", MaxLoanTermYears))
	}
	return nil
}

// ListingQuery es la consulta completa enviada por la capa de presentación.
// Se trata como inmutable una vez enviada.
type ListingQuery struct {
	Location    string
	NumListings int
	// ZipCode restringe los candidatos a un código postal exacto. Vacío = sin filtro.
	ZipCode     string
	Assumptions FinancialAssumptions
}

// Validate comprueba la consulta antes de cualquier llamada externa.
func (q ListingQuery) Validate() error {
	if strings.TrimSpace(q.Location) == "" {
		return invalid("location", q.Location, "must not be empty")
	}
	if q.NumListings <= 0 {
		return invalid("num_listings", q.NumListings, "must be > 0")
	}
	return q.Assumptions.Validate()
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
