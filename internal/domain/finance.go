package domain

import (
	"fmt"
	"math"
)

// OperatingCostPolicy define los costes anuales de mantener el inmueble como
// fracción del precio de lista. Cada componente se divide entre 12.
type OperatingCostPolicy struct {
	PropertyTaxRate float64 // p.ej. 0.011 = 1.1% anual
	InsuranceRate   float64
	MaintenanceRate float64
}

// DefaultOperatingCostPolicy devuelve la política de referencia.
func DefaultOperatingCostPolicy() OperatingCostPolicy {
	return OperatingCostPolicy{
		PropertyTaxRate: 0.011,
		InsuranceRate:   0.0035,
		MaintenanceRate: 0,
	}
}

// MonthlyMortgage calcula la cuota mensual de un préstamo amortizable.
//
// Fórmula:
//
//	principal = price × (1 - downPct/100)
//	r         = annualRate / 100 / 12
//	n         = years × 12
//	cuota     = principal × r / (1 - (1+r)^-n)
//
// Con r == 0 la cuota es principal / n. La forma con exponente negativo no
// desborda para plazos largos: tiende a principal × r.
func MonthlyMortgage(listPrice float64, a FinancialAssumptions) float64 {
	principal := listPrice * (1 - a.DownPaymentPct/100)
	n := float64(a.LoanTermYears * 12)
	if n <= 0 || principal <= 0 {
		return 0
	}
	r := a.AnnualInterestRate / 100 / 12
	if r == 0 {
		return principal / n
	}
	return principal * r / (1 - math.Pow(1+r, -n))
}

// MonthlyCarryingCosts devuelve impuestos, seguro y mantenimiento mensuales.
// Los valores que aporte el listing (> 0) tienen prioridad sobre la política.
func MonthlyCarryingCosts(l RawListing, p OperatingCostPolicy) (tax, insurance, maintenance float64) {
	tax = l.ListPrice * p.PropertyTaxRate / 12
	if l.MonthlyPropertyTax > 0 {
		tax = l.MonthlyPropertyTax
	}
	insurance = l.ListPrice * p.InsuranceRate / 12
	if l.MonthlyInsurance > 0 {
		insurance = l.MonthlyInsurance
	}
	maintenance = l.ListPrice * p.MaintenanceRate / 12
	return tax, insurance, maintenance
}

// TargetRent es el alquiler mensual necesario para alcanzar el beneficio objetivo.
func TargetRent(totalOperatingCost, targetProfit float64) float64 {
	return totalOperatingCost + targetProfit
}

// Evaluate combina un listing, su estimación de alquiler y los supuestos en un
// EvaluatedListing. Es una función pura: mismo input, mismo output.
//
// Rentabilidad:
//   - rentalValue >= rentalPrice → rentable, AdjustedProfit = nil
//   - si no → AdjustedProfit = rentalValue - totalOperatingCost,
//     rentable si AdjustedProfit >= 0 (cubre costes sin el beneficio objetivo)
func Evaluate(l RawListing, rent RentEstimate, a FinancialAssumptions, p OperatingCostPolicy) (EvaluatedListing, error) {
	if err := a.Validate(); err != nil {
		return EvaluatedListing{}, err
	}
	if !finite(l.ListPrice) || l.ListPrice < 0 {
		return EvaluatedListing{}, invalid("list_price", l.ListPrice, "must be >= 0")
	}
	if !finite(rent.Value) || rent.Value < 0 || rent.Low < 0 || rent.High < 0 {
		return EvaluatedListing{}, invalid("rental_value", rent.Value, "must be >= 0")
	}
	if p.PropertyTaxRate < 0 || p.InsuranceRate < 0 || p.MaintenanceRate < 0 {
		return EvaluatedListing{}, fmt.Errorf("domain.Evaluate: negative operating cost rate: %w", ErrInvalidAssumptions)
	}

	mortgage := MonthlyMortgage(l.ListPrice, a)
	tax, insurance, maintenance := MonthlyCarryingCosts(l, p)
	total := mortgage + tax + insurance + maintenance
	rentalPrice := TargetRent(total, a.TargetProfit)

	e := EvaluatedListing{
		Address:            l.Address,
		ListPrice:          roundCents(l.ListPrice),
		Mortgage:           roundCents(mortgage),
		TotalOperatingCost: roundCents(total),
		RentalValue:        roundCents(rent.Value),
		RentalPrice:        roundCents(rentalPrice),
		RentLow:            roundCents(rent.Low),
		RentHigh:           roundCents(rent.High),
		PropertyTax:        roundCents(tax),
		Insurance:          roundCents(insurance),
		Maintenance:        roundCents(maintenance),
	}

	if !finite(e.TotalOperatingCost) || !finite(e.RentalPrice) {
		return EvaluatedListing{}, invalid("annual_interest_rate", a.AnnualInterestRate, "produces a non-finite operating cost")
	}
	e.Differential = roundCents(e.RentalPrice - e.RentalValue)

	// La decisión se toma sobre los valores publicados (redondeados) para que
	// IsProfitable sea coherente con los campos que ve el consumidor.
	if e.RentalValue >= e.RentalPrice {
		e.IsProfitable = true
		return e, nil
	}

	adjusted := roundCents(e.RentalValue - e.TotalOperatingCost)
	e.AdjustedProfit = &adjusted
	e.IsProfitable = adjusted >= 0
	return e, nil
}

// roundCents redondea a 2 decimales (centavos).
func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
