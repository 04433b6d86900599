package domain

import "fmt"

// RawListing es un inmueble en venta tal como lo entrega el listing source.
// Solo Address y ListPrice son necesarios aguas abajo; el resto es metadata
// que usan el rent estimator y la política de costes (0 = desconocido).
type RawListing struct {
	Address   string
	ListPrice float64

	Street        string
	City          string
	State         string
	ZipCode       string
	PropertyType  string // "single_family", "condos", ... tal cual viene del export
	Bedrooms      float64
	Bathrooms     float64
	SquareFootage float64

	// Valores mensuales aportados por el source. Si son > 0 sustituyen a los
	// derivados de OperatingCostPolicy.
	MonthlyPropertyTax float64
	MonthlyInsurance   float64
}

// RentEstimate es la estimación de alquiler mensual para una dirección.
// Invariante: 0 <= Low <= Value <= High.
type RentEstimate struct {
	Value float64
	Low   float64
	High  float64
}

// NewRentEstimate construye un RentEstimate validando la banda.
func NewRentEstimate(value, low, high float64) (RentEstimate, error) {
	if !finite(value) || !finite(low) || !finite(high) {
		return RentEstimate{}, fmt.Errorf("%w: non-finite rent estimate", ErrRentLookup)
	}
	if low < 0 || value < 0 || high < 0 {
		return RentEstimate{}, fmt.Errorf("%w: negative rent estimate (%.2f, %.2f, %.2f)", ErrRentLookup, value, low, high)
	}
	if low > value || value > high {
		return RentEstimate{}, fmt.Errorf("%w: rent %.2f outside range [%.2f, %.2f]", ErrRentLookup, value, low, high)
	}
	return RentEstimate{Value: value, Low: low, High: high}, nil
}

// EvaluatedListing es el resultado inmutable de evaluar un RawListing.
// Se crea una vez por listing durante la orquestación y nunca se modifica.
type EvaluatedListing struct {
	Address            string
	ListPrice          float64
	Mortgage           float64 // cuota mensual
	TotalOperatingCost float64
	RentalValue        float64 // estimación de mercado
	RentalPrice        float64 // alquiler necesario para el beneficio objetivo
	Differential       float64 // RentalPrice - RentalValue (> 0 = hace falta alquiler por encima de mercado)
	IsProfitable       bool
	AdjustedProfit     *float64 // margen de break-even; nil si el objetivo se cumple
	RentLow            float64
	RentHigh           float64

	// Desglose del coste operativo, solo para presentación.
	PropertyTax float64
	Insurance   float64
	Maintenance float64
}

// MeetsTarget devuelve true si la renta de mercado cubre costes + beneficio objetivo.
func (e EvaluatedListing) MeetsTarget() bool {
	return e.AdjustedProfit == nil
}

// Verdict resume la evaluación en una etiqueta corta.
func (e EvaluatedListing) Verdict() string {
	switch {
	case e.MeetsTarget():
		return "TARGET"
	case e.IsProfitable:
		return "BREAK-EVEN"
	default:
		return "LOSS"
	}
}
