package ranking

import (
	"strings"

	"github.com/alejandrodnm/proprun/internal/domain"
)

// Criteria es la conjunción de predicados opcionales. Un campo nil (o cadena
// vacía) no impone ninguna restricción.
type Criteria struct {
	// AddressContains filtra por subcadena de la dirección (case-sensitive).
	AddressContains string
	// MortgageMin/Max acotan la cuota mensual, ambos inclusivos.
	MortgageMin *float64
	MortgageMax *float64
	// PriceMin/Max acotan el precio de lista, ambos inclusivos.
	PriceMin *float64
	PriceMax *float64
}

// IsZero devuelve true si no hay ningún predicado activo.
func (c Criteria) IsZero() bool {
	return c.AddressContains == "" &&
		c.MortgageMin == nil && c.MortgageMax == nil &&
		c.PriceMin == nil && c.PriceMax == nil
}

// Filter devuelve, en el mismo orden, los listings que cumplen todos los
// predicados. Nunca modifica el slice de entrada.
func Filter(listings []domain.EvaluatedListing, c Criteria) []domain.EvaluatedListing {
	result := make([]domain.EvaluatedListing, 0, len(listings))
	for _, l := range listings {
		if c.passes(l) {
			result = append(result, l)
		}
	}
	return result
}

// passes devuelve true si el listing supera todos los criterios.
func (c Criteria) passes(l domain.EvaluatedListing) bool {
	if c.AddressContains != "" && !strings.Contains(l.Address, c.AddressContains) {
		return false
	}
	if !inRange(l.Mortgage, c.MortgageMin, c.MortgageMax) {
		return false
	}
	return inRange(l.ListPrice, c.PriceMin, c.PriceMax)
}

func inRange(v float64, lo, hi *float64) bool {
	if lo != nil && v < *lo {
		return false
	}
	if hi != nil && v > *hi {
		return false
	}
	return true
}

// View combina orden y filtro: es lo que la presentación pide sobre el resultado.
type View struct {
	Sort     SortState
	Criteria Criteria
}

// Apply ordena y después filtra. El filtro conserva el orden ya establecido.
func Apply(listings []domain.EvaluatedListing, v View) []domain.EvaluatedListing {
	return Filter(Sort(listings, v.Sort), v.Criteria)
}
