package ranking

import (
	"fmt"
	"sort"
	"strings"

	"github.com/alejandrodnm/proprun/internal/domain"
)

// SortKey es el campo por el que se ordenan los listings.
type SortKey string

const (
	SortNone               SortKey = ""
	SortAddress            SortKey = "address"
	SortListPrice          SortKey = "list_price"
	SortTotalOperatingCost SortKey = "total_operating_cost"
)

// Direction es el sentido del orden.
type Direction string

const (
	Ascending  Direction = "ascending"
	Descending Direction = "descending"
)

// ParseSortKey valida un nombre de campo. "" significa sin orden.
func ParseSortKey(s string) (SortKey, error) {
	switch k := SortKey(strings.TrimSpace(s)); k {
	case SortNone, SortAddress, SortListPrice, SortTotalOperatingCost:
		return k, nil
	default:
		return SortNone, fmt.Errorf("ranking.ParseSortKey: unknown sort key %q", s)
	}
}

// ParseDirection valida un sentido. "" equivale a ascendente.
func ParseDirection(s string) (Direction, error) {
	switch d := Direction(strings.TrimSpace(s)); d {
	case "", Ascending:
		return Ascending, nil
	case Descending:
		return Descending, nil
	default:
		return Ascending, fmt.Errorf("ranking.ParseDirection: unknown direction %q", s)
	}
}

// SortState es la clave activa y su sentido. Solo hay una clave activa a la vez.
// El valor cero significa "sin orden": se conserva el orden de entrada.
type SortState struct {
	Key       SortKey
	Direction Direction
}

// Select devuelve el nuevo estado al elegir key: re-seleccionar la clave activa
// invierte el sentido; una clave nueva empieza en ascendente.
func (s SortState) Select(key SortKey) SortState {
	if key == s.Key && key != SortNone {
		if s.Direction == Ascending {
			return SortState{Key: key, Direction: Descending}
		}
		return SortState{Key: key, Direction: Ascending}
	}
	return SortState{Key: key, Direction: Ascending}
}

// Sort devuelve una copia ordenada por el estado dado. El orden es estable:
// los empates conservan su posición relativa de entrada.
func Sort(listings []domain.EvaluatedListing, state SortState) []domain.EvaluatedListing {
	out := make([]domain.EvaluatedListing, len(listings))
	copy(out, listings)
	if state.Key == SortNone {
		return out
	}

	cmp := comparator(state.Key)
	desc := state.Direction == Descending
	sort.SliceStable(out, func(i, j int) bool {
		if desc {
			return cmp(out[j], out[i]) < 0
		}
		return cmp(out[i], out[j]) < 0
	})
	return out
}

// comparator devuelve -1/0/1: lexicográfico para strings, numérico para números.
func comparator(key SortKey) func(a, b domain.EvaluatedListing) int {
	switch key {
	case SortAddress:
		return func(a, b domain.EvaluatedListing) int { return strings.Compare(a.Address, b.Address) }
	case SortListPrice:
		return func(a, b domain.EvaluatedListing) int { return compareFloat(a.ListPrice, b.ListPrice) }
	default:
		return func(a, b domain.EvaluatedListing) int { return compareFloat(a.TotalOperatingCost, b.TotalOperatingCost) }
	}
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
