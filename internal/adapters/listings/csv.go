package listings

// csv.go: listing source sobre exports CSV de HomeHarvest.
//
// Los exports se nombran HomeHarvest_<YYYY-MM-DD>_<City_ST>.csv. Para cada
// ubicación se usa el export más reciente; si es más viejo que MaxAge se usa
// igualmente pero se avisa en el log (el scraping queda fuera de este servicio).

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/alejandrodnm/proprun/internal/domain"
)

const (
	filePrefix = "HomeHarvest_"
	dateLayout = "2006-01-02"
)

// CSVSource implementa ports.ListingSource leyendo exports de HomeHarvest.
type CSVSource struct {
	dir    string
	file   string // si no está vacío, se usa siempre este fichero (modo test)
	maxAge time.Duration
	now    func() time.Time
}

// NewCSVSource crea un source que busca exports en dir.
// Si file no está vacío se ignora dir y se lee siempre ese fichero.
func NewCSVSource(dir, file string, maxAge time.Duration) *CSVSource {
	return &CSVSource{dir: dir, file: file, maxAge: maxAge, now: time.Now}
}

// Search devuelve como mucho limit listings de location en el orden del export.
func (s *CSVSource) Search(ctx context.Context, location string, limit int) ([]domain.RawListing, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("listings.Search: %w: %w", domain.ErrListingSource, err)
	}

	path, err := s.resolve(location)
	if err != nil {
		return nil, fmt.Errorf("listings.Search %q: %w: %w", location, domain.ErrListingSource, err)
	}

	slog.Info("loading listings export", "path", path, "location", location)

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("listings.Search %q: %w: %w", location, domain.ErrListingSource, err)
	}
	defer f.Close()

	out, err := readListings(f, limit)
	if err != nil {
		return nil, fmt.Errorf("listings.Search %q: %w: %w", location, domain.ErrListingSource, err)
	}

	slog.Info("listings loaded", "location", location, "count", len(out), "limit", limit)
	return out, nil
}

// resolve encuentra el export a usar para location.
func (s *CSVSource) resolve(location string) (string, error) {
	if s.file != "" {
		return s.file, nil
	}

	pattern := filepath.Join(s.dir, filePrefix+"*_"+FormatLocation(location)+".csv")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return "", err
	}

	type candidate struct {
		path string
		date time.Time
	}
	var found []candidate
	for _, m := range matches {
		d, ok := exportDate(filepath.Base(m))
		if !ok {
			continue
		}
		found = append(found, candidate{path: m, date: d})
	}
	if len(found) == 0 {
		return "", fmt.Errorf("no export found matching %s", pattern)
	}

	sort.Slice(found, func(i, j int) bool { return found[i].date.After(found[j].date) })
	latest := found[0]

	if s.maxAge > 0 {
		if age := s.now().Sub(latest.date); age > s.maxAge {
			slog.Warn("listings export is outdated",
				"path", latest.path,
				"export_date", latest.date.Format(dateLayout),
				"age", age.Round(time.Hour),
			)
		}
	}
	return latest.path, nil
}

// FormatLocation normaliza "Austin, TX" → "Austin_TX" como en los nombres de export.
func FormatLocation(location string) string {
	loc := strings.TrimSpace(location)
	loc = strings.ReplaceAll(loc, ", ", "_")
	loc = strings.ReplaceAll(loc, ",", "_")
	return strings.ReplaceAll(loc, " ", "_")
}

// exportDate extrae la fecha de HomeHarvest_<fecha>_<loc>.csv.
func exportDate(name string) (time.Time, bool) {
	rest, ok := strings.CutPrefix(name, filePrefix)
	if !ok {
		return time.Time{}, false
	}
	datePart, _, ok := strings.Cut(rest, "_")
	if !ok {
		return time.Time{}, false
	}
	d, err := time.Parse(dateLayout, datePart)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

// readListings parsea el CSV por nombre de columna y devuelve como mucho limit filas válidas.
func readListings(r io.Reader, limit int) ([]domain.RawListing, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty export")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := columnIndex(header)
	for _, required := range []string{"full_street_line", "list_price"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("missing column %q", required)
		}
	}

	var out []domain.RawListing
	line := 1
	for limit <= 0 || len(out) < limit {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}

		row := rowReader{cols: cols, rec: rec}
		l, ok := row.listing()
		if !ok {
			slog.Debug("skipping listing row", "line", line, "street", row.str("full_street_line"))
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func columnIndex(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return cols
}

// rowReader lee campos de una fila por nombre de columna.
type rowReader struct {
	cols map[string]int
	rec  []string
}

func (r rowReader) str(name string) string {
	i, ok := r.cols[name]
	if !ok || i >= len(r.rec) {
		return ""
	}
	return strings.TrimSpace(r.rec[i])
}

// num devuelve 0 para celdas vacías, "nan" o no numéricas.
func (r rowReader) num(name string) float64 {
	s := r.str(name)
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) {
		return 0
	}
	return v
}

// listing construye el RawListing de la fila. ok=false si falta calle o precio.
func (r rowReader) listing() (domain.RawListing, bool) {
	street := r.str("full_street_line")
	priceStr := r.str("list_price")
	if street == "" || priceStr == "" {
		return domain.RawListing{}, false
	}
	price, err := strconv.ParseFloat(priceStr, 64)
	if err != nil || math.IsNaN(price) || price < 0 {
		return domain.RawListing{}, false
	}

	l := domain.RawListing{
		ListPrice:          price,
		Street:             street,
		City:               r.str("city"),
		State:              r.str("state"),
		ZipCode:            zipCode(r.str("zip_code")),
		PropertyType:       r.str("style"),
		Bedrooms:           r.num("beds"),
		Bathrooms:          r.num("full_baths") + r.num("half_baths"),
		SquareFootage:      r.num("sqft"),
		MonthlyPropertyTax: r.num("property_tax"),
		MonthlyInsurance:   r.num("home_insurance"),
	}
	if r.num("full_baths") == 0 {
		// sin baños completos el listing no es evaluable, aunque tenga medios baños
		l.Bathrooms = 0
	}
	l.Address = formatAddress(l)
	return l, true
}

// formatAddress compone "<calle>, <ciudad>, <estado> <zip>".
func formatAddress(l domain.RawListing) string {
	parts := []string{l.Street}
	if l.City != "" {
		parts = append(parts, l.City)
	}
	stateZip := strings.TrimSpace(l.State + " " + l.ZipCode)
	if stateZip != "" {
		parts = append(parts, stateZip)
	}
	return strings.Join(parts, ", ")
}

// zipCode normaliza zips que pandas exporta como float ("78701.0").
func zipCode(s string) string {
	s, _ = strings.CutSuffix(s, ".0")
	return s
}
