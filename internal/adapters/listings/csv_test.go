package listings_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alejandrodnm/proprun/internal/adapters/listings"
	"github.com/alejandrodnm/proprun/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const exportCSV = `property_url,style,full_street_line,city,state,zip_code,beds,full_baths,half_baths,sqft,list_price,property_tax,home_insurance
https://x/1,SINGLE_FAMILY,123 Main St,Austin,TX,78701.0,3,2,1,1450,310000,250,90
https://x/2,CONDOS,9 Lake Rd,Austin,TX,78702,2,1,,nan,215000,,
https://x/3,SINGLE_FAMILY,,Austin,TX,78703,3,2,,1200,400000,,
https://x/4,SINGLE_FAMILY,77 Oak Ave,Austin,TX,78704,4,3,,2100,,,
https://x/5,MULTI_FAMILY,5 Elm St,Austin,TX,78705,6,4,2,3200,780000,,
`

func writeExport(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCSVSource_Search_ParsesRows(t *testing.T) {
	dir := t.TempDir()
	writeExport(t, dir, "HomeHarvest_2024-06-01_Austin_TX.csv", exportCSV)

	src := listings.NewCSVSource(dir, "", 0)
	got, err := src.Search(context.Background(), "Austin, TX", 10)
	require.NoError(t, err)

	// filas sin calle o sin precio se descartan
	require.Len(t, got, 3)

	first := got[0]
	assert.Equal(t, "123 Main St, Austin, TX 78701", first.Address)
	assert.Equal(t, 310000.0, first.ListPrice)
	assert.Equal(t, "78701", first.ZipCode)
	assert.Equal(t, 3.0, first.Bedrooms)
	assert.Equal(t, 3.0, first.Bathrooms) // full + half
	assert.Equal(t, 1450.0, first.SquareFootage)
	assert.Equal(t, 250.0, first.MonthlyPropertyTax)
	assert.Equal(t, 90.0, first.MonthlyInsurance)

	second := got[1]
	assert.Equal(t, "9 Lake Rd, Austin, TX 78702", second.Address)
	assert.Equal(t, 0.0, second.SquareFootage, "nan → 0")

	assert.Equal(t, "5 Elm St, Austin, TX 78705", got[2].Address)
}

func TestCSVSource_Search_RespectsLimit(t *testing.T) {
	dir := t.TempDir()
	writeExport(t, dir, "HomeHarvest_2024-06-01_Austin_TX.csv", exportCSV)

	got, err := listings.NewCSVSource(dir, "", 0).Search(context.Background(), "Austin, TX", 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestCSVSource_Search_PicksNewestExport(t *testing.T) {
	dir := t.TempDir()
	writeExport(t, dir, "HomeHarvest_2024-01-01_Austin_TX.csv",
		"full_street_line,list_price\nOld St,100000\n")
	writeExport(t, dir, "HomeHarvest_2024-06-01_Austin_TX.csv",
		"full_street_line,list_price\nNew St,200000\n")
	writeExport(t, dir, "HomeHarvest_2024-07-01_Dallas_TX.csv",
		"full_street_line,list_price\nDallas St,300000\n")

	got, err := listings.NewCSVSource(dir, "", time.Hour).Search(context.Background(), "Austin, TX", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "New St", got[0].Address)
}

func TestCSVSource_Search_FixedFile(t *testing.T) {
	dir := t.TempDir()
	path := writeExport(t, dir, "fixture.csv", exportCSV)

	got, err := listings.NewCSVSource("", path, 0).Search(context.Background(), "Anywhere, ZZ", 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestCSVSource_Search_NoExport(t *testing.T) {
	_, err := listings.NewCSVSource(t.TempDir(), "", 0).Search(context.Background(), "Austin, TX", 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrListingSource)
}

func TestCSVSource_Search_MissingColumn(t *testing.T) {
	dir := t.TempDir()
	writeExport(t, dir, "HomeHarvest_2024-06-01_Austin_TX.csv", "city,state\nAustin,TX\n")

	_, err := listings.NewCSVSource(dir, "", 0).Search(context.Background(), "Austin, TX", 5)
	assert.ErrorIs(t, err, domain.ErrListingSource)
}

func TestFormatLocation(t *testing.T) {
	assert.Equal(t, "Austin_TX", listings.FormatLocation("Austin, TX"))
	assert.Equal(t, "San_Antonio_TX", listings.FormatLocation(" San Antonio, TX "))
}
