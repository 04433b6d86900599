package notify_test

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/alejandrodnm/proprun/internal/adapters/notify"
	"github.com/alejandrodnm/proprun/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeListing(address string, price, rent float64, adjusted *float64, profitable bool) domain.EvaluatedListing {
	return domain.EvaluatedListing{
		Address:            address,
		ListPrice:          price,
		Mortgage:           1438.92,
		TotalOperatingCost: 1800.17,
		RentalValue:        rent,
		RentalPrice:        2300.17,
		Differential:       2300.17 - rent,
		IsProfitable:       profitable,
		AdjustedProfit:     adjusted,
		RentLow:            rent - 200,
		RentHigh:           rent + 200,
	}
}

func ptr(v float64) *float64 { return &v }

func TestConsole_Notify_Table(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, true, false)

	listings := []domain.EvaluatedListing{
		makeListing("1 Main St, Austin, TX 78701", 300_000, 2500, nil, true),
		makeListing("2 Oak Ave, Austin, TX 78702", 310_000, 1900, ptr(99.83), true),
		makeListing("3 Elm Rd, Austin, TX 78703", 320_000, 1500, ptr(-300.17), false),
	}

	require.NoError(t, n.Notify(context.Background(), listings))

	out := buf.String()
	assert.Contains(t, out, "1 Main St")
	assert.Contains(t, out, "$1438.92")
	assert.Contains(t, out, "$99.83")
	assert.Contains(t, out, "$-300.17")
	assert.Contains(t, out, "TARGET")
	assert.Contains(t, out, "BREAK-EVEN")
	assert.Contains(t, out, "LOSS")
	assert.Contains(t, out, "target:1 break-even:1 loss:1")
}

func TestConsole_Notify_Compact(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, false, false)

	listings := []domain.EvaluatedListing{
		makeListing("1 Main St, Austin, TX 78701", 300_000, 2500, nil, true),
		makeListing("3 Elm Rd, Austin, TX 78703", 320_000, 1500, ptr(-300.17), false),
	}
	require.NoError(t, n.Notify(context.Background(), listings))

	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, "\n"))
	assert.Contains(t, out, "2 listings")
	assert.NotContains(t, out, "Elm Rd", "los no rentables no aparecen en modo compacto")
}

func TestConsole_Notify_Breakdown(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, false, true)

	require.NoError(t, n.Notify(context.Background(), []domain.EvaluatedListing{
		makeListing("2 Oak Ave, Austin, TX 78702", 310_000, 1900, ptr(99.83), true),
	}))

	out := buf.String()
	assert.Contains(t, out, "OPERATING COST")
	assert.Contains(t, out, "ADJUSTED PROFIT: $99.83")
}

func TestConsole_Notify_EmptyList(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, true, false)

	require.NoError(t, n.Notify(context.Background(), nil))
	assert.Contains(t, buf.String(), "no listings evaluated")
}

func TestConsole_Notify_LongAddressTruncated(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, true, false)

	long := strings.Repeat("A", 60)
	require.NoError(t, n.Notify(context.Background(), []domain.EvaluatedListing{
		makeListing(long, 100_000, 1000, nil, true),
	}))
	assert.Contains(t, buf.String(), "...")
}

func TestConsole_Notify_MultibyteAddressStaysValidUTF8(t *testing.T) {
	long := "12 Calle del Peñasco " + strings.Repeat("ñ", 50)

	var table bytes.Buffer
	require.NoError(t, notify.NewConsoleWriter(&table, true, false).Notify(context.Background(), []domain.EvaluatedListing{
		makeListing(long, 100_000, 1000, nil, true),
	}))
	assert.True(t, utf8.ValidString(table.String()), table.String())
	assert.Contains(t, table.String(), "ñ...")

	var compact bytes.Buffer
	require.NoError(t, notify.NewConsoleWriter(&compact, false, false).Notify(context.Background(), []domain.EvaluatedListing{
		makeListing(strings.Repeat("ñ", 40), 100_000, 1000, nil, true),
	}))
	assert.True(t, utf8.ValidString(compact.String()), compact.String())
	assert.Contains(t, compact.String(), strings.Repeat("ñ", 25)+"…")
}

func TestConsole_PrintRuns(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, true, false)

	n.PrintRuns([]domain.Run{{
		ID:         "0f8fad5b-d9cb-469f-a165-70867728950e",
		Location:   "Austin, TX",
		Requested:  10,
		Fetched:    10,
		Evaluated:  9,
		Failed:     1,
		Profitable: 4,
		TimedOut:   true,
		StartedAt:  time.Now(),
		Duration:   1500 * time.Millisecond,
	}})

	out := buf.String()
	assert.Contains(t, out, "0f8fad5b")
	assert.Contains(t, out, "Austin, TX")
	assert.Contains(t, out, "1.5s")
	assert.Contains(t, out, "yes")
}

func TestConsole_PrintRuns_Empty(t *testing.T) {
	var buf bytes.Buffer
	notify.NewConsoleWriter(&buf, true, false).PrintRuns(nil)
	assert.Contains(t, buf.String(), "No runs recorded")
}
