package export

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/bitfantasy/requisition/internal/requisition/entity"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteRequests(t *testing.T) {
	requests := []entity.PurchaseRequest{
		{
			RequestNumber:      "PR-000007",
			RequestedAt:        time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC),
			Department:         "Generation and Transmission",
			ProjectName:        "Kafue Solar",
			ProjectCode:        "KS-01",
			VendorType:         entity.VendorNew,
			DocumentType:       entity.DocumentInvoice,
			Currency:           entity.CurrencyUSD,
			Status:             entity.StatusBankLoaded,
			RequesterID:        "u1",
			RequesterName:      "Rita",
			LoadedByAnalystID:  "a1",
			ServiceDescription: "Inverter spares",
			LineItems: []entity.LineItem{
				{Description: "Inverter", UnitPrice: decimal.RequireFromString("99.995"), Quantity: decimal.NewFromInt(2)},
			},
		},
		{RequestNumber: "PR-000008", RequesterID: "u2", Status: entity.StatusHODReview},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteRequests(&buf, requests))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, headers, rows[0])
	assert.Equal(t, "PR-000007", rows[1][0])
	assert.Equal(t, "2026-04-02", rows[1][1])
	assert.Equal(t, "KS-01 Kafue Solar", rows[1][3])
	assert.Equal(t, "199.99", rows[1][7])
	assert.Equal(t, "Rita", rows[1][9])
	assert.Equal(t, "a1", rows[1][10])
	assert.Equal(t, "u2", rows[2][9])
}

type brokenWriter struct{}

func (brokenWriter) Write(p []byte) (int, error) { return 0, errors.New("disk full") }

func TestWriteRequests_ReportsErrors(t *testing.T) {
	err := WriteRequests(brokenWriter{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetName("Sheet1", sheetName))
	err = writeRow(f, 0, []interface{}{"x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 0")
}
