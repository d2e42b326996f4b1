package table

import (
	"testing"
	"time"

	"github.com/bnema/fleet-cli/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestRenderDevicesWithPagination(t *testing.T) {
	seen := time.Date(2026, 3, 1, 8, 30, 0, 0, time.UTC)
	devices := []domain.Device{
		{ID: "d1", Serial: "SN-1", Name: "North bin", Status: 1, FillLevel: 72.4, CustomerName: "Acme", LastSeenAt: &seen},
		{ID: "d2", Serial: "SN-2", Name: "South bin", Status: 2},
	}

	output := Render("Devices", devices, DeviceColumns(), &domain.Pagination{Page: 2, PageSize: 2, Total: 5, TotalPages: 3})

	assert.Contains(t, output, "Devices")
	assert.Contains(t, output, "SERIAL")
	assert.Contains(t, output, "SN-1")
	assert.Contains(t, output, "72%")
	assert.Contains(t, output, "2026-03-01 08:30")
	assert.Contains(t, output, "page 2/3, 2 of 5")
}

func TestRenderSinglePageFooter(t *testing.T) {
	output := Render("PLCs", []domain.PLC{{ID: "p1", Serial: "P-1", Online: true}}, PLCColumns(), &domain.Pagination{Page: 1, Total: 1, TotalPages: 1})

	assert.Contains(t, output, "true")
	assert.Contains(t, output, "1 of 1")
	assert.NotContains(t, output, "page ")
}

func TestRenderEmpty(t *testing.T) {
	output := Render("Tickets", nil, TicketColumns(), nil)

	assert.Contains(t, output, "No results.")
	assert.NotContains(t, output, "TITLE")
}

func TestGPSPositionFormatting(t *testing.T) {
	output := Render("GPS", []domain.GPSUnit{{ID: "g1", IMEI: "35000", Latitude: 48.8566, Longitude: 2.3522}}, GPSColumns(), nil)

	assert.Contains(t, output, "48.85660,2.35220")
	assert.Contains(t, output, "-")
}
