package resource

import (
	"strings"
	"time"

	"github.com/bnema/fleet-cli/internal/domain"
)

const defaultCacheTTL = time.Minute

func DeviceConfig() Config[domain.Device] {
	return Config[domain.Device]{
		BasePath:   "devices/",
		SearchPath: "search/",
		StatsPath:  "stats/",
		CacheTTL:   defaultCacheTTL,
		Transform: func(d domain.Device) domain.Device {
			d.Serial = strings.ToUpper(strings.TrimSpace(d.Serial))
			d.FillLevel = clamp(d.FillLevel, 0, 100)
			return d
		},
		OptimisticUpdate: true,
	}
}

func TicketConfig() Config[domain.Ticket] {
	return Config[domain.Ticket]{
		BasePath:  "tickets/",
		StatsPath: "stats/",
		CacheTTL:  defaultCacheTTL,
		Transform: func(t domain.Ticket) domain.Ticket {
			if t.Status == "" {
				t.Status = "open"
			}
			return t
		},
	}
}

func UserConfig() Config[domain.User] {
	return Config[domain.User]{
		BasePath:   "users/",
		SearchPath: "search/",
		CacheTTL:   defaultCacheTTL,
	}
}

func GPSConfig() Config[domain.GPSUnit] {
	return Config[domain.GPSUnit]{
		BasePath: "gps/",
		CacheTTL: defaultCacheTTL,
	}
}

func PLCConfig() Config[domain.PLC] {
	return Config[domain.PLC]{
		BasePath:     "plc/",
		CacheTTL:     defaultCacheTTL,
		UpdateMethod: "PATCH",
	}
}

// ScopedPrefixes lists the resource paths that are filtered by customer.
func ScopedPrefixes() []string {
	return []string{"devices/", "tickets/", "gps/", "plc/"}
}

func clamp(v float64, lo float64, hi float64) float64 {
	switch {
	case v < lo:
		return lo
	case v > hi:
		return hi
	default:
		return v
	}
}
