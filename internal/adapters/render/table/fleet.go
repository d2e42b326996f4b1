package table

import (
	"strconv"
	"time"

	"github.com/bnema/fleet-cli/internal/domain"
)

func DeviceColumns() []Column[domain.Device] {
	return []Column[domain.Device]{
		{Header: "ID", Value: func(d domain.Device) string { return d.ID }},
		{Header: "SERIAL", Value: func(d domain.Device) string { return d.Serial }},
		{Header: "NAME", Value: func(d domain.Device) string { return d.Name }},
		{Header: "STATUS", Value: func(d domain.Device) string { return strconv.Itoa(d.Status) }},
		{Header: "FILL", Value: func(d domain.Device) string { return strconv.FormatFloat(d.FillLevel, 'f', 0, 64) + "%" }},
		{Header: "CUSTOMER", Value: func(d domain.Device) string { return d.CustomerName }},
		{Header: "LAST SEEN", Value: func(d domain.Device) string { return timestamp(d.LastSeenAt) }},
	}
}

func TicketColumns() []Column[domain.Ticket] {
	return []Column[domain.Ticket]{
		{Header: "ID", Value: func(t domain.Ticket) string { return t.ID }},
		{Header: "TITLE", Value: func(t domain.Ticket) string { return t.Title }},
		{Header: "DEVICE", Value: func(t domain.Ticket) string { return t.DeviceID }},
		{Header: "PRIORITY", Value: func(t domain.Ticket) string { return t.Priority }},
		{Header: "STATUS", Value: func(t domain.Ticket) string { return t.Status }},
	}
}

func UserColumns() []Column[domain.User] {
	return []Column[domain.User]{
		{Header: "ID", Value: func(u domain.User) string { return u.ID }},
		{Header: "USERNAME", Value: func(u domain.User) string { return u.Username }},
		{Header: "EMAIL", Value: func(u domain.User) string { return u.Email }},
		{Header: "ROLE", Value: func(u domain.User) string { return u.Role }},
		{Header: "ACTIVE", Value: func(u domain.User) string { return strconv.FormatBool(u.IsActive) }},
	}
}

func GPSColumns() []Column[domain.GPSUnit] {
	return []Column[domain.GPSUnit]{
		{Header: "ID", Value: func(g domain.GPSUnit) string { return g.ID }},
		{Header: "IMEI", Value: func(g domain.GPSUnit) string { return g.IMEI }},
		{Header: "DEVICE", Value: func(g domain.GPSUnit) string { return g.DeviceID }},
		{Header: "POSITION", Value: func(g domain.GPSUnit) string { return coordinate(g.Latitude) + "," + coordinate(g.Longitude) }},
		{Header: "FIXED", Value: func(g domain.GPSUnit) string { return timestamp(g.FixedAt) }},
	}
}

func PLCColumns() []Column[domain.PLC] {
	return []Column[domain.PLC]{
		{Header: "ID", Value: func(p domain.PLC) string { return p.ID }},
		{Header: "SERIAL", Value: func(p domain.PLC) string { return p.Serial }},
		{Header: "DEVICE", Value: func(p domain.PLC) string { return p.DeviceID }},
		{Header: "FIRMWARE", Value: func(p domain.PLC) string { return p.Firmware }},
		{Header: "ONLINE", Value: func(p domain.PLC) string { return strconv.FormatBool(p.Online) }},
	}
}

func timestamp(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.UTC().Format("2006-01-02 15:04")
}

func coordinate(v float64) string {
	return strconv.FormatFloat(v, 'f', 5, 64)
}
