package domain

import "time"

// ListMeta mirrors the pagination block of the list envelope.
type ListMeta struct {
	Total      int  `json:"total"`
	TotalPages int  `json:"total_pages"`
	Page       int  `json:"page"`
	PageSize   int  `json:"page_size"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
	NextPage   *int `json:"next_page"`
	PrevPage   *int `json:"prev_page"`
}

type Pagination struct {
	Page       int
	PageSize   int
	Total      int
	TotalPages int
}

func (p Pagination) WithMeta(meta ListMeta) Pagination {
	p.Total = meta.Total
	p.TotalPages = meta.TotalPages
	if meta.Page > 0 {
		p.Page = meta.Page
	}
	if meta.PageSize > 0 {
		p.PageSize = meta.PageSize
	}
	return p
}

type Filters map[string]string

func (f Filters) Clone() Filters {
	out := make(Filters, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

type Device struct {
	ID           string     `json:"id"`
	Serial       string     `json:"serial"`
	Name         string     `json:"name"`
	Status       int        `json:"status"`
	CustomerName string     `json:"customer_Name,omitempty"`
	FillLevel    float64    `json:"fill_level,omitempty"`
	Latitude     float64    `json:"latitude,omitempty"`
	Longitude    float64    `json:"longitude,omitempty"`
	LastSeenAt   *time.Time `json:"last_seen_at,omitempty"`
}

type Ticket struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	DeviceID    string    `json:"device_id,omitempty"`
	Priority    string    `json:"priority,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

type User struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	FirstName    string `json:"first_name,omitempty"`
	LastName     string `json:"last_name,omitempty"`
	Role         string `json:"role,omitempty"`
	CustomerName string `json:"customer_Name,omitempty"`
	IsActive     bool   `json:"is_active"`
}

type GPSUnit struct {
	ID        string     `json:"id"`
	IMEI      string     `json:"imei"`
	DeviceID  string     `json:"device_id,omitempty"`
	Latitude  float64    `json:"latitude"`
	Longitude float64    `json:"longitude"`
	FixedAt   *time.Time `json:"fixed_at,omitempty"`
}

type PLC struct {
	ID       string `json:"id"`
	Serial   string `json:"serial"`
	DeviceID string `json:"device_id,omitempty"`
	Firmware string `json:"firmware,omitempty"`
	Online   bool   `json:"online"`
}

// Page is the canonical list result. Meta is nil when the server answered
// with a bare array.
type Page[T any] struct {
	Items []T
	Meta  *ListMeta
}

type ListParams struct {
	Page     int
	PageSize int
	Filters  Filters
}
