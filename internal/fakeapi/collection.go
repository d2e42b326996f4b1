package fakeapi

import (
	"fmt"
	"strconv"
	"strings"
)

type record = map[string]any

// collection is an ordered in-memory table of JSON objects.
type collection struct {
	order   []string
	records map[string]record
}

func newCollection() *collection {
	return &collection{records: map[string]record{}}
}

func (c *collection) insert(id string, r record) record {
	r["id"] = id
	if _, exists := c.records[id]; !exists {
		c.order = append(c.order, id)
	}
	c.records[id] = r
	return r
}

func (c *collection) get(id string) (record, bool) {
	r, ok := c.records[id]
	return r, ok
}

func (c *collection) patch(id string, partial record) (record, bool) {
	current, ok := c.records[id]
	if !ok {
		return nil, false
	}
	next := make(record, len(current)+len(partial))
	for k, v := range current {
		next[k] = v
	}
	for k, v := range partial {
		next[k] = v
	}
	next["id"] = id
	c.records[id] = next
	return next, true
}

func (c *collection) remove(id string) bool {
	if _, ok := c.records[id]; !ok {
		return false
	}
	delete(c.records, id)
	for i, existing := range c.order {
		if existing == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return true
}

// filter keeps records whose fields equal every filter value, compared as
// strings so "status=1" matches a numeric status.
func (c *collection) filter(filters map[string]string) []record {
	out := make([]record, 0, len(c.order))
	for _, id := range c.order {
		r := c.records[id]
		if matches(r, filters) {
			out = append(out, r)
		}
	}
	return out
}

func (c *collection) search(term string, filters map[string]string) []record {
	term = strings.ToLower(strings.TrimSpace(term))
	out := []record{}
	for _, r := range c.filter(filters) {
		for _, v := range r {
			if s, ok := v.(string); ok && strings.Contains(strings.ToLower(s), term) {
				out = append(out, r)
				break
			}
		}
	}
	return out
}

func (c *collection) stats(filters map[string]string) map[string]any {
	rows := c.filter(filters)
	byStatus := map[string]int{}
	for _, r := range rows {
		if status, ok := r["status"]; ok {
			byStatus[stringify(status)]++
		}
	}
	return map[string]any{"total": len(rows), "by_status": byStatus}
}

func matches(r record, filters map[string]string) bool {
	for key, want := range filters {
		if stringify(r[key]) != want {
			return false
		}
	}
	return true
}

func stringify(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case int:
		return strconv.Itoa(value)
	case bool:
		return strconv.FormatBool(value)
	default:
		return fmt.Sprint(value)
	}
}
