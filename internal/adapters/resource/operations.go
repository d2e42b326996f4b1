package resource

import (
	"net/http"

	"github.com/bnema/fleet-cli/internal/adapters/querycache"
)

type OperationKind int

const (
	OpList OperationKind = iota
	OpGet
	OpCreate
	OpUpdate
	OpDelete
	OpSearch
	OpStats
)

func (k OperationKind) String() string {
	switch k {
	case OpList:
		return "list"
	case OpGet:
		return "get"
	case OpCreate:
		return "create"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	case OpSearch:
		return "search"
	case OpStats:
		return "stats"
	default:
		return "unknown"
	}
}

// operation describes one endpoint of a resource: where it lives, which tags
// its cached result carries and which tags a successful call makes stale.
type operation struct {
	method      string
	path        func(id string) string
	provides    func(id string) []querycache.Tag
	invalidates func(id string) []querycache.Tag
}

func (o operation) cached() bool {
	return o.method == http.MethodGet && o.provides != nil
}

func buildOperations(cfg normalizedConfig) map[OperationKind]operation {
	name := cfg.name
	listTags := func(string) []querycache.Tag {
		return []querycache.Tag{querycache.ListTag(name), querycache.StatsTag(name)}
	}
	entityTags := func(id string) []querycache.Tag {
		return []querycache.Tag{querycache.EntityTag(name, id), querycache.ListTag(name), querycache.StatsTag(name)}
	}
	collection := func(string) string { return cfg.basePath }
	member := func(id string) string { return cfg.basePath + id + "/" }

	ops := map[OperationKind]operation{
		OpList: {method: http.MethodGet, path: collection, provides: listTags},
		OpGet: {
			method: http.MethodGet,
			path:   member,
			provides: func(id string) []querycache.Tag {
				return []querycache.Tag{querycache.EntityTag(name, id)}
			},
		},
		OpCreate: {method: http.MethodPost, path: collection, invalidates: listTags},
		OpUpdate: {method: cfg.updateMethod, path: member, invalidates: entityTags},
		OpDelete: {method: http.MethodDelete, path: member, invalidates: entityTags},
	}

	if cfg.searchPath != "" {
		ops[OpSearch] = operation{
			method: http.MethodGet,
			path:   func(string) string { return cfg.basePath + cfg.searchPath },
			provides: func(string) []querycache.Tag {
				return []querycache.Tag{querycache.ListTag(name)}
			},
		}
	}
	if cfg.statsPath != "" {
		ops[OpStats] = operation{
			method: http.MethodGet,
			path:   func(string) string { return cfg.basePath + cfg.statsPath },
			provides: func(string) []querycache.Tag {
				return []querycache.Tag{querycache.StatsTag(name)}
			},
		}
	}
	return ops
}
