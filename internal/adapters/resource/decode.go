package resource

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/bnema/fleet-cli/internal/domain"
)

type envelope[T any] struct {
	Data *[]T            `json:"data"`
	Meta *domain.ListMeta `json:"meta"`
}

// decodePage accepts the {data, meta} envelope and, unless strict, the bare
// array form the older endpoints still return.
func decodePage[T any](body []byte, strict bool) (domain.Page[T], error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return domain.Page[T]{}, fmt.Errorf("%w: empty list body", domain.ErrMalformedResponse)
	}

	switch trimmed[0] {
	case '[':
		if strict {
			return domain.Page[T]{}, fmt.Errorf("%w: expected list envelope, got array", domain.ErrMalformedResponse)
		}
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return domain.Page[T]{}, fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
		}
		return domain.Page[T]{Items: items}, nil
	case '{':
		var env envelope[T]
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return domain.Page[T]{}, fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
		}
		if env.Data == nil {
			return domain.Page[T]{}, fmt.Errorf("%w: list envelope without data", domain.ErrMalformedResponse)
		}
		return domain.Page[T]{Items: *env.Data, Meta: env.Meta}, nil
	default:
		return domain.Page[T]{}, fmt.Errorf("%w: unexpected list body", domain.ErrMalformedResponse)
	}
}

func decodeItem[T any](body []byte) (T, error) {
	var item T
	if err := json.Unmarshal(body, &item); err != nil {
		return item, fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}
	return item, nil
}
