package api

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// page decodes list responses. The backend answers either with a bare
// array or with a paginated object carrying the items in "results".
type page[T any] struct {
	Items []T
	Count int
	Next  string
}

func (p *page[T]) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &p.Items); err != nil {
			return err
		}
		p.Count = len(p.Items)
		return nil
	}

	var paged struct {
		Count   *int   `json:"count"`
		Next    string `json:"next"`
		Results []T    `json:"results"`
	}
	if err := json.Unmarshal(trimmed, &paged); err != nil {
		return fmt.Errorf("list response: %w", err)
	}
	p.Items = paged.Results
	p.Next = paged.Next
	p.Count = len(paged.Results)
	if paged.Count != nil {
		p.Count = *paged.Count
	}
	return nil
}

func (p page[T]) items() []T {
	if p.Items == nil {
		return []T{}
	}
	return p.Items
}
