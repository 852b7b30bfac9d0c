package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alfredjeanlab/givecal/internal/model"
	"github.com/alfredjeanlab/givecal/internal/store"
)

// header is the first JSONL record written by ExportJSONL.
type header struct {
	Version     string          `json:"version"`
	Type        string          `json:"type"`
	Timestamp   time.Time       `json:"timestamp"`
	PledgeCount int             `json:"pledge_count"`
	Total       decimal.Decimal `json:"total"`
}

// MarshalJSON writes Total as a JSON number.
func (h header) MarshalJSON() ([]byte, error) {
	type plain header
	return json.Marshal(struct {
		plain
		Total json.Number `json:"total"`
	}{plain(h), model.JSONAmount(h.Total)})
}

// record wraps a single JSONL line with a type discriminator.
type record struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// ExportJSONL writes every pledge in the store to w as JSONL: one header line
// followed by one line per pledge, sorted by id.
func ExportJSONL(ctx context.Context, s store.Store, w io.Writer) error {
	pledges, err := s.ListPledges(ctx)
	if err != nil {
		return fmt.Errorf("list pledges: %w", err)
	}
	sort.Slice(pledges, func(i, j int) bool {
		return pledges[i].ID < pledges[j].ID
	})

	total := decimal.Zero
	for _, p := range pledges {
		total = total.Add(p.Amount)
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(header{
		Version:     "1",
		Type:        "header",
		Timestamp:   time.Now().UTC(),
		PledgeCount: len(pledges),
		Total:       total,
	}); err != nil {
		return fmt.Errorf("encode header: %w", err)
	}

	for _, p := range pledges {
		if err := enc.Encode(record{Type: "pledge", Data: p}); err != nil {
			return fmt.Errorf("encode pledge %s: %w", p.ID, err)
		}
	}
	return nil
}
