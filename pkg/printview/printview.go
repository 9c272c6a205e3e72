// Package printview builds printable report documents from flat records:
// rows grouped by a key, per-group sub-totals, and a grand total, using the
// same rounding policy as the derivation engine so printed totals reconcile
// with form values. Rendering consumes only the built view model; no network
// access happens here.
package printview

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/goliatone/go-formstate/pkg/derive"
	"github.com/goliatone/go-formstate/pkg/rule"
)

// Column describes one report column. Money columns are summed into group
// and grand totals and formatted with two decimal places.
type Column struct {
	Name  string
	Label string
	Money bool
}

// Spec describes the report shape.
type Spec struct {
	Title   string
	GroupBy string
	Columns []Column
}

// Group is one rendered group: its key, formatted row cells aligned to the
// spec columns, and the formatted sub-total row.
type Group struct {
	Key    string
	Rows   [][]string
	Totals []string
}

// Document is the fully built view model a template renders verbatim.
type Document struct {
	Title       string
	Headers     []string
	Groups      []Group
	GrandTotals []string
	GeneratedAt time.Time
}

// Build groups rows by the spec's GroupBy value (preserving first-seen
// order), formats cells, and computes sub-totals and the grand total for
// money columns.
func Build(spec Spec, rows []map[string]any) *Document {
	doc := &Document{
		Title:       spec.Title,
		GeneratedAt: time.Now(),
	}
	for _, col := range spec.Columns {
		doc.Headers = append(doc.Headers, col.Label)
	}

	var order []string
	grouped := make(map[string][]map[string]any)
	for _, row := range rows {
		key := rule.CoerceString(row[spec.GroupBy])
		if _, seen := grouped[key]; !seen {
			order = append(order, key)
		}
		grouped[key] = append(grouped[key], row)
	}

	grand := make([]decimal.Decimal, len(spec.Columns))
	for _, key := range order {
		group := Group{Key: key}
		totals := make([]decimal.Decimal, len(spec.Columns))
		for _, row := range grouped[key] {
			cells := make([]string, len(spec.Columns))
			for i, col := range spec.Columns {
				cells[i] = formatCell(col, row[col.Name])
				if col.Money {
					totals[i] = totals[i].Add(derive.Money(row[col.Name]))
				}
			}
			group.Rows = append(group.Rows, cells)
		}
		group.Totals = formatTotals(spec.Columns, totals)
		for i, col := range spec.Columns {
			if col.Money {
				grand[i] = grand[i].Add(totals[i])
			}
		}
		doc.Groups = append(doc.Groups, group)
	}
	doc.GrandTotals = formatTotals(spec.Columns, grand)
	return doc
}

func formatCell(col Column, value any) string {
	if col.Money {
		return derive.Round2(derive.Money(value)).StringFixed(2)
	}
	return rule.CoerceString(value)
}

func formatTotals(columns []Column, totals []decimal.Decimal) []string {
	out := make([]string, len(columns))
	for i, col := range columns {
		if col.Money {
			out[i] = derive.Round2(totals[i]).StringFixed(2)
		}
	}
	return out
}

// PlainText renders the document as fixed-width text, a fallback surface for
// terminals and tests that need no template engine.
func (d *Document) PlainText() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", d.Title)
	fmt.Fprintf(&b, "%s\n", strings.Join(d.Headers, "\t"))
	for _, group := range d.Groups {
		fmt.Fprintf(&b, "-- %s\n", group.Key)
		for _, row := range group.Rows {
			fmt.Fprintf(&b, "%s\n", strings.Join(row, "\t"))
		}
		fmt.Fprintf(&b, "subtotal\t%s\n", strings.Join(group.Totals, "\t"))
	}
	fmt.Fprintf(&b, "total\t%s\n", strings.Join(d.GrandTotals, "\t"))
	return b.String()
}
