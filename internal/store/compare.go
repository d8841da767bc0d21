package store

import (
	"context"
	"fmt"

	"github.com/roach88/apiparity/internal/ir"
)

// ChangeKind classifies how a case moved between two runs.
type ChangeKind string

const (
	// ChangeRegressed: the case no longer passes (now fail or error).
	ChangeRegressed ChangeKind = "regressed"
	// ChangeFixed: a failing or erroring case now passes or is skipped.
	ChangeFixed ChangeKind = "fixed"
	// ChangeChanged: status or kind differs without crossing the pass line.
	ChangeChanged ChangeKind = "changed"
	// ChangeAdded: the case only exists in the head run.
	ChangeAdded ChangeKind = "added"
	// ChangeRemoved: the case only exists in the base run.
	ChangeRemoved ChangeKind = "removed"
)

// Change is one case whose verdict differs between two runs.
type Change struct {
	CaseID     string     `json:"case"`
	Category   string     `json:"category"`
	Label      string     `json:"label,omitempty"`
	Kind       ChangeKind `json:"change"`
	Before     ir.Status  `json:"before,omitempty"`
	BeforeKind ir.Kind    `json:"before_kind,omitempty"`
	After      ir.Status  `json:"after,omitempty"`
	AfterKind  ir.Kind    `json:"after_kind,omitempty"`
	Message    string     `json:"message,omitempty"`
}

// Comparison is the case-by-case difference between a base and a head run.
type Comparison struct {
	Base      Run      `json:"base"`
	Head      Run      `json:"head"`
	Identical bool     `json:"identical"`
	Unchanged int      `json:"unchanged"`
	Changes   []Change `json:"changes"`
}

// Regressions counts regressed cases.
func (c Comparison) Regressions() int {
	n := 0
	for _, ch := range c.Changes {
		if ch.Kind == ChangeRegressed {
			n++
		}
	}
	return n
}

// Compare diffs two stored runs of the same suite. IDs may be unique
// prefixes.
func (s *Store) Compare(ctx context.Context, baseID, headID string) (Comparison, error) {
	base, err := s.FindRun(ctx, baseID)
	if err != nil {
		return Comparison{}, err
	}
	head, err := s.FindRun(ctx, headID)
	if err != nil {
		return Comparison{}, err
	}
	if base.Suite != head.Suite {
		return Comparison{}, fmt.Errorf("compare: run %s is %s but run %s is %s", base.RunID, base.Suite, head.RunID, head.Suite)
	}

	cmp := Comparison{Base: base, Head: head, Changes: []Change{}}
	if base.Fingerprint == head.Fingerprint {
		cmp.Identical = true
		cmp.Unchanged = head.Summary.Total()
		return cmp, nil
	}

	before, err := s.ReadReport(ctx, base.RunID)
	if err != nil {
		return Comparison{}, err
	}
	after, err := s.ReadReport(ctx, head.RunID)
	if err != nil {
		return Comparison{}, err
	}
	cmp.Changes, cmp.Unchanged = Diff(before.Outcomes, after.Outcomes)
	return cmp, nil
}

// Diff pairs outcomes by case ID and returns the cases whose status or kind
// changed, in base order followed by added cases in head order, plus the
// number of unchanged cases.
func Diff(base, head []ir.Outcome) ([]Change, int) {
	headByID := make(map[string]ir.Outcome, len(head))
	for _, o := range head {
		headByID[o.CaseID] = o
	}
	seen := make(map[string]bool, len(base))

	changes := []Change{}
	unchanged := 0
	for _, b := range base {
		seen[b.CaseID] = true
		h, ok := headByID[b.CaseID]
		if !ok {
			changes = append(changes, Change{
				CaseID: b.CaseID, Category: b.Category, Label: b.Label, Kind: ChangeRemoved,
				Before: b.Status, BeforeKind: b.Kind,
			})
			continue
		}
		if b.Status == h.Status && b.Kind == h.Kind {
			unchanged++
			continue
		}
		changes = append(changes, Change{
			CaseID: h.CaseID, Category: h.Category, Label: h.Label, Kind: classify(b.Status, h.Status),
			Before: b.Status, BeforeKind: b.Kind, After: h.Status, AfterKind: h.Kind, Message: h.Message,
		})
	}
	for _, h := range head {
		if seen[h.CaseID] {
			continue
		}
		changes = append(changes, Change{
			CaseID: h.CaseID, Category: h.Category, Label: h.Label, Kind: ChangeAdded,
			After: h.Status, AfterKind: h.Kind, Message: h.Message,
		})
	}
	return changes, unchanged
}

func bad(s ir.Status) bool {
	return s == ir.StatusFail || s == ir.StatusError
}

func classify(before, after ir.Status) ChangeKind {
	switch {
	case !bad(before) && bad(after):
		return ChangeRegressed
	case bad(before) && !bad(after):
		return ChangeFixed
	}
	return ChangeChanged
}
