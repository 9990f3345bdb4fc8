// Package diagnostics turns a failed chart into something a person can
// act on: where parsing stalled, what was expected there, and which
// rules got closest to matching.
package diagnostics

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Conceptual-Machines/maestro-api/internal/earley"
	"github.com/Conceptual-Machines/maestro-api/internal/grammar"
)

const (
	maxPartialParses = 10
	maxSuggestions   = 3
)

// PartialParse is one rule that made progress before the stall, ranked
// by how much of its RHS it consumed.
type PartialParse struct {
	RuleID      string  `json:"rule_id"`
	Rule        string  `json:"rule"`
	Description string  `json:"description,omitempty"`
	Completion  float64 `json:"completion"`
	Matched     int     `json:"matched"`
	Expected    string  `json:"expected,omitempty"`
}

// Diagnostic is the structured failure report for one parse attempt.
type Diagnostic struct {
	StallPosition int            `json:"stall_position"`
	StallToken    *grammar.Token `json:"stall_token,omitempty"`
	Found         string         `json:"found"`
	Expected      []string       `json:"expected"`
	PartialParses []PartialParse `json:"partial_parses"`
	Message       string         `json:"message"`
	Suggestions   []string       `json:"suggestions"`
}

// FromChart builds the failure report. Call it only when chart.Success
// is false; a successful chart has nothing to diagnose.
func FromChart(chart *earley.Chart) *Diagnostic {
	d := &Diagnostic{
		StallPosition: chart.StallPosition,
		StallToken:    chart.StallToken(),
		Expected:      chart.ExpectedAtStall,
	}
	if d.Expected == nil {
		d.Expected = []string{}
	}

	d.Found = "end of input"
	if d.StallToken != nil {
		d.Found = fmt.Sprintf("%q", d.StallToken.Text)
	}

	d.PartialParses = collectPartials(chart)
	d.Message = buildMessage(d)
	d.Suggestions = buildSuggestions(chart, d)
	return d
}

// collectPartials gathers the deepest progress each rule made anywhere
// before the stall, deduplicated by rule id and sorted by completion.
// Completed constituents count too; knowing a TARGET parsed cleanly is
// half the explanation when the surrounding command did not.
func collectPartials(chart *earley.Chart) []PartialParse {
	best := make(map[string]*earley.Item)
	var order []string

	limit := chart.StallPosition
	if limit < 0 || limit >= len(chart.Sets) {
		limit = len(chart.Sets) - 1
	}
	for i := 0; i <= limit; i++ {
		for _, it := range chart.Sets[i].Items() {
			if it.Dot == 0 && len(it.Rule.RHS) > 0 {
				continue
			}
			current, ok := best[it.Rule.ID]
			if !ok {
				best[it.Rule.ID] = it
				order = append(order, it.Rule.ID)
				continue
			}
			if it.Progress() > current.Progress() {
				best[it.Rule.ID] = it
			}
		}
	}

	partials := make([]PartialParse, 0, len(order))
	for _, id := range order {
		it := best[id]
		p := PartialParse{
			RuleID:      id,
			Rule:        it.Rule.String(),
			Description: it.Rule.Description,
			Completion:  it.Progress(),
			Matched:     it.Dot,
		}
		if sym, ok := it.NextSymbol(); ok {
			p.Expected = sym.Label()
		}
		partials = append(partials, p)
	}

	sort.SliceStable(partials, func(i, j int) bool {
		if partials[i].Completion != partials[j].Completion {
			return partials[i].Completion > partials[j].Completion
		}
		return partials[i].RuleID < partials[j].RuleID
	})
	if len(partials) > maxPartialParses {
		partials = partials[:maxPartialParses]
	}
	return partials
}

func buildMessage(d *Diagnostic) string {
	expected := "nothing could follow"
	if len(d.Expected) > 0 {
		expected = "expected " + strings.Join(d.Expected, ", ")
	}
	if d.StallToken == nil {
		return fmt.Sprintf("input ended before any command completed; %s", expected)
	}
	return fmt.Sprintf("could not continue past token %d (%s); %s",
		d.StallPosition, d.Found, expected)
}

// buildSuggestions phrases up to three concrete next steps from the
// stall context, all derived from chart data so repeated parses suggest
// the same things.
func buildSuggestions(chart *earley.Chart, d *Diagnostic) []string {
	var suggestions []string

	if len(d.Expected) > 0 {
		after := "at the start of the command"
		if d.StallPosition > 0 && d.StallPosition <= len(chart.Tokens) {
			after = fmt.Sprintf("after %q", chart.Tokens[d.StallPosition-1].Text)
		}
		shown := d.Expected
		if len(shown) > 4 {
			shown = shown[:4]
		}
		suggestions = append(suggestions,
			fmt.Sprintf("try one of %s %s", strings.Join(shown, ", "), after))
	}

	for _, p := range d.PartialParses {
		if p.Completion >= 1 || p.Description == "" {
			continue
		}
		suggestions = append(suggestions,
			fmt.Sprintf("closest command shape: %s (%d%% matched)",
				p.Description, int(p.Completion*100)))
		break
	}

	if d.StallToken == nil {
		suggestions = append(suggestions, "the command looks incomplete; add the missing words and retry")
	} else {
		suggestions = append(suggestions,
			fmt.Sprintf("%s was not understood here; rewording or removing it may help", d.Found))
	}

	if len(suggestions) > maxSuggestions {
		suggestions = suggestions[:maxSuggestions]
	}
	return suggestions
}

// Format renders the report as readable text for logs and the debug
// endpoint.
func (d *Diagnostic) Format() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", d.Message)
	if len(d.PartialParses) > 0 {
		b.WriteString("closest rules:\n")
		for _, p := range d.PartialParses {
			fmt.Fprintf(&b, "  %3d%% [%s] %s", int(p.Completion*100), p.RuleID, p.Rule)
			if p.Expected != "" {
				fmt.Fprintf(&b, " (next: %s)", p.Expected)
			}
			b.WriteByte('\n')
		}
	}
	for _, s := range d.Suggestions {
		fmt.Fprintf(&b, "suggestion: %s\n", s)
	}
	return b.String()
}
