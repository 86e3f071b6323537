package card

import (
	"sort"
	"strings"

	"github.com/sells-group/preview-cli/internal/model"
)

// Character budgets shared by every template.
const (
	TitleBudget       = 70
	SubtitleBudget    = 90
	DescriptionBudget = 160
	TagBudget         = 24
	CTABudget         = 24
	ContextBudget     = 40
	ValueBudget       = 24
)

// ResolveTitle returns the top-level title, else the best headline element.
func ResolveTitle(r *model.ReconstructionResult) string {
	return textField(r, r.Title, model.ElementHeadline)
}

// ResolveSubtitle returns the top-level subtitle, else the best subheadline.
func ResolveSubtitle(r *model.ReconstructionResult) string {
	return textField(r, r.Subtitle, model.ElementSubheadline)
}

// ResolveDescription returns the top-level description, else the best body
// text element.
func ResolveDescription(r *model.ReconstructionResult) string {
	return textField(r, r.Description, model.ElementDescription, model.ElementBodyText)
}

// ResolveCTA returns the top-level CTA text, else the best button element.
func ResolveCTA(r *model.ReconstructionResult) string {
	return textField(r, r.CTAText, model.ElementCTAButton)
}

func textField(r *model.ReconstructionResult, top string, types ...string) string {
	if r == nil {
		return ""
	}
	if s := strings.TrimSpace(top); s != "" {
		return s
	}
	ranked := ranked(r, types...)
	if len(ranked) == 0 {
		return ""
	}
	return ranked[0].Text()
}

// ranked returns included, non-blank elements of the given types, best
// first: higher priority, then higher confidence, then input order.
func ranked(r *model.ReconstructionResult, types ...string) []model.ExtractedElement {
	var out []model.ExtractedElement
	for _, e := range r.Included() {
		if e.HasText() && matchesType(e.Type, types) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].Confidence > out[j].Confidence
	})
	return out
}

// topN keeps the n best-ranked elements of the given types but returns them
// in their original input order.
func topN(r *model.ReconstructionResult, n int, types ...string) []model.ExtractedElement {
	best := ranked(r, types...)
	if len(best) > n {
		best = best[:n]
	}
	keep := make(map[string]int, len(best))
	for _, e := range best {
		keep[e.ID]++
	}
	var out []model.ExtractedElement
	for _, e := range r.Included() {
		if keep[e.ID] > 0 && e.HasText() && matchesType(e.Type, types) {
			keep[e.ID]--
			out = append(out, e)
		}
	}
	return out
}

func matchesType(t string, types []string) bool {
	for _, want := range types {
		if t == want {
			return true
		}
	}
	return false
}

// tagList returns at most limit tags: the top-level list when non-empty,
// otherwise the element fallback types. Source order is kept and excess
// items are dropped.
func tagList(r *model.ReconstructionResult, limit int, fallbackTypes ...string) []string {
	var tags []string
	for _, t := range r.Tags {
		if s := strings.TrimSpace(t); s != "" {
			tags = append(tags, Truncate(s, TagBudget))
		}
	}
	if len(tags) == 0 {
		for _, e := range topN(r, limit, fallbackTypes...) {
			tags = append(tags, Truncate(e.Text(), TagBudget))
		}
	}
	if len(tags) > limit {
		tags = tags[:limit]
	}
	if len(tags) == 0 {
		return nil
	}
	return tags
}

// contextItems returns the top-level context items, else location elements.
func contextItems(r *model.ReconstructionResult) []model.ContextItem {
	var out []model.ContextItem
	for _, ci := range r.ContextItems {
		if s := strings.TrimSpace(ci.Text); s != "" {
			out = append(out, model.ContextItem{Icon: ci.Icon, Text: Truncate(s, ContextBudget)})
		}
	}
	if len(out) == 0 {
		for _, e := range topN(r, len(r.Elements), model.ElementLocation) {
			out = append(out, model.ContextItem{Icon: model.ElementLocation, Text: Truncate(e.Text(), ContextBudget)})
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// credibilityItems returns the top-level items, else rating and price
// elements, skipping blank values.
func credibilityItems(r *model.ReconstructionResult) []model.CredibilityItem {
	var out []model.CredibilityItem
	for _, ci := range r.CredibilityItems {
		if strings.TrimSpace(ci.Value) != "" {
			out = append(out, ci)
		}
	}
	if len(out) == 0 {
		for _, e := range ranked(r, model.ElementRating, model.ElementPrice) {
			out = append(out, model.CredibilityItem{Type: e.Type, Value: e.Text()})
		}
	}
	return out
}

// pickCredibility returns the first item of the first preferred kind
// present, or nil when no item has one of those kinds.
func pickCredibility(items []model.CredibilityItem, prefer ...model.CredibilityKind) *Credibility {
	for _, kind := range prefer {
		for _, it := range items {
			if it.Kind() == kind {
				return newCredibility(it)
			}
		}
	}
	return nil
}

// newCredibility styles an item by its kind: a star for ratings, currency
// styling for prices, plain text otherwise.
func newCredibility(it model.CredibilityItem) *Credibility {
	c := &Credibility{
		Kind:  it.Kind(),
		Style: it.Kind().String(),
		Type:  it.Type,
		Value: Truncate(strings.TrimSpace(it.Value), ValueBudget),
	}
	if c.Kind == model.CredibilityRating {
		c.Glyph = GlyphStar
	}
	return c
}

func cta(r *model.ReconstructionResult, color string) *CTA {
	text := ResolveCTA(r)
	if text == "" {
		return nil
	}
	return &CTA{Text: Truncate(text, CTABudget), Color: color}
}
