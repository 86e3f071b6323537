package model

import (
	"fmt"
	"strings"
)

// Element types with a meaning shared by the card renderers. The vocabulary
// is open: types outside this list are legal and simply never matched.
const (
	ElementHeadline    = "headline"
	ElementSubheadline = "subheadline"
	ElementBodyText    = "body_text"
	ElementDescription = "description"
	ElementLocation    = "location"
	ElementSkillTag    = "skill_tag"
	ElementCategory    = "category"
	ElementTag         = "tag"
	ElementFeatureItem = "feature_item"
	ElementRating      = "rating"
	ElementPrice       = "price"
	ElementCTAButton   = "cta_button"
	ElementAuthor      = "author"
	ElementDate        = "date"
	ElementLogo        = "logo"
	ElementHeroImage   = "hero_image"
)

// ExtractedElement is one semantically classified fragment of a source page.
type ExtractedElement struct {
	ID               string  `json:"id" yaml:"id"`
	Type             string  `json:"type" yaml:"type"`
	TextContent      string  `json:"textContent,omitempty" yaml:"textContent,omitempty"`
	ImageURL         string  `json:"imageUrl,omitempty" yaml:"imageUrl,omitempty"`
	IncludeInPreview bool    `json:"includeInPreview" yaml:"includeInPreview"`
	Priority         float64 `json:"priority" yaml:"priority"`
	Confidence       float64 `json:"confidence" yaml:"confidence"`
}

// HasText reports whether the element carries non-blank text. Included
// elements without text are treated as absent by every text read.
func (e ExtractedElement) HasText() bool {
	return strings.TrimSpace(e.TextContent) != ""
}

// Text returns the trimmed text content.
func (e ExtractedElement) Text() string {
	return strings.TrimSpace(e.TextContent)
}

// LayoutBlueprint is the AI-authored rendering plan for a result.
type LayoutBlueprint struct {
	TemplateType   string  `json:"templateType,omitempty" yaml:"templateType,omitempty"`
	PrimaryColor   string  `json:"primaryColor,omitempty" yaml:"primaryColor,omitempty"`
	SecondaryColor string  `json:"secondaryColor,omitempty" yaml:"secondaryColor,omitempty"`
	AccentColor    string  `json:"accentColor,omitempty" yaml:"accentColor,omitempty"`
	OverallQuality string  `json:"overallQuality,omitempty" yaml:"overallQuality,omitempty"`
	CoherenceScore float64 `json:"coherenceScore,omitempty" yaml:"coherenceScore,omitempty"`
}

// Accent returns the accent color, falling back to the primary color.
func (b LayoutBlueprint) Accent() string {
	if strings.TrimSpace(b.AccentColor) != "" {
		return b.AccentColor
	}
	return b.PrimaryColor
}

// ContextItem is a short icon+text fact such as a location.
type ContextItem struct {
	Icon string `json:"icon" yaml:"icon"`
	Text string `json:"text" yaml:"text"`
}

// CredibilityItem is a trust signal such as a rating or a price. Type is a
// free-form string; see ClassifyCredibility.
type CredibilityItem struct {
	Type  string `json:"type" yaml:"type"`
	Value string `json:"value" yaml:"value"`
}

// Kind classifies the item's free-form type.
func (c CredibilityItem) Kind() CredibilityKind {
	return ClassifyCredibility(c.Type)
}

// ReconstructionResult is the payload of a finished preview job. It is never
// mutated after decoding.
type ReconstructionResult struct {
	URL              string             `json:"url,omitempty" yaml:"url,omitempty"`
	Title            string             `json:"title,omitempty" yaml:"title,omitempty"`
	Subtitle         string             `json:"subtitle,omitempty" yaml:"subtitle,omitempty"`
	Description      string             `json:"description,omitempty" yaml:"description,omitempty"`
	CTAText          string             `json:"ctaText,omitempty" yaml:"ctaText,omitempty"`
	Tags             []string           `json:"tags,omitempty" yaml:"tags,omitempty"`
	ContextItems     []ContextItem      `json:"contextItems,omitempty" yaml:"contextItems,omitempty"`
	CredibilityItems []CredibilityItem  `json:"credibilityItems,omitempty" yaml:"credibilityItems,omitempty"`
	PrimaryImage     string             `json:"primaryImage,omitempty" yaml:"primaryImage,omitempty"`
	ScreenshotURL    string             `json:"screenshotUrl,omitempty" yaml:"screenshotUrl,omitempty"`
	CompositedImage  string             `json:"compositedImage,omitempty" yaml:"compositedImage,omitempty"`
	Elements         []ExtractedElement `json:"elements,omitempty" yaml:"elements,omitempty"`
	Blueprint        LayoutBlueprint    `json:"blueprint" yaml:"blueprint"`
}

// Included returns the elements flagged for preview, in input order.
func (r *ReconstructionResult) Included() []ExtractedElement {
	if r == nil {
		return nil
	}
	out := make([]ExtractedElement, 0, len(r.Elements))
	for _, e := range r.Elements {
		if e.IncludeInPreview {
			out = append(out, e)
		}
	}
	return out
}

// ValidationIssue describes a structural problem in a result. Issues never
// block rendering.
type ValidationIssue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (v ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// Validate reports structural problems: missing or duplicate element ids and
// confidences outside [0,1].
func (r *ReconstructionResult) Validate() []ValidationIssue {
	if r == nil {
		return []ValidationIssue{{Path: "result", Message: "missing"}}
	}
	var issues []ValidationIssue
	seen := make(map[string]bool, len(r.Elements))
	for i, e := range r.Elements {
		path := fmt.Sprintf("elements[%d]", i)
		if strings.TrimSpace(e.ID) == "" {
			issues = append(issues, ValidationIssue{Path: path + ".id", Message: "empty id"})
		} else if seen[e.ID] {
			issues = append(issues, ValidationIssue{Path: path + ".id", Message: fmt.Sprintf("duplicate id %q", e.ID)})
		}
		seen[e.ID] = true
		if e.Confidence < 0 || e.Confidence > 1 {
			issues = append(issues, ValidationIssue{Path: path + ".confidence", Message: fmt.Sprintf("%v outside [0,1]", e.Confidence)})
		}
	}
	return issues
}
