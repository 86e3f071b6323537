// Package card reconstructs a social preview card from a finished
// reconstruction result. Every function here is pure: the same result always
// yields the same card, and missing data degrades to a documented fallback
// instead of an error.
package card

import (
	"github.com/sells-group/preview-cli/internal/imagesource"
	"github.com/sells-group/preview-cli/internal/model"
)

// TagStyle controls how a template draws its tag list.
type TagStyle string

const (
	TagPill      TagStyle = "pill"
	TagCategory  TagStyle = "category"
	TagChecklist TagStyle = "checklist"
)

// PlaceholderKind is what a template draws when no image source exists.
type PlaceholderKind string

const (
	// PlaceholderNone omits the image block entirely.
	PlaceholderNone PlaceholderKind = "none"
	// PlaceholderAvatar is a circle holding the title's first character.
	PlaceholderAvatar PlaceholderKind = "avatar"
	// PlaceholderGlyph is a centered glyph over the gradient.
	PlaceholderGlyph PlaceholderKind = "glyph"
	// PlaceholderGradient fills the whole card background.
	PlaceholderGradient PlaceholderKind = "gradient"
	// PlaceholderIconBadge is a square badge with a generic glyph.
	PlaceholderIconBadge PlaceholderKind = "icon_badge"
)

// Glyphs drawn by placeholders and credibility styles.
const (
	GlyphProduct = "🛍"
	GlyphService = "✦"
	GlyphStar    = "★"
	GlyphCheck   = "✓"
)

// Colors are the blueprint colors after the accent fallback.
type Colors struct {
	Primary   string `json:"primary" yaml:"primary"`
	Secondary string `json:"secondary" yaml:"secondary"`
	Accent    string `json:"accent" yaml:"accent"`
}

// Placeholder describes the image-absent rendering.
type Placeholder struct {
	Kind     PlaceholderKind      `json:"kind" yaml:"kind"`
	Initial  string               `json:"initial,omitempty" yaml:"initial,omitempty"`
	Glyph    string               `json:"glyph,omitempty" yaml:"glyph,omitempty"`
	Color    string               `json:"color,omitempty" yaml:"color,omitempty"`
	Gradient imagesource.Gradient `json:"gradient" yaml:"gradient"`
}

// Credibility is one trust signal, already classified.
type Credibility struct {
	Kind  model.CredibilityKind `json:"-" yaml:"-"`
	Style string                `json:"style" yaml:"style"`
	Type  string                `json:"type" yaml:"type"`
	Value string                `json:"value" yaml:"value"`
	Glyph string                `json:"glyph,omitempty" yaml:"glyph,omitempty"`
}

// CTA is the call-to-action button.
type CTA struct {
	Text  string `json:"text" yaml:"text"`
	Color string `json:"color" yaml:"color"`
}

// QualityBadge surfaces the blueprint's self-assessment. Display only.
type QualityBadge struct {
	Quality   string  `json:"quality,omitempty" yaml:"quality,omitempty"`
	Coherence float64 `json:"coherence,omitempty" yaml:"coherence,omitempty"`
}

// Card is the composed preview. Empty optional groups are nil and must not
// be drawn as empty containers.
type Card struct {
	Template     TemplateID             `json:"template" yaml:"template"`
	Title        string                 `json:"title,omitempty" yaml:"title,omitempty"`
	Subtitle     string                 `json:"subtitle,omitempty" yaml:"subtitle,omitempty"`
	Description  string                 `json:"description,omitempty" yaml:"description,omitempty"`
	Tags         []string               `json:"tags,omitempty" yaml:"tags,omitempty"`
	TagStyle     TagStyle               `json:"tag_style,omitempty" yaml:"tag_style,omitempty"`
	ContextItems []model.ContextItem    `json:"context_items,omitempty" yaml:"context_items,omitempty"`
	Credibility  *Credibility           `json:"credibility,omitempty" yaml:"credibility,omitempty"`
	CTA          *CTA                   `json:"cta,omitempty" yaml:"cta,omitempty"`
	Image        *imagesource.ImageRef  `json:"image,omitempty" yaml:"image,omitempty"`
	Placeholder  *Placeholder           `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	ErrorFill    imagesource.Gradient   `json:"error_fill" yaml:"error_fill"`
	Logo         *imagesource.ImageRef  `json:"logo,omitempty" yaml:"logo,omitempty"`
	AccentBar    bool                   `json:"accent_bar,omitempty" yaml:"accent_bar,omitempty"`
	Colors       Colors                 `json:"colors" yaml:"colors"`
	Badge        *QualityBadge          `json:"badge,omitempty" yaml:"badge,omitempty"`
}

// HasImageRegion reports whether the template draws any image area, either
// a resolved image or a placeholder shape in its place.
func (c Card) HasImageRegion() bool {
	if c.Image != nil {
		return true
	}
	return c.Placeholder != nil && c.Placeholder.Kind != PlaceholderNone && c.Placeholder.Kind != PlaceholderGradient
}

// Render selects the template for r and composes its card.
func Render(r *model.ReconstructionResult) Card {
	if r == nil {
		r = &model.ReconstructionResult{}
	}
	return RenderAs(Select(r.Blueprint.TemplateType), r)
}

// RenderAs composes the card for an explicit template.
func RenderAs(id TemplateID, r *model.ReconstructionResult) Card {
	if r == nil {
		r = &model.ReconstructionResult{}
	}
	switch id {
	case Product:
		return renderProduct(r)
	case Landing:
		return renderLanding(r)
	case Article:
		return renderArticle(r)
	case Service:
		return renderService(r)
	default:
		return renderProfile(r)
	}
}

func base(id TemplateID, r *model.ReconstructionResult) Card {
	bp := r.Blueprint
	c := Card{
		Template: id,
		Colors: Colors{
			Primary:   bp.PrimaryColor,
			Secondary: bp.SecondaryColor,
			Accent:    bp.Accent(),
		},
		ErrorFill: imagesource.FallbackGradient(bp),
	}
	if bp.OverallQuality != "" || bp.CoherenceScore > 0 {
		c.Badge = &QualityBadge{Quality: bp.OverallQuality, Coherence: bp.CoherenceScore}
	}
	return c
}
