package platform

import (
	"net/url"
	"strings"

	"github.com/sells-group/preview-cli/internal/card"
	"github.com/sells-group/preview-cli/internal/imagesource"
	"github.com/sells-group/preview-cli/internal/model"
)

// PlaceholderDomain is shown when the result URL has no usable host.
const PlaceholderDomain = "example.com"

// Card is one destination's rendition of a result.
type Card struct {
	Platform     string                `json:"platform" yaml:"platform"`
	Label        string                `json:"label" yaml:"label"`
	StyleVariant StyleVariant          `json:"styleVariant" yaml:"style_variant"`
	AspectRatio  string                `json:"aspectRatio" yaml:"aspect_ratio"`
	Title        string                `json:"title" yaml:"title"`
	Description  string                `json:"description,omitempty" yaml:"description,omitempty"`
	Domain       string                `json:"domain" yaml:"domain"`
	Image        *imagesource.ImageRef `json:"image,omitempty" yaml:"image,omitempty"`
	// Fallback replaces the image region when Image is nil or fails to load.
	Fallback imagesource.Gradient `json:"fallback" yaml:"fallback"`
}

// Format renders r for one destination. Title and description come from the
// same resolution as the card and are re-truncated to the platform limits.
// The image always comes from the card chain.
func Format(r *model.ReconstructionResult, cfg Config) Card {
	if r == nil {
		r = &model.ReconstructionResult{}
	}

	domain := DisplayDomain(r.URL)
	title := card.ResolveTitle(r)
	if title == "" {
		title = domain
	}

	return Card{
		Platform:     cfg.Name,
		Label:        cfg.Label,
		StyleVariant: cfg.StyleVariant,
		AspectRatio:  cfg.AspectRatio,
		Title:        card.Truncate(title, cfg.MaxTitleLength),
		Description:  card.Truncate(card.ResolveDescription(r), cfg.MaxDescLength),
		Domain:       domain,
		Image:        imagesource.ForCard(r),
		Fallback:     imagesource.FallbackGradient(r.Blueprint),
	}
}

// FormatAll formats r for every config, in config order.
func FormatAll(r *model.ReconstructionResult, cfgs []Config) []Card {
	out := make([]Card, 0, len(cfgs))
	for _, c := range cfgs {
		out = append(out, Format(r, c))
	}
	return out
}

// DisplayDomain returns the lowercased host of raw without a leading "www.",
// or PlaceholderDomain when raw does not parse to a host.
func DisplayDomain(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return PlaceholderDomain
	}
	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	if host == "" {
		return PlaceholderDomain
	}
	return host
}
