package card

import (
	"strings"

	"github.com/sells-group/preview-cli/internal/imagesource"
	"github.com/sells-group/preview-cli/internal/model"
)

// Per-template list caps.
const (
	profileTagLimit = 4
	productTagLimit = 2
	landingTagLimit = 2
	articleTagLimit = 1
	serviceTagLimit = 3
)

// renderProfile: person or business profile with avatar fallback.
func renderProfile(r *model.ReconstructionResult) Card {
	c := base(Profile, r)
	c.Title = Truncate(ResolveTitle(r), TitleBudget)
	c.Subtitle = Truncate(ResolveSubtitle(r), SubtitleBudget)
	c.ContextItems = contextItems(r)
	c.Tags = tagList(r, profileTagLimit, model.ElementSkillTag, model.ElementTag)
	if c.Tags != nil {
		c.TagStyle = TagPill
	}
	c.Credibility = pickCredibility(credibilityItems(r), model.CredibilityRating)
	c.Image = imagesource.ForCard(r)
	if c.Image == nil {
		initial := strings.ToUpper(FirstGrapheme(c.Title))
		if initial == "" {
			initial = "?"
		}
		c.Placeholder = &Placeholder{
			Kind:     PlaceholderAvatar,
			Initial:  initial,
			Color:    c.Colors.Primary,
			Gradient: c.ErrorFill,
		}
	}
	return c
}

// renderProduct: product shot, category tags, price and a buy button.
func renderProduct(r *model.ReconstructionResult) Card {
	c := base(Product, r)
	c.Title = Truncate(ResolveTitle(r), TitleBudget)
	c.Description = Truncate(ResolveDescription(r), DescriptionBudget)
	c.Tags = tagList(r, productTagLimit, model.ElementCategory, model.ElementTag)
	if c.Tags != nil {
		c.TagStyle = TagPill
	}
	c.Credibility = pickCredibility(credibilityItems(r), model.CredibilityPrice, model.CredibilityRating, model.CredibilityOther)
	c.CTA = cta(r, c.Colors.Accent)
	c.Image = imagesource.ForCard(r)
	if c.Image == nil {
		c.Placeholder = &Placeholder{
			Kind:     PlaceholderGlyph,
			Glyph:    GlyphProduct,
			Gradient: c.ErrorFill,
		}
	}
	return c
}

// renderLanding: marketing page over a dimmed full-page backdrop.
func renderLanding(r *model.ReconstructionResult) Card {
	c := base(Landing, r)
	c.Title = Truncate(ResolveTitle(r), TitleBudget)
	c.Subtitle = Truncate(ResolveSubtitle(r), SubtitleBudget)
	c.Description = Truncate(ResolveDescription(r), DescriptionBudget)
	c.Tags = tagList(r, landingTagLimit, model.ElementTag, model.ElementCategory)
	if c.Tags != nil {
		c.TagStyle = TagPill
	}
	c.CTA = cta(r, c.Colors.Accent)
	c.Logo = imagesource.Logo(r)
	c.Image = imagesource.ForLandingHero(r)
	if c.Image == nil {
		c.Placeholder = &Placeholder{Kind: PlaceholderGradient, Gradient: c.ErrorFill}
	}
	return c
}

// renderArticle: editorial card whose image block is optional.
func renderArticle(r *model.ReconstructionResult) Card {
	c := base(Article, r)
	c.Title = Truncate(ResolveTitle(r), TitleBudget)
	desc := ResolveDescription(r)
	if desc == "" {
		desc = ResolveSubtitle(r)
	}
	c.Description = Truncate(desc, DescriptionBudget)
	c.Tags = tagList(r, articleTagLimit, model.ElementCategory, model.ElementTag)
	if c.Tags != nil {
		c.TagStyle = TagCategory
	}
	c.Credibility = byline(r)
	c.Image = imagesource.ForCard(r)
	if c.Image == nil {
		c.Placeholder = &Placeholder{Kind: PlaceholderNone}
	}
	return c
}

// renderService: accent bar, checklist of offerings and a booking button.
func renderService(r *model.ReconstructionResult) Card {
	c := base(Service, r)
	c.AccentBar = true
	c.Title = Truncate(ResolveTitle(r), TitleBudget)
	c.Description = Truncate(ResolveDescription(r), DescriptionBudget)
	c.Tags = tagList(r, serviceTagLimit, model.ElementFeatureItem, model.ElementTag)
	if c.Tags != nil {
		c.TagStyle = TagChecklist
	}
	c.ContextItems = contextItems(r)
	c.CTA = cta(r, c.Colors.Accent)
	c.Image = imagesource.ForCard(r)
	if c.Image == nil {
		c.Placeholder = &Placeholder{
			Kind:     PlaceholderIconBadge,
			Glyph:    GlyphService,
			Color:    c.Colors.Accent,
			Gradient: c.ErrorFill,
		}
	}
	return c
}

// byline is the article's first credibility item, else the best author or
// date element.
func byline(r *model.ReconstructionResult) *Credibility {
	items := credibilityItems(r)
	if len(items) > 0 {
		return newCredibility(items[0])
	}
	best := ranked(r, model.ElementAuthor, model.ElementDate)
	if len(best) == 0 {
		return nil
	}
	return newCredibility(model.CredibilityItem{Type: best[0].Type, Value: best[0].Text()})
}
