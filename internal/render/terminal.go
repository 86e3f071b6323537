package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/sells-group/preview-cli/internal/card"
	"github.com/sells-group/preview-cli/internal/imagesource"
	"github.com/sells-group/preview-cli/internal/model"
	"github.com/sells-group/preview-cli/internal/platform"
)

const minTerminalWidth = 30

var (
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	tagStyle   = lipgloss.NewStyle().Padding(0, 1).Background(lipgloss.Color("238")).Foreground(lipgloss.Color("15"))
	starStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	priceStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
)

// Terminal draws a card as a bordered box in the card's colors.
func Terminal(c card.Card, width int) string {
	width = max(width, minTerminalWidth)
	inner := width - 4

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(color(c.Colors.Primary)).Width(inner)
	body := lipgloss.NewStyle().Width(inner)

	var lines []string
	if c.AccentBar {
		lines = append(lines, lipgloss.NewStyle().Foreground(color(c.Colors.Accent)).Render(strings.Repeat("▀", inner)))
	}
	if region := imageRegion(c); region != "" {
		lines = append(lines, region, "")
	}
	if c.Title != "" {
		lines = append(lines, titleStyle.Render(c.Title))
	}
	if c.Subtitle != "" {
		lines = append(lines, body.Italic(true).Render(c.Subtitle))
	}
	if c.Description != "" {
		lines = append(lines, body.Render(c.Description))
	}
	for _, ci := range c.ContextItems {
		lines = append(lines, mutedStyle.Render("• "+ci.Text))
	}
	if tags := tagLine(c); tags != "" {
		lines = append(lines, "", tags)
	}
	if cred := credibilityLine(c.Credibility); cred != "" {
		lines = append(lines, cred)
	}
	if c.CTA != nil {
		btn := lipgloss.NewStyle().Bold(true).Padding(0, 2).
			Background(color(c.CTA.Color)).Foreground(lipgloss.Color("15"))
		lines = append(lines, "", btn.Render(c.CTA.Text))
	}
	if c.Badge != nil {
		badge := c.Badge.Quality
		if c.Badge.Coherence > 0 {
			badge = strings.TrimSpace(fmt.Sprintf("%s %.2f", badge, c.Badge.Coherence))
		}
		lines = append(lines, mutedStyle.Render("quality: "+badge))
	}

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(color(c.Colors.Accent)).
		Padding(0, 1).
		Width(width - 2)
	return box.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// TerminalPlatforms draws each platform card under its label.
func TerminalPlatforms(cards []platform.Card, width int) string {
	width = max(width, minTerminalWidth)
	var blocks []string
	for _, pc := range cards {
		header := lipgloss.NewStyle().Bold(true).Render(pc.Label) +
			mutedStyle.Render(fmt.Sprintf("  %s · %s", pc.StyleVariant, pc.AspectRatio))

		image := gradientBar(pc.Fallback, width-4)
		if pc.Image != nil {
			image = mutedStyle.Render(fmt.Sprintf("[%s image]", pc.Image.Kind))
		}

		lines := []string{header, image, mutedStyle.Render(strings.ToUpper(pc.Domain)), lipgloss.NewStyle().Bold(true).Render(pc.Title)}
		if pc.Description != "" {
			lines = append(lines, pc.Description)
		}
		box := lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(color(pc.Fallback.From)).
			Padding(0, 1).
			Width(width - 2)
		blocks = append(blocks, box.Render(lipgloss.JoinVertical(lipgloss.Left, lines...)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, blocks...)
}

func imageRegion(c card.Card) string {
	if c.Image != nil {
		return mutedStyle.Render(fmt.Sprintf("[%s image]", c.Image.Kind))
	}
	if c.Placeholder == nil {
		return ""
	}
	p := c.Placeholder
	switch p.Kind {
	case card.PlaceholderAvatar:
		return lipgloss.NewStyle().Bold(true).Padding(0, 1).
			Background(color(p.Color)).Foreground(lipgloss.Color("15")).Render(p.Initial)
	case card.PlaceholderGlyph:
		return lipgloss.NewStyle().Padding(0, 1).Background(color(p.Gradient.From)).Render(p.Glyph)
	case card.PlaceholderIconBadge:
		return lipgloss.NewStyle().Padding(0, 1).Background(color(p.Color)).Render(p.Glyph)
	case card.PlaceholderGradient:
		return gradientBar(p.Gradient, 20)
	default:
		return ""
	}
}

func tagLine(c card.Card) string {
	if len(c.Tags) == 0 {
		return ""
	}
	parts := make([]string, len(c.Tags))
	for i, t := range c.Tags {
		switch c.TagStyle {
		case card.TagChecklist:
			parts[i] = card.GlyphCheck + " " + t
		case card.TagCategory:
			parts[i] = mutedStyle.Render(strings.ToUpper(t))
		default:
			parts[i] = tagStyle.Render(t)
		}
	}
	if c.TagStyle == card.TagChecklist {
		return lipgloss.JoinVertical(lipgloss.Left, parts...)
	}
	return strings.Join(parts, " ")
}

func credibilityLine(cr *card.Credibility) string {
	if cr == nil {
		return ""
	}
	switch cr.Kind {
	case model.CredibilityRating:
		return starStyle.Render(cr.Glyph) + " " + cr.Value
	case model.CredibilityPrice:
		return priceStyle.Render(cr.Value)
	default:
		return cr.Value
	}
}

func gradientBar(g imagesource.Gradient, width int) string {
	half := max(width/2, 1)
	return lipgloss.NewStyle().Foreground(color(g.From)).Render(strings.Repeat("█", half)) +
		lipgloss.NewStyle().Foreground(color(g.To)).Render(strings.Repeat("█", half))
}

func color(hex string) lipgloss.TerminalColor {
	if strings.TrimSpace(hex) == "" {
		return lipgloss.NoColor{}
	}
	return lipgloss.Color(hex)
}
