// Package render draws cards and platform previews for people: as HTML
// documents with link-sharing metadata, or as styled terminal output.
package render

import (
	"bytes"
	"embed"
	"html/template"
	"io"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/preview-cli/internal/card"
	"github.com/sells-group/preview-cli/internal/imagesource"
	"github.com/sells-group/preview-cli/internal/model"
	"github.com/sells-group/preview-cli/internal/platform"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.New("render").Funcs(template.FuncMap{
	"imgsrc": imageSrc,
	"ratio":  ratioPercent,
}).ParseFS(templateFS, "templates/*.html"))

// OG is the link-sharing metadata for a page. Its image comes from the
// composited chain only.
type OG struct {
	Title       string
	Description string
	URL         string
	SiteName    string
	Image       *imagesource.ImageRef
}

// OGDocument builds sharing metadata for r.
func OGDocument(r *model.ReconstructionResult) OG {
	if r == nil {
		r = &model.ReconstructionResult{}
	}
	domain := platform.DisplayDomain(r.URL)
	title := card.ResolveTitle(r)
	if title == "" {
		title = domain
	}
	return OG{
		Title:       card.Truncate(title, card.TitleBudget),
		Description: card.Truncate(card.ResolveDescription(r), card.DescriptionBudget),
		URL:         strings.TrimSpace(r.URL),
		SiteName:    domain,
		Image:       imagesource.ForComposited(r),
	}
}

// CardHTML writes the card body fragment.
func CardHTML(w io.Writer, c card.Card) error {
	return execute(w, "card", c)
}

// Page writes a standalone HTML document: sharing metadata for r in the
// head and the card c in the body.
func Page(w io.Writer, r *model.ReconstructionResult, c card.Card) error {
	data := struct {
		OG   OG
		Card card.Card
	}{OG: OGDocument(r), Card: c}
	return execute(w, "page", data)
}

// PlatformsHTML writes one figure per platform card.
func PlatformsHTML(w io.Writer, cards []platform.Card) error {
	return execute(w, "platforms", cards)
}

func execute(w io.Writer, name string, data any) error {
	// Render to a buffer so a template error never leaves half a page.
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return eris.Wrapf(err, "render: execute %s", name)
	}
	if _, err := buf.WriteTo(w); err != nil {
		return eris.Wrapf(err, "render: write %s", name)
	}
	return nil
}

// imageSrc returns a trusted src for http(s) URLs and inline image payloads.
// Anything else renders as an empty src so the gradient shows through.
func imageSrc(ref *imagesource.ImageRef) template.URL {
	if ref == nil {
		return ""
	}
	uri := ref.URI()
	lower := strings.ToLower(uri)
	switch {
	case strings.HasPrefix(lower, "https://"), strings.HasPrefix(lower, "http://"):
		return template.URL(uri)
	case strings.HasPrefix(lower, "data:image/"):
		return template.URL(uri)
	default:
		return ""
	}
}

// ratioPercent converts "W:H" to the CSS padding-top percentage that keeps
// that aspect ratio. Unparseable ratios fall back to 1.91:1.
func ratioPercent(aspect string) string {
	r, err := platform.Config{AspectRatio: aspect}.Ratio()
	if err != nil {
		r = 1.91
	}
	return strconv.FormatFloat(100/r, 'f', 2, 64)
}
