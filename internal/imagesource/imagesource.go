// Package imagesource picks exactly one image for each preview surface.
//
// Two chains exist and never feed each other: the interactive card chain
// (primaryImage, then screenshotUrl) and the composited chain used only for
// shared link metadata (compositedImage, then screenshotUrl). A source that
// fails to load is not retried and does not fall through; the caller paints
// FallbackGradient instead.
package imagesource

import (
	"sort"
	"strings"

	"github.com/sells-group/preview-cli/internal/model"
)

// Kind says where an ImageRef came from.
type Kind string

const (
	KindPrimary    Kind = "primary_image"
	KindScreenshot Kind = "screenshot"
	KindComposited Kind = "composited"
	KindLogo       Kind = "logo"
	KindHero       Kind = "hero"
)

// ImageRef is a resolved image source. Src is either an inline payload
// (data URI or bare base64) or a remote URL.
type ImageRef struct {
	Kind Kind   `json:"kind" yaml:"kind"`
	Src  string `json:"src" yaml:"src"`
}

// Inline reports whether Src is an inline payload rather than a URL.
func (r ImageRef) Inline() bool {
	return r.Kind == KindPrimary && !isRemote(r.Src)
}

// URI returns a value usable as an <img src>. Bare base64 payloads are
// wrapped as a PNG data URI.
func (r ImageRef) URI() string {
	if r.Kind == KindPrimary && !isRemote(r.Src) && !strings.HasPrefix(r.Src, "data:") {
		return "data:image/png;base64," + r.Src
	}
	return r.Src
}

// Gradient is the solid two-stop fill painted in place of a missing or
// broken image.
type Gradient struct {
	From string `json:"from" yaml:"from"`
	To   string `json:"to" yaml:"to"`
}

// Surface names a slot whose source priority differs.
type Surface int

const (
	// SurfaceCard is the interactive card image slot.
	SurfaceCard Surface = iota
	// SurfaceLandingHero is the landing template's dimmed backdrop.
	SurfaceLandingHero
	// SurfaceComposited is the externally shared og:image.
	SurfaceComposited
)

// Resolve picks the image for the given surface, or nil when none is
// available.
func Resolve(r *model.ReconstructionResult, s Surface) *ImageRef {
	switch s {
	case SurfaceLandingHero:
		return ForLandingHero(r)
	case SurfaceComposited:
		return ForComposited(r)
	default:
		return ForCard(r)
	}
}

// ForCard returns primaryImage, then screenshotUrl, then nil.
func ForCard(r *model.ReconstructionResult) *ImageRef {
	if r == nil {
		return nil
	}
	return first(
		ref(KindPrimary, r.PrimaryImage),
		ref(KindScreenshot, r.ScreenshotURL),
	)
}

// ForLandingHero inverts the card order: a full-page capture reads better
// as a dimmed backdrop than a tight crop.
func ForLandingHero(r *model.ReconstructionResult) *ImageRef {
	if r == nil {
		return nil
	}
	return first(
		ref(KindScreenshot, r.ScreenshotURL),
		ref(KindPrimary, r.PrimaryImage),
	)
}

// ForComposited returns compositedImage, then screenshotUrl, then nil. It
// must never be used for the interactive card.
func ForComposited(r *model.ReconstructionResult) *ImageRef {
	if r == nil {
		return nil
	}
	return first(
		ref(KindComposited, r.CompositedImage),
		ref(KindScreenshot, r.ScreenshotURL),
	)
}

// Logo returns the best included logo element image.
func Logo(r *model.ReconstructionResult) *ImageRef {
	return fromElements(r, model.ElementLogo, KindLogo)
}

// Hero returns the best included hero image element.
func Hero(r *model.ReconstructionResult) *ImageRef {
	return fromElements(r, model.ElementHeroImage, KindHero)
}

// FallbackGradient is the primary→secondary fill for a missing or broken
// image. A missing secondary color repeats the primary.
func FallbackGradient(bp model.LayoutBlueprint) Gradient {
	to := bp.SecondaryColor
	if strings.TrimSpace(to) == "" {
		to = bp.PrimaryColor
	}
	return Gradient{From: bp.PrimaryColor, To: to}
}

func fromElements(r *model.ReconstructionResult, typ string, kind Kind) *ImageRef {
	if r == nil {
		return nil
	}
	var candidates []model.ExtractedElement
	for _, e := range r.Included() {
		if e.Type == typ && strings.TrimSpace(e.ImageURL) != "" {
			candidates = append(candidates, e)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Priority != candidates[j].Priority {
			return candidates[i].Priority > candidates[j].Priority
		}
		return candidates[i].Confidence > candidates[j].Confidence
	})
	return &ImageRef{Kind: kind, Src: strings.TrimSpace(candidates[0].ImageURL)}
}

func ref(kind Kind, src string) *ImageRef {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil
	}
	return &ImageRef{Kind: kind, Src: src}
}

func first(refs ...*ImageRef) *ImageRef {
	for _, r := range refs {
		if r != nil {
			return r
		}
	}
	return nil
}

func isRemote(src string) bool {
	return strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") || strings.HasPrefix(src, "//")
}
