package imagesource

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/preview-cli/internal/model"
)

func TestForCard_Priority(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		result   *model.ReconstructionResult
		wantKind Kind
		wantSrc  string
		wantNil  bool
	}{
		{
			name:     "primary wins over screenshot",
			result:   &model.ReconstructionResult{PrimaryImage: "A", ScreenshotURL: "https://cdn/B.png"},
			wantKind: KindPrimary,
			wantSrc:  "A",
		},
		{
			name:     "screenshot when primary absent",
			result:   &model.ReconstructionResult{ScreenshotURL: "https://cdn/B.png"},
			wantKind: KindScreenshot,
			wantSrc:  "https://cdn/B.png",
		},
		{
			name:     "blank primary is absent",
			result:   &model.ReconstructionResult{PrimaryImage: "  ", ScreenshotURL: "https://cdn/B.png"},
			wantKind: KindScreenshot,
			wantSrc:  "https://cdn/B.png",
		},
		{
			name:    "nothing available",
			result:  &model.ReconstructionResult{},
			wantNil: true,
		},
		{
			name:    "composited never used for card",
			result:  &model.ReconstructionResult{CompositedImage: "https://cdn/og.png"},
			wantNil: true,
		},
		{
			name:    "nil result",
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := ForCard(tt.result)
			if tt.wantNil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.wantKind, got.Kind)
			assert.Equal(t, tt.wantSrc, got.Src)
		})
	}
}

func TestForLandingHero_InvertsOrder(t *testing.T) {
	t.Parallel()

	r := &model.ReconstructionResult{PrimaryImage: "A", ScreenshotURL: "B"}
	got := ForLandingHero(r)
	require.NotNil(t, got)
	assert.Equal(t, "B", got.Src)
	assert.Equal(t, KindScreenshot, got.Kind)

	onlyPrimary := &model.ReconstructionResult{PrimaryImage: "A"}
	got = ForLandingHero(onlyPrimary)
	require.NotNil(t, got)
	assert.Equal(t, "A", got.Src)

	assert.Nil(t, ForLandingHero(&model.ReconstructionResult{}))
}

func TestForComposited_DecoupledFromCard(t *testing.T) {
	t.Parallel()

	r := &model.ReconstructionResult{
		PrimaryImage:    "A",
		ScreenshotURL:   "https://cdn/shot.png",
		CompositedImage: "https://cdn/og.png",
	}

	card := ForCard(r)
	og := ForComposited(r)
	require.NotNil(t, card)
	require.NotNil(t, og)
	assert.NotEqual(t, card.Src, og.Src)
	assert.Equal(t, KindComposited, og.Kind)
	assert.Equal(t, KindPrimary, card.Kind)

	noComposite := &model.ReconstructionResult{PrimaryImage: "A", ScreenshotURL: "https://cdn/shot.png"}
	og = ForComposited(noComposite)
	require.NotNil(t, og)
	assert.Equal(t, "https://cdn/shot.png", og.Src, "composited chain never falls back to primaryImage")

	assert.Nil(t, ForComposited(&model.ReconstructionResult{PrimaryImage: "A"}))
}

func TestResolve_DispatchesBySurface(t *testing.T) {
	t.Parallel()

	r := &model.ReconstructionResult{PrimaryImage: "A", ScreenshotURL: "B", CompositedImage: "C"}
	assert.Equal(t, "A", Resolve(r, SurfaceCard).Src)
	assert.Equal(t, "B", Resolve(r, SurfaceLandingHero).Src)
	assert.Equal(t, "C", Resolve(r, SurfaceComposited).Src)
}

func TestLogoAndHero_FromElements(t *testing.T) {
	t.Parallel()

	r := &model.ReconstructionResult{Elements: []model.ExtractedElement{
		{ID: "1", Type: model.ElementLogo, ImageURL: "https://cdn/low.png", IncludeInPreview: true, Priority: 1},
		{ID: "2", Type: model.ElementLogo, ImageURL: "https://cdn/high.png", IncludeInPreview: true, Priority: 5},
		{ID: "3", Type: model.ElementLogo, ImageURL: "https://cdn/excluded.png", IncludeInPreview: false, Priority: 9},
		{ID: "4", Type: model.ElementHeroImage, ImageURL: "", IncludeInPreview: true},
	}}

	logo := Logo(r)
	require.NotNil(t, logo)
	assert.Equal(t, "https://cdn/high.png", logo.Src)
	assert.Equal(t, KindLogo, logo.Kind)

	assert.Nil(t, Hero(r))
	assert.Nil(t, Logo(nil))
}

func TestImageRefURI(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "data:image/png;base64,iVBORw0", ImageRef{Kind: KindPrimary, Src: "iVBORw0"}.URI())
	assert.Equal(t, "data:image/jpeg;base64,xx", ImageRef{Kind: KindPrimary, Src: "data:image/jpeg;base64,xx"}.URI())
	assert.Equal(t, "https://cdn/a.png", ImageRef{Kind: KindPrimary, Src: "https://cdn/a.png"}.URI())
	assert.Equal(t, "https://cdn/b.png", ImageRef{Kind: KindScreenshot, Src: "https://cdn/b.png"}.URI())

	assert.True(t, ImageRef{Kind: KindPrimary, Src: "iVBORw0"}.Inline())
	assert.False(t, ImageRef{Kind: KindScreenshot, Src: "https://cdn/b.png"}.Inline())
}

func TestFallbackGradient(t *testing.T) {
	t.Parallel()

	g := FallbackGradient(model.LayoutBlueprint{PrimaryColor: "#111", SecondaryColor: "#222"})
	assert.Equal(t, Gradient{From: "#111", To: "#222"}, g)

	g = FallbackGradient(model.LayoutBlueprint{PrimaryColor: "#111"})
	assert.Equal(t, Gradient{From: "#111", To: "#111"}, g)
}
