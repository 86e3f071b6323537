package main

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/preview-cli/internal/card"
	"github.com/sells-group/preview-cli/internal/model"
	"github.com/sells-group/preview-cli/internal/platform"
	"github.com/sells-group/preview-cli/internal/render"
)

// Output formats shared by every command that prints a card.
const (
	formatTerminal  = "terminal"
	formatJSON      = "json"
	formatYAML      = "yaml"
	formatHTML      = "html"
	formatPlatforms = "platforms"
	formatResult    = "result"
)

var outputFormats = []string{formatTerminal, formatJSON, formatYAML, formatHTML, formatPlatforms, formatResult}

type outputOptions struct {
	Format    string
	Template  string
	Width     int
	Platforms []platform.Config
}

func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("format", "f", formatTerminal, "output format: "+strings.Join(outputFormats, "|"))
	cmd.Flags().String("template", "", "force a card template (profile|product|landing|article|service)")
	cmd.Flags().Int("width", 80, "terminal render width")
	cmd.Flags().String("platforms-config", "", "platform overrides YAML (default from config)")
}

func outputOptionsFromFlags(cmd *cobra.Command) (outputOptions, error) {
	format, _ := cmd.Flags().GetString("format")
	tmpl, _ := cmd.Flags().GetString("template")
	width, _ := cmd.Flags().GetInt("width")
	platformsPath, _ := cmd.Flags().GetString("platforms-config")

	opts := outputOptions{Format: format, Template: tmpl, Width: width}
	if !slices.Contains(outputFormats, format) {
		return opts, eris.Errorf("unknown format %q (want %s)", format, strings.Join(outputFormats, "|"))
	}
	if tmpl != "" && !slices.Contains(card.Templates, card.TemplateID(tmpl)) {
		return opts, eris.Errorf("unknown template %q", tmpl)
	}
	if format == formatPlatforms {
		cfgs, err := loadPlatforms(platformsPath)
		if err != nil {
			return opts, err
		}
		opts.Platforms = cfgs
	}
	return opts, nil
}

func cardFor(r *model.ReconstructionResult, tmpl string) card.Card {
	if tmpl != "" {
		return card.RenderAs(card.TemplateID(tmpl), r)
	}
	return card.Render(r)
}

// writeResult renders r to w in the requested format.
func writeResult(w io.Writer, r *model.ReconstructionResult, opts outputOptions) error {
	for _, issue := range r.Validate() {
		zap.L().Warn("result validation", zap.String("issue", issue.String()))
	}

	c := cardFor(r, opts.Template)
	switch opts.Format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(c), "encode card json")
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(c); err != nil {
			return eris.Wrap(err, "encode card yaml")
		}
		return eris.Wrap(enc.Close(), "close yaml encoder")
	case formatHTML:
		return render.Page(w, r, c)
	case formatPlatforms:
		cfgs := opts.Platforms
		if len(cfgs) == 0 {
			cfgs = platform.Defaults()
		}
		_, err := fmt.Fprintln(w, render.TerminalPlatforms(platform.FormatAll(r, cfgs), opts.Width))
		return eris.Wrap(err, "write platforms")
	case formatResult:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(r), "encode result json")
	default:
		_, err := fmt.Fprintln(w, render.Terminal(c, opts.Width))
		return eris.Wrap(err, "write card")
	}
}
