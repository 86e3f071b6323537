package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/preview-cli/internal/platform"
	"github.com/sells-group/preview-cli/internal/render"
)

var platformsCmd = &cobra.Command{
	Use:   "platforms <result.json>",
	Short: "Show how a result appears on each social platform",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		format, _ := cmd.Flags().GetString("format")
		width, _ := cmd.Flags().GetInt("width")
		only, _ := cmd.Flags().GetStringSlice("only")

		cfgs, err := loadPlatforms(path)
		if err != nil {
			return err
		}
		cfgs, err = selectPlatforms(cfgs, only)
		if err != nil {
			return err
		}

		result, err := readResult(args[0])
		if err != nil {
			return err
		}
		return writePlatforms(os.Stdout, platform.FormatAll(result, cfgs), format, width)
	},
}

func selectPlatforms(cfgs []platform.Config, names []string) ([]platform.Config, error) {
	if len(names) == 0 {
		return cfgs, nil
	}
	out := make([]platform.Config, 0, len(names))
	for _, n := range names {
		c, ok := platform.Lookup(cfgs, n)
		if !ok {
			return nil, eris.Errorf("unknown platform %q (have %v)", n, platform.Names(cfgs))
		}
		out = append(out, c)
	}
	return out, nil
}

func writePlatforms(w io.Writer, cards []platform.Card, format string, width int) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(cards), "encode platform cards")
	case formatHTML:
		return render.PlatformsHTML(w, cards)
	case formatTerminal:
		_, err := fmt.Fprintln(w, render.TerminalPlatforms(cards, width))
		return eris.Wrap(err, "write platforms")
	default:
		return eris.Errorf("unknown format %q (want terminal|json|html)", format)
	}
}

func init() {
	platformsCmd.Flags().String("config", "", "platform overrides YAML (default from config)")
	platformsCmd.Flags().StringP("format", "f", formatTerminal, "output format: terminal|json|html")
	platformsCmd.Flags().Int("width", 80, "terminal render width")
	platformsCmd.Flags().StringSlice("only", nil, "limit to these platforms (comma-separated)")
	rootCmd.AddCommand(platformsCmd)
}
