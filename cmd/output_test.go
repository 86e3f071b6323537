package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/preview-cli/internal/card"
	"github.com/sells-group/preview-cli/internal/config"
	"github.com/sells-group/preview-cli/internal/model"
)

const sampleResultJSON = `{
  "url": "https://www.acme.com/shoe",
  "title": "Acme Trail Shoe",
  "description": "Lightweight shoe for long days.",
  "ctaText": "Buy now",
  "tags": ["footwear", "outdoor"],
  "credibilityItems": [{"type": "starting_price", "value": "$129"}],
  "screenshotUrl": "https://cdn.acme.com/shot.png",
  "blueprint": {"templateType": "product", "primaryColor": "#1d4ed8", "secondaryColor": "#93c5fd"}
}`

func sampleResult(t *testing.T) *model.ReconstructionResult {
	t.Helper()
	r, err := decodeResult(strings.NewReader(sampleResultJSON))
	require.NoError(t, err)
	return r
}

func TestWriteResult_Formats(t *testing.T) {
	tests := []struct {
		format string
		want   []string
	}{
		{formatTerminal, []string{"Acme Trail Shoe", "Buy now", "$129"}},
		{formatJSON, []string{`"template": "product"`, `"title": "Acme Trail Shoe"`}},
		{formatYAML, []string{"template: product", "title: Acme Trail Shoe"}},
		{formatHTML, []string{`<meta property="og:title" content="Acme Trail Shoe">`, `data-template="product"`}},
		{formatPlatforms, []string{"WhatsApp", "Slack", "ACME.COM"}},
		{formatResult, []string{`"ctaText": "Buy now"`}},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, writeResult(&buf, sampleResult(t), outputOptions{Format: tt.format, Width: 70}))
			for _, w := range tt.want {
				assert.Contains(t, buf.String(), w)
			}
		})
	}
}

func TestWriteResult_TemplateOverride(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeResult(&buf, sampleResult(t), outputOptions{Format: formatJSON, Template: "article"}))

	var c card.Card
	require.NoError(t, json.Unmarshal(buf.Bytes(), &c))
	assert.Equal(t, card.Article, c.Template)
}

func TestOutputOptionsFromFlags(t *testing.T) {
	cfg = &config.Config{}
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "defaults"},
		{name: "platforms", args: []string{"--format", "platforms"}},
		{name: "bad format", args: []string{"--format", "pdf"}, wantErr: `unknown format "pdf"`},
		{name: "bad template", args: []string{"--template", "gallery"}, wantErr: `unknown template "gallery"`},
		{name: "missing platforms file", args: []string{"--format", "platforms", "--platforms-config", "/nonexistent/platforms.yaml"}, wantErr: "platforms.yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := &cobra.Command{}
			addOutputFlags(cmd)
			require.NoError(t, cmd.ParseFlags(tt.args))

			opts, err := outputOptionsFromFlags(cmd)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			if opts.Format == formatPlatforms {
				assert.Len(t, opts.Platforms, 5)
			}
		})
	}
}

func TestDecodeResult_Invalid(t *testing.T) {
	_, err := decodeResult(strings.NewReader("{not json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode result")
}

func TestRootCommands(t *testing.T) {
	want := []string{"submit", "demo", "render", "platforms", "batch", "serve", "watch", "jobs"}
	var got []string
	for _, c := range rootCmd.Commands() {
		got = append(got, c.Name())
	}
	for _, name := range want {
		assert.Contains(t, got, name)
	}
}
