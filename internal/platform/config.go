// Package platform formats a reconstruction result as the link preview a
// specific destination (WhatsApp, LinkedIn, X, Facebook, Slack) would show.
package platform

import (
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// StyleVariant names a destination's visual convention.
type StyleVariant string

const (
	StyleBubble       StyleVariant = "bubble"
	StyleProfessional StyleVariant = "professional"
	StyleLargeCard    StyleVariant = "large_card"
	StyleFeed         StyleVariant = "feed"
	StyleUnfurl       StyleVariant = "unfurl"
)

// Config declares one destination's limits and look.
type Config struct {
	Name           string       `yaml:"name" json:"name"`
	Label          string       `yaml:"label" json:"label"`
	MaxTitleLength int          `yaml:"max_title_length" json:"maxTitleLength"`
	MaxDescLength  int          `yaml:"max_desc_length" json:"maxDescLength"`
	AspectRatio    string       `yaml:"aspect_ratio" json:"aspectRatio"`
	StyleVariant   StyleVariant `yaml:"style_variant" json:"styleVariant"`
}

// Ratio parses AspectRatio ("1.91:1", "16:9") as width over height.
func (c Config) Ratio() (float64, error) {
	w, h, ok := strings.Cut(c.AspectRatio, ":")
	if !ok {
		return 0, eris.Errorf("platform: %s: aspect ratio %q is not W:H", c.Name, c.AspectRatio)
	}
	wf, err := strconv.ParseFloat(strings.TrimSpace(w), 64)
	if err != nil {
		return 0, eris.Wrapf(err, "platform: %s: aspect ratio width", c.Name)
	}
	hf, err := strconv.ParseFloat(strings.TrimSpace(h), 64)
	if err != nil {
		return 0, eris.Wrapf(err, "platform: %s: aspect ratio height", c.Name)
	}
	if wf <= 0 || hf <= 0 {
		return 0, eris.Errorf("platform: %s: aspect ratio %q must be positive", c.Name, c.AspectRatio)
	}
	return wf / hf, nil
}

// Validate checks that the config can drive Format.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return eris.New("platform: name is required")
	}
	if c.MaxTitleLength <= 0 {
		return eris.Errorf("platform: %s: max_title_length must be positive", c.Name)
	}
	if c.MaxDescLength <= 0 {
		return eris.Errorf("platform: %s: max_desc_length must be positive", c.Name)
	}
	_, err := c.Ratio()
	return err
}

// Defaults returns the five built-in destinations, in display order.
func Defaults() []Config {
	return []Config{
		{Name: "whatsapp", Label: "WhatsApp", MaxTitleLength: 65, MaxDescLength: 120, AspectRatio: "1.91:1", StyleVariant: StyleBubble},
		{Name: "linkedin", Label: "LinkedIn", MaxTitleLength: 70, MaxDescLength: 150, AspectRatio: "1.91:1", StyleVariant: StyleProfessional},
		{Name: "twitter", Label: "X / Twitter", MaxTitleLength: 70, MaxDescLength: 125, AspectRatio: "2:1", StyleVariant: StyleLargeCard},
		{Name: "facebook", Label: "Facebook", MaxTitleLength: 88, MaxDescLength: 155, AspectRatio: "1.91:1", StyleVariant: StyleFeed},
		{Name: "slack", Label: "Slack", MaxTitleLength: 80, MaxDescLength: 150, AspectRatio: "16:9", StyleVariant: StyleUnfurl},
	}
}

// LoadConfigs reads platform overrides from a YAML file with a top-level
// "platforms" list. Entries whose name matches a default replace that
// default's non-zero fields; new names are appended. An empty path returns
// the defaults.
func LoadConfigs(path string) ([]Config, error) {
	cfgs := Defaults()
	if path == "" {
		return cfgs, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "platform: read config %s", path)
	}

	var wrapper struct {
		Platforms []Config `yaml:"platforms"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "platform: parse config")
	}

	for _, o := range wrapper.Platforms {
		o.Name = strings.ToLower(strings.TrimSpace(o.Name))
		if i := indexOf(cfgs, o.Name); i >= 0 {
			cfgs[i] = merge(cfgs[i], o)
			continue
		}
		if o.Label == "" {
			o.Label = o.Name
		}
		cfgs = append(cfgs, o)
	}

	for _, c := range cfgs {
		if err := c.Validate(); err != nil {
			return nil, eris.Wrapf(err, "platform: config %s", path)
		}
	}
	return cfgs, nil
}

// Lookup finds a config by name (case-insensitive).
func Lookup(cfgs []Config, name string) (Config, bool) {
	if i := indexOf(cfgs, strings.ToLower(name)); i >= 0 {
		return cfgs[i], true
	}
	return Config{}, false
}

// Names lists config names in order.
func Names(cfgs []Config) []string {
	out := make([]string, len(cfgs))
	for i, c := range cfgs {
		out[i] = c.Name
	}
	return out
}

func indexOf(cfgs []Config, name string) int {
	for i, c := range cfgs {
		if c.Name == name {
			return i
		}
	}
	return -1
}

func merge(base, o Config) Config {
	if o.Label != "" {
		base.Label = o.Label
	}
	if o.MaxTitleLength > 0 {
		base.MaxTitleLength = o.MaxTitleLength
	}
	if o.MaxDescLength > 0 {
		base.MaxDescLength = o.MaxDescLength
	}
	if o.AspectRatio != "" {
		base.AspectRatio = o.AspectRatio
	}
	if o.StyleVariant != "" {
		base.StyleVariant = o.StyleVariant
	}
	return base
}
