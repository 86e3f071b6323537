package card

import (
	"bufio"
	"strings"

	"github.com/apparentlymart/go-textseg/v15/textseg"
	"golang.org/x/text/unicode/norm"
)

const ellipsis = "..."

// Truncate shortens s to at most budget user-perceived characters. Text over
// budget is cut after budget-3 characters and "..." is appended, so the
// result is exactly budget characters long. Cuts land on grapheme cluster
// boundaries, never inside a surrogate pair, combining sequence or emoji
// sequence. Text within budget is returned unchanged.
func Truncate(s string, budget int) string {
	if budget <= 0 {
		return ""
	}
	clusters := graphemes(s)
	if len(clusters) <= budget {
		return s
	}
	if budget <= len(ellipsis) {
		return ellipsis[:budget]
	}
	return strings.Join(clusters[:budget-len(ellipsis)], "") + ellipsis
}

// Length counts grapheme clusters in s.
func Length(s string) int {
	return len(graphemes(s))
}

// FirstGrapheme returns the first user-perceived character of s in NFC form.
func FirstGrapheme(s string) string {
	clusters := graphemes(norm.NFC.String(strings.TrimSpace(s)))
	if len(clusters) == 0 {
		return ""
	}
	return clusters[0]
}

func graphemes(s string) []string {
	if s == "" {
		return nil
	}
	sc := bufio.NewScanner(strings.NewReader(s))
	sc.Buffer(make([]byte, 0, len(s)+1), len(s)+1)
	sc.Split(textseg.ScanGraphemeClusters)

	var out []string
	for sc.Scan() {
		out = append(out, sc.Text())
	}
	return out
}
