// Package textgrid implements the C13 TextGrid emitter: Praat-compatible
// "ooTextFile" / "TextGrid" text, UTF-16LE with BOM, grounded on the
// original UnifiedTextGridGenerator.from_syllables format string (expanded
// here to gap-fill with empty-text intervals so the tier stays contiguous,
// per the spec's stricter grammar requirement).
package textgrid

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/MDEF-GIT/ToneBridgeDemo-sub000/internal/model"
)

// Generate renders segments as a single-tier ("syllables") TextGrid spanning
// [0, totalDuration]. Gaps between/around segments are filled with
// empty-text intervals so the tier has no holes.
func Generate(segments []model.Syllable, totalDuration float64) string {
	if totalDuration <= 0 {
		if len(segments) > 0 {
			totalDuration = segments[len(segments)-1].End
		} else {
			totalDuration = 1.0
		}
	}

	intervals := fillGaps(segments, totalDuration)

	var b strings.Builder
	fmt.Fprintf(&b, "File type = \"ooTextFile\"\n")
	fmt.Fprintf(&b, "Object class = \"TextGrid\"\n\n")
	fmt.Fprintf(&b, "xmin = %s\n", fixed(0))
	fmt.Fprintf(&b, "xmax = %s\n", fixed(totalDuration))
	fmt.Fprintf(&b, "tiers? <exists>\n")
	fmt.Fprintf(&b, "size = 1\n")
	fmt.Fprintf(&b, "item []:\n")
	fmt.Fprintf(&b, "    item [1]:\n")
	fmt.Fprintf(&b, "        class = \"IntervalTier\"\n")
	fmt.Fprintf(&b, "        name = \"syllables\"\n")
	fmt.Fprintf(&b, "        xmin = %s\n", fixed(0))
	fmt.Fprintf(&b, "        xmax = %s\n", fixed(totalDuration))
	fmt.Fprintf(&b, "        intervals: size = %d\n", len(intervals))
	for i, iv := range intervals {
		fmt.Fprintf(&b, "        intervals [%d]:\n", i+1)
		fmt.Fprintf(&b, "            xmin = %s\n", fixed(iv.xmin))
		fmt.Fprintf(&b, "            xmax = %s\n", fixed(iv.xmax))
		fmt.Fprintf(&b, "            text = \"%s\"\n", escapeQuotes(iv.text))
	}
	return b.String()
}

// Encode converts the textual TextGrid content to UTF-16LE with BOM, per
// the spec's required on-disk encoding.
func Encode(content string) ([]byte, error) {
	enc := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM)
	out, _, err := transform.Bytes(enc.NewEncoder(), []byte(content))
	if err != nil {
		return nil, fmt.Errorf("textgrid: encode utf-16le: %w", err)
	}
	return out, nil
}

type interval struct {
	xmin, xmax float64
	text       string
}

// fillGaps inserts empty-text intervals so the sequence covers
// [0, totalDuration] contiguously, assuming segments are already sorted and
// non-overlapping (per the Syllable invariant).
func fillGaps(segments []model.Syllable, totalDuration float64) []interval {
	var out []interval
	cursor := 0.0
	for _, s := range segments {
		if s.Start > cursor {
			out = append(out, interval{xmin: cursor, xmax: s.Start, text: ""})
		}
		out = append(out, interval{xmin: s.Start, xmax: s.End, text: s.Text})
		cursor = s.End
	}
	if cursor < totalDuration {
		out = append(out, interval{xmin: cursor, xmax: totalDuration, text: ""})
	}
	if len(out) == 0 {
		out = append(out, interval{xmin: 0, xmax: totalDuration, text: ""})
	}
	return out
}

func fixed(v float64) string {
	return fmt.Sprintf("%.6f", v)
}

func escapeQuotes(s string) string {
	return strings.ReplaceAll(s, `"`, `""`)
}
