// Package hangul implements arithmetic composition and decomposition of
// Hangul syllables into their choseong/jungseong/jongseong jamo, per the
// canonical Unicode block U+AC00..U+D7A3.
package hangul

import (
	"errors"
	"strings"
)

// ErrNotHangul is returned when decompose is asked to operate on a
// codepoint outside the precomposed Hangul syllable block.
var ErrNotHangul = errors.New("hangul: not a precomposed syllable")

const (
	syllableBase = 0xAC00
	syllableLast = 0xD7A3

	initialCount = 19
	medialCount  = 21
	finalCount   = 28
)

// Initials is the 19 choseong jamo in canonical order.
var Initials = [initialCount]rune{
	'ㄱ', 'ㄲ', 'ㄴ', 'ㄷ', 'ㄸ', 'ㄹ', 'ㅁ', 'ㅂ', 'ㅃ', 'ㅅ',
	'ㅆ', 'ㅇ', 'ㅈ', 'ㅉ', 'ㅊ', 'ㅋ', 'ㅌ', 'ㅍ', 'ㅎ',
}

// Medials is the 21 jungseong jamo in canonical order.
var Medials = [medialCount]rune{
	'ㅏ', 'ㅐ', 'ㅑ', 'ㅒ', 'ㅓ', 'ㅔ', 'ㅕ', 'ㅖ', 'ㅗ', 'ㅘ',
	'ㅙ', 'ㅚ', 'ㅛ', 'ㅜ', 'ㅝ', 'ㅞ', 'ㅟ', 'ㅠ', 'ㅡ', 'ㅢ', 'ㅣ',
}

// Finals is the 28 jongseong jamo; index 0 is "no final" (empty string).
var Finals = [finalCount]rune{
	0, 'ㄱ', 'ㄲ', 'ㄳ', 'ㄴ', 'ㄵ', 'ㄶ', 'ㄷ', 'ㄹ', 'ㄺ',
	'ㄻ', 'ㄼ', 'ㄽ', 'ㄾ', 'ㄿ', 'ㅀ', 'ㅁ', 'ㅂ', 'ㅄ', 'ㅅ',
	'ㅆ', 'ㅇ', 'ㅈ', 'ㅊ', 'ㅋ', 'ㅌ', 'ㅍ', 'ㅎ',
}

// IsHangulSyllable reports whether r is a precomposed Hangul syllable
// codepoint (U+AC00..U+D7A3).
func IsHangulSyllable(r rune) bool {
	return r >= syllableBase && r <= syllableLast
}

// Decomposed holds the jamo of one decomposed syllable. Final is "" when
// the syllable has no trailing consonant.
type Decomposed struct {
	Initial string
	Medial  string
	Final   string
}

// Decompose splits a single Hangul syllable codepoint into its initial,
// medial, and optional final jamo via direct arithmetic on the Unicode
// block offset, per the canonical choseong/jungseong/jongseong tables.
func Decompose(r rune) (Decomposed, error) {
	if !IsHangulSyllable(r) {
		return Decomposed{}, ErrNotHangul
	}
	code := int(r) - syllableBase
	initialIdx := code / (medialCount * finalCount)
	medialIdx := (code % (medialCount * finalCount)) / finalCount
	finalIdx := code % finalCount

	d := Decomposed{
		Initial: string(Initials[initialIdx]),
		Medial:  string(Medials[medialIdx]),
	}
	if finalIdx != 0 {
		d.Final = string(Finals[finalIdx])
	}
	return d, nil
}

// Compose is the inverse of Decompose: given an initial, medial, and
// optional final jamo, it reconstructs the precomposed syllable codepoint.
// Returns ErrNotHangul if initial or medial is not found in the canonical
// tables.
func Compose(initial, medial, final string) (rune, error) {
	initialIdx := indexOfRune(Initials[:], initial)
	medialIdx := indexOfRune(Medials[:], medial)
	if initialIdx < 0 || medialIdx < 0 {
		return 0, ErrNotHangul
	}
	finalIdx := 0
	if final != "" {
		finalIdx = indexOfRune(Finals[:], final)
		if finalIdx <= 0 {
			return 0, ErrNotHangul
		}
	}
	code := initialIdx*(medialCount*finalCount) + medialIdx*finalCount + finalIdx
	return rune(syllableBase + code), nil
}

func indexOfRune(table []rune, s string) int {
	if s == "" {
		return -1
	}
	rs := []rune(s)
	if len(rs) != 1 {
		return -1
	}
	for i, t := range table {
		if t == rs[0] {
			return i
		}
	}
	return -1
}

// JamoSequence flattens every Hangul syllable in text into its 2 or 3
// constituent jamo, in reading order. Non-Hangul characters are dropped.
func JamoSequence(text string) []string {
	var out []string
	for _, r := range text {
		d, err := Decompose(r)
		if err != nil {
			continue
		}
		out = append(out, d.Initial, d.Medial)
		if d.Final != "" {
			out = append(out, d.Final)
		}
	}
	return out
}

// Syllables returns every Hangul syllable codepoint found in text, as
// single-rune strings, in order.
func Syllables(text string) []string {
	var out []string
	for _, r := range text {
		if IsHangulSyllable(r) {
			out = append(out, string(r))
		}
	}
	return out
}

// KoreanRatio returns the fraction of runes in text that are Hangul
// syllables (ignoring whitespace entirely when the string is all
// whitespace, in which case it returns 0).
func KoreanRatio(text string) float64 {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0
	}
	total, korean := 0, 0
	for _, r := range trimmed {
		if strings.ContainsRune(" \t\n\r", r) {
			continue
		}
		total++
		if IsHangulSyllable(r) {
			korean++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(korean) / float64(total)
}

// IsIncompleteJamo reports whether r is a standalone (non-precomposed)
// conjoining Hangul jamo — initial U+1100..U+115F, medial U+1161..U+1175, or
// final U+11A8..U+11C2 — indicating a syllable that failed to compose.
// Hangul compatibility jamo (U+3131..U+318E, e.g. 'ㄱ') are not matched.
func IsIncompleteJamo(r rune) bool {
	switch {
	case r >= 0x1100 && r <= 0x115F:
		return true
	case r >= 0x1161 && r <= 0x1175:
		return true
	case r >= 0x11A8 && r <= 0x11C2:
		return true
	}
	return false
}
