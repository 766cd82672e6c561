// Package form decodes the compact race-result notation ("form string")
// carried on every horse record, e.g. "1p3p5p". One token per past race,
// most recent first: an optional DNF/disqualification prefix (D, T, J, A),
// the finishing position digits, and a required discipline-code letter
// (p=flat, t=trot, h=obstacle; other codes are accepted leniently).
package form

import "strings"

const (
	// dnfPenalty is the position assigned to a non-finisher.
	dnfPenalty = 10
	// maxPosition caps parsed finishing positions; worse placings are
	// clamped, not dropped, so horses with different history lengths
	// stay comparable.
	maxPosition = 10
)

// Parse decodes a form string into finishing positions, most recent first.
// If discipline is non-empty, tokens whose discipline code does not match
// are excluded before truncation to limit. Malformed or empty input yields
// an empty result, never an error.
func Parse(formString string, limit int, discipline string) []int {
	if limit <= 0 || formString == "" {
		return nil
	}

	var positions []int
	i := 0
	for i < len(formString) {
		pos, code, next, ok := scanToken(formString, i)
		if !ok {
			// Lenient: skip characters that cannot start a token.
			i++
			continue
		}
		i = next
		if discipline != "" && !strings.EqualFold(code, discipline) {
			continue
		}
		positions = append(positions, pos)
	}

	if len(positions) > limit {
		positions = positions[:limit]
	}
	return positions
}

// scanToken reads one token starting at i. It returns the decoded position,
// the discipline code, the index past the token, and whether a complete
// token was found.
func scanToken(s string, i int) (pos int, code string, next int, ok bool) {
	dnf := false
	if isDNFPrefix(s[i]) && i+1 < len(s) && (isDigit(s[i+1]) || isLetter(s[i+1])) {
		dnf = true
		i++
	}

	n := 0
	digits := 0
	for i < len(s) && isDigit(s[i]) {
		n = n*10 + int(s[i]-'0')
		digits++
		i++
	}

	// The discipline code letter is required; a bare prefix or bare number
	// is not a token.
	if i >= len(s) || !isLetter(s[i]) {
		return 0, "", i, false
	}
	if digits == 0 && !dnf {
		return 0, "", i, false
	}
	code = string(s[i])
	i++

	switch {
	case dnf:
		pos = dnfPenalty
	case n < 1 || n > maxPosition:
		// 0 means unplaced in the source notation; anything past 10th
		// is clamped.
		pos = maxPosition
	default:
		pos = n
	}
	return pos, code, i, true
}

func isDNFPrefix(c byte) bool {
	switch c {
	case 'D', 'd', 'T', 't', 'J', 'j', 'A', 'a':
		return true
	}
	return false
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
