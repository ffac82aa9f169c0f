// Package similarity scores how alike two normalized strings are
//
// The ratio follows the sequence-matcher definition 2*M/T where M is the number of
// matched runes and T the combined length. M is the longest common subsequence, which
// tolerates insertions, deletions and substitutions and is symmetric by construction
package similarity

// MaxRunes bounds the inputs; longer strings are compared on their prefix
const MaxRunes = 512

// Ratio returns a similarity in [0,1]
// Two empty strings are identical (1); exactly one empty string scores 0
func Ratio(a, b string) float64 {
	ra, rb := clip([]rune(a)), clip([]rune(b))
	total := len(ra) + len(rb)
	if total == 0 {
		return 1
	}
	if len(ra) == 0 || len(rb) == 0 {
		return 0
	}
	return 2 * float64(LCS(ra, rb)) / float64(total)
}

// LCS returns the length of the longest common subsequence of a and b
// It keeps two rows of the DP table sized by the shorter input
func LCS(a, b []rune) int {
	if len(a) < len(b) {
		a, b = b, a
	}
	if len(b) == 0 {
		return 0
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			switch {
			case a[i-1] == b[j-1]:
				cur[j] = prev[j-1] + 1
			case prev[j] >= cur[j-1]:
				cur[j] = prev[j]
			default:
				cur[j] = cur[j-1]
			}
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

func clip(r []rune) []rune {
	if len(r) > MaxRunes {
		return r[:MaxRunes]
	}
	return r
}
