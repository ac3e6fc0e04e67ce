// Package accuracy scores how closely extracted text matches a reference.
package accuracy

import (
	"regexp"
	"strings"
)

// Metrics compares a reference text with the text found in a document
type Metrics struct {
	CharacterSimilarity float64 `yaml:"character_similarity"`
	WordSimilarity      float64 `yaml:"word_similarity"`
	WordAccuracy        float64 `yaml:"word_accuracy"`
	WordErrorRate       float64 `yaml:"word_error_rate"`
	ReferenceWords      int     `yaml:"reference_words"`
	ExtractedWords      int     `yaml:"extracted_words"`
	CorrectWords        int     `yaml:"correct_words"`
	Substitutions       int     `yaml:"substitutions"`
	Deletions           int     `yaml:"deletions"`
	Insertions          int     `yaml:"insertions"`
}

var whitespace = regexp.MustCompile(`\s+`)

func normalizeText(text string) string {
	text = whitespace.ReplaceAllString(strings.TrimSpace(text), " ")
	return strings.ToLower(text)
}

// Compact drops all whitespace. Text extracted from a PDF often loses the
// gaps between separately placed words, so character similarity is computed
// on compacted text.
func Compact(text string) string {
	return whitespace.ReplaceAllString(strings.ToLower(text), "")
}

func levenshteinDistance(s1, s2 string) int {
	r1, r2 := []rune(s1), []rune(s2)
	len1, len2 := len(r1), len(r2)
	if len1 == 0 {
		return len2
	}
	if len2 == 0 {
		return len1
	}

	prev := make([]int, len2+1)
	curr := make([]int, len2+1)
	for j := 0; j <= len2; j++ {
		prev[j] = j
	}

	for i := 1; i <= len1; i++ {
		curr[0] = i
		for j := 1; j <= len2; j++ {
			cost := 0
			if r1[i-1] != r2[j-1] {
				cost = 1
			}
			curr[j] = min(
				min(prev[j]+1, curr[j-1]+1), // deletion, insertion
				prev[j-1]+cost,              // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[len2]
}

func similarity(s1, s2 string) float64 {
	maxLen := max(len([]rune(s1)), len([]rune(s2)))
	if maxLen == 0 {
		return 1.0
	}
	return 1.0 - float64(levenshteinDistance(s1, s2))/float64(maxLen)
}

// wordLevelMetrics aligns the two word sequences and counts the edits
func wordLevelMetrics(ref, ext []string) (accuracy float64, correct, substitutions, deletions, insertions int) {
	m, n := len(ref), len(ext)
	dp := make([][]int, m+1)
	for i := range dp {
		dp[i] = make([]int, n+1)
	}
	for i := 0; i <= m; i++ {
		dp[i][0] = i
	}
	for j := 0; j <= n; j++ {
		dp[0][j] = j
	}

	for i := 1; i <= m; i++ {
		for j := 1; j <= n; j++ {
			if ref[i-1] == ext[j-1] {
				dp[i][j] = dp[i-1][j-1]
			} else {
				dp[i][j] = 1 + min(min(dp[i-1][j], dp[i][j-1]), dp[i-1][j-1])
			}
		}
	}

	i, j := m, n
	for i > 0 || j > 0 {
		switch {
		case i > 0 && j > 0 && ref[i-1] == ext[j-1]:
			correct++
			i--
			j--
		case i > 0 && j > 0 && dp[i][j] == dp[i-1][j-1]+1:
			substitutions++
			i--
			j--
		case i > 0 && dp[i][j] == dp[i-1][j]+1:
			deletions++
			i--
		default:
			insertions++
			j--
		}
	}

	wer := 0.0
	if m > 0 {
		wer = float64(substitutions+deletions+insertions) / float64(m)
	}
	return 1.0 - wer, correct, substitutions, deletions, insertions
}

// Compare scores extracted against reference
func Compare(reference, extracted string) Metrics {
	refNorm := normalizeText(reference)
	extNorm := normalizeText(extracted)
	refWords := strings.Fields(refNorm)
	extWords := strings.Fields(extNorm)

	acc, correct, subs, dels, ins := wordLevelMetrics(refWords, extWords)

	return Metrics{
		CharacterSimilarity: similarity(Compact(refNorm), Compact(extNorm)),
		WordSimilarity:      similarity(refNorm, extNorm),
		WordAccuracy:        acc,
		WordErrorRate:       1.0 - acc,
		ReferenceWords:      len(refWords),
		ExtractedWords:      len(extWords),
		CorrectWords:        correct,
		Substitutions:       subs,
		Deletions:           dels,
		Insertions:          ins,
	}
}

// Average returns the mean of the similarity and accuracy scores. Counts are
// summed.
func Average(all []Metrics) Metrics {
	var out Metrics
	if len(all) == 0 {
		return out
	}
	for _, m := range all {
		out.CharacterSimilarity += m.CharacterSimilarity
		out.WordSimilarity += m.WordSimilarity
		out.WordAccuracy += m.WordAccuracy
		out.WordErrorRate += m.WordErrorRate
		out.ReferenceWords += m.ReferenceWords
		out.ExtractedWords += m.ExtractedWords
		out.CorrectWords += m.CorrectWords
		out.Substitutions += m.Substitutions
		out.Deletions += m.Deletions
		out.Insertions += m.Insertions
	}
	n := float64(len(all))
	out.CharacterSimilarity /= n
	out.WordSimilarity /= n
	out.WordAccuracy /= n
	out.WordErrorRate /= n
	return out
}
