package moderation

import "github.com/rivo/uniseg"

// Summarize returns the longest prefix of text holding at most maxClusters
// grapheme clusters and at most maxRunes runes (0 disables the rune bound).
// The cut lands on a cluster boundary, so emoji sequences and combining marks
// are kept whole or dropped whole. The one exception is a first cluster that
// alone exceeds maxRunes: it is cut at the rune bound so non-empty text never
// yields an empty summary.
func Summarize(text string, maxClusters, maxRunes int) string {
	if maxClusters <= 0 {
		return ""
	}

	gr := uniseg.NewGraphemes(text)
	clusters, runes, end := 0, 0, 0
	for gr.Next() {
		clusterRunes := len(gr.Runes())
		if maxRunes > 0 && runes+clusterRunes > maxRunes {
			if clusters == 0 {
				return truncateRunes(text, maxRunes)
			}
			break
		}
		_, to := gr.Positions()
		end = to
		runes += clusterRunes
		clusters++
		if clusters == maxClusters {
			break
		}
	}
	return text[:end]
}

// ClusterCount returns the number of grapheme clusters in text.
func ClusterCount(text string) int {
	return uniseg.GraphemeClusterCount(text)
}

// truncateRunes returns the first n runes of text.
func truncateRunes(text string, n int) string {
	count := 0
	for i := range text {
		if count == n {
			return text[:i]
		}
		count++
	}
	return text
}
