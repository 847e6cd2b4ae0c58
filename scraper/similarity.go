package scraper

import (
	"regexp"
	"strings"
)

const (
	// Weight of the lexical (bigram Dice) signal in the final score.
	diceWeight = 0.7
	// Combined bonuses can never exceed this cap, so they sharpen the
	// ranking without dominating the lexical signal.
	bonusCap = 0.4

	numericFullBonus    = 0.25
	numericPartialScale = 0.15
	qualifierUnitBonus  = 0.05
	qualifierBonusCap   = 0.15
)

var digitRunRe = regexp.MustCompile(`\d+`)

// technicalQualifiers is a fixed vocabulary of size/edition/variant
// markers that distinguish products whose titles otherwise share most
// keywords (the laptop vs. its sleeve problem).
var technicalQualifiers = map[string]bool{
	"pro": true, "max": true, "mini": true, "plus": true, "ultra": true,
	"air": true, "lite": true, "slim": true, "se": true, "xl": true,
	"xxl": true, "xs": true, "super": true, "ti": true, "oc": true,
	"gb": true, "tb": true, "mb": true, "ghz": true, "mhz": true,
	"inch": true, "cm": true, "mm": true, "wifi": true, "cellular": true,
	"lte": true, "5g": true, "4g": true, "dual": true, "sim": true,
	"oled": true, "qled": true, "uhd": true, "fhd": true, "hdr": true,
	"rtx": true, "gtx": true, "ryzen": true, "ssd": true, "hdd": true,
	"nvme": true, "ddr4": true, "ddr5": true, "edition": true,
}

// SimilarityScore computes a bounded match score between a normalized
// query and a normalized candidate title. Both inputs must already be
// passed through NormalizeTitle; there is no normalization-skip path.
//
// The score is 0.7 * bigram Dice similarity, plus a capped bonus for
// shared numeric tokens and shared technical qualifier words.
func SimilarityScore(normQuery, normCandidate string) float64 {
	qCompact := strings.ReplaceAll(normQuery, " ", "")
	cCompact := strings.ReplaceAll(normCandidate, " ", "")

	// Self-similarity is maximal by definition; the weighted formula
	// alone cannot reach 1.0 without bonuses.
	if qCompact == cCompact && qCompact != "" {
		return 1.0
	}

	dice := diceSimilarity(qCompact, cCompact)

	bonus := numericTokenBonus(normQuery, normCandidate) + qualifierBonus(normQuery, normCandidate)
	if bonus > bonusCap {
		bonus = bonusCap
	}

	score := diceWeight*dice + bonus
	if score > 1 {
		score = 1
	}
	return score
}

// diceSimilarity is the Sørensen–Dice coefficient over character bigrams
// with multiset intersection: a bigram shared n times in one string and
// m times in the other contributes min(n, m).
func diceSimilarity(a, b string) float64 {
	// Degenerate inputs have no bigrams; fall back to exact equality.
	if len(a) < 2 || len(b) < 2 {
		if a == b {
			return 1.0
		}
		return 0.0
	}

	bigramsA := bigramCounts(a)
	bigramsB := bigramCounts(b)

	shared := 0
	for g, n := range bigramsA {
		if m, ok := bigramsB[g]; ok {
			if m < n {
				shared += m
			} else {
				shared += n
			}
		}
	}

	totalA := len(a) - 1
	totalB := len(b) - 1
	return 2 * float64(shared) / float64(totalA+totalB)
}

func bigramCounts(s string) map[string]int {
	counts := make(map[string]int, len(s))
	runes := []rune(s)
	for i := 0; i+1 < len(runes); i++ {
		counts[string(runes[i:i+2])]++
	}
	return counts
}

// numericTokenBonus rewards candidates that carry the query's digit runs
// (model numbers, capacities, screen sizes). Full coverage earns 0.25,
// partial coverage a prorated 0.15; a query without numbers earns nothing
// since the signal would be identical for every candidate.
func numericTokenBonus(normQuery, normCandidate string) float64 {
	queryNums := digitRunSet(normQuery)
	if len(queryNums) == 0 {
		return 0
	}

	candidateNums := digitRunSet(normCandidate)
	matched := 0
	for n := range queryNums {
		if candidateNums[n] {
			matched++
		}
	}

	if matched == len(queryNums) {
		return numericFullBonus
	}
	if matched > 0 {
		return numericPartialScale * float64(matched) / float64(len(queryNums))
	}
	return 0
}

func digitRunSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, run := range digitRunRe.FindAllString(s, -1) {
		set[run] = true
	}
	return set
}

// qualifierBonus counts technical qualifier words present in both
// strings, 0.05 each, capped at 0.15.
func qualifierBonus(normQuery, normCandidate string) float64 {
	queryWords := make(map[string]bool)
	for _, w := range strings.Fields(normQuery) {
		if technicalQualifiers[w] {
			queryWords[w] = true
		}
	}
	if len(queryWords) == 0 {
		return 0
	}

	shared := 0
	for _, w := range strings.Fields(normCandidate) {
		if queryWords[w] {
			shared++
			delete(queryWords, w)
		}
	}

	bonus := qualifierUnitBonus * float64(shared)
	if bonus > qualifierBonusCap {
		bonus = qualifierBonusCap
	}
	return bonus
}
