package analysis

import (
	"fmt"
	"strings"
)

// Keyword tables for the offline heuristic. Matching is substring-based over
// the lowercased input, so "Sodium Benzoate" hits "benzoate".
var signalWords = []string{
	"water", "salt", "sugar", "oil", "acid", "extract", "starch", "vitamin",
	"flour", "milk", "soy", "yeast", "syrup", "flavor", "flavour", "protein",
	"wheat", "corn", "rice", "cocoa",
}

var sweetenerWords = []string{
	"sugar", "syrup", "fructose", "glucose", "dextrose", "sucralose",
	"aspartame", "stevia", "honey", "maltodextrin", "saccharin",
}

var preservativeWords = []string{
	"benzoate", "sorbate", "nitrite", "nitrate", "sulfite", "sulphite",
	"propionate", "bha", "bht", "edta",
}

var emulsifierWords = []string{
	"lecithin", "gum", "carrageenan", "polysorbate", "glycerides",
	"pectin", "cellulose", "phosphate",
}

var colorWords = []string{
	"red 40", "red 3", "yellow 5", "yellow 6", "blue 1", "blue 2",
	"caramel color", "caramel colour", "annatto", "titanium dioxide",
	"artificial color", "artificial colour",
}

var naturalWords = []string{
	"natural", "organic", "whole grain", "real fruit", "cold pressed",
}

const offlineUncertainty = "Exact quantities, how often this is eaten, and personal dietary context cannot be inferred from the ingredient text alone; this is an offline estimate."

// Fallback produces a degraded, locally computed analysis for text that has
// already passed input validation. Deterministic: the same text always yields
// the same result, and the result always satisfies the analysis shape.
//
// Used only when the model provider is unreachable. The output is framed as
// approximate throughout and never claims model-level confidence.
func Fallback(text string) *Result {
	lower := strings.ToLower(text)
	commas := strings.Count(lower, ",")

	signals := 0
	for _, w := range signalWords {
		if strings.Contains(lower, w) {
			signals++
		}
	}
	if signals < 2 && commas < 2 {
		return implausibleResult()
	}

	// Comma count as a naive proxy for ingredient count.
	approxCount := commas + 1
	sweeteners := matchCategory(lower, sweetenerWords)
	preservatives := matchCategory(lower, preservativeWords)
	emulsifiers := matchCategory(lower, emulsifierWords)
	colors := matchCategory(lower, colorWords)
	natural := matchCategory(lower, naturalWords)

	var factors []Factor
	triggered := 0

	switch {
	case approxCount > 15:
		triggered++
		factors = append(factors, Factor{
			Factor:      "Long ingredient list",
			Explanation: fmt.Sprintf("Roughly %d ingredients, which usually points to a heavily formulated product.", approxCount),
		})
	case approxCount <= 5:
		triggered++
		factors = append(factors, Factor{
			Factor:      "Short ingredient list",
			Explanation: fmt.Sprintf("Roughly %d ingredients, which usually points to a simpler product.", approxCount),
		})
	}

	if len(sweeteners) > 0 {
		triggered++
		f := Factor{
			Factor:      "Added sweetener",
			Explanation: fmt.Sprintf("Contains %s.", joinWords(sweeteners)),
		}
		if len(sweeteners) > 1 {
			f.Factor = "Multiple sweeteners"
		}
		factors = append(factors, f)
	}
	if len(preservatives) > 0 {
		triggered++
		factors = append(factors, Factor{
			Factor:      "Preservatives present",
			Explanation: fmt.Sprintf("Contains %s, typically added to extend shelf life.", joinWords(preservatives)),
		})
	}
	if len(emulsifiers) > 0 {
		triggered++
		factors = append(factors, Factor{
			Factor:      "Emulsifiers or stabilizers",
			Explanation: fmt.Sprintf("Contains %s, typically added for texture and consistency.", joinWords(emulsifiers)),
		})
	}
	if len(colors) > 0 {
		triggered++
		factors = append(factors, Factor{
			Factor:      "Added colors",
			Explanation: fmt.Sprintf("Contains %s, a cosmetic additive.", joinWords(colors)),
		})
	}
	if len(natural) > 0 {
		triggered++
		factors = append(factors, Factor{
			Factor:      "Natural positioning",
			Explanation: fmt.Sprintf("Terms like %s suggest the product is marketed on naturalness.", joinWords(natural)),
		})
	}

	if len(factors) == 0 {
		factors = append(factors, Factor{
			Factor:      "Standard formulation",
			Explanation: "No notable additive patterns were spotted; this reads like a conventional product.",
		})
	}
	if len(factors) > 4 {
		factors = factors[:4]
	}

	confidence := ConfidenceLow
	if triggered >= 3 {
		confidence = ConfidenceMedium
	}

	convenience := triggered >= 3 || approxCount > 15
	classification := "a fairly straightforward product"
	if convenience {
		classification = "a convenience-oriented product with several processed-food markers"
	}

	return &Result{
		Judgment:    fmt.Sprintf("Offline approximate read: this looks like %s.", classification),
		KeyFactors:  factors,
		Tradeoffs:   tradeoffSentence(sweeteners, preservatives, emulsifiers, convenience),
		Uncertainty: offlineUncertainty,
		Confidence:  confidence,
	}
}

func implausibleResult() *Result {
	return &Result{
		Judgment: "This doesn't look like an ingredient list, so no meaningful offline read is possible.",
		KeyFactors: []Factor{{
			Factor:      "Unrecognized input",
			Explanation: "The text has neither common ingredient terms nor comma-separated structure.",
		}},
		Tradeoffs:   "No gain/cost trade can be described for text that isn't an ingredient list.",
		Uncertainty: offlineUncertainty,
		Confidence:  ConfidenceLow,
	}
}

// tradeoffSentence joins up to two gains against up to two costs, falling back
// to generic terms when no specific signal fired.
func tradeoffSentence(sweeteners, preservatives, emulsifiers []string, convenience bool) string {
	var gains []string
	if len(sweeteners) > 0 {
		gains = append(gains, "taste")
	}
	if len(preservatives) > 0 {
		gains = append(gains, "shelf life")
	}
	if len(emulsifiers) > 0 && len(gains) < 2 {
		gains = append(gains, "texture")
	}
	if len(gains) > 2 {
		gains = gains[:2]
	}

	var costs []string
	if convenience {
		costs = append(costs, "simplicity")
	} else {
		costs = append(costs, "a minimal-ingredient profile")
	}

	if len(gains) == 0 {
		gains = append(gains, "convenience")
	}
	return fmt.Sprintf("This formulation trades %s for %s.", joinWords(costs), joinWords(gains))
}

func matchCategory(lower string, words []string) []string {
	var hits []string
	for _, w := range words {
		if strings.Contains(lower, w) {
			hits = append(hits, w)
		}
	}
	return hits
}

func joinWords(words []string) string {
	switch len(words) {
	case 0:
		return ""
	case 1:
		return words[0]
	case 2:
		return words[0] + " and " + words[1]
	}
	return strings.Join(words[:len(words)-1], ", ") + " and " + words[len(words)-1]
}
