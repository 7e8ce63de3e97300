package analysis

import (
	"errors"
	"testing"
)

const validPayload = `{
	"judgment": "A moderately processed soft drink.",
	"key_factors": [
		{"factor": "Added sugar", "explanation": "Sugar is the second ingredient."},
		{"factor": "Preservative", "explanation": "Sodium benzoate extends shelf life."}
	],
	"tradeoffs": "Trades a minimal-ingredient profile for taste and shelf life.",
	"uncertainty": "Quantities and serving frequency are unknown.",
	"confidence": "medium"
}`

func TestParseResult_Canonical(t *testing.T) {
	r, err := ParseResult(validPayload)
	if err != nil {
		t.Fatalf("ParseResult failed: %v", err)
	}
	if r.Judgment == "" || r.Tradeoffs == "" || r.Uncertainty == "" {
		t.Error("expected all sentence fields populated")
	}
	if len(r.KeyFactors) != 2 {
		t.Fatalf("expected 2 factors, got %d", len(r.KeyFactors))
	}
	if r.KeyFactors[0].Factor != "Added sugar" {
		t.Errorf("factor order not preserved: %q", r.KeyFactors[0].Factor)
	}
	if r.Confidence != ConfidenceMedium {
		t.Errorf("expected medium confidence, got %q", r.Confidence)
	}
}

func TestParseResult_LegacyAliases(t *testing.T) {
	payload := `{
		"judgment": "A simple product.",
		"observations": [
			{"observation": "Short list", "why": "Only three ingredients."},
			{"observation": "No additives", "why": "Nothing beyond the basics."}
		],
		"tradeoff": "Trades convenience for simplicity.",
		"limitations": "Quantities unknown.",
		"confidence": "high"
	}`

	r, err := ParseResult(payload)
	if err != nil {
		t.Fatalf("ParseResult failed on legacy aliases: %v", err)
	}
	if len(r.KeyFactors) != 2 {
		t.Fatalf("expected 2 factors, got %d", len(r.KeyFactors))
	}
	if r.KeyFactors[0].Factor != "Short list" || r.KeyFactors[0].Explanation != "Only three ingredients." {
		t.Errorf("alias normalization failed: %+v", r.KeyFactors[0])
	}
	if r.Tradeoffs != "Trades convenience for simplicity." {
		t.Errorf("tradeoff alias not mapped: %q", r.Tradeoffs)
	}
	if r.Uncertainty != "Quantities unknown." {
		t.Errorf("limitations alias not mapped: %q", r.Uncertainty)
	}
}

func TestParseResult_ProseWrappedJSON(t *testing.T) {
	wrapped := "Here is the analysis:\n```json\n" + validPayload + "\n```\nHope that helps."
	r, err := ParseResult(wrapped)
	if err != nil {
		t.Fatalf("ParseResult failed on prose-wrapped payload: %v", err)
	}
	if r.Confidence != ConfidenceMedium {
		t.Errorf("expected medium confidence, got %q", r.Confidence)
	}
}

func TestParseResult_Rejections(t *testing.T) {
	cases := []struct {
		name    string
		payload string
	}{
		{"not json", "the product looks fine to me"},
		{"json array", `[1,2,3]`},
		{"missing judgment", `{"key_factors":[{"factor":"a","explanation":"b"}],"tradeoffs":"t","uncertainty":"u","confidence":"low"}`},
		{"missing confidence", `{"judgment":"j","key_factors":[{"factor":"a","explanation":"b"}],"tradeoffs":"t","uncertainty":"u"}`},
		{"bad confidence literal", `{"judgment":"j","key_factors":[{"factor":"a","explanation":"b"}],"tradeoffs":"t","uncertainty":"u","confidence":"certain"}`},
		{"missing factors", `{"judgment":"j","tradeoffs":"t","uncertainty":"u","confidence":"low"}`},
		{"empty factors", `{"judgment":"j","key_factors":[],"tradeoffs":"t","uncertainty":"u","confidence":"low"}`},
		{"factor without explanation", `{"judgment":"j","key_factors":[{"factor":"a"}],"tradeoffs":"t","uncertainty":"u","confidence":"low"}`},
		{"factor wrong type", `{"judgment":"j","key_factors":[{"factor":1,"explanation":"b"}],"tradeoffs":"t","uncertainty":"u","confidence":"low"}`},
		{"judgment wrong type", `{"judgment":42,"key_factors":[{"factor":"a","explanation":"b"}],"tradeoffs":"t","uncertainty":"u","confidence":"low"}`},
		{"empty tradeoffs", `{"judgment":"j","key_factors":[{"factor":"a","explanation":"b"}],"tradeoffs":"  ","uncertainty":"u","confidence":"low"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r, err := ParseResult(tc.payload)
			if err == nil {
				t.Fatalf("expected rejection, got %+v", r)
			}
			if !errors.Is(err, ErrMalformedResult) {
				t.Errorf("expected ErrMalformedResult, got %v", err)
			}
		})
	}
}

func TestParseResult_ConfidenceCaseInsensitive(t *testing.T) {
	payload := `{"judgment":"j","key_factors":[{"factor":"a","explanation":"b"}],"tradeoffs":"t","uncertainty":"u","confidence":"High"}`
	r, err := ParseResult(payload)
	if err != nil {
		t.Fatalf("ParseResult failed: %v", err)
	}
	if r.Confidence != ConfidenceHigh {
		t.Errorf("expected high, got %q", r.Confidence)
	}
}
