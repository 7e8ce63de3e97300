package analysis

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseResult validates raw model output against the required analysis shape
// and normalizes legacy field aliases to the canonical names.
//
// The check is structural, not nominal: the payload must be a JSON object
// carrying judgment, key_factors (alias observations), tradeoffs (alias
// tradeoff), uncertainty (alias limitations) and confidence. A missing field
// is a hard failure; a partially shaped result is never returned.
func ParseResult(raw string) (*Result, error) {
	payload := extractObject(raw)
	if payload == "" {
		return nil, fmt.Errorf("%w: no JSON object in payload", ErrMalformedResult)
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(payload), &obj); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResult, err)
	}

	judgment, err := requireString(obj, "judgment")
	if err != nil {
		return nil, err
	}
	tradeoffs, err := requireString(obj, "tradeoffs", "tradeoff")
	if err != nil {
		return nil, err
	}
	uncertainty, err := requireString(obj, "uncertainty", "limitations")
	if err != nil {
		return nil, err
	}

	conf, err := requireString(obj, "confidence")
	if err != nil {
		return nil, err
	}
	confidence := Confidence(strings.ToLower(strings.TrimSpace(conf)))
	if !confidence.Valid() {
		return nil, fmt.Errorf("%w: confidence must be low, medium or high, got %q", ErrMalformedResult, conf)
	}

	factors, err := parseFactors(obj)
	if err != nil {
		return nil, err
	}

	return &Result{
		Judgment:    judgment,
		KeyFactors:  factors,
		Tradeoffs:   tradeoffs,
		Uncertainty: uncertainty,
		Confidence:  confidence,
	}, nil
}

// extractObject returns the outermost {...} span of s, tolerating models that
// wrap the JSON in prose or code fences.
func extractObject(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end <= start {
		return ""
	}
	return s[start : end+1]
}

// requireString resolves a field by its canonical name or any alias, in order.
func requireString(obj map[string]json.RawMessage, names ...string) (string, error) {
	for _, name := range names {
		raw, ok := obj[name]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", fmt.Errorf("%w: field %q is not a string", ErrMalformedResult, name)
		}
		if strings.TrimSpace(s) == "" {
			return "", fmt.Errorf("%w: field %q is empty", ErrMalformedResult, name)
		}
		return s, nil
	}
	return "", fmt.Errorf("%w: missing field %q", ErrMalformedResult, names[0])
}

// parseFactors reads key_factors (alias observations) and normalizes each
// element's factor/explanation (alias observation/why) pair.
func parseFactors(obj map[string]json.RawMessage) ([]Factor, error) {
	raw, ok := obj["key_factors"]
	if !ok {
		raw, ok = obj["observations"]
	}
	if !ok {
		return nil, fmt.Errorf("%w: missing field %q", ErrMalformedResult, "key_factors")
	}

	var items []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%w: key_factors is not an array of objects", ErrMalformedResult)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: key_factors is empty", ErrMalformedResult)
	}

	factors := make([]Factor, 0, len(items))
	for i, item := range items {
		name, err := requireString(item, "factor", "observation")
		if err != nil {
			return nil, fmt.Errorf("%w: key_factors[%d] has no factor", ErrMalformedResult, i)
		}
		why, err := requireString(item, "explanation", "why")
		if err != nil {
			return nil, fmt.Errorf("%w: key_factors[%d] has no explanation", ErrMalformedResult, i)
		}
		factors = append(factors, Factor{Factor: name, Explanation: why})
	}
	return factors, nil
}
