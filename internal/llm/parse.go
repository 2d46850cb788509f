// Package llm drives media classification through the Gemini multimodal API
// and extracts structured verdicts from free-form model output.
package llm

import (
	"encoding/json"
	"errors"
	"regexp"

	"github.com/trueai/go-detect-backend/internal/domain"
)

// ErrNoJSON is returned when the model response contains no JSON object.
var ErrNoJSON = errors.New("no JSON object found in model response")

// jsonObjectRE finds the first greedy {...} span in a response, crossing
// newlines; models frequently wrap the object in prose or code fences.
var jsonObjectRE = regexp.MustCompile(`(?s)\{.*\}`)

// ParseVerdict extracts the classification verdict embedded in text.
//
// The first balanced-looking JSON object substring is decoded strictly;
// decode errors propagate to the caller (the classifier converts them into
// the Unknown sentinel). Label, confidence, and reason are taken verbatim
// with no range or enum validation.
func ParseVerdict(text string) (domain.Verdict, error) {
	raw := jsonObjectRE.FindString(text)
	if raw == "" {
		return domain.Verdict{}, ErrNoJSON
	}
	var v domain.Verdict
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return domain.Verdict{}, err
	}
	return v, nil
}
