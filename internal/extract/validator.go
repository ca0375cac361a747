package extract

import (
	"fmt"
	"strings"
)

// ValidationResult separates advisory warnings (missing optional fields, never
// block persistence) from errors (malformed required data, fatal).
type ValidationResult struct {
	Warnings []string `json:"warnings"`
	Errors   []string `json:"errors"`
}

// Valid reports whether the extraction can be persisted.
func (r ValidationResult) Valid() bool {
	return len(r.Errors) == 0
}

// CombinedExtraction is the merged heuristic+LLM output handed to validation
// and persistence. Field presence, not confidence, drives validation.
type CombinedExtraction struct {
	Name             string   `json:"name"`
	Email            string   `json:"email"`
	Phone            string   `json:"phone"`
	Summary          string   `json:"summary"`
	Skills           []string `json:"skills"`
	Experience       string   `json:"experience"`
	Education        string   `json:"education"`
	Requirements     string   `json:"requirements"`
	Responsibilities string   `json:"responsibilities"`
	Method           string   `json:"method"`
	Confidence       string   `json:"confidence"`
}

// ValidateCandidateExtraction sanity-checks a combined CV extraction.
// A present-but-malformed email is an error; absent fields produce warnings.
func ValidateCandidateExtraction(out CombinedExtraction) ValidationResult {
	var result ValidationResult

	if out.Email != "" && !emailPattern.MatchString(out.Email) {
		result.Errors = append(result.Errors, fmt.Sprintf("email %q is not a valid address", out.Email))
	}

	if out.Name == "" {
		result.Warnings = append(result.Warnings, "no candidate name extracted")
	}

	if out.Email == "" {
		result.Warnings = append(result.Warnings, "no email extracted")
	}

	if len(out.Skills) == 0 {
		result.Warnings = append(result.Warnings, "no skills extracted")
	}

	if out.Experience == "" {
		result.Warnings = append(result.Warnings, "no experience extracted")
	}

	if out.Education == "" {
		result.Warnings = append(result.Warnings, "no education extracted")
	}

	return result
}

// ValidateJobExtraction sanity-checks a combined job-description extraction.
func ValidateJobExtraction(out CombinedExtraction) ValidationResult {
	var result ValidationResult

	if strings.TrimSpace(out.Summary) == "" {
		result.Warnings = append(result.Warnings, "no summary extracted")
	}

	if strings.TrimSpace(out.Requirements) == "" {
		result.Warnings = append(result.Warnings, "no requirements extracted")
	}

	if strings.TrimSpace(out.Responsibilities) == "" {
		result.Warnings = append(result.Warnings, "no responsibilities extracted")
	}

	return result
}
