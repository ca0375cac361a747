// Package extract provides deterministic, rule-based field extraction from raw
// document text. Everything in this package is a pure function over text; no
// model inference happens here.
package extract

import (
	"regexp"
	"strings"
)

// Overall confidence tiers returned by CalculateConfidence.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// Fixed per-field confidence scores. Exact-pattern fields (email) score higher
// than loosely structured ones (experience).
const (
	confidenceEmail      = 0.95
	confidenceSkills     = 0.85
	confidencePhone      = 0.80
	confidenceEducation  = 0.80
	confidenceExperience = 0.70
	confidenceName       = 0.70
)

var emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

// phonePatterns are tried in order; the first match wins. Order matters because
// the patterns overlap (a parenthesized number also contains a dashed core).
var phonePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\(\d{3}\)[\s.-]?\d{3}[\s.-]?\d{4}`),
	regexp.MustCompile(`\+\d{1,3}(?:[\s.-]\d{2,4}){2,4}`),
	regexp.MustCompile(`\b\d{3}[\s.-]\d{3}[\s.-]\d{4}\b`),
}

// defaultSkills is the curated skill vocabulary matched against CV text. Order
// is significant: matches are returned in vocabulary order.
var defaultSkills = []string{
	// Languages
	"JavaScript", "TypeScript", "Python", "Java", "Go", "Golang", "C++", "C#",
	"Ruby", "PHP", "Swift", "Kotlin", "Rust", "Scala", "SQL",
	// Frameworks
	"React", "Angular", "Vue", "Node.js", "Express", "Django", "Flask",
	"Spring", "Rails", ".NET", "Next.js", "FastAPI",
	// Tools & infrastructure
	"Docker", "Kubernetes", "Git", "Jenkins", "Terraform", "AWS", "Azure",
	"GCP", "Linux", "CI/CD", "GraphQL", "REST",
	// Databases
	"PostgreSQL", "MySQL", "MongoDB", "Redis", "Elasticsearch", "Cassandra",
	"DynamoDB", "SQLite",
	// Methodologies
	"Agile", "Scrum", "Kanban", "TDD", "DevOps", "Microservices",
	"Machine Learning", "Data Science",
}

var experiencePattern = regexp.MustCompile(`^(.+?)\s*\|\s*(.+?)\s*\|\s*(\d{4})\s*[-–]\s*(\d{4}|[Pp]resent|[Cc]urrent)\s*$`)

var educationPattern = regexp.MustCompile(`^(.+?)\s*\|\s*(.+?)\s*\|\s*(\d{4})\s*$`)

// Field is one extracted value with its fixed confidence score.
type Field struct {
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}

// ExperienceEntry is one job stint parsed from a "Role | Company | YYYY - YYYY"
// line plus its bullet achievements.
type ExperienceEntry struct {
	Role         string   `json:"role"`
	Company      string   `json:"company"`
	StartYear    string   `json:"start_year"`
	EndYear      string   `json:"end_year"`
	Achievements []string `json:"achievements"`
}

// EducationEntry is one "Degree | Institution | YYYY" line.
type EducationEntry struct {
	Degree      string `json:"degree"`
	Institution string `json:"institution"`
	Year        string `json:"year"`
}

// CandidateInfo is the combined heuristic extraction result for a CV.
// Absent fields are nil/empty; Confidence is the aggregate tier.
type CandidateInfo struct {
	Name       *Field            `json:"name"`
	Email      *Field            `json:"email"`
	Phone      *Field            `json:"phone"`
	Skills     []string          `json:"skills"`
	Experience []ExperienceEntry `json:"experience"`
	Education  []EducationEntry  `json:"education"`
	Confidence string            `json:"confidence"`
}

// ExtractEmail returns the first email-looking substring, or "" when none.
func ExtractEmail(text string) string {
	return emailPattern.FindString(text)
}

// ExtractPhone tries the phone patterns in order and returns the first match,
// or "" when none matches.
func ExtractPhone(text string) string {
	for _, p := range phonePatterns {
		if m := p.FindString(text); m != "" {
			return m
		}
	}

	return ""
}

// ExtractSkills returns the canonical skill names from the default vocabulary
// (unioned with extraKnown) that appear as case-insensitive whole words in text.
// Each skill appears at most once, in vocabulary order.
func ExtractSkills(text string, extraKnown ...string) []string {
	vocab := make([]string, 0, len(defaultSkills)+len(extraKnown))
	vocab = append(vocab, defaultSkills...)
	vocab = append(vocab, extraKnown...)

	seen := make(map[string]struct{}, len(vocab))

	var matched []string

	for _, skill := range vocab {
		key := strings.ToLower(skill)
		if _, ok := seen[key]; ok {
			continue
		}

		if skillPattern(skill).MatchString(text) {
			matched = append(matched, skill)
			seen[key] = struct{}{}
		}
	}

	return matched
}

// skillPattern builds a whole-word, case-insensitive pattern for a skill term.
// \b does not work for terms that start or end with non-word characters
// (C++, .NET, CI/CD), so boundaries are expressed as "not a word character".
func skillPattern(skill string) *regexp.Regexp {
	quoted := regexp.QuoteMeta(skill)

	left := `\b`
	if !startsWithWordChar(skill) {
		left = `(?:^|[^\w])`
	}

	right := `\b`
	if !endsWithWordChar(skill) {
		right = `(?:$|[^\w])`
	}

	return regexp.MustCompile(`(?i)` + left + quoted + right)
}

func startsWithWordChar(s string) bool {
	if s == "" {
		return false
	}

	return isWordChar(s[0])
}

func endsWithWordChar(s string) bool {
	if s == "" {
		return false
	}

	return isWordChar(s[len(s)-1])
}

func isWordChar(c byte) bool {
	return c == '_' || (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// ExtractExperience scans for "Role | Company | YYYY - (YYYY|Present|Current)"
// lines and collects subsequent bullet lines ("-" or "•" prefixed) as
// achievements until a new section header (short ALL-CAPS line) or end of text.
func ExtractExperience(text string) []ExperienceEntry {
	lines := strings.Split(text, "\n")

	var entries []ExperienceEntry

	for i := 0; i < len(lines); i++ {
		m := experiencePattern.FindStringSubmatch(strings.TrimSpace(lines[i]))
		if m == nil {
			continue
		}

		entry := ExperienceEntry{
			Role:      m[1],
			Company:   m[2],
			StartYear: m[3],
			EndYear:   m[4],
		}

		for j := i + 1; j < len(lines); j++ {
			line := strings.TrimSpace(lines[j])
			if isSectionHeaderLine(line) {
				break
			}

			if strings.HasPrefix(line, "-") || strings.HasPrefix(line, "•") {
				achievement := strings.TrimSpace(strings.TrimLeft(line, "-•"))
				if achievement != "" {
					entry.Achievements = append(entry.Achievements, achievement)
				}

				continue
			}

			if experiencePattern.MatchString(line) {
				break
			}
		}

		entries = append(entries, entry)
	}

	return entries
}

// ExtractEducation scans for "Degree | Institution | YYYY" lines.
// Lines with a year range are experience lines and are skipped.
func ExtractEducation(text string) []EducationEntry {
	var entries []EducationEntry

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if experiencePattern.MatchString(line) {
			continue
		}

		m := educationPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		entries = append(entries, EducationEntry{
			Degree:      m[1],
			Institution: m[2],
			Year:        m[3],
		})
	}

	return entries
}

// isSectionHeaderLine reports whether line looks like the start of a new
// section: short, non-empty, and entirely upper case.
func isSectionHeaderLine(line string) bool {
	if line == "" || len(line) >= maxHeaderLength {
		return false
	}

	return line == strings.ToUpper(line) && line != strings.ToLower(line)
}

// ExtractCandidateInfo composes the individual extractors into one CV result.
// The first non-empty line is treated as the candidate name when it is short
// and contains neither "@" nor "http".
func ExtractCandidateInfo(text string) CandidateInfo {
	info := CandidateInfo{}

	var confidences []float64

	if name := extractName(text); name != "" {
		info.Name = &Field{Value: name, Confidence: confidenceName}
		confidences = append(confidences, confidenceName)
	}

	if email := ExtractEmail(text); email != "" {
		info.Email = &Field{Value: email, Confidence: confidenceEmail}
		confidences = append(confidences, confidenceEmail)
	}

	if phone := ExtractPhone(text); phone != "" {
		info.Phone = &Field{Value: phone, Confidence: confidencePhone}
		confidences = append(confidences, confidencePhone)
	}

	if skills := ExtractSkills(text); len(skills) > 0 {
		info.Skills = skills
		confidences = append(confidences, confidenceSkills)
	}

	if experience := ExtractExperience(text); len(experience) > 0 {
		info.Experience = experience
		confidences = append(confidences, confidenceExperience)
	}

	if education := ExtractEducation(text); len(education) > 0 {
		info.Education = education
		confidences = append(confidences, confidenceEducation)
	}

	info.Confidence = CalculateConfidence(confidences)

	return info
}

const maxNameLength = 50

func extractName(text string) string {
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		if len(line) < maxNameLength && !strings.Contains(line, "@") && !strings.Contains(line, "http") {
			return line
		}

		return ""
	}

	return ""
}

// CalculateConfidence aggregates per-field confidences into a tier:
// high needs at least 4 fields with mean >= 0.75, medium at least 3 with
// mean >= 0.65, anything else (including zero fields) is low.
func CalculateConfidence(fieldConfidences []float64) string {
	if len(fieldConfidences) == 0 {
		return ConfidenceLow
	}

	var sum float64
	for _, c := range fieldConfidences {
		sum += c
	}

	mean := sum / float64(len(fieldConfidences))

	switch {
	case len(fieldConfidences) >= 4 && mean >= 0.75:
		return ConfidenceHigh
	case len(fieldConfidences) >= 3 && mean >= 0.65:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}
