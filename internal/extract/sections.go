package extract

import (
	"strings"
)

// maxHeaderLength caps how long a line can be and still count as a section
// header; real headers are short ("WORK EXPERIENCE"), body text is not.
const maxHeaderLength = 50

// CVSectionSynonyms maps canonical CV section names to their header synonyms.
// Matching is exact after trimming, uppercasing, and dropping a trailing colon.
var CVSectionSynonyms = map[string][]string{
	"summary": {
		"SUMMARY", "PROFILE", "OBJECTIVE", "ABOUT", "ABOUT ME",
		"PROFESSIONAL SUMMARY", "CAREER SUMMARY",
	},
	"skills": {
		"SKILLS", "TECHNICAL SKILLS", "TECHNOLOGIES", "CORE COMPETENCIES",
		"KEY SKILLS",
	},
	"experience": {
		"EXPERIENCE", "WORK EXPERIENCE", "EMPLOYMENT", "EMPLOYMENT HISTORY",
		"PROFESSIONAL EXPERIENCE", "WORK HISTORY",
	},
	"education": {
		"EDUCATION", "ACADEMIC BACKGROUND", "QUALIFICATIONS", "ACADEMICS",
	},
}

// JobSectionSynonyms maps canonical job-description section names to their
// header synonyms.
var JobSectionSynonyms = map[string][]string{
	"summary": {
		"SUMMARY", "ABOUT THE ROLE", "OVERVIEW", "THE ROLE", "ABOUT US",
	},
	"responsibilities": {
		"RESPONSIBILITIES", "KEY RESPONSIBILITIES", "DUTIES",
		"WHAT YOU WILL DO", "YOUR ROLE",
	},
	"requirements": {
		"REQUIREMENTS", "QUALIFICATIONS", "MUST HAVE", "SKILLS REQUIRED",
		"WHAT WE ARE LOOKING FOR",
	},
}

// allKnownHeaders is the cross-document header vocabulary. Any of these ends
// the current section, not just the synonyms of the section being scanned, so
// that content never bleeds across a header the scanner was not looking for.
var allKnownHeaders = buildHeaderSet(CVSectionSynonyms, JobSectionSynonyms)

func buildHeaderSet(synonymSets ...map[string][]string) map[string]struct{} {
	set := make(map[string]struct{})

	for _, synonyms := range synonymSets {
		for _, headers := range synonyms {
			for _, h := range headers {
				set[h] = struct{}{}
			}
		}
	}

	return set
}

// normalizeHeader trims, uppercases, and drops one trailing colon.
func normalizeHeader(line string) string {
	h := strings.ToUpper(strings.TrimSpace(line))

	return strings.TrimSuffix(h, ":")
}

// isKnownHeader reports whether the line exactly matches any header from the
// full cross-document vocabulary.
func isKnownHeader(line string) bool {
	if len(strings.TrimSpace(line)) >= maxHeaderLength {
		return false
	}

	_, ok := allKnownHeaders[normalizeHeader(line)]

	return ok
}

// DetectSections returns, for each canonical section in synonymSets whose
// header appears in text, the content between that header and the next known
// header (or end of text). Sections whose header is absent are simply missing
// from the result.
func DetectSections(text string, synonymSets map[string][]string) map[string]string {
	lines := strings.Split(text, "\n")
	sections := make(map[string]string)

	for name, headers := range synonymSets {
		content, ok := sectionContent(lines, headers)
		if ok {
			sections[name] = content
		}
	}

	return sections
}

func sectionContent(lines []string, headers []string) (string, bool) {
	headerSet := make(map[string]struct{}, len(headers))
	for _, h := range headers {
		headerSet[h] = struct{}{}
	}

	for i, line := range lines {
		if len(strings.TrimSpace(line)) >= maxHeaderLength {
			continue
		}

		if _, ok := headerSet[normalizeHeader(line)]; !ok {
			continue
		}

		var body []string

		for j := i + 1; j < len(lines); j++ {
			if isKnownHeader(lines[j]) {
				break
			}

			body = append(body, lines[j])
		}

		return strings.TrimSpace(strings.Join(body, "\n")), true
	}

	return "", false
}

// maxSkillTokenLength drops pathological tokens that are clearly not a single
// skill (e.g. a whole sentence that happened to contain a comma-free run).
const maxSkillTokenLength = 50

// SplitSkillsSection splits a skills-section body into discrete skill tokens on
// commas, semicolons, bullets, middle dots, and newlines, discarding empty and
// over-long tokens.
func SplitSkillsSection(content string) []string {
	split := func(r rune) bool {
		return r == ',' || r == ';' || r == '•' || r == '·' || r == '\n'
	}

	var skills []string

	for _, token := range strings.FieldsFunc(content, split) {
		token = strings.TrimSpace(token)
		if token == "" || len(token) > maxSkillTokenLength {
			continue
		}

		skills = append(skills, token)
	}

	return skills
}
