package service

import (
	"fmt"
	"strings"
)

// Prompt templates are selected by document type and stamped with the prompt
// version from config; a version bump invalidates extraction freshness and
// explanation cache keys downstream.

const cvExtractionSystemPrompt = `You are a recruiting assistant that extracts structured data from CVs. ` +
	`Respond with a single JSON object and nothing else. Use null for fields you cannot find. ` +
	`Never invent values that are not present in the text.`

const cvExtractionPromptTemplate = `Extract the following fields from the CV below and return them as JSON:
{
  "name": string|null,
  "email": string|null,
  "phone": string|null,
  "summary": string|null,
  "skills": [string],
  "experience": [{"role": string, "company": string, "period": string, "achievements": [string]}],
  "education": [{"degree": string, "institution": string, "year": string}]
}

CV:
%s`

const jobExtractionSystemPrompt = `You are a recruiting assistant that extracts structured data from job descriptions. ` +
	`Respond with a single JSON object and nothing else. Use null for fields you cannot find. ` +
	`Never invent values that are not present in the text.`

const jobExtractionPromptTemplate = `Extract the following fields from the job description below and return them as JSON:
{
  "summary": string|null,
  "requirements": [string],
  "responsibilities": [string]
}

Job description:
%s`

func renderCVExtractionPrompt(rawText string) string {
	return fmt.Sprintf(cvExtractionPromptTemplate, rawText)
}

func renderJobExtractionPrompt(rawText string) string {
	return fmt.Sprintf(jobExtractionPromptTemplate, rawText)
}

// stripMarkdownFences removes an optional ```json ... ``` (or bare ```) wrapper
// so fenced model output still JSON-parses.
func stripMarkdownFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	trimmed = strings.TrimPrefix(trimmed, "```")
	if newline := strings.IndexByte(trimmed, '\n'); newline >= 0 {
		// Drop the language tag line (e.g. "json").
		firstLine := strings.TrimSpace(trimmed[:newline])
		if firstLine == "" || !strings.ContainsAny(firstLine, "{[") {
			trimmed = trimmed[newline+1:]
		}
	}

	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")

	return strings.TrimSpace(trimmed)
}
