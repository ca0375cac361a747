// Package docparse extracts plain text from uploaded documents (PDF, DOCX,
// DOC, TXT), dispatching on file extension.
package docparse

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"code.sajari.com/docconv"
)

// UnsupportedFormatError is returned for file extensions the parser does not
// recognize. Callers treat it as terminal for the document.
type UnsupportedFormatError struct {
	Extension string
}

// Error implements the error interface.
func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported document format: %q", e.Extension)
}

// Is implements errors.Is matching on the error type.
func (e *UnsupportedFormatError) Is(target error) bool {
	_, ok := target.(*UnsupportedFormatError)

	return ok
}

// Metadata describes how a document was parsed.
type Metadata struct {
	ParseMethod string `json:"parse_method"`
	WordCount   int    `json:"word_count"`
	PageCount   int    `json:"page_count,omitempty"`
}

// Result is the parsed text plus parse metadata.
type Result struct {
	Text     string   `json:"text"`
	Metadata Metadata `json:"metadata"`
}

// Parser extracts text from document files on disk.
type Parser struct{}

// NewParser creates a document parser.
func NewParser() *Parser {
	return &Parser{}
}

// Parse reads the file at path and extracts its text. The extension of
// filename (not path) selects the parse method; unrecognized extensions
// return an UnsupportedFormatError.
func (p *Parser) Parse(path, filename string) (*Result, error) {
	ext := strings.ToLower(filepath.Ext(filename))

	switch ext {
	case ".pdf", ".docx", ".doc":
		res, err := docconv.ConvertPath(path)
		if err != nil {
			return nil, fmt.Errorf("convert %s: %w", ext, err)
		}

		return &Result{
			Text: res.Body,
			Metadata: Metadata{
				ParseMethod: "docconv" + ext,
				WordCount:   countWords(res.Body),
			},
		}, nil

	case ".txt":
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read text file: %w", err)
		}

		text := string(content)

		return &Result{
			Text: text,
			Metadata: Metadata{
				ParseMethod: "plaintext",
				WordCount:   countWords(text),
			},
		}, nil

	default:
		return nil, &UnsupportedFormatError{Extension: ext}
	}
}

func countWords(text string) int {
	return len(strings.Fields(text))
}
