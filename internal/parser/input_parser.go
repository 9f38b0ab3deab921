// Package parser provides input parsing and type identification for uploads.
package parser

import (
	"strings"

	"pdf-translator/internal/logger"
	"pdf-translator/internal/types"
)

// InputType 输入类型枚举
type InputType string

const (
	// InputTypeLocalPDF is a path to a PDF file on disk
	InputTypeLocalPDF InputType = "local_pdf"
	// InputTypeURL is an http(s) URL to fetch a PDF from
	InputTypeURL InputType = "url"
)

// ParseInput analyzes the input string and determines its type.
// It returns the InputType and an error if the input is invalid.
//
// Input type rules:
// - Starts with http:// or https:// → URL type
// - Ends with .pdf (local path) → LocalPDF type
// - Otherwise → error (invalid input)
func ParseInput(input string) (InputType, error) {
	logger.Debug("parsing input", logger.String("input", input))

	input = strings.TrimSpace(input)
	if input == "" {
		logger.Warn("parse input failed: empty input")
		return "", types.NewAppError(types.ErrInvalidInput, "input cannot be empty", nil)
	}

	if isURL(input) {
		logger.Info("input identified as URL", logger.String("input", input))
		return InputTypeURL, nil
	}

	if isLocalPDF(input) {
		logger.Info("input identified as local PDF file", logger.String("input", input))
		return InputTypeLocalPDF, nil
	}

	logger.Warn("invalid input format", logger.String("input", input))
	return "", types.NewAppError(types.ErrInvalidInput, "only PDF files are supported", nil)
}

// isURL checks if the input is an http(s) URL.
func isURL(input string) bool {
	lowerInput := strings.ToLower(input)
	return strings.HasPrefix(lowerInput, "http://") || strings.HasPrefix(lowerInput, "https://")
}

// isLocalPDF checks if the input is a local PDF file path.
// A valid local PDF path ends with ".pdf" (case-insensitive).
func isLocalPDF(input string) bool {
	return strings.HasSuffix(strings.ToLower(input), ".pdf")
}
