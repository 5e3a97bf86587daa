package chat

import (
	"errors"
	"regexp"
	"strings"
)

var (
	markdownFenceRe = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)\\s*```")
	trailingCommaRe = regexp.MustCompile(`,\s*([\]}])`)
)

// errNoJSONObject is returned when a model response contains no brace-
// delimited object at all.
var errNoJSONObject = errors.New("no JSON object found in response")

// extractJSONObject pulls the JSON object out of a model response that may
// wrap it in a markdown fence or surrounding prose. The result is trimmed
// to the outermost braces and has trailing commas repaired; it is not
// guaranteed to parse.
func extractJSONObject(response string) (string, error) {
	candidate := response
	if match := markdownFenceRe.FindStringSubmatch(response); match != nil {
		candidate = match[1]
	}

	start := strings.Index(candidate, "{")
	end := strings.LastIndex(candidate, "}")
	if start == -1 || end == -1 || end < start {
		return "", errNoJSONObject
	}

	return sanitizeJSONString(candidate[start : end+1]), nil
}

// sanitizeJSONString repairs trailing commas before closing brackets, the
// most common malformation in model-generated JSON.
func sanitizeJSONString(s string) string {
	return trailingCommaRe.ReplaceAllString(s, "$1")
}

// collapseDoubledValue undoes the exact split-in-half duplication some
// models produce ("LancieLancie" for "Lancie"). Only a perfect doubling is
// collapsed; legitimate repetitive names pass through untouched.
func collapseDoubledValue(value string) string {
	if len(value) == 0 || len(value)%2 != 0 {
		return value
	}
	half := len(value) / 2
	if value[:half] == value[half:] {
		return value[:half]
	}
	return value
}
