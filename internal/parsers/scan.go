package parsers

import "strings"

// Shared text scanning helpers. Brace matching is character based and skips
// string literals and comments, so a "}" inside a format string does not end a
// function body. Regular expressions with hard-coded nesting depth cannot do
// this reliably.

// extractBraceBody returns the text between the opening brace at openIndex and
// its balanced closing brace, both exclusive. When the braces never balance the
// remainder of the content is returned with ok=false.
func extractBraceBody(content string, openIndex int) (string, bool) {
	if openIndex < 0 || openIndex >= len(content) || content[openIndex] != '{' {
		return "", false
	}
	depth := 0
	var state scanState
	for index := openIndex; index < len(content); index++ {
		character := content[index]
		if state.consume(content, index) {
			continue
		}
		switch character {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return content[openIndex+1 : index], true
			}
		}
	}
	return content[openIndex+1:], false
}

// findFunctionBodyOpen scans forward from fromIndex for the "{" that opens a
// function body, skipping over parenthesized parameter and result lists. A ";"
// outside parentheses means the signature is a declaration without a body and
// -1 is returned.
func findFunctionBodyOpen(content string, fromIndex int) int {
	parenthesisDepth := 0
	var state scanState
	for index := fromIndex; index < len(content); index++ {
		if state.consume(content, index) {
			continue
		}
		switch content[index] {
		case '(':
			parenthesisDepth++
		case ')':
			parenthesisDepth--
		case '{':
			if parenthesisDepth <= 0 {
				return index
			}
		case ';':
			if parenthesisDepth <= 0 {
				return -1
			}
		}
	}
	return -1
}

// headerHasReturnType reports whether the declaration text before a method
// name contains a token that is not an access or binding modifier. A header
// made of modifiers alone belongs to a constructor, which has no return type.
func headerHasReturnType(headerText string, modifierKeywords []string) bool {
	for _, headerField := range strings.Fields(headerText) {
		if !isExcludedName(headerField, modifierKeywords) {
			return true
		}
	}
	return false
}

// lineNumberAt returns the 1-based line number of the byte at index.
func lineNumberAt(content string, index int) int {
	if index > len(content) {
		index = len(content)
	}
	lineNumber := 1
	for position := 0; position < index; position++ {
		if content[position] == '\n' {
			lineNumber++
		}
	}
	return lineNumber
}

// scanState tracks whether the scanner is inside a string literal or comment.
type scanState struct {
	inLineComment  bool
	inBlockComment bool
	quoteCharacter byte
	escapeNext     bool
}

// consume advances the state for the byte at index and reports whether that
// byte belongs to a literal or comment and must be skipped by the caller.
func (state *scanState) consume(content string, index int) bool {
	character := content[index]
	switch {
	case state.inLineComment:
		if character == '\n' {
			state.inLineComment = false
		}
		return true
	case state.inBlockComment:
		if character == '/' && index > 0 && content[index-1] == '*' {
			state.inBlockComment = false
		}
		return true
	case state.quoteCharacter != 0:
		if state.escapeNext {
			state.escapeNext = false
			return true
		}
		if character == '\\' && state.quoteCharacter != '`' {
			state.escapeNext = true
			return true
		}
		if character == state.quoteCharacter {
			state.quoteCharacter = 0
		}
		return true
	case character == '"' || character == '\'' || character == '`':
		state.quoteCharacter = character
		return true
	case character == '/' && index+1 < len(content) && content[index+1] == '/':
		state.inLineComment = true
		return true
	case character == '/' && index+1 < len(content) && content[index+1] == '*':
		state.inBlockComment = true
		return true
	}
	return false
}
