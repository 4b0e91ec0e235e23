//go:build !cgo

package parsers

import "github.com/YickelFuboo/moling-coding-service/internal/ignore"

// newJavaScriptSyntaxParser returns nil when cgo is unavailable so the
// registry falls back to the pattern-matching JavaScript variant on platforms
// that cannot build the tree-sitter bindings.
func newJavaScriptSyntaxParser(filter *ignore.Filter) LanguageParser {
	return nil
}
