// Package parsers contains lightweight syntactic extractors for the supported
// languages and the extension-based registry that dispatches between them.
//
// The extractors approximate real parsing with pattern matching: they find
// imports, top-level functions and methods, and call sites without a compiler
// front-end. Malformed input never produces an error, only fewer results. A
// variant backed by a real grammar can replace any entry behind the same
// interface without touching the orchestrator.
package parsers

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/YickelFuboo/moling-coding-service/internal/ignore"
	"github.com/YickelFuboo/moling-coding-service/internal/types"
)

// ErrUnsupportedLanguage indicates that no parser variant is registered for a
// file's extension. Callers treat it as "cannot expand further", never as a
// fatal error.
var ErrUnsupportedLanguage = errors.New("parsers: unsupported language")

const errorUnsupportedExtensionFormat = "%w: no parser registered for %q"

// LanguageParser is the capability set every language variant implements.
// All operations are pure functions of the provided text except
// ResolveImportPath, which performs ignore-filtered filesystem lookups.
type LanguageParser interface {
	// ExtractImports returns the raw import specifiers in source order.
	// Aliases are stripped; wildcard imports keep the base module name.
	ExtractImports(fileContent string) []string

	// ExtractFunctions returns the top-level functions and methods found in
	// the file, in source order. Control-flow keywords with call-like syntax
	// and constructors are excluded.
	ExtractFunctions(fileContent string) []types.Function

	// ExtractFunctionCalls returns the called identifiers in a function body,
	// in source order. Member calls yield the method name; per-language
	// keyword and builtin blacklists suppress noise.
	ExtractFunctionCalls(functionBody string) []string

	// ResolveImportPath maps an import specifier to a file path, or "" when
	// the specifier points outside the project or cannot be located.
	ResolveImportPath(importSpecifier string, currentFilePath string, projectRoot string) string

	// FunctionLineNumber returns the 1-based declaration line of the named
	// function, or 0 when the declaration cannot be found.
	FunctionLineNumber(fileContent string, functionName string) int
}

// Registry dispatches file paths to language parser variants by extension.
type Registry struct {
	parsersByExtension map[string]LanguageParser
}

// NewRegistry builds a Registry covering every supported language. The shared
// ignore filter bounds the recursive searches the variants perform during
// import resolution. When the tree-sitter JavaScript variant is available it
// is preferred over the regex variant for JavaScript and TypeScript files.
func NewRegistry(filter *ignore.Filter) *Registry {
	registry := &Registry{parsersByExtension: map[string]LanguageParser{}}

	registry.register(NewPythonParser(filter), ".py")
	registry.register(NewGoParser(filter), ".go")
	registry.register(NewJavaParser(filter), ".java")
	registry.register(NewCSharpParser(filter), ".cs")
	registry.register(NewCppParser(filter), ".c", ".cc", ".cpp", ".cxx", ".h", ".hpp")

	javaScriptParser := LanguageParser(NewJavaScriptParser(filter))
	if syntaxParser := newJavaScriptSyntaxParser(filter); syntaxParser != nil {
		javaScriptParser = syntaxParser
	}
	registry.register(javaScriptParser, ".js", ".jsx", ".ts", ".tsx", ".mjs")

	return registry
}

func (registry *Registry) register(parser LanguageParser, extensions ...string) {
	for _, extension := range extensions {
		registry.parsersByExtension[extension] = parser
	}
}

// Get returns the parser variant for the file's extension or
// ErrUnsupportedLanguage when none is registered.
func (registry *Registry) Get(filePath string) (LanguageParser, error) {
	extension := strings.ToLower(filepath.Ext(filePath))
	parser, found := registry.parsersByExtension[extension]
	if !found {
		return nil, fmt.Errorf(errorUnsupportedExtensionFormat, ErrUnsupportedLanguage, extension)
	}
	return parser, nil
}

// Supports reports whether a parser variant is registered for the file.
func (registry *Registry) Supports(filePath string) bool {
	_, found := registry.parsersByExtension[strings.ToLower(filepath.Ext(filePath))]
	return found
}
