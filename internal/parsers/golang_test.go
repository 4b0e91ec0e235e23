package parsers_test

import (
	"path/filepath"
	"testing"

	"github.com/YickelFuboo/moling-coding-service/internal/parsers"
)

const goSampleSource = `package sample

import (
	"fmt"

	"example.com/project/internal/store"
)

import "strings"

func Process(input string) error {
	trimmed := strings.TrimSpace(input)
	if len(trimmed) == 0 {
		return fmt.Errorf("empty input: %q", "{")
	}
	record := store.Lookup(trimmed)
	return persist(record)
}

func persist(record any) error {
	return nil
}

func (s *Server) Start() error {
	go s.loop()
	return s.persistAll()
}
`

// TestGoExtractImports verifies import extraction from blocks and single
// statements.
func TestGoExtractImports(testingInstance *testing.T) {
	parser := parsers.NewGoParser(nil)
	actual := parser.ExtractImports(goSampleSource)
	expected := []string{"fmt", "example.com/project/internal/store", "strings"}
	if len(actual) != len(expected) {
		testingInstance.Fatalf("expected %d imports, got %d: %v", len(expected), len(actual), actual)
	}
	for position, specifier := range expected {
		if actual[position] != specifier {
			testingInstance.Errorf("expected import %s at position %d, got %s", specifier, position, actual[position])
		}
	}
}

// TestGoExtractFunctions verifies function and method extraction with
// balanced-brace bodies that ignore braces inside string literals.
func TestGoExtractFunctions(testingInstance *testing.T) {
	parser := parsers.NewGoParser(nil)
	extractedFunctions := parser.ExtractFunctions(goSampleSource)
	expectedNames := []string{"Process", "persist", "Start"}
	if len(extractedFunctions) != len(expectedNames) {
		testingInstance.Fatalf("expected %d functions, got %d", len(expectedNames), len(extractedFunctions))
	}
	for position, expectedName := range expectedNames {
		if extractedFunctions[position].Name != expectedName {
			testingInstance.Errorf("expected function %s at position %d, got %s", expectedName, position, extractedFunctions[position].Name)
		}
	}
	processCalls := parser.ExtractFunctionCalls(extractedFunctions[0].Body)
	if !containsName(processCalls, "persist") {
		testingInstance.Errorf("expected Process body to call persist, got %v", processCalls)
	}
	if !containsName(processCalls, "Lookup") {
		testingInstance.Errorf("expected Process body to call Lookup, got %v", processCalls)
	}
	if containsName(processCalls, "len") || containsName(processCalls, "if") {
		testingInstance.Errorf("expected builtins and keywords to be excluded, got %v", processCalls)
	}
}

// TestGoModuleImportResolution verifies go.mod based resolution of
// module-local import paths.
func TestGoModuleImportResolution(testingInstance *testing.T) {
	projectRoot := testingInstance.TempDir()
	writeParserTestFile(testingInstance, filepath.Join(projectRoot, "go.mod"), "module example.com/project\n\ngo 1.22\n")
	storeFile := filepath.Join(projectRoot, "internal", "store", "store.go")
	writeParserTestFile(testingInstance, storeFile, "package store\n\nfunc Lookup(key string) any { return nil }\n")
	currentFile := filepath.Join(projectRoot, "main.go")
	writeParserTestFile(testingInstance, currentFile, goSampleSource)

	parser := parsers.NewGoParser(nil)
	resolvedPath := parser.ResolveImportPath("example.com/project/internal/store", currentFile, projectRoot)
	if resolvedPath != storeFile {
		testingInstance.Errorf("expected %s, got %s", storeFile, resolvedPath)
	}
}

// TestGoStandardLibraryStaysExternal verifies that dotless first segments are
// treated as standard library imports.
func TestGoStandardLibraryStaysExternal(testingInstance *testing.T) {
	projectRoot := testingInstance.TempDir()
	currentFile := filepath.Join(projectRoot, "main.go")
	writeParserTestFile(testingInstance, currentFile, goSampleSource)

	parser := parsers.NewGoParser(nil)
	if resolvedPath := parser.ResolveImportPath("fmt", currentFile, projectRoot); resolvedPath != "" {
		testingInstance.Errorf("expected fmt to stay unresolved, got %s", resolvedPath)
	}
	if resolvedPath := parser.ResolveImportPath("net/http", currentFile, projectRoot); resolvedPath != "" {
		testingInstance.Errorf("expected net/http to stay unresolved, got %s", resolvedPath)
	}
}

// TestGoFunctionLineNumber verifies declaration line lookup for functions and
// methods.
func TestGoFunctionLineNumber(testingInstance *testing.T) {
	parser := parsers.NewGoParser(nil)
	if lineNumber := parser.FunctionLineNumber(goSampleSource, "persist"); lineNumber != 20 {
		testingInstance.Errorf("expected persist at line 20, got %d", lineNumber)
	}
	if lineNumber := parser.FunctionLineNumber(goSampleSource, "Start"); lineNumber != 24 {
		testingInstance.Errorf("expected Start at line 24, got %d", lineNumber)
	}
}
