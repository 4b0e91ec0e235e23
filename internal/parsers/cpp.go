package parsers

import (
	"io/fs"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/YickelFuboo/moling-coding-service/internal/ignore"
	"github.com/YickelFuboo/moling-coding-service/internal/types"
)

var (
	cppIncludePattern        = regexp.MustCompile(`(?m)^[ \t]*#[ \t]*include[ \t]*[<"]([^>"]+)[>"]`)
	cppFunctionHeaderPattern = regexp.MustCompile(`(?m)^[\w \t*&:<>,~]*?\b(\w+)[ \t]*\([^;{)]*\)[ \t]*(?:const)?[ \t]*(?:noexcept)?[ \t]*(?:override)?[ \t]*(?:final)?[ \t\r\n]*\{`)
	cppIdentifierCallPattern = regexp.MustCompile(`\b(\w+)[ \t]*\(`)
	cppMemberCallPattern     = regexp.MustCompile(`\b\w+(?:\.|->|::)(\w+)[ \t]*\(`)
	cppExcludedCallNames     = []string{"if", "for", "while", "switch", "catch", "sizeof", "return", "new", "delete", "defined"}
	cppDestructorPrefix      = "~"
)

// CppParser extracts C and C++ includes, function definitions, and calls.
// Only definitions with bodies are extracted; prototypes end in a semicolon
// and never reach the brace matcher.
type CppParser struct {
	filter *ignore.Filter
}

// NewCppParser constructs a CppParser that bounds its project searches with
// the provided ignore filter.
func NewCppParser(filter *ignore.Filter) *CppParser {
	return &CppParser{filter: filter}
}

// ExtractImports returns include targets in source order, angle-bracket and
// quoted forms alike.
func (parser *CppParser) ExtractImports(fileContent string) []string {
	var includeTargets []string
	for _, includeMatch := range cppIncludePattern.FindAllStringSubmatch(fileContent, -1) {
		includeTargets = append(includeTargets, includeMatch[1])
	}
	return includeTargets
}

// ExtractFunctions returns function and method definitions in source order.
// Destructors and control statements are excluded.
func (parser *CppParser) ExtractFunctions(fileContent string) []types.Function {
	var extractedFunctions []types.Function
	for _, headerIndices := range cppFunctionHeaderPattern.FindAllStringSubmatchIndex(fileContent, -1) {
		functionName := fileContent[headerIndices[2]:headerIndices[3]]
		if isExcludedName(functionName, cppExcludedCallNames) {
			continue
		}
		headerText := fileContent[headerIndices[0]:headerIndices[2]]
		if strings.HasSuffix(strings.TrimSpace(headerText), cppDestructorPrefix) {
			continue
		}
		bodyOpenIndex := headerIndices[1] - 1
		functionBody, _ := extractBraceBody(fileContent, bodyOpenIndex)
		extractedFunctions = append(extractedFunctions, types.Function{
			Name:      functionName,
			Body:      functionBody,
			StartLine: lineNumberAt(fileContent, headerIndices[0]),
		})
	}
	return extractedFunctions
}

// ExtractFunctionCalls returns called names in the body, bare calls first
// followed by member and scoped calls.
func (parser *CppParser) ExtractFunctionCalls(functionBody string) []string {
	var calledNames []string
	for _, callMatch := range cppIdentifierCallPattern.FindAllStringSubmatch(functionBody, -1) {
		if !isExcludedName(callMatch[1], cppExcludedCallNames) {
			calledNames = append(calledNames, callMatch[1])
		}
	}
	for _, memberMatch := range cppMemberCallPattern.FindAllStringSubmatch(functionBody, -1) {
		if !isExcludedName(memberMatch[1], cppExcludedCallNames) {
			calledNames = append(calledNames, memberMatch[1])
		}
	}
	return calledNames
}

// ResolveImportPath resolves quoted includes against the including file's
// directory first and then searches the project by basename. Angle-bracket
// system headers rarely exist in the tree and fall through to the external
// classification.
func (parser *CppParser) ResolveImportPath(importSpecifier string, currentFilePath string, projectRoot string) string {
	localCandidate := filepath.Join(filepath.Dir(currentFilePath), filepath.FromSlash(importSpecifier))
	if fileExists(localCandidate) {
		return localCandidate
	}
	headerName := filepath.Base(filepath.FromSlash(importSpecifier))
	if headerName == "" || headerName == "." {
		return ""
	}
	return firstProjectFile(projectRoot, parser.filter, func(filePath string, directoryEntry fs.DirEntry) bool {
		return directoryEntry.Name() == headerName
	})
}

// FunctionLineNumber returns the 1-based line of the named definition.
func (parser *CppParser) FunctionLineNumber(fileContent string, functionName string) int {
	linePattern := regexp.MustCompile(`\b` + regexp.QuoteMeta(functionName) + `[ \t]*\(`)
	for lineIndex, currentLine := range strings.Split(fileContent, "\n") {
		trimmedLine := strings.TrimSpace(currentLine)
		if strings.HasPrefix(trimmedLine, "//") || strings.HasPrefix(trimmedLine, "#") {
			continue
		}
		if linePattern.MatchString(currentLine) && !strings.Contains(currentLine, ";") {
			return lineIndex + 1
		}
	}
	return 0
}
