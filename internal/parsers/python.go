package parsers

import (
	"io/fs"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/YickelFuboo/moling-coding-service/internal/ignore"
	"github.com/YickelFuboo/moling-coding-service/internal/types"
)

const (
	pythonFileExtension     = ".py"
	pythonPackageMarkerFile = "__init__.py"
)

var (
	pythonImportLinePattern         = regexp.MustCompile(`^[ \t]*import[ \t]+(.+)$`)
	pythonFromImportLinePattern     = regexp.MustCompile(`^[ \t]*from[ \t]+(\S+)[ \t]+import[ \t]+(.+)$`)
	pythonFunctionHeaderPattern     = regexp.MustCompile(`^([ \t]*)(?:async[ \t]+)?def[ \t]+(\w+)[ \t]*\(`)
	pythonIdentifierCallPattern     = regexp.MustCompile(`\b(\w+)[ \t]*\(`)
	pythonMemberCallPattern         = regexp.MustCompile(`\b\w+\.(\w+)[ \t]*\(`)
	pythonExcludedCallNames         = []string{"print", "len", "int", "str", "list", "dict", "set", "tuple", "if", "while", "for", "def"}
	pythonLineContinuationCharacter = "\\"
)

// PythonParser extracts Python imports, definitions, and calls. Function
// bodies are delimited by indentation: a body runs until the first non-blank
// line indented at or below the definition line.
type PythonParser struct {
	filter *ignore.Filter
}

// NewPythonParser constructs a PythonParser that bounds its project searches
// with the provided ignore filter.
func NewPythonParser(filter *ignore.Filter) *PythonParser {
	return &PythonParser{filter: filter}
}

// ExtractImports returns module specifiers from "import" and "from ... import"
// statements in source order. "from . import name" statements yield one
// dotted specifier per imported name so the resolver can locate the siblings.
func (parser *PythonParser) ExtractImports(fileContent string) []string {
	var importSpecifiers []string
	for _, currentLine := range strings.Split(fileContent, "\n") {
		if fromMatch := pythonFromImportLinePattern.FindStringSubmatch(currentLine); fromMatch != nil {
			moduleSpecifier := fromMatch[1]
			if strings.Trim(moduleSpecifier, ".") == "" {
				for _, importedName := range splitPythonImportList(fromMatch[2]) {
					importSpecifiers = append(importSpecifiers, moduleSpecifier+importedName)
				}
				continue
			}
			importSpecifiers = append(importSpecifiers, moduleSpecifier)
			continue
		}
		if importMatch := pythonImportLinePattern.FindStringSubmatch(currentLine); importMatch != nil {
			importSpecifiers = append(importSpecifiers, splitPythonImportList(importMatch[1])...)
		}
	}
	return importSpecifiers
}

// splitPythonImportList splits a comma-separated import clause and strips
// aliases, parentheses, and continuation characters from each entry.
func splitPythonImportList(importClause string) []string {
	cleanedClause := strings.NewReplacer("(", "", ")", "", pythonLineContinuationCharacter, "").Replace(importClause)
	var importedNames []string
	for _, rawEntry := range strings.Split(cleanedClause, ",") {
		entryFields := strings.Fields(rawEntry)
		if len(entryFields) == 0 {
			continue
		}
		importedNames = append(importedNames, entryFields[0])
	}
	return importedNames
}

// ExtractFunctions returns every function and method definition in source
// order, including nested definitions. The body excludes the signature line so
// a function's own name does not register as a call to itself.
func (parser *PythonParser) ExtractFunctions(fileContent string) []types.Function {
	sourceLines := strings.Split(fileContent, "\n")
	var extractedFunctions []types.Function
	for lineIndex, currentLine := range sourceLines {
		headerMatch := pythonFunctionHeaderPattern.FindStringSubmatch(currentLine)
		if headerMatch == nil {
			continue
		}
		definitionIndent := len(headerMatch[1])
		var bodyLines []string
		for bodyIndex := lineIndex + 1; bodyIndex < len(sourceLines); bodyIndex++ {
			bodyLine := sourceLines[bodyIndex]
			if strings.TrimSpace(bodyLine) != "" && lineIndentation(bodyLine) <= definitionIndent {
				break
			}
			bodyLines = append(bodyLines, bodyLine)
		}
		extractedFunctions = append(extractedFunctions, types.Function{
			Name:      headerMatch[2],
			Body:      strings.Join(bodyLines, "\n"),
			StartLine: lineIndex + 1,
		})
	}
	return extractedFunctions
}

// lineIndentation counts leading spaces and tabs, a tab weighing one column.
func lineIndentation(line string) int {
	return len(line) - len(strings.TrimLeft(line, " \t"))
}

// ExtractFunctionCalls returns called names in the body, bare calls first
// followed by attribute calls, each pass in source order.
func (parser *PythonParser) ExtractFunctionCalls(functionBody string) []string {
	var calledNames []string
	for _, callMatch := range pythonIdentifierCallPattern.FindAllStringSubmatch(functionBody, -1) {
		if !isExcludedName(callMatch[1], pythonExcludedCallNames) {
			calledNames = append(calledNames, callMatch[1])
		}
	}
	for _, memberMatch := range pythonMemberCallPattern.FindAllStringSubmatch(functionBody, -1) {
		if !isExcludedName(memberMatch[1], pythonExcludedCallNames) {
			calledNames = append(calledNames, memberMatch[1])
		}
	}
	return calledNames
}

// ResolveImportPath resolves relative imports against the importing file's
// directory and absolute imports by searching the project for a matching
// module file or package directory.
func (parser *PythonParser) ResolveImportPath(importSpecifier string, currentFilePath string, projectRoot string) string {
	if strings.HasPrefix(importSpecifier, ".") {
		return parser.resolveRelativeImport(importSpecifier, currentFilePath)
	}
	return parser.resolveAbsoluteImport(importSpecifier, projectRoot)
}

// resolveRelativeImport climbs one directory per leading dot beyond the first
// and then follows the remaining segments, accepting either module.py or a
// package directory with an __init__.py marker at the final segment.
func (parser *PythonParser) resolveRelativeImport(importSpecifier string, currentFilePath string) string {
	dotCount := len(importSpecifier) - len(strings.TrimLeft(importSpecifier, "."))
	remainder := importSpecifier[dotCount:]
	if remainder == "" {
		return ""
	}
	baseDirectory := filepath.Dir(currentFilePath)
	for climb := 1; climb < dotCount; climb++ {
		baseDirectory = filepath.Dir(baseDirectory)
	}
	segments := strings.Split(remainder, ".")
	for _, intermediateSegment := range segments[:len(segments)-1] {
		baseDirectory = filepath.Join(baseDirectory, intermediateSegment)
	}
	finalSegment := segments[len(segments)-1]
	moduleCandidate := filepath.Join(baseDirectory, finalSegment+pythonFileExtension)
	if fileExists(moduleCandidate) {
		return moduleCandidate
	}
	packageCandidate := filepath.Join(baseDirectory, finalSegment, pythonPackageMarkerFile)
	if fileExists(packageCandidate) {
		return packageCandidate
	}
	return ""
}

// resolveAbsoluteImport searches the project for moduleName.py first and then
// for a package directory named moduleName, returning its __init__.py. Only
// the first segment of a dotted specifier drives the search.
func (parser *PythonParser) resolveAbsoluteImport(importSpecifier string, projectRoot string) string {
	moduleName := strings.SplitN(importSpecifier, ".", 2)[0]
	if moduleName == "" {
		return ""
	}
	moduleFile := firstProjectFile(projectRoot, parser.filter, func(filePath string, directoryEntry fs.DirEntry) bool {
		return directoryEntry.Name() == moduleName+pythonFileExtension
	})
	if moduleFile != "" {
		return moduleFile
	}
	return firstProjectFile(projectRoot, parser.filter, func(filePath string, directoryEntry fs.DirEntry) bool {
		return directoryEntry.Name() == pythonPackageMarkerFile && filepath.Base(filepath.Dir(filePath)) == moduleName
	})
}

// FunctionLineNumber returns the 1-based line of the named definition.
func (parser *PythonParser) FunctionLineNumber(fileContent string, functionName string) int {
	for lineIndex, currentLine := range strings.Split(fileContent, "\n") {
		headerMatch := pythonFunctionHeaderPattern.FindStringSubmatch(currentLine)
		if headerMatch != nil && headerMatch[2] == functionName {
			return lineIndex + 1
		}
	}
	return 0
}

// isExcludedName reports whether the identifier is in the language's call
// blacklist.
func isExcludedName(identifier string, excludedNames []string) bool {
	for _, excludedName := range excludedNames {
		if identifier == excludedName {
			return true
		}
	}
	return false
}
