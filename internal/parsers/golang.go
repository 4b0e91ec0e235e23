package parsers

import (
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/mod/modfile"

	"github.com/YickelFuboo/moling-coding-service/internal/ignore"
	"github.com/YickelFuboo/moling-coding-service/internal/types"
	"github.com/YickelFuboo/moling-coding-service/internal/utils"
)

const (
	goFileExtension     = ".go"
	goTestFileSuffix    = "_test.go"
	goModuleFileName    = "go.mod"
	goRelativeCurrent   = "./"
	goRelativeParent    = "../"
	goImportPathDivider = "/"
)

var (
	goSingleImportPattern    = regexp.MustCompile(`(?m)^[ \t]*import[ \t]+(?:[\w.]+[ \t]+)?"([^"]+)"`)
	goImportBlockPattern     = regexp.MustCompile(`(?ms)^[ \t]*import[ \t]*\((.*?)\)`)
	goQuotedImportPattern    = regexp.MustCompile(`"([^"]+)"`)
	goFunctionHeaderPattern  = regexp.MustCompile(`func[ \t]+(?:\([^)]*\)[ \t]*)?(\w+)[ \t]*\(`)
	goIdentifierCallPattern  = regexp.MustCompile(`\b(\w+)[ \t]*\(`)
	goMemberCallPattern      = regexp.MustCompile(`\b\w+\.(\w+)[ \t]*\(`)
	goExcludedFunctionNames  = []string{"if", "for", "switch", "select", "range"}
	goExcludedCallNames      = []string{"if", "for", "switch", "select", "range", "make", "new", "len", "cap", "append", "copy", "delete", "panic", "recover", "func", "go", "defer", "return"}
	goLineFunctionPatternFmt = `func[ \t]+(?:\([^)]*\)[ \t]*)?%s[ \t]*\(`
)

// GoParser extracts Go imports, functions, and calls. Function bodies are
// recovered by balanced-brace matching from the first body brace outside the
// parameter and result lists, so multi-line signatures and nested literals do
// not cut a body short.
type GoParser struct {
	filter *ignore.Filter
}

// NewGoParser constructs a GoParser that bounds its project searches with the
// provided ignore filter.
func NewGoParser(filter *ignore.Filter) *GoParser {
	return &GoParser{filter: filter}
}

// ExtractImports returns import paths from single import statements and import
// blocks, merged into source order. Aliases, dot imports, and blank imports
// keep only the quoted path.
func (parser *GoParser) ExtractImports(fileContent string) []string {
	var orderedMatches []positionedMatch
	for _, singleIndices := range goSingleImportPattern.FindAllStringSubmatchIndex(fileContent, -1) {
		orderedMatches = append(orderedMatches, positionedMatch{
			offset: singleIndices[0],
			value:  fileContent[singleIndices[2]:singleIndices[3]],
		})
	}
	for _, blockIndices := range goImportBlockPattern.FindAllStringSubmatchIndex(fileContent, -1) {
		blockBody := fileContent[blockIndices[2]:blockIndices[3]]
		for _, quotedIndices := range goQuotedImportPattern.FindAllStringSubmatchIndex(blockBody, -1) {
			orderedMatches = append(orderedMatches, positionedMatch{
				offset: blockIndices[2] + quotedIndices[0],
				value:  blockBody[quotedIndices[2]:quotedIndices[3]],
			})
		}
	}
	sort.SliceStable(orderedMatches, func(left, right int) bool {
		return orderedMatches[left].offset < orderedMatches[right].offset
	})
	importPaths := make([]string, 0, len(orderedMatches))
	for _, currentMatch := range orderedMatches {
		importPaths = append(importPaths, currentMatch.value)
	}
	return importPaths
}

// ExtractFunctions returns top-level functions and methods in source order.
// Method receivers are dropped; only the bare name is kept.
func (parser *GoParser) ExtractFunctions(fileContent string) []types.Function {
	var extractedFunctions []types.Function
	for _, headerIndices := range goFunctionHeaderPattern.FindAllStringSubmatchIndex(fileContent, -1) {
		functionName := fileContent[headerIndices[2]:headerIndices[3]]
		if isExcludedName(functionName, goExcludedFunctionNames) {
			continue
		}
		parameterOpenIndex := headerIndices[1] - 1
		bodyOpenIndex := findFunctionBodyOpen(fileContent, parameterOpenIndex)
		if bodyOpenIndex < 0 {
			continue
		}
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
// followed by selector calls. Builtins and call-shaped keywords are excluded.
func (parser *GoParser) ExtractFunctionCalls(functionBody string) []string {
	var calledNames []string
	for _, callMatch := range goIdentifierCallPattern.FindAllStringSubmatch(functionBody, -1) {
		if !isExcludedName(callMatch[1], goExcludedCallNames) {
			calledNames = append(calledNames, callMatch[1])
		}
	}
	for _, memberMatch := range goMemberCallPattern.FindAllStringSubmatch(functionBody, -1) {
		if !isExcludedName(memberMatch[1], goExcludedCallNames) {
			calledNames = append(calledNames, memberMatch[1])
		}
	}
	return calledNames
}

// ResolveImportPath resolves relative paths against the importing file,
// classifies standard library imports as external, and maps module-local
// import paths through the nearest go.mod. A resolved package directory is
// represented by its first non-test Go file in lexical order.
func (parser *GoParser) ResolveImportPath(importSpecifier string, currentFilePath string, projectRoot string) string {
	if strings.HasPrefix(importSpecifier, goRelativeCurrent) || strings.HasPrefix(importSpecifier, goRelativeParent) {
		return parser.resolveRelativeImport(importSpecifier, currentFilePath)
	}
	if isGoStandardLibraryImport(importSpecifier) {
		return ""
	}
	if resolvedPath := parser.resolveModuleImport(importSpecifier, currentFilePath, projectRoot); resolvedPath != "" {
		return resolvedPath
	}
	return parser.resolveByPackageName(importSpecifier, projectRoot)
}

func (parser *GoParser) resolveRelativeImport(importSpecifier string, currentFilePath string) string {
	candidatePath := filepath.Join(filepath.Dir(currentFilePath), filepath.FromSlash(importSpecifier))
	if directoryExists(candidatePath) {
		return firstGoFileIn(candidatePath)
	}
	if fileExists(candidatePath) {
		return candidatePath
	}
	if filepath.Ext(candidatePath) == "" && fileExists(candidatePath+goFileExtension) {
		return candidatePath + goFileExtension
	}
	return ""
}

// resolveModuleImport finds the go.mod governing the importing file, parses
// its module path, and maps a module-prefixed specifier to the corresponding
// package directory.
func (parser *GoParser) resolveModuleImport(importSpecifier string, currentFilePath string, projectRoot string) string {
	moduleRoot, modulePath := findEnclosingGoModule(filepath.Dir(currentFilePath), projectRoot)
	if modulePath == "" {
		return ""
	}
	if importSpecifier != modulePath && !strings.HasPrefix(importSpecifier, modulePath+goImportPathDivider) {
		return ""
	}
	relativePackagePath := strings.TrimPrefix(strings.TrimPrefix(importSpecifier, modulePath), goImportPathDivider)
	packageDirectory := filepath.Join(moduleRoot, filepath.FromSlash(relativePackagePath))
	if !directoryExists(packageDirectory) {
		return ""
	}
	return firstGoFileIn(packageDirectory)
}

// resolveByPackageName is the fallback for import paths that no go.mod maps:
// the first project directory whose name equals the path's last segment and
// which contains Go files wins.
func (parser *GoParser) resolveByPackageName(importSpecifier string, projectRoot string) string {
	pathSegments := strings.Split(importSpecifier, goImportPathDivider)
	packageName := pathSegments[len(pathSegments)-1]
	if packageName == "" {
		return ""
	}
	return firstProjectFile(projectRoot, parser.filter, func(filePath string, directoryEntry fs.DirEntry) bool {
		fileName := directoryEntry.Name()
		return strings.HasSuffix(fileName, goFileExtension) &&
			!strings.HasSuffix(fileName, goTestFileSuffix) &&
			filepath.Base(filepath.Dir(filePath)) == packageName
	})
}

// FunctionLineNumber returns the 1-based line of the named declaration.
func (parser *GoParser) FunctionLineNumber(fileContent string, functionName string) int {
	linePattern := regexp.MustCompile(strings.Replace(goLineFunctionPatternFmt, "%s", regexp.QuoteMeta(functionName), 1))
	for lineIndex, currentLine := range strings.Split(fileContent, "\n") {
		if linePattern.MatchString(currentLine) {
			return lineIndex + 1
		}
	}
	return 0
}

// isGoStandardLibraryImport reports whether the import path belongs to the
// standard library. Standard library paths have no dot in the first segment.
func isGoStandardLibraryImport(importSpecifier string) bool {
	firstSegment := strings.SplitN(importSpecifier, goImportPathDivider, 2)[0]
	return !strings.Contains(firstSegment, ".")
}

// findEnclosingGoModule walks upward from startDirectory, staying inside
// projectRoot, until a go.mod is found. It returns the module root directory
// and the declared module path, or empty strings when there is none.
func findEnclosingGoModule(startDirectory string, projectRoot string) (string, string) {
	absoluteRoot, absoluteError := filepath.Abs(projectRoot)
	if absoluteError != nil {
		return "", ""
	}
	currentDirectory, absoluteError := filepath.Abs(startDirectory)
	if absoluteError != nil {
		return "", ""
	}
	for utils.IsPathWithin(currentDirectory, absoluteRoot) {
		goModulePath := filepath.Join(currentDirectory, goModuleFileName)
		if fileExists(goModulePath) {
			moduleFileContent, readError := os.ReadFile(goModulePath)
			if readError != nil {
				return "", ""
			}
			parsedModuleFile, parseError := modfile.ParseLax(goModuleFileName, moduleFileContent, nil)
			if parseError != nil || parsedModuleFile.Module == nil {
				return "", ""
			}
			return currentDirectory, parsedModuleFile.Module.Mod.Path
		}
		parentDirectory := filepath.Dir(currentDirectory)
		if parentDirectory == currentDirectory {
			break
		}
		currentDirectory = parentDirectory
	}
	return "", ""
}

// firstGoFileIn returns the lexically first non-test Go file in the directory.
func firstGoFileIn(directoryPath string) string {
	goFileNames := sortedDirectoryFiles(directoryPath, func(fileName string) bool {
		return strings.HasSuffix(fileName, goFileExtension) && !strings.HasSuffix(fileName, goTestFileSuffix)
	})
	if len(goFileNames) == 0 {
		return ""
	}
	return filepath.Join(directoryPath, goFileNames[0])
}
