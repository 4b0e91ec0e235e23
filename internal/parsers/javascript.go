package parsers

import (
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/YickelFuboo/moling-coding-service/internal/ignore"
	"github.com/YickelFuboo/moling-coding-service/internal/types"
	"github.com/YickelFuboo/moling-coding-service/internal/utils"
)

const (
	nodeModulesDirectoryName = "node_modules"
	nodePackageManifestName  = "package.json"
)

var (
	javaScriptResolutionExtensions = []string{".js", ".jsx", ".ts", ".tsx"}

	javaScriptNamedImportPattern      = regexp.MustCompile(`import\s+(?:[\w$]+|\{[^}]*\}|\*\s+as\s+[\w$]+)(?:\s*,\s*(?:\{[^}]*\}|[\w$]+))?\s+from\s+['"]([^'"]+)['"]`)
	javaScriptSideEffectImportPattern = regexp.MustCompile(`import\s+['"]([^'"]+)['"]`)
	javaScriptRequirePattern          = regexp.MustCompile(`require\s*\(\s*['"]([^'"]+)['"]\s*\)`)

	javaScriptFunctionDeclarationPattern = regexp.MustCompile(`function\s+([\w$]+)\s*\(`)
	javaScriptFunctionExpressionPattern  = regexp.MustCompile(`(?:const|let|var)\s+([\w$]+)\s*=\s*(?:async\s+)?function\b`)
	javaScriptArrowFunctionPattern       = regexp.MustCompile(`(?:const|let|var)\s+([\w$]+)\s*=\s*(?:async\s*)?(?:\([^)]*\)|[\w$]+)\s*=>\s*\{`)
	javaScriptMethodPattern              = regexp.MustCompile(`(?m)^[ \t]*(?:async\s+)?([\w$]+)\s*\([^)]*\)\s*\{`)

	javaScriptIdentifierCallPattern = regexp.MustCompile(`\b([\w$]+)\s*\(`)
	javaScriptMemberCallPattern     = regexp.MustCompile(`\b[\w$]+\.([\w$]+)\s*\(`)
	javaScriptExcludedCallNames     = []string{"if", "for", "while", "switch", "catch", "function", "require"}
	javaScriptExcludedMethodNames   = []string{"if", "for", "while", "switch", "catch", "function", "constructor", "return"}
)

// JavaScriptParser extracts imports, functions, and calls from JavaScript and
// TypeScript sources with pattern matching. Function declarations, assigned
// function expressions, arrow functions with block bodies, and class methods
// are all recognized.
type JavaScriptParser struct {
	filter *ignore.Filter
}

// NewJavaScriptParser constructs a JavaScriptParser that bounds its project
// searches with the provided ignore filter.
func NewJavaScriptParser(filter *ignore.Filter) *JavaScriptParser {
	return &JavaScriptParser{filter: filter}
}

// positionedMatch pairs an extracted value with its byte offset so results
// from several patterns can be merged back into source order.
type positionedMatch struct {
	offset int
	value  string
}

// ExtractImports returns module specifiers from ES imports, side-effect
// imports, and CommonJS require calls, merged into source order.
func (parser *JavaScriptParser) ExtractImports(fileContent string) []string {
	var orderedMatches []positionedMatch
	collect := func(pattern *regexp.Regexp) {
		for _, matchIndices := range pattern.FindAllStringSubmatchIndex(fileContent, -1) {
			orderedMatches = append(orderedMatches, positionedMatch{
				offset: matchIndices[0],
				value:  fileContent[matchIndices[2]:matchIndices[3]],
			})
		}
	}
	collect(javaScriptNamedImportPattern)
	collect(javaScriptRequirePattern)
	for _, matchIndices := range javaScriptSideEffectImportPattern.FindAllStringSubmatchIndex(fileContent, -1) {
		if javaScriptNamedImportPattern.MatchString(fileContent[matchIndices[0]:matchIndices[1]]) {
			continue
		}
		orderedMatches = append(orderedMatches, positionedMatch{
			offset: matchIndices[0],
			value:  fileContent[matchIndices[2]:matchIndices[3]],
		})
	}
	sort.SliceStable(orderedMatches, func(left, right int) bool {
		return orderedMatches[left].offset < orderedMatches[right].offset
	})
	importSpecifiers := make([]string, 0, len(orderedMatches))
	for _, currentMatch := range orderedMatches {
		importSpecifiers = append(importSpecifiers, currentMatch.value)
	}
	return importSpecifiers
}

// ExtractFunctions returns declared functions, assigned function expressions,
// block-bodied arrow functions, and class methods in source order. The same
// declaration is reported once even when several patterns match it.
func (parser *JavaScriptParser) ExtractFunctions(fileContent string) []types.Function {
	type candidate struct {
		offset       int
		name         string
		bodyOpenHint int
	}
	var candidates []candidate
	appendMatches := func(pattern *regexp.Regexp, bodyAtMatchEnd bool) {
		for _, matchIndices := range pattern.FindAllStringSubmatchIndex(fileContent, -1) {
			currentCandidate := candidate{
				offset:       matchIndices[0],
				name:         fileContent[matchIndices[2]:matchIndices[3]],
				bodyOpenHint: -1,
			}
			if bodyAtMatchEnd {
				currentCandidate.bodyOpenHint = matchIndices[1] - 1
			} else {
				currentCandidate.bodyOpenHint = findFunctionBodyOpen(fileContent, matchIndices[1])
			}
			candidates = append(candidates, currentCandidate)
		}
	}
	appendMatches(javaScriptFunctionDeclarationPattern, false)
	appendMatches(javaScriptFunctionExpressionPattern, false)
	appendMatches(javaScriptArrowFunctionPattern, true)
	appendMatches(javaScriptMethodPattern, true)

	sort.SliceStable(candidates, func(left, right int) bool {
		return candidates[left].offset < candidates[right].offset
	})

	seenDeclarations := map[string]struct{}{}
	var extractedFunctions []types.Function
	for _, currentCandidate := range candidates {
		if isExcludedName(currentCandidate.name, javaScriptExcludedMethodNames) {
			continue
		}
		if currentCandidate.bodyOpenHint < 0 {
			continue
		}
		startLine := lineNumberAt(fileContent, currentCandidate.offset)
		declarationKey := currentCandidate.name + "\x00" + strconv.Itoa(startLine)
		if _, alreadySeen := seenDeclarations[declarationKey]; alreadySeen {
			continue
		}
		seenDeclarations[declarationKey] = struct{}{}
		functionBody, _ := extractBraceBody(fileContent, currentCandidate.bodyOpenHint)
		extractedFunctions = append(extractedFunctions, types.Function{
			Name:      currentCandidate.name,
			Body:      functionBody,
			StartLine: startLine,
		})
	}
	return extractedFunctions
}

// ExtractFunctionCalls returns called names in the body, bare calls first
// followed by member calls.
func (parser *JavaScriptParser) ExtractFunctionCalls(functionBody string) []string {
	var calledNames []string
	for _, callMatch := range javaScriptIdentifierCallPattern.FindAllStringSubmatch(functionBody, -1) {
		if !isExcludedName(callMatch[1], javaScriptExcludedCallNames) {
			calledNames = append(calledNames, callMatch[1])
		}
	}
	for _, memberMatch := range javaScriptMemberCallPattern.FindAllStringSubmatch(functionBody, -1) {
		if !isExcludedName(memberMatch[1], javaScriptExcludedCallNames) {
			calledNames = append(calledNames, memberMatch[1])
		}
	}
	return calledNames
}

// ResolveImportPath resolves relative specifiers against the importing file
// with the usual extension and index-file fallbacks. Bare specifiers are
// looked up in enclosing node_modules directories unless those are excluded,
// and finally by basename across the project.
func (parser *JavaScriptParser) ResolveImportPath(importSpecifier string, currentFilePath string, projectRoot string) string {
	if strings.HasPrefix(importSpecifier, "./") || strings.HasPrefix(importSpecifier, "../") || importSpecifier == "." || importSpecifier == ".." {
		return resolveJavaScriptRelativeImport(importSpecifier, currentFilePath)
	}
	if resolvedPath := parser.resolveNodeModulesImport(importSpecifier, currentFilePath, projectRoot); resolvedPath != "" {
		return resolvedPath
	}
	return parser.resolveByBasename(importSpecifier, projectRoot)
}

func resolveJavaScriptRelativeImport(importSpecifier string, currentFilePath string) string {
	basePath := filepath.Join(filepath.Dir(currentFilePath), filepath.FromSlash(importSpecifier))
	if filepath.Ext(basePath) != "" && fileExists(basePath) {
		return basePath
	}
	for _, candidateExtension := range javaScriptResolutionExtensions {
		if fileExists(basePath + candidateExtension) {
			return basePath + candidateExtension
		}
	}
	for _, candidateExtension := range javaScriptResolutionExtensions {
		indexCandidate := filepath.Join(basePath, "index"+candidateExtension)
		if fileExists(indexCandidate) {
			return indexCandidate
		}
	}
	return ""
}

// resolveNodeModulesImport walks upward from the importing file looking for a
// node_modules entry for the package. Entries under excluded directories are
// skipped, which classifies third-party packages as external under the default
// configuration.
func (parser *JavaScriptParser) resolveNodeModulesImport(importSpecifier string, currentFilePath string, projectRoot string) string {
	absoluteRoot, absoluteError := filepath.Abs(projectRoot)
	if absoluteError != nil {
		return ""
	}
	currentDirectory := filepath.Dir(currentFilePath)
	for utils.IsPathWithin(currentDirectory, absoluteRoot) {
		packageDirectory := filepath.Join(currentDirectory, nodeModulesDirectoryName, filepath.FromSlash(importSpecifier))
		if directoryExists(packageDirectory) && (parser.filter == nil || !parser.filter.IsExcluded(packageDirectory)) {
			if entryPath := nodePackageEntryPoint(packageDirectory); entryPath != "" {
				return entryPath
			}
		}
		parentDirectory := filepath.Dir(currentDirectory)
		if parentDirectory == currentDirectory {
			break
		}
		currentDirectory = parentDirectory
	}
	return ""
}

// nodePackageEntryPoint returns the package's main file from its manifest,
// falling back to index.js.
func nodePackageEntryPoint(packageDirectory string) string {
	manifestPath := filepath.Join(packageDirectory, nodePackageManifestName)
	manifestContent, readError := os.ReadFile(manifestPath)
	if readError == nil {
		var manifest struct {
			Main string `json:"main"`
		}
		if json.Unmarshal(manifestContent, &manifest) == nil && manifest.Main != "" {
			mainPath := filepath.Join(packageDirectory, filepath.FromSlash(manifest.Main))
			if fileExists(mainPath) {
				return mainPath
			}
		}
	}
	indexPath := filepath.Join(packageDirectory, "index.js")
	if fileExists(indexPath) {
		return indexPath
	}
	return ""
}

// resolveByBasename searches the project for a source file whose name without
// extension equals the specifier's last segment.
func (parser *JavaScriptParser) resolveByBasename(importSpecifier string, projectRoot string) string {
	pathSegments := strings.Split(importSpecifier, "/")
	moduleName := pathSegments[len(pathSegments)-1]
	if moduleName == "" {
		return ""
	}
	return firstProjectFile(projectRoot, parser.filter, func(filePath string, directoryEntry fs.DirEntry) bool {
		fileName := directoryEntry.Name()
		fileExtension := filepath.Ext(fileName)
		if !utils.ContainsString(javaScriptResolutionExtensions, fileExtension) {
			return false
		}
		return strings.TrimSuffix(fileName, fileExtension) == moduleName
	})
}

// FunctionLineNumber returns the 1-based line of the named declaration,
// checking declaration, assignment, and method forms.
func (parser *JavaScriptParser) FunctionLineNumber(fileContent string, functionName string) int {
	quotedName := regexp.QuoteMeta(functionName)
	linePatterns := []*regexp.Regexp{
		regexp.MustCompile(`function\s+` + quotedName + `\s*\(`),
		regexp.MustCompile(`(?:const|let|var)\s+` + quotedName + `\s*=`),
		regexp.MustCompile(`^[ \t]*(?:async\s+)?` + quotedName + `\s*\(`),
	}
	for lineIndex, currentLine := range strings.Split(fileContent, "\n") {
		for _, linePattern := range linePatterns {
			if linePattern.MatchString(currentLine) {
				return lineIndex + 1
			}
		}
	}
	return 0
}
