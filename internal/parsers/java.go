package parsers

import (
	"io/fs"
	"os"
	"regexp"
	"strings"

	"github.com/YickelFuboo/moling-coding-service/internal/ignore"
	"github.com/YickelFuboo/moling-coding-service/internal/types"
)

const (
	javaFileExtension  = ".java"
	javaWildcardImport = "*"
	javaStaticModifier = "static "
	javaPackageDivider = "."
)

var (
	javaImportPattern         = regexp.MustCompile(`(?m)^[ \t]*import[ \t]+((?:static[ \t]+)?[\w.]+(?:\.\*)?)[ \t]*;`)
	javaPackagePattern        = regexp.MustCompile(`(?m)^[ \t]*package[ \t]+([\w.]+)[ \t]*;`)
	javaMethodHeaderPattern   = regexp.MustCompile(`(?m)^[ \t]*(?:(?:public|private|protected|static|final|abstract|synchronized|native|default)[ \t]+)*(?:<[^>]+>[ \t]+)?[\w.<>\[\],? ]+[ \t]+(\w+)[ \t]*\(`)
	javaIdentifierCallPattern = regexp.MustCompile(`\b(\w+)[ \t]*\(`)
	javaMemberCallPattern     = regexp.MustCompile(`\b\w+\.(\w+)[ \t]*\(`)
	javaExcludedCallNames     = []string{"if", "for", "while", "switch", "catch", "new", "super", "this", "return"}
	javaModifierKeywords      = []string{"public", "private", "protected", "static", "final", "abstract", "synchronized", "native", "default"}
)

// JavaParser extracts Java imports, methods, and calls. Method signatures
// require a return type before the name, which keeps constructors out of the
// extraction.
type JavaParser struct {
	filter *ignore.Filter
}

// NewJavaParser constructs a JavaParser that bounds its project searches with
// the provided ignore filter.
func NewJavaParser(filter *ignore.Filter) *JavaParser {
	return &JavaParser{filter: filter}
}

// ExtractImports returns the imported type names in source order. The static
// modifier is stripped; wildcard imports keep the package path with its
// trailing asterisk.
func (parser *JavaParser) ExtractImports(fileContent string) []string {
	var importSpecifiers []string
	for _, importMatch := range javaImportPattern.FindAllStringSubmatch(fileContent, -1) {
		specifier := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(importMatch[1]), javaStaticModifier))
		importSpecifiers = append(importSpecifiers, specifier)
	}
	return importSpecifiers
}

// ExtractFunctions returns the methods found in the file in source order.
// Bodies are recovered by balanced-brace matching; abstract and interface
// declarations without a body are skipped.
func (parser *JavaParser) ExtractFunctions(fileContent string) []types.Function {
	var extractedFunctions []types.Function
	for _, headerIndices := range javaMethodHeaderPattern.FindAllStringSubmatchIndex(fileContent, -1) {
		methodName := fileContent[headerIndices[2]:headerIndices[3]]
		if isExcludedName(methodName, javaExcludedCallNames) {
			continue
		}
		if !headerHasReturnType(fileContent[headerIndices[0]:headerIndices[2]], javaModifierKeywords) {
			continue
		}
		bodyOpenIndex := findFunctionBodyOpen(fileContent, headerIndices[1]-1)
		if bodyOpenIndex < 0 {
			continue
		}
		methodBody, _ := extractBraceBody(fileContent, bodyOpenIndex)
		extractedFunctions = append(extractedFunctions, types.Function{
			Name:      methodName,
			Body:      methodBody,
			StartLine: lineNumberAt(fileContent, headerIndices[0]),
		})
	}
	return extractedFunctions
}

// ExtractFunctionCalls returns called names in the body, bare calls first
// followed by member calls.
func (parser *JavaParser) ExtractFunctionCalls(functionBody string) []string {
	var calledNames []string
	for _, callMatch := range javaIdentifierCallPattern.FindAllStringSubmatch(functionBody, -1) {
		if !isExcludedName(callMatch[1], javaExcludedCallNames) {
			calledNames = append(calledNames, callMatch[1])
		}
	}
	for _, memberMatch := range javaMemberCallPattern.FindAllStringSubmatch(functionBody, -1) {
		if !isExcludedName(memberMatch[1], javaExcludedCallNames) {
			calledNames = append(calledNames, memberMatch[1])
		}
	}
	return calledNames
}

// ResolveImportPath searches the project for the .java file declaring the
// imported type. For wildcard imports any file declaring the package matches;
// otherwise the file basename must equal the imported class name and the
// declared package must match the specifier's package part.
func (parser *JavaParser) ResolveImportPath(importSpecifier string, currentFilePath string, projectRoot string) string {
	packageSegments := strings.Split(importSpecifier, javaPackageDivider)
	className := packageSegments[len(packageSegments)-1]
	packageName := strings.Join(packageSegments[:len(packageSegments)-1], javaPackageDivider)
	if className == javaWildcardImport {
		return firstProjectFile(projectRoot, parser.filter, func(filePath string, directoryEntry fs.DirEntry) bool {
			return strings.HasSuffix(directoryEntry.Name(), javaFileExtension) && javaFileDeclaresPackage(filePath, packageName)
		})
	}
	return firstProjectFile(projectRoot, parser.filter, func(filePath string, directoryEntry fs.DirEntry) bool {
		fileName := directoryEntry.Name()
		if !strings.EqualFold(fileName, className+javaFileExtension) {
			return false
		}
		return packageName == "" || javaFileDeclaresPackage(filePath, packageName)
	})
}

// javaFileDeclaresPackage reads the candidate and compares its package
// declaration to the expected package name.
func javaFileDeclaresPackage(filePath string, packageName string) bool {
	fileContent, readError := os.ReadFile(filePath)
	if readError != nil {
		return false
	}
	packageMatch := javaPackagePattern.FindSubmatch(fileContent)
	if packageMatch == nil {
		return packageName == ""
	}
	return string(packageMatch[1]) == packageName
}

// FunctionLineNumber returns the 1-based line of the named method declaration.
func (parser *JavaParser) FunctionLineNumber(fileContent string, functionName string) int {
	linePattern := regexp.MustCompile(`\b` + regexp.QuoteMeta(functionName) + `[ \t]*\(`)
	for lineIndex, currentLine := range strings.Split(fileContent, "\n") {
		if javaMethodHeaderPattern.MatchString(currentLine) && linePattern.MatchString(currentLine) {
			return lineIndex + 1
		}
	}
	return 0
}
