package parsers

import (
	"io/fs"
	"os"
	"regexp"
	"strings"

	"github.com/YickelFuboo/moling-coding-service/internal/ignore"
	"github.com/YickelFuboo/moling-coding-service/internal/types"
)

const csharpFileExtension = ".cs"

var (
	csharpUsingPattern          = regexp.MustCompile(`(?m)^[ \t]*using[ \t]+([\w.]+)[ \t]*;`)
	csharpNamespacePattern      = regexp.MustCompile(`(?m)^[ \t]*namespace[ \t]+([\w.]+)`)
	csharpTypeDeclarationFormat = `(?m)\b(?:class|struct|interface|enum|record)[ \t]+%s\b`
	csharpMethodHeaderPattern   = regexp.MustCompile(`(?m)^[ \t]*(?:(?:public|private|protected|internal|static|virtual|override|abstract|async|sealed|partial|extern|new)[ \t]+)+[\w.<>\[\],? ]+[ \t]+(\w+)[ \t]*\(`)
	csharpIdentifierCallPattern = regexp.MustCompile(`\b(\w+)[ \t]*\(`)
	csharpMemberCallPattern     = regexp.MustCompile(`\b\w+\.(\w+)[ \t]*\(`)
	csharpExcludedCallNames     = []string{"if", "for", "foreach", "while", "switch", "catch", "new", "typeof", "sizeof", "nameof", "using", "lock", "return", "get", "set"}
	csharpModifierKeywords      = []string{"public", "private", "protected", "internal", "static", "virtual", "override", "abstract", "async", "sealed", "partial", "extern", "new"}
)

// CSharpParser extracts C# using directives, methods, and calls. Using
// statements in code are distinguished from directives by requiring a dotted
// or plain identifier followed by a semicolon; static and alias directives are
// skipped.
type CSharpParser struct {
	filter *ignore.Filter
}

// NewCSharpParser constructs a CSharpParser that bounds its project searches
// with the provided ignore filter.
func NewCSharpParser(filter *ignore.Filter) *CSharpParser {
	return &CSharpParser{filter: filter}
}

// ExtractImports returns namespace specifiers from using directives in source
// order.
func (parser *CSharpParser) ExtractImports(fileContent string) []string {
	var importSpecifiers []string
	for _, usingMatch := range csharpUsingPattern.FindAllStringSubmatch(fileContent, -1) {
		importSpecifiers = append(importSpecifiers, usingMatch[1])
	}
	return importSpecifiers
}

// ExtractFunctions returns the methods found in the file in source order.
// The modifier requirement keeps local calls and control statements from
// matching; destructors and declarations without bodies are skipped.
func (parser *CSharpParser) ExtractFunctions(fileContent string) []types.Function {
	var extractedFunctions []types.Function
	for _, headerIndices := range csharpMethodHeaderPattern.FindAllStringSubmatchIndex(fileContent, -1) {
		methodName := fileContent[headerIndices[2]:headerIndices[3]]
		if isExcludedName(methodName, csharpExcludedCallNames) {
			continue
		}
		if !headerHasReturnType(fileContent[headerIndices[0]:headerIndices[2]], csharpModifierKeywords) {
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
func (parser *CSharpParser) ExtractFunctionCalls(functionBody string) []string {
	var calledNames []string
	for _, callMatch := range csharpIdentifierCallPattern.FindAllStringSubmatch(functionBody, -1) {
		if !isExcludedName(callMatch[1], csharpExcludedCallNames) {
			calledNames = append(calledNames, callMatch[1])
		}
	}
	for _, memberMatch := range csharpMemberCallPattern.FindAllStringSubmatch(functionBody, -1) {
		if !isExcludedName(memberMatch[1], csharpExcludedCallNames) {
			calledNames = append(calledNames, memberMatch[1])
		}
	}
	return calledNames
}

// ResolveImportPath searches the project for a .cs file declaring a type whose
// name equals the specifier's last segment. For dotted specifiers the
// candidate's namespace declaration must also match the leading segments.
func (parser *CSharpParser) ResolveImportPath(importSpecifier string, currentFilePath string, projectRoot string) string {
	namespaceSegments := strings.Split(importSpecifier, ".")
	typeName := namespaceSegments[len(namespaceSegments)-1]
	if typeName == "" {
		return ""
	}
	namespaceName := strings.Join(namespaceSegments[:len(namespaceSegments)-1], ".")
	typeDeclarationPattern := regexp.MustCompile(strings.Replace(csharpTypeDeclarationFormat, "%s", regexp.QuoteMeta(typeName), 1))
	declaringFile := firstProjectFile(projectRoot, parser.filter, func(filePath string, directoryEntry fs.DirEntry) bool {
		if !strings.HasSuffix(directoryEntry.Name(), csharpFileExtension) {
			return false
		}
		fileContent, readError := os.ReadFile(filePath)
		if readError != nil {
			return false
		}
		if !typeDeclarationPattern.Match(fileContent) {
			return false
		}
		if namespaceName == "" {
			return true
		}
		namespaceMatch := csharpNamespacePattern.FindSubmatch(fileContent)
		return namespaceMatch != nil && string(namespaceMatch[1]) == namespaceName
	})
	if declaringFile != "" {
		return declaringFile
	}
	// A using directive usually names a namespace rather than a type, so fall
	// back to any file declared inside that namespace.
	return firstProjectFile(projectRoot, parser.filter, func(filePath string, directoryEntry fs.DirEntry) bool {
		if !strings.HasSuffix(directoryEntry.Name(), csharpFileExtension) {
			return false
		}
		fileContent, readError := os.ReadFile(filePath)
		if readError != nil {
			return false
		}
		namespaceMatch := csharpNamespacePattern.FindSubmatch(fileContent)
		return namespaceMatch != nil && string(namespaceMatch[1]) == importSpecifier
	})
}

// FunctionLineNumber returns the 1-based line of the named method declaration.
func (parser *CSharpParser) FunctionLineNumber(fileContent string, functionName string) int {
	linePattern := regexp.MustCompile(`\b` + regexp.QuoteMeta(functionName) + `[ \t]*\(`)
	for lineIndex, currentLine := range strings.Split(fileContent, "\n") {
		if csharpMethodHeaderPattern.MatchString(currentLine) && linePattern.MatchString(currentLine) {
			return lineIndex + 1
		}
	}
	return 0
}
