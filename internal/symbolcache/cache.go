// Package symbolcache memoizes per-file parse results and import resolutions
// for the duration of one analysis run.
//
// A file referenced from many points in the dependency tree is read and parsed
// once. Concurrent requests for the same key are collapsed so sibling
// expansions racing for one file never duplicate the parse.
package symbolcache

import (
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/YickelFuboo/moling-coding-service/internal/parsers"
	"github.com/YickelFuboo/moling-coding-service/internal/types"
)

const cacheKeySeparator = "\x00"

// FileSymbols is the cached parse result for one file.
type FileSymbols struct {
	// Content is the raw file text, kept for line-number lookups.
	Content string
	// Functions are the extracted definitions in source order.
	Functions []types.Function
	// Imports are the raw import specifiers in source order.
	Imports []string
}

// Function returns the first definition with the given name in source order,
// or nil when the file does not declare it.
func (fileSymbols *FileSymbols) Function(functionName string) *types.Function {
	for functionIndex := range fileSymbols.Functions {
		if fileSymbols.Functions[functionIndex].Name == functionName {
			return &fileSymbols.Functions[functionIndex]
		}
	}
	return nil
}

// Cache holds parse results and import resolutions keyed by absolute path.
// A Cache is scoped to a single analysis run; construct a fresh one per
// request so edits between runs are always observed.
type Cache struct {
	registry *parsers.Registry

	flightGroup singleflight.Group

	mutex             sync.RWMutex
	symbolsByFile     map[string]*FileSymbols
	symbolErrorByFile map[string]error
	resolutionByKey   map[string]string
}

// NewCache constructs an empty Cache backed by the parser registry.
func NewCache(registry *parsers.Registry) *Cache {
	return &Cache{
		registry:          registry,
		symbolsByFile:     map[string]*FileSymbols{},
		symbolErrorByFile: map[string]error{},
		resolutionByKey:   map[string]string{},
	}
}

// FileSymbols returns the parsed symbols for the file, reading and parsing it
// on first use. Read and parser-lookup failures are memoized as well, so a
// broken file is reported consistently and probed only once per run.
func (cache *Cache) FileSymbols(filePath string) (*FileSymbols, error) {
	normalizedPath := filepath.Clean(filePath)

	cache.mutex.RLock()
	cachedSymbols, haveSymbols := cache.symbolsByFile[normalizedPath]
	cachedError, haveError := cache.symbolErrorByFile[normalizedPath]
	cache.mutex.RUnlock()
	if haveSymbols {
		return cachedSymbols, nil
	}
	if haveError {
		return nil, cachedError
	}

	flightResult, flightError, _ := cache.flightGroup.Do(normalizedPath, func() (any, error) {
		parsedSymbols, parseError := cache.parseFile(normalizedPath)
		cache.mutex.Lock()
		if parseError != nil {
			cache.symbolErrorByFile[normalizedPath] = parseError
		} else {
			cache.symbolsByFile[normalizedPath] = parsedSymbols
		}
		cache.mutex.Unlock()
		return parsedSymbols, parseError
	})
	if flightError != nil {
		return nil, flightError
	}
	return flightResult.(*FileSymbols), nil
}

// parseFile performs the uncached read and parse.
func (cache *Cache) parseFile(filePath string) (*FileSymbols, error) {
	languageParser, parserError := cache.registry.Get(filePath)
	if parserError != nil {
		return nil, parserError
	}
	fileContent, readError := os.ReadFile(filePath)
	if readError != nil {
		return nil, readError
	}
	contentText := string(fileContent)
	return &FileSymbols{
		Content:   contentText,
		Functions: languageParser.ExtractFunctions(contentText),
		Imports:   languageParser.ExtractImports(contentText),
	}, nil
}

// ResolveImport returns the resolved path for an import specifier seen in the
// given file, or "" when the specifier is external or unresolvable. Results
// are memoized per specifier and importing directory, since relative
// specifiers resolve differently from different directories.
func (cache *Cache) ResolveImport(importSpecifier string, currentFilePath string, projectRoot string) (string, error) {
	languageParser, parserError := cache.registry.Get(currentFilePath)
	if parserError != nil {
		return "", parserError
	}
	resolutionKey := filepath.Dir(filepath.Clean(currentFilePath)) + cacheKeySeparator + importSpecifier

	cache.mutex.RLock()
	cachedResolution, haveResolution := cache.resolutionByKey[resolutionKey]
	cache.mutex.RUnlock()
	if haveResolution {
		return cachedResolution, nil
	}

	flightResult, _, _ := cache.flightGroup.Do(resolutionKey, func() (any, error) {
		resolvedPath := languageParser.ResolveImportPath(importSpecifier, currentFilePath, projectRoot)
		cache.mutex.Lock()
		cache.resolutionByKey[resolutionKey] = resolvedPath
		cache.mutex.Unlock()
		return resolvedPath, nil
	})
	return flightResult.(string), nil
}

// FunctionLineNumber returns the declaration line of the named function using
// the cached file content, or 0 when the file cannot be parsed.
func (cache *Cache) FunctionLineNumber(filePath string, functionName string) int {
	fileSymbols, symbolsError := cache.FileSymbols(filePath)
	if symbolsError != nil {
		return 0
	}
	for _, declaredFunction := range fileSymbols.Functions {
		if declaredFunction.Name == functionName {
			return declaredFunction.StartLine
		}
	}
	languageParser, parserError := cache.registry.Get(filePath)
	if parserError != nil {
		return 0
	}
	return languageParser.FunctionLineNumber(fileSymbols.Content, functionName)
}
