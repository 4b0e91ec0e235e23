// Package analyzer builds dependency trees by recursively expanding function
// calls or file imports from a root target.
//
// Expansion is bounded three ways: a depth ceiling, a total node ceiling, and
// a visited path that turns repeated targets on the current branch into cycle
// leaves. Per-file failures become unresolved nodes instead of aborting the
// run; only an invalid root target is fatal.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/YickelFuboo/moling-coding-service/internal/ignore"
	"github.com/YickelFuboo/moling-coding-service/internal/parsers"
	"github.com/YickelFuboo/moling-coding-service/internal/symbolcache"
	"github.com/YickelFuboo/moling-coding-service/internal/types"
	"github.com/YickelFuboo/moling-coding-service/internal/utils"
)

const (
	// DefaultMaxDepth bounds recursion depth; the root is depth zero.
	DefaultMaxDepth = 5
	// DefaultMaxNodes bounds the total number of nodes in one tree.
	DefaultMaxNodes = 200
	// DefaultConcurrency bounds simultaneous sibling expansions.
	DefaultConcurrency = 4

	visitedKeySeparator = "\x00"

	errorInvalidRootFormat = "%w: %s"

	logMessageExpansionFailed  = "expansion failed"
	logMessageImportUnresolved = "import did not resolve"
	logFieldTargetName         = "target"
	logFieldTargetFile         = "file"
	logFieldFailureReason      = "reason"
)

// ErrInvalidRoot indicates the analysis target does not exist or lies outside
// the project root. It is the only fatal per-target condition; every other
// failure becomes an unresolved node in the tree.
var ErrInvalidRoot = errors.New("analyzer: invalid analysis root")

// Settings carries the expansion bounds for one Analyzer. Zero values fall
// back to the package defaults.
type Settings struct {
	ProjectRoot string
	MaxDepth    int
	MaxNodes    int
	Concurrency int
}

// Analyzer expands dependency trees for one project root.
type Analyzer struct {
	registry    *parsers.Registry
	cache       *symbolcache.Cache
	filter      *ignore.Filter
	logger      *zap.Logger
	projectRoot string
	maxDepth    int
	maxNodes    int
	concurrency int
}

// New constructs an Analyzer. The project root must name an existing
// directory; everything else about the target is validated per request.
func New(settings Settings, registry *parsers.Registry, cache *symbolcache.Cache, filter *ignore.Filter, logger *zap.Logger) (*Analyzer, error) {
	absoluteRoot, absoluteError := filepath.Abs(settings.ProjectRoot)
	if absoluteError != nil {
		return nil, fmt.Errorf(errorInvalidRootFormat, ErrInvalidRoot, settings.ProjectRoot)
	}
	if !directoryExists(absoluteRoot) {
		return nil, fmt.Errorf(errorInvalidRootFormat, ErrInvalidRoot, settings.ProjectRoot)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	constructed := &Analyzer{
		registry:    registry,
		cache:       cache,
		filter:      filter,
		logger:      logger,
		projectRoot: absoluteRoot,
		maxDepth:    settings.MaxDepth,
		maxNodes:    settings.MaxNodes,
		concurrency: settings.Concurrency,
	}
	if constructed.maxDepth <= 0 {
		constructed.maxDepth = DefaultMaxDepth
	}
	if constructed.maxNodes <= 0 {
		constructed.maxNodes = DefaultMaxNodes
	}
	if constructed.concurrency <= 0 {
		constructed.concurrency = DefaultConcurrency
	}
	return constructed, nil
}

// AnalyzeFunction builds the call tree rooted at the named function in the
// target file. A target function that is not declared in the file, or a file
// that cannot be parsed, yields a single-node unresolved tree rather than an
// error.
func (analyzer *Analyzer) AnalyzeFunction(executionContext context.Context, targetFilePath string, functionName string) (*types.DependencyTree, error) {
	absoluteTarget, validationError := analyzer.validateTargetFile(targetFilePath)
	if validationError != nil {
		return nil, validationError
	}

	builder := newTreeBuilder(analyzer)
	rootNode, buildError := builder.expandFunction(executionContext, functionName, absoluteTarget, 0, nil)
	if buildError != nil {
		return nil, buildError
	}
	return builder.finish(rootNode), nil
}

// AnalyzeFile builds the import tree rooted at the target file.
func (analyzer *Analyzer) AnalyzeFile(executionContext context.Context, targetFilePath string) (*types.DependencyTree, error) {
	absoluteTarget, validationError := analyzer.validateTargetFile(targetFilePath)
	if validationError != nil {
		return nil, validationError
	}

	builder := newTreeBuilder(analyzer)
	rootNode, buildError := builder.expandFile(executionContext, absoluteTarget, 0, nil)
	if buildError != nil {
		return nil, buildError
	}
	return builder.finish(rootNode), nil
}

// validateTargetFile resolves the target to an absolute path and checks that
// it exists inside the project root. An unsupported extension is not fatal
// here; expansion turns it into an unresolved root node.
func (analyzer *Analyzer) validateTargetFile(targetFilePath string) (string, error) {
	absoluteTarget, absoluteError := filepath.Abs(targetFilePath)
	if absoluteError != nil {
		return "", fmt.Errorf(errorInvalidRootFormat, ErrInvalidRoot, targetFilePath)
	}
	if !fileExistsAt(absoluteTarget) {
		return "", fmt.Errorf(errorInvalidRootFormat, ErrInvalidRoot, targetFilePath)
	}
	if !utils.IsPathWithin(absoluteTarget, analyzer.projectRoot) {
		return "", fmt.Errorf(errorInvalidRootFormat, ErrInvalidRoot, targetFilePath)
	}
	return absoluteTarget, nil
}

// treeBuilder carries the mutable state of one expansion run. The node count
// and truncation flag are shared across concurrently expanding branches.
type treeBuilder struct {
	analyzer  *Analyzer
	nodeCount atomic.Int64
	truncated atomic.Bool
}

func newTreeBuilder(analyzer *Analyzer) *treeBuilder {
	return &treeBuilder{analyzer: analyzer}
}

// admitNode reserves one slot under the node ceiling. When the ceiling is
// reached the tree is marked truncated and the node is not built.
func (builder *treeBuilder) admitNode() bool {
	for {
		currentCount := builder.nodeCount.Load()
		if currentCount >= int64(builder.analyzer.maxNodes) {
			builder.truncated.Store(true)
			return false
		}
		if builder.nodeCount.CompareAndSwap(currentCount, currentCount+1) {
			return true
		}
	}
}

func (builder *treeBuilder) finish(rootNode *types.DependencyNode) *types.DependencyTree {
	return &types.DependencyTree{
		Root:      rootNode,
		NodeCount: int(builder.nodeCount.Load()),
		Truncated: builder.truncated.Load(),
	}
}

// expandFunction builds the node for one function and recursively expands the
// functions it calls. The visited path holds the keys of the current branch
// only; a repeat on the branch yields a cycle leaf while repeats on sibling
// branches expand normally.
func (builder *treeBuilder) expandFunction(executionContext context.Context, functionName string, filePath string, depth int, visitedPath []string) (*types.DependencyNode, error) {
	if contextError := executionContext.Err(); contextError != nil {
		return nil, contextError
	}
	analyzer := builder.analyzer
	relativeFilePath := utils.RelativePathOrSelf(filePath, analyzer.projectRoot)
	visitedKey := filePath + visitedKeySeparator + functionName

	if !builder.admitNode() {
		return nil, nil
	}
	nodeInfo := types.FunctionInfo{
		Name:       functionName,
		FilePath:   relativeFilePath,
		LineNumber: analyzer.cache.FunctionLineNumber(filePath, functionName),
	}
	if utils.ContainsString(visitedPath, visitedKey) {
		return &types.DependencyNode{Info: nodeInfo, Type: types.NodeTypeCycle, Depth: depth}, nil
	}

	fileSymbols, symbolsError := analyzer.cache.FileSymbols(filePath)
	if symbolsError != nil {
		analyzer.logger.Warn(logMessageExpansionFailed,
			zap.String(logFieldTargetName, functionName),
			zap.String(logFieldTargetFile, relativeFilePath),
			zap.String(logFieldFailureReason, symbolsError.Error()))
		return &types.DependencyNode{Info: nodeInfo, Type: types.NodeTypeUnresolved, Depth: depth}, nil
	}
	declaredFunction := fileSymbols.Function(functionName)
	if declaredFunction == nil {
		return &types.DependencyNode{Info: nodeInfo, Type: types.NodeTypeUnresolved, Depth: depth}, nil
	}

	currentNode := &types.DependencyNode{Info: nodeInfo, Type: types.NodeTypeFunction, Depth: depth}

	languageParser, parserError := analyzer.registry.Get(filePath)
	if parserError != nil {
		currentNode.Type = types.NodeTypeUnresolved
		return currentNode, nil
	}
	calledNames := deduplicatePreservingOrder(languageParser.ExtractFunctionCalls(declaredFunction.Body))
	if len(calledNames) == 0 {
		return currentNode, nil
	}
	if depth+1 > analyzer.maxDepth {
		builder.truncated.Store(true)
		return currentNode, nil
	}

	branchPath := appendVisited(visitedPath, visitedKey)
	childNodes := make([]*types.DependencyNode, len(calledNames))
	expansionGroup, groupContext := errgroup.WithContext(executionContext)
	expansionGroup.SetLimit(analyzer.concurrency)
	for callIndex, calledName := range calledNames {
		callIndex, calledName := callIndex, calledName
		expansionGroup.Go(func() error {
			childNode, childError := builder.expandCall(groupContext, calledName, filePath, fileSymbols, depth+1, branchPath)
			if childError != nil {
				return childError
			}
			childNodes[callIndex] = childNode
			return nil
		})
	}
	if groupError := expansionGroup.Wait(); groupError != nil {
		return nil, groupError
	}
	for _, childNode := range childNodes {
		if childNode != nil {
			currentNode.Children = append(currentNode.Children, childNode)
		}
	}
	return currentNode, nil
}

// expandCall locates the definition of one called name. Same-file definitions
// win; otherwise the caller's imports are walked in source order and the first
// imported file declaring the name is used. Names with no located definition
// become external leaves, or unresolved leaves when a resolution attempt
// failed along the way.
func (builder *treeBuilder) expandCall(executionContext context.Context, calledName string, callerFilePath string, callerSymbols *symbolcache.FileSymbols, depth int, visitedPath []string) (*types.DependencyNode, error) {
	analyzer := builder.analyzer

	if callerSymbols.Function(calledName) != nil {
		return builder.expandFunction(executionContext, calledName, callerFilePath, depth, visitedPath)
	}

	resolutionFailed := false
	for _, importSpecifier := range deduplicatePreservingOrder(callerSymbols.Imports) {
		resolvedPath, resolveError := analyzer.cache.ResolveImport(importSpecifier, callerFilePath, analyzer.projectRoot)
		if resolveError != nil {
			resolutionFailed = true
			continue
		}
		if resolvedPath == "" {
			continue
		}
		if analyzer.filter != nil && analyzer.filter.IsExcluded(resolvedPath) {
			continue
		}
		importedSymbols, symbolsError := analyzer.cache.FileSymbols(resolvedPath)
		if symbolsError != nil {
			resolutionFailed = true
			continue
		}
		if importedSymbols.Function(calledName) != nil {
			return builder.expandFunction(executionContext, calledName, resolvedPath, depth, visitedPath)
		}
	}

	if !builder.admitNode() {
		return nil, nil
	}
	leafType := types.NodeTypeExternal
	if resolutionFailed {
		leafType = types.NodeTypeUnresolved
	}
	return &types.DependencyNode{
		Info:  types.FunctionInfo{Name: calledName},
		Type:  leafType,
		Depth: depth,
	}, nil
}

// expandFile builds the node for one file and recursively expands the files
// it imports.
func (builder *treeBuilder) expandFile(executionContext context.Context, filePath string, depth int, visitedPath []string) (*types.DependencyNode, error) {
	if contextError := executionContext.Err(); contextError != nil {
		return nil, contextError
	}
	analyzer := builder.analyzer
	normalizedPath := filepath.Clean(filePath)
	relativeFilePath := utils.RelativePathOrSelf(normalizedPath, analyzer.projectRoot)

	if !builder.admitNode() {
		return nil, nil
	}
	nodeInfo := types.FunctionInfo{
		Name:     filepath.Base(normalizedPath),
		FilePath: relativeFilePath,
	}
	if utils.ContainsString(visitedPath, normalizedPath) {
		return &types.DependencyNode{Info: nodeInfo, Type: types.NodeTypeCycle, Depth: depth}, nil
	}
	if !analyzer.registry.Supports(normalizedPath) {
		return &types.DependencyNode{Info: nodeInfo, Type: types.NodeTypeUnresolved, Depth: depth}, nil
	}

	fileSymbols, symbolsError := analyzer.cache.FileSymbols(normalizedPath)
	if symbolsError != nil {
		analyzer.logger.Warn(logMessageExpansionFailed,
			zap.String(logFieldTargetFile, relativeFilePath),
			zap.String(logFieldFailureReason, symbolsError.Error()))
		return &types.DependencyNode{Info: nodeInfo, Type: types.NodeTypeUnresolved, Depth: depth}, nil
	}

	currentNode := &types.DependencyNode{Info: nodeInfo, Type: types.NodeTypeFile, Depth: depth}
	importSpecifiers := deduplicatePreservingOrder(fileSymbols.Imports)
	if len(importSpecifiers) == 0 {
		return currentNode, nil
	}
	if depth+1 > analyzer.maxDepth {
		builder.truncated.Store(true)
		return currentNode, nil
	}

	branchPath := appendVisited(visitedPath, normalizedPath)
	childNodes := make([]*types.DependencyNode, len(importSpecifiers))
	expansionGroup, groupContext := errgroup.WithContext(executionContext)
	expansionGroup.SetLimit(analyzer.concurrency)
	for importIndex, importSpecifier := range importSpecifiers {
		importIndex, importSpecifier := importIndex, importSpecifier
		expansionGroup.Go(func() error {
			childNode, childError := builder.expandImport(groupContext, importSpecifier, normalizedPath, depth+1, branchPath)
			if childError != nil {
				return childError
			}
			childNodes[importIndex] = childNode
			return nil
		})
	}
	if groupError := expansionGroup.Wait(); groupError != nil {
		return nil, groupError
	}
	for _, childNode := range childNodes {
		if childNode != nil {
			currentNode.Children = append(currentNode.Children, childNode)
		}
	}
	return currentNode, nil
}

// expandImport classifies one import specifier. Specifiers that do not map to
// a project file are external; specifiers whose resolution attempt failed are
// unresolved; resolved project files are expanded recursively.
func (builder *treeBuilder) expandImport(executionContext context.Context, importSpecifier string, importingFilePath string, depth int, visitedPath []string) (*types.DependencyNode, error) {
	analyzer := builder.analyzer

	resolvedPath, resolveError := analyzer.cache.ResolveImport(importSpecifier, importingFilePath, analyzer.projectRoot)
	if resolveError != nil {
		return builder.importLeaf(importSpecifier, types.NodeTypeUnresolved, depth)
	}
	if resolvedPath == "" || (analyzer.filter != nil && analyzer.filter.IsExcluded(resolvedPath)) {
		analyzer.logger.Debug(logMessageImportUnresolved,
			zap.String(logFieldTargetName, importSpecifier),
			zap.String(logFieldTargetFile, utils.RelativePathOrSelf(importingFilePath, analyzer.projectRoot)))
		return builder.importLeaf(importSpecifier, types.NodeTypeExternal, depth)
	}
	if !utils.IsPathWithin(resolvedPath, analyzer.projectRoot) {
		return builder.importLeaf(importSpecifier, types.NodeTypeExternal, depth)
	}
	return builder.expandFile(executionContext, resolvedPath, depth, visitedPath)
}

func (builder *treeBuilder) importLeaf(importSpecifier string, nodeType string, depth int) (*types.DependencyNode, error) {
	if !builder.admitNode() {
		return nil, nil
	}
	return &types.DependencyNode{
		Info:  types.FunctionInfo{Name: importSpecifier},
		Type:  nodeType,
		Depth: depth,
	}, nil
}

// appendVisited extends the branch path without sharing backing storage with
// sibling branches.
func appendVisited(visitedPath []string, visitedKey string) []string {
	return append(visitedPath[:len(visitedPath):len(visitedPath)], visitedKey)
}

// deduplicatePreservingOrder keeps the first occurrence of each value.
func deduplicatePreservingOrder(values []string) []string {
	return utils.DeduplicatePatterns(values)
}

func directoryExists(path string) bool {
	fileInformation, statError := os.Stat(path)
	return statError == nil && fileInformation.IsDir()
}

func fileExistsAt(path string) bool {
	fileInformation, statError := os.Stat(path)
	return statError == nil && fileInformation.Mode().IsRegular()
}
