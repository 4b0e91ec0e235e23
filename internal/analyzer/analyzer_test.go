package analyzer_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/YickelFuboo/moling-coding-service/internal/analyzer"
	"github.com/YickelFuboo/moling-coding-service/internal/ignore"
	"github.com/YickelFuboo/moling-coding-service/internal/output"
	"github.com/YickelFuboo/moling-coding-service/internal/parsers"
	"github.com/YickelFuboo/moling-coding-service/internal/symbolcache"
	"github.com/YickelFuboo/moling-coding-service/internal/types"
)

func writeAnalyzerTestFile(testingInstance *testing.T, path string, content string) {
	testingInstance.Helper()
	if directoryError := os.MkdirAll(filepath.Dir(path), 0755); directoryError != nil {
		testingInstance.Fatalf("failed to create directory: %v", directoryError)
	}
	if writeError := os.WriteFile(path, []byte(content), 0600); writeError != nil {
		testingInstance.Fatalf("failed to write file: %v", writeError)
	}
}

func buildTestAnalyzer(testingInstance *testing.T, projectRoot string, settings analyzer.Settings) *analyzer.Analyzer {
	testingInstance.Helper()
	settings.ProjectRoot = projectRoot
	pathFilter, filterError := ignore.NewFilter(projectRoot, ignore.Options{ExcludedFolders: []string{"node_modules"}})
	if filterError != nil {
		testingInstance.Fatalf("failed to build filter: %v", filterError)
	}
	parserRegistry := parsers.NewRegistry(pathFilter)
	symbolCache := symbolcache.NewCache(parserRegistry)
	treeAnalyzer, analyzerError := analyzer.New(settings, parserRegistry, symbolCache, pathFilter, zap.NewNop())
	if analyzerError != nil {
		testingInstance.Fatalf("failed to build analyzer: %v", analyzerError)
	}
	return treeAnalyzer
}

func collectNodes(node *types.DependencyNode, visit func(*types.DependencyNode)) {
	if node == nil {
		return
	}
	visit(node)
	for _, childNode := range node.Children {
		collectNodes(childNode, visit)
	}
}

// TestFunctionWithoutCallsYieldsSingleNode verifies the smallest possible tree.
func TestFunctionWithoutCallsYieldsSingleNode(testingInstance *testing.T) {
	projectRoot := testingInstance.TempDir()
	targetFile := filepath.Join(projectRoot, "module.py")
	writeAnalyzerTestFile(testingInstance, targetFile, "def alone():\n    return 1\n")

	treeAnalyzer := buildTestAnalyzer(testingInstance, projectRoot, analyzer.Settings{})
	dependencyTree, analysisError := treeAnalyzer.AnalyzeFunction(context.Background(), targetFile, "alone")
	if analysisError != nil {
		testingInstance.Fatalf("unexpected error: %v", analysisError)
	}
	if dependencyTree.NodeCount != 1 {
		testingInstance.Errorf("expected node count 1, got %d", dependencyTree.NodeCount)
	}
	if dependencyTree.Truncated {
		testingInstance.Errorf("expected tree not to be truncated")
	}
	if dependencyTree.Root.Type != types.NodeTypeFunction || len(dependencyTree.Root.Children) != 0 {
		testingInstance.Errorf("expected a single function node, got %+v", dependencyTree.Root)
	}
}

// TestSelfRecursionYieldsCycleChild verifies direct recursion handling.
func TestSelfRecursionYieldsCycleChild(testingInstance *testing.T) {
	projectRoot := testingInstance.TempDir()
	targetFile := filepath.Join(projectRoot, "module.py")
	writeAnalyzerTestFile(testingInstance, targetFile, "def loop(n):\n    return loop(n)\n")

	treeAnalyzer := buildTestAnalyzer(testingInstance, projectRoot, analyzer.Settings{})
	dependencyTree, analysisError := treeAnalyzer.AnalyzeFunction(context.Background(), targetFile, "loop")
	if analysisError != nil {
		testingInstance.Fatalf("unexpected error: %v", analysisError)
	}
	if len(dependencyTree.Root.Children) != 1 {
		testingInstance.Fatalf("expected one child, got %d", len(dependencyTree.Root.Children))
	}
	cycleNode := dependencyTree.Root.Children[0]
	if cycleNode.Type != types.NodeTypeCycle {
		testingInstance.Errorf("expected a cycle node, got %s", cycleNode.Type)
	}
	if len(cycleNode.Children) != 0 {
		testingInstance.Errorf("cycle nodes must not have children")
	}
	if cycleNode.Info.Name != "loop" {
		testingInstance.Errorf("expected the cycle node to name loop, got %s", cycleNode.Info.Name)
	}
}

// TestMutualRecursionStopsAtCycle verifies indirect recursion handling.
func TestMutualRecursionStopsAtCycle(testingInstance *testing.T) {
	projectRoot := testingInstance.TempDir()
	targetFile := filepath.Join(projectRoot, "module.py")
	writeAnalyzerTestFile(testingInstance, targetFile, "def ping(n):\n    return pong(n)\n\ndef pong(n):\n    return ping(n)\n")

	treeAnalyzer := buildTestAnalyzer(testingInstance, projectRoot, analyzer.Settings{})
	dependencyTree, analysisError := treeAnalyzer.AnalyzeFunction(context.Background(), targetFile, "ping")
	if analysisError != nil {
		testingInstance.Fatalf("unexpected error: %v", analysisError)
	}
	pongNode := dependencyTree.Root.Children[0]
	if pongNode.Info.Name != "pong" || pongNode.Type != types.NodeTypeFunction {
		testingInstance.Fatalf("expected a pong function node, got %+v", pongNode)
	}
	if len(pongNode.Children) != 1 || pongNode.Children[0].Type != types.NodeTypeCycle {
		testingInstance.Errorf("expected pong to end in a cycle node, got %+v", pongNode.Children)
	}
}

// TestUndeclaredCallBecomesExternalLeaf verifies classification of calls with
// no locatable definition.
func TestUndeclaredCallBecomesExternalLeaf(testingInstance *testing.T) {
	projectRoot := testingInstance.TempDir()
	targetFile := filepath.Join(projectRoot, "module.py")
	writeAnalyzerTestFile(testingInstance, targetFile, "def solo():\n    return mystery(1)\n")

	treeAnalyzer := buildTestAnalyzer(testingInstance, projectRoot, analyzer.Settings{})
	dependencyTree, analysisError := treeAnalyzer.AnalyzeFunction(context.Background(), targetFile, "solo")
	if analysisError != nil {
		testingInstance.Fatalf("unexpected error: %v", analysisError)
	}
	if len(dependencyTree.Root.Children) != 1 {
		testingInstance.Fatalf("expected one child, got %d", len(dependencyTree.Root.Children))
	}
	leafNode := dependencyTree.Root.Children[0]
	if leafNode.Type != types.NodeTypeExternal || leafNode.Info.Name != "mystery" {
		testingInstance.Errorf("expected an external leaf for mystery, got %+v", leafNode)
	}
}

// TestCrossFileCallFollowsImports verifies that calls resolve through the
// caller's imports in source order.
func TestCrossFileCallFollowsImports(testingInstance *testing.T) {
	projectRoot := testingInstance.TempDir()
	targetFile := filepath.Join(projectRoot, "main.py")
	writeAnalyzerTestFile(testingInstance, targetFile, "import helper\n\ndef main_entry():\n    return helper.convert(1)\n")
	writeAnalyzerTestFile(testingInstance, filepath.Join(projectRoot, "helper.py"), "def convert(value):\n    return value\n")

	treeAnalyzer := buildTestAnalyzer(testingInstance, projectRoot, analyzer.Settings{})
	dependencyTree, analysisError := treeAnalyzer.AnalyzeFunction(context.Background(), targetFile, "main_entry")
	if analysisError != nil {
		testingInstance.Fatalf("unexpected error: %v", analysisError)
	}
	if len(dependencyTree.Root.Children) != 1 {
		testingInstance.Fatalf("expected one child, got %d", len(dependencyTree.Root.Children))
	}
	convertNode := dependencyTree.Root.Children[0]
	if convertNode.Type != types.NodeTypeFunction || convertNode.Info.Name != "convert" {
		testingInstance.Fatalf("expected a convert function node, got %+v", convertNode)
	}
	if convertNode.Info.FilePath != "helper.py" {
		testingInstance.Errorf("expected convert to be located in helper.py, got %s", convertNode.Info.FilePath)
	}
}

// TestDepthCeilingTruncates verifies that no node exceeds the depth ceiling
// and that cutting a branch marks the tree truncated.
func TestDepthCeilingTruncates(testingInstance *testing.T) {
	projectRoot := testingInstance.TempDir()
	targetFile := filepath.Join(projectRoot, "module.py")
	var chainBuilder strings.Builder
	for functionIndex := 1; functionIndex < 7; functionIndex++ {
		chainBuilder.WriteString("def f" + strconv.Itoa(functionIndex) + "(n):\n    return f" + strconv.Itoa(functionIndex+1) + "(n)\n\n")
	}
	chainBuilder.WriteString("def f7(n):\n    return n\n")
	writeAnalyzerTestFile(testingInstance, targetFile, chainBuilder.String())

	treeAnalyzer := buildTestAnalyzer(testingInstance, projectRoot, analyzer.Settings{MaxDepth: 3})
	dependencyTree, analysisError := treeAnalyzer.AnalyzeFunction(context.Background(), targetFile, "f1")
	if analysisError != nil {
		testingInstance.Fatalf("unexpected error: %v", analysisError)
	}
	if !dependencyTree.Truncated {
		testingInstance.Errorf("expected the tree to be truncated")
	}
	maximumDepth := 0
	collectNodes(dependencyTree.Root, func(node *types.DependencyNode) {
		if node.Depth > maximumDepth {
			maximumDepth = node.Depth
		}
	})
	if maximumDepth > 3 {
		testingInstance.Errorf("expected no node deeper than 3, got %d", maximumDepth)
	}
}

// TestNodeCeilingTruncates verifies the total node budget.
func TestNodeCeilingTruncates(testingInstance *testing.T) {
	projectRoot := testingInstance.TempDir()
	targetFile := filepath.Join(projectRoot, "module.py")
	writeAnalyzerTestFile(testingInstance, targetFile, "def fanout():\n    a1(); a2(); a3(); a4(); a5(); a6(); a7(); a8(); a9(); b1()\n")

	treeAnalyzer := buildTestAnalyzer(testingInstance, projectRoot, analyzer.Settings{MaxNodes: 5})
	dependencyTree, analysisError := treeAnalyzer.AnalyzeFunction(context.Background(), targetFile, "fanout")
	if analysisError != nil {
		testingInstance.Fatalf("unexpected error: %v", analysisError)
	}
	if !dependencyTree.Truncated {
		testingInstance.Errorf("expected the tree to be truncated")
	}
	if dependencyTree.NodeCount != 5 {
		testingInstance.Errorf("expected the node count to stop at 5, got %d", dependencyTree.NodeCount)
	}
}

// TestFileModeBuildsImportTree verifies file expansion with cycle and external
// classification.
func TestFileModeBuildsImportTree(testingInstance *testing.T) {
	projectRoot := testingInstance.TempDir()
	fileA := filepath.Join(projectRoot, "a.py")
	writeAnalyzerTestFile(testingInstance, fileA, "import b\nimport os\n")
	writeAnalyzerTestFile(testingInstance, filepath.Join(projectRoot, "b.py"), "import a\n")

	treeAnalyzer := buildTestAnalyzer(testingInstance, projectRoot, analyzer.Settings{})
	dependencyTree, analysisError := treeAnalyzer.AnalyzeFile(context.Background(), fileA)
	if analysisError != nil {
		testingInstance.Fatalf("unexpected error: %v", analysisError)
	}
	rootNode := dependencyTree.Root
	if rootNode.Type != types.NodeTypeFile || len(rootNode.Children) != 2 {
		testingInstance.Fatalf("expected a file root with two children, got %+v", rootNode)
	}
	importedB := rootNode.Children[0]
	if importedB.Type != types.NodeTypeFile || importedB.Info.Name != "b.py" {
		testingInstance.Fatalf("expected b.py as the first child, got %+v", importedB)
	}
	if len(importedB.Children) != 1 || importedB.Children[0].Type != types.NodeTypeCycle {
		testingInstance.Errorf("expected b.py to cycle back, got %+v", importedB.Children)
	}
	externalOS := rootNode.Children[1]
	if externalOS.Type != types.NodeTypeExternal || externalOS.Info.Name != "os" {
		testingInstance.Errorf("expected os as an external leaf, got %+v", externalOS)
	}
}

// TestFileModeIsIdempotent verifies that repeated runs over an unchanged tree
// render identically.
func TestFileModeIsIdempotent(testingInstance *testing.T) {
	projectRoot := testingInstance.TempDir()
	fileA := filepath.Join(projectRoot, "a.py")
	writeAnalyzerTestFile(testingInstance, fileA, "import b\nimport c\n")
	writeAnalyzerTestFile(testingInstance, filepath.Join(projectRoot, "b.py"), "import c\n")
	writeAnalyzerTestFile(testingInstance, filepath.Join(projectRoot, "c.py"), "import os\n")

	renderRun := func() string {
		treeAnalyzer := buildTestAnalyzer(testingInstance, projectRoot, analyzer.Settings{})
		dependencyTree, analysisError := treeAnalyzer.AnalyzeFile(context.Background(), fileA)
		if analysisError != nil {
			testingInstance.Fatalf("unexpected error: %v", analysisError)
		}
		rendered, renderError := output.RenderJSON(dependencyTree)
		if renderError != nil {
			testingInstance.Fatalf("unexpected error: %v", renderError)
		}
		return rendered
	}
	if firstRun, secondRun := renderRun(), renderRun(); firstRun != secondRun {
		testingInstance.Errorf("expected identical output across runs:\n%s\n---\n%s", firstRun, secondRun)
	}
}

// TestInvalidRootIsFatal verifies the fatal error classification.
func TestInvalidRootIsFatal(testingInstance *testing.T) {
	projectRoot := testingInstance.TempDir()
	existingFile := filepath.Join(projectRoot, "module.py")
	writeAnalyzerTestFile(testingInstance, existingFile, "def here():\n    return 1\n")
	treeAnalyzer := buildTestAnalyzer(testingInstance, projectRoot, analyzer.Settings{})

	if _, analysisError := treeAnalyzer.AnalyzeFunction(context.Background(), filepath.Join(projectRoot, "missing.py"), "main"); !errors.Is(analysisError, analyzer.ErrInvalidRoot) {
		testingInstance.Errorf("expected ErrInvalidRoot for a missing file, got %v", analysisError)
	}
	outsideFile := filepath.Join(testingInstance.TempDir(), "outside.py")
	writeAnalyzerTestFile(testingInstance, outsideFile, "def out():\n    return 1\n")
	if _, analysisError := treeAnalyzer.AnalyzeFile(context.Background(), outsideFile); !errors.Is(analysisError, analyzer.ErrInvalidRoot) {
		testingInstance.Errorf("expected ErrInvalidRoot for a file outside the root, got %v", analysisError)
	}
}

// TestMissingFunctionYieldsUnresolvedRoot verifies that a target function not
// declared in the file produces a single-node tree instead of an error.
func TestMissingFunctionYieldsUnresolvedRoot(testingInstance *testing.T) {
	projectRoot := testingInstance.TempDir()
	existingFile := filepath.Join(projectRoot, "module.py")
	writeAnalyzerTestFile(testingInstance, existingFile, "def here():\n    return 1\n")
	treeAnalyzer := buildTestAnalyzer(testingInstance, projectRoot, analyzer.Settings{})

	dependencyTree, analysisError := treeAnalyzer.AnalyzeFunction(context.Background(), existingFile, "absent")
	if analysisError != nil {
		testingInstance.Fatalf("unexpected error: %v", analysisError)
	}
	if dependencyTree.Root.Type != types.NodeTypeUnresolved || dependencyTree.NodeCount != 1 {
		testingInstance.Errorf("expected a single unresolved root, got %+v", dependencyTree)
	}
}
