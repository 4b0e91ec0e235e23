package output_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/YickelFuboo/moling-coding-service/internal/output"
	"github.com/YickelFuboo/moling-coding-service/internal/types"
)

func sampleDependencyTree() *types.DependencyTree {
	return &types.DependencyTree{
		Root: &types.DependencyNode{
			Info: types.FunctionInfo{Name: "main_entry", FilePath: "main.py", LineNumber: 3},
			Type: types.NodeTypeFunction,
			Children: []*types.DependencyNode{
				{
					Info: types.FunctionInfo{Name: "convert", FilePath: "helper.py", LineNumber: 1},
					Type: types.NodeTypeFunction,
					Children: []*types.DependencyNode{
						{Info: types.FunctionInfo{Name: "dumps"}, Type: types.NodeTypeExternal, Depth: 2},
					},
					Depth: 1,
				},
				{Info: types.FunctionInfo{Name: "lookup"}, Type: types.NodeTypeUnresolved, Depth: 1},
				{Info: types.FunctionInfo{Name: "main_entry", FilePath: "main.py", LineNumber: 3}, Type: types.NodeTypeCycle, Depth: 1},
			},
		},
		NodeCount: 5,
		Truncated: false,
	}
}

// TestRenderRaw verifies connector placement, node labels, and the summary
// footer of the text renderer.
func TestRenderRaw(testingInstance *testing.T) {
	rendered := output.RenderRaw(sampleDependencyTree())
	expectedLines := []string{
		"main_entry (main.py:3)",
		"├── convert (helper.py:1)",
		"│   └── dumps [external]",
		"├── lookup [unresolved]",
		"└── main_entry [cycle]",
		"",
		"5 nodes",
	}
	actualLines := strings.Split(strings.TrimRight(rendered, "\n"), "\n")
	if len(actualLines) != len(expectedLines) {
		testingInstance.Fatalf("expected %d lines, got %d:\n%s", len(expectedLines), len(actualLines), rendered)
	}
	for lineIndex, expectedLine := range expectedLines {
		if actualLines[lineIndex] != expectedLine {
			testingInstance.Errorf("line %d: expected %q, got %q", lineIndex, expectedLine, actualLines[lineIndex])
		}
	}
}

// TestRenderRawTruncatedFooter verifies the truncation marker.
func TestRenderRawTruncatedFooter(testingInstance *testing.T) {
	truncatedTree := sampleDependencyTree()
	truncatedTree.Truncated = true
	rendered := output.RenderRaw(truncatedTree)
	if !strings.Contains(rendered, "5 nodes [truncated]") {
		testingInstance.Errorf("expected a truncated footer, got:\n%s", rendered)
	}
}

// TestRenderRawTokenSuffix verifies the token count suffix on labels.
func TestRenderRawTokenSuffix(testingInstance *testing.T) {
	annotatedTree := sampleDependencyTree()
	annotatedTree.Root.Tokens = 42
	rendered := output.RenderRaw(annotatedTree)
	if !strings.HasPrefix(rendered, "main_entry (main.py:3) (42 tokens)\n") {
		testingInstance.Errorf("expected a token suffix on the root label, got:\n%s", rendered)
	}
}

// TestRenderJSON verifies the JSON shape and field naming.
func TestRenderJSON(testingInstance *testing.T) {
	rendered, renderError := output.RenderJSON(sampleDependencyTree())
	if renderError != nil {
		testingInstance.Fatalf("unexpected error: %v", renderError)
	}
	var decoded map[string]any
	if decodeError := json.Unmarshal([]byte(rendered), &decoded); decodeError != nil {
		testingInstance.Fatalf("expected valid JSON: %v", decodeError)
	}
	if nodeCount, hasCount := decoded["nodeCount"].(float64); !hasCount || int(nodeCount) != 5 {
		testingInstance.Errorf("expected nodeCount 5, got %v", decoded["nodeCount"])
	}
	rootValue, hasRoot := decoded["root"].(map[string]any)
	if !hasRoot {
		testingInstance.Fatalf("expected a root object, got %v", decoded["root"])
	}
	if rootValue["nodeType"] != types.NodeTypeFunction {
		testingInstance.Errorf("expected a function root, got %v", rootValue["nodeType"])
	}
	rootInfo, hasInfo := rootValue["info"].(map[string]any)
	if !hasInfo || rootInfo["name"] != "main_entry" || rootInfo["filePath"] != "main.py" {
		testingInstance.Errorf("expected root info for main_entry in main.py, got %v", rootValue["info"])
	}
	childList, hasChildren := rootValue["children"].([]any)
	if !hasChildren || len(childList) != 3 {
		testingInstance.Errorf("expected three children, got %v", rootValue["children"])
	}
}
