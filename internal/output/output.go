// Package output renders dependency trees as indented text or JSON.
package output

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/YickelFuboo/moling-coding-service/internal/types"
)

const (
	treeBranchConnector     = "├── "
	treeLastBranchConnector = "└── "
	treeNestedPrefix        = "│   "
	treeLastNestedPrefix    = "    "

	truncatedFooterText = "[truncated]"
	nodeCountFooterFmt  = "%d nodes"
)

// RenderJSON returns the tree as indented JSON.
func RenderJSON(tree *types.DependencyTree) (string, error) {
	encoded, encodeError := json.MarshalIndent(tree, "", "  ")
	if encodeError != nil {
		return "", fmt.Errorf("encode dependency tree: %w", encodeError)
	}
	return string(encoded), nil
}

// RenderRaw returns the tree as connector-prefixed text with a summary footer.
func RenderRaw(tree *types.DependencyTree) string {
	var builder strings.Builder
	if tree.Root != nil {
		builder.WriteString(nodeLabel(tree.Root))
		builder.WriteString("\n")
		renderChildren(&builder, tree.Root.Children, "")
	}
	builder.WriteString("\n")
	builder.WriteString(fmt.Sprintf(nodeCountFooterFmt, tree.NodeCount))
	if tree.Truncated {
		builder.WriteString(" ")
		builder.WriteString(truncatedFooterText)
	}
	builder.WriteString("\n")
	return builder.String()
}

func renderChildren(builder *strings.Builder, children []*types.DependencyNode, prefix string) {
	for childIndex, childNode := range children {
		connector := treeBranchConnector
		nestedPrefix := prefix + treeNestedPrefix
		if childIndex == len(children)-1 {
			connector = treeLastBranchConnector
			nestedPrefix = prefix + treeLastNestedPrefix
		}
		builder.WriteString(prefix)
		builder.WriteString(connector)
		builder.WriteString(nodeLabel(childNode))
		builder.WriteString("\n")
		renderChildren(builder, childNode.Children, nestedPrefix)
	}
}

// nodeLabel formats one node. Located functions show file and line, files show
// their path, and the remaining node types carry a bracketed marker.
func nodeLabel(node *types.DependencyNode) string {
	label := node.Info.Name
	switch node.Type {
	case types.NodeTypeFunction:
		if node.Info.FilePath != "" {
			label = fmt.Sprintf("%s (%s:%d)", node.Info.Name, node.Info.FilePath, node.Info.LineNumber)
		}
	case types.NodeTypeFile:
		if node.Info.FilePath != "" {
			label = node.Info.FilePath
		}
	case types.NodeTypeExternal:
		label = node.Info.Name + " [external]"
	case types.NodeTypeUnresolved:
		label = node.Info.Name + " [unresolved]"
	case types.NodeTypeCycle:
		label = node.Info.Name + " [cycle]"
	}
	if node.Tokens > 0 {
		label = fmt.Sprintf("%s (%d tokens)", label, node.Tokens)
	}
	return label
}
