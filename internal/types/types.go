// Package types defines every cross-package data structure used by the codemap analyzer.
package types

const (
	// NodeTypeFunction marks a call target that was located inside the project tree.
	NodeTypeFunction = "function"
	// NodeTypeFile marks an import target that was located inside the project tree.
	NodeTypeFile = "file"
	// NodeTypeExternal marks a call or import that resolved to a name outside the
	// project, such as a standard library or third-party package.
	NodeTypeExternal = "external"
	// NodeTypeUnresolved marks a name the resolver attempted but could not classify.
	NodeTypeUnresolved = "unresolved"
	// NodeTypeCycle marks a node whose key already appears on the current path.
	// Expansion stops there; a cycle node never has children.
	NodeTypeCycle = "cycle"

	FormatRaw  = "raw"
	FormatJSON = "json"
)

// Function is a syntactically extracted function or method. Body holds the raw
// text between the declaration's delimiters and is used both to find nested
// calls and to re-locate the function for line numbering.
type Function struct {
	Name      string `json:"name"`
	Body      string `json:"body"`
	StartLine int    `json:"startLine"`
}

// FunctionInfo identifies a function independently of its body. It is the
// graph-node key used for de-duplication and visited-path membership.
type FunctionInfo struct {
	Name       string `json:"name"`
	FilePath   string `json:"filePath"`
	LineNumber int    `json:"lineNumber"`
}

// DependencyNode is one node of a dependency tree. Ownership is strictly
// tree-shaped: each child belongs to exactly one parent and there are no
// back-pointers in the serialized structure.
type DependencyNode struct {
	Info     FunctionInfo      `json:"info"`
	Type     string            `json:"nodeType"`
	Depth    int               `json:"depth"`
	Tokens   int               `json:"tokens,omitempty"`
	Children []*DependencyNode `json:"children,omitempty"`
}

// DependencyTree is the result of one analysis request. Truncated reports that
// the depth or node-count ceiling stopped expansion before all paths resolved.
type DependencyTree struct {
	Root      *DependencyNode `json:"root"`
	NodeCount int             `json:"nodeCount"`
	Truncated bool            `json:"truncated"`
}
