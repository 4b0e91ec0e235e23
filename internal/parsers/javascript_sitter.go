//go:build cgo

package parsers

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	javascript "github.com/smacker/go-tree-sitter/javascript"

	"github.com/YickelFuboo/moling-coding-service/internal/ignore"
	"github.com/YickelFuboo/moling-coding-service/internal/types"
)

const (
	javaScriptFunctionNodeType     = "function_declaration"
	javaScriptMethodNodeType       = "method_definition"
	javaScriptDeclaratorNodeType   = "variable_declarator"
	javaScriptCallExpressionType   = "call_expression"
	javaScriptMemberExpressionType = "member_expression"
	javaScriptIdentifierNodeType   = "identifier"
	javaScriptNameField            = "name"
	javaScriptValueField           = "value"
	javaScriptBodyField            = "body"
	javaScriptFunctionField        = "function"
	javaScriptPropertyField        = "property"
	javaScriptConstructorName      = "constructor"
)

var javaScriptCallableValueNodeTypes = map[string]struct{}{
	"arrow_function":      {},
	"function":            {},
	"function_expression": {},
	"generator_function":  {},
}

// javaScriptSyntaxParser is the grammar-backed JavaScript variant. Function
// and call extraction use a real tree-sitter parse; imports, resolution, and
// line numbering reuse the pattern-matching variant, whose heuristics are
// already adequate there.
type javaScriptSyntaxParser struct {
	*JavaScriptParser
	parser *sitter.Parser
}

// newJavaScriptSyntaxParser constructs the tree-sitter JavaScript variant.
func newJavaScriptSyntaxParser(filter *ignore.Filter) LanguageParser {
	parser := sitter.NewParser()
	parser.SetLanguage(javascript.GetLanguage())
	return &javaScriptSyntaxParser{
		JavaScriptParser: NewJavaScriptParser(filter),
		parser:           parser,
	}
}

// ExtractFunctions returns declared functions, assigned function values, and
// class methods found in the syntax tree, in source order.
func (syntaxParser *javaScriptSyntaxParser) ExtractFunctions(fileContent string) []types.Function {
	content := []byte(fileContent)
	tree := syntaxParser.parser.Parse(nil, content)
	if tree == nil {
		return syntaxParser.JavaScriptParser.ExtractFunctions(fileContent)
	}
	var extractedFunctions []types.Function
	walkJavaScriptFunctions(tree.RootNode(), content, &extractedFunctions)
	return extractedFunctions
}

func walkJavaScriptFunctions(node *sitter.Node, content []byte, functions *[]types.Function) {
	if node == nil {
		return
	}
	switch node.Type() {
	case javaScriptFunctionNodeType:
		appendJavaScriptFunction(node, node.ChildByFieldName(javaScriptNameField), node, content, functions)
	case javaScriptMethodNodeType:
		nameNode := node.ChildByFieldName(javaScriptNameField)
		if nameNode == nil {
			nameNode = node.ChildByFieldName(javaScriptPropertyField)
		}
		appendJavaScriptFunction(node, nameNode, node, content, functions)
	case javaScriptDeclaratorNodeType:
		valueNode := node.ChildByFieldName(javaScriptValueField)
		if valueNode != nil {
			if _, isCallable := javaScriptCallableValueNodeTypes[valueNode.Type()]; isCallable {
				appendJavaScriptFunction(node, node.ChildByFieldName(javaScriptNameField), valueNode, content, functions)
			}
		}
	}
	for childIndex := 0; childIndex < int(node.ChildCount()); childIndex++ {
		walkJavaScriptFunctions(node.Child(childIndex), content, functions)
	}
}

// appendJavaScriptFunction records one callable. The body is the text of the
// callable's body node so the declaration name never reads as a self call.
func appendJavaScriptFunction(declarationNode *sitter.Node, nameNode *sitter.Node, callableNode *sitter.Node, content []byte, functions *[]types.Function) {
	if nameNode == nil {
		return
	}
	functionName := strings.TrimSpace(string(content[nameNode.StartByte():nameNode.EndByte()]))
	if functionName == "" || functionName == javaScriptConstructorName {
		return
	}
	bodyText := ""
	if bodyNode := callableNode.ChildByFieldName(javaScriptBodyField); bodyNode != nil {
		bodyText = string(content[bodyNode.StartByte():bodyNode.EndByte()])
	}
	*functions = append(*functions, types.Function{
		Name:      functionName,
		Body:      bodyText,
		StartLine: int(declarationNode.StartPoint().Row) + 1,
	})
}

// ExtractFunctionCalls parses the body as a standalone fragment and collects
// call expression targets, member calls yielding the property name.
func (syntaxParser *javaScriptSyntaxParser) ExtractFunctionCalls(functionBody string) []string {
	content := []byte(functionBody)
	tree := syntaxParser.parser.Parse(nil, content)
	if tree == nil {
		return syntaxParser.JavaScriptParser.ExtractFunctionCalls(functionBody)
	}
	var calledNames []string
	var walk func(current *sitter.Node)
	walk = func(current *sitter.Node) {
		if current == nil {
			return
		}
		if current.Type() == javaScriptCallExpressionType {
			targetNode := current.ChildByFieldName(javaScriptFunctionField)
			if calledName := javaScriptCallTargetName(targetNode, content); calledName != "" {
				if !isExcludedName(calledName, javaScriptExcludedCallNames) {
					calledNames = append(calledNames, calledName)
				}
			}
		}
		for childIndex := 0; childIndex < int(current.ChildCount()); childIndex++ {
			walk(current.Child(childIndex))
		}
	}
	walk(tree.RootNode())
	return calledNames
}

func javaScriptCallTargetName(targetNode *sitter.Node, content []byte) string {
	if targetNode == nil {
		return ""
	}
	switch targetNode.Type() {
	case javaScriptIdentifierNodeType:
		return string(content[targetNode.StartByte():targetNode.EndByte()])
	case javaScriptMemberExpressionType:
		propertyNode := targetNode.ChildByFieldName(javaScriptPropertyField)
		if propertyNode != nil {
			return string(content[propertyNode.StartByte():propertyNode.EndByte()])
		}
	}
	return ""
}
