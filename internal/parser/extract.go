package parser

import (
	"bytes"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/scan-io-git/brakit/pkg/shared/ast"
)

// extractor walks the top-level statements of one program.
type extractor struct {
	src     []byte
	summary ast.Summary
}

func extract(root *tree_sitter.Node, src []byte) ast.Summary {
	e := &extractor{src: src}
	inPrologue := true

	for i := uint(0); i < root.NamedChildCount(); i++ {
		stmt := root.NamedChild(i)
		if stmt == nil {
			continue
		}

		// directives are the leading string-literal statements, imports and comments may interleave
		switch {
		case stmt.Kind() == "comment" || stmt.Kind() == "hash_bang_line":
			continue
		case stmt.Kind() == "import_statement":
		case inPrologue:
			if directive, ok := e.directive(stmt); ok {
				e.summary.Directives = append(e.summary.Directives, directive)
				continue
			}
			inPrologue = false
		}

		e.statement(stmt)
	}
	return e.summary
}

func (e *extractor) statement(stmt *tree_sitter.Node) {
	switch stmt.Kind() {
	case "import_statement":
		e.importStatement(stmt)
	case "export_statement":
		e.exportStatement(stmt)
	case "function_declaration", "generator_function_declaration":
		e.function(stmt, e.text(stmt.ChildByFieldName("name")), false)
	case "lexical_declaration", "variable_declaration":
		e.variableFunctions(stmt, false)
	}
}

func (e *extractor) directive(stmt *tree_sitter.Node) (string, bool) {
	if stmt.Kind() != "expression_statement" || stmt.NamedChildCount() != 1 {
		return "", false
	}
	str := stmt.NamedChild(0)
	if str == nil || str.Kind() != "string" {
		return "", false
	}
	return unquote(e.text(str)), true
}

func (e *extractor) importStatement(stmt *tree_sitter.Node) {
	source := stmt.ChildByFieldName("source")
	if source == nil {
		return
	}
	info := ast.ImportInfo{
		Source: unquote(e.text(source)),
		Names:  []string{},
		Line:   e.line(stmt),
	}

	for i := uint(0); i < stmt.NamedChildCount(); i++ {
		clause := stmt.NamedChild(i)
		if clause == nil || clause.Kind() != "import_clause" {
			continue
		}
		for j := uint(0); j < clause.NamedChildCount(); j++ {
			binding := clause.NamedChild(j)
			if binding == nil {
				continue
			}
			switch binding.Kind() {
			case "identifier":
				info.Names = append(info.Names, ast.DefaultImport)
			case "namespace_import":
				info.Names = append(info.Names, ast.NamespaceImport)
			case "named_imports":
				info.Names = append(info.Names, e.specifierNames(binding, "import_specifier", false)...)
			}
		}
	}
	e.summary.Imports = append(e.summary.Imports, info)
}

// specifierNames lists the names of import or export specifiers. Exported names prefer the
// alias, imported names the original binding.
func (e *extractor) specifierNames(list *tree_sitter.Node, kind string, preferAlias bool) []string {
	var names []string
	for i := uint(0); i < list.NamedChildCount(); i++ {
		spec := list.NamedChild(i)
		if spec == nil || spec.Kind() != kind {
			continue
		}
		name := unquote(e.text(spec.ChildByFieldName("name")))
		if alias := spec.ChildByFieldName("alias"); preferAlias && alias != nil {
			name = unquote(e.text(alias))
		}
		if name != "" {
			names = append(names, name)
		}
	}
	return names
}

func (e *extractor) exportStatement(stmt *tree_sitter.Node) {
	line := e.line(stmt)
	isDefault := hasToken(stmt, "default")

	// re-exports also import from their source
	if source := stmt.ChildByFieldName("source"); source != nil {
		e.reExport(stmt, source, line)
		return
	}

	if decl := stmt.ChildByFieldName("declaration"); decl != nil {
		e.exportDeclaration(decl, isDefault, line)
		return
	}

	if value := stmt.ChildByFieldName("value"); value != nil && isDefault {
		kind := exportKindOf(value)
		name := ast.DefaultImport
		if n := value.ChildByFieldName("name"); n != nil && kind != ast.ExportUnknown {
			name = e.text(n)
		}
		e.addExport(name, true, kind, line)
		if kind == ast.ExportFunction {
			e.function(value, e.text(value.ChildByFieldName("name")), true)
		}
		return
	}

	for i := uint(0); i < stmt.NamedChildCount(); i++ {
		clause := stmt.NamedChild(i)
		if clause == nil || clause.Kind() != "export_clause" {
			continue
		}
		for _, name := range e.specifierNames(clause, "export_specifier", true) {
			e.addExport(name, name == ast.DefaultImport, ast.ExportUnknown, line)
		}
	}
}

func (e *extractor) reExport(stmt, source *tree_sitter.Node, line int) {
	info := ast.ImportInfo{Source: unquote(e.text(source)), Names: []string{}, Line: line}

	clauseFound := false
	for i := uint(0); i < stmt.NamedChildCount(); i++ {
		child := stmt.NamedChild(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "export_clause":
			clauseFound = true
			info.Names = append(info.Names, e.specifierNames(child, "export_specifier", false)...)
			for _, name := range e.specifierNames(child, "export_specifier", true) {
				e.addExport(name, name == ast.DefaultImport, ast.ExportUnknown, line)
			}
		case "namespace_export":
			clauseFound = true
			info.Names = append(info.Names, ast.NamespaceImport)
			if id := firstNamed(child); id != nil {
				e.addExport(unquote(e.text(id)), false, ast.ExportUnknown, line)
			}
		}
	}
	if !clauseFound {
		// export * from "x"
		info.Names = append(info.Names, ast.NamespaceImport)
	}
	e.summary.Imports = append(e.summary.Imports, info)
}

func (e *extractor) exportDeclaration(decl *tree_sitter.Node, isDefault bool, line int) {
	switch decl.Kind() {
	case "lexical_declaration", "variable_declaration":
		for i := uint(0); i < decl.NamedChildCount(); i++ {
			declarator := decl.NamedChild(i)
			if declarator == nil || declarator.Kind() != "variable_declarator" {
				continue
			}
			name := declarator.ChildByFieldName("name")
			if name == nil {
				continue
			}
			if name.Kind() != "identifier" {
				// destructured exports bind several names
				e.addExport(e.param(name), isDefault, ast.ExportUnknown, line)
				continue
			}
			e.addExport(e.text(name), isDefault, ast.ExportVariable, line)
		}
		e.variableFunctions(decl, true)
	default:
		name := e.text(decl.ChildByFieldName("name"))
		if name == "" {
			name = ast.DefaultImport
		}
		kind := exportKindOf(decl)
		e.addExport(name, isDefault, kind, line)
		if kind == ast.ExportFunction && decl.Kind() != "function_signature" {
			e.function(decl, e.text(decl.ChildByFieldName("name")), true)
		}
	}
}

func (e *extractor) addExport(name string, isDefault bool, kind ast.ExportKind, line int) {
	e.summary.Exports = append(e.summary.Exports, ast.ExportInfo{
		Name:      name,
		IsDefault: isDefault,
		Kind:      kind,
		Line:      line,
	})
}

// variableFunctions records `const name = () => {}` and `const name = function () {}`.
func (e *extractor) variableFunctions(decl *tree_sitter.Node, exported bool) {
	for i := uint(0); i < decl.NamedChildCount(); i++ {
		declarator := decl.NamedChild(i)
		if declarator == nil || declarator.Kind() != "variable_declarator" {
			continue
		}
		value := declarator.ChildByFieldName("value")
		if value == nil || !isFunctionNode(value.Kind()) {
			continue
		}
		e.function(value, e.text(declarator.ChildByFieldName("name")), exported)
	}
}

func (e *extractor) function(fn *tree_sitter.Node, name string, exported bool) {
	e.summary.Functions = append(e.summary.Functions, ast.FunctionInfo{
		Name:       name,
		Params:     e.params(fn),
		IsAsync:    hasToken(fn, "async"),
		IsExported: exported,
		Line:       e.line(fn),
	})
}

func (e *extractor) params(fn *tree_sitter.Node) []string {
	params := []string{}

	// arrow functions with a single bare parameter
	if single := fn.ChildByFieldName("parameter"); single != nil {
		return append(params, e.param(single))
	}

	list := fn.ChildByFieldName("parameters")
	if list == nil {
		return params
	}
	for i := uint(0); i < list.NamedChildCount(); i++ {
		p := list.NamedChild(i)
		if p == nil || p.Kind() == "comment" {
			continue
		}
		params = append(params, e.param(p))
	}
	return params
}

func (e *extractor) param(p *tree_sitter.Node) string {
	switch p.Kind() {
	case "identifier", "shorthand_property_identifier_pattern", "this":
		return e.text(p)
	case "object_pattern":
		return "{...}"
	case "array_pattern":
		return "[...]"
	case "rest_pattern":
		if inner := firstNamed(p); inner != nil {
			return "..." + e.param(inner)
		}
		return "..."
	case "assignment_pattern":
		if left := p.ChildByFieldName("left"); left != nil {
			return e.param(left)
		}
	case "required_parameter", "optional_parameter":
		if pattern := p.ChildByFieldName("pattern"); pattern != nil {
			return e.param(pattern)
		}
	}
	return e.text(p)
}

func (e *extractor) text(n *tree_sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Utf8Text(e.src)
}

// line is the 1-indexed line of the node's first byte.
func (e *extractor) line(n *tree_sitter.Node) int {
	end := int(n.StartByte())
	if end > len(e.src) {
		end = len(e.src)
	}
	return bytes.Count(e.src[:end], []byte{'\n'}) + 1
}

func exportKindOf(n *tree_sitter.Node) ast.ExportKind {
	switch n.Kind() {
	case "function_declaration", "generator_function_declaration", "function_signature",
		"function_expression", "function", "generator_function", "arrow_function":
		return ast.ExportFunction
	case "class_declaration", "abstract_class_declaration", "class":
		return ast.ExportClass
	case "lexical_declaration", "variable_declaration":
		return ast.ExportVariable
	case "type_alias_declaration", "interface_declaration":
		return ast.ExportType
	default:
		return ast.ExportUnknown
	}
}

func isFunctionNode(kind string) bool {
	switch kind {
	case "arrow_function", "function_expression", "function", "generator_function":
		return true
	}
	return false
}

// hasToken reports whether one of n's direct anonymous children is the given keyword.
func hasToken(n *tree_sitter.Node, token string) bool {
	for i := uint(0); i < n.ChildCount(); i++ {
		child := n.Child(i)
		if child != nil && !child.IsNamed() && child.Kind() == token {
			return true
		}
	}
	return false
}

func firstNamed(n *tree_sitter.Node) *tree_sitter.Node {
	if n.NamedChildCount() == 0 {
		return nil
	}
	return n.NamedChild(0)
}

func unquote(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '"' || first == '\'' || first == '`') && first == last {
			return s[1 : len(s)-1]
		}
	}
	return s
}
