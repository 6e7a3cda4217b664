// Package ast holds the structural summary extracted from one source file.
package ast

// Binding names recorded for non-named imports.
const (
	DefaultImport   = "default"
	NamespaceImport = "*"
)

// ExportKind classifies the declaration behind an export.
type ExportKind string

const (
	ExportFunction ExportKind = "function"
	ExportClass    ExportKind = "class"
	ExportVariable ExportKind = "variable"
	ExportType     ExportKind = "type"
	ExportUnknown  ExportKind = "unknown"
)

// ImportInfo describes one import declaration.
type ImportInfo struct {
	Source string   `json:"source"`
	Names  []string `json:"names"`
	Line   int      `json:"line"`
}

// ExportInfo describes one exported binding.
type ExportInfo struct {
	Name      string     `json:"name"`
	IsDefault bool       `json:"is_default"`
	Kind      ExportKind `json:"kind"`
	Line      int        `json:"line"`
}

// FunctionInfo describes one top-level function. Name is empty for anonymous functions.
type FunctionInfo struct {
	Name       string   `json:"name,omitempty"`
	Params     []string `json:"params"`
	IsAsync    bool     `json:"is_async"`
	IsExported bool     `json:"is_exported"`
	Line       int      `json:"line"`
}

// Summary is the structural summary of a file. The zero value is the summary of a file
// that could not be parsed.
type Summary struct {
	Imports    []ImportInfo   `json:"imports"`
	Exports    []ExportInfo   `json:"exports"`
	Functions  []FunctionInfo `json:"functions"`
	Directives []string       `json:"directives"`
}

// IsEmpty reports whether the summary carries no structural signal.
func (s Summary) IsEmpty() bool {
	return len(s.Imports) == 0 && len(s.Exports) == 0 && len(s.Functions) == 0 && len(s.Directives) == 0
}

// HasDirective reports whether the file starts with the given directive, e.g. "use client".
func (s Summary) HasDirective(directive string) bool {
	for _, d := range s.Directives {
		if d == directive {
			return true
		}
	}
	return false
}

// Clone returns a deep copy, so a rule can never reach the pipeline's own slices.
func (s Summary) Clone() Summary {
	out := Summary{
		Imports:    make([]ImportInfo, len(s.Imports)),
		Exports:    append([]ExportInfo(nil), s.Exports...),
		Functions:  make([]FunctionInfo, len(s.Functions)),
		Directives: append([]string(nil), s.Directives...),
	}
	for i, imp := range s.Imports {
		imp.Names = append([]string(nil), imp.Names...)
		out.Imports[i] = imp
	}
	for i, fn := range s.Functions {
		fn.Params = append([]string(nil), fn.Params...)
		out.Functions[i] = fn
	}
	if s.Imports == nil {
		out.Imports = nil
	}
	if s.Functions == nil {
		out.Functions = nil
	}
	return out
}

// ImportsFrom reports whether any import's module specifier equals source.
func (s Summary) ImportsFrom(source string) bool {
	for _, imp := range s.Imports {
		if imp.Source == source {
			return true
		}
	}
	return false
}

// Export returns the export with the given name.
func (s Summary) Export(name string) (ExportInfo, bool) {
	for _, exp := range s.Exports {
		if exp.Name == name {
			return exp, true
		}
	}
	return ExportInfo{}, false
}

// DefaultExport returns the file's default export, whatever its local name.
func (s Summary) DefaultExport() (ExportInfo, bool) {
	for _, exp := range s.Exports {
		if exp.IsDefault {
			return exp, true
		}
	}
	return ExportInfo{}, false
}

func (s Summary) HasDefaultExport() bool {
	_, ok := s.DefaultExport()
	return ok
}
