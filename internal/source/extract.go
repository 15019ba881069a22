//go:build cgo

package source

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/csharp"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
)

// TreeSitterExtractor finds top-level type declarations with tree-sitter.
// A parser is not safe for concurrent use; the extractor creates one per call.
type TreeSitterExtractor struct{}

// NewTreeSitterExtractor creates a tree-sitter backed extractor.
func NewTreeSitterExtractor() Extractor {
	return &TreeSitterExtractor{}
}

// ExtractorAvailable reports whether tree-sitter extraction is compiled in.
func ExtractorAvailable() bool {
	return true
}

// Extract returns the fully qualified names of the top-level types declared
// in src, in declaration order.
func (e *TreeSitterExtractor) Extract(ctx context.Context, lang Language, src []byte) ([]string, error) {
	tsLang, err := getLanguage(lang)
	if err != nil {
		return nil, err
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(tsLang)

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	switch lang {
	case LangCSharp:
		var names []string
		collectCSharp(root, src, "", &names)
		return names, nil
	case LangGo:
		return collectGo(root, src), nil
	case LangJava:
		return collectJava(root, src), nil
	default:
		return nil, fmt.Errorf("unsupported language: %s", lang)
	}
}

func getLanguage(lang Language) (*sitter.Language, error) {
	switch lang {
	case LangCSharp:
		return csharp.GetLanguage(), nil
	case LangGo:
		return golang.GetLanguage(), nil
	case LangJava:
		return java.GetLanguage(), nil
	default:
		return nil, fmt.Errorf("unsupported language: %s", lang)
	}
}

var csharpTypeNodes = map[string]bool{
	"class_declaration":     true,
	"struct_declaration":    true,
	"interface_declaration": true,
	"enum_declaration":      true,
	"record_declaration":    true,
	"delegate_declaration":  true,
}

// collectCSharp walks namespaces (block and file scoped) but not type bodies,
// so nested types are skipped.
func collectCSharp(node *sitter.Node, src []byte, namespace string, out *[]string) {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch {
		case child.Type() == "namespace_declaration":
			ns := qualify(namespace, fieldText(child, "name", src))
			if body := child.ChildByFieldName("body"); body != nil {
				collectCSharp(body, src, ns, out)
			}
		case child.Type() == "file_scoped_namespace_declaration":
			// Declarations after a file-scoped namespace may be siblings
			// or children depending on grammar version.
			namespace = qualify(namespace, fieldText(child, "name", src))
			collectCSharp(child, src, namespace, out)
		case csharpTypeNodes[child.Type()]:
			if name := fieldText(child, "name", src); name != "" {
				*out = append(*out, qualify(namespace, name))
			}
		case child.Type() == "declaration_list":
			collectCSharp(child, src, namespace, out)
		}
	}
}

func collectGo(root *sitter.Node, src []byte) []string {
	var pkg string
	var names []string
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		switch child.Type() {
		case "package_clause":
			for j := 0; j < int(child.NamedChildCount()); j++ {
				if id := child.NamedChild(j); id.Type() == "package_identifier" {
					pkg = id.Content(src)
				}
			}
		case "type_declaration":
			for j := 0; j < int(child.NamedChildCount()); j++ {
				spec := child.NamedChild(j)
				if spec.Type() != "type_spec" && spec.Type() != "type_alias" {
					continue
				}
				if name := fieldText(spec, "name", src); name != "" {
					names = append(names, qualify(pkg, name))
				}
			}
		}
	}
	return names
}

var javaTypeNodes = map[string]bool{
	"class_declaration":           true,
	"interface_declaration":       true,
	"enum_declaration":            true,
	"record_declaration":          true,
	"annotation_type_declaration": true,
}

func collectJava(root *sitter.Node, src []byte) []string {
	var pkg string
	var names []string
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		switch {
		case child.Type() == "package_declaration":
			for j := 0; j < int(child.NamedChildCount()); j++ {
				id := child.NamedChild(j)
				if id.Type() == "scoped_identifier" || id.Type() == "identifier" {
					pkg = id.Content(src)
				}
			}
		case javaTypeNodes[child.Type()]:
			if name := fieldText(child, "name", src); name != "" {
				names = append(names, qualify(pkg, name))
			}
		}
	}
	return names
}

func fieldText(node *sitter.Node, field string, src []byte) string {
	n := node.ChildByFieldName(field)
	if n == nil {
		return ""
	}
	return strings.TrimSpace(n.Content(src))
}

func qualify(prefix, name string) string {
	if prefix == "" {
		return name
	}
	if name == "" {
		return prefix
	}
	return prefix + "." + name
}
