package source

import (
	"path/filepath"
	"strings"
)

// Language identifies a source language the extractor understands.
type Language string

const (
	LangCSharp Language = "csharp"
	LangGo     Language = "go"
	LangJava   Language = "java"
)

// LanguageFromExtension maps a file extension to a Language.
func LanguageFromExtension(ext string) (Language, bool) {
	switch strings.ToLower(ext) {
	case ".cs":
		return LangCSharp, true
	case ".go":
		return LangGo, true
	case ".java":
		return LangJava, true
	default:
		return "", false
	}
}

// LanguageFromPath maps a file path to a Language by extension.
func LanguageFromPath(path string) (Language, bool) {
	return LanguageFromExtension(filepath.Ext(path))
}
