package protocol

import "strings"

// FileNode kinds
const (
	NodeFile   = "file"
	NodeFolder = "folder"
)

// A named file or folder entry within a room's file tree.
// Name is the mutation key and is unique within a room.
type FileNode struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Language string `json:"language,omitempty"`
	Content  string `json:"content"`
}

// LanguageFor derives the editor language tag from a file extension.
// Folders carry no language.
func LanguageFor(fileName, nodeType string) string {
	if nodeType == NodeFolder {
		return ""
	}

	ext := fileName
	if i := strings.LastIndex(fileName, "."); i >= 0 {
		ext = fileName[i+1:]
	}

	switch ext {
	case "js":
		return "javascript"
	case "css":
		return "css"
	case "py":
		return "python"
	case "java":
		return "java"
	default:
		return "html"
	}
}

// NewFileNode builds the canonical node for a newly created entry.
func NewFileNode(name, nodeType string) FileNode {
	return FileNode{
		Name:     name,
		Type:     nodeType,
		Language: LanguageFor(name, nodeType),
		Content:  "",
	}
}
