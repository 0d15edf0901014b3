package protocol

import "testing"

func TestLanguageFor(t *testing.T) {
	cases := []struct {
		name     string
		nodeType string
		want     string
	}{
		{"main.py", NodeFile, "python"},
		{"app.js", NodeFile, "javascript"},
		{"styles.css", NodeFile, "css"},
		{"Main.java", NodeFile, "java"},
		{"index.html", NodeFile, "html"},
		{"notes.unknownext", NodeFile, "html"},
		{"README", NodeFile, "html"},
		{"src", NodeFolder, ""},
		{"assets.js", NodeFolder, ""},
	}

	for _, c := range cases {
		got := LanguageFor(c.name, c.nodeType)
		if got != c.want {
			t.Errorf("LanguageFor(%q, %q) = %q, want %q", c.name, c.nodeType, got, c.want)
		}
	}
}

func TestNewFileNode(t *testing.T) {
	node := NewFileNode("script.py", NodeFile)

	if node.Name != "script.py" {
		t.Errorf("Expected name 'script.py', got %q", node.Name)
	}
	if node.Language != "python" {
		t.Errorf("Expected language 'python', got %q", node.Language)
	}
	if node.Content != "" {
		t.Errorf("New file should start empty, got %q", node.Content)
	}

	folder := NewFileNode("src", NodeFolder)
	if folder.Language != "" {
		t.Errorf("Folders should have no language, got %q", folder.Language)
	}
}
