package agent

import (
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// PromptManager loads system prompt overrides from a directory. A file named
// <agent>.md replaces that agent's built-in prompt; shared.md, when present,
// is appended to every prompt.
type PromptManager struct {
	Directory string
}

func NewPromptManager(dir string) *PromptManager {
	return &PromptManager{Directory: dir}
}

// Resolve returns the system prompt for the named agent.
func (pm *PromptManager) Resolve(name, builtin string) string {
	if pm == nil || pm.Directory == "" {
		return builtin
	}

	prompt := builtin
	if override, ok := pm.read(name + ".md"); ok {
		prompt = override
	}
	if shared, ok := pm.read("shared.md"); ok {
		prompt = prompt + "\n\n---\n\n" + shared
	}
	return prompt
}

// Overrides lists the agent names that have an override file, sorted.
func (pm *PromptManager) Overrides() []string {
	if pm == nil || pm.Directory == "" {
		return nil
	}
	entries, err := os.ReadDir(pm.Directory)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		n := e.Name()
		if e.IsDir() || !strings.HasSuffix(n, ".md") || n == "shared.md" {
			continue
		}
		names = append(names, strings.TrimSuffix(n, ".md"))
	}
	sort.Strings(names)
	return names
}

func (pm *PromptManager) read(file string) (string, bool) {
	path := filepath.Join(pm.Directory, file)
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Warning: Failed to read prompt file %s: %v", path, err)
		}
		return "", false
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", false
	}
	return text, true
}
