package claude

import (
	"os"
	"path/filepath"
)

// ProjectDir represents a discovered project directory under ~/.claude/projects/.
type ProjectDir struct {
	Path string
	Name string
}

// ListProjects lists directories under ~/.claude/projects/.
// Each directory represents a project that Claude has been used with.
func ListProjects(claudeHome string) ([]ProjectDir, error) {
	dir := filepath.Join(claudeHome, "projects")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var projects []ProjectDir
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		projects = append(projects, ProjectDir{
			Path: filepath.Join(dir, entry.Name()),
			Name: entry.Name(),
		})
	}
	return projects, nil
}

// projectsFor narrows ListProjects to the directory of a single working
// directory when projectPath is set.
func projectsFor(claudeHome, projectPath string) ([]ProjectDir, error) {
	if projectPath == "" {
		return ListProjects(claudeHome)
	}
	name := ProjectDirName(projectPath)
	path := filepath.Join(claudeHome, "projects", name)
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	if !info.IsDir() {
		return nil, nil
	}
	return []ProjectDir{{Path: path, Name: name}}, nil
}
