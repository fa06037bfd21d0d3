package config

import (
	"os"
	"path/filepath"
)

// LoadKnowledgeBase reads the knowledge base markdown file referenced by the
// agent configuration. Relative paths resolve against the data directory.
// A missing file is not an error: the agent simply runs without a knowledge
// base.
func (c *Config) LoadKnowledgeBase() (string, error) {
	path := c.Agent.KnowledgeFile
	if path == "" {
		return "", nil
	}

	path = ExpandPath(path)
	if !filepath.IsAbs(path) {
		path = filepath.Join(c.DataDir(), path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}

	return string(data), nil
}
