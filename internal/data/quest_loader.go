package data

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadQuestTemplates reads quest content from a YAML file and builds a Store.
func LoadQuestTemplates(path string) (*Store, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading quest templates %s: %w", path, err)
	}

	store, err := ParseQuestTemplates(raw)
	if err != nil {
		return nil, fmt.Errorf("loading quest templates %s: %w", path, err)
	}

	slog.Info("loaded quest templates",
		"path", path,
		"quests", store.QuestCount(),
		"exclusiveGroups", len(store.exclusiveGroups),
		"packages", len(store.packages))
	return store, nil
}

// ParseQuestTemplates decodes YAML content and builds a Store.
// Unknown keys are rejected so typos in content files surface at startup.
func ParseQuestTemplates(raw []byte) (*Store, error) {
	var content StoreContent
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&content); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing yaml: %w", err)
	}
	return NewStore(content)
}
