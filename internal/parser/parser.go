package parser

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/hogwarts-cloud/stackctl/internal/models"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "config.yml"

var ErrConfigNotFound = errors.New("configuration file does not exist")

func Parse(path string) (*models.Document, error) {
	content, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return parseDocument(content)
}

func parseDocument(content []byte) (*models.Document, error) {
	document := new(models.Document)
	if err := yaml.Unmarshal(content, document); err != nil {
		return nil, fmt.Errorf("failed to unmarshal document: %w", err)
	}

	return document, nil
}
