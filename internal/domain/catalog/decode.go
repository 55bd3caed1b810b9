package catalog

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/goccy/go-yaml"

	"github.com/Smallzoamz/Bonchon-Studio/internal/shared/types"
	"github.com/Smallzoamz/Bonchon-Studio/internal/shared/utils"
)

// ErrEmptyDocument is returned for a catalog document without content
var ErrEmptyDocument = errors.New("empty catalog document")

// Decode parses a catalog document. JSON is the published format; YAML is
// accepted for hand-maintained catalogs. Entries with an invalid id are
// dropped and the first entry wins for duplicate ids.
func Decode(data []byte) (types.Catalog, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return types.Catalog{}, ErrEmptyDocument
	}

	var doc types.Catalog
	var err error
	if trimmed[0] == '{' {
		err = sonic.Unmarshal(trimmed, &doc)
	} else {
		err = yaml.Unmarshal(trimmed, &doc)
	}
	if err != nil {
		return types.Catalog{}, fmt.Errorf("invalid catalog document: %w", err)
	}

	seen := make(map[string]bool, len(doc.Apps))
	apps := make([]types.CatalogEntry, 0, len(doc.Apps))
	for _, entry := range doc.Apps {
		if utils.ValidateAppID(entry.ID) != nil || seen[entry.ID] {
			continue
		}
		seen[entry.ID] = true
		apps = append(apps, entry)
	}
	return types.Catalog{Apps: apps}, nil
}
