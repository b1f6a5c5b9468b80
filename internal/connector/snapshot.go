package connector

import (
	"encoding/json"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/voyagedesk/inventory-sync/internal/config"
	"github.com/voyagedesk/inventory-sync/internal/inventory"
)

// idKey names the item identifier inside a snapshot entry
const idKey = "id"

// ParseSnapshot decodes a snapshot document. Both a bare list of entries and
// an object with an "items" list are accepted. Each entry is a flat object
// whose "id" is the item identifier and whose other keys are its fields.
func ParseSnapshot(data []byte, format string) ([]inventory.RemoteItem, error) {
	var doc any
	switch format {
	case "", config.SnapshotFormatJSON:
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
		}
	case config.SnapshotFormatYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
		}
		doc = normalize(doc)
	default:
		return nil, fmt.Errorf("unsupported snapshot format: %s", format)
	}

	entries, err := entriesOf(doc)
	if err != nil {
		return nil, err
	}

	items := make([]inventory.RemoteItem, 0, len(entries))
	for i, raw := range entries {
		item, err := parseEntry(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d: %v", ErrMalformedSnapshot, i, err)
		}
		items = append(items, item)
	}
	return items, nil
}

// parseItem decodes a single-entry document returned by an item endpoint
func parseItem(data []byte) (*inventory.RemoteItem, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}
	item, err := parseEntry(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}
	return &item, nil
}

func entriesOf(doc any) ([]any, error) {
	switch v := doc.(type) {
	case []any:
		return v, nil
	case map[string]any:
		items, ok := v["items"].([]any)
		if !ok {
			return nil, fmt.Errorf("%w: object snapshot must carry an items list", ErrMalformedSnapshot)
		}
		return items, nil
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: snapshot must be a list or an object", ErrMalformedSnapshot)
	}
}

func parseEntry(raw any) (inventory.RemoteItem, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return inventory.RemoteItem{}, fmt.Errorf("entry is not an object")
	}

	var id string
	switch v := obj[idKey].(type) {
	case string:
		id = v
	case float64:
		id = strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return inventory.RemoteItem{}, fmt.Errorf("entry has no %q", idKey)
	}
	if id == "" {
		return inventory.RemoteItem{}, fmt.Errorf("entry has an empty %q", idKey)
	}

	fields := make(inventory.Fields, len(obj)-1)
	for k, v := range obj {
		if k != idKey {
			fields[k] = v
		}
	}
	return inventory.RemoteItem{ID: id, Fields: fields}, nil
}

// normalize makes YAML values look like decoded JSON: every number becomes
// float64 and every mapping map[string]any.
func normalize(v any) any {
	switch val := v.(type) {
	case int:
		return float64(val)
	case int64:
		return float64(val)
	case uint64:
		return float64(val)
	case float32:
		return float64(val)
	case map[string]any:
		for k, inner := range val {
			val[k] = normalize(inner)
		}
		return val
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			out[fmt.Sprint(k)] = normalize(inner)
		}
		return out
	case []any:
		for i, inner := range val {
			val[i] = normalize(inner)
		}
		return val
	default:
		return v
	}
}
