package installer

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"

	"sigs.k8s.io/yaml"

	"aster/internal/source"
)

const (
	TransformApplied   = "applied"
	TransformUnchanged = "unchanged"
	TransformSkipped   = "skipped"
	TransformFailed    = "failed"
)

type TransformResult struct {
	File   string `json:"file"`
	Op     string `json:"op"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func transformOp(t source.Transform) string {
	switch {
	case t.Merge != nil && t.Append != nil:
		return "merge+append"
	case t.Append != nil:
		return "append"
	default:
		return "merge"
	}
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// applyTransform returns the rewritten document for path, or nil when the
// transform leaves the document unchanged.
func applyTransform(path string, current []byte, t source.Transform) ([]byte, error) {
	before, err := decodeDocument(path, current)
	if err != nil {
		return nil, err
	}
	after, err := decodeDocument(path, current)
	if err != nil {
		return nil, err
	}
	if t.Merge != nil {
		var merge map[string]any
		if err := jsonRoundTrip(t.Merge, &merge); err != nil {
			return nil, err
		}
		deepMerge(after, merge)
	}
	if t.Append != nil {
		var value any
		if err := jsonRoundTrip(t.Append.Value, &value); err != nil {
			return nil, err
		}
		if err := appendUnique(after, t.Append.Key, value); err != nil {
			return nil, err
		}
	}
	if reflect.DeepEqual(before, after) {
		return nil, nil
	}
	return encodeDocument(path, after)
}

func decodeDocument(path string, data []byte) (map[string]any, error) {
	if isYAML(path) {
		converted, err := yaml.YAMLToJSON(data)
		if err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
		data = converted
	}
	doc := map[string]any{}
	if len(strings.TrimSpace(string(data))) == 0 || strings.TrimSpace(string(data)) == "null" {
		return doc, nil
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("target must be a JSON object: %w", err)
	}
	return doc, nil
}

// jsonRoundTrip gives transform values the same Go types a decoded target
// document has, so equality checks compare like with like.
func jsonRoundTrip(in, out any) error {
	blob, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(blob, out)
}

func encodeDocument(path string, doc map[string]any) ([]byte, error) {
	blob, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	if isYAML(path) {
		return yaml.JSONToYAML(blob)
	}
	return append(blob, '\n'), nil
}

// deepMerge merges src into dst: objects merge recursively, arrays and
// scalars overwrite.
func deepMerge(dst, src map[string]any) {
	for k, v := range src {
		srcMap, ok := v.(map[string]any)
		if !ok {
			dst[k] = cloneValue(v)
			continue
		}
		if dstMap, ok := dst[k].(map[string]any); ok {
			deepMerge(dstMap, srcMap)
			continue
		}
		dst[k] = cloneValue(srcMap)
	}
}

// appendUnique adds value to the array at key unless an equal element is
// already present.
func appendUnique(doc map[string]any, key string, value any) error {
	cur, ok := doc[key]
	if !ok || cur == nil {
		doc[key] = []any{cloneValue(value)}
		return nil
	}
	arr, ok := cur.([]any)
	if !ok {
		return fmt.Errorf("key %q is not an array", key)
	}
	for _, el := range arr {
		if reflect.DeepEqual(el, value) {
			return nil
		}
	}
	doc[key] = append(arr, cloneValue(value))
	return nil
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, el := range val {
			out[k] = cloneValue(el)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, el := range val {
			out[i] = cloneValue(el)
		}
		return out
	default:
		return val
	}
}
