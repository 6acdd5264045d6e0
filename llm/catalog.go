// Model catalog decoding for the shapes providers actually return.

package llm

import (
	"fmt"

	"github.com/tidwall/gjson"
)

// parseModelCatalog accepts a bare array, {"data": [...]}, {"models": [...]}
// or, failing those, the first array field whose objects carry id or name.
// Unrecognised shapes yield an empty list.
func parseModelCatalog(body []byte) ([]ModelInfo, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("model list is not valid JSON")
	}
	root := gjson.ParseBytes(body)

	var list gjson.Result
	switch {
	case root.IsArray():
		list = root
	case root.Get("data").IsArray():
		list = root.Get("data")
	case root.Get("models").IsArray():
		list = root.Get("models")
	default:
		root.ForEach(func(_, value gjson.Result) bool {
			if !value.IsArray() {
				return true
			}
			first := value.Get("0")
			if first.Get("id").Exists() || first.Get("name").Exists() {
				list = value
				return false
			}
			return true
		})
	}

	models := []ModelInfo{}
	list.ForEach(func(_, item gjson.Result) bool {
		if m, ok := modelInfoFrom(item); ok {
			models = append(models, m)
		}
		return true
	})
	return models, nil
}

func modelInfoFrom(item gjson.Result) (ModelInfo, bool) {
	if item.Type == gjson.String {
		return ModelInfo{ID: item.Str, Name: item.Str}, item.Str != ""
	}
	id := firstNonEmpty(item.Get("id").String(), item.Get("name").String(), item.Get("model").String())
	if id == "" {
		return ModelInfo{}, false
	}
	name := firstNonEmpty(
		item.Get("display_name").String(),
		item.Get("displayName").String(),
		item.Get("name").String(),
		id,
	)
	return ModelInfo{ID: id, Name: name}, true
}
