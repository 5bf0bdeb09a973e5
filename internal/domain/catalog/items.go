package catalog

import (
	"encoding/json"
	"slices"
	"strings"

	"github.com/go-faster/errors"
)

// DefaultCategory names the single category produced from flat item lists.
const DefaultCategory = "Menu"

// ItemCategory is a named group of dishes included in an offering.
type ItemCategory struct {
	Name  string   `json:"category"`
	Items []string `json:"items"`
}

// ParseItems normalizes the stored or submitted representation of an
// offering's items. Accepted shapes:
//
//	["Paneer Tikka", "Naan"]                          flat list
//	[{"category": "Starters", "items": ["Samosa"]}]   category list
//	{"Starters": ["Samosa"], "Mains": ["Dal"]}        category map
//	"Samosa, Dal, Rice"                               comma-separated string
//
// Flat shapes become a single DefaultCategory. Blank names and empty
// categories are dropped.
func ParseItems(raw []byte) ([]ItemCategory, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}

	switch trimmed[0] {
	case '[':
		return parseItemList([]byte(trimmed))
	case '{':
		var m map[string]json.RawMessage
		if err := json.Unmarshal([]byte(trimmed), &m); err != nil {
			return nil, errors.Wrap(err, "decode item map")
		}
		names := make([]string, 0, len(m))
		for name := range m {
			names = append(names, name)
		}
		slices.Sort(names)

		out := make([]ItemCategory, 0, len(m))
		for _, name := range names {
			items, err := parseNames(m[name])
			if err != nil {
				return nil, errors.Wrapf(err, "decode category %q", name)
			}
			out = appendCategory(out, name, items)
		}
		return out, nil
	case '"':
		var s string
		if err := json.Unmarshal([]byte(trimmed), &s); err != nil {
			return nil, errors.Wrap(err, "decode item string")
		}
		return appendCategory(nil, DefaultCategory, splitCSV(s)), nil
	default:
		return appendCategory(nil, DefaultCategory, splitCSV(trimmed)), nil
	}
}

// MustEncodeItems is the inverse of ParseItems for the category-list shape.
func MustEncodeItems(cats []ItemCategory) []byte {
	if cats == nil {
		cats = []ItemCategory{}
	}
	data, err := json.Marshal(cats)
	if err != nil {
		// Only strings and slices of strings are marshaled.
		panic(err)
	}
	return data
}

func parseItemList(raw []byte) ([]ItemCategory, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, errors.Wrap(err, "decode item list")
	}

	var (
		out  []ItemCategory
		flat []string
	)
	for _, elem := range elems {
		e := strings.TrimSpace(string(elem))
		if e == "" {
			continue
		}
		if e[0] == '"' {
			var name string
			if err := json.Unmarshal(elem, &name); err != nil {
				return nil, errors.Wrap(err, "decode item name")
			}
			flat = append(flat, name)
			continue
		}

		var obj struct {
			Category string          `json:"category"`
			Name     string          `json:"name"`
			Items    json.RawMessage `json:"items"`
		}
		if err := json.Unmarshal(elem, &obj); err != nil {
			return nil, errors.Wrap(err, "decode item category")
		}
		name := obj.Category
		if name == "" {
			name = obj.Name
		}
		if len(obj.Items) == 0 {
			// A bare {"name": "Samosa"} is a single dish.
			flat = append(flat, name)
			continue
		}
		items, err := parseNames(obj.Items)
		if err != nil {
			return nil, errors.Wrapf(err, "decode category %q", name)
		}
		if name == "" {
			name = DefaultCategory
		}
		out = appendCategory(out, name, items)
	}

	if len(flat) > 0 {
		out = appendCategory(out, DefaultCategory, flat)
	}
	return out, nil
}

// parseNames decodes either a JSON list of names or a comma-separated string.
func parseNames(raw json.RawMessage) ([]string, error) {
	var names []string
	if err := json.Unmarshal(raw, &names); err == nil {
		return names, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return splitCSV(s), nil
}

func splitCSV(s string) []string {
	return strings.Split(s, ",")
}

// appendCategory appends a cleaned category, merging into an existing one
// with the same name.
func appendCategory(out []ItemCategory, name string, items []string) []ItemCategory {
	name = strings.TrimSpace(name)
	clean := make([]string, 0, len(items))
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			clean = append(clean, it)
		}
	}
	if len(clean) == 0 {
		return out
	}
	for i := range out {
		if out[i].Name == name {
			out[i].Items = append(out[i].Items, clean...)
			return out
		}
	}
	return append(out, ItemCategory{Name: name, Items: clean})
}

// MergeCategories cleans cats the same way ParseItems does.
func MergeCategories(cats []ItemCategory) []ItemCategory {
	var out []ItemCategory
	for _, c := range cats {
		name := c.Name
		if strings.TrimSpace(name) == "" {
			name = DefaultCategory
		}
		out = appendCategory(out, name, c.Items)
	}
	return out
}
