package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

var errShape = errors.New("unexpected error structure")

// ComposeMessage flattens field-keyed error details into one display string,
// "field: message " per failure. A flat list of failures yields "message "
// per item. Details of any other shape are rendered as "Error <details>".
func ComposeMessage(details interface{}) string {
	generic, err := normalize(details)
	if err != nil {
		return "Error " + fmt.Sprint(details)
	}

	var b strings.Builder
	switch d := generic.(type) {
	case map[string]interface{}:
		err = composeFields(&b, d)
	case []interface{}:
		err = composeList(&b, d)
	}
	if err != nil {
		return "Error " + fmt.Sprint(details)
	}
	return b.String()
}

// normalize reduces typed details to maps, slices and scalars.
func normalize(details interface{}) (interface{}, error) {
	raw, err := json.Marshal(details)
	if err != nil {
		return nil, err
	}
	var out interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func composeFields(b *strings.Builder, fields map[string]interface{}) error {
	for _, field := range sortedKeys(fields) {
		switch value := fields[field].(type) {
		case []interface{}:
			for _, item := range value {
				m, ok := item.(map[string]interface{})
				if !ok {
					return errShape
				}
				if msg, ok := m["message"]; ok {
					fmt.Fprintf(b, "%s: %v ", field, msg)
					continue
				}
				if err := composeNested(b, m); err != nil {
					return err
				}
			}
		case map[string]interface{}:
			if err := composeNested(b, value); err != nil {
				return err
			}
		default:
			return errShape
		}
	}
	return nil
}

// composeNested emits one unwrapped level: unit field to a list of failures.
func composeNested(b *strings.Builder, nested map[string]interface{}) error {
	for _, key := range sortedKeys(nested) {
		items, ok := nested[key].([]interface{})
		if !ok {
			return errShape
		}
		for _, item := range items {
			msg, err := message(item)
			if err != nil {
				return err
			}
			fmt.Fprintf(b, "%s: %v ", key, msg)
		}
	}
	return nil
}

func composeList(b *strings.Builder, items []interface{}) error {
	for _, item := range items {
		msg, err := message(item)
		if err != nil {
			return err
		}
		fmt.Fprintf(b, "%v ", msg)
	}
	return nil
}

func message(item interface{}) (interface{}, error) {
	m, ok := item.(map[string]interface{})
	if !ok {
		return nil, errShape
	}
	msg, ok := m["message"]
	if !ok {
		return nil, errShape
	}
	return msg, nil
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
