package event

import "strings"

// Accessors over the loosely typed payload maps. A nil map lookup is a valid
// read in Go, so all of these tolerate missing parents.

func getMap(m map[string]interface{}, key string) map[string]interface{} {
	v, _ := m[key].(map[string]interface{})
	return v
}

func getList(m map[string]interface{}, key string) []interface{} {
	v, _ := m[key].([]interface{})
	return v
}

func getString(m map[string]interface{}, key string) string {
	v, _ := m[key].(string)
	return v
}

func valueOr(m map[string]interface{}, key string, def interface{}) interface{} {
	if v, ok := m[key]; ok && v != nil {
		return v
	}
	return def
}

// SplitPostID splits a "{page_id}_{post_number}" identifier on the first
// underscore. Both parts are empty when the id is absent.
func SplitPostID(postID string) (pageID, postNumber string) {
	if postID == "" {
		return "", ""
	}
	parts := strings.SplitN(postID, "_", 2)
	pageID = parts[0]
	if len(parts) > 1 {
		postNumber = parts[1]
	}
	return pageID, postNumber
}
