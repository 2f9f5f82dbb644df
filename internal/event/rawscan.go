package event

// FindCommentChange scans a raw payload for a feed change carrying a comment
// and returns its comment and post ids. Used by the raw-forwarding path to
// decide whether a backend response should be turned into a comment reply.
func FindCommentChange(raw map[string]interface{}) (commentID, postID string, ok bool) {
	for _, e := range getList(raw, "entry") {
		entry, isMap := e.(map[string]interface{})
		if !isMap {
			continue
		}
		for _, c := range getList(entry, "changes") {
			change, isMap := c.(map[string]interface{})
			if !isMap {
				continue
			}
			value := getMap(change, "value")
			if getString(value, "item") == "comment" {
				return getString(value, "comment_id"), getString(value, "post_id"), true
			}
		}
	}
	return "", "", false
}

// IsCommentEvent reports whether a raw payload contains a feed comment
// change.
func IsCommentEvent(raw map[string]interface{}) bool {
	_, _, ok := FindCommentChange(raw)
	return ok
}
