package event

import "fmt"

// Classify maps a raw webhook payload onto a StructuredEvent. It walks the
// entry list in order and the first entry producing a definitive event wins.
// A nil return means the payload must be skipped entirely: either a feed
// change list with no recognized change, or a comment authored by the page
// itself (the anti-loop rule).
func Classify(raw map[string]interface{}, timeID float64) *StructuredEvent {
	ev := &StructuredEvent{
		TimeID:        timeID,
		SchemaVersion: SchemaVersion,
		Type:          TypeEventIn,
		EventType:     KindUnknown,
		Data:          map[string]interface{}{},
	}

	for _, e := range getList(raw, "entry") {
		entry, ok := e.(map[string]interface{})
		if !ok {
			continue
		}

		ev.PageID = getString(entry, "id")

		if messaging := getList(entry, "messaging"); len(messaging) > 0 {
			if item, ok := messaging[0].(map[string]interface{}); ok {
				classifyMessaging(item, ev)
				return ev
			}
		}

		if rawChanges, present := entry["changes"]; present {
			changes, _ := rawChanges.([]interface{})
			if classifyChanges(changes, ev) {
				return ev
			}
			return nil
		}
	}

	return ev
}

func classifyMessaging(item map[string]interface{}, ev *StructuredEvent) {
	if optin := getMap(item, "optin"); optin != nil && getString(optin, "type") == string(KindNotificationMessages) {
		classifyNotification(item, optin, ev)
		return
	}

	if info := getMap(item, "messaging_customer_information"); info != nil {
		classifyAddressForm(item, info, ev)
		return
	}

	sender := getMap(item, "sender")
	recipient := getMap(item, "recipient")
	message := getMap(item, "message")

	ev.EventType = KindMessage
	ev.Data = map[string]interface{}{
		"sender_id":    sender["id"],
		"recipient_id": recipient["id"],
		"message_id":   message["mid"],
		"text":         message["text"],
		"timestamp":    item["timestamp"],
	}
}

func classifyNotification(item, optin map[string]interface{}, ev *StructuredEvent) {
	sender := getMap(item, "sender")
	recipient := getMap(item, "recipient")

	// Absence of a current status, or an explicit resume, both imply
	// availability; any other incoming status pauses the token.
	status := TokenStatusAvailable
	if incoming := getString(optin, "notification_messages_status"); incoming != "" && incoming != StatusResumeNotifications {
		status = TokenStatusNotAvailable
	}

	ev.EventType = KindNotificationMessages
	ev.Data = map[string]interface{}{
		"sender_id":                      sender["id"],
		"recipient_id":                   recipient["id"],
		"notification_messages_token":    optin["notification_messages_token"],
		"token_expiry_timestamp":         optin["token_expiry_timestamp"],
		"user_token_status":              optin["user_token_status"],
		"notification_messages_timezone": optin["notification_messages_timezone"],
		"title":                          optin["title"],
		"notification_messages_status":   status,
	}
}

func classifyAddressForm(item, info map[string]interface{}, ev *StructuredEvent) {
	sender := getMap(item, "sender")
	recipient := getMap(item, "recipient")

	address := map[string]interface{}{}
	for _, s := range getList(info, "screens") {
		screen, ok := s.(map[string]interface{})
		if !ok {
			continue
		}
		for _, r := range getList(screen, "responses") {
			response, ok := r.(map[string]interface{})
			if !ok {
				continue
			}
			if key := getString(response, "key"); key != "" {
				address[key] = response["value"]
			}
		}
	}

	ev.EventType = KindAddressForm
	ev.Data = map[string]interface{}{
		"sender_id":    sender["id"],
		"recipient_id": recipient["id"],
		"timestamp":    item["timestamp"],
		"address":      address,
	}
}

// classifyChanges reports whether a change produced a definitive event.
// Unrecognized changes are skipped; a comment from the page itself returns
// false so the whole payload is suppressed.
func classifyChanges(changes []interface{}, ev *StructuredEvent) bool {
	for _, c := range changes {
		change, ok := c.(map[string]interface{})
		if !ok {
			continue
		}

		if getString(change, "field") != "feed" {
			continue
		}

		value := getMap(change, "value")
		item := getString(value, "item")
		verb := getString(value, "verb")

		switch {
		case item == "comment":
			return classifyComment(value, ev)
		case item == "reaction":
			classifyReaction(value, ev)
			return true
		case item == "like":
			classifyLike(value, ev)
			return true
		case item == "status" && verb == "add":
			classifyPostCreation(value, ev)
			return true
		case item == "photo" && verb == "add":
			classifyPhotoPost(value, ev)
			return true
		}
	}

	return false
}

func classifyComment(value map[string]interface{}, ev *StructuredEvent) bool {
	from := getMap(value, "from")

	// Comments authored by the page itself are excluded to avoid reply loops.
	if getString(from, "id") == ev.PageID {
		return false
	}

	ev.EventType = KindComment
	ev.Data = map[string]interface{}{
		"sender_id":    from["id"],
		"sender_name":  from["name"],
		"post_id":      value["post_id"],
		"comment_id":   value["comment_id"],
		"message":      value["message"],
		"created_time": value["created_time"],
		"parent_id":    value["parent_id"],
		"is_hidden":    valueOr(value, "is_hidden", false),
		"is_private":   valueOr(value, "is_private", false),
	}
	return true
}

func classifyReaction(value map[string]interface{}, ev *StructuredEvent) {
	from := getMap(value, "from")
	postID := getString(value, "post_id")
	pageID, postNumber := SplitPostID(postID)

	ev.EventType = KindReaction
	ev.Data = map[string]interface{}{
		"reaction_type": value["reaction_type"],
		"post_id":       value["post_id"],
		"sender_id":     from["id"],
		"sender_name":   from["name"],
		"page_id":       pageID,
		"post_number":   postNumber,
		"post_url":      postURL(pageID, postNumber),
		"created_time":  value["created_time"],
		"verb":          value["verb"],
	}
}

func classifyLike(value map[string]interface{}, ev *StructuredEvent) {
	from := getMap(value, "from")
	postID := getString(value, "post_id")
	pageID, postNumber := SplitPostID(postID)

	ev.EventType = KindLike
	ev.Data = map[string]interface{}{
		"post_id":      value["post_id"],
		"sender_id":    from["id"],
		"sender_name":  from["name"],
		"page_id":      pageID,
		"post_number":  postNumber,
		"post_url":     postURL(pageID, postNumber),
		"created_time": value["created_time"],
		"verb":         value["verb"],
	}
}

func classifyPostCreation(value map[string]interface{}, ev *StructuredEvent) {
	from := getMap(value, "from")
	pageID, postNumber := SplitPostID(getString(value, "post_id"))

	ev.EventType = KindPostCreation
	ev.Data = map[string]interface{}{
		"post_id":      value["post_id"],
		"message":      valueOr(value, "message", ""),
		"sender_id":    from["id"],
		"sender_name":  from["name"],
		"post_url":     postURL(pageID, postNumber),
		"created_time": value["created_time"],
		"is_published": valueOr(value, "is_published", true),
		"link":         valueOr(value, "link", ""),
		"type":         valueOr(value, "type", "status"),
	}
}

func classifyPhotoPost(value map[string]interface{}, ev *StructuredEvent) {
	from := getMap(value, "from")
	pageID, postNumber := SplitPostID(getString(value, "post_id"))
	link := getString(value, "link")

	photoURL := value["photo_url"]
	if photoURL == nil {
		photoURL = link
	}

	ev.EventType = KindPhotoPost
	ev.Data = map[string]interface{}{
		"post_id":      value["post_id"],
		"message":      valueOr(value, "message", ""),
		"sender_id":    from["id"],
		"sender_name":  from["name"],
		"post_url":     postURL(pageID, postNumber),
		"created_time": value["created_time"],
		"is_published": valueOr(value, "is_published", true),
		"link":         link,
		"photo_id":     valueOr(value, "photo_id", ""),
		"photo_url":    photoURL,
		"type":         "photo",
	}
}

func postURL(pageID, postNumber string) string {
	if pageID == "" || postNumber == "" {
		return ""
	}
	return fmt.Sprintf("https://www.facebook.com/%s/posts/%s", pageID, postNumber)
}
