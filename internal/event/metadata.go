package event

import "hookrelay/internal/constants"

const metadataSource = "webhook_relay"

// ExtractMetadata derives the compact summary that travels to the backend
// when an event is dispatched asynchronously. The full record stays in the
// store and is recoverable via the document id carried alongside. Total
// function: unknown kinds get the base fields only.
func ExtractMetadata(kind Kind, data map[string]interface{}) map[string]interface{} {
	meta := map[string]interface{}{
		"source":                    metadataSource,
		"is_metadata_only":          true,
		"full_data_available_in_db": true,
	}

	switch kind {
	case KindMessage:
		meta["sender_id"] = data["sender_id"]
		meta["text_preview"] = preview(getString(data, "text"))
		meta["timestamp"] = data["timestamp"]

	case KindComment:
		meta["sender_id"] = data["sender_id"]
		meta["post_id"] = data["post_id"]
		meta["comment_id"] = data["comment_id"]

	case KindReaction:
		meta["sender_id"] = data["sender_id"]
		meta["post_id"] = data["post_id"]
		meta["reaction_type"] = data["reaction_type"]
		meta["page_id"] = data["page_id"]
		meta["post_number"] = data["post_number"]

	case KindLike:
		meta["sender_id"] = data["sender_id"]
		meta["post_id"] = data["post_id"]
		meta["page_id"] = data["page_id"]
		meta["post_number"] = data["post_number"]
		meta["created_time"] = data["created_time"]

	case KindPostCreation:
		meta["sender_id"] = data["sender_id"]
		meta["post_id"] = data["post_id"]
		meta["message_preview"] = preview(getString(data, "message"))
		meta["created_time"] = data["created_time"]
		meta["type"] = data["type"]

	case KindPhotoPost:
		meta["sender_id"] = data["sender_id"]
		meta["post_id"] = data["post_id"]
		meta["message_preview"] = preview(getString(data, "message"))
		meta["created_time"] = data["created_time"]
		meta["type"] = data["type"]
		meta["photo_id"] = data["photo_id"]
		meta["has_photo"] = true

	case KindNotificationMessages:
		meta["sender_id"] = data["sender_id"]
		meta["recipient_id"] = data["recipient_id"]
		meta["user_token_status"] = data["user_token_status"]

	case KindAddressForm:
		meta["sender_id"] = data["sender_id"]
		meta["recipient_id"] = data["recipient_id"]
		meta["timestamp"] = data["timestamp"]
	}

	return meta
}

func preview(s string) string {
	if len(s) > constants.MetadataPreviewLen {
		return s[:constants.MetadataPreviewLen]
	}
	return s
}
