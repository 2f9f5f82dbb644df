package event

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractMetadataBaseFields(t *testing.T) {
	for _, kind := range []Kind{KindMessage, KindComment, KindReaction, KindLike, KindPostCreation, KindPhotoPost, KindUnknown} {
		meta := ExtractMetadata(kind, map[string]interface{}{})

		assert.Equal(t, "webhook_relay", meta["source"], "kind %s", kind)
		assert.Equal(t, true, meta["is_metadata_only"], "kind %s", kind)
		assert.Equal(t, true, meta["full_data_available_in_db"], "kind %s", kind)
	}
}

func TestExtractMetadataMessagePreview(t *testing.T) {
	long := strings.Repeat("a", 80)
	meta := ExtractMetadata(KindMessage, map[string]interface{}{
		"sender_id": "S",
		"text":      long,
		"timestamp": float64(1700000000),
	})

	assert.Equal(t, "S", meta["sender_id"])
	assert.Equal(t, long[:50], meta["text_preview"])
	assert.Equal(t, float64(1700000000), meta["timestamp"])
}

func TestExtractMetadataShortTextIsNotTruncated(t *testing.T) {
	meta := ExtractMetadata(KindMessage, map[string]interface{}{"text": "hi"})
	assert.Equal(t, "hi", meta["text_preview"])
}

func TestExtractMetadataReaction(t *testing.T) {
	meta := ExtractMetadata(KindReaction, map[string]interface{}{
		"sender_id":     "S",
		"post_id":       "123_456",
		"page_id":       "123",
		"post_number":   "456",
		"reaction_type": "love",
	})

	assert.Equal(t, "123", meta["page_id"])
	assert.Equal(t, "456", meta["post_number"])
	assert.Equal(t, "love", meta["reaction_type"])
}

func TestExtractMetadataPhotoPost(t *testing.T) {
	meta := ExtractMetadata(KindPhotoPost, map[string]interface{}{
		"sender_id": "S",
		"post_id":   "1_2",
		"message":   "look at this",
		"photo_id":  "ph-1",
		"type":      "photo",
	})

	assert.Equal(t, "ph-1", meta["photo_id"])
	assert.Equal(t, true, meta["has_photo"])
	assert.Equal(t, "look at this", meta["message_preview"])
}

func TestExtractMetadataUnknownKindHasOnlyBaseFields(t *testing.T) {
	meta := ExtractMetadata(KindUnknown, map[string]interface{}{"anything": "x"})
	assert.Len(t, meta, 3)
}
