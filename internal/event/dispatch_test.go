package event

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShouldProcessAsyncKinds(t *testing.T) {
	policy := NewDispatchPolicy(nil, 10000)

	tests := []struct {
		kind Kind
		want bool
	}{
		{KindComment, true},
		{KindPostCreation, true},
		{KindPhotoPost, true},
		{KindMessage, false},
		{KindReaction, false},
		{KindLike, false},
		{KindUnknown, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			got := policy.ShouldProcessAsync(tt.kind, map[string]interface{}{"sender_id": "S"})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestShouldProcessAsyncHighPrioritySet(t *testing.T) {
	policy := NewDispatchPolicy([]string{"reaction"}, 10000)

	assert.True(t, policy.ShouldProcessAsync(KindReaction, map[string]interface{}{}))
	assert.False(t, policy.ShouldProcessAsync(KindLike, map[string]interface{}{}))
}

func TestShouldProcessAsyncSizeThreshold(t *testing.T) {
	policy := NewDispatchPolicy(nil, 10000)

	big := map[string]interface{}{"text": strings.Repeat("x", 10001)}
	assert.True(t, policy.ShouldProcessAsync(KindMessage, big))

	small := map[string]interface{}{"text": "x"}
	assert.False(t, policy.ShouldProcessAsync(KindMessage, small))
}

func TestShouldProcessAsyncAlwaysAsyncKindsIgnoreSize(t *testing.T) {
	policy := NewDispatchPolicy(nil, 10000)
	assert.True(t, policy.ShouldProcessAsync(KindComment, map[string]interface{}{"message": "tiny"}))
}
