package event

import "encoding/json"

// DispatchPolicy decides whether an event's full data or only its metadata
// summary crosses the wire to the backend.
type DispatchPolicy struct {
	HighPriority  map[Kind]bool
	SizeThreshold int
}

func NewDispatchPolicy(highPriority []string, sizeThreshold int) DispatchPolicy {
	hp := make(map[Kind]bool, len(highPriority))
	for _, k := range highPriority {
		hp[Kind(k)] = true
	}
	return DispatchPolicy{
		HighPriority:  hp,
		SizeThreshold: sizeThreshold,
	}
}

// ShouldProcessAsync reports whether the backend should process this event
// asynchronously, in which case only extracted metadata is forwarded.
// Comment and post events are always async; so is anything in the configured
// high-priority set or any payload whose serialized size exceeds the
// threshold.
func (p DispatchPolicy) ShouldProcessAsync(kind Kind, data map[string]interface{}) bool {
	switch kind {
	case KindComment, KindPostCreation, KindPhotoPost:
		return true
	}

	if p.HighPriority[kind] {
		return true
	}

	if p.SizeThreshold > 0 {
		if raw, err := json.Marshal(data); err == nil && len(raw) > p.SizeThreshold {
			return true
		}
	}

	return false
}
