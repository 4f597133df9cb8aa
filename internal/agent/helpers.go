package agent

import (
	"encoding/json"
	"time"
)

// marshalContent marshals a typed proposed-content struct. The structs here
// contain no unmarshalable values, so the error path is unreachable; an empty
// payload is still safer than a panic inside a proposal function.
func marshalContent(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return b
}

// daysSinceContact returns whole days since the person was last contacted,
// or -1 when there is no recorded contact.
func daysSinceContact(rc *Context, now time.Time) int {
	if rc == nil || rc.Person == nil || rc.Person.LastContactedAt == nil {
		return -1
	}
	return int(now.Sub(*rc.Person.LastContactedAt).Hours() / 24)
}
