package models

import "encoding/json"

// Visibility governs who may see an activity in the community feed.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityFriends Visibility = "friends"
	VisibilityPrivate Visibility = "private"
)

// UnmarshalJSON maps unknown or legacy values to private, the safe default
// for records persisted before the field existed.
func (v *Visibility) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	switch Visibility(s) {
	case VisibilityPublic, VisibilityFriends, VisibilityPrivate:
		*v = Visibility(s)
	default:
		*v = VisibilityPrivate
	}
	return nil
}
