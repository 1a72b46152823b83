package models

import (
	"encoding/json"
	"sort"
)

// ActorSet is a set of actor identifiers, serialized as a JSON array. It
// holds at most one entry per actor; presence of the current actor's id is
// the sole "did I like this" signal for that actor.
type ActorSet map[string]struct{}

// NewActorSet builds a set from the given actor ids.
func NewActorSet(ids ...string) ActorSet {
	s := make(ActorSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s ActorSet) Contains(actorID string) bool {
	_, ok := s[actorID]
	return ok
}

func (s ActorSet) Add(actorID string) {
	s[actorID] = struct{}{}
}

func (s ActorSet) Remove(actorID string) {
	delete(s, actorID)
}

func (s ActorSet) Len() int { return len(s) }

// Clone returns an independent copy; a nil set clones to an empty one.
func (s ActorSet) Clone() ActorSet {
	out := make(ActorSet, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

// MarshalJSON encodes the set as a sorted array for stable persisted output.
func (s ActorSet) MarshalJSON() ([]byte, error) {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return json.Marshal(ids)
}

func (s *ActorSet) UnmarshalJSON(b []byte) error {
	var ids []string
	if err := json.Unmarshal(b, &ids); err != nil {
		return err
	}
	*s = NewActorSet(ids...)
	return nil
}
