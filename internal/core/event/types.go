package event

import "github.com/l1jgo/liveobj/internal/core/ecs"

// CharacterKilled is emitted when a character's life reaches zero or it is
// killed outright, e.g. by an enchant with kill-target-on-end.
type CharacterKilled struct {
	Victim ecs.EntityID
	Killer ecs.EntityID // zero when there is no killer
}

// EnchantEnded is emitted when an enchant is removed for any reason.
type EnchantEnded struct {
	Target  ecs.EntityID
	Owner   ecs.EntityID
	Profile int32
	Message string // profile end message, may be empty
}

// ParticleDropped is emitted when a spawn could not get a slot.
type ParticleDropped struct {
	Profile int32
	Forced  bool
}
