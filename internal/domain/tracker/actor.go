package tracker

import "strconv"

// Actor identifies who caused a state change: a real user or the engine
// itself. Automated actions (webhook processing, AI suggestions) use the
// system actor, which persists as a null user id.
type Actor struct {
	userID uint64
	system bool
}

func SystemActor() Actor {
	return Actor{system: true}
}

func UserActor(userID uint64) Actor {
	if userID == 0 {
		return SystemActor()
	}
	return Actor{userID: userID}
}

func (a Actor) IsSystem() bool {
	return a.system || a.userID == 0
}

// UserID returns the acting user's id, or nil for the system actor.
func (a Actor) UserID() *uint64 {
	if a.IsSystem() {
		return nil
	}
	id := a.userID
	return &id
}

func (a Actor) String() string {
	if a.IsSystem() {
		return "system"
	}
	return "user:" + strconv.FormatUint(a.userID, 10)
}
