package tracker

import "strings"

// MemberLoad is a project member together with their current open-ticket
// count (tickets in todo or in_progress where they are the assignee).
type MemberLoad struct {
	MemberID    uint64
	Name        string
	Role        string
	OpenTickets int
}

// SuggestAssignee picks the least-loaded member whose role matches the hint,
// falling back to the least-loaded member overall when no role matches. Ties
// break on the lower member id so repeated runs agree. Returns false only
// when the member list is empty.
//
// aliases maps a canonical role to accepted hint spellings, e.g.
// "engineer" -> ["developer", "dev", "backend"].
func SuggestAssignee(members []MemberLoad, roleHint string, aliases map[string][]string) (MemberLoad, bool) {
	if len(members) == 0 {
		return MemberLoad{}, false
	}

	hint := strings.ToLower(strings.TrimSpace(roleHint))

	var best *MemberLoad
	if hint != "" {
		for i := range members {
			if !roleMatches(members[i].Role, hint, aliases) {
				continue
			}
			if better(&members[i], best) {
				best = &members[i]
			}
		}
	}

	if best == nil {
		for i := range members {
			if better(&members[i], best) {
				best = &members[i]
			}
		}
	}

	return *best, true
}

func better(candidate, current *MemberLoad) bool {
	if current == nil {
		return true
	}
	if candidate.OpenTickets != current.OpenTickets {
		return candidate.OpenTickets < current.OpenTickets
	}
	return candidate.MemberID < current.MemberID
}

func roleMatches(role string, hint string, aliases map[string][]string) bool {
	normalized := strings.ToLower(strings.TrimSpace(role))
	if normalized == hint {
		return true
	}
	for _, alias := range aliases[normalized] {
		if strings.ToLower(strings.TrimSpace(alias)) == hint {
			return true
		}
	}
	return false
}
