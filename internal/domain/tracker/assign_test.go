package tracker

import "testing"

func TestSuggestAssigneePrefersLeastLoadedRoleMatch(t *testing.T) {
	members := []MemberLoad{
		{MemberID: 1, Name: "A", Role: "designer", OpenTickets: 0},
		{MemberID: 2, Name: "B", Role: "engineer", OpenTickets: 2},
		{MemberID: 3, Name: "C", Role: "engineer", OpenTickets: 1},
	}

	got, ok := SuggestAssignee(members, "engineer", nil)
	if !ok {
		t.Fatal("expected a suggestion")
	}
	if got.Name != "C" {
		t.Fatalf("suggested %s, want C (least loaded engineer)", got.Name)
	}
}

func TestSuggestAssigneeFallsBackToLeastLoadedOverall(t *testing.T) {
	members := []MemberLoad{
		{MemberID: 1, Name: "A", Role: "designer", OpenTickets: 3},
		{MemberID: 2, Name: "B", Role: "engineer", OpenTickets: 1},
	}

	got, ok := SuggestAssignee(members, "qa", nil)
	if !ok {
		t.Fatal("expected a suggestion")
	}
	if got.Name != "B" {
		t.Fatalf("suggested %s, want B (least loaded overall)", got.Name)
	}
}

func TestSuggestAssigneeRoleAliases(t *testing.T) {
	members := []MemberLoad{
		{MemberID: 1, Name: "A", Role: "engineer", OpenTickets: 5},
		{MemberID: 2, Name: "B", Role: "designer", OpenTickets: 0},
	}
	aliases := map[string][]string{"engineer": {"developer", "dev"}}

	got, ok := SuggestAssignee(members, "developer", aliases)
	if !ok {
		t.Fatal("expected a suggestion")
	}
	if got.Name != "A" {
		t.Fatalf("suggested %s, want A (alias match beats load)", got.Name)
	}
}

func TestSuggestAssigneeTieBreaksOnMemberID(t *testing.T) {
	members := []MemberLoad{
		{MemberID: 9, Name: "Z", Role: "engineer", OpenTickets: 1},
		{MemberID: 4, Name: "M", Role: "engineer", OpenTickets: 1},
	}

	got, _ := SuggestAssignee(members, "engineer", nil)
	if got.MemberID != 4 {
		t.Fatalf("suggested member %d, want 4", got.MemberID)
	}
}

func TestSuggestAssigneeEmptyMembers(t *testing.T) {
	if _, ok := SuggestAssignee(nil, "engineer", nil); ok {
		t.Fatal("expected no suggestion for empty member list")
	}
}

func TestSuggestAssigneeNoHintPicksLeastLoaded(t *testing.T) {
	members := []MemberLoad{
		{MemberID: 1, Name: "A", Role: "designer", OpenTickets: 2},
		{MemberID: 2, Name: "B", Role: "engineer", OpenTickets: 0},
	}

	got, _ := SuggestAssignee(members, "", nil)
	if got.Name != "B" {
		t.Fatalf("suggested %s, want B", got.Name)
	}
}
