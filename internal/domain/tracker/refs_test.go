package tracker

import (
	"reflect"
	"testing"
)

func TestExtractTicketRefs(t *testing.T) {
	cases := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "mixed conventions",
			text: "Fixes PROJ-12, see also [OPS-3] and refs eng-45",
			want: []string{"ENG-45", "OPS-3", "PROJ-12"},
		},
		{
			name: "closing keyword with hash",
			text: "closes #AUTH-7",
			want: []string{"AUTH-7"},
		},
		{
			name: "bare identifier",
			text: "touch up copy for BILL-101 landing page",
			want: []string{"BILL-101"},
		},
		{
			name: "duplicates collapse case-insensitively",
			text: "fix auth-7, Fixed AUTH-7, [auth-7]",
			want: []string{"AUTH-7"},
		},
		{
			name: "no matches",
			text: "bump dependencies",
			want: nil,
		},
		{
			name: "empty input",
			text: "",
			want: nil,
		},
		{
			name: "mid-word token does not match",
			text: "see https://example.com/xAUTH-7y for details",
			want: nil,
		},
		{
			name: "resolve family",
			text: "resolved CORE-9 and resolves core-10",
			want: []string{"CORE-10", "CORE-9"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ExtractTicketRefs(tc.text)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("ExtractTicketRefs(%q) = %v, want %v", tc.text, got, tc.want)
			}
		})
	}
}
