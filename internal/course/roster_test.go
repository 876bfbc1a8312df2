package course

import "testing"

func TestNameParts(t *testing.T) {
	for _, tc := range []struct {
		display     string
		first, last string
	}{
		{"Smith, Alice", "Alice", "Smith"},
		{"van der Berg,  Chris", "Chris", "van der Berg"},
		{"Cher", "", "Cher"},
		{"", "", ""},
	} {
		first, last := Student{DisplayName: tc.display}.NameParts()
		if first != tc.first || last != tc.last {
			t.Errorf("NameParts(%q) = %q, %q; want %q, %q", tc.display, first, last, tc.first, tc.last)
		}
	}
}

func TestStudentEmail(t *testing.T) {
	s := Student{ExternalID: "ASmith"}
	if got := s.Email("example.edu"); got != "asmith@example.edu" {
		t.Errorf("Email = %q", got)
	}
}

func TestRosterIndexes(t *testing.T) {
	r := Roster{
		{InternalID: 101, ExternalID: "ASmith", DisplayName: "Smith, Alice"},
		{InternalID: 102, ExternalID: "bjones", DisplayName: "Jones, Bob"},
	}

	byID := r.ByExternalID()
	if len(byID) != 2 {
		t.Fatalf("ByExternalID size = %d", len(byID))
	}
	// Keys are lowercased even when the roster spelling is not.
	if byID["asmith"].InternalID != 101 {
		t.Errorf("ByExternalID = %v", byID)
	}
	if _, ok := byID["ASmith"]; ok {
		t.Error("ByExternalID kept a mixed-case key")
	}

	byEmail := r.ByEmail("example.edu")
	if byEmail["bjones@example.edu"].InternalID != 102 {
		t.Errorf("ByEmail = %v", byEmail)
	}
}
