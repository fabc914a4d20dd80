package promo

import (
	"testing"

	"github.com/example/danceschool-promos/internal/school"
)

func TestSelectCandidates(t *testing.T) {
	tests := []struct {
		name     string
		count    school.RegistrationCount
		selected bool
	}{
		{
			name:     "first completion in recent series",
			count:    school.RegistrationCount{ThisRun: 1, Lifetime: 1},
			selected: true,
		},
		{
			name:     "two recent registrations only",
			count:    school.RegistrationCount{ThisRun: 2, Lifetime: 2},
			selected: true,
		},
		{
			name:     "completed the level before the window",
			count:    school.RegistrationCount{ThisRun: 1, Lifetime: 2},
			selected: false,
		},
		{
			name:     "no recent registration",
			count:    school.RegistrationCount{ThisRun: 0, Lifetime: 1},
			selected: false,
		},
		{
			name: "already marked with timestamp",
			count: school.RegistrationCount{
				Customer: school.Customer{Data: map[string]any{DefaultMarkerKey: "2024-01-02 03:04:05"}},
				ThisRun:  1,
				Lifetime: 1,
			},
			selected: false,
		},
		{
			name: "already marked with legacy bool",
			count: school.RegistrationCount{
				Customer: school.Customer{Data: map[string]any{DefaultMarkerKey: true}},
				ThisRun:  1,
				Lifetime: 1,
			},
			selected: false,
		},
		{
			name: "falsy marker value is ignored",
			count: school.RegistrationCount{
				Customer: school.Customer{Data: map[string]any{DefaultMarkerKey: ""}},
				ThisRun:  1,
				Lifetime: 1,
			},
			selected: true,
		},
		{
			name: "unrelated annotation keys do not matter",
			count: school.RegistrationCount{
				Customer: school.Customer{Data: map[string]any{"mailList": true}},
				ThisRun:  1,
				Lifetime: 1,
			},
			selected: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := selectCandidates([]school.RegistrationCount{tc.count}, DefaultMarkerKey)
			if tc.selected && len(got) != 1 {
				t.Fatalf("expected customer to be selected")
			}
			if !tc.selected && len(got) != 0 {
				t.Fatalf("expected customer to be excluded")
			}
		})
	}
}
