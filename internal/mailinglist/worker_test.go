package mailinglist

import "testing"

func TestWantsMailingList(t *testing.T) {
	tests := []struct {
		name string
		data map[string]any
		want bool
	}{
		{name: "nil data", data: nil, want: false},
		{name: "missing flag", data: map[string]any{"other": true}, want: false},
		{name: "bool true", data: map[string]any{"mailList": true}, want: true},
		{name: "bool false", data: map[string]any{"mailList": false}, want: false},
		{name: "non-empty string", data: map[string]any{"mailList": "yes"}, want: true},
		{name: "empty string", data: map[string]any{"mailList": ""}, want: false},
		{name: "nonzero number", data: map[string]any{"mailList": float64(1)}, want: true},
		{name: "zero number", data: map[string]any{"mailList": float64(0)}, want: false},
		{name: "unexpected shape", data: map[string]any{"mailList": map[string]any{}}, want: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := wantsMailingList(RegistrationEvent{Data: tc.data}); got != tc.want {
				t.Fatalf("wantsMailingList=%v, expected %v", got, tc.want)
			}
		})
	}
}
