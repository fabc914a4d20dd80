package promo

import (
	"testing"
	"time"
)

func TestNextRun(t *testing.T) {
	tests := []struct {
		name  string
		now   time.Time
		runAt string
		want  time.Time
	}{
		{
			name:  "later today",
			now:   time.Date(2024, 5, 20, 9, 0, 0, 0, time.UTC),
			runAt: "13:30",
			want:  time.Date(2024, 5, 20, 13, 30, 0, 0, time.UTC),
		},
		{
			name:  "already passed, tomorrow",
			now:   time.Date(2024, 5, 20, 14, 0, 0, 0, time.UTC),
			runAt: "13:30",
			want:  time.Date(2024, 5, 21, 13, 30, 0, 0, time.UTC),
		},
		{
			name:  "exactly at the run time, tomorrow",
			now:   time.Date(2024, 5, 20, 13, 30, 0, 0, time.UTC),
			runAt: "13:30",
			want:  time.Date(2024, 5, 21, 13, 30, 0, 0, time.UTC),
		},
		{
			name:  "month boundary",
			now:   time.Date(2024, 5, 31, 23, 59, 0, 0, time.UTC),
			runAt: "00:10",
			want:  time.Date(2024, 6, 1, 0, 10, 0, 0, time.UTC),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NextRun(tc.now, tc.runAt)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tc.want) {
				t.Fatalf("NextRun(%v, %s)=%v, expected %v", tc.now, tc.runAt, got, tc.want)
			}
		})
	}
}

func TestNextRunRejectsBadFormat(t *testing.T) {
	if _, err := NextRun(time.Now(), "25:99"); err == nil {
		t.Fatalf("expected error for invalid run time")
	}
	if _, err := NextRun(time.Now(), "noon"); err == nil {
		t.Fatalf("expected error for invalid run time")
	}
}
