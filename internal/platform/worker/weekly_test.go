package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestShouldRunWeekly(t *testing.T) {
	sundayMidnight := time.Date(2025, 8, 24, 0, 30, 0, 0, time.UTC) // Sunday

	tests := []struct {
		name        string
		now         time.Time
		day         time.Weekday
		hour        int
		lastRun     time.Time
		gracePeriod time.Duration
		want        bool
	}{
		{
			name:        "sunday midnight, never run",
			now:         sundayMidnight,
			day:         time.Sunday,
			hour:        0,
			lastRun:     time.Time{},
			gracePeriod: defaultGracePeriod,
			want:        true,
		},
		{
			name:        "sunday midnight, run 7 days ago",
			now:         sundayMidnight,
			day:         time.Sunday,
			hour:        0,
			lastRun:     sundayMidnight.Add(-7 * 24 * time.Hour),
			gracePeriod: defaultGracePeriod,
			want:        true,
		},
		{
			name:        "sunday midnight, run 3 days ago (within grace)",
			now:         sundayMidnight,
			day:         time.Sunday,
			hour:        0,
			lastRun:     sundayMidnight.Add(-3 * 24 * time.Hour),
			gracePeriod: defaultGracePeriod,
			want:        false,
		},
		{
			name: "wrong day (Monday)",
			now:  sundayMidnight.Add(24 * time.Hour),
			day:  time.Sunday,
			hour: 0,
			want: false,
		},
		{
			name: "wrong hour",
			now:  time.Date(2025, 8, 24, 15, 30, 0, 0, time.UTC),
			day:  time.Sunday,
			hour: 0,
			want: false,
		},
		{
			name:        "zero grace period defaults to six days",
			now:         sundayMidnight,
			day:         time.Sunday,
			hour:        0,
			lastRun:     sundayMidnight.Add(-2 * 24 * time.Hour),
			gracePeriod: 0,
			want:        false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ShouldRunWeekly(tt.now, tt.day, tt.hour, tt.lastRun, tt.gracePeriod)
			if got != tt.want {
				t.Fatalf("ShouldRunWeekly() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWeeklyTaskDueUsesSeededLastRun(t *testing.T) {
	sundayMidnight := time.Date(2025, 8, 24, 0, 30, 0, 0, time.UTC)

	task := &WeeklyTask{Name: "publish", Day: time.Sunday, Hour: 0}
	if !task.Due(sundayMidnight) {
		t.Fatal("fresh task should be due on its slot")
	}

	task.SetLastRun(sundayMidnight.Add(-time.Hour))

	if task.Due(sundayMidnight) {
		t.Fatal("task run an hour ago should not be due again")
	}
}

func TestRunIfDueDoesNotAdvanceLastRunOnFailure(t *testing.T) {
	sundayMidnight := time.Date(2025, 8, 24, 0, 30, 0, 0, time.UTC)
	logger := zerolog.Nop()

	task := &WeeklyTask{
		Name: "publish",
		Day:  time.Sunday,
		Hour: 0,
		Run: func(_ context.Context, _ *zerolog.Logger) error {
			return errors.New("boom")
		},
	}

	runIfDue(context.Background(), task, &logger, sundayMidnight)

	if !task.lastRun.IsZero() {
		t.Fatal("failed run must not advance lastRun")
	}

	if !task.Due(sundayMidnight) {
		t.Fatal("task should remain due after a failed run")
	}
}
