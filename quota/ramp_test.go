package quota

import "testing"

// Quota must be monotone in day, and fast >= normal >= slow at every day.
func TestQuotaMonotonicity(t *testing.T) {
	speeds := []RampSpeed{Slow, Normal, Fast}
	for _, speed := range speeds {
		for d1 := 1; d1 < 60; d1++ {
			if DailyQuota(d1, speed) > DailyQuota(d1+1, speed) {
				t.Errorf("quota(%d,%s)=%d > quota(%d,%s)=%d", d1, speed, DailyQuota(d1, speed), d1+1, speed, DailyQuota(d1+1, speed))
			}
		}
	}
	for d := 1; d <= 60; d++ {
		slow, normal, fast := DailyQuota(d, Slow), DailyQuota(d, Normal), DailyQuota(d, Fast)
		if !(slow <= normal && normal <= fast) {
			t.Errorf("day %d: slow=%d normal=%d fast=%d, want slow<=normal<=fast", d, slow, normal, fast)
		}
		if fast < slow {
			t.Errorf("day %d: fast<slow", d)
		}
	}
}

func TestDailyQuotaPositiveForDayOneAndUp(t *testing.T) {
	for d := 1; d <= 60; d++ {
		if DailyQuota(d, Slow) <= 0 {
			t.Errorf("day %d slow quota must be > 0, got %d", d, DailyQuota(d, Slow))
		}
	}
}

func TestDedupKeyShape(t *testing.T) {
	got := DedupKey(3, 7, string(TemplateReply))
	want := "warmup:dedup:3:7:reply"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
