package highlight

import (
	"math/rand/v2"
	"testing"
)

const (
	testPreamble  = 15
	testPostamble = 10
	testPadding   = 10
)

func detectionAt(frame uint64, seconds float64, text string) Detection {
	d := Detection{Frame: frame, FPS: 60, Text: text}
	d.SetTime(seconds, testPreamble, testPostamble)
	return d
}

func TestMergeOverlappingWindows(t *testing.T) {
	a := detectionAt(6000, 100, "Player killed Enemy")
	b := detectionAt(6240, 104, "Player killed Other")

	if a.StartTime != 85 || a.EndTime != 110 {
		t.Fatalf("unexpected window for A: [%v,%v]", a.StartTime, a.EndTime)
	}
	if b.StartTime != 89 || b.EndTime != 114 {
		t.Fatalf("unexpected window for B: [%v,%v]", b.StartTime, b.EndTime)
	}

	merged := Merge([]Detection{a, b}, testPadding)
	if len(merged) != 1 {
		t.Fatalf("expected 1 interval, got %d: %+v", len(merged), merged)
	}
	if merged[0].StartTime != 85 || merged[0].EndTime != 114 {
		t.Fatalf("expected [85,114], got [%v,%v]", merged[0].StartTime, merged[0].EndTime)
	}
	if merged[0].Frame != a.Frame || merged[0].Text != a.Text {
		t.Fatalf("expected seeding detection to label the interval, got %+v", merged[0])
	}
}

func TestMergeWithinPaddedRange(t *testing.T) {
	a := detectionAt(1, 100, "a")
	b := detectionAt(2, 100+testPreamble+testPostamble-1, "b")

	merged := Merge([]Detection{a, b}, testPadding)
	if len(merged) != 1 {
		t.Fatalf("expected detections within padded range to merge, got %+v", merged)
	}
	if merged[0].StartTime != 85 || merged[0].EndTime != b.EndTime {
		t.Fatalf("unexpected merged window [%v,%v]", merged[0].StartTime, merged[0].EndTime)
	}
}

func TestMergeKeepsDistantDetectionsApart(t *testing.T) {
	a := detectionAt(1, 100, "a")
	b := detectionAt(2, 500, "b")

	merged := Merge([]Detection{a, b}, testPadding)
	if len(merged) != 2 {
		t.Fatalf("expected 2 intervals, got %+v", merged)
	}
	if merged[0].Text != "a" || merged[1].Text != "b" {
		t.Fatalf("expected first-seen order, got %+v", merged)
	}
}

func TestMergeSkipsFoundArtifacts(t *testing.T) {
	tests := []string{"found", "Player FOUND bomb", "NotFound", "fOuNd it"}
	for _, text := range tests {
		t.Run(text, func(t *testing.T) {
			a := detectionAt(1, 100, "Player killed Enemy")
			artifact := detectionAt(2, 108, text)
			alone := detectionAt(3, 900, text)

			merged := Merge([]Detection{a, artifact, alone}, testPadding)
			if len(merged) != 1 {
				t.Fatalf("expected artifacts dropped, got %+v", merged)
			}
			if merged[0].StartTime != 85 || merged[0].EndTime != 110 {
				t.Fatalf("artifact must not extend intervals, got [%v,%v]", merged[0].StartTime, merged[0].EndTime)
			}
			for _, m := range merged {
				if IsArtifact(m.Text) {
					t.Fatalf("artifact text leaked into output: %q", m.Text)
				}
			}
		})
	}
}

func TestMergeExtendsEveryReachableInterval(t *testing.T) {
	first := detectionAt(1, 100, "first")
	second := detectionAt(2, 200, "second")
	wide := Detection{Frame: 3, Text: "wide", StartTime: 100, EndTime: 200}

	merged := Merge([]Detection{first, second, wide}, testPadding)
	if len(merged) != 2 {
		t.Fatalf("expected the wide detection to fold into both intervals, got %+v", merged)
	}
	if merged[0].StartTime != 85 || merged[0].EndTime != 200 {
		t.Fatalf("unexpected first interval [%v,%v]", merged[0].StartTime, merged[0].EndTime)
	}
	if merged[1].StartTime != 100 || merged[1].EndTime != 210 {
		t.Fatalf("unexpected second interval [%v,%v]", merged[1].StartTime, merged[1].EndTime)
	}
}

func TestMergeEmpty(t *testing.T) {
	if merged := Merge(nil, testPadding); len(merged) != 0 {
		t.Fatalf("expected no intervals, got %+v", merged)
	}
}

func TestMergeNeverProducesInvertedIntervals(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for round := 0; round < 200; round++ {
		var detections []Detection
		seconds := 0.0
		for i := 0; i < 40; i++ {
			seconds += rng.Float64() * 60
			detections = append(detections, detectionAt(uint64(i+1), seconds, "kill"))
		}
		for _, m := range Merge(detections, testPadding) {
			if m.EndTime < m.StartTime {
				t.Fatalf("round %d: inverted interval %+v", round, m)
			}
		}
	}
}

func TestMergeIsIdempotent(t *testing.T) {
	detections := []Detection{
		detectionAt(1, 100, "a"),
		detectionAt(2, 104, "b"),
		detectionAt(3, 130, "c"),
		detectionAt(4, 500, "d"),
		detectionAt(5, 700, "e"),
		detectionAt(6, 712, "f"),
	}
	first := Merge(detections, testPadding)

	replay := make([]Detection, 0, len(first))
	for _, m := range first {
		replay = append(replay, Detection{
			Frame:        m.Frame,
			FPS:          m.FPS,
			EditDistance: m.EditDistance,
			Text:         m.Text,
			Time:         m.Time,
			StartTime:    m.StartTime,
			EndTime:      m.EndTime,
		})
	}
	second := Merge(replay, testPadding)

	if len(first) != len(second) {
		t.Fatalf("interval count changed: %d -> %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("interval %d changed: %+v -> %+v", i, first[i], second[i])
		}
	}
}
