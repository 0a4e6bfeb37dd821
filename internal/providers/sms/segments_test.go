package sms_test

import (
	"strings"
	"testing"

	"github.com/ajayykmr/crm-dispatch-go/internal/providers/sms"
)

func TestEstimateSegmentsGSM(t *testing.T) {
	cases := []struct {
		name string
		body string
		want int
	}{
		{"empty", "", 1},
		{"short", "hello", 1},
		{"single part limit", strings.Repeat("a", 160), 1},
		{"just over single part", strings.Repeat("a", 161), 2},
		{"two concatenated parts", strings.Repeat("a", 306), 2},
		{"three parts", strings.Repeat("a", 307), 3},
	}

	for _, tc := range cases {
		if got := sms.EstimateSegments(tc.body); got != tc.want {
			t.Fatalf("%s: expected %d segments, got %d", tc.name, tc.want, got)
		}
	}
}

func TestEstimateSegmentsExtendedCharsCountDouble(t *testing.T) {
	// Each euro sign consumes two septets, so 80 of them fill one part and
	// 81 spill into a second.
	if got := sms.EstimateSegments(strings.Repeat("€", 80)); got != 1 {
		t.Fatalf("expected 80 euro signs to fit one segment, got %d", got)
	}
	if got := sms.EstimateSegments(strings.Repeat("€", 81)); got != 2 {
		t.Fatalf("expected 81 euro signs to need two segments, got %d", got)
	}
}

func TestEstimateSegmentsUCS2(t *testing.T) {
	if got := sms.EstimateSegments(strings.Repeat("न", 70)); got != 1 {
		t.Fatalf("expected 70 unicode runes to fit one segment, got %d", got)
	}
	if got := sms.EstimateSegments(strings.Repeat("न", 71)); got != 2 {
		t.Fatalf("expected 71 unicode runes to need two segments, got %d", got)
	}
}

func TestEstimateSegmentsSingleUnicodeRuneForcesUCS2(t *testing.T) {
	// One rune outside the GSM sets reclassifies the whole message.
	body := strings.Repeat("a", 100) + "☃"
	if got := sms.EstimateSegments(body); got != 2 {
		t.Fatalf("expected mixed body to be counted as UCS-2, got %d segments", got)
	}
}
