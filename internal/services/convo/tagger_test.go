package convo

import "testing"

func TestDetectIntent(t *testing.T) {
	cases := []struct {
		text string
		want string
		conf float64
	}{
		{"Can I get a loan for my apartment?", "loan", 0.85},
		{"I want to book a flight to Tokyo", "travel", 0.80},
		{"How does the deposit interest work?", "loan", 0.85}, // earlier rule wins on "interest"
		{"What cashback does this card give?", "credit", 0.75},
		{"Is my policy premium going up?", "insurance", 0.75},
		{"Show my transaction history", "spending", 0.70},
		{"Should I invest in an ETF?", "investment", 0.70},
		{"hello there", "unknown", 0.4},
	}
	for _, tc := range cases {
		got := DetectIntent(tc.text)
		if got.Label != tc.want || got.Confidence != tc.conf {
			t.Fatalf("DetectIntent(%q) = %+v, want %s/%.2f", tc.text, got, tc.want, tc.conf)
		}
	}
}

func TestDetectEmotion(t *testing.T) {
	cases := []struct {
		text string
		want string
	}{
		{"this is urgent, my payment is overdue", "stress"},
		{"I'm worried about my balance", "concern"},
		{"great, that worked!", "excitement"},
		{"please list my accounts", "neutral"},
	}
	for _, tc := range cases {
		if got := DetectEmotion(tc.text); got.Label != tc.want {
			t.Fatalf("DetectEmotion(%q) = %+v, want %s", tc.text, got, tc.want)
		}
	}
}

func TestDetectIntentIsCaseInsensitive(t *testing.T) {
	if got := DetectIntent("TRAVEL plans"); got.Label != "travel" {
		t.Fatalf("expected travel, got %+v", got)
	}
}
