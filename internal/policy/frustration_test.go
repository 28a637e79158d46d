package policy

import (
	"math/rand"
	"testing"
)

func TestLevelSaturates(t *testing.T) {
	cases := []struct {
		turns int
		want  int
	}{
		{0, 1},
		{1, 1},
		{2, 2},
		{5, 5},
		{6, 5},
		{100, 5},
	}
	for _, tc := range cases {
		if got := Level(tc.turns); got != tc.want {
			t.Fatalf("Level(%d) = %d, want %d", tc.turns, got, tc.want)
		}
	}
}

func TestDetectSentiment(t *testing.T) {
	cases := []struct {
		text string
		want Sentiment
	}{
		{"Questo è ASSURDO!", SentimentAngry},
		{"sono furioso con voi", SentimentAngry},
		{"sono stufo di aspettare", SentimentFrustrated},
		{"ma perché non funziona", SentimentFrustrated},
		{"vorrei prenotare un servizio", SentimentCalm},
		{"", SentimentCalm},
		// Angry wins when both vocabularies match.
		{"basta, sono stufo", SentimentAngry},
	}
	for _, tc := range cases {
		if got := DetectSentiment(tc.text); got != tc.want {
			t.Fatalf("DetectSentiment(%q) = %q, want %q", tc.text, got, tc.want)
		}
	}
}

func TestChoosePatternTieBreaks(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	if got := ChoosePattern(rng, SentimentAngry, 3); got != PatternTransferLoop {
		t.Fatalf("angry at level 3 = %q, want transfer_loop", got)
	}
	if got := ChoosePattern(rng, SentimentAngry, 5); got != PatternTransferLoop {
		t.Fatalf("angry at level 5 = %q, want transfer_loop", got)
	}
	if got := ChoosePattern(rng, SentimentCalm, 1); got != PatternDirectCompletion {
		t.Fatalf("calm at level 1 = %q, want direct_completion", got)
	}
	if got := ChoosePattern(rng, SentimentAngry, 2); got != PatternDirectCompletion && !isCanned(got) {
		t.Fatalf("angry at level 2 = %q, not in pattern set", got)
	}
}

func TestChoosePatternDrawsFromCannedSet(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	seen := map[Pattern]bool{}
	for i := 0; i < 200; i++ {
		p := ChoosePattern(rng, SentimentCalm, 3)
		if !isCanned(p) {
			t.Fatalf("draw %d returned %q, outside the canned set", i, p)
		}
		seen[p] = true
	}
	if len(seen) < 3 {
		t.Fatalf("uniform draw hit only %d patterns over 200 tries", len(seen))
	}
}

func isCanned(p Pattern) bool {
	for _, c := range cannedPatterns {
		if p == c {
			return true
		}
	}
	return false
}

func TestDetectWaitingOrTransfer(t *testing.T) {
	cases := []struct {
		response string
		want     Flags
	}{
		{"La metto in ATTESA", Flags{Waiting: true}},
		{"Attenda in linea per favore", Flags{Waiting: true}},
		{"La trasferisco subito", Flags{Transfer: true}},
		{"Deve parlare con il reparto reclami", Flags{Transfer: true}},
		{"Buongiorno, come posso aiutarla", Flags{}},
		// A question suppresses both, keyword or not.
		{"Vuole che la metta in attesa?", Flags{}},
		{"La trasferisco al reparto giusto?", Flags{}},
		// Both sets matching resolves to neither.
		{"Attenda, la trasferisco al reparto", Flags{}},
	}
	for _, tc := range cases {
		if got := DetectWaitingOrTransfer(tc.response); got != tc.want {
			t.Fatalf("DetectWaitingOrTransfer(%q) = %+v, want %+v", tc.response, got, tc.want)
		}
	}
}
