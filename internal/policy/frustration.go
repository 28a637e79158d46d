// Package policy decides how frustrating the operator should be: it maps
// conversation state to a frustration level, classifies user sentiment with
// plain keyword matching, and picks the behavioral pattern for a turn.
package policy

import (
	"math/rand"
	"strings"
)

// MaxLevel is the top of the frustration range. It must match the domain of
// the persona prompt table, which rejects levels it has no entry for.
const MaxLevel = 5

// Level derives the frustration level from the number of user turns so far:
// one level per turn, saturating at MaxLevel. Deterministic on purpose so a
// replayed conversation escalates the same way.
func Level(userTurns int) int {
	if userTurns < 1 {
		return 1
	}
	if userTurns > MaxLevel {
		return MaxLevel
	}
	return userTurns
}

type Sentiment string

const (
	SentimentAngry      Sentiment = "angry"
	SentimentFrustrated Sentiment = "frustrated"
	SentimentCalm       Sentiment = "calm"
)

var angryWords = []string{"arrabbiato", "furioso", "assurdo", "ridicolo", "basta"}

var frustratedWords = []string{"frustrato", "stufo", "impossibile", "perchè", "perché"}

// DetectSentiment classifies a user message by keyword membership,
// case-insensitive. Angry wins over frustrated; anything else is calm.
func DetectSentiment(text string) Sentiment {
	lower := strings.ToLower(text)
	for _, w := range angryWords {
		if strings.Contains(lower, w) {
			return SentimentAngry
		}
	}
	for _, w := range frustratedWords {
		if strings.Contains(lower, w) {
			return SentimentFrustrated
		}
	}
	return SentimentCalm
}

// Pattern names a canned behavior the orchestrator can run instead of a
// live completion.
type Pattern string

const (
	PatternDirectCompletion Pattern = "direct_completion"
	PatternTransferLoop     Pattern = "transfer_loop"
	PatternInfoRequest      Pattern = "info_request"
	PatternSystemDown       Pattern = "system_down"
	PatternCallbackPromise  Pattern = "callback_promise"
	PatternWrongDepartment  Pattern = "wrong_department"
)

var cannedPatterns = []Pattern{
	PatternTransferLoop,
	PatternInfoRequest,
	PatternSystemDown,
	PatternCallbackPromise,
	PatternWrongDepartment,
}

// ChoosePattern picks the behavior for one turn. Angry callers deep into the
// conversation always get the transfer loop; the first turn always gets a
// live completion; everything else is a uniform draw over the canned set.
func ChoosePattern(rng *rand.Rand, sentiment Sentiment, level int) Pattern {
	if sentiment == SentimentAngry && level >= 3 {
		return PatternTransferLoop
	}
	if level == 1 {
		return PatternDirectCompletion
	}
	return cannedPatterns[rng.Intn(len(cannedPatterns))]
}

// Flags reports which stalling behaviors an assistant reply triggers.
type Flags struct {
	Waiting  bool `json:"waiting"`
	Transfer bool `json:"transfer"`
}

var waitingWords = []string{"attesa", "attenda", "attendere"}

var transferWords = []string{"trasferire", "trasferisco", "trasferito", "reparto", "dipartimento"}

// DetectWaitingOrTransfer scans an assistant reply for hold and transfer
// keywords. A reply containing a question mark is the operator asking, not
// stalling, so both flags stay false. If both keyword sets match at once the
// pair resolves to neither.
func DetectWaitingOrTransfer(response string) Flags {
	if strings.Contains(response, "?") {
		return Flags{}
	}

	lower := strings.ToLower(response)
	var f Flags
	for _, w := range waitingWords {
		if strings.Contains(lower, w) {
			f.Waiting = true
			break
		}
	}
	for _, w := range transferWords {
		if strings.Contains(lower, w) {
			f.Transfer = true
			break
		}
	}

	if f.Waiting && f.Transfer {
		return Flags{}
	}
	return f
}
