// Package rewrite checks that suggested rewrites speak in the sender's
// voice. The model occasionally drafts a reply the receiver would send
// ("I'm sorry you feel that way") instead of a restatement of the
// sender's point; shipping one of those would put words in the wrong
// person's mouth, so invalid rewrites are swapped for category-matched
// fallbacks.
package rewrite

import (
	"regexp"
	"strings"
)

// Validation reasons.
const (
	ReasonEmptyOrInvalid      = "empty_or_invalid"
	ReasonReceiverPerspective = "receiver_perspective_detected"
)

// Phrases that only make sense coming from the person who received the
// original message.
var receiverIndicators = []*regexp.Regexp{
	regexp.MustCompile(`\bi understand( that)? you\b`),
	regexp.MustCompile(`\bthat hurts? me\b`),
	regexp.MustCompile(`\bwhen you said\b`),
	regexp.MustCompile(`\bthat'?s not fair\b`),
	regexp.MustCompile(`\bi don'?t appreciate\b`),
	regexp.MustCompile(`\bbeing (spoken|talked) to\b`),
	regexp.MustCompile(`\bi'?m sorry you feel\b`),
	regexp.MustCompile(`\bwhat i did wrong\b`),
	regexp.MustCompile(`\bwhat (exactly )?do you mean\b`),
	regexp.MustCompile(`\bdidn'?t mean to (upset|hurt)\b`),
	regexp.MustCompile(`\bhearing that\b`),
	regexp.MustCompile(`\bi don'?t deserve\b`),
	regexp.MustCompile(`\bwhy would you say\b`),
	regexp.MustCompile(`\bi see you'?re\b`),
	regexp.MustCompile(`\bcalm down\b`),
	regexp.MustCompile(`\bwhat you said\b`),
	regexp.MustCompile(`\bthat'?s hurtful\b`),
	regexp.MustCompile(`\bnot okay to say\b`),
}

// Phrases typical of a sender restating their own point. These raise
// confidence; their absence alone never fails a rewrite.
var senderIndicators = []*regexp.Regexp{
	regexp.MustCompile(`\bi'?m feeling\b`),
	regexp.MustCompile(`\bi feel\b`),
	regexp.MustCompile(`\bi need\b`),
	regexp.MustCompile(`\bi'?ve noticed\b`),
	regexp.MustCompile(`\bi'?m (concerned|worried|frustrated|having)\b`),
	regexp.MustCompile(`\bi would like\b`),
	regexp.MustCompile(`\bi'?d (like|prefer)\b`),
	regexp.MustCompile(`\bcan we (discuss|talk|find)\b`),
	regexp.MustCompile(`\bfor me\b`),
}

// Validation is the verdict on one rewrite.
type Validation struct {
	Valid         bool
	Reason        string
	Confidence    float64
	SenderSignals bool
}

// ValidatePerspective checks that a rewrite stays in the sender's voice.
func ValidatePerspective(rewrite string) Validation {
	text := strings.ToLower(strings.TrimSpace(rewrite))
	if text == "" {
		return Validation{Valid: false, Reason: ReasonEmptyOrInvalid, Confidence: 1}
	}

	for _, p := range receiverIndicators {
		if p.MatchString(text) {
			return Validation{Valid: false, Reason: ReasonReceiverPerspective, Confidence: 0.9}
		}
	}

	senderHits := 0
	for _, p := range senderIndicators {
		if p.MatchString(text) {
			senderHits++
		}
	}
	confidence := 0.5 + 0.1*float64(senderHits)
	if confidence > 0.95 {
		confidence = 0.95
	}

	// No receiver signal: pass, even when ambiguous.
	return Validation{Valid: true, Confidence: confidence, SenderSignals: senderHits > 0}
}

// InterventionCheck is the combined verdict on an intervention's rewrites.
type InterventionCheck struct {
	Rewrite1   Validation
	Rewrite2   Validation
	Valid      bool
	AnyFailed  bool
	BothFailed bool
}

// ValidateIntervention checks both rewrites of an intervention.
func ValidateIntervention(rewrite1, rewrite2 string) InterventionCheck {
	c := InterventionCheck{
		Rewrite1: ValidatePerspective(rewrite1),
		Rewrite2: ValidatePerspective(rewrite2),
	}
	c.Valid = c.Rewrite1.Valid && c.Rewrite2.Valid
	c.AnyFailed = !c.Rewrite1.Valid || !c.Rewrite2.Valid
	c.BothFailed = !c.Rewrite1.Valid && !c.Rewrite2.Valid
	return c
}
