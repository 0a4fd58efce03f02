// Package prefilter holds the fast local heuristics that run before any
// cache or model involvement. Matches here are high-confidence
// "definitely fine" patterns: greetings, polite closings, statements
// about third parties, and clearly positive sentiment. A message that
// passes a filter is delivered immediately and never analyzed.
package prefilter

import (
	"regexp"
	"strings"

	"github.com/liaizen/mediation-plane/pkg/models"
)

// minAnalyzeLength is the shortest trimmed message worth analyzing.
const minAnalyzeLength = 2

// Reason names which fast filter allowed a message, for logging.
type Reason string

const (
	ReasonNone       Reason = ""
	ReasonTooShort   Reason = "too_short"
	ReasonGreeting   Reason = "greeting"
	ReasonPolite     Reason = "polite"
	ReasonThirdParty Reason = "third_party"
	ReasonPositive   Reason = "positive_sentiment"
)

var allowedExact = map[string]Reason{
	"hi":          ReasonGreeting,
	"hello":       ReasonGreeting,
	"hey":         ReasonGreeting,
	"hi there":    ReasonGreeting,
	"hello there": ReasonGreeting,
	"hey there":   ReasonGreeting,

	"thanks":      ReasonPolite,
	"thank you":   ReasonPolite,
	"ok":          ReasonPolite,
	"okay":        ReasonPolite,
	"sure":        ReasonPolite,
	"yes":         ReasonPolite,
	"no":          ReasonPolite,
	"got it":      ReasonPolite,
	"sounds good": ReasonPolite,
}

var (
	mentionsYou        = regexp.MustCompile(`(?i)\b(you|your|you'?re|you'?ve|you'?d|you'?ll)\b`)
	mentionsThirdParty = regexp.MustCompile(`(?i)\b(my\s+)?(friend|teacher|boss|neighbor|colleague|coworker|brother|sister|mother|father|parent|grandma|grandpa|aunt|uncle|cousin)\b`)
)

// Friendly messages that should never be mediated, even though they
// address the co-parent directly.
var positivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(you'?re|you are)\s+(my\s+)?(friend|best|great|awesome|amazing|wonderful|the best|so kind|so helpful|so great|incredible|fantastic)\b`),
	regexp.MustCompile(`(?i)\b(love|appreciate|thankful|grateful)\s+(you|that|this)\b`),
	regexp.MustCompile(`(?i)\b(thank|thanks)\s+(you|so much|for)\b`),
	regexp.MustCompile(`(?i)\b(good job|well done|nice work|great work|great job)\b`),
	regexp.MustCompile(`(?i)\bI\s+(love|appreciate|value|admire|respect)\s+(you|this|that|our)\b`),
	regexp.MustCompile(`(?i)\b(you'?re|you are)\s+(doing\s+)?(great|well|good|amazing|awesome)\b`),
	regexp.MustCompile(`(?i)\b(miss|missed)\s+you\b`),
	regexp.MustCompile(`(?i)\b(proud of|happy for)\s+you\b`),
	regexp.MustCompile(`(?i)\byou('?re| are)\s+a\s+(great|good|wonderful|amazing)\s+(parent|dad|mom|father|mother|person)\b`),
	regexp.MustCompile(`(?i)\b(I\s+)?love\s+(how|when|that)\s+you\b`),
	regexp.MustCompile(`(?i)\b(I\s+)?love\s+(it|this)\s+when\s+you\b`),
	regexp.MustCompile(`(?i)\byou\s+(make|made)\s+me\s+(happy|smile|laugh|feel\s+(good|better|loved|special))\b`),
	regexp.MustCompile(`(?i)\b(you'?re|you are)\s+(so\s+)?(sweet|kind|thoughtful|caring|supportive|helpful)\b`),
}

// ShouldSkip reports whether a message can be allowed without analysis,
// and why. The checks are ordered cheapest first.
func ShouldSkip(text string) (bool, Reason) {
	trimmed := strings.ToLower(strings.TrimSpace(text))

	if len([]rune(trimmed)) < minAnalyzeLength {
		return true, ReasonTooShort
	}
	if reason, ok := allowedExact[trimmed]; ok {
		return true, reason
	}
	// Statements about someone other than the co-parent are not conflict.
	if !mentionsYou.MatchString(text) && mentionsThirdParty.MatchString(text) {
		return true, ReasonThirdParty
	}
	for _, p := range positivePatterns {
		if p.MatchString(text) {
			return true, ReasonPositive
		}
	}
	return false, ReasonNone
}

// ── Conflict pattern detection ───────────────────────────────

var (
	// Words that mark "you're/you are" as friendly rather than accusatory.
	positiveContextWords = regexp.MustCompile(`(?i)\b(friend|best|great|awesome|amazing|wonderful|helpful|kind|love|appreciate|proud|happy|good|fantastic|incredible|well|person)\b`)
	negativeContextWords = regexp.MustCompile(`(?i)\b(wrong|bad|stupid|crazy|irresponsible|useless|terrible|awful|horrible|pathetic|lazy|selfish|rude|mean|inconsiderate|careless)\b`)

	hasYouAre     = regexp.MustCompile(`(?i)\b(you'?re|you are)\b`)
	absolutes     = regexp.MustCompile(`\b(you always|you never)\b`)
	triangulation = regexp.MustCompile(`\b(she told me|he said|the kids|child.*said)\b`)
	comparison    = regexp.MustCompile(`\b(fine with me|never does that|at my house|at your house)\b`)
	blaming       = regexp.MustCompile(`\b(your fault|because of you|you made|you caused)\b`)
)

// DetectConflictPatterns runs the structural conflict heuristics over one
// message. "You're X" only counts as accusatory when X reads negative and
// the sentence carries no positive framing, so compliments like "you're
// an amazing parent" never raise the room's pressure.
func DetectConflictPatterns(text string) models.ConflictPatterns {
	lower := strings.ToLower(text)

	accusatory := absolutes.MatchString(lower) ||
		(hasYouAre.MatchString(lower) &&
			!positiveContextWords.MatchString(lower) &&
			negativeContextWords.MatchString(lower))

	return models.ConflictPatterns{
		Accusatory:    accusatory,
		Triangulation: triangulation.MatchString(lower),
		Comparison:    comparison.MatchString(lower),
		Blaming:       blaming.MatchString(lower),
	}
}
