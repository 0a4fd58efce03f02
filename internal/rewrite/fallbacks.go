package rewrite

import (
	"regexp"
	"strings"
)

// Fallback categories, roughly ordered from most to least specific.
const (
	CategoryAttack        = "attack"
	CategoryBlame         = "blame"
	CategoryTriangulation = "triangulation"
	CategoryThreat        = "threat"
	CategoryDemand        = "demand"
	CategoryGeneric       = "generic"
)

var (
	attackPattern        = regexp.MustCompile(`\byou suck\b|\byou'?re\s+(such\s+)?an?\s+(idiot|jerk|loser|moron|terrible person|awful person)\b|\byou'?re a terrible\b`)
	blamePattern         = regexp.MustCompile(`\byour fault\b|\bbecause of you\b|\byou always\b|\byou never\b`)
	triangulationPattern = regexp.MustCompile(`\btell (your|him|her|them)\b|\btell the kids\b`)
	threatPattern        = regexp.MustCompile(`\blawyer\b|\bcourt\b|\bpolice\b|\bor else\b`)
	demandPattern        = regexp.MustCompile(`\byou (should|must|need to|have to|better)\b`)
)

// Fallback is a pre-written sender-voice rewrite pair used when the
// model's own rewrites fail validation.
type Fallback struct {
	Category string
	Rewrite1 string
	Rewrite2 string
	Tip      string
}

var fallbackRewrites = map[string]Fallback{
	CategoryAttack: {
		Category: CategoryAttack,
		Rewrite1: "I'm feeling really frustrated right now and need to say so.",
		Rewrite2: "Something about how we're communicating isn't working for me. Can we talk?",
		Tip:      "Try describing what you're feeling instead of describing the other person.",
	},
	CategoryBlame: {
		Category: CategoryBlame,
		Rewrite1: "I'm feeling overwhelmed by this situation and could use some help.",
		Rewrite2: "I need us to figure out how to handle this together.",
		Tip:      "Focus on the problem you want solved rather than who caused it.",
	},
	CategoryTriangulation: {
		Category: CategoryTriangulation,
		Rewrite1: "I'd like to talk with you directly about this.",
		Rewrite2: "Can we work this out between us instead of putting the kids in the middle?",
		Tip:      "Keep requests between the two of you.",
	},
	CategoryThreat: {
		Category: CategoryThreat,
		Rewrite1: "I'm not seeing the progress I hoped for and want to talk about next steps.",
		Rewrite2: "Can we try to resolve this between us first?",
		Tip:      "Name the outcome you want instead of the consequence.",
	},
	CategoryDemand: {
		Category: CategoryDemand,
		Rewrite1: "It would really help me if you could take this one on.",
		Rewrite2: "Could we find a plan for this that works for both of us?",
		Tip:      "Phrase it as a request rather than an instruction.",
	},
	CategoryGeneric: {
		Category: CategoryGeneric,
		Rewrite1: "I have a concern I'd like to talk through with you.",
		Rewrite2: "Can we find a time to discuss this?",
		Tip:      "Lead with what you need.",
	},
}

// DetectCategory classifies the original message so the fallback rewrites
// address what actually went wrong in it.
func DetectCategory(text string) string {
	lower := strings.ToLower(strings.TrimSpace(text))
	switch {
	case lower == "":
		return CategoryGeneric
	case attackPattern.MatchString(lower):
		return CategoryAttack
	case blamePattern.MatchString(lower):
		return CategoryBlame
	case triangulationPattern.MatchString(lower):
		return CategoryTriangulation
	case threatPattern.MatchString(lower):
		return CategoryThreat
	case demandPattern.MatchString(lower):
		return CategoryDemand
	default:
		return CategoryGeneric
	}
}

// FallbackFor returns the pre-written rewrites matching the original
// message's category.
func FallbackFor(originalText string) Fallback {
	return fallbackRewrites[DetectCategory(originalText)]
}
