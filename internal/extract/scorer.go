package extract

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/MikeSquared-Agency/curator/internal/archive"
	"github.com/MikeSquared-Agency/curator/internal/sample"
)

// ScoreFunc scores one response with its preceding context.
type ScoreFunc func(response string, context []archive.Message) float64

// Score returns the quality of a response in [0,1].
func Score(response string, context []archive.Message) float64 {
	score := 0.5

	words := len(strings.Fields(response))
	switch {
	case words >= 5 && words <= 100:
		score += 0.2
	case words > 100:
		score += 0.1
	}

	if len(context) >= 2 {
		score += 0.2
	}
	if strings.ContainsAny(response, ".!?") {
		score += 0.1
	}
	if hasRepeatRun(response, 5) {
		score -= 0.3
	}
	if n := utf8.RuneCountInString(response); n > 0 && countEmoji(response)*2 > n {
		score -= 0.2
	}

	return sample.Clamp01(score)
}

// hasRepeatRun reports whether any rune occurs n or more times in a row.
func hasRepeatRun(s string, n int) bool {
	var prev rune = -1
	run := 0
	for _, r := range s {
		if r == prev {
			run++
		} else {
			prev, run = r, 1
		}
		if run >= n {
			return true
		}
	}
	return false
}

func isEmoji(r rune) bool {
	switch {
	case r >= 0x1F000 && r <= 0x1FAFF:
		return true
	case r >= 0x2600 && r <= 0x27BF:
		return true
	case r >= 0xFE00 && r <= 0xFE0F, r == 0x200D:
		return true
	}
	return false
}

func countEmoji(s string) int {
	n := 0
	for _, r := range s {
		if isEmoji(r) {
			n++
		}
	}
	return n
}

var (
	laughterRE = regexp.MustCompile(`(?i)\b(lol|lmao|lmfao|rofl|a?ha(ha)+h?|he(he)+|xd)\b`)
	casualRE   = regexp.MustCompile(`(?i)\b(gonna|wanna|gotta|kinda|ya|u|ur|btw|omg|tbh|idk|imo|yeah|nah|yup|dunno|lemme|cuz|bro|dude)\b`)
	formalRE   = regexp.MustCompile(`(?i)\b(regards|sincerely|furthermore|therefore|however|kindly|would you|could you please|i would like|please find|appreciate it if)\b`)
)

// Style tags.
const (
	StyleQuestion    = "question"
	StyleExclamatory = "exclamatory"
	StyleEmoji       = "emoji"
	StyleLaughter    = "laughter"
	StyleAllCaps     = "all_caps"
	StyleLowercase   = "lowercase"
	StyleLongForm    = "long_form"
	StyleShortForm   = "short_form"
	StyleFormal      = "formal"
	StyleCasual      = "casual"
)

// StyleTags returns the sorted style labels of a response.
func StyleTags(response string) []string {
	var tags []string
	add := func(tag string, ok bool) {
		if ok {
			tags = append(tags, tag)
		}
	}

	upper, lower := 0, 0
	for _, r := range response {
		switch {
		case unicode.IsUpper(r):
			upper++
		case unicode.IsLower(r):
			lower++
		}
	}
	words := len(strings.Fields(response))

	add(StyleQuestion, strings.Contains(response, "?"))
	add(StyleExclamatory, strings.Contains(response, "!"))
	add(StyleEmoji, countEmoji(response) > 0)
	add(StyleLaughter, laughterRE.MatchString(response))
	add(StyleAllCaps, upper >= 4 && lower == 0)
	add(StyleLowercase, lower > 0 && upper == 0)
	add(StyleLongForm, words > 30)
	add(StyleShortForm, words <= 5)

	casual := casualRE.MatchString(response)
	add(StyleCasual, casual)
	add(StyleFormal, !casual && (formalRE.MatchString(response) || looksFormal(response, words)))

	sort.Strings(tags)
	return tags
}

// looksFormal is a capitalised, punctuated sentence of some length.
func looksFormal(s string, words int) bool {
	s = strings.TrimSpace(s)
	if words < 8 || s == "" {
		return false
	}
	first, _ := utf8.DecodeRuneInString(s)
	last, _ := utf8.DecodeLastRuneInString(s)
	return unicode.IsUpper(first) && last == '.'
}

type intentRule struct {
	tag string
	re  *regexp.Regexp
}

// intentRules are evaluated in order; the first match is the primary intent.
var intentRules = []intentRule{
	{"question", regexp.MustCompile(`\?\s*$|(?i)^(who|what|when|where|why|how|which|is|are|do|does|did|can|could|will|would|should|have|has)\b[^.!]*\?`)},
	{"request", regexp.MustCompile(`(?i)\b(can you|could you|would you|will you|please|pls|plz|let me know|send me|remind me)\b`)},
	{"gratitude", regexp.MustCompile(`(?i)\b(thanks|thank you|thx|appreciate|grateful)\b`)},
	{"apology", regexp.MustCompile(`(?i)\b(sorry|apologi[sz]e|my bad|forgive me)\b`)},
	{"affection", affectionRE},
	{"agreement", regexp.MustCompile(`(?i)\b(agreed|i agree|exactly|absolutely|definitely|you'?re right|makes sense|for sure)\b`)},
	{"disagreement", regexp.MustCompile(`(?i)\b(disagree|i don'?t think|not really|no way|that'?s wrong|i doubt)\b`)},
	{"planning", regexp.MustCompile(`(?i)\b(tomorrow|tonight|next week|this weekend|let'?s|we should|plan|schedule|meet up|pick you up|at \d{1,2}(:\d{2})?)\b`)},
	{"opinion", regexp.MustCompile(`(?i)\b(i think|i feel|i believe|in my opinion|imo|honestly|i prefer|i'?d rather)\b`)},
	{"sharing", regexp.MustCompile(`(?i)\b(i just|guess what|check this|look at this|i saw|i went|i got|today i|did you see)\b`)},
}

// IntentFallback is used when no intent pattern matches.
const IntentFallback = "statement"

// IntentTags returns matching intents in priority order; never empty.
func IntentTags(response string) []string {
	var tags []string
	for _, rule := range intentRules {
		if rule.re.MatchString(response) {
			tags = append(tags, rule.tag)
		}
	}
	if len(tags) == 0 {
		return []string{IntentFallback}
	}
	return tags
}

var affectionRE = regexp.MustCompile(`(?i)(\b(love you|love u|luv|miss you|miss u|xoxo|babe|baby|darling|sweetheart|honey|hugs|kisses|adore you)\b|<3|❤|😘|🥰)`)

// IsAffectionate reports whether the response uses affectionate vocabulary.
func IsAffectionate(response string) bool {
	return affectionRE.MatchString(response)
}

var (
	positiveWords = wordSet("love", "happy", "glad", "great", "awesome", "amazing", "good", "nice", "fun", "excited", "yay", "thanks", "perfect", "beautiful", "wonderful", "best", "proud", "haha", "lol")
	negativeWords = wordSet("sad", "angry", "hate", "bad", "awful", "terrible", "upset", "annoyed", "tired", "sorry", "worst", "ugh", "cry", "hurt", "miss", "scared", "worried", "sick")
)

func wordSet(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

// Emotion classifies the response by lexicon counts.
func Emotion(response string) sample.EmotionalTag {
	pos, neg := 0, 0
	for tok := range Tokens(response) {
		if positiveWords[tok] {
			pos++
		}
		if negativeWords[tok] {
			neg++
		}
	}
	switch {
	case pos > neg:
		return sample.EmotionPositive
	case neg > pos:
		return sample.EmotionNegative
	}
	return sample.EmotionNeutral
}
