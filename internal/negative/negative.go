// Package negative derives contrastive counter-examples from accepted
// responses for preference training.
package negative

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/MikeSquared-Agency/curator/internal/sample"
)

// Negative is a synthesized counter-example.
type Negative struct {
	Text string
	Type sample.NegativeType
}

type transform struct {
	typ sample.NegativeType
	fn  func(response string, styleTags []string) string
}

// transforms are tried in order; the first that changes the text wins.
var transforms = []transform{
	{sample.NegativeFactAltered, alterFacts},
	{sample.NegativePolarityFlip, flipPolarity},
	{sample.NegativeStyleFlip, flipStyle},
}

// Synthesize returns one counter-example for response, or false when no
// transformation reliably applies.
func Synthesize(response string, styleTags []string) (Negative, bool) {
	response = strings.TrimSpace(response)
	if len(strings.Fields(response)) < 2 {
		return Negative{}, false
	}
	for _, t := range transforms {
		out := strings.TrimSpace(t.fn(response, styleTags))
		if out != "" && out != response {
			return Negative{Text: out, Type: t.typ}, true
		}
	}
	return Negative{}, false
}

var (
	numberRE  = regexp.MustCompile(`\d+`)
	weekdayRE = regexp.MustCompile(`(?i)\b(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`)
	weekdays  = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}
)

// alterFacts changes the first number, or failing that the first weekday.
func alterFacts(response string, _ []string) string {
	if loc := numberRE.FindStringIndex(response); loc != nil {
		n, err := strconv.Atoi(response[loc[0]:loc[1]])
		if err == nil {
			return response[:loc[0]] + strconv.Itoa(n+1) + response[loc[1]:]
		}
	}
	if loc := weekdayRE.FindStringIndex(response); loc != nil {
		day := response[loc[0]:loc[1]]
		for i, d := range weekdays {
			if strings.EqualFold(d, day) {
				return response[:loc[0]] + matchCase(day, weekdays[(i+3)%7]) + response[loc[1]:]
			}
		}
	}
	return ""
}

var antonyms = map[string]string{
	"love": "hate", "hate": "love",
	"like": "dislike", "dislike": "like",
	"yes": "no", "no": "yes",
	"always": "never", "never": "always",
	"good": "bad", "bad": "good",
	"great": "terrible", "terrible": "great",
	"happy": "sad", "sad": "happy",
	"agree": "disagree", "disagree": "agree",
	"can": "can't", "can't": "can",
	"will": "won't", "won't": "will",
	"do": "don't", "don't": "do",
	"is": "isn't", "isn't": "is",
	"want": "don't want",
	"best": "worst", "worst": "best",
}

var polarityRE = regexp.MustCompile(`(?i)\b(dislike|disagree|terrible|always|never|love|hate|like|yes|no|good|bad|great|happy|sad|agree|can't|can|won't|will|don't|do|isn't|is|want|best|worst)\b`)

// flipPolarity swaps every sentiment or negation word for its opposite.
func flipPolarity(response string, _ []string) string {
	if !polarityRE.MatchString(response) {
		return ""
	}
	return polarityRE.ReplaceAllStringFunc(response, func(w string) string {
		if to, ok := antonyms[strings.ToLower(w)]; ok {
			return matchCase(w, to)
		}
		return w
	})
}

var (
	casualToFormal = map[string]string{
		"u": "you", "ur": "your", "gonna": "going to", "wanna": "want to",
		"gotta": "have to", "kinda": "somewhat", "idk": "I do not know", "btw": "by the way",
		"tbh": "to be honest", "thx": "thank you", "pls": "please", "yeah": "yes", "nah": "no",
		"can't": "cannot", "don't": "do not", "won't": "will not", "i'm": "I am", "im": "I am",
		"i": "I", "lol": "", "lmao": "", "haha": "", "hahaha": "",
	}
	formalToCasual = map[string]string{
		"going to": "gonna", "want to": "wanna", "have to": "gotta", "do not": "don't",
		"cannot": "can't", "will not": "won't", "i am": "i'm", "thank you": "thx",
		"please": "pls", "you": "u", "your": "ur", "by the way": "btw",
	}
	casualWordRE = wordPattern(casualToFormal)
	formalWordRE = wordPattern(formalToCasual)
)

// wordPattern matches any key of m as a whole word, longest keys first.
func wordPattern(m map[string]string) *regexp.Regexp {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, regexp.QuoteMeta(k))
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return regexp.MustCompile(`(?i)\b(` + strings.Join(keys, "|") + `)\b`)
}

func replaceWords(s string, re *regexp.Regexp, m map[string]string) string {
	return re.ReplaceAllStringFunc(s, func(w string) string {
		return m[strings.ToLower(w)]
	})
}

// flipStyle rewrites casual text formally and formal text casually. It only
// applies when the style tags give a clear direction.
func flipStyle(response string, styleTags []string) string {
	tags := make(map[string]bool, len(styleTags))
	for _, t := range styleTags {
		tags[t] = true
	}

	switch {
	case tags["formal"]:
		out := strings.ToLower(replaceWords(response, formalWordRE, formalToCasual))
		return strings.TrimRight(out, ".") + " lol"
	case tags["casual"] || tags["lowercase"] || tags["laughter"] || tags["emoji"]:
		out := replaceWords(response, casualWordRE, casualToFormal)
		out = strings.Map(func(r rune) rune {
			if isEmoji(r) {
				return -1
			}
			return r
		}, out)
		out = strings.Join(strings.Fields(out), " ")
		if out == "" {
			return ""
		}
		out = capitalize(out)
		if !strings.ContainsAny(out[len(out)-1:], ".!?") {
			out += "."
		}
		return out
	}
	return ""
}

func isEmoji(r rune) bool {
	return (r >= 0x1F000 && r <= 0x1FAFF) || (r >= 0x2600 && r <= 0x27BF) || (r >= 0xFE00 && r <= 0xFE0F) || r == 0x200D
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}

// matchCase applies the capitalisation of src to dst.
func matchCase(src, dst string) string {
	switch {
	case strings.ToUpper(src) == src && strings.ToLower(src) != src && len(src) > 1:
		return strings.ToUpper(dst)
	case unicode.IsUpper([]rune(src)[0]):
		return capitalize(dst)
	}
	return dst
}
