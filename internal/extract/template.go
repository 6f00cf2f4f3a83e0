package extract

import (
	"regexp"
	"strings"
)

var (
	// Greetings, acks and sign-offs that say nothing about the writer.
	templateGreetingRE = regexp.MustCompile(`^(hi|hey|hello|yo|hiya|howdy|sup|hi there|hey there|hello there|good (morning|afternoon|evening|night)|gm|gn|morning|night|ok|okay|k|kk|yes|yep|yeah|no|nope|sure|cool|nice|great|got it|sounds good|thanks|thank you|thx|ty|np|no problem|you too|same|lol|lmao|haha+|bye|see you|see ya|cya|ttyl|happy (birthday|new year|holidays|anniversary)|merry christmas|congrats|congratulations)( (man|dude|bro|guys|all|everyone|mate|babe))?$`)

	// Platform placeholders left in exports.
	templateBoilerplateRE = regexp.MustCompile(`(?i)(<media omitted>|<attached: |image omitted|video omitted|audio omitted|sticker omitted|gif omitted|document omitted|this message was deleted|you deleted this message|message deleted|missed (voice|video) call|sent an attachment|sent a photo|sent a sticker|sent a link|shared a (post|story|reel)|liked a message|reacted .{1,8} to your message|waiting for this message)`)

	nonWordRE = regexp.MustCompile(`[^\p{L}\p{N} ]+`)
)

// IsTemplate reports whether text is boilerplate or a near-constant greeting.
func IsTemplate(text string) bool {
	if templateBoilerplateRE.MatchString(text) {
		return true
	}
	cleaned := strings.Join(strings.Fields(nonWordRE.ReplaceAllString(Normalize(text), " ")), " ")
	if cleaned == "" {
		return false
	}
	return templateGreetingRE.MatchString(cleaned)
}
