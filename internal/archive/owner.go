package archive

import "strings"

// OwnerMatcher decides whether a sender name belongs to the account owner.
type OwnerMatcher interface {
	IsOwner(sender string) bool
}

// MatcherFactory builds a matcher for one document.
type MatcherFactory func(meta DocumentMetadata) OwnerMatcher

// DefaultAliases are first-person names exports use for the account owner.
var DefaultAliases = []string{"me", "myself", "i", "you", "self", "owner", "user"}

// AliasMatcher matches the account name exactly (case-insensitive) or any alias.
type AliasMatcher struct {
	AccountName string
	Aliases     []string
}

// NewAliasMatcher returns a matcher for the account name plus DefaultAliases.
func NewAliasMatcher(meta DocumentMetadata) OwnerMatcher {
	return AliasMatcher{AccountName: meta.AccountName, Aliases: DefaultAliases}
}

func (m AliasMatcher) IsOwner(sender string) bool {
	s := strings.ToLower(strings.TrimSpace(sender))
	if s == "" {
		return false
	}
	if acct := strings.ToLower(strings.TrimSpace(m.AccountName)); acct != "" && s == acct {
		return true
	}
	for _, a := range m.Aliases {
		if s == a {
			return true
		}
	}
	return false
}

// AllOwner treats every sender as the owner.
type AllOwner struct{}

func (AllOwner) IsOwner(string) bool { return true }
