package archive

import (
	"errors"
	"fmt"
	"sort"
)

// Parser converts one raw document body into messages in original order.
// Parsers only fill Sender, Content and Timestamp; ownership is resolved by the Registry.
type Parser interface {
	Parse(body []byte) ([]Message, error)
}

// ParserFunc adapts a function to Parser.
type ParserFunc func(body []byte) ([]Message, error)

func (f ParserFunc) Parse(body []byte) ([]Message, error) { return f(body) }

// Registry dispatches documents to the parser registered for their format.
type Registry struct {
	parsers  map[Format]Parser
	matchers map[Format]MatcherFactory
}

// NewRegistry returns a registry with every built-in parser registered.
func NewRegistry() *Registry {
	r := &Registry{
		parsers:  make(map[Format]Parser),
		matchers: make(map[Format]MatcherFactory),
	}
	r.Register(FormatJSON, ParserFunc(ParseJSON))
	r.Register(FormatJSONL, ParserFunc(ParseJSONL))
	r.Register(FormatTranscript, ParserFunc(ParseTranscript))
	r.Register(FormatPlain, ParserFunc(ParsePlain))
	return r
}

// Register installs or replaces the parser for a format.
func (r *Registry) Register(f Format, p Parser) {
	r.parsers[f] = p
}

// RegisterMatcher installs an owner matcher factory for a format, replacing the alias default.
func (r *Registry) RegisterMatcher(f Format, m MatcherFactory) {
	r.matchers[f] = m
}

// Parse runs the fallback chain for the declared format and returns the messages
// of the first parser that produced any, along with the format that produced them.
// A document no parser can read yields ErrNoMessages.
func (r *Registry) Parse(body []byte, declared Format, meta DocumentMetadata) ([]Message, Format, error) {
	var errs []error
	for _, f := range fallbackChain(declared) {
		p, ok := r.parsers[f]
		if !ok {
			continue
		}
		msgs, err := safeParse(p, body)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", f, err))
			continue
		}
		if len(msgs) == 0 {
			continue
		}
		if f.Structured() {
			orderByTimestamp(msgs)
		}
		r.resolveOwners(f, msgs, meta)
		return msgs, f, nil
	}
	if len(errs) > 0 {
		return nil, declared, fmt.Errorf("%w: %w", ErrNoMessages, errors.Join(errs...))
	}
	return nil, declared, ErrNoMessages
}

// ParseDocument is Parse applied to a Document.
func (r *Registry) ParseDocument(doc Document) ([]Message, Format, error) {
	return r.Parse(doc.RawBody, doc.SourceType, doc.Metadata)
}

func (r *Registry) matcherFor(f Format, meta DocumentMetadata) OwnerMatcher {
	if !f.HasIdentity() {
		return AllOwner{}
	}
	if factory, ok := r.matchers[f]; ok {
		return factory(meta)
	}
	return NewAliasMatcher(meta)
}

// resolveOwners marks owner messages. Structured documents where nobody matches
// and no account name is known default to all-owner rather than being dropped.
func (r *Registry) resolveOwners(f Format, msgs []Message, meta DocumentMetadata) {
	m := r.matcherFor(f, meta)
	owners := 0
	for i := range msgs {
		msgs[i].IsOwner = m.IsOwner(msgs[i].Sender)
		if msgs[i].IsOwner {
			owners++
		}
	}
	if owners == 0 && meta.AccountName == "" {
		for i := range msgs {
			msgs[i].IsOwner = true
		}
	}
}

// orderByTimestamp sorts chronologically when every message carries a timestamp.
// Some exports (Messenger) list newest first.
func orderByTimestamp(msgs []Message) {
	for _, m := range msgs {
		if m.Timestamp == 0 {
			return
		}
	}
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].Timestamp < msgs[j].Timestamp
	})
}

func safeParse(p Parser, body []byte) (msgs []Message, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			msgs, err = nil, fmt.Errorf("parser panic: %v", rec)
		}
	}()
	return p.Parse(body)
}
