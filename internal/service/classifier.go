package service

import (
	"strings"

	"wacrm-bridge/internal/helper"
	"wacrm-bridge/internal/model"
)

type phraseSet struct {
	typ     model.InteractionType
	phrases []string
}

// Classifier decides which CRM interaction a message represents.
// Phrase sets are normalized once and never change afterwards.
type Classifier struct {
	greetings  []string
	categories []phraseSet
}

func NewClassifier(cfg model.PhraseConfig) *Classifier {
	c := &Classifier{}
	for _, g := range cfg.Greetings {
		if g = strings.ToLower(strings.TrimSpace(g)); g != "" {
			c.greetings = append(c.greetings, g)
		}
	}
	for _, cat := range cfg.Categories {
		set := phraseSet{typ: cat.Type}
		for _, p := range cat.Phrases {
			if p = helper.Normalize(p); p != "" {
				set.phrases = append(set.phrases, p)
			}
		}
		c.categories = append(c.categories, set)
	}
	return c
}

// Matches reports whether message contains any of phrases. Both sides
// are expected to be normalized already.
func Matches(message string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(message, p) {
			return true
		}
	}
	return false
}

// Classify returns the first category, in priority order, whose phrases
// occur in the normalized message.
func (c *Classifier) Classify(normalized string) (model.InteractionType, bool) {
	for _, cat := range c.categories {
		if Matches(normalized, cat.phrases) {
			return cat.typ, true
		}
	}
	return "", false
}

// IsGreeting checks the raw body, lower-cased only, against the
// conversation-start words.
func (c *Classifier) IsGreeting(body string) bool {
	return Matches(strings.ToLower(body), c.greetings)
}
