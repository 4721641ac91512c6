package services

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Message keys for link labels.
const (
	msgThankLabel     = "thanks-thank"
	msgThankTooltip   = "thanks-thank-tooltip"
	msgThankedLabel   = "thanks-thanked"
	msgThankedTooltip = "thanks-thanked-tooltip"
)

var supportedLanguages = []language.Tag{language.English, language.German}

var (
	messages = newCatalog()
	matcher  = language.NewMatcher(supportedLanguages)
)

func newCatalog() catalog.Catalog {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	set := func(tag language.Tag, key, msg string) {
		if err := b.SetString(tag, key, msg); err != nil {
			panic(err)
		}
	}
	set(language.English, msgThankLabel, "thank")
	set(language.English, msgThankTooltip, "Send a thank you notification to %s")
	set(language.English, msgThankedLabel, "thanked")
	set(language.English, msgThankedTooltip, "You thanked %s")

	set(language.German, msgThankLabel, "Danken")
	set(language.German, msgThankTooltip, "%s eine Dankesbenachrichtigung senden")
	set(language.German, msgThankedLabel, "Gedankt")
	set(language.German, msgThankedTooltip, "Du hast %s gedankt")
	return b
}

// MatchLanguage picks the best supported language for an Accept-Language
// header value. Unparseable or empty input yields English.
func MatchLanguage(acceptLanguage string) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return language.English
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return language.English
	}
	return supportedLanguages[idx]
}

func printer(tag language.Tag) *message.Printer {
	return message.NewPrinter(tag, message.Catalog(messages))
}
