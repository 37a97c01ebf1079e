package advisory

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/BerylCAtieno/franchise-marketing-advisor/internal/models"
)

var suggestedLine = regexp.MustCompile(`(?im)^[\s*_>#-]*suggested\s+follow-?up(?:\s+question)?[\s*_]*:(.+)$`)

type suggestion struct {
	words    []string
	question string
}

// suggestions are tried in order against the owner's question.
var suggestions = []suggestion{
	{[]string{"regular", "regulars", "revisit", "revisits", "repeat", "loyalty"},
		"What perks could I offer my regulars?"},
	{[]string{"sales", "sale", "revenue", "turnover"},
		"Which extra promotion would lift sales further?"},
	{[]string{"new", "newcomer", "newcomers", "first-time"},
		"Which channels bring in the most new customers?"},
	{[]string{"ad", "ads", "advert", "advertising", "promotion", "promotions", "promote", "marketing"},
		"How much should I budget for advertising?"},
}

var ageSuggestions = map[models.AgeBand]string{
	models.Age30s40s: "Can you show more content examples that work for customers in their 30s and 40s?",
	models.Age50Plus: "Which events or services would customers aged 50 and over enjoy?",
}

const defaultSuggestion = "Can you suggest an SNS strategy as well?"

// suggestFollowUp returns the "Suggested follow-up:" line of reply, or a
// question picked from the owner's question and the store's age band.
func suggestFollowUp(reply, question string, profile models.StoreProfile) string {
	if m := suggestedLine.FindAllStringSubmatch(reply, -1); len(m) > 0 {
		if s := strings.Trim(m[len(m)-1][1], " \t*_`\""); s != "" {
			return s
		}
	}

	words := strings.FieldsFunc(strings.ToLower(question), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '-'
	})
	for _, s := range suggestions {
		for _, w := range words {
			for _, k := range s.words {
				if w == k {
					return s.question
				}
			}
		}
	}
	if s, ok := ageSuggestions[profile.AgeBand]; ok {
		return s
	}
	return defaultSuggestion
}
