// Package intake guesses profile fields from what an owner types: the store
// name and a free-text description. Guesses only prefill; the owner
// confirms the profile before a session starts.
package intake

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/BerylCAtieno/franchise-marketing-advisor/internal/models"
)

// brand keywords, matched against the normalized name
var brandsByCategory = []struct {
	category models.Category
	brands   []string
}{
	{models.CategoryCafe, []string{
		"starbucks", "twosome", "ediya", "megacoffee", "megamgc", "compose", "hollys",
		"paikdabang", "paulbassett", "gongcha", "tomntoms", "dunkin", "krispykreme",
		"baskin", "parisbaguette", "touslesjours", "waffleuniv", "yogerpresso",
	}},
	{models.CategoryKorean, []string{
		"kyochon", "nene", "hosigi", "goobne", "bbq", "bhc", "momstouch", "jaws",
		"sinjeon", "dookki", "myungryun", "bonjuk", "wonhalmoni", "hansot", "cheogajip",
	}},
	{models.CategoryJapanese, []string{"yoshinoya", "ichiran", "coco ichibanya", "cocoichi", "sushiro"}},
	{models.CategoryChinese, []string{"hongkong banjum", "hongkongbanjum", "paikjjambbong"}},
	{models.CategoryWestern, []string{
		"dominos", "pizzahut", "papajohns", "lotteria", "burgerking", "subway",
		"isaac", "franks", "pizzaschool", "mcdonalds", "kfc",
	}},
	{models.CategoryPub, []string{"hanshinpocha", "gangnampocha", "kkanbu"}},
}

// generic words that, next to a short brand hit, suggest an independent shop
var ambiguousWords = []string{
	"cafe", "coffee", "bakery", "bread", "wine", "chicken", "pizza", "noodle",
	"sushi", "butcher", "market",
}

var categoryKeywords = []struct {
	category models.Category
	words    []string
}{
	{models.CategoryCafe, []string{"cafe", "coffee", "dessert", "donut", "bingsu", "waffle", "macaron", "bakery", "espresso"}},
	{models.CategoryKorean, []string{"korean", "gukbap", "bibimbap", "jjigae", "tteokbokki", "kimbap", "chicken", "bbq", "porridge"}},
	{models.CategoryJapanese, []string{"japanese", "sushi", "ramen", "tonkatsu", "donburi", "udon", "soba", "izakaya"}},
	{models.CategoryChinese, []string{"chinese", "jjamppong", "jajang", "mala", "hotpot", "dimsum", "dumpling"}},
	{models.CategoryWestern, []string{"western", "steak", "pizza", "pasta", "burger", "sandwich", "toast", "bistro", "grill"}},
	{models.CategoryPub, []string{"pub", "bar", "beer", "brewery", "wine", "soju", "pocha", "taproom"}},
}

var nameNoise = regexp.MustCompile(`[\s*\-()\[\]{}_/\\.|,!?&^%$#@~` + "`" + `+=:;"']`)

func normalize(name string) string {
	return nameNoise.ReplaceAllString(strings.ToLower(name), "")
}

// ClassifyName infers the business category from a store name. Brand hits
// win over generic keywords.
func ClassifyName(name string) (models.Category, bool) {
	n := normalize(name)
	if n == "" {
		return "", false
	}
	for _, g := range brandsByCategory {
		for _, b := range g.brands {
			if strings.Contains(n, normalize(b)) {
				return g.category, true
			}
		}
	}
	lower := strings.ToLower(name)
	for _, g := range categoryKeywords {
		for _, w := range g.words {
			if strings.Contains(lower, w) {
				return g.category, true
			}
		}
	}
	return "", false
}

// IsFranchise reports whether the name carries a known brand. A short brand
// hit next to a generic word ("nene bakery") only counts when the name also
// names a branch ("... Gangnam branch").
func IsFranchise(name string) bool {
	n := normalize(name)
	if n == "" {
		return false
	}
	var hits []string
	for _, g := range brandsByCategory {
		for _, b := range g.brands {
			if nb := normalize(b); strings.Contains(n, nb) {
				hits = append(hits, nb)
			}
		}
	}
	if len(hits) == 0 {
		return false
	}
	branch := strings.Contains(strings.ToLower(name), "branch") || strings.Contains(name, "점")
	for _, w := range ambiguousWords {
		if !strings.Contains(n, w) {
			continue
		}
		for _, h := range hits {
			if len(h) <= 4 && !branch {
				return false
			}
		}
	}
	return true
}

// Hints holds the fields intake could infer. Nil means unknown.
type Hints struct {
	Brand     string            `json:"brand,omitempty"`
	Category  *models.Category  `json:"category,omitempty"`
	Franchise *bool             `json:"franchise,omitempty"`
	NewStore  *bool             `json:"new_store,omitempty"`
	Size      *models.StoreSize `json:"size,omitempty"`
	AgeBand   *models.AgeBand   `json:"age_band,omitempty"`
	Segment   *models.Segment   `json:"segment,omitempty"`
	Segments  []models.Segment  `json:"segments,omitempty"`
	Question  string            `json:"question,omitempty"`
}

var (
	yearsOpen  = regexp.MustCompile(`(?i)(\d+)\s*(?:years?|yrs?)\b`)
	monthsOpen = regexp.MustCompile(`(?i)(\d+)\s*(?:months?|mos?)\b`)
	age20s     = regexp.MustCompile(`(?i)\b(?:1|2)0\s*'?s\b|\bteens?\b|\byoung\b`)
	age30s40s  = regexp.MustCompile(`(?i)\b(?:3|4)0\s*'?s\b|\bfamilies\b`)
	age50plus  = regexp.MustCompile(`(?i)\b(?:5|6|7)0\s*'?s\b|\bseniors?\b|\belderly\b`)
	sentences  = regexp.MustCompile(`[^.!?]+[.!?]*`)
)

// newStoreMonths is the opening age up to which a store counts as new.
const newStoreMonths = 12

var segmentWords = []struct {
	segment models.Segment
	words   []string
}{
	{models.SegmentRegulars, []string{"regular", "repeat", "return"}},
	{models.SegmentNewcomers, []string{"new customer", "first-time", "first time", "newcomer"}},
	{models.SegmentResidents, []string{"resident", "neighbo", "local"}},
	{models.SegmentOfficeWorkers, []string{"office", "worker", "company", "lunch crowd"}},
	{models.SegmentFootTraffic, []string{"passers", "passing", "foot traffic", "tourist", "walk-in"}},
	{models.SegmentStudents, []string{"student", "campus", "university", "school"}},
}

// Extract reads store facts and the question out of free text. Sentences
// with a question mark are the question; without one, the last sentence is.
// Brand and category come from the non-question sentences only.
func Extract(text string) Hints {
	var h Hints
	text = strings.TrimSpace(text)
	if text == "" {
		return h
	}

	var facts, questions []string
	for _, s := range sentences.FindAllString(text, -1) {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if strings.Contains(s, "?") {
			questions = append(questions, s)
		} else {
			facts = append(facts, s)
		}
	}
	if len(questions) == 0 && len(facts) > 0 {
		questions = append(questions, facts[len(facts)-1])
		facts = facts[:len(facts)-1]
	}
	h.Question = strings.Join(questions, " ")
	context := strings.Join(facts, " ")
	if context == "" {
		context = text
	}
	lower := strings.ToLower(text)

	if c, ok := ClassifyName(context); ok {
		h.Category = &c
	}
	for _, g := range brandsByCategory {
		for _, b := range g.brands {
			if nb := normalize(b); strings.Contains(normalize(context), nb) && len(nb) > len(h.Brand) {
				h.Brand = nb
			}
		}
	}
	if h.Brand != "" {
		f := IsFranchise(context)
		h.Franchise = &f
	}

	if months, ok := openedMonths(text); ok {
		n := months <= newStoreMonths
		h.NewStore = &n
	}

	switch {
	case age20s.MatchString(text):
		h.AgeBand = ptr(models.Age20s)
	case age30s40s.MatchString(text):
		h.AgeBand = ptr(models.Age30s40s)
	case age50plus.MatchString(text):
		h.AgeBand = ptr(models.Age50Plus)
	}

	if strings.Contains(lower, "delivery only") || strings.Contains(lower, "delivery-only") {
		h.Size = ptr(models.SizeDeliveryOnly)
	}

	for _, g := range segmentWords {
		for _, w := range g.words {
			if strings.Contains(lower, w) {
				h.Segments = append(h.Segments, g.segment)
				break
			}
		}
	}
	if len(h.Segments) > 0 {
		h.Segment = &h.Segments[0]
	}
	return h
}

func openedMonths(text string) (int, bool) {
	if m := yearsOpen.FindStringSubmatch(text); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil {
			return n * 12, true
		}
	}
	if m := monthsOpen.FindStringSubmatch(text); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil {
			return n, true
		}
	}
	return 0, false
}

// Guess combines the store name with the free text. The name decides
// category and franchise status when it is recognisable.
func Guess(name, text string) Hints {
	h := Extract(text)
	if c, ok := ClassifyName(name); ok {
		h.Category = &c
	}
	if strings.TrimSpace(name) != "" {
		f := IsFranchise(name)
		h.Franchise = &f
	}
	return h
}

// Apply copies every known hint onto p.
func (h Hints) Apply(p *models.StoreProfile) {
	if h.Category != nil {
		p.Category = *h.Category
	}
	if h.Franchise != nil {
		p.Franchise = *h.Franchise
	}
	if h.NewStore != nil {
		p.NewStore = *h.NewStore
	}
	if h.Size != nil {
		p.Size = *h.Size
	}
	if h.AgeBand != nil {
		p.AgeBand = *h.AgeBand
	}
	if h.Segment != nil {
		p.Segment = *h.Segment
	}
}

// Missing lists the profile fields intake could not infer, in form order.
func (h Hints) Missing() []string {
	var out []string
	if h.Category == nil {
		out = append(out, "category")
	}
	if h.Franchise == nil {
		out = append(out, "franchise")
	}
	if h.NewStore == nil {
		out = append(out, "new_store")
	}
	if h.Size == nil {
		out = append(out, "size")
	}
	if h.AgeBand == nil {
		out = append(out, "age_band")
	}
	if h.Segment == nil {
		out = append(out, "segment")
	}
	return out
}

func ptr[T any](v T) *T { return &v }
