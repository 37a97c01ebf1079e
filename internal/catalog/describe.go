package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/BerylCAtieno/franchise-marketing-advisor/internal/llm"
	"github.com/BerylCAtieno/franchise-marketing-advisor/internal/models"
)

// Description is the synthesized text for one combination.
type Description struct {
	Text    string
	Tactics []string
	Source  string
}

// Describer produces the persona text for one profile combination.
type Describer interface {
	Describe(ctx context.Context, p models.StoreProfile) (Description, error)
}

// TemplateDescriber fills a fixed text template with attribute labels.
type TemplateDescriber struct{}

var segmentNotes = map[models.Segment]string{
	models.SegmentStudents:      "Visits cluster around class breaks and exam periods, and price sensitivity is high.",
	models.SegmentRegulars:      "Revenue depends on keeping familiar faces coming back, so loyalty and recognition matter more than reach.",
	models.SegmentNewcomers:     "Most guests are trying the store for the first time, so first impressions and reviews decide whether they return.",
	models.SegmentResidents:     "Guests live nearby and visit on weekday evenings and weekends, often with family.",
	models.SegmentOfficeWorkers: "Demand peaks at weekday lunch and after work, with little traffic on weekends.",
	models.SegmentFootTraffic:   "Guests decide on the spot while passing by, so visibility and signage drive sales.",
}

var segmentTactics = map[models.Segment]string{
	models.SegmentStudents:      "Student-ID discount during off-peak hours",
	models.SegmentRegulars:      "Stamp card or app-based loyalty reward",
	models.SegmentNewcomers:     "Review-for-a-treat campaign on map platforms",
	models.SegmentResidents:     "Neighborhood community posts and family set menus",
	models.SegmentOfficeWorkers: "Pre-order lunch sets and group-order bundles",
	models.SegmentFootTraffic:   "Eye-level storefront menu board with a daily special",
}

var sizeTactics = map[models.StoreSize]string{
	models.SizeSmall:        "Focus on takeout packaging and quick turnover",
	models.SizeMedium:       "Run small group events during slow weekday hours",
	models.SizeLarge:        "Host gatherings and reserve-ahead party packages",
	models.SizeDeliveryOnly: "Optimize delivery-app listing photos and bundle pricing",
}

var ageChannels = map[models.AgeBand]string{
	models.Age20s:    "Instagram reels and short-form video",
	models.Age30s40s: "Map-platform reviews and KakaoTalk channel coupons",
	models.Age50Plus: "Text-message coupons and in-store flyers",
}

func (TemplateDescriber) Describe(_ context.Context, p models.StoreProfile) (Description, error) {
	ownership := "an independent"
	if p.Franchise {
		ownership = "a franchise"
	}
	stage := "an established store with a settled customer base"
	if p.NewStore {
		stage = "a new store still building awareness"
	}
	format := strings.ToLower(p.Size.Label()) + " format"
	if p.Size == models.SizeDeliveryOnly {
		format = "delivery-only format with no dine-in seating"
	}

	text := fmt.Sprintf(
		"This persona is %s %s business in a %s. It is %s. Its core guests are %s, mostly %s. %s",
		ownership, p.Category.Label(), format, stage,
		p.AgeBand.Label(), strings.ToLower(p.Segment.Label()), segmentNotes[p.Segment],
	)

	tactics := []string{
		segmentTactics[p.Segment],
		sizeTactics[p.Size],
		"Primary channel: " + ageChannels[p.AgeBand],
	}
	if p.NewStore {
		tactics = append(tactics, "Grand-opening offer tied to a first review")
	}

	return Description{Text: text, Tactics: tactics, Source: models.SourceTemplate}, nil
}

// ModelDescriber asks a generative model for the persona text.
type ModelDescriber struct {
	Generator llm.Generator
}

var errUnparseable = errors.New("model reply has no description")

func (m ModelDescriber) Describe(ctx context.Context, p models.StoreProfile) (Description, error) {
	reply, err := m.Generator.Generate(ctx, personaPrompt(p))
	if err != nil {
		return Description{}, err
	}
	d, err := parsePersonaReply(reply)
	if err != nil {
		return Description{}, err
	}
	d.Source = models.SourceModel
	return d, nil
}

func personaPrompt(p models.StoreProfile) string {
	return fmt.Sprintf(`You are an expert marketing strategist for small food and beverage businesses. Based ONLY on the store profile below, describe the typical customer persona and situation of this store.

%s

The output MUST be exactly two lines of plain text without markdown:

description: one paragraph (3-5 sentences) describing the store situation and its core customers
tactics: 3-4 short example marketing tactics separated by semicolons

Example format:
description: A small independent cafe near a university that opened recently ...
tactics: student-hour discount; Instagram reels of seasonal drinks; stamp card`, strings.Join(p.Lines(), "\n"))
}

// parsePersonaReply reads "description:" and "tactics:" sections from reply.
// A description may wrap over several lines; it runs until the tactics key.
func parsePersonaReply(reply string) (Description, error) {
	var (
		d       Description
		text    []string
		section string
	)
	for _, line := range strings.Split(strings.TrimSpace(reply), "\n") {
		key, value, ok := strings.Cut(line, ":")
		key = strings.ToLower(strings.Trim(strings.TrimSpace(key), "*-# "))
		if ok && (key == "description" || key == "tactics") {
			section = key
		} else {
			value = line
		}
		value = strings.TrimSpace(value)
		switch section {
		case "description":
			if value != "" {
				text = append(text, value)
			}
		case "tactics":
			for _, t := range strings.Split(value, ";") {
				if t = strings.TrimSpace(t); t != "" {
					d.Tactics = append(d.Tactics, t)
				}
			}
		}
	}
	d.Text = strings.Join(text, " ")
	if d.Text == "" {
		return Description{}, errUnparseable
	}
	return d, nil
}
