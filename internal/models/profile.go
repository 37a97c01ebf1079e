package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidProfile is returned when a store profile carries a value outside
// the declared schema.
var ErrInvalidProfile = errors.New("invalid store profile")

type Category string

const (
	CategoryCafe     Category = "cafe"
	CategoryKorean   Category = "korean"
	CategoryJapanese Category = "japanese"
	CategoryChinese  Category = "chinese"
	CategoryWestern  Category = "western"
	CategoryPub      Category = "pub"
)

type StoreSize string

const (
	SizeSmall        StoreSize = "small"
	SizeMedium       StoreSize = "medium"
	SizeLarge        StoreSize = "large"
	SizeDeliveryOnly StoreSize = "delivery_only"
)

type AgeBand string

const (
	Age20s    AgeBand = "20s"
	Age30s40s AgeBand = "30s_40s"
	Age50Plus AgeBand = "50_plus"
)

type Segment string

const (
	SegmentStudents      Segment = "students"
	SegmentRegulars      Segment = "regulars"
	SegmentNewcomers     Segment = "newcomers"
	SegmentResidents     Segment = "residents"
	SegmentOfficeWorkers Segment = "office_workers"
	SegmentFootTraffic   Segment = "foot_traffic"
)

var categoryLabels = map[Category]string{
	CategoryCafe:     "Cafe/Dessert",
	CategoryKorean:   "Korean",
	CategoryJapanese: "Japanese",
	CategoryChinese:  "Chinese",
	CategoryWestern:  "Western/World cuisine",
	CategoryPub:      "Pub/Bar",
}

var sizeLabels = map[StoreSize]string{
	SizeSmall:        "Small",
	SizeMedium:       "Medium",
	SizeLarge:        "Large",
	SizeDeliveryOnly: "Delivery-only",
}

var ageLabels = map[AgeBand]string{
	Age20s:    "customers in their 20s and younger",
	Age30s40s: "customers in their 30s and 40s",
	Age50Plus: "customers aged 50 and over",
}

var segmentLabels = map[Segment]string{
	SegmentStudents:      "Students",
	SegmentRegulars:      "Repeat visitors",
	SegmentNewcomers:     "First-time visitors",
	SegmentResidents:     "Local residents",
	SegmentOfficeWorkers: "Office workers",
	SegmentFootTraffic:   "Passers-by",
}

func (c Category) Label() string  { return labelOr(categoryLabels[c], string(c)) }
func (s StoreSize) Label() string { return labelOr(sizeLabels[s], string(s)) }
func (a AgeBand) Label() string   { return labelOr(ageLabels[a], string(a)) }
func (s Segment) Label() string   { return labelOr(segmentLabels[s], string(s)) }

func labelOr(label, fallback string) string {
	if label == "" {
		return fallback
	}
	return label
}

// StoreProfile describes one storefront. All fields are required.
type StoreProfile struct {
	Category  Category  `json:"category" yaml:"category"`
	Franchise bool      `json:"franchise" yaml:"franchise"`
	NewStore  bool      `json:"new_store" yaml:"new_store"`
	Size      StoreSize `json:"size" yaml:"size"`
	AgeBand   AgeBand   `json:"age_band" yaml:"age_band"`
	Segment   Segment   `json:"segment" yaml:"segment"`
}

// UnmarshalJSON rejects a profile that leaves out a field, so an absent
// franchise or new_store flag is never read as false.
func (p *StoreProfile) UnmarshalJSON(data []byte) error {
	var raw struct {
		Category  *Category  `json:"category"`
		Franchise *bool      `json:"franchise"`
		NewStore  *bool      `json:"new_store"`
		Size      *StoreSize `json:"size"`
		AgeBand   *AgeBand   `json:"age_band"`
		Segment   *Segment   `json:"segment"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}

	var missing []string
	if raw.Category == nil {
		missing = append(missing, "category")
	}
	if raw.Franchise == nil {
		missing = append(missing, "franchise")
	}
	if raw.NewStore == nil {
		missing = append(missing, "new_store")
	}
	if raw.Size == nil {
		missing = append(missing, "size")
	}
	if raw.AgeBand == nil {
		missing = append(missing, "age_band")
	}
	if raw.Segment == nil {
		missing = append(missing, "segment")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidProfile, strings.Join(missing, ", "))
	}

	*p = StoreProfile{
		Category:  *raw.Category,
		Franchise: *raw.Franchise,
		NewStore:  *raw.NewStore,
		Size:      *raw.Size,
		AgeBand:   *raw.AgeBand,
		Segment:   *raw.Segment,
	}
	return nil
}

// Key returns the canonical catalog key for the profile.
func (p StoreProfile) Key() string {
	return strings.Join([]string{
		string(p.Category),
		yesNo(p.Franchise),
		yesNo(p.NewStore),
		string(p.Size),
		string(p.AgeBand),
		string(p.Segment),
	}, "|")
}

func yesNo(b bool) string {
	if b {
		return "y"
	}
	return "n"
}

// Validate checks every field against the default schema.
func (p StoreProfile) Validate() error {
	return DefaultSchema().Check(p)
}

// Lines renders the profile as "- Label: value" lines for prompts.
func (p StoreProfile) Lines() []string {
	franchise := "Independent store"
	if p.Franchise {
		franchise = "Franchise"
	}
	age := "Established store"
	if p.NewStore {
		age = "New store (open 12 months or less)"
	}
	return []string{
		"- Business category: " + p.Category.Label(),
		"- Ownership: " + franchise,
		"- Store age: " + age,
		"- Store size: " + p.Size.Label(),
		"- Main customer age band: " + p.AgeBand.Label(),
		"- Main customer segment: " + p.Segment.Label(),
	}
}

func (p StoreProfile) String() string {
	return p.Key()
}

// ParseCategory accepts a value code or its label, case-insensitively.
func ParseCategory(s string) (Category, error) {
	v, ok := parseEnum(s, categoryLabels)
	if !ok {
		return "", fmt.Errorf("%w: unknown category %q", ErrInvalidProfile, s)
	}
	return v, nil
}

func ParseSize(s string) (StoreSize, error) {
	v, ok := parseEnum(s, sizeLabels)
	if !ok {
		return "", fmt.Errorf("%w: unknown size %q", ErrInvalidProfile, s)
	}
	return v, nil
}

func ParseAgeBand(s string) (AgeBand, error) {
	v, ok := parseEnum(s, ageLabels)
	if !ok {
		return "", fmt.Errorf("%w: unknown age band %q", ErrInvalidProfile, s)
	}
	return v, nil
}

func ParseSegment(s string) (Segment, error) {
	v, ok := parseEnum(s, segmentLabels)
	if !ok {
		return "", fmt.Errorf("%w: unknown segment %q", ErrInvalidProfile, s)
	}
	return v, nil
}

func parseEnum[T ~string](s string, labels map[T]string) (T, bool) {
	s = strings.TrimSpace(s)
	for v, label := range labels {
		if strings.EqualFold(s, string(v)) || strings.EqualFold(s, label) {
			return v, true
		}
	}
	var zero T
	return zero, false
}
