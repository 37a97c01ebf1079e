package models

import (
	"fmt"
	"slices"
)

// Schema is the declared domain of every profile field. A schema narrower
// than DefaultSchema describes a curated subset of combinations.
type Schema struct {
	Categories []Category  `json:"categories" yaml:"categories"`
	Franchise  []bool      `json:"franchise" yaml:"franchise"`
	NewStore   []bool      `json:"new_store" yaml:"new_store"`
	Sizes      []StoreSize `json:"sizes" yaml:"sizes"`
	AgeBands   []AgeBand   `json:"age_bands" yaml:"age_bands"`
	Segments   []Segment   `json:"segments" yaml:"segments"`
}

func DefaultSchema() Schema {
	return Schema{
		Categories: []Category{CategoryCafe, CategoryKorean, CategoryJapanese, CategoryChinese, CategoryWestern, CategoryPub},
		Franchise:  []bool{true, false},
		NewStore:   []bool{true, false},
		Sizes:      []StoreSize{SizeSmall, SizeMedium, SizeLarge, SizeDeliveryOnly},
		AgeBands:   []AgeBand{Age20s, Age30s40s, Age50Plus},
		Segments:   []Segment{SegmentStudents, SegmentRegulars, SegmentNewcomers, SegmentResidents, SegmentOfficeWorkers, SegmentFootTraffic},
	}
}

// Size is the number of combinations the schema enumerates.
func (s Schema) Size() int {
	return len(s.Categories) * len(s.Franchise) * len(s.NewStore) *
		len(s.Sizes) * len(s.AgeBands) * len(s.Segments)
}

// Combinations enumerates the cartesian product of the schema, category
// outermost and segment innermost.
func (s Schema) Combinations() []StoreProfile {
	out := make([]StoreProfile, 0, s.Size())
	for _, c := range s.Categories {
		for _, f := range s.Franchise {
			for _, n := range s.NewStore {
				for _, sz := range s.Sizes {
					for _, a := range s.AgeBands {
						for _, seg := range s.Segments {
							out = append(out, StoreProfile{
								Category:  c,
								Franchise: f,
								NewStore:  n,
								Size:      sz,
								AgeBand:   a,
								Segment:   seg,
							})
						}
					}
				}
			}
		}
	}
	return out
}

// Check reports the first field of p that lies outside the schema.
func (s Schema) Check(p StoreProfile) error {
	switch {
	case !slices.Contains(s.Categories, p.Category):
		return fmt.Errorf("%w: category %q", ErrInvalidProfile, p.Category)
	case !slices.Contains(s.Franchise, p.Franchise):
		return fmt.Errorf("%w: franchise %t", ErrInvalidProfile, p.Franchise)
	case !slices.Contains(s.NewStore, p.NewStore):
		return fmt.Errorf("%w: new_store %t", ErrInvalidProfile, p.NewStore)
	case !slices.Contains(s.Sizes, p.Size):
		return fmt.Errorf("%w: size %q", ErrInvalidProfile, p.Size)
	case !slices.Contains(s.AgeBands, p.AgeBand):
		return fmt.Errorf("%w: age_band %q", ErrInvalidProfile, p.AgeBand)
	case !slices.Contains(s.Segments, p.Segment):
		return fmt.Errorf("%w: segment %q", ErrInvalidProfile, p.Segment)
	}
	return nil
}

// Validate rejects empty fields and values unknown to DefaultSchema.
func (s Schema) Validate() error {
	if s.Size() == 0 {
		return fmt.Errorf("%w: schema has an empty field domain", ErrInvalidProfile)
	}
	def := DefaultSchema()
	for _, p := range s.Combinations() {
		if err := def.Check(p); err != nil {
			return err
		}
	}
	return nil
}

// Option is one selectable value of a profile field.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Field describes a profile field for form rendering.
type Field struct {
	Name    string   `json:"name"`
	Options []Option `json:"options"`
}

// Fields describes the schema in form order.
func (s Schema) Fields() []Field {
	return []Field{
		{Name: "category", Options: options(s.Categories, Category.Label)},
		{Name: "franchise", Options: boolOptions(s.Franchise, "Franchise", "Independent store")},
		{Name: "new_store", Options: boolOptions(s.NewStore, "New store", "Established store")},
		{Name: "size", Options: options(s.Sizes, StoreSize.Label)},
		{Name: "age_band", Options: options(s.AgeBands, AgeBand.Label)},
		{Name: "segment", Options: options(s.Segments, Segment.Label)},
	}
}

func options[T ~string](values []T, label func(T) string) []Option {
	out := make([]Option, 0, len(values))
	for _, v := range values {
		out = append(out, Option{Value: string(v), Label: label(v)})
	}
	return out
}

func boolOptions(values []bool, yes, no string) []Option {
	out := make([]Option, 0, len(values))
	for _, v := range values {
		if v {
			out = append(out, Option{Value: "true", Label: yes})
		} else {
			out = append(out, Option{Value: "false", Label: no})
		}
	}
	return out
}
