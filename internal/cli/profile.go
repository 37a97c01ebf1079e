package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/BerylCAtieno/franchise-marketing-advisor/internal/advisory"
	"github.com/BerylCAtieno/franchise-marketing-advisor/internal/catalog"
	"github.com/BerylCAtieno/franchise-marketing-advisor/internal/intake"
	"github.com/BerylCAtieno/franchise-marketing-advisor/internal/llm"
	"github.com/BerylCAtieno/franchise-marketing-advisor/internal/models"
	"github.com/BerylCAtieno/franchise-marketing-advisor/internal/observability"
)

// profileFlags collects a store profile from the command line. Name and
// about feed intake; explicit field flags win over its guesses.
type profileFlags struct {
	category  string
	franchise bool
	newStore  bool
	size      string
	ageBand   string
	segment   string
	name      string
	about     string
}

func (f *profileFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.category, "category", "", "business category (cafe, korean, japanese, chinese, western, pub)")
	fl.BoolVar(&f.franchise, "franchise", false, "store is a franchise branch")
	fl.BoolVar(&f.newStore, "new-store", false, "store opened recently")
	fl.StringVar(&f.size, "size", "", "store size (small, medium, large, delivery_only)")
	fl.StringVar(&f.ageBand, "age-band", "", "main customer age band (20s, 30s_40s, 50_plus)")
	fl.StringVar(&f.segment, "segment", "", "main customer segment (students, regulars, newcomers, residents, office_workers, foot_traffic)")
	fl.StringVar(&f.name, "name", "", "store name, used to guess category and franchise status")
	fl.StringVar(&f.about, "about", "", "free-text description of the store, used to guess the rest")
}

func (f *profileFlags) profile(cmd *cobra.Command) (models.StoreProfile, error) {
	var p models.StoreProfile
	if f.name != "" || f.about != "" {
		intake.Guess(f.name, f.about).Apply(&p)
	}

	fl := cmd.Flags()
	var err error
	if f.category != "" {
		if p.Category, err = models.ParseCategory(f.category); err != nil {
			return p, err
		}
	}
	if fl.Changed("franchise") {
		p.Franchise = f.franchise
	}
	if fl.Changed("new-store") {
		p.NewStore = f.newStore
	}
	if f.size != "" {
		if p.Size, err = models.ParseSize(f.size); err != nil {
			return p, err
		}
	}
	if f.ageBand != "" {
		if p.AgeBand, err = models.ParseAgeBand(f.ageBand); err != nil {
			return p, err
		}
	}
	if f.segment != "" {
		if p.Segment, err = models.ParseSegment(f.segment); err != nil {
			return p, err
		}
	}
	if err := p.Validate(); err != nil {
		return p, fmt.Errorf("%w (set it with a flag)", err)
	}
	return p, nil
}

// loadCatalog loads the configured catalog. A missing or broken catalog is
// fatal for every command that needs it.
func loadCatalog() (*catalog.Catalog, error) {
	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		return nil, fmt.Errorf("%w (run `advisor build` first)", err)
	}
	observability.Logger().Info("catalog loaded", "path", cfg.Catalog.Path,
		"personas", cat.Len(), "generated_at", cat.GeneratedAt())
	return cat, nil
}

func newGenerator(ctx context.Context) (llm.StreamGenerator, io.Closer, error) {
	gen, closer, err := llm.New(ctx, cfg.LLM())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create model client: %w", err)
	}
	return gen, closer, nil
}

func newAdvisor(cat *catalog.Catalog, gen llm.Generator, rec advisory.Recorder) (*advisory.Advisor, error) {
	return advisory.NewAdvisor(cat, gen,
		advisory.WithTemplate(cfg.Prompt),
		advisory.WithTimeout(cfg.Model.Timeout),
		advisory.WithRecorder(rec),
		advisory.WithLogger(observability.Logger()),
	)
}
