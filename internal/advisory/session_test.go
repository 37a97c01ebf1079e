package advisory

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/BerylCAtieno/franchise-marketing-advisor/internal/catalog"
	"github.com/BerylCAtieno/franchise-marketing-advisor/internal/llm"
	"github.com/BerylCAtieno/franchise-marketing-advisor/internal/models"
	"github.com/BerylCAtieno/franchise-marketing-advisor/internal/prompt"
)

// stubGenerator answers from a script. A step with hang set blocks until
// the call context ends.
type stubGenerator struct {
	mu      sync.Mutex
	script  []step
	prompts []string
}

type step struct {
	reply string
	err   error
	hang  bool
}

func (g *stubGenerator) Generate(ctx context.Context, p string) (string, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, p)
	var s step
	if len(g.script) > 0 {
		s, g.script = g.script[0], g.script[1:]
	}
	g.mu.Unlock()

	if s.hang {
		<-ctx.Done()
		return "", llm.Unavailable("stub", ctx.Err())
	}
	return s.reply, s.err
}

func cafeStudent() models.StoreProfile {
	return models.StoreProfile{
		Category:  models.CategoryCafe,
		Franchise: false,
		NewStore:  true,
		Size:      models.SizeSmall,
		AgeBand:   models.Age20s,
		Segment:   models.SegmentStudents,
	}
}

// fullCatalog covers the whole domain with template text, except that the
// cafe student combination is described as "D1".
func fullCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	var personas []models.Persona
	for _, p := range models.DefaultSchema().Combinations() {
		d, _ := catalog.TemplateDescriber{}.Describe(context.Background(), p)
		text := d.Text
		if p == cafeStudent() {
			text = "D1"
		}
		personas = append(personas, models.Persona{Profile: p, Description: text, Source: models.SourceTemplate})
	}
	c, err := catalog.New(models.DefaultSchema(), time.Now(), personas)
	if err != nil {
		t.Fatalf("catalog.New: %v", err)
	}
	return c
}

func newAdvisor(t *testing.T, gen llm.Generator, opts ...Option) *Advisor {
	t.Helper()
	a, err := NewAdvisor(fullCatalog(t), gen, opts...)
	if err != nil {
		t.Fatalf("NewAdvisor: %v", err)
	}
	return a
}

func TestAskComposesPersonaInstructionsAndQuestion(t *testing.T) {
	gen := &stubGenerator{script: []step{{reply: "Try a student-hour discount"}}}
	tmpl := prompt.DefaultTemplate()
	a := newAdvisor(t, gen, WithTemplate(tmpl))
	s := a.NewSession()

	persona, err := s.SubmitProfile(context.Background(), cafeStudent())
	if err != nil {
		t.Fatalf("SubmitProfile: %v", err)
	}
	if persona.Description != "D1" {
		t.Fatalf("expected persona D1, got %q", persona.Description)
	}

	q := "What discount should I run this month?"
	answer, err := s.Ask(context.Background(), q)
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if answer != "Try a student-hour discount" {
		t.Fatalf("answer must be returned unmodified, got %q", answer)
	}

	want, err := prompt.Compose(persona, tmpl, q)
	if err != nil {
		t.Fatal(err)
	}
	if len(gen.prompts) != 1 || gen.prompts[0] != want {
		t.Fatalf("prompt sent to the model differs from the composed prompt:\n%s", gen.prompts[0])
	}

	history := s.History()
	if len(history) != 1 {
		t.Fatalf("expected one exchange, got %d", len(history))
	}
	if history[0].Response != "Try a student-hour discount" || history[0].Question != q {
		t.Fatalf("unexpected exchange %+v", history[0])
	}
}

func TestTimeoutKeepsSessionState(t *testing.T) {
	gen := &stubGenerator{script: []step{
		{hang: true},
		{reply: "Try a student-hour discount"},
	}}
	a := newAdvisor(t, gen, WithTimeout(20*time.Millisecond))
	s := a.NewSession()
	if _, err := s.SubmitProfile(context.Background(), cafeStudent()); err != nil {
		t.Fatalf("SubmitProfile: %v", err)
	}

	_, err := s.Ask(context.Background(), "first try")
	if !errors.Is(err, ErrServiceUnavailable) {
		t.Fatalf("expected ErrServiceUnavailable, got %v", err)
	}
	if len(s.History()) != 0 {
		t.Fatalf("failed turn must not be recorded")
	}

	answer, err := s.Ask(context.Background(), "second try")
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if answer == "" {
		t.Fatalf("expected answer on retry")
	}
	if !strings.Contains(gen.prompts[1], "D1") {
		t.Fatalf("retry prompt lost the persona")
	}
	if persona, ok := s.Persona(); !ok || persona.Description != "D1" {
		t.Fatalf("persona changed after failure")
	}
	if len(s.History()) != 1 {
		t.Fatalf("expected one exchange after retry, got %d", len(s.History()))
	}
}

func TestRejectedIsDistinct(t *testing.T) {
	gen := &stubGenerator{script: []step{{err: llm.Rejected("stub", errors.New("quota"))}}}
	s := newAdvisor(t, gen).NewSession()
	if _, err := s.SubmitProfile(context.Background(), cafeStudent()); err != nil {
		t.Fatal(err)
	}
	_, err := s.Ask(context.Background(), "")
	if !errors.Is(err, ErrServiceRejected) {
		t.Fatalf("expected ErrServiceRejected, got %v", err)
	}
	if errors.Is(err, ErrServiceUnavailable) {
		t.Fatalf("rejected must not look like unavailable")
	}
}

func TestFollowUpIncludesHistory(t *testing.T) {
	gen := &stubGenerator{script: []step{{reply: "Strategy A"}, {reply: "Answer B"}}}
	s := newAdvisor(t, gen).NewSession()
	if _, err := s.SubmitProfile(context.Background(), cafeStudent()); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Ask(context.Background(), ""); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Ask(context.Background(), "What about weekends?"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(gen.prompts[1], "Strategy A") {
		t.Fatalf("follow-up prompt must include earlier answers")
	}
	if len(s.History()) != 2 {
		t.Fatalf("expected 2 exchanges, got %d", len(s.History()))
	}
}

func TestProfileIsFixedForSession(t *testing.T) {
	s := newAdvisor(t, &stubGenerator{}).NewSession()
	if _, err := s.SubmitProfile(context.Background(), cafeStudent()); err != nil {
		t.Fatal(err)
	}
	other := cafeStudent()
	other.Category = models.CategoryPub
	if _, err := s.SubmitProfile(context.Background(), other); !errors.Is(err, ErrProfileAlreadySet) {
		t.Fatalf("expected ErrProfileAlreadySet, got %v", err)
	}
	p, _ := s.Profile()
	if p != cafeStudent() {
		t.Fatalf("profile changed")
	}
}

func TestAskWithoutProfile(t *testing.T) {
	s := newAdvisor(t, &stubGenerator{}).NewSession()
	if _, err := s.Ask(context.Background(), "hi"); !errors.Is(err, ErrNoProfile) {
		t.Fatalf("expected ErrNoProfile, got %v", err)
	}
}

func TestPromptTooLongIsNotSent(t *testing.T) {
	gen := &stubGenerator{}
	tmpl := prompt.DefaultTemplate()
	tmpl.MaxChars = 2000
	s := newAdvisor(t, gen, WithTemplate(tmpl)).NewSession()
	if _, err := s.SubmitProfile(context.Background(), cafeStudent()); err != nil {
		t.Fatal(err)
	}
	_, err := s.Ask(context.Background(), strings.Repeat("x", 5000))
	if !errors.Is(err, prompt.ErrPromptTooLong) {
		t.Fatalf("expected ErrPromptTooLong, got %v", err)
	}
	if len(gen.prompts) != 0 {
		t.Fatalf("over-long prompt must not reach the model")
	}
}

func TestSubmitInvalidProfile(t *testing.T) {
	s := newAdvisor(t, &stubGenerator{}).NewSession()
	bad := cafeStudent()
	bad.Segment = "aliens"
	if _, err := s.SubmitProfile(context.Background(), bad); !errors.Is(err, models.ErrInvalidProfile) {
		t.Fatalf("expected ErrInvalidProfile, got %v", err)
	}
}

func TestAskStreamWithoutStreamingGenerator(t *testing.T) {
	gen := &stubGenerator{script: []step{{reply: "whole reply"}}}
	s := newAdvisor(t, gen).NewSession()
	if _, err := s.SubmitProfile(context.Background(), cafeStudent()); err != nil {
		t.Fatal(err)
	}
	var chunks []string
	ex, err := s.AskStream(context.Background(), "", func(c string) error {
		chunks = append(chunks, c)
		return nil
	})
	if err != nil {
		t.Fatalf("AskStream: %v", err)
	}
	if len(chunks) != 1 || chunks[0] != "whole reply" || ex.Response != "whole reply" {
		t.Fatalf("unexpected stream result %q / %+v", chunks, ex)
	}
}

func TestAskStreamWithMock(t *testing.T) {
	s := newAdvisor(t, llm.NewMock()).NewSession()
	if _, err := s.SubmitProfile(context.Background(), cafeStudent()); err != nil {
		t.Fatal(err)
	}
	var b strings.Builder
	ex, err := s.AskStream(context.Background(), "How do I get reviews?", func(c string) error {
		b.WriteString(c)
		return nil
	})
	if err != nil {
		t.Fatalf("AskStream: %v", err)
	}
	if b.String() != ex.Response {
		t.Fatalf("streamed chunks differ from recorded response")
	}
}

type memRecorder struct {
	mu  sync.Mutex
	got []Exchange
	err error
}

func (m *memRecorder) Record(_ context.Context, _ string, _ models.Persona, ex Exchange) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.got = append(m.got, ex)
	return m.err
}

func TestRecorderFailureDoesNotFailTurn(t *testing.T) {
	rec := &memRecorder{err: errors.New("redis down")}
	gen := &stubGenerator{script: []step{{reply: "ok"}}}
	s := newAdvisor(t, gen, WithRecorder(rec)).NewSession()
	if _, err := s.SubmitProfile(context.Background(), cafeStudent()); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Ask(context.Background(), "q"); err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if len(rec.got) != 1 {
		t.Fatalf("expected exchange to reach recorder")
	}
}

func TestNewAdvisorRequiresCatalog(t *testing.T) {
	if _, err := NewAdvisor(nil, &stubGenerator{}); !errors.Is(err, catalog.ErrCatalogUnavailable) {
		t.Fatalf("expected ErrCatalogUnavailable, got %v", err)
	}
}

func TestSessionsShareCatalogConcurrently(t *testing.T) {
	a := newAdvisor(t, llm.NewMock())
	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s := a.NewSession()
			if _, err := s.SubmitProfile(context.Background(), cafeStudent()); err != nil {
				errs <- err
				return
			}
			if _, err := s.Ask(context.Background(), "q"); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent session failed: %v", err)
	}
}
