package prompt

const defaultPreamble = `You are a senior marketing consultant who helps small franchise and independent food and beverage storefronts.
Use the store persona below as the most reliable description of the business. Prefer the information given over new assumptions.`

const defaultInstructions = `Recommend a marketing strategy for this store. Cover:
1. Channel priority: which 2-3 channels to use first and why (e.g. Instagram, map-platform reviews, delivery apps, messaging-app coupons, flyers).
2. Event and discount ideas: 2-3 concrete promotions with the discount size and target hours.
3. SNS copy: two short ready-to-post captions in a friendly tone.
4. Timing: the best season, month, weekday and hours for each action.

Present the strategy as a phase-based action plan of 3-5 phases.
- Each phase states its goal, the actions to run, and the KPI that must be reached before moving to the next phase.
- Example KPIs: new visitors, repeat-visit rate, review count and rating, SNS engagement, sales growth.

Answer in Markdown with the sections: Summary, Channel priority, Events and discounts, SNS copy, Timing, Phase action plan, Risks.
End with one line of the form "Suggested follow-up: <a short question the owner could ask next>".`

const defaultFollowUp = `This is a follow-up in an ongoing consultation. Answer the owner's question directly, building on the strategy already given instead of writing a new one. Keep the answer short and concrete, and quote earlier phases, channels or KPIs where they apply.
End with one line of the form "Suggested follow-up: <a short question the owner could ask next>".`

// DefaultMaxChars is a conservative prompt size accepted by hosted models.
const DefaultMaxChars = 30000

// Template is the fixed instruction text wrapped around each persona.
type Template struct {
	Preamble     string `yaml:"preamble"`
	Instructions string `yaml:"instructions"`
	FollowUp     string `yaml:"follow_up"`
	// MaxChars rejects prompts longer than this many characters. Zero
	// disables the check.
	MaxChars int `yaml:"max_chars"`
	// MaxHistory caps the turns rendered into a prompt. The first turn (the
	// opening strategy) is always kept; the rest are the most recent ones.
	// Zero keeps all and leaves size control to MaxChars.
	MaxHistory int `yaml:"max_history"`
}

func DefaultTemplate() Template {
	return Template{
		Preamble:     defaultPreamble,
		Instructions: defaultInstructions,
		FollowUp:     defaultFollowUp,
		MaxChars:     DefaultMaxChars,
	}
}

// WithDefaults fills empty text fields from DefaultTemplate. Limits are kept
// as given.
func (t Template) WithDefaults() Template {
	def := DefaultTemplate()
	if t.Preamble == "" {
		t.Preamble = def.Preamble
	}
	if t.Instructions == "" {
		t.Instructions = def.Instructions
	}
	if t.FollowUp == "" {
		t.FollowUp = def.FollowUp
	}
	return t
}
