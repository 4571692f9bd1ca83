package steps

// JournalDoc is the structured journal artifact shared between curation,
// editing and the document builders.
type JournalDoc struct {
	Title       string       `json:"title"`
	Subtitle    string       `json:"subtitle,omitempty"`
	Theme       string       `json:"theme"`
	Cover       CoverPage    `json:"cover"`
	Intro       Spread       `json:"intro"`
	Commitment  Commitment   `json:"commitment"`
	Days        []DailyEntry `json:"days"`
	Certificate Spread       `json:"certificate"`
}

type CoverPage struct {
	Title   string `json:"title"`
	Tagline string `json:"tagline"`
}

type Spread struct {
	Heading string `json:"heading"`
	Body    string `json:"body"`
}

type Commitment struct {
	Heading string `json:"heading"`
	Pledge  string `json:"pledge"`
}

type DailyEntry struct {
	Day         int    `json:"day"`
	Title       string `json:"title"`
	Prompt      string `json:"prompt"`
	Affirmation string `json:"affirmation"`
}

// LeadMagnetDoc is the companion teaser artifact.
type LeadMagnetDoc struct {
	Title        string              `json:"title"`
	Hook         string              `json:"hook"`
	Sections     []LeadMagnetSection `json:"sections"`
	CallToAction string              `json:"call_to_action"`
}

type LeadMagnetSection struct {
	Heading string `json:"heading"`
	Body    string `json:"body"`
}

// ImageRequirements lists the visual assets a journal needs.
type ImageRequirements struct {
	Style  string             `json:"style"`
	Images []ImageRequirement `json:"images"`
}

type ImageRequirement struct {
	Filename    string `json:"filename"`
	Description string `json:"description"`
	Placement   string `json:"placement"`
}
