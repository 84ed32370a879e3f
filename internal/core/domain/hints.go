package domain

// HintsCoverage samples what the store currently holds so agent callers
// can gauge whether a topic is answerable before asking.
type HintsCoverage struct {
	TopDocs    []Document `json:"top_docs"`
	RecentDocs []Document `json:"recent_docs"`
	Warn       string     `json:"_warn,omitempty"`
}

// HintCall is a ready-to-send call shape recommended to the caller.
type HintCall struct {
	Title string         `json:"title"`
	Call  map[string]any `json:"call"`
}

// HintStrategy names a multi-step retrieval recipe.
type HintStrategy struct {
	Name  string           `json:"name"`
	When  string           `json:"when"`
	Steps []map[string]any `json:"steps"`
	Notes []string         `json:"notes,omitempty"`
}

// Hints is the self-describing envelope returned to agent callers:
// capabilities, coverage, limits and recommended call shapes.
type Hints struct {
	Capabilities map[string]int `json:"capabilities"`
	Coverage     HintsCoverage  `json:"coverage"`
	Limits       map[string]int `json:"limits"`
	Recommend    []HintCall     `json:"recommend"`
	DefaultFlow  string         `json:"agent_default_flow"`
	Strategies   []HintStrategy `json:"strategies"`
}
