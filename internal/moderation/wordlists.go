package moderation

// Wordlists holds the keyword material consumed by the detection rules.
// It is loaded from wordlists.yaml; every list falls back to a built-in
// default when absent so a partial file still produces a working pipeline.
type Wordlists struct {
	// Terms that flag a resolved invite's guild name as abusive.
	InviteNameBlocklist []string `yaml:"invite_name_blocklist"`

	// Substrings that put a message behind the robot check.
	SensitiveKeywords []string `yaml:"sensitive_keywords"`

	Support SupportWords `yaml:"support"`
	Fuzzy   FuzzyConfig  `yaml:"fuzzy"`
}

// SupportWords drives the off-topic support-request heuristic: a message
// containing a distress word and a request word, with no exempt word,
// gets the canned redirect.
type SupportWords struct {
	DistressWords []string `yaml:"distress_words"`
	RequestWords  []string `yaml:"request_words"`
	ExemptWords   []string `yaml:"exempt_words"`
}

// FuzzyConfig lists the bait phrases matched by edit distance.
type FuzzyConfig struct {
	Phrases []FuzzyPhrase `yaml:"phrases"`
	Pairs   []FuzzyPair   `yaml:"pairs"`
}

// FuzzyPhrase is a single-token target with its per-phrase edit budget.
type FuzzyPhrase struct {
	Word     string `yaml:"word"`
	Distance int    `yaml:"distance"`
}

// FuzzyPair is a two-token target; the tokens must be adjacent, each within
// its own edit budget.
type FuzzyPair struct {
	First          string `yaml:"first"`
	FirstDistance  int    `yaml:"first_distance"`
	Second         string `yaml:"second"`
	SecondDistance int    `yaml:"second_distance"`
}

// DefaultWordlists returns the built-in lists.
func DefaultWordlists() Wordlists {
	return Wordlists{
		InviteNameBlocklist: []string{"nsfw", "onlyfans", "nudes", "18+", "+18", "egirls", "🍑"},
		SensitiveKeywords: []string{
			"crypto", "blockchain", "web3", " nft", "$", "€",
			"bitcoin", " btc", "btc ", "ethereum", " eth",
		},
		Support: SupportWords{
			DistressWords: []string{"ban", "banned", "hacked", "stolen", "suspended"},
			RequestWords:  []string{"dev", "ticket", "support", "admin", "help"},
			ExemptWords:   []string{"127.0.0.1", "localhost", "portal", "console", "python", "lcu"},
		},
		Fuzzy: FuzzyConfig{
			Phrases: []FuzzyPhrase{
				{Word: "gunbuddy", Distance: 2},
				{Word: "gunbuddies", Distance: 2},
				{Word: "riotbuddy", Distance: 3},
				{Word: "riotbuddies", Distance: 3},
			},
			Pairs: []FuzzyPair{
				{First: "gun", FirstDistance: 1, Second: "buddy", SecondDistance: 2},
				{First: "gun", FirstDistance: 1, Second: "buddies", SecondDistance: 2},
				{First: "riot", FirstDistance: 1, Second: "buddy", SecondDistance: 2},
				{First: "riot", FirstDistance: 1, Second: "buddies", SecondDistance: 2},
			},
		},
	}
}

// merged returns w with any empty list replaced by its default.
func (w Wordlists) merged() Wordlists {
	def := DefaultWordlists()
	if len(w.InviteNameBlocklist) == 0 {
		w.InviteNameBlocklist = def.InviteNameBlocklist
	}
	if len(w.SensitiveKeywords) == 0 {
		w.SensitiveKeywords = def.SensitiveKeywords
	}
	if len(w.Support.DistressWords) == 0 {
		w.Support.DistressWords = def.Support.DistressWords
	}
	if len(w.Support.RequestWords) == 0 {
		w.Support.RequestWords = def.Support.RequestWords
	}
	if len(w.Support.ExemptWords) == 0 {
		w.Support.ExemptWords = def.Support.ExemptWords
	}
	if len(w.Fuzzy.Phrases) == 0 {
		w.Fuzzy.Phrases = def.Fuzzy.Phrases
	}
	if len(w.Fuzzy.Pairs) == 0 {
		w.Fuzzy.Pairs = def.Fuzzy.Pairs
	}
	return w
}
