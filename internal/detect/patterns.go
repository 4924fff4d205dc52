package detect

import "regexp"

// specificity ranks pattern families for kind-collision tie-breaking.
// Multi-word/honorific person patterns and landmark-suffixed place patterns
// outrank bare single-token matches.
const (
	specificityBare      = 1
	specificityPhrase    = 2
	specificityLandmark  = 3
	specificityHonorific = 3
)

// namePattern is one surface-pattern family for a single kind.
type namePattern struct {
	regex       *regexp.Regexp
	kind        kindTag
	name        string
	confidence  confidenceTag
	specificity int
	// group is the submatch index holding the entity surface text;
	// 0 means the whole match.
	group int
}

type kindTag int

const (
	tagPerson kindTag = iota
	tagPlace
	tagQuest
)

type confidenceTag int

const (
	confLow confidenceTag = iota
	confMedium
	confHigh
)

// honorifics recognized as person-name prefixes. The prefix is part of the
// surface form ("Lord Blackwood"), matching how players refer to NPCs.
const honorificAlt = `(?:Lord|Lady|Sir|Dame|King|Queen|Prince|Princess|Duke|Duchess|Baron|Baroness|Count|Countess|Captain|Commander|General|Sergeant|Doctor|Dr\.|Professor|Master|Mistress|Father|Mother|Brother|Sister|Elder|High Priest|High Priestess|Saint|St\.)`

// landmark nouns that mark a capitalized phrase as a place.
const landmarkAlt = `(?:Forest|Woods|Mountain|Mountains|Peak|Valley|River|Lake|Sea|Ocean|Desert|Swamp|Marsh|Keep|Castle|Tower|Fortress|Citadel|Temple|Shrine|Cathedral|Abbey|Monastery|Inn|Tavern|City|Town|Village|Hamlet|Port|Harbor|Bridge|Gate|Road|Pass|Caverns?|Caves?|Mines?|Ruins|Isle|Island|Bay|Coast|Plains|Fields|Grove|Glade|Hollow|Crypt|Tomb|Dungeon|Sanctum|Spire|Hold|Bastion|Wall|Market|Quarter|District|Realm|Kingdom|Empire|Wastes)`

// capWord matches a single capitalized token, allowing internal apostrophes
// and hyphens ("D'arvit", "Winter-Hold").
const capWord = `[A-Z][a-zA-Z'\-]+`

// initPersonPatterns returns person pattern families in priority order.
func initPersonPatterns() []*namePattern {
	return []*namePattern{
		// Honorific-prefixed name: "Lord Blackwood", "Captain Mira Vane"
		{
			regex:       regexp.MustCompile(`\b(` + honorificAlt + `\s+` + capWord + `(?:\s+` + capWord + `)?)`),
			kind:        tagPerson,
			name:        "honorific_name",
			confidence:  confHigh,
			specificity: specificityHonorific,
			group:       1,
		},
		// Multi-word capitalized sequence: "Mira Vane", "Aldric Stormborn"
		{
			regex:       regexp.MustCompile(`\b(` + capWord + `(?:\s+` + capWord + `){1,2})\b`),
			kind:        tagPerson,
			name:        "multiword_name",
			confidence:  confHigh,
			specificity: specificityPhrase,
			group:       1,
		},
		// Bare capitalized token: "Kira said..." — medium, sentence-start
		// occurrences are filtered separately.
		{
			regex:       regexp.MustCompile(`\b(` + capWord + `)\b`),
			kind:        tagPerson,
			name:        "bare_name",
			confidence:  confMedium,
			specificity: specificityBare,
			group:       1,
		},
	}
}

// initPlacePatterns returns place pattern families in priority order.
func initPlacePatterns() []*namePattern {
	return []*namePattern{
		// Article + capitalized phrase + landmark noun: "the Silverwood Forest"
		{
			regex:       regexp.MustCompile(`\b(?:[Tt]he|[Aa]t|[Ii]n|[Tt]o|[Nn]ear)\s+(` + capWord + `(?:\s+` + capWord + `)*\s+` + landmarkAlt + `)\b`),
			kind:        tagPlace,
			name:        "landmark_place",
			confidence:  confHigh,
			specificity: specificityLandmark,
			group:       1,
		},
		// Capitalized phrase ending in a landmark noun, no article.
		{
			regex:       regexp.MustCompile(`\b(` + capWord + `(?:\s+` + capWord + `)*\s+` + landmarkAlt + `)\b`),
			kind:        tagPlace,
			name:        "bare_landmark",
			confidence:  confHigh,
			specificity: specificityLandmark,
			group:       1,
		},
		// Article + capitalized noun: "the Shambles" — medium. The article
		// is contextual evidence, so this outranks a bare token on ties.
		{
			regex:       regexp.MustCompile(`\b[Tt]he\s+(` + capWord + `)\b`),
			kind:        tagPlace,
			name:        "article_place",
			confidence:  confMedium,
			specificity: specificityPhrase,
			group:       1,
		},
	}
}

// questClause matches the short clause following a quest trigger: up to ~8
// words, stopping at sentence punctuation.
const questClause = `((?:[a-zA-Z'\-]+\s+){0,7}[a-zA-Z'\-]+)`

// initQuestPatterns returns quest pattern families in priority order.
func initQuestPatterns() []*namePattern {
	return []*namePattern{
		// Explicit obligation: "must find the artifact", "tasked with
		// guarding the gate", "sworn to avenge..."
		{
			regex:       regexp.MustCompile(`\b(?:must|tasked with|sworn to|ordered to|commanded to|charged with)\s+` + questClause),
			kind:        tagQuest,
			name:        "obligation_quest",
			confidence:  confHigh,
			specificity: specificityPhrase,
			group:       1,
		},
		// "asked ... to <clause>" with a short subject between.
		{
			regex:       regexp.MustCompile(`\basked\s+(?:\w+\s+){0,3}to\s+` + questClause),
			kind:        tagQuest,
			name:        "asked_to_quest",
			confidence:  confHigh,
			specificity: specificityPhrase,
			group:       1,
		},
		// Modal triggers: "need to", "needs to", "have to", "should"
		{
			regex:       regexp.MustCompile(`\b(?:need(?:s)? to|have to|has to|should)\s+` + questClause),
			kind:        tagQuest,
			name:        "modal_quest",
			confidence:  confMedium,
			specificity: specificityPhrase,
			group:       1,
		},
	}
}
