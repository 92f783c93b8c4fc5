package domain

// LevelReference is an operator-supplied reference to a level, normally the
// codex download URL. It is stored as given and only resolved at blend time.
type LevelReference string

// String returns the reference text.
func (r LevelReference) String() string { return string(r) }

// LevelID is the catalog identifier derived from a LevelReference.
type LevelID string

// String returns the identifier text.
func (id LevelID) String() string { return string(id) }

// Difficulty is the catalog difficulty rating of a level.
type Difficulty int

// Catalog difficulty values.
const (
	DifficultyEasy      Difficulty = 0
	DifficultyMedium    Difficulty = 1
	DifficultyTough     Difficulty = 2
	DifficultyVeryTough Difficulty = 3
)

var difficultyLabels = map[Difficulty]string{
	DifficultyEasy:      "Easy",
	DifficultyMedium:    "Medium",
	DifficultyTough:     "Tough",
	DifficultyVeryTough: "Very Tough",
}

// Label returns the display label and whether the value is a known difficulty.
func (d Difficulty) Label() (string, bool) {
	label, ok := difficultyLabels[d]
	return label, ok
}

// PlayerMode describes which player counts a level supports.
type PlayerMode string

// Supported player mode combinations.
const (
	PlayerModeBoth   PlayerMode = "both"
	PlayerModeSingle PlayerMode = "single"
	PlayerModeTwo    PlayerMode = "two"
)

// PlayerModeOf derives the mode from the catalog flags.
// Returns false when neither flag is set.
func PlayerModeOf(singlePlayer, twoPlayer bool) (PlayerMode, bool) {
	switch {
	case singlePlayer && twoPlayer:
		return PlayerModeBoth, true
	case singlePlayer:
		return PlayerModeSingle, true
	case twoPlayer:
		return PlayerModeTwo, true
	default:
		return "", false
	}
}

// Label returns the announcement text for the mode.
func (m PlayerMode) Label() string {
	switch m {
	case PlayerModeBoth:
		return "1P + 2P"
	case PlayerModeSingle:
		return "1P (single-player only)"
	case PlayerModeTwo:
		return "2P (two-player only)"
	default:
		return string(m)
	}
}

// LevelMetadata is the resolved catalog record for a level.
type LevelMetadata struct {
	ID           LevelID    `json:"id"`
	Artist       string     `json:"artist"`
	Song         string     `json:"song"`
	Authors      []string   `json:"authors"`
	Tags         []string   `json:"tags"`
	Description  string     `json:"description,omitempty"`
	Difficulty   Difficulty `json:"difficulty"`
	SinglePlayer bool       `json:"single_player"`
	TwoPlayer    bool       `json:"two_player"`
	ImageURL     string     `json:"image"`
	DownloadURL  string     `json:"url2"`
}
