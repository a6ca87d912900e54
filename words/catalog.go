package words

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"unicode/utf8"
)

type Difficulty string

const (
	Mixed  Difficulty = "mixed"
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

const AllCategories = "all"

var defaultWords = []string{
	// easy
	"cat", "dog", "sun", "car", "house", "tree", "book", "phone", "chair", "table",
	"bird", "fish", "cake", "ball", "shoe", "hand", "face", "door", "food", "moon",
	"star", "fire", "water", "apple", "heart", "smile", "clock", "brush", "music", "dance",

	// medium
	"elephant", "computer", "rainbow", "guitar", "bicycle", "sandwich", "umbrella",
	"mountain", "keyboard", "football", "triangle", "hospital", "dinosaur", "airplane", "princess",
	"building", "exercise", "vacation", "octopus", "penguin", "telephone", "medicine", "magazine",
	"calendar", "skeleton", "kangaroo",

	// hard
	"butterfly", "hamburger", "chocolate", "skateboard", "refrigerator", "playground", "helicopter",
	"calculator", "microscope", "photographer", "thunderstorm", "watermelon", "rollercoaster",
	"temperature", "architecture", "encyclopedia", "constellation",

	// fun
	"wizard", "dragon", "castle", "pirate", "robot", "alien", "superhero", "monster",
	"zombie", "vampire", "unicorn", "mermaid", "spaceship", "treasure", "magic",
	"adventure", "mystery", "comedy", "fantasy", "science",
}

var defaultCategories = map[string][]string{
	"animals":    {"cat", "dog", "elephant", "bird", "fish", "butterfly", "octopus", "penguin", "kangaroo"},
	"objects":    {"car", "phone", "chair", "table", "book", "shoe", "clock", "brush", "umbrella"},
	"food":       {"cake", "apple", "sandwich", "hamburger", "chocolate", "watermelon"},
	"nature":     {"sun", "moon", "star", "tree", "water", "fire", "mountain", "rainbow"},
	"technology": {"computer", "keyboard", "telephone", "calculator", "microscope", "helicopter"},
	"fantasy":    {"wizard", "dragon", "castle", "pirate", "robot", "alien", "superhero", "unicorn"},
}

// Catalog picks random words from a static list, optionally narrowed by
// difficulty and category. A filter that leaves nothing falls back to the
// whole list.
type Catalog struct {
	pool []string
}

func NewCatalog(difficulty Difficulty, category string) *Catalog {
	return newCatalog(defaultWords, defaultCategories, difficulty, category)
}

func newCatalog(all []string, categories map[string][]string, difficulty Difficulty, category string) *Catalog {
	pool := make([]string, 0, len(all))
	for _, w := range all {
		if !matchesDifficulty(w, difficulty) {
			continue
		}
		if members, ok := categories[category]; ok && category != AllCategories && !slices.Contains(members, w) {
			continue
		}
		pool = append(pool, w)
	}
	if len(pool) == 0 {
		pool = slices.Clone(all)
	}
	return &Catalog{pool: pool}
}

func matchesDifficulty(w string, d Difficulty) bool {
	n := utf8.RuneCountInString(w)
	switch d {
	case Easy:
		return n <= 5
	case Medium:
		return n >= 6 && n <= 8
	case Hard:
		return n >= 9
	default:
		return true
	}
}

// Generate returns count random words; words may repeat.
func (c *Catalog) Generate(count int) []string {
	if count <= 0 || len(c.pool) == 0 {
		return []string{}
	}
	out := make([]string, count)
	for i := range out {
		out[i] = c.pool[rand.IntN(len(c.pool))]
	}
	return out
}

func (c *Catalog) Size() int {
	return len(c.pool)
}

// ParseDifficulty accepts the difficulty names, empty meaning Mixed.
func ParseDifficulty(s string) (Difficulty, error) {
	switch d := Difficulty(strings.ToLower(strings.TrimSpace(s))); d {
	case "":
		return Mixed, nil
	case Mixed, Easy, Medium, Hard:
		return d, nil
	default:
		return "", fmt.Errorf("unknown word difficulty %q", s)
	}
}

// ParseCategory accepts a known category or AllCategories.
func ParseCategory(s string) (string, error) {
	c := strings.ToLower(strings.TrimSpace(s))
	if c == "" || c == AllCategories {
		return AllCategories, nil
	}
	if !slices.Contains(Categories(), c) {
		return "", fmt.Errorf("unknown word category %q, want one of %s", s, strings.Join(Categories(), ", "))
	}
	return c, nil
}

func Categories() []string {
	out := make([]string, 0, len(defaultCategories))
	for k := range defaultCategories {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
