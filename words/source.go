package words

type Generator interface {
	Generate(count int) []string
}

// Fallback asks the primary generator first and tops up from the secondary
// one when the primary returns too few words (a database outage, an empty
// table).
type Fallback struct {
	primary   Generator
	secondary Generator
}

func WithFallback(primary, secondary Generator) *Fallback {
	return &Fallback{primary: primary, secondary: secondary}
}

func (f *Fallback) Generate(count int) []string {
	got := f.primary.Generate(count)
	if len(got) >= count {
		return got
	}
	return append(got, f.secondary.Generate(count-len(got))...)
}

// Hint keeps the first and last letters and any spaces of word and masks
// everything else.
func Hint(word string) string {
	runes := []rune(word)
	out := make([]rune, len(runes))
	for i, r := range runes {
		if i == 0 || i == len(runes)-1 || r == ' ' {
			out[i] = r
		} else {
			out[i] = '_'
		}
	}
	return string(out)
}
