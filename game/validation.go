package game

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	CanvasWidth         = 1000
	CanvasHeight        = 600
	MinBrushSize        = 1
	MaxBrushSize        = 50
	MaxMessageLength    = 200
	MaxPlayerNameLength = 24
	MaxRoomNameLength   = 48
)

type Tool string

const (
	ToolPen    Tool = "pen"
	ToolEraser Tool = "eraser"
	ToolBrush  Tool = "brush"
)

var colorPattern = regexp.MustCompile(`^#([A-Fa-f0-9]{6}|[A-Fa-f0-9]{3})$`)

// Stroke is one validated drawing input. Timestamp is stamped by the room.
type Stroke struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Tool      Tool    `json:"tool"`
	Color     string  `json:"color,omitempty"`
	Size      float64 `json:"size"`
	Timestamp int64   `json:"timestamp,omitempty"`
}

// StrokeInput is the raw "drawing" payload. Pointers tell a missing
// coordinate apart from a zero one.
type StrokeInput struct {
	X     *float64 `json:"x"`
	Y     *float64 `json:"y"`
	Tool  string   `json:"tool"`
	Color string   `json:"color"`
	Size  *float64 `json:"size"`
}

func (in StrokeInput) Validate() (Stroke, error) {
	if in.X == nil || in.Y == nil {
		return Stroke{}, fmt.Errorf("%w: missing coordinates", ErrInvalidStroke)
	}
	x, y := *in.X, *in.Y
	if x < 0 || x > CanvasWidth || y < 0 || y > CanvasHeight {
		return Stroke{}, fmt.Errorf("%w: point (%v,%v) outside canvas", ErrInvalidStroke, x, y)
	}

	tool := Tool(in.Tool)
	switch tool {
	case ToolPen, ToolEraser, ToolBrush:
	default:
		return Stroke{}, fmt.Errorf("%w: unknown tool %q", ErrInvalidStroke, in.Tool)
	}

	if in.Color != "" && !colorPattern.MatchString(in.Color) {
		return Stroke{}, fmt.Errorf("%w: bad color %q", ErrInvalidStroke, in.Color)
	}

	if in.Size == nil || *in.Size < MinBrushSize || *in.Size > MaxBrushSize {
		return Stroke{}, fmt.Errorf("%w: size out of range", ErrInvalidStroke)
	}

	return Stroke{X: x, Y: y, Tool: tool, Color: in.Color, Size: *in.Size}, nil
}

// SanitizeMessage trims the message, strips angle brackets and collapses
// whitespace runs to a single space.
func SanitizeMessage(msg string) (string, error) {
	msg = strings.Map(func(r rune) rune {
		if r == '<' || r == '>' {
			return -1
		}
		return r
	}, msg)
	msg = strings.Join(strings.Fields(msg), " ")

	if msg == "" {
		return "", ErrEmptyMessage
	}
	if utf8.RuneCountInString(msg) > MaxMessageLength {
		return "", ErrMessageTooLong
	}
	return msg, nil
}

func ValidatePlayerName(name string) (string, error) {
	name, err := SanitizeMessage(name)
	if err != nil {
		return "", ErrInvalidPlayerName
	}
	if utf8.RuneCountInString(name) > MaxPlayerNameLength {
		return "", ErrInvalidPlayerName
	}
	return name, nil
}

func ValidateRoomName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > MaxRoomNameLength {
		return "", ErrInvalidRoomName
	}
	for _, r := range name {
		if unicode.IsControl(r) || r == '<' || r == '>' {
			return "", ErrInvalidRoomName
		}
	}
	return name, nil
}
