package domain

import "time"

type ActionKind string

const (
	ActionLine      ActionKind = "line"
	ActionRectangle ActionKind = "rectangle"
	ActionCircle    ActionKind = "circle"
	ActionText      ActionKind = "text"
)

type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Color is a plain 3x8-bit RGB value, kept independent from any UI toolkit.
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// DrawingAction is one immutable stroke on the shared whiteboard.
// Point semantics depend on Kind: a line carries the full polyline,
// rectangle and circle only use the first and last point, text uses a
// single anchor point plus the Text field.
//
// Actions are appended to or removed from the board log as a whole unit,
// never mutated in place.
type DrawingAction struct {
	Kind        ActionKind `json:"kind" validate:"required,oneof=line rectangle circle text"`
	Points      []Point    `json:"points" validate:"required,min=1"`
	Color       Color      `json:"color"`
	StrokeWidth int        `json:"strokeWidth" validate:"gt=0"`
	Text        string     `json:"text,omitempty"`
	UserID      string     `json:"userId" validate:"required"`
	At          time.Time  `json:"at"`
}

func NewDrawingAction(kind ActionKind, points []Point, color Color, strokeWidth int, userID string) DrawingAction {
	return DrawingAction{
		Kind:        kind,
		Points:      points,
		Color:       color,
		StrokeWidth: strokeWidth,
		UserID:      userID,
		At:          time.Now().UTC(),
	}
}

func NewTextAction(anchor Point, text string, color Color, userID string) DrawingAction {
	return DrawingAction{
		Kind:        ActionText,
		Points:      []Point{anchor},
		Color:       color,
		StrokeWidth: 1,
		Text:        text,
		UserID:      userID,
		At:          time.Now().UTC(),
	}
}
