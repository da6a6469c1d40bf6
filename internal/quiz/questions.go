package quiz

import "friedrich-quiz-service/internal/domain"

// Kind selects the scoring rule for a question.
type Kind string

const (
	KindSingle     Kind = "single"
	KindMulti      Kind = "multi"
	KindMultiFinal Kind = "multiFinal"
	KindMap        Kind = "map"
)

// Box is a lat/lng bounding rectangle used by map questions.
type Box struct {
	MinLat float64 `json:"minLat"`
	MaxLat float64 `json:"maxLat"`
	MinLng float64 `json:"minLng"`
	MaxLng float64 `json:"maxLng"`
}

// Contains reports whether the point lies inside the rectangle.
func (b Box) Contains(p domain.GeoPoint) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat && p.Lng >= b.MinLng && p.Lng <= b.MaxLng
}

// Question is one question definition with its scoring parameters.
// Which fields are meaningful depends on Kind.
type Question struct {
	Kind    Kind     `json:"kind"`
	Title   string   `json:"title"`
	Prompt  string   `json:"prompt"`
	Options []string `json:"options,omitempty"`

	// single
	Correct       string `json:"correct,omitempty"`
	PointsCorrect int    `json:"pointsCorrect,omitempty"`
	PointsWrong   int    `json:"pointsWrong,omitempty"`
	WrongMsg      string `json:"wrongMsg,omitempty"`

	// multi / multiFinal
	CorrectSet        []string `json:"correctSet,omitempty"`
	PointsPerCorrect  int      `json:"pointsPerCorrect,omitempty"`
	WrongPenaltyEach  int      `json:"wrongPenaltyEach,omitempty"`
	Max               int      `json:"max,omitempty"`
	PenaltyPerMissing int      `json:"penaltyPerMissing,omitempty"`

	// map
	Target domain.GeoPoint `json:"target,omitempty"`
	Region *Box            `json:"region,omitempty"`
}

// Set is a fixed ordered question list shared identically by all clients.
// The ID doubles as the version: clients on different sets must not share
// a room, so the set is loaded once per process and never from room state.
type Set struct {
	ID        string     `json:"id"`
	Questions []Question `json:"questions"`
}

// DefaultSet is the built-in Friedrich der Grosse quiz.
func DefaultSet() Set {
	return Set{
		ID: "friedrich-v1",
		Questions: []Question{
			{
				Kind:   KindMap,
				Title:  "Karte",
				Prompt: "Setze die Pinnnadel möglichst nah an Friedrichs Geburtsort.",
				Max:    10,
				Target: domain.GeoPoint{Lat: 52.52, Lng: 13.405},
				Region: &Box{MinLat: 50.8, MaxLat: 55.8, MinLng: 10.5, MaxLng: 22.8},
			},
			{
				Kind:          KindSingle,
				Title:         "Geburtszeit",
				Prompt:        "In welchem Jahrhundert möchtest du geboren werden?",
				Options:       []string{"15. Jahrhundert", "16. Jahrhundert", "18. Jahrhundert", "20. Jahrhundert"},
				Correct:       "18. Jahrhundert",
				PointsCorrect: 10,
				PointsWrong:   1,
				WrongMsg:      "Trostpreis.",
			},
			{
				Kind:          KindSingle,
				Title:         "Beruf",
				Prompt:        "Wähle deinen Beruf.",
				Options:       []string{"Papst", "König", "Admiral", "Bürgermeister"},
				Correct:       "König",
				PointsCorrect: 10,
				PointsWrong:   3,
				WrongMsg:      "Trostpreis.",
			},
			{
				Kind:             KindMulti,
				Title:            "Hobbys",
				Prompt:           "Wähle deine Hobbys (mehrere möglich) und gib dann ab.",
				Options:          []string{"Fahrradfahren", "Flöte spielen", "Krieg führen", "Karten lesen"},
				CorrectSet:       []string{"Flöte spielen", "Krieg führen"},
				PointsPerCorrect: 10,
				WrongPenaltyEach: 3,
				Max:              20,
			},
			{
				Kind:          KindSingle,
				Title:         "Spitzname",
				Prompt:        "Du hast nun einige Kriege gewonnen — gib dir einen Spitznamen.",
				Options:       []string{"Friedrich der Große", "Friedrich der Kriegsführer", "Der Unbesiegbare", "Friedrich der zweite Gott"},
				Correct:       "Friedrich der Große",
				PointsCorrect: 10,
				PointsWrong:   3,
				WrongMsg:      "Trostpreis.",
			},
			{
				Kind:              KindMultiFinal,
				Title:             "Finale",
				Prompt:            "Finale Frage: Was bin ich alles gewesen?",
				Options:           []string{"Reformer", "Profisportler", "Kartoffelliebhaber", "Bogenschütze", "Herrscher von Europa", "Militärstratege"},
				CorrectSet:        []string{"Reformer", "Kartoffelliebhaber", "Militärstratege"},
				Max:               40,
				PenaltyPerMissing: 13,
			},
		},
	}
}
