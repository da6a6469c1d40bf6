package quiz

import (
	"fmt"
	"math"

	"friedrich-quiz-service/internal/domain"
)

// Map question tiers. Distances in kilometers from the target.
const (
	earthRadiusKm = 6371

	mapExactRadius  = 20
	mapCloseRadius  = 100
	mapDecayEnd     = 2000
	mapExactPoints  = 10
	mapClosePoints  = 9
	mapRegionPoints = 8
	mapDecayPoints  = 7
)

// Score maps a question and a submitted answer to a point delta and a
// feedback message. Pure and deterministic; the zero-value Answer is the
// "never answered" path and must land in the wrong/zero branch of every
// variant.
func Score(q Question, a domain.Answer) (int, string) {
	switch q.Kind {
	case KindMap:
		return scoreMapPick(q, a.Pick)
	case KindSingle:
		return scoreSingle(q, a.Option)
	case KindMulti:
		return scoreMulti(q, a.Options)
	case KindMultiFinal:
		return scoreMultiFinal(q, a.Options)
	}
	return 0, ""
}

func scoreSingle(q Question, option string) (int, string) {
	if option == q.Correct && option != "" {
		return q.PointsCorrect, "Richtig!"
	}
	msg := q.WrongMsg
	if msg == "" {
		msg = "Trostpreis."
	}
	return q.PointsWrong, msg
}

func scoreMulti(q Question, options []string) (int, string) {
	correct := toSet(q.CorrectSet)
	points := 0
	for opt := range toSet(options) {
		if correct[opt] {
			points += q.PointsPerCorrect
		} else {
			points -= q.WrongPenaltyEach
		}
	}
	if points < 0 {
		points = 0
	}
	if points > q.Max {
		points = q.Max
	}
	switch {
	case points == q.Max:
		return points, "Perfekt!"
	case points > 0:
		return points, "Teilweise richtig."
	default:
		return points, "Leider nichts getroffen."
	}
}

func scoreMultiFinal(q Question, options []string) (int, string) {
	correct := toSet(q.CorrectSet)
	hit := 0
	for opt := range toSet(options) {
		if correct[opt] {
			hit++
		}
	}
	if hit == 0 {
		return 0, "Nur falsch angekreuzt → 0%."
	}
	missing := len(q.CorrectSet) - hit
	points := q.Max - missing*q.PenaltyPerMissing
	if points < 0 {
		points = 0
	}
	if points == q.Max {
		return points, "Du bist wirklich Friedrich."
	}
	return points, fmt.Sprintf("Fast! Dir fehlen %d richtige Auswahl(en).", missing)
}

func scoreMapPick(q Question, pick *domain.GeoPoint) (int, string) {
	if pick == nil {
		return 0, "Keine Pinnnadel gesetzt."
	}
	dist := HaversineKm(q.Target, *pick)
	if dist <= mapExactRadius {
		return mapExactPoints, "Treffer! Fast genau getroffen."
	}
	if dist <= mapCloseRadius {
		return mapClosePoints, "Sehr nah dran."
	}
	if q.Region != nil && q.Region.Contains(*pick) {
		return mapRegionPoints, "In Preußen — solide!"
	}
	d := math.Min(dist, mapDecayEnd)
	points := int(math.Round(mapDecayPoints * (1 - (d-mapCloseRadius)/(mapDecayEnd-mapCloseRadius))))
	if points < 0 {
		points = 0
	}
	if points > 0 {
		return points, "Außerhalb Preußens — je weiter, desto weniger."
	}
	return 0, "Zu weit weg 😅"
}

// HaversineKm returns the great-circle distance between two points.
func HaversineKm(a, b domain.GeoPoint) float64 {
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	x := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(x))
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[item] = true
	}
	return set
}
