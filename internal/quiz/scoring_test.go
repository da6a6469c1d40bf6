package quiz

import (
	"strings"
	"testing"

	"friedrich-quiz-service/internal/domain"
)

func singleQuestion() Question {
	return Question{
		Kind:          KindSingle,
		Correct:       "18. Jahrhundert",
		PointsCorrect: 10,
		PointsWrong:   1,
		WrongMsg:      "Trostpreis.",
		Options:       []string{"15. Jahrhundert", "16. Jahrhundert", "18. Jahrhundert", "20. Jahrhundert"},
	}
}

func multiQuestion() Question {
	return Question{
		Kind:             KindMulti,
		CorrectSet:       []string{"Flöte spielen", "Krieg führen"},
		PointsPerCorrect: 10,
		WrongPenaltyEach: 3,
		Max:              20,
		Options:          []string{"Fahrradfahren", "Flöte spielen", "Krieg führen", "Karten lesen"},
	}
}

func finalQuestion() Question {
	return Question{
		Kind:              KindMultiFinal,
		CorrectSet:        []string{"Reformer", "Kartoffelliebhaber", "Militärstratege"},
		Max:               40,
		PenaltyPerMissing: 13,
	}
}

func mapQuestion() Question {
	return Question{
		Kind:   KindMap,
		Max:    10,
		Target: domain.GeoPoint{Lat: 52.52, Lng: 13.405},
		Region: &Box{MinLat: 50.8, MaxLat: 55.8, MinLng: 10.5, MaxLng: 22.8},
	}
}

func TestSingleChoiceMatchesExactly(t *testing.T) {
	q := singleQuestion()
	for _, opt := range q.Options {
		points, _ := Score(q, domain.Answer{Option: opt})
		want := q.PointsWrong
		if opt == q.Correct {
			want = q.PointsCorrect
		}
		if points != want {
			t.Fatalf("option %q: got %d points, want %d", opt, points, want)
		}
	}

	points, msg := Score(q, domain.Answer{Option: "15. Jahrhundert"})
	if points != 1 || msg != "Trostpreis." {
		t.Fatalf("wrong answer: got %d %q", points, msg)
	}
}

func TestMultiChoiceClampedAndOrderIndependent(t *testing.T) {
	q := multiQuestion()
	selections := [][]string{
		nil,
		{"Flöte spielen"},
		{"Flöte spielen", "Krieg führen"},
		{"Fahrradfahren", "Karten lesen"},
		{"Fahrradfahren", "Flöte spielen", "Krieg führen", "Karten lesen"},
	}
	for _, sel := range selections {
		points, _ := Score(q, domain.Answer{Options: sel})
		if points < 0 || points > q.Max {
			t.Fatalf("selection %v: points %d outside [0,%d]", sel, points, q.Max)
		}
		// permuting the selection must not change the result
		reversed := make([]string, len(sel))
		for i, opt := range sel {
			reversed[len(sel)-1-i] = opt
		}
		if rp, _ := Score(q, domain.Answer{Options: reversed}); rp != points {
			t.Fatalf("selection %v: %d vs reversed %d", sel, points, rp)
		}
	}

	if points, msg := Score(q, domain.Answer{Options: []string{"Flöte spielen", "Krieg führen"}}); points != 20 || msg != "Perfekt!" {
		t.Fatalf("full hit: got %d %q", points, msg)
	}
	if points, _ := Score(q, domain.Answer{Options: []string{"Flöte spielen", "Fahrradfahren"}}); points != 7 {
		t.Fatalf("one hit one miss: got %d, want 7", points)
	}
	if points, _ := Score(q, domain.Answer{Options: []string{"Fahrradfahren", "Karten lesen"}}); points != 0 {
		t.Fatalf("all wrong: got %d, want 0", points)
	}
}

func TestMultiFinalZeroHitsForcesZero(t *testing.T) {
	q := finalQuestion()

	if points, _ := Score(q, domain.Answer{Options: []string{"Profisportler", "Bogenschütze", "Herrscher von Europa"}}); points != 0 {
		t.Fatalf("zero hits: got %d, want 0", points)
	}
	if points, _ := Score(q, domain.Answer{}); points != 0 {
		t.Fatalf("empty answer: got %d, want 0", points)
	}

	// extra wrong picks carry no penalty, only missing correct ones do
	points, _ := Score(q, domain.Answer{Options: []string{"Reformer", "Profisportler", "Bogenschütze"}})
	if points != 40-2*13 {
		t.Fatalf("one hit two missing: got %d, want %d", points, 40-2*13)
	}

	points, msg := Score(q, domain.Answer{Options: []string{"Reformer", "Kartoffelliebhaber", "Militärstratege"}})
	if points != 40 || msg != "Du bist wirklich Friedrich." {
		t.Fatalf("full hit: got %d %q", points, msg)
	}
}

func TestMapScoringTiers(t *testing.T) {
	q := mapQuestion()

	points, msg := Score(q, domain.Answer{Pick: &domain.GeoPoint{Lat: 52.52, Lng: 13.405}})
	if points != 10 {
		t.Fatalf("exact pick: got %d, want 10", points)
	}
	if !strings.Contains(msg, "Treffer") {
		t.Fatalf("exact pick: message %q does not indicate a near-exact hit", msg)
	}

	// Potsdam, ~26km away but inside 100km
	if points, _ := Score(q, domain.Answer{Pick: &domain.GeoPoint{Lat: 52.39, Lng: 13.06}}); points != 9 {
		t.Fatalf("close pick: got %d, want 9", points)
	}

	// Kolberg: outside 100km, inside the region box
	if points, _ := Score(q, domain.Answer{Pick: &domain.GeoPoint{Lat: 54.18, Lng: 15.58}}); points != 8 {
		t.Fatalf("region pick: got %d, want 8", points)
	}

	// far outside everything
	if points, _ := Score(q, domain.Answer{Pick: &domain.GeoPoint{Lat: 0, Lng: 0}}); points != 0 {
		t.Fatalf("antipodal-ish pick: got %d, want 0", points)
	}
}

func TestMapScoringMonotoneBeyondCloseRadius(t *testing.T) {
	q := mapQuestion()
	// walk south from the target, staying outside the region box
	picks := []domain.GeoPoint{
		{Lat: 48.0, Lng: 13.405},
		{Lat: 45.0, Lng: 13.405},
		{Lat: 40.0, Lng: 13.405},
		{Lat: 30.0, Lng: 13.405},
		{Lat: 10.0, Lng: 13.405},
		{Lat: -20.0, Lng: 13.405},
	}
	prev := 11
	for _, pick := range picks {
		p := pick
		points, _ := Score(q, domain.Answer{Pick: &p})
		if points > prev {
			t.Fatalf("pick %+v: points %d increased over %d with distance", pick, points, prev)
		}
		prev = points
	}
}

func TestAbsentAnswerScoresWrongBranchEverywhere(t *testing.T) {
	none := domain.Answer{}
	if !none.IsZero() {
		t.Fatalf("zero answer should report IsZero")
	}

	if points, _ := Score(singleQuestion(), none); points != 1 {
		t.Fatalf("single: absent answer got %d, want consolation 1", points)
	}
	if points, msg := Score(multiQuestion(), none); points != 0 || msg != "Leider nichts getroffen." {
		t.Fatalf("multi: absent answer got %d %q", points, msg)
	}
	if points, _ := Score(finalQuestion(), none); points != 0 {
		t.Fatalf("final: absent answer got %d, want 0", points)
	}
	if points, _ := Score(mapQuestion(), none); points != 0 {
		t.Fatalf("map: absent answer got %d, want 0", points)
	}
}

func TestHaversineKnownDistance(t *testing.T) {
	berlin := domain.GeoPoint{Lat: 52.52, Lng: 13.405}
	munich := domain.GeoPoint{Lat: 48.1374, Lng: 11.5755}
	d := HaversineKm(berlin, munich)
	if d < 480 || d > 520 {
		t.Fatalf("berlin-munich distance %f outside expected range", d)
	}
	if HaversineKm(berlin, berlin) != 0 {
		t.Fatalf("distance to self should be 0")
	}
}
