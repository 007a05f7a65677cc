package matcher

import (
	"math"
	"testing"

	"carpool/internal/domain"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		in   string
		want string
	}{
		{"Bennett University, Greater Noida", "bennett university greater noida"},
		{"  Knowledge   Park,,III  ", "knowledge park iii"},
		{"\tDELHI\n", "delhi"},
		{"", ""},
		{" , , ", ""},
	}

	for _, tc := range testCases {
		if got := Normalize(tc.in); got != tc.want {
			t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestTokenOverlap_DisjointIsZero(t *testing.T) {
	t.Parallel()

	if got := TokenOverlap("greater noida", "connaught place"); got != 0 {
		t.Errorf("expected 0 for disjoint tokens, got %f", got)
	}
}

func TestTokenOverlap_ScoresAgainstQuerySize(t *testing.T) {
	t.Parallel()

	// One of two query tokens present: 0.5 regardless of the location length.
	got := TokenOverlap("bennett university greater noida uttar pradesh", "bennett hostel")
	if got != 0.5 {
		t.Errorf("expected 0.5, got %f", got)
	}

	if got := TokenOverlap("noida", ""); got != 0 {
		t.Errorf("expected 0 for empty query, got %f", got)
	}
}

func TestTokenOverlap_DuplicateQueryTokensCountOnce(t *testing.T) {
	t.Parallel()

	if got := TokenOverlap("noida sector 62", "noida noida delhi"); got != 0.5 {
		t.Errorf("expected 0.5, got %f", got)
	}
}

func TestHaversineKm_SamePointIsZero(t *testing.T) {
	t.Parallel()

	p := domain.Coordinates{Lat: 28.4496, Lng: 77.5840}
	if d := HaversineKm(p, p); d != 0 {
		t.Errorf("expected 0, got %f", d)
	}
}

func TestHaversineKm_KnownDistance(t *testing.T) {
	t.Parallel()

	// Connaught Place to India Gate is roughly 2.4 km.
	cp := domain.Coordinates{Lat: 28.6315, Lng: 77.2167}
	gate := domain.Coordinates{Lat: 28.6129, Lng: 77.2295}

	d := HaversineKm(cp, gate)
	if math.Abs(d-2.4) > 0.2 {
		t.Errorf("expected about 2.4km, got %f", d)
	}
	if back := HaversineKm(gate, cp); math.Abs(back-d) > 1e-9 {
		t.Errorf("distance not symmetric: %f vs %f", d, back)
	}
}

func TestEvaluate_Cascade(t *testing.T) {
	t.Parallel()

	campus := &domain.Coordinates{Lat: 28.4496, Lng: 77.5840}
	nearCampus := &domain.Coordinates{Lat: 28.4744, Lng: 77.5040} // ~8.3km
	farAway := &domain.Coordinates{Lat: 28.6315, Lng: 77.2167}    // ~42km

	testCases := []struct {
		name      string
		candidate Candidate
		query     Query
		want      Reason
	}{
		{
			name:      "empty query is a wildcard",
			candidate: Candidate{Location: "Anywhere"},
			query:     Query{Text: "   "},
			want:      ReasonWildcard,
		},
		{
			name:      "identical strings match",
			candidate: Candidate{Location: "Pari Chowk"},
			query:     Query{Text: "pari  chowk"},
			want:      ReasonSubstring,
		},
		{
			name:      "commas are ignored by substring",
			candidate: Candidate{Location: "Alpha 1, Greater Noida"},
			query:     Query{Text: "alpha 1 greater"},
			want:      ReasonSubstring,
		},
		{
			name:      "token overlap at threshold",
			candidate: Candidate{Location: "Bennett University, Greater Noida"},
			query:     Query{Text: "Noida Airport"},
			want:      ReasonTokenOverlap,
		},
		{
			name:      "token overlap below threshold falls through",
			candidate: Candidate{Location: "Bennett University, Greater Noida"},
			query:     Query{Text: "Noida Film City Sector"},
			want:      ReasonNone,
		},
		{
			name:      "place locality contained",
			candidate: Candidate{Location: "Sector 18 Noida"},
			query:     Query{Text: "Atta Market", Place: &domain.Place{Locality: "Noida"}},
			want:      ReasonPlace,
		},
		{
			name:      "place admin region contained",
			candidate: Candidate{Location: "Lucknow, Uttar Pradesh"},
			query:     Query{Text: "Hazratganj", Place: &domain.Place{Locality: "Unrelated", AdminRegion: "Uttar Pradesh"}},
			want:      ReasonPlace,
		},
		{
			name:      "empty place names do not match",
			candidate: Candidate{Location: "Sector 18"},
			query:     Query{Text: "Atta Market", Place: &domain.Place{}},
			want:      ReasonNone,
		},
		{
			name:      "proximity within radius",
			candidate: Candidate{Location: "Knowledge Park", Coords: campus},
			query:     Query{Text: "Pari Chowk", Place: &domain.Place{Coordinates: nearCampus}},
			want:      ReasonProximity,
		},
		{
			name:      "proximity outside radius",
			candidate: Candidate{Location: "Knowledge Park", Coords: campus},
			query:     Query{Text: "Rajiv Chowk", Place: &domain.Place{Coordinates: farAway}},
			want:      ReasonNone,
		},
		{
			name:      "missing candidate coordinates skips proximity",
			candidate: Candidate{Location: "Knowledge Park"},
			query:     Query{Text: "Pari Chowk", Place: &domain.Place{Coordinates: nearCampus}},
			want:      ReasonNone,
		},
		{
			name:      "empty text with resolved place uses the place",
			candidate: Candidate{Location: "Sector 62, Noida"},
			query:     Query{Text: "", Place: &domain.Place{Locality: "Noida"}},
			want:      ReasonPlace,
		},
		{
			name:      "empty text with unmatched place is not a wildcard",
			candidate: Candidate{Location: "Gurgaon"},
			query:     Query{Text: "", Place: &domain.Place{Locality: "Noida"}},
			want:      ReasonNone,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := Evaluate(tc.candidate, tc.query); got != tc.want {
				t.Errorf("Evaluate() = %q, want %q", got, tc.want)
			}
			if Match(tc.candidate, tc.query) != (tc.want != ReasonNone) {
				t.Errorf("Match() disagrees with Evaluate() result %q", tc.want)
			}
		})
	}
}

func TestMatch_BennettScenario(t *testing.T) {
	t.Parallel()

	c := Candidate{Location: "Bennett University, Greater Noida"}
	if got := Evaluate(c, Query{Text: "Bennett"}); got != ReasonSubstring && got != ReasonTokenOverlap {
		t.Errorf("expected Bennett to match, got %q", got)
	}
	if TokenOverlap(Normalize(c.Location), Normalize("Bennett")) < TokenOverlapThreshold {
		t.Error("expected token overlap to reach the threshold")
	}
}

func TestMatch_StructuredPlaceWithoutTokenOverlap(t *testing.T) {
	t.Parallel()

	c := Candidate{Location: "Botanical Garden Metro, Noida"}
	q := Query{Text: "Okhla Bird Sanctuary", Place: &domain.Place{Locality: "Noida", Country: "India"}}

	if TokenOverlap(Normalize(c.Location), Normalize(q.Text)) != 0 {
		t.Fatal("test setup expects zero token overlap")
	}
	if got := Evaluate(c, q); got != ReasonPlace {
		t.Errorf("expected place match, got %q", got)
	}
}
