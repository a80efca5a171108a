// Package sample provides seeded random value generation for the dataset
// generator.
//
// Every draw comes from one explicit *Source so that a run is fully
// reproducible: same seed and same call order produce the same values.
// A Source is not safe for concurrent use; the generation loop is
// single-threaded and owns it.
package sample

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"
)

// Shape parameter for log-normal amount draws. Fixed across all profiles.
const LogNormalSigma = 0.5

// Source wraps a seeded random source. All randomness in the generator is
// drawn through it.
type Source struct {
	rng *rand.Rand
}

// New creates a Source seeded with the given value.
func New(seed int64) *Source {
	return &Source{rng: rand.New(rand.NewSource(seed))}
}

// Float64 returns a uniform draw in [0, 1).
func (s *Source) Float64() float64 {
	return s.rng.Float64()
}

// IntN returns a uniform draw in [0, n).
func (s *Source) IntN(n int) int {
	return s.rng.Intn(n)
}

// IntBetween returns a uniform draw in [lo, hi] inclusive.
func (s *Source) IntBetween(lo, hi int) int {
	return lo + s.rng.Intn(hi-lo+1)
}

// Range returns a uniform draw in [lo, hi).
func (s *Source) Range(lo, hi float64) float64 {
	return lo + s.rng.Float64()*(hi-lo)
}

// Bool returns true with probability p.
func (s *Source) Bool(p float64) bool {
	return s.rng.Float64() < p
}

// Normal returns a draw from N(mean, stddev).
func (s *Source) Normal(mean, stddev float64) float64 {
	return mean + stddev*s.rng.NormFloat64()
}

// LogNormal returns a draw from a log-normal distribution with location mu
// and the fixed shape LogNormalSigma. The result is always positive.
func (s *Source) LogNormal(mu float64) float64 {
	return math.Exp(mu + LogNormalSigma*s.rng.NormFloat64())
}

// Pick returns a uniform choice from items. Panics on an empty slice; that
// is a programming error, not a runtime condition.
func (s *Source) Pick(items []string) string {
	return items[s.rng.Intn(len(items))]
}

// WeightedIndex returns an index into weights, chosen proportionally.
// Weights must be non-negative with a positive sum.
func (s *Source) WeightedIndex(weights []float64) int {
	var total float64
	for _, w := range weights {
		total += w
	}
	target := s.rng.Float64() * total
	for i, w := range weights {
		target -= w
		if target < 0 {
			return i
		}
	}
	return len(weights) - 1
}

// TimeBetween returns a uniform timestamp in [start, end].
func (s *Source) TimeBetween(start, end time.Time) time.Time {
	delta := end.Sub(start)
	if delta <= 0 {
		return start
	}
	return start.Add(time.Duration(s.rng.Int63n(int64(delta) + 1)))
}

// DateOfBirth returns a date of birth for someone aged within [minAge,
// maxAge] years at the reference time.
func (s *Source) DateOfBirth(ref time.Time, minAge, maxAge int) time.Time {
	oldest := ref.AddDate(-maxAge, 0, 0)
	youngest := ref.AddDate(-minAge, 0, 0)
	t := s.TimeBetween(oldest, youngest)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// IPv4 returns a random dotted-quad address.
func (s *Source) IPv4() string {
	return fmt.Sprintf("%d.%d.%d.%d",
		1+s.rng.Intn(254), s.rng.Intn(256), s.rng.Intn(256), 1+s.rng.Intn(254))
}

// Realistic value tables. The population is German (the reference dataset
// models a German neobank), so the tables carry German names and geography.

var firstNames = []string{
	"Lukas", "Leon", "Finn", "Jonas", "Paul", "Maximilian", "Felix", "Noah",
	"Elias", "Julian", "Mia", "Emma", "Hannah", "Sofia", "Anna", "Lea",
	"Emilia", "Marie", "Lena", "Clara", "Stefan", "Andreas", "Katharina",
	"Sabine", "Thomas", "Julia", "Michael", "Christina", "Daniel", "Laura",
}

var lastNames = []string{
	"Müller", "Schmidt", "Schneider", "Fischer", "Weber", "Meyer", "Wagner",
	"Becker", "Schulz", "Hoffmann", "Schäfer", "Koch", "Bauer", "Richter",
	"Klein", "Wolf", "Schröder", "Neumann", "Schwarz", "Zimmermann",
	"Braun", "Krüger", "Hofmann", "Hartmann", "Lange", "Schmitt", "Werner",
	"Krause", "Meier", "Lehmann",
}

var cities = []string{
	"Berlin", "Hamburg", "München", "Köln", "Frankfurt am Main", "Stuttgart",
	"Düsseldorf", "Leipzig", "Dortmund", "Essen", "Bremen", "Dresden",
	"Hannover", "Nürnberg", "Duisburg", "Bochum", "Wuppertal", "Bielefeld",
	"Bonn", "Münster",
}

var states = []string{
	"Baden-Württemberg", "Bayern", "Berlin", "Brandenburg", "Bremen",
	"Hamburg", "Hessen", "Mecklenburg-Vorpommern", "Niedersachsen",
	"Nordrhein-Westfalen", "Rheinland-Pfalz", "Saarland", "Sachsen",
	"Sachsen-Anhalt", "Schleswig-Holstein", "Thüringen",
}

var streets = []string{
	"Hauptstraße", "Bahnhofstraße", "Gartenstraße", "Schulstraße",
	"Dorfstraße", "Bergstraße", "Lindenstraße", "Kirchstraße",
	"Waldstraße", "Ringstraße", "Goethestraße", "Schillerstraße",
	"Mozartstraße", "Am Markt", "Friedhofstraße", "Wiesenweg",
}

var jobs = []string{
	"Softwareentwickler", "Krankenpfleger", "Lehrer", "Mechatroniker",
	"Bankkaufmann", "Architekt", "Steuerberater", "Elektriker",
	"Vertriebsleiter", "Arzt", "Projektmanager", "Friseur", "Koch",
	"Laborant", "Versicherungskaufmann", "Journalist", "Apotheker",
	"Bauingenieur", "Logistiker", "Designer",
}

var emailDomains = []string{
	"gmail.com", "web.de", "gmx.de", "t-online.de", "outlook.com", "mail.de",
}

// FirstName returns a random given name.
func (s *Source) FirstName() string { return s.Pick(firstNames) }

// LastName returns a random family name.
func (s *Source) LastName() string { return s.Pick(lastNames) }

// City returns a random city name.
func (s *Source) City() string { return s.Pick(cities) }

// State returns a random federal state name.
func (s *Source) State() string { return s.Pick(states) }

// Job returns a random occupation.
func (s *Source) Job() string { return s.Pick(jobs) }

// StreetAddress returns a random street name with house number.
func (s *Source) StreetAddress() string {
	return fmt.Sprintf("%s %d", s.Pick(streets), 1+s.rng.Intn(200))
}

// Email derives a plausible address from a name.
func (s *Source) Email(first, last string) string {
	local := strings.ToLower(first) + "." + strings.ToLower(last)
	local = sanitizeLocal(local)
	return fmt.Sprintf("%s%d@%s", local, s.rng.Intn(1000), s.Pick(emailDomains))
}

// Phone returns a German-format mobile number, at most 20 characters.
func (s *Source) Phone() string {
	return fmt.Sprintf("+49 1%d%d %07d", 5+s.rng.Intn(3), s.rng.Intn(10), s.rng.Intn(10000000))
}

// sanitizeLocal strips umlauts and ß so the local part stays ASCII.
func sanitizeLocal(v string) string {
	r := strings.NewReplacer(
		"ä", "ae", "ö", "oe", "ü", "ue", "ß", "ss",
		" ", ".",
	)
	return r.Replace(v)
}
