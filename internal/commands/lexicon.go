// Package commands ships the builtin music-editing grammar and the
// vocabulary that backs it. The vocabulary tables live in pkg/embedded
// as CSV files; they drive both token annotation (tagging bare words so
// tag matchers can see them) and grammar authoring (unit literals are
// generated straight from the units table).
package commands

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Conceptual-Machines/maestro-api/internal/grammar"
	"github.com/Conceptual-Machines/maestro-api/pkg/embedded"
)

// Tags the annotator assigns from the vocabulary tables.
const (
	TagInstrument = "instrument"
	TagAdjective  = "adjective"
	TagEffect     = "effect"
	TagBand       = "band"
)

// Token types the annotator recognizes.
const (
	TypeWord   = "word"
	TypeNumber = "number"
)

var numberRe = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)

// Adjective is one row of adjectives.csv: a comparative word plus the
// mix dimension it moves and in which direction.
type Adjective struct {
	Word      string `json:"word"`
	Dimension string `json:"dimension"`
	Direction string `json:"direction"`
}

// Band is one row of frequency_bands.csv.
type Band struct {
	Name   string `json:"name"`
	LowHz  int    `json:"low_hz"`
	HighHz int    `json:"high_hz"`
}

// Lexicon holds the parsed vocabulary tables. Build it once at startup
// and share it; it is read-only after NewLexicon returns.
type Lexicon struct {
	instruments map[string]string // word -> family
	adjectives  map[string]Adjective
	effects     map[string]string // word -> category
	bands       map[string]Band
	units       map[string]string // word -> kind
	unitNames   []string          // table order, for deterministic rule generation
}

// NewLexicon parses the embedded vocabulary tables.
func NewLexicon() (*Lexicon, error) {
	lex := &Lexicon{
		instruments: map[string]string{},
		adjectives:  map[string]Adjective{},
		effects:     map[string]string{},
		bands:       map[string]Band{},
		units:       map[string]string{},
	}

	rows, err := readTable("instruments", embedded.InstrumentsCsv, 2)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		lex.instruments[strings.ToLower(row[0])] = row[1]
	}

	rows, err = readTable("adjectives", embedded.AdjectivesCsv, 3)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		word := strings.ToLower(row[0])
		lex.adjectives[word] = Adjective{Word: word, Dimension: row[1], Direction: row[2]}
	}

	rows, err = readTable("effects", embedded.EffectsCsv, 2)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		lex.effects[strings.ToLower(row[0])] = row[1]
	}

	rows, err = readTable("frequency_bands", embedded.FrequencyBandsCsv, 3)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		low, err := strconv.Atoi(row[1])
		if err != nil {
			return nil, fmt.Errorf("frequency_bands: bad low_hz %q: %w", row[1], err)
		}
		high, err := strconv.Atoi(row[2])
		if err != nil {
			return nil, fmt.Errorf("frequency_bands: bad high_hz %q: %w", row[2], err)
		}
		name := strings.ToLower(row[0])
		lex.bands[name] = Band{Name: name, LowHz: low, HighHz: high}
	}

	rows, err = readTable("units", embedded.UnitsCsv, 2)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		name := strings.ToLower(row[0])
		if _, seen := lex.units[name]; !seen {
			lex.unitNames = append(lex.unitNames, name)
		}
		lex.units[name] = row[1]
	}

	return lex, nil
}

// readTable parses one embedded CSV, dropping the header row and
// enforcing the column count.
func readTable(name string, data []byte, columns int) ([][]string, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = columns
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("vocab table %s: %w", name, err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("vocab table %s: no data rows", name)
	}
	return rows[1:], nil
}

// TagsFor returns the vocabulary tags for a bare word, in a fixed
// order. A word can legitimately appear in more than one table ("bass"
// is both an instrument and a frequency band); the parser preserves the
// resulting ambiguity instead of picking a side here.
func (l *Lexicon) TagsFor(word string) []string {
	w := strings.ToLower(word)
	var tags []string
	if _, ok := l.instruments[w]; ok {
		tags = append(tags, TagInstrument)
	}
	if _, ok := l.adjectives[w]; ok {
		tags = append(tags, TagAdjective)
	}
	if _, ok := l.effects[w]; ok {
		tags = append(tags, TagEffect)
	}
	if _, ok := l.bands[w]; ok {
		tags = append(tags, TagBand)
	}
	return tags
}

// Annotate fills in tags and number types on tokens whose tokenizer
// left them bare. Tokens that already carry tags are trusted as-is, so
// an upstream tokenizer that disambiguated "bass" stays disambiguated.
func (l *Lexicon) Annotate(tokens []grammar.Token) []grammar.Token {
	out := make([]grammar.Token, len(tokens))
	for i, tok := range tokens {
		if numberRe.MatchString(tok.Text) && (tok.Type == "" || tok.Type == TypeWord) {
			tok.Type = TypeNumber
		}
		if len(tok.Tags) == 0 {
			tok.Tags = l.TagsFor(tok.Text)
		}
		out[i] = tok
	}
	return out
}

// IsInstrument reports whether the word names an instrument.
func (l *Lexicon) IsInstrument(word string) bool {
	_, ok := l.instruments[strings.ToLower(word)]
	return ok
}

// IsEffect reports whether the word names an effect.
func (l *Lexicon) IsEffect(word string) bool {
	_, ok := l.effects[strings.ToLower(word)]
	return ok
}

// Adjective looks up an adjective row.
func (l *Lexicon) Adjective(word string) (Adjective, bool) {
	adj, ok := l.adjectives[strings.ToLower(word)]
	return adj, ok
}

// Band looks up a frequency band row.
func (l *Lexicon) Band(word string) (Band, bool) {
	band, ok := l.bands[strings.ToLower(word)]
	return band, ok
}

// Units returns the unit words in table order.
func (l *Lexicon) Units() []string {
	return append([]string(nil), l.unitNames...)
}

// UnitKind returns what a unit word measures (level, ratio, pitch, ...).
func (l *Lexicon) UnitKind(word string) (string, bool) {
	kind, ok := l.units[strings.ToLower(word)]
	return kind, ok
}
