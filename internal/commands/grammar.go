package commands

import (
	"regexp"

	"github.com/Conceptual-Machines/maestro-api/internal/grammar"
)

// GrammarName is the name parse requests use to select the builtin
// grammar. An empty grammar name resolves to it as well.
const GrammarName = "builtin"

// StartSymbol is the builtin grammar's start symbol.
const StartSymbol = "COMMAND"

const source = "builtin"

var percentRe = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?%$`)

// NewGrammar builds the builtin command grammar. Unit literals are
// generated from the lexicon's units table; everything else is authored
// here. Priorities sit on a 0..20 scale where 18 marks the canonical
// reading of a verb and anything below 12 is a fallback the scorer
// should treat with suspicion.
func NewGrammar(lex *Lexicon) (*grammar.Grammar, error) {
	b := grammar.NewBuilder(GrammarName, StartSymbol)

	// Level and tone edits. The instrument and band readings are split
	// at the top so "make the bass louder" with an untagged "bass"
	// surfaces as two competing parses rather than one merged tree.
	b.Rule("cmd.adjust.inst", "COMMAND").
		Lit("make").NT("ITARGET").NT("QUALITY").
		Priority(18).Action("mix.adjust").From(source).
		Describe("make <instrument> <quality>")
	b.Rule("cmd.adjust.band", "COMMAND").
		Lit("make").NT("BTARGET").NT("QUALITY").
		Priority(16).Action("eq.adjust_band").From(source).
		Describe("make <frequency band> <quality>")
	b.Rule("cmd.adjust.by", "COMMAND").
		Lit("make").NT("ITARGET").NT("QUALITY").Lit("by").NT("AMOUNT").
		Priority(18).Action("mix.adjust_by").From(source).
		Describe("make <instrument> <quality> by <amount>")
	b.Rule("cmd.adjust.it", "COMMAND").
		Lit("make").Lit("it").NT("QUALITY").
		Priority(10).Action("mix.adjust.infer_target").From(source).
		Describe("make it <quality>, applied to the current selection")

	b.Rule("cmd.turn.up", "COMMAND").
		Lit("turn").NT("ITARGET").Lit("up").
		Priority(16).Action("mix.raise").From(source).
		Describe("turn <instrument> up")
	b.Rule("cmd.turn.down", "COMMAND").
		Lit("turn").NT("ITARGET").Lit("down").
		Priority(16).Action("mix.lower").From(source).
		Describe("turn <instrument> down")

	b.Rule("cmd.set.param", "COMMAND").
		Lit("set").NT("ITARGET").NT("PARAM").Lit("to").NT("AMOUNT").
		Priority(18).Action("mix.set_param").From(source).
		Describe("set <instrument> <parameter> to <amount>")
	b.Rule("cmd.set.tempo", "COMMAND").
		Lit("set").Lit("tempo").Lit("to").NT("AMOUNT").
		Priority(18).Action("transport.set_tempo").From(source).
		Describe("set tempo to <amount>")

	// Gain moves. "boost the bass" is the classic fader-or-EQ split.
	b.Rule("cmd.boost.inst", "COMMAND").
		Lit("boost").NT("ITARGET").
		Priority(14).Action("mix.boost.infer_amount").From(source).
		Describe("boost <instrument> by a default amount")
	b.Rule("cmd.boost.band", "COMMAND").
		Lit("boost").NT("BTARGET").
		Priority(14).Action("eq.boost_band.infer_amount").From(source).
		Describe("boost <frequency band> by a default amount")
	b.Rule("cmd.boost.by", "COMMAND").
		Lit("boost").NT("ITARGET").Lit("by").NT("AMOUNT").
		Priority(16).Action("mix.boost").From(source).
		Describe("boost <instrument> by <amount>")
	b.Rule("cmd.cut.band", "COMMAND").
		Lit("cut").NT("BTARGET").Lit("by").NT("AMOUNT").
		Priority(16).Action("eq.cut_band").From(source).
		Describe("cut <frequency band> by <amount>")

	b.Rule("cmd.mute", "COMMAND").
		Lit("mute").NT("ITARGET").
		Priority(18).Action("mix.mute").From(source).
		Describe("mute <instrument>")
	b.Rule("cmd.solo", "COMMAND").
		Lit("solo").NT("ITARGET").
		Priority(18).Action("mix.solo").From(source).
		Describe("solo <instrument>")
	b.Rule("cmd.unmute", "COMMAND").
		Lit("unmute").NT("ITARGET").
		Priority(18).Action("mix.unmute").From(source).
		Describe("unmute <instrument>")
	b.Rule("cmd.pan", "COMMAND").
		Lit("pan").NT("ITARGET").NT("PANDIR").
		Priority(16).Action("mix.pan").From(source).
		Describe("pan <instrument> left, right or center")

	// Effects.
	b.Rule("cmd.fx.add", "COMMAND").
		Lit("add").NT("FX").Lit("to").NT("ITARGET").
		Priority(16).Action("fx.add").From(source).
		Describe("add <effect> to <instrument>")
	b.Rule("cmd.fx.add.bare", "COMMAND").
		Lit("add").NT("FX").
		Priority(10).Action("fx.add.default_target").From(source).
		Describe("add <effect> to the current selection")
	b.Rule("cmd.fx.remove", "COMMAND").
		Lit("remove").NT("FX").Lit("from").NT("ITARGET").
		Priority(16).Action("fx.remove").From(source).
		Describe("remove <effect> from <instrument>")

	b.Rule("cmd.rename", "COMMAND").
		Lit("rename").NT("ITARGET").Lit("to").Any().
		Priority(14).Action("arrange.rename").From(source).
		Describe("rename <instrument> to <name>")

	// Targets.
	b.Rule("target.inst", "ITARGET").
		NT("INSTRUMENT").
		Priority(18).From(source)
	b.Rule("target.inst.the", "ITARGET").
		Lit("the").NT("INSTRUMENT").
		Priority(18).From(source)
	b.Rule("target.track", "ITARGET").
		Lit("track").NT("NUMBER").
		Priority(18).From(source).
		Describe("track <n>")
	b.Rule("target.sel", "ITARGET").
		Lit("the").Lit("selection").
		Priority(14).Action("target.selection").From(source)
	b.Rule("target.band", "BTARGET").
		NT("BAND").
		Priority(18).From(source)
	b.Rule("target.band.the", "BTARGET").
		Lit("the").NT("BAND").
		Priority(18).From(source)

	// Word classes. Open classes match on annotator tags; closed
	// classes are anchored patterns or literals.
	b.Rule("inst.word", "INSTRUMENT").
		Tag(TagInstrument).
		Priority(18).From(source).
		Describe("a token tagged as an instrument")
	b.Rule("band.word", "BAND").
		Tag(TagBand).
		Priority(18).From(source).
		Describe("a token tagged as a frequency band")
	b.Rule("quality.word", "QUALITY").
		Tag(TagAdjective).
		Priority(18).From(source).
		Describe("a token tagged as a mix adjective")
	b.Rule("fx.word", "FX").
		Tag(TagEffect).
		Priority(16).From(source).
		Describe("a token tagged as an effect")
	b.Rule("pandir.word", "PANDIR").
		Regex("^(left|right|center|centre)$").
		Priority(16).From(source).
		Describe("a pan direction")
	b.Rule("param.word", "PARAM").
		Regex("^(volume|gain|level|pitch|width)$").
		Priority(16).From(source).
		Describe("a mixer parameter")
	b.Rule("num.word", "NUMBER").
		Type(TypeNumber).
		Priority(18).From(source)

	// Amounts.
	b.Rule("amount.unit", "AMOUNT").
		NT("NUMBER").NT("UNIT").
		Priority(18).From(source).
		Describe("<number> <unit>")
	b.Rule("amount.bare", "AMOUNT").
		NT("NUMBER").
		Priority(12).Action("amount.infer_unit").From(source).
		Describe("<number> with the unit left implicit")
	b.Rule("amount.percent", "AMOUNT").
		Pred("percent", func(tok grammar.Token) bool {
			return percentRe.MatchString(tok.Text)
		}).
		Priority(16).From(source).
		Describe("a percentage like 25%")

	for _, unit := range lex.Units() {
		b.Rule("unit."+unit, "UNIT").
			Lit(unit).
			Priority(16).From(source)
	}

	return b.Build()
}

// Load parses the embedded vocabulary and builds the builtin grammar in
// one call. Services do this once at startup.
func Load() (*grammar.Grammar, *Lexicon, error) {
	lex, err := NewLexicon()
	if err != nil {
		return nil, nil, err
	}
	g, err := NewGrammar(lex)
	if err != nil {
		return nil, nil, err
	}
	return g, lex, nil
}
