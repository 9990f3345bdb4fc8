package embedded

import (
	_ "embed"
)

// Embed vocabulary tables used to author the builtin command grammar
//
//go:embed data/vocab/instruments.csv
var InstrumentsCsv []byte

//go:embed data/vocab/adjectives.csv
var AdjectivesCsv []byte

//go:embed data/vocab/effects.csv
var EffectsCsv []byte

//go:embed data/vocab/frequency_bands.csv
var FrequencyBandsCsv []byte

//go:embed data/vocab/units.csv
var UnitsCsv []byte

//go:embed data/prompts/clarify_system_prompt.txt
var ClarifySystemPromptTxt []byte

//go:embed data/prompts/clarify_user_prompt.txt
var ClarifyUserPromptTxt []byte
