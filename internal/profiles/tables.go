package profiles

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/bobarin/placeguide/internal/config"
)

var (
	defaultFemaleVoices = VoiceSet{Japanese: "ja-JP-NanamiNeural", Other: "en-US-AvaNeural"}
	defaultMaleVoices   = VoiceSet{Japanese: "ja-JP-KeitaNeural", Other: "en-US-AndrewNeural"}
)

// Companion returns the persona-driven table: each animal has its own pace,
// pitch and speaking style.
func Companion() *Table {
	return &Table{
		Variant:         config.VariantCompanion,
		DefaultSelector: "dog",
		Personas:        true,
		FemaleVoices:    defaultFemaleVoices,
		MaleVoices:      defaultMaleVoices,
		Entries: map[string]Entry{
			// Energetic, slightly high
			"dog": {
				PitchHz: 5, RatePercent: 10,
				Persona: &Persona{
					ToneJapanese:  "あなたは忠実な柴犬です。語尾に「ワン！」や「だワン」を付けて、元気いっぱいに案内してください。旅行者のことは「ご主人様」と呼んでください。",
					OpeningSuffix: "ワン",
				},
			},
			// Wise owl, a little slower
			"bird": {
				PitchHz: -5, RatePercent: -5,
				Persona: &Persona{
					ToneJapanese: "あなたは物知りなフクロウです。語尾に「ホ」や「ですので」を付けて、博士のように落ち着いて解説してください。",
				},
			},
			"monkey": {
				PitchHz: 15, RatePercent: 15,
				Persona: &Persona{
					ToneJapanese: "あなたはいたずら好きのサルです。語尾に「ウッキー」や「だキー」を付けて、ハイテンションで案内してください。",
				},
			},
			// Deep and slow; always the male voice
			"bear": {
				Base: BaseMale, PitchHz: -15, RatePercent: -10,
				Persona: &Persona{
					ToneJapanese: "あなたは優しいクマです。語尾に「クマ」を付けて、のんびりと優しく案内してください。「〜だなぁ」という口調が特徴です。",
				},
			},
			"horse": {
				PitchHz: -5, RatePercent: 0,
				Persona: &Persona{
					ToneJapanese: "あなたは高貴な馬です。「ヒヒーン」は控えめにして、「〜でございます」と執事のように丁寧に案内してください。",
				},
			},
		},
	}
}

// Official returns the unified-tone table: one neutral guide voice family
// and no persona.
func Official() *Table {
	return &Table{
		Variant:         config.VariantOfficial,
		DefaultSelector: "female",
		Personas:        false,
		FemaleVoices:    defaultFemaleVoices,
		MaleVoices:      defaultMaleVoices,
		Entries: map[string]Entry{
			"female": {Base: BaseFemale},
			"male":   {Base: BaseMale},
			"tsuda":  {Base: BaseMale, PitchHz: -10, RatePercent: -5},
			"kitty":  {Base: BaseFemale, PitchHz: 20, RatePercent: 10},
			"kyoko":  {Base: BaseFemale, PitchHz: -5, RatePercent: -5},
		},
	}
}

// ForVariant returns the built-in table of a deployment variant.
func ForVariant(variant string) (*Table, error) {
	switch variant {
	case config.VariantCompanion:
		return Companion(), nil
	case config.VariantOfficial:
		return Official(), nil
	default:
		return nil, fmt.Errorf("unknown guide variant %q", variant)
	}
}

// Load returns the table for cfg: the YAML file when PROFILES_FILE is set,
// otherwise the built-in table of the configured variant.
func Load(cfg *config.Config) (*Table, error) {
	if cfg.ProfilesFile != "" {
		return LoadFile(cfg.ProfilesFile, cfg.Variant)
	}
	return ForVariant(cfg.Variant)
}

// LoadFile reads a YAML table. Missing voice sets, default selector and
// variant inherit from the built-in table of fallbackVariant.
func LoadFile(path, fallbackVariant string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profiles file: %w", err)
	}

	var table Table
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("failed to parse profiles file %s: %w", path, err)
	}

	if table.Variant == "" {
		table.Variant = fallbackVariant
	}
	base, err := ForVariant(table.Variant)
	if err != nil {
		return nil, err
	}

	table.Personas = base.Personas
	if table.DefaultSelector == "" {
		table.DefaultSelector = base.DefaultSelector
	}
	if table.FemaleVoices.Japanese == "" {
		table.FemaleVoices.Japanese = base.FemaleVoices.Japanese
	}
	if table.FemaleVoices.Other == "" {
		table.FemaleVoices.Other = base.FemaleVoices.Other
	}
	if table.MaleVoices.Japanese == "" {
		table.MaleVoices.Japanese = base.MaleVoices.Japanese
	}
	if table.MaleVoices.Other == "" {
		table.MaleVoices.Other = base.MaleVoices.Other
	}
	if len(table.Entries) == 0 {
		table.Entries = base.Entries
	}

	if err := table.Validate(); err != nil {
		return nil, fmt.Errorf("invalid profiles file %s: %w", path, err)
	}

	return &table, nil
}
