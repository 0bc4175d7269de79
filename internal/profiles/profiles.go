// Package profiles maps a (language, voice selector) pair to the acoustic
// parameters used for synthesis and, for companion tables, the persona that
// steers the script. Tables are built once at startup and only read afterwards,
// so concurrent requests share them without locking.
package profiles

import (
	"fmt"
	"sort"

	"github.com/bobarin/placeguide/internal/models"
)

// BaseVoice picks between the female and male voice of the request language.
type BaseVoice string

const (
	BaseFemale BaseVoice = "female"
	BaseMale   BaseVoice = "male"
)

// VoiceSet holds one voice identifier per language branch.
type VoiceSet struct {
	Japanese string `yaml:"ja"`
	Other    string `yaml:"other"`
}

func (v VoiceSet) forLanguage(lang string) string {
	if lang == models.LanguageJapanese {
		return v.Japanese
	}
	return v.Other
}

// Persona is the companion character attached to a table entry.
type Persona struct {
	ToneJapanese  string `yaml:"tone_ja"`
	OpeningSuffix string `yaml:"opening_suffix"`
}

// Entry is one selector row.
type Entry struct {
	Base        BaseVoice `yaml:"base"`
	VoiceID     string    `yaml:"voice_id"` // overrides Base when set
	PitchHz     int       `yaml:"pitch_hz"`
	RatePercent int       `yaml:"rate_percent"`
	Persona     *Persona  `yaml:"persona"`
}

// Table is the process-wide selector table.
type Table struct {
	Variant         string           `yaml:"variant"`
	DefaultSelector string           `yaml:"default_selector"`
	Personas        bool             `yaml:"-"` // companion variant only
	FemaleVoices    VoiceSet         `yaml:"female_voices"`
	MaleVoices      VoiceSet         `yaml:"male_voices"`
	Entries         map[string]Entry `yaml:"profiles"`
}

// Resolution is the outcome of a lookup. Known is false when the selector was
// not in the table and the default profile was substituted.
type Resolution struct {
	Acoustic models.AcousticProfile
	Persona  *models.PersonaProfile
	Known    bool
}

// Resolve never fails: an unknown selector yields the default profile
// (female base voice, +0Hz, +0%).
//
// Persona rules for tables with Personas enabled:
//   - Japanese, known selector: the entry's tone instruction and opening suffix.
//   - Japanese, unknown selector: companion named, tone instruction empty.
//   - Other languages: a generic one-line instruction built from the selector,
//     whether or not the selector is known.
//
// Tables without personas always return a nil Persona.
func (t *Table) Resolve(lang, selector string) Resolution {
	entry, ok := t.Entries[selector]
	if !ok {
		return Resolution{
			Acoustic: t.DefaultProfile(lang),
			Persona:  t.persona(lang, selector, nil),
			Known:    false,
		}
	}

	return Resolution{
		Acoustic: t.acoustic(lang, entry),
		Persona:  t.persona(lang, selector, entry.Persona),
		Known:    true,
	}
}

// DefaultProfile is the fallback for unknown selectors.
func (t *Table) DefaultProfile(lang string) models.AcousticProfile {
	return models.AcousticProfile{VoiceID: t.FemaleVoices.forLanguage(lang)}
}

// Selectors returns the table keys in sorted order.
func (t *Table) Selectors() []string {
	keys := make([]string, 0, len(t.Entries))
	for k := range t.Entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Validate checks that every entry can produce a voice for both branches.
func (t *Table) Validate() error {
	if t.FemaleVoices.Japanese == "" || t.FemaleVoices.Other == "" {
		return fmt.Errorf("female_voices must define both ja and other")
	}
	for selector, entry := range t.Entries {
		if selector == "" {
			return fmt.Errorf("profile with empty selector")
		}
		switch entry.Base {
		case "", BaseFemale:
		case BaseMale:
			if entry.VoiceID == "" && (t.MaleVoices.Japanese == "" || t.MaleVoices.Other == "") {
				return fmt.Errorf("profile %q uses the male base voice but male_voices is incomplete", selector)
			}
		default:
			return fmt.Errorf("profile %q has unknown base voice %q", selector, entry.Base)
		}
	}
	return nil
}

func (t *Table) acoustic(lang string, entry Entry) models.AcousticProfile {
	voice := entry.VoiceID
	if voice == "" {
		if entry.Base == BaseMale {
			voice = t.MaleVoices.forLanguage(lang)
		} else {
			voice = t.FemaleVoices.forLanguage(lang)
		}
	}
	return models.AcousticProfile{
		VoiceID:     voice,
		PitchHz:     entry.PitchHz,
		RatePercent: entry.RatePercent,
	}
}

func (t *Table) persona(lang, selector string, p *Persona) *models.PersonaProfile {
	if !t.Personas {
		return nil
	}

	if lang != models.LanguageJapanese {
		return &models.PersonaProfile{
			Companion:       selector,
			ToneInstruction: fmt.Sprintf("You are a %s. Speak with the personality of a %s.", selector, selector),
		}
	}

	persona := &models.PersonaProfile{Companion: selector}
	if p != nil {
		persona.ToneInstruction = p.ToneJapanese
		persona.OpeningSuffix = p.OpeningSuffix
	}
	return persona
}
