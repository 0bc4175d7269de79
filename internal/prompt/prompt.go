// Package prompt builds the instruction sent to the text generator. There is
// one template per (language branch × mode); a persona, when present, adds the
// companion framing and its tone directive, otherwise the official guide
// framing is used.
package prompt

import (
	"fmt"
	"strings"

	"github.com/bobarin/placeguide/internal/models"
)

// Source block markers. The truncated source text is always the final part of
// the prompt, right after the marker line.
const (
	SourceMarkerJapanese = "[元データ]\n"
	SourceMarkerOther    = "[Source]\n"
)

// Limits are the per-mode character budgets for embedded source text.
type Limits struct {
	Simple int
	Detail int
}

// DefaultLimits matches the companion variant.
func DefaultLimits() Limits {
	return Limits{Simple: 1000, Detail: 2000}
}

// Composer is immutable after construction and safe for concurrent use.
type Composer struct {
	limits Limits
}

func NewComposer(limits Limits) *Composer {
	defaults := DefaultLimits()
	if limits.Simple <= 0 {
		limits.Simple = defaults.Simple
	}
	if limits.Detail <= 0 {
		limits.Detail = defaults.Detail
	}
	return &Composer{limits: limits}
}

// Limit returns the source budget for mode.
func (c *Composer) Limit(mode models.Mode) int {
	if mode == models.ModeSimple {
		return c.limits.Simple
	}
	return c.limits.Detail
}

// Compose renders the prompt for req. persona may be nil.
func (c *Composer) Compose(req models.GuideRequest, persona *models.PersonaProfile) string {
	source := Truncate(req.SourceText, c.Limit(req.Mode))

	if req.IsJapanese() {
		if req.Mode == models.ModeSimple {
			return japaneseSimple(req.PlaceName, persona, source)
		}
		return japaneseDetail(req.PlaceName, persona, source)
	}

	if req.Mode == models.ModeSimple {
		return otherSimple(req.PlaceName, persona, source)
	}
	return otherDetail(req.PlaceName, persona, source)
}

// Truncate keeps the first limit characters (runes) of text. It is a hard
// prefix cut with no sentence awareness.
func Truncate(text string, limit int) string {
	if limit <= 0 {
		return ""
	}
	count := 0
	for i := range text {
		if count == limit {
			return text[:i]
		}
		count++
	}
	return text
}

// ---------------------------------------------------------------------------
// Japanese templates
// ---------------------------------------------------------------------------

func japaneseFraming(persona *models.PersonaProfile) string {
	if persona != nil {
		return fmt.Sprintf("あなたは旅行者の相棒（%s）として案内します。", persona.Companion)
	}
	return "あなたは公式の観光ガイドです。落ち着いた丁寧な語り口で案内してください。"
}

func japaneseOpening(place string, persona *models.PersonaProfile) string {
	if persona != nil {
		return fmt.Sprintf("%sだ%s！", place, persona.OpeningSuffix)
	}
	return fmt.Sprintf("%sへようこそ。", place)
}

func writeJapaneseCommon(b *strings.Builder, place string, persona *models.PersonaProfile) {
	if persona != nil && persona.ToneInstruction != "" {
		b.WriteString("【役割設定】\n")
		b.WriteString(persona.ToneInstruction)
		b.WriteString("\n\n")
	}

	b.WriteString("【書き出し（必須）】\n")
	fmt.Fprintf(b, "・書き出しは必ず「%s」のように、場所の名前を呼ぶことから始めてください。\n", japaneseOpening(place, persona))
	b.WriteString("・「こんにちは」「さて」「見てください」「皆さん」のような書き出しは使わないでください。\n\n")

	b.WriteString("【禁止事項】\n")
	b.WriteString("・旅行者の目の前に見えている外観や景色を、そのまま描写しないでください。\n")
	b.WriteString("・住所や所在地を読み上げないでください。\n\n")
}

func japaneseSimple(place string, persona *models.PersonaProfile, source string) string {
	var b strings.Builder

	b.WriteString(japaneseFraming(persona))
	b.WriteString("\n")
	fmt.Fprintf(&b, "現在地「%s」について、面白いトリビアを2〜3文（100〜140文字程度）で教えてください。\n\n", place)

	writeJapaneseCommon(&b, place, persona)

	b.WriteString("【構成】\n")
	b.WriteString("1. 場所の名前を呼び、それが何なのかを一言で紹介\n")
	b.WriteString("2. 「実は…」と、意外な歴史や豆知識をひとつ\n")
	b.WriteString("3. 短い締めの一言\n\n")

	b.WriteString(SourceMarkerJapanese)
	b.WriteString(source)
	return b.String()
}

func japaneseDetail(place string, persona *models.PersonaProfile, source string) string {
	var b strings.Builder

	b.WriteString(japaneseFraming(persona))
	b.WriteString("\n")
	fmt.Fprintf(&b, "現在地「%s」について、400文字程度で詳しくガイドしてください。\n\n", place)

	writeJapaneseCommon(&b, place, persona)

	b.WriteString("【構成】\n")
	b.WriteString("1. 場所の名前を呼んで紹介\n")
	b.WriteString("2. 歴史や背景を深掘り（元データに基づく）\n")
	b.WriteString("3. 見どころや豆知識\n")
	b.WriteString("4. 締めの言葉（次の目的地へ誘う）\n\n")

	b.WriteString(SourceMarkerJapanese)
	b.WriteString(source)
	return b.String()
}

// ---------------------------------------------------------------------------
// Non-Japanese templates
// ---------------------------------------------------------------------------

func otherFraming(persona *models.PersonaProfile) string {
	if persona != nil {
		return fmt.Sprintf("You are the traveler's companion (%s).", persona.Companion)
	}
	return "You are an official tour guide. Keep a calm, polished narration tone."
}

func writeOtherCommon(b *strings.Builder, place string, persona *models.PersonaProfile) {
	if persona != nil && persona.ToneInstruction != "" {
		b.WriteString("ROLE:\n")
		b.WriteString(persona.ToneInstruction)
		b.WriteString("\n\n")
	}

	b.WriteString("OPENING (required):\n")
	fmt.Fprintf(b, "- Start the very first sentence by naming the place, for example \"%s!\"\n", place)
	b.WriteString("- Do not open with \"Hello\", \"Welcome, everyone\", \"Look around\" or \"Today we\".\n\n")

	b.WriteString("DO NOT:\n")
	b.WriteString("- Describe what the traveler can already see in front of them.\n")
	b.WriteString("- Read out the street address or location.\n\n")
}

func otherSimple(place string, persona *models.PersonaProfile, source string) string {
	var b strings.Builder

	b.WriteString(otherFraming(persona))
	b.WriteString("\n")
	fmt.Fprintf(&b, "Tell the traveler one surprising piece of trivia about \"%s\" in 2-3 sentences.\n\n", place)

	writeOtherCommon(&b, place, persona)

	b.WriteString("STRUCTURE:\n")
	b.WriteString("1. Name the place and say what it is in one line\n")
	b.WriteString("2. \"Actually...\" followed by one unexpected historical fact or piece of trivia\n")
	b.WriteString("3. A short closing line\n\n")

	b.WriteString(SourceMarkerOther)
	b.WriteString(source)
	return b.String()
}

func otherDetail(place string, persona *models.PersonaProfile, source string) string {
	var b strings.Builder

	b.WriteString(otherFraming(persona))
	b.WriteString("\n")
	fmt.Fprintf(&b, "Explain \"%s\" in detail, in approximately 150 words.\n\n", place)

	writeOtherCommon(&b, place, persona)

	b.WriteString("STRUCTURE:\n")
	b.WriteString("1. Name the place and introduce it\n")
	b.WriteString("2. A deeper look at its history and background, based on the source\n")
	b.WriteString("3. Highlights and trivia\n")
	b.WriteString("4. A closing line that invites the traveler to the next stop\n\n")

	b.WriteString(SourceMarkerOther)
	b.WriteString(source)
	return b.String()
}
