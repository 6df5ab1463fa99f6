package models

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"
)

// Language is a supported UI and speech language
type Language string

const (
	LanguageEnglish Language = "en"
	LanguagePidgin  Language = "pcm"
	LanguageYoruba  Language = "yo"
	LanguageIgbo    Language = "ig"
	LanguageHausa   Language = "ha"
)

// Languages lists every supported language in display order
var Languages = []Language{LanguageEnglish, LanguagePidgin, LanguageYoruba, LanguageIgbo, LanguageHausa}

// Valid reports whether l is one of the supported languages
func (l Language) Valid() bool {
	return slices.Contains(Languages, l)
}

// InteractionMode is the user's primary way of operating the app
type InteractionMode string

const (
	InteractionVoice InteractionMode = "voice"
	InteractionText  InteractionMode = "text"
)

// Valid reports whether m is a known interaction mode
func (m InteractionMode) Valid() bool {
	return m == InteractionVoice || m == InteractionText
}

// Disability is a declared impairment category
type Disability string

const (
	DisabilityVisual    Disability = "visual"
	DisabilityHearing   Disability = "hearing"
	DisabilityMotor     Disability = "motor"
	DisabilityCognitive Disability = "cognitive"
	DisabilitySpeech    Disability = "speech"
)

// Disabilities lists every disability category in canonical order
var Disabilities = []Disability{DisabilityVisual, DisabilityHearing, DisabilityMotor, DisabilityCognitive, DisabilitySpeech}

// Valid reports whether d is a known disability category
func (d Disability) Valid() bool {
	return slices.Contains(Disabilities, d)
}

// DisabilitySet is an unordered set of disabilities without duplicates.
// It serializes as a JSON array in canonical order.
type DisabilitySet map[Disability]struct{}

// NewDisabilitySet builds a set from the given values, dropping duplicates
func NewDisabilitySet(values ...Disability) DisabilitySet {
	set := make(DisabilitySet, len(values))
	for _, d := range values {
		set[d] = struct{}{}
	}
	return set
}

// Has reports whether d is in the set
func (s DisabilitySet) Has(d Disability) bool {
	_, ok := s[d]
	return ok
}

// Add inserts d into the set
func (s DisabilitySet) Add(d Disability) {
	s[d] = struct{}{}
}

// Empty reports whether the set has no members
func (s DisabilitySet) Empty() bool {
	return len(s) == 0
}

// List returns the members in canonical order
func (s DisabilitySet) List() []Disability {
	out := make([]Disability, 0, len(s))
	for _, d := range Disabilities {
		if s.Has(d) {
			out = append(out, d)
		}
	}
	return out
}

// Clone returns an independent copy of the set
func (s DisabilitySet) Clone() DisabilitySet {
	return NewDisabilitySet(s.List()...)
}

func (s DisabilitySet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.List())
}

func (s *DisabilitySet) UnmarshalJSON(data []byte) error {
	var values []Disability
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}
	set := make(DisabilitySet, len(values))
	for _, d := range values {
		if !d.Valid() {
			return fmt.Errorf("unknown disability %q", d)
		}
		set.Add(d)
	}
	*s = set
	return nil
}

// UIComplexity is the coarse simplification tier of the interface
type UIComplexity string

const (
	ComplexitySimplified UIComplexity = "simplified"
	ComplexityModerate   UIComplexity = "moderate"
	ComplexityDetailed   UIComplexity = "detailed"
)

// Contrast is the colour contrast preference
type Contrast string

const (
	ContrastNormal Contrast = "normal"
	ContrastHigh   Contrast = "high"
)

// Font is the preferred typeface
type Font string

const (
	FontInter    Font = "inter"
	FontAtkinson Font = "atkinson"
)

// ConfirmMode is the method used to authorize a sensitive action
type ConfirmMode string

const (
	ConfirmPIN       ConfirmMode = "pin"
	ConfirmVoice     ConfirmMode = "voice"
	ConfirmBiometric ConfirmMode = "biometric"
)

// Valid reports whether c is a known confirm mode
func (c ConfirmMode) Valid() bool {
	return c == ConfirmPIN || c == ConfirmVoice || c == ConfirmBiometric
}

// Preference limits
const (
	MinFontSize     = 14
	MaxFontSize     = 24
	DefaultFontSize = 16
	MinTTSSpeed     = 0.5
	MaxTTSSpeed     = 2.0
)

// AccessibilityPreferences holds the concrete presentation preferences of a user
type AccessibilityPreferences struct {
	FontSize     int      `json:"fontSize"`
	Contrast     Contrast `json:"contrast"`
	TTSSpeed     float64  `json:"ttsSpeed"`
	LargeTargets bool     `json:"largeTargets"`
	Captions     bool     `json:"captions"`
	Font         Font     `json:"font"`
}

// DefaultPreferences returns the preferences of a user with no declared needs
func DefaultPreferences() AccessibilityPreferences {
	return AccessibilityPreferences{
		FontSize: DefaultFontSize,
		Contrast: ContrastNormal,
		TTSSpeed: 1.0,
		Font:     FontInter,
	}
}

// Normalize clamps numeric fields into their allowed ranges and fills unknown enums
func (p AccessibilityPreferences) Normalize() AccessibilityPreferences {
	if p.FontSize == 0 {
		p.FontSize = DefaultFontSize
	}
	p.FontSize = min(max(p.FontSize, MinFontSize), MaxFontSize)
	if p.TTSSpeed == 0 {
		p.TTSSpeed = 1.0
	}
	p.TTSSpeed = min(max(p.TTSSpeed, MinTTSSpeed), MaxTTSSpeed)
	if p.Contrast != ContrastHigh {
		p.Contrast = ContrastNormal
	}
	if p.Font != FontAtkinson {
		p.Font = FontInter
	}
	return p
}

// UserProfile is the finished accessibility and interaction profile of a user
type UserProfile struct {
	ProfileID                string                   `json:"profileId,omitempty"`
	UserID                   string                   `json:"userId,omitempty"`
	Name                     string                   `json:"name,omitempty"`
	Phone                    string                   `json:"phone,omitempty"`
	Email                    string                   `json:"email,omitempty"`
	Language                 Language                 `json:"language"`
	InteractionMode          InteractionMode          `json:"interactionMode"`
	Disabilities             DisabilitySet            `json:"disabilities"`
	CognitiveScore           int                      `json:"cognitiveScore"`
	UIComplexity             UIComplexity             `json:"uiComplexity"`
	AccessibilityPreferences AccessibilityPreferences `json:"accessibilityPreferences"`
	ConfirmMode              ConfirmMode              `json:"confirmMode"`
	IsOnboardingComplete     bool                     `json:"isOnboardingComplete"`
	CreatedAt                time.Time                `json:"createdAt"`
	UpdatedAt                time.Time                `json:"updatedAt"`
}

// ProfileUpdate is a partial update of a profile; nil fields are left untouched
type ProfileUpdate struct {
	Name                     *string                   `json:"name,omitempty"`
	Phone                    *string                   `json:"phone,omitempty"`
	Email                    *string                   `json:"email,omitempty"`
	Language                 *Language                 `json:"language,omitempty"`
	InteractionMode          *InteractionMode          `json:"interactionMode,omitempty"`
	Disabilities             *DisabilitySet            `json:"disabilities,omitempty"`
	CognitiveScore           *int                      `json:"cognitiveScore,omitempty"`
	AccessibilityPreferences *AccessibilityPreferences `json:"accessibilityPreferences,omitempty"`
}

// Apply copies the set fields of u onto p
func (u ProfileUpdate) Apply(p *UserProfile) {
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Phone != nil {
		p.Phone = *u.Phone
	}
	if u.Email != nil {
		p.Email = *u.Email
	}
	if u.Language != nil {
		p.Language = *u.Language
	}
	if u.InteractionMode != nil {
		p.InteractionMode = *u.InteractionMode
	}
	if u.Disabilities != nil {
		p.Disabilities = u.Disabilities.Clone()
	}
	if u.CognitiveScore != nil {
		p.CognitiveScore = *u.CognitiveScore
	}
	if u.AccessibilityPreferences != nil {
		p.AccessibilityPreferences = u.AccessibilityPreferences.Normalize()
	}
}
