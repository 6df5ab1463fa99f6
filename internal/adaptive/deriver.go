// Package adaptive turns an accessibility profile into concrete interface parameters.
package adaptive

import (
	"strings"
	"sync"

	"fourall/internal/models"
)

// Touch target minimums in pixels
const (
	TouchTargetDefault = 44
	TouchTargetLarge   = 48
)

// minVisualFontSize is the floor applied for visual impairment or large preferences
const minVisualFontSize = 20

var sizeSteps = []models.SizeToken{models.SizeSmall, models.SizeMedium, models.SizeLarge, models.SizeXLarge}

// DeriveUIConfig maps a profile and the system reduced-motion signal to a UI configuration.
// It is pure: identical inputs always produce identical output.
func DeriveUIConfig(profile models.UserProfile, reducedMotion bool) models.UIConfig {
	d := profile.Disabilities
	prefs := profile.AccessibilityPreferences.Normalize()
	visual := d.Has(models.DisabilityVisual)
	motor := d.Has(models.DisabilityMotor)
	cognitive := d.Has(models.DisabilityCognitive)
	hearing := d.Has(models.DisabilityHearing)
	complexity := profile.UIComplexity

	cfg := models.UIConfig{}

	switch {
	case complexity == models.ComplexitySimplified || cognitive || visual:
		cfg.LayoutDensity = models.DensitySimplified
	case complexity == models.ComplexityDetailed && !motor:
		cfg.LayoutDensity = models.DensityCompact
	default:
		cfg.LayoutDensity = models.DensityCozy
	}

	cfg.FontSizeBase = prefs.FontSize
	if visual || prefs.FontSize > 18 {
		cfg.FontSizeBase = max(cfg.FontSizeBase, minVisualFontSize)
	}

	cfg.ContrastMode = models.ContrastNormal
	if prefs.Contrast == models.ContrastHigh || visual {
		cfg.ContrastMode = models.ContrastHigh
	}

	cfg.PrimaryInteraction = profile.InteractionMode
	if cfg.PrimaryInteraction == "" {
		cfg.PrimaryInteraction = models.InteractionVoice
	}

	cfg.ConfirmMode = profile.ConfirmMode
	if cfg.ConfirmMode == "" {
		cfg.ConfirmMode = models.ConfirmPIN
	}
	if visual && cfg.PrimaryInteraction == models.InteractionVoice {
		cfg.ConfirmMode = models.ConfirmVoice
	}

	enlarge := motor || prefs.LargeTargets
	cfg.CardSpacing, cfg.ButtonSize, cfg.InputSize = sizeTokens(cfg.LayoutDensity, enlarge)

	switch {
	case complexity == models.ComplexitySimplified || cognitive:
		cfg.NavigationStyle = models.NavigationSimplified
	case complexity == models.ComplexityDetailed:
		cfg.NavigationStyle = models.NavigationFull
	default:
		cfg.NavigationStyle = models.NavigationMinimal
	}

	cfg.AnimationEnabled = !cognitive && !reducedMotion
	cfg.ShowHelp = cognitive || complexity == models.ComplexitySimplified || !profile.IsOnboardingComplete
	cfg.VoicePrompts = cfg.PrimaryInteraction == models.InteractionVoice && !hearing
	cfg.FontScale = fontScale(cfg.FontSizeBase)

	cfg.TouchTarget.Min = TouchTargetDefault
	if enlarge {
		cfg.TouchTarget.Min = TouchTargetLarge
	}

	cfg.Font = prefs.Font
	cfg.Captions = prefs.Captions || hearing
	cfg.TTSSpeed = prefs.TTSSpeed

	return cfg
}

// sizeTokens picks card spacing, button and input sizes.
// Each size only ever grows with simplified density or enlarged targets.
func sizeTokens(density models.LayoutDensity, enlarge bool) (card, button, input models.SizeToken) {
	var c, b, i int
	switch density {
	case models.DensityCompact:
		c, b, i = 0, 1, 1
	case models.DensityCozy:
		c, b, i = 1, 1, 1
	default:
		c, b, i = 2, 2, 2
	}
	if enlarge {
		c, b, i = c+1, b+1, i+1
	}
	return step(c), step(b), step(i)
}

func step(i int) models.SizeToken {
	return sizeSteps[min(i, len(sizeSteps)-1)]
}

func fontScale(base int) models.FontScale {
	b := float64(base)
	return models.FontScale{
		XS:   b * 0.75,
		SM:   b * 0.875,
		Base: b,
		LG:   b * 1.125,
		XL:   b * 1.25,
	}
}

// maxCachedConfigs bounds the memo table; it is dropped wholesale when full
const maxCachedConfigs = 1024

type cacheKey struct {
	prefs         models.AccessibilityPreferences
	complexity    models.UIComplexity
	disabilities  string
	mode          models.InteractionMode
	confirm       models.ConfirmMode
	complete      bool
	reducedMotion bool
}

// Deriver memoizes DeriveUIConfig on its full input tuple
type Deriver struct {
	mu    sync.Mutex
	cache map[cacheKey]models.UIConfig
}

// NewDeriver creates a memoizing deriver
func NewDeriver() *Deriver {
	return &Deriver{cache: make(map[cacheKey]models.UIConfig)}
}

// Derive returns the cached configuration for the inputs, computing it on a miss
func (d *Deriver) Derive(profile models.UserProfile, reducedMotion bool) models.UIConfig {
	key := keyFor(profile, reducedMotion)

	d.mu.Lock()
	cfg, ok := d.cache[key]
	d.mu.Unlock()
	if ok {
		return cfg
	}

	cfg = DeriveUIConfig(profile, reducedMotion)

	d.mu.Lock()
	if len(d.cache) >= maxCachedConfigs {
		d.cache = make(map[cacheKey]models.UIConfig)
	}
	d.cache[key] = cfg
	d.mu.Unlock()

	return cfg
}

func keyFor(p models.UserProfile, reducedMotion bool) cacheKey {
	names := make([]string, 0, len(p.Disabilities))
	for _, dis := range p.Disabilities.List() {
		names = append(names, string(dis))
	}
	return cacheKey{
		prefs:         p.AccessibilityPreferences,
		complexity:    p.UIComplexity,
		disabilities:  strings.Join(names, ","),
		mode:          p.InteractionMode,
		confirm:       p.ConfirmMode,
		complete:      p.IsOnboardingComplete,
		reducedMotion: reducedMotion,
	}
}
