package models

// LayoutDensity controls how much content is packed on screen
type LayoutDensity string

const (
	DensitySimplified LayoutDensity = "simplified"
	DensityCozy       LayoutDensity = "cozy"
	DensityCompact    LayoutDensity = "compact"
)

// NavigationStyle controls how much navigation chrome is shown
type NavigationStyle string

const (
	NavigationSimplified NavigationStyle = "simplified"
	NavigationMinimal    NavigationStyle = "minimal"
	NavigationFull       NavigationStyle = "full"
)

// SizeToken is a named spacing or control size step
type SizeToken string

const (
	SizeSmall  SizeToken = "sm"
	SizeMedium SizeToken = "md"
	SizeLarge  SizeToken = "lg"
	SizeXLarge SizeToken = "xl"
)

// FontScale holds the five named text sizes in pixels
type FontScale struct {
	XS   float64 `json:"xs"`
	SM   float64 `json:"sm"`
	Base float64 `json:"base"`
	LG   float64 `json:"lg"`
	XL   float64 `json:"xl"`
}

// TouchTarget holds the minimum interactive element size in pixels
type TouchTarget struct {
	Min int `json:"min"`
}

// UIConfig is the concrete interface configuration derived from a profile
type UIConfig struct {
	LayoutDensity      LayoutDensity   `json:"layoutDensity"`
	FontSizeBase       int             `json:"fontSizeBase"`
	FontScale          FontScale       `json:"fontScale"`
	ContrastMode       Contrast        `json:"contrastMode"`
	PrimaryInteraction InteractionMode `json:"primaryInteraction"`
	ConfirmMode        ConfirmMode     `json:"confirmMode"`
	CardSpacing        SizeToken       `json:"cardSpacing"`
	ButtonSize         SizeToken       `json:"buttonSize"`
	InputSize          SizeToken       `json:"inputSize"`
	NavigationStyle    NavigationStyle `json:"navigationStyle"`
	AnimationEnabled   bool            `json:"animationEnabled"`
	ShowHelp           bool            `json:"showHelp"`
	VoicePrompts       bool            `json:"voicePrompts"`
	TouchTarget        TouchTarget     `json:"touchTarget"`
	Font               Font            `json:"font"`
	Captions           bool            `json:"captions"`
	TTSSpeed           float64         `json:"ttsSpeed"`
}
