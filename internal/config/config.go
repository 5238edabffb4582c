package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/lipgloss"

	"pktedit/internal/charset"
	"pktedit/internal/history"
	"pktedit/internal/search"
	"pktedit/internal/textdoc"
	"pktedit/internal/truncate"
)

// CharsetEnvVar overrides the configured charset.
const CharsetEnvVar = "PKTEDIT_CHARSET"

var ErrInvalid = errors.New("invalid config")

type Theme struct {
	Background          string `toml:"background"`
	CaretBackground     string `toml:"caret_background"`
	SelectionBackground string `toml:"selection_background"`
	SearchBackground    string `toml:"search_background"`
	BannerColor         string `toml:"banner_color"`
	LegendBackground    string `toml:"legend_background"`
	LegendHighlight     string `toml:"legend_highlight"`
	BorderColor         string `toml:"border_color"`
	ActivePane          string `toml:"active_pane"`
	ModifiedColor       string `toml:"modified_color"`
	DisabledColor       string `toml:"disabled_color"`
}

type Editor struct {
	Charset         string `toml:"charset"`
	TextThreshold   int    `toml:"text_threshold"`
	BinaryThreshold int    `toml:"binary_threshold"`
	PreviewSize     int    `toml:"preview_size"`
	SearchLimit     int    `toml:"search_limit"`
	UndoLimit       int    `toml:"undo_limit"`
	Classifier      string `toml:"classifier"`
	LoadChunk       int    `toml:"load_chunk"`
}

type Config struct {
	Theme  Theme  `toml:"theme"`
	Editor Editor `toml:"editor"`
}

func DefaultConfig() *Config {
	return &Config{
		Theme: Theme{
			Background:          "#000000",
			CaretBackground:     "#0000FF",
			SelectionBackground: "#FFAA00",
			SearchBackground:    "#FFFF00",
			BannerColor:         "#FF0000",
			LegendBackground:    "#0000FF",
			LegendHighlight:     "#FF0000",
			BorderColor:         "#0000FF",
			ActivePane:          "#FF00FF",
			ModifiedColor:       "#FF0000",
			DisabledColor:       "#666666",
		},
		Editor: Editor{
			Charset:         charset.Default,
			TextThreshold:   truncate.DefaultTextThreshold,
			BinaryThreshold: truncate.DefaultBinaryThreshold,
			PreviewSize:     truncate.DefaultPreviewSize,
			SearchLimit:     search.DefaultLimit,
			UndoLimit:       history.DefaultLimit,
			Classifier:      "heuristic",
			LoadChunk:       textdoc.DefaultChunk,
		},
	}
}

func ConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "pktedit.toml"
	}
	return filepath.Join(home, ".config", "pktedit", "pktedit.toml")
}

// Load reads the config at ConfigPath. A missing file yields the defaults.
func Load() (*Config, error) {
	return LoadFrom(ConfigPath())
}

// LoadFrom reads the config at path over the defaults, then applies
// environment overrides and validates the result.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return cfg, fmt.Errorf("config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return cfg, err
	}

	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv applies environment overrides.
func (c *Config) ApplyEnv() {
	if v := strings.TrimSpace(os.Getenv(CharsetEnvVar)); v != "" {
		c.Editor.Charset = v
	}
}

func (c *Config) Validate() error {
	e := c.Editor
	switch {
	case e.TextThreshold <= 0, e.BinaryThreshold <= 0, e.PreviewSize <= 0:
		return fmt.Errorf("thresholds and preview size must be positive: %w", ErrInvalid)
	case e.BinaryThreshold >= e.TextThreshold:
		return fmt.Errorf("binary_threshold %d must be below text_threshold %d: %w",
			e.BinaryThreshold, e.TextThreshold, ErrInvalid)
	case e.SearchLimit <= 0, e.UndoLimit <= 0, e.LoadChunk <= 0:
		return fmt.Errorf("search_limit, undo_limit and load_chunk must be positive: %w", ErrInvalid)
	case e.Classifier != "heuristic" && e.Classifier != "enry":
		return fmt.Errorf("classifier %q: %w", e.Classifier, ErrInvalid)
	}
	if _, err := charset.Resolve(e.Charset, nil); err != nil {
		return fmt.Errorf("charset: %w", err)
	}
	return nil
}

// Thresholds returns the truncation thresholds of the editor section.
func (e Editor) Thresholds() truncate.Thresholds {
	return truncate.Thresholds{
		Text:    e.TextThreshold,
		Binary:  e.BinaryThreshold,
		Preview: e.PreviewSize,
	}
}

func (c *Config) Save() error {
	return c.SaveTo(ConfigPath())
}

func (c *Config) SaveTo(path string) error {
	dir := filepath.Dir(path)

	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(c)
}

type Styles struct {
	Background      lipgloss.Style
	Caret           lipgloss.Style
	Selection       lipgloss.Style
	Search          lipgloss.Style
	Banner          lipgloss.Style
	Legend          lipgloss.Style
	LegendHighlight lipgloss.Style
	Border          lipgloss.Style
	ActiveBorder    lipgloss.Style
	PaneTitle       lipgloss.Style
	Modified        lipgloss.Style
	Disabled        lipgloss.Style
	Normal          lipgloss.Style
	StatusLabel     lipgloss.Style
	StatusValue     lipgloss.Style
	HelpKey         lipgloss.Style
	HelpDesc        lipgloss.Style
}

func NewStyles(theme *Theme) *Styles {
	return &Styles{
		Background: lipgloss.NewStyle().
			Background(lipgloss.Color(theme.Background)),
		Caret: lipgloss.NewStyle().
			Background(lipgloss.Color(theme.CaretBackground)).
			Foreground(lipgloss.Color("#FFFFFF")),
		Selection: lipgloss.NewStyle().
			Background(lipgloss.Color(theme.SelectionBackground)).
			Foreground(lipgloss.Color("#000000")),
		Search: lipgloss.NewStyle().
			Background(lipgloss.Color(theme.SearchBackground)).
			Foreground(lipgloss.Color("#000000")),
		Banner: lipgloss.NewStyle().
			Foreground(lipgloss.Color(theme.BannerColor)).
			Bold(true),
		Legend: lipgloss.NewStyle().
			Background(lipgloss.Color(theme.LegendBackground)).
			Foreground(lipgloss.Color("#FFFFFF")),
		LegendHighlight: lipgloss.NewStyle().
			Background(lipgloss.Color(theme.LegendBackground)).
			Foreground(lipgloss.Color(theme.LegendHighlight)).
			Bold(true),
		Border: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color(theme.BorderColor)),
		ActiveBorder: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color(theme.ActivePane)),
		PaneTitle: lipgloss.NewStyle().
			Foreground(lipgloss.Color(theme.ActivePane)).
			Bold(true),
		Modified: lipgloss.NewStyle().
			Foreground(lipgloss.Color(theme.ModifiedColor)),
		Disabled: lipgloss.NewStyle().
			Foreground(lipgloss.Color(theme.DisabledColor)),
		Normal: lipgloss.NewStyle(),
		StatusLabel: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")),
		StatusValue: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")),
		HelpKey: lipgloss.NewStyle().
			Foreground(lipgloss.Color(theme.LegendHighlight)).
			Bold(true),
		HelpDesc: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#AAAAAA")),
	}
}
