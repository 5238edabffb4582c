package dualview

import (
	"github.com/charmbracelet/log"

	"pktedit/internal/charset"
	"pktedit/internal/history"
	"pktedit/internal/logging"
	"pktedit/internal/search"
	"pktedit/internal/textdoc"
	"pktedit/internal/truncate"
)

// Options configures a Controller. Use the With functions.
type Options struct {
	// Charset names the payload encoding, or charset.Auto to guess it per load.
	Charset string

	// Thresholds decide when a payload is only previewed.
	Thresholds truncate.Thresholds

	// Classifier tells binary payloads from text ones.
	Classifier truncate.Classifier

	// SearchLimit is the largest hex pane, in characters, that is searched.
	SearchLimit int

	UndoLimit int

	// LoadChunk is how many runes the text surface receives per insert
	// while a payload is placed into it.
	LoadChunk int

	Logger *log.Logger
}

type Option func(*Options)

func defaultOptions() Options {
	return Options{
		Charset:     charset.Default,
		Thresholds:  truncate.DefaultThresholds(),
		Classifier:  truncate.HeuristicClassifier,
		SearchLimit: search.DefaultLimit,
		UndoLimit:   history.DefaultLimit,
		LoadChunk:   textdoc.DefaultChunk,
	}
}

func WithCharset(name string) Option {
	return func(o *Options) {
		o.Charset = name
	}
}

func WithThresholds(th truncate.Thresholds) Option {
	return func(o *Options) {
		o.Thresholds = th
	}
}

func WithClassifier(c truncate.Classifier) Option {
	return func(o *Options) {
		o.Classifier = c
	}
}

func WithSearchLimit(limit int) Option {
	return func(o *Options) {
		o.SearchLimit = limit
	}
}

func WithUndoLimit(limit int) Option {
	return func(o *Options) {
		o.UndoLimit = limit
	}
}

func WithLoadChunk(n int) Option {
	return func(o *Options) {
		o.LoadChunk = n
	}
}

// WithLogger sets the logger used by the controller and its parts. If not
// set, logging.Default() is used.
func WithLogger(logger *log.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

func (o *Options) normalize() {
	if o.Charset == "" {
		o.Charset = charset.Default
	}
	if o.Logger == nil {
		o.Logger = logging.Default()
	}
	def := truncate.DefaultThresholds()
	if o.Thresholds.Text <= 0 {
		o.Thresholds.Text = def.Text
	}
	if o.Thresholds.Binary <= 0 {
		o.Thresholds.Binary = def.Binary
	}
	if o.Thresholds.Preview <= 0 {
		o.Thresholds.Preview = def.Preview
	}
}
