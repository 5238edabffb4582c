package dualview

import (
	"errors"
	"fmt"
	"sync"

	"pktedit/internal/charset"
	"pktedit/internal/hexpane"
	"pktedit/internal/logging"
	"pktedit/internal/truncate"
)

// ErrStaleLoad is returned by Complete for a load superseded by a later
// Prepare.
var ErrStaleLoad = errors.New("load superseded")

// Prepared is a load in flight. Prepare creates it on the UI goroutine,
// Decode may run anywhere, and Complete applies it back on the UI goroutine.
type Prepared struct {
	generation uint64
	payload    []byte
	charset    string
	classifier truncate.Classifier
	thresholds truncate.Thresholds
	force      bool
	fresh      bool

	once     sync.Once
	codec    *charset.Codec
	decision truncate.Decision
	view     []byte
	text     string
	hex      string
	ascii    string
	lossless bool
	err      error
}

func (p *Prepared) Generation() uint64 {
	return p.generation
}

// Decode does the expensive part of a load: classification, decoding and
// pane rendering. It touches nothing outside p and runs at most once.
func (p *Prepared) Decode() error {
	p.once.Do(p.decode)
	return p.err
}

func (p *Prepared) decode() {
	codec, err := charset.Resolve(p.charset, p.payload)
	if err != nil {
		p.err = err
		return
	}
	p.codec = codec

	if p.force {
		p.decision = truncate.Full(p.payload)
	} else {
		p.decision = truncate.Decide(p.payload, p.classifier, p.thresholds)
	}
	p.view = p.payload[:p.decision.PreviewLength]

	text, err := codec.Decode(p.view)
	if err != nil {
		p.err = fmt.Errorf("load: %w", err)
		return
	}
	if !p.decision.ShowFull {
		text = truncate.Banner + text
	}
	p.text = text
	p.hex = hexpane.RenderHex(p.view)
	p.ascii = hexpane.RenderASCII(p.view)
	p.lossless = codec.Lossless(p.view)
}

// Prepare starts a load of payload and supersedes any load still in flight.
// Edits are refused until the load is completed.
func (c *Controller) Prepare(payload []byte) *Prepared {
	return c.prepare(payload, false, true)
}

func (c *Controller) prepare(payload []byte, force, fresh bool) *Prepared {
	c.generation++
	c.pending = true
	return &Prepared{
		generation: c.generation,
		payload:    append([]byte(nil), payload...),
		charset:    c.charsetName,
		classifier: c.opts.Classifier,
		thresholds: c.opts.Thresholds,
		force:      force,
		fresh:      fresh,
	}
}

// Complete applies a prepared load. A load from an earlier generation is
// discarded with ErrStaleLoad and leaves the controller untouched.
func (c *Controller) Complete(p *Prepared) error {
	if p.generation != c.generation {
		c.logger.Debug("stale load discarded",
			logging.FieldGeneration, p.generation,
			"current", c.generation)
		return ErrStaleLoad
	}
	if err := p.Decode(); err != nil {
		c.pending = false
		c.logger.Error("load failed", logging.FieldError, err)
		return err
	}

	c.pending = false
	c.codec = p.codec
	c.sync.SetCodec(p.codec)
	c.payload = p.payload
	c.decision = p.decision
	c.lossless = p.lossless
	c.buf.Reset(p.view)
	if p.fresh {
		c.original = append([]byte(nil), p.view...)
	}
	c.hist.Reset()

	c.sync.BeginLoad(c.doc, len([]rune(p.text)))
	c.doc.SetText(p.text)

	c.hexText = p.hex
	c.asciiText = p.ascii
	c.refreshSearch()

	c.logger.Debug("payload loaded",
		logging.FieldSize, len(p.payload),
		logging.FieldPreview, p.decision.PreviewLength,
		logging.FieldThreshold, p.decision.Threshold,
		logging.FieldBinary, p.decision.Binary,
		logging.FieldCharset, p.codec.Name(),
		logging.FieldState, c.sync.State())
	if !p.lossless {
		c.logger.Warn("payload does not round trip through charset; text edits may rewrite undecodable bytes",
			logging.FieldCharset, p.codec.Name())
	}
	return nil
}

// Load prepares and completes a load of payload in one step.
func (c *Controller) Load(payload []byte) error {
	return c.Complete(c.Prepare(payload))
}

// ShowAll reloads the complete payload of a truncated load with truncation
// disabled. It is a no-op when the full payload is already shown.
func (c *Controller) ShowAll() error {
	if !c.Truncated() {
		return nil
	}
	return c.Complete(c.prepare(c.payload, true, true))
}

// SetCharset switches the payload encoding and re-decodes the current bytes.
// Undo history is cleared; the Modified baseline is kept.
func (c *Controller) SetCharset(name string) error {
	if _, err := charset.Resolve(name, c.payload); err != nil {
		return err
	}
	c.charsetName = name
	if c.Truncated() {
		return c.Complete(c.prepare(c.payload, false, false))
	}
	return c.Complete(c.prepare(c.buf.Bytes(), true, false))
}
