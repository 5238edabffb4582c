// Package truncate decides whether a payload is shown in full or as a
// bounded preview.
package truncate

import (
	"github.com/go-enry/go-enry/v2"
)

// Defaults for Thresholds.
const (
	DefaultTextThreshold   = 300000
	DefaultBinaryThreshold = 10000
	DefaultPreviewSize     = 2000
)

// Banner is prepended to the text view of a truncated payload.
const Banner = "********************\n" +
	"  This data is too long.\n" +
	"  If you want to show all message, please click this panel\n" +
	"********************\n" +
	"\n\n\n\n\n"

// Thresholds are byte counts. A payload longer than the threshold for its
// class is previewed.
type Thresholds struct {
	Text    int
	Binary  int
	Preview int
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		Text:    DefaultTextThreshold,
		Binary:  DefaultBinaryThreshold,
		Preview: DefaultPreviewSize,
	}
}

// Classifier reports whether a payload should be treated as binary.
type Classifier func(payload []byte) bool

type Decision struct {
	ShowFull      bool
	PreviewLength int
	Threshold     int
	Binary        bool
}

// Decide applies the thresholds to payload. A nil classifier treats every
// payload as text.
func Decide(payload []byte, classify Classifier, th Thresholds) Decision {
	binary := classify != nil && classify(payload)
	threshold := th.Text
	if binary {
		threshold = th.Binary
	}

	d := Decision{
		ShowFull:      true,
		PreviewLength: len(payload),
		Threshold:     threshold,
		Binary:        binary,
	}
	if len(payload) > threshold {
		d.ShowFull = false
		d.PreviewLength = min(th.Preview, len(payload))
	}
	return d
}

// Full is the decision used once the user asks to see the whole payload.
func Full(payload []byte) Decision {
	return Decision{ShowFull: true, PreviewLength: len(payload)}
}

// HeuristicSample is how many leading bytes HeuristicClassifier inspects.
// It matches the binary threshold, so every byte of a payload that could be
// shown in full is looked at.
const HeuristicSample = DefaultBinaryThreshold

// controlLimit is the number of control bytes tolerated in the sample.
const controlLimit = 30

// HeuristicClassifier treats a payload as binary when its first
// HeuristicSample bytes hold more than 30 control bytes. TAB, LF and CR do
// not count.
func HeuristicClassifier(payload []byte) bool {
	sample := payload
	if len(sample) > HeuristicSample {
		sample = sample[:HeuristicSample]
	}
	count := 0
	for _, b := range sample {
		if b == '\t' || b == '\n' || b == '\r' {
			continue
		}
		if b < 0x20 || b == 0x7f {
			count++
			if count > controlLimit {
				return true
			}
		}
	}
	return false
}

// EnryClassifier uses go-enry's binary detection.
func EnryClassifier(payload []byte) bool {
	return enry.IsBinary(payload)
}

// ClassifierByName returns the classifier for a config value. Unknown names
// fall back to the heuristic.
func ClassifierByName(name string) Classifier {
	if name == "enry" {
		return EnryClassifier
	}
	return HeuristicClassifier
}
