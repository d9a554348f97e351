// Package detector classifies the dominant prompt format of a tool's
// documentation by running an ensemble of heuristic scorers over sampled
// chunk text and summing their votes. A text-classification fallback can
// be consulted when the heuristic confidence is low.
package detector

import (
	"context"
	"log/slog"
	"sort"

	"github.com/promptforge/promptforge/models"
)

// defaultConfidence is the fixed score reported when no scorer fires.
const defaultConfidence = 20

// maxConfidence saturates the additive score.
const maxConfidence = 100

// Classifier is the optional LLM fallback consulted below the confidence
// floor. Any error from it is non-fatal to detection.
type Classifier interface {
	Classify(ctx context.Context, toolID, sample string) (*models.FormatDetection, error)
}

// Options configure one Detector.
type Options struct {
	// ConfidenceFloor is the heuristic score below which the classifier
	// fallback (when present) is consulted.
	ConfidenceFloor int
	Classifier      Classifier
}

// Detector runs the scorer ensemble. Safe for concurrent use.
type Detector struct {
	opts    Options
	scorers []scorer
	logger  *slog.Logger
}

// New builds a Detector with the default scorer ensemble.
func New(opts Options, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{opts: opts, scorers: defaultScorers, logger: logger}
}

// DetectFormat classifies the dominant prompt format of documentText.
// Scores for the same format are summed across scorers and method lists
// unioned; the highest aggregate wins and the remaining formats with any
// score become ordered fallbacks. Zero signals yield a fixed low-confidence
// plaintext default.
func (d *Detector) DetectFormat(ctx context.Context, toolID, documentText string) *models.FormatDetection {
	scores := map[string]int{}
	methods := map[string]map[string]bool{}

	for _, sc := range d.scorers {
		for _, sig := range sc(documentText) {
			scores[sig.format] += sig.score
			if methods[sig.format] == nil {
				methods[sig.format] = map[string]bool{}
			}
			for _, m := range sig.methods {
				methods[sig.format][m] = true
			}
		}
	}

	if len(scores) == 0 {
		return &models.FormatDetection{
			PreferredFormat:  models.FormatPlaintext,
			ConfidenceScore:  defaultConfidence,
			DetectionMethods: []string{"default"},
		}
	}

	result := aggregate(scores, methods)

	if result.ConfidenceScore < d.opts.ConfidenceFloor && d.opts.Classifier != nil {
		if classified, err := d.opts.Classifier.Classify(ctx, toolID, sample(documentText)); err != nil {
			// Classifier failures never sink detection.
			d.logger.Warn("classifier fallback failed", "tool_id", toolID, "error", err)
		} else if classified != nil && classified.ConfidenceScore > result.ConfidenceScore {
			d.logger.Info("classifier fallback adopted",
				"tool_id", toolID,
				"heuristic", result.PreferredFormat,
				"classified", classified.PreferredFormat,
			)
			return classified
		}
	}

	return result
}

func aggregate(scores map[string]int, methods map[string]map[string]bool) *models.FormatDetection {
	// Rank formats by score; canonical format order breaks ties so the
	// result is deterministic.
	ranked := make([]string, 0, len(scores))
	for f := range scores {
		ranked = append(ranked, f)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if scores[ranked[i]] != scores[ranked[j]] {
			return scores[ranked[i]] > scores[ranked[j]]
		}
		return formatRank(ranked[i]) < formatRank(ranked[j])
	})

	winner := ranked[0]
	confidence := scores[winner]
	if confidence > maxConfidence {
		confidence = maxConfidence
	}

	var used []string
	for m := range methods[winner] {
		used = append(used, m)
	}
	sort.Strings(used)

	var fallbacks []models.FormatConfidence
	for _, f := range ranked[1:] {
		if scores[f] <= 0 {
			continue
		}
		score := scores[f]
		if score > maxConfidence {
			score = maxConfidence
		}
		fallbacks = append(fallbacks, models.FormatConfidence{Format: f, Confidence: score})
	}

	return &models.FormatDetection{
		PreferredFormat:  winner,
		ConfidenceScore:  confidence,
		DetectionMethods: used,
		FallbackFormats:  fallbacks,
	}
}

func formatRank(f string) int {
	for i, k := range models.KnownFormats {
		if f == k {
			return i
		}
	}
	return len(models.KnownFormats)
}

// sample bounds the text handed to the classifier fallback.
func sample(text string) string {
	const maxSample = 4000
	if len(text) <= maxSample {
		return text
	}
	return text[:maxSample]
}
