package detector

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/promptforge/promptforge/models"
)

func TestDetectFormat_EmptyInputDefault(t *testing.T) {
	d := New(Options{}, nil)
	got := d.DetectFormat(context.Background(), "cursor", "")

	if got.PreferredFormat != models.FormatPlaintext {
		t.Errorf("PreferredFormat = %q, want plaintext", got.PreferredFormat)
	}
	if got.ConfidenceScore != 20 {
		t.Errorf("ConfidenceScore = %d, want 20", got.ConfidenceScore)
	}
	if len(got.DetectionMethods) != 1 || got.DetectionMethods[0] != "default" {
		t.Errorf("DetectionMethods = %v, want [default]", got.DetectionMethods)
	}
}

func TestDetectFormat_JSONCodeFence(t *testing.T) {
	d := New(Options{}, nil)
	text := "```json\n{\"system\": \"x\"}\n```\n"
	got := d.DetectFormat(context.Background(), "cursor", text)

	if got.PreferredFormat != models.FormatJSON {
		t.Errorf("PreferredFormat = %q, want json", got.PreferredFormat)
	}
	found := false
	for _, m := range got.DetectionMethods {
		if m == "json-code-fence" {
			found = true
		}
	}
	if !found {
		t.Errorf("DetectionMethods = %v, want json-code-fence present", got.DetectionMethods)
	}
}

func TestDetectFormat_CLIDocument(t *testing.T) {
	d := New(Options{}, nil)
	text := strings.Join([]string{
		"USAGE",
		"$ tool init --name myproject",
		"$ tool build --watch --verbose",
		"Use --output to pick a directory.",
	}, "\n")
	got := d.DetectFormat(context.Background(), "tool", text)

	if got.PreferredFormat != models.FormatCLI {
		t.Errorf("PreferredFormat = %q, want cli (methods %v)", got.PreferredFormat, got.DetectionMethods)
	}
}

func TestDetectFormat_MarkdownDocument(t *testing.T) {
	d := New(Options{}, nil)
	text := strings.Join([]string{
		"# Title",
		"## Section",
		"- bullet one",
		"- bullet two",
		"1. step",
		"See [the guide](https://example.com) and **note** this.",
	}, "\n")
	got := d.DetectFormat(context.Background(), "tool", text)

	if got.PreferredFormat != models.FormatMarkdown {
		t.Errorf("PreferredFormat = %q, want markdown", got.PreferredFormat)
	}
}

func TestDetectFormat_ScoresSummedAcrossScorers(t *testing.T) {
	d := New(Options{}, nil)
	// JSON fence + schema keywords + .json extension mention should all
	// contribute to one aggregate.
	text := "Save settings.json with:\n```json\n{\"type\": \"object\", \"properties\": {}, \"required\": []}\n```\n"
	got := d.DetectFormat(context.Background(), "tool", text)

	if got.PreferredFormat != models.FormatJSON {
		t.Fatalf("PreferredFormat = %q, want json", got.PreferredFormat)
	}
	if len(got.DetectionMethods) < 2 {
		t.Errorf("DetectionMethods = %v, want methods from several scorers", got.DetectionMethods)
	}
}

func TestDetectFormat_ConfidenceSaturates(t *testing.T) {
	d := New(Options{}, nil)
	var b strings.Builder
	for i := 0; i < 40; i++ {
		b.WriteString("```json\n{\"type\": \"object\", \"properties\": {}, \"required\": []}\n```\nsettings.json json format\n")
	}
	got := d.DetectFormat(context.Background(), "tool", b.String())
	if got.ConfidenceScore > 100 {
		t.Errorf("ConfidenceScore = %d, want <= 100", got.ConfidenceScore)
	}
}

func TestDetectFormat_FallbacksOrdered(t *testing.T) {
	d := New(Options{}, nil)
	text := "# Heading\n- bullet\n```json\n{}\n```\n```json\n{}\n```\n"
	got := d.DetectFormat(context.Background(), "tool", text)

	if len(got.FallbackFormats) == 0 {
		t.Fatal("FallbackFormats empty, want the losing format listed")
	}
	prev := 101
	for _, fb := range got.FallbackFormats {
		if fb.Confidence > prev {
			t.Errorf("fallbacks not ordered by confidence: %v", got.FallbackFormats)
		}
		prev = fb.Confidence
		if fb.Format == got.PreferredFormat {
			t.Errorf("preferred format %q repeated in fallbacks", fb.Format)
		}
	}
}

type stubClassifier struct {
	result *models.FormatDetection
	err    error
	called bool
}

func (s *stubClassifier) Classify(ctx context.Context, toolID, sample string) (*models.FormatDetection, error) {
	s.called = true
	return s.result, s.err
}

func TestDetectFormat_ClassifierAdoptedOnHigherConfidence(t *testing.T) {
	cls := &stubClassifier{result: &models.FormatDetection{
		PreferredFormat:  models.FormatXML,
		ConfidenceScore:  90,
		DetectionMethods: []string{"llm-classifier"},
	}}
	d := New(Options{ConfidenceFloor: 50, Classifier: cls}, nil)

	// Weak signal: one keyword phrase only.
	got := d.DetectFormat(context.Background(), "tool", "write output as plain text please")
	if !cls.called {
		t.Fatal("classifier not consulted below confidence floor")
	}
	if got.PreferredFormat != models.FormatXML {
		t.Errorf("PreferredFormat = %q, want classifier's xml", got.PreferredFormat)
	}
}

func TestDetectFormat_ClassifierIgnoredOnLowerConfidence(t *testing.T) {
	cls := &stubClassifier{result: &models.FormatDetection{
		PreferredFormat: models.FormatXML,
		ConfidenceScore: 1,
	}}
	d := New(Options{ConfidenceFloor: 50, Classifier: cls}, nil)

	got := d.DetectFormat(context.Background(), "tool", "write output as plain text please")
	if got.PreferredFormat != models.FormatPlaintext {
		t.Errorf("PreferredFormat = %q, want heuristic plaintext kept", got.PreferredFormat)
	}
}

func TestDetectFormat_ClassifierErrorSwallowed(t *testing.T) {
	cls := &stubClassifier{err: errors.New("api down")}
	d := New(Options{ConfidenceFloor: 50, Classifier: cls}, nil)

	got := d.DetectFormat(context.Background(), "tool", "write output as plain text please")
	if got.PreferredFormat != models.FormatPlaintext {
		t.Errorf("PreferredFormat = %q, want heuristic result despite classifier error", got.PreferredFormat)
	}
}

func TestDetectFormat_ClassifierNotCalledAboveFloor(t *testing.T) {
	cls := &stubClassifier{result: &models.FormatDetection{PreferredFormat: models.FormatXML, ConfidenceScore: 99}}
	d := New(Options{ConfidenceFloor: 10, Classifier: cls}, nil)

	text := "```json\n{}\n```\n```json\n{}\n```\n```json\n{}\n```\n"
	d.DetectFormat(context.Background(), "tool", text)
	if cls.called {
		t.Error("classifier consulted despite confidence above floor")
	}
}
