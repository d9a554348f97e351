// Package manifest implements the manifest verb: run format detection over
// a tool's stored chunks and persist the resulting manifest.
package manifest

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/promptforge/promptforge/internal/common"
	"github.com/promptforge/promptforge/models"
	"github.com/promptforge/promptforge/pkg/classifier"
	"github.com/promptforge/promptforge/pkg/detector"
	"github.com/promptforge/promptforge/pkg/manifest"
)

// sampleLimit bounds how many chunks feed format detection. Documentation
// front matter is usually representative; there is no need to score the
// whole corpus.
const sampleLimit = 200

func BuildAction(c *cli.Context) error {
	logger := common.NewLogger(c.Bool("quiet"))

	cfg, err := common.LoadConfig(c)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(2)
	}

	database, err := common.OpenDatabase(cfg)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(2)
	}
	defer database.Close()

	tools, err := common.ResolveTools(cfg, splitIDs(c.String("tools")))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	det := detector.New(detector.Options{
		ConfidenceFloor: cfg.Detector.ConfidenceFloor,
		Classifier:      classifierFor(cfg, logger),
	}, logger)
	builder := manifest.New(manifest.Options{TemplatesForAllFormats: true}, logger)

	built := 0
	for _, tool := range tools {
		chunks, err := database.SampleChunks(c.Context, tool.ID, sampleLimit)
		if err != nil {
			logger.Error("failed to sample chunks", "tool_id", tool.ID, "error", err)
			os.Exit(2)
		}
		if len(chunks) == 0 {
			logger.Warn("no chunks stored, skipping tool", "tool_id", tool.ID)
			continue
		}

		var sample strings.Builder
		for _, ch := range chunks {
			sample.WriteString(ch.Text)
			sample.WriteString("\n\n")
		}
		detection := det.DetectFormat(c.Context, tool.ID, sample.String())

		version, err := database.DocVersion(c.Context, tool.ID)
		if err != nil {
			logger.Error("failed to read doc version", "tool_id", tool.ID, "error", err)
			os.Exit(2)
		}

		m := builder.Build(tool.ID, tool.Name, detection, chunks, version)
		if err := database.SaveManifest(c.Context, m); err != nil {
			logger.Error("failed to save manifest", "tool_id", tool.ID, "error", err)
			os.Exit(2)
		}
		built++

		logger.Info("manifest built",
			"tool_id", tool.ID,
			"preferred_format", m.PreferredFormat,
			"confidence", detection.ConfidenceScore,
			"methods", detection.DetectionMethods,
			"doc_version", m.DocVersion,
		)
	}

	fmt.Printf("Built %d manifest(s)\n", built)
	return nil
}

// ShowAction prints a stored manifest as YAML.
func ShowAction(c *cli.Context) error {
	logger := common.NewLogger(true)

	cfg, err := common.LoadConfig(c)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(2)
	}
	database, err := common.OpenDatabase(cfg)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(2)
	}
	defer database.Close()

	toolID := c.Args().First()
	if toolID == "" {
		ids, err := database.ListManifestIDs(c.Context)
		if err != nil {
			logger.Error("failed to list manifests", "error", err)
			os.Exit(2)
		}
		if len(ids) == 0 {
			fmt.Println("No manifests stored. Run: promptforge manifest build")
			return nil
		}
		for _, id := range ids {
			fmt.Println(id)
		}
		return nil
	}

	m, err := database.GetManifest(c.Context, toolID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	out, err := yaml.Marshal(m)
	if err != nil {
		logger.Error("failed to marshal manifest", "error", err)
		os.Exit(2)
	}
	fmt.Print(string(out))
	return nil
}

// classifierFor wires the LLM fallback only when enabled and a key is
// available; the detector treats a nil classifier as heuristics-only.
func classifierFor(cfg *models.Config, logger *slog.Logger) detector.Classifier {
	if !cfg.Detector.ClassifierFallback {
		return nil
	}
	if os.Getenv("ANTHROPIC_API_KEY") == "" {
		logger.Info("classifier fallback disabled, ANTHROPIC_API_KEY not set")
		return nil
	}
	return classifier.New(cfg.Detector.ClassifierModel, "")
}

func splitIDs(s string) []string {
	if s == "" {
		return nil
	}
	var ids []string
	for _, id := range strings.Split(s, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
