// Package chunker splits normalized document text into token-bounded,
// overlapping chunks aligned to markdown heading boundaries. Tokenization
// uses a tiktoken encoding with a deterministic character-ratio fallback
// when the encoding is unavailable.
package chunker

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"github.com/promptforge/promptforge/models"
)

// CharsPerToken is the fixed approximation used by the fallback tokenizer
// and by EstimateTokenCount.
const CharsPerToken = 4

// DefaultEncoding is the tiktoken encoding used for chunk sizing.
const DefaultEncoding = "cl100k_base"

// Options bound the sliding token window.
type Options struct {
	MinTokens     int
	MaxTokens     int
	OverlapTokens int
}

// DefaultOptions returns the chunk sizing tuned for embedding models.
func DefaultOptions() Options {
	return Options{MinTokens: 100, MaxTokens: 500, OverlapTokens: 50}
}

// Chunker owns the tokenizer encoder for one service instance. Construct
// one per service; there is no process-wide encoder state.
type Chunker struct {
	enc *tiktoken.Tiktoken
}

// New builds a Chunker. If the tiktoken encoding cannot be loaded the
// chunker still works, using the character-ratio fallback for every call.
func New() *Chunker {
	enc, err := tiktoken.GetEncoding(DefaultEncoding)
	if err != nil {
		return &Chunker{}
	}
	return &Chunker{enc: enc}
}

// UsingFallback reports whether the character-ratio tokenizer is in use.
func (c *Chunker) UsingFallback() bool { return c.enc == nil }

// EstimateTokenCount approximates the token count of text using the fixed
// character ratio, independent of the encoder.
func EstimateTokenCount(text string) int {
	runes := len([]rune(text))
	return (runes + CharsPerToken - 1) / CharsPerToken
}

// ChunkDocument splits one document into chunks. Invariants: every chunk
// except possibly the last of a section has a token count in
// [MinTokens, MaxTokens]; chunk indices are contiguous from zero; every
// chunk's TotalChunks equals the emitted count. An empty document yields
// zero chunks. MinTokens >= MaxTokens is a configuration error reported
// before any work.
func (c *Chunker) ChunkDocument(input models.ChunkInput, opts Options) ([]models.Chunk, error) {
	if opts.MinTokens >= opts.MaxTokens {
		return nil, fmt.Errorf("chunker: minTokens (%d) must be less than maxTokens (%d)", opts.MinTokens, opts.MaxTokens)
	}
	if opts.OverlapTokens < 0 || opts.OverlapTokens >= opts.MaxTokens {
		return nil, fmt.Errorf("chunker: overlapTokens (%d) must be in [0, maxTokens)", opts.OverlapTokens)
	}

	text := strings.TrimSpace(input.Text)
	if text == "" {
		return nil, nil
	}

	version := input.Version
	if version == "" {
		version = "latest"
	}

	var chunks []models.Chunk
	for _, sec := range splitSections(text, input.Section) {
		stream := c.tokenize(sec.content)
		chunks = c.appendSectionChunks(chunks, stream, sec.label, input, version, opts)
	}

	for i := range chunks {
		chunks[i].ChunkIndex = i
		chunks[i].TotalChunks = len(chunks)
	}
	return chunks, nil
}

// appendSectionChunks slides the token window across one section's stream.
// An undersized final window is merged backward into the previous chunk of
// the same section rather than emitted standalone.
func (c *Chunker) appendSectionChunks(chunks []models.Chunk, stream tokenStream, section string, input models.ChunkInput, version string, opts Options) []models.Chunk {
	n := stream.Len()
	if n == 0 {
		return chunks
	}

	step := opts.MaxTokens - opts.OverlapTokens
	firstOfSection := len(chunks)

	for start := 0; start < n; start += step {
		end := start + opts.MaxTokens
		if end > n {
			end = n
		}
		count := end - start

		if count < opts.MinTokens && len(chunks) > firstOfSection {
			// Undersized tail: fold into the previous chunk. The previous
			// window ended at start+overlap, so only the genuinely new
			// tokens are appended.
			prev := &chunks[len(chunks)-1]
			if newStart := start + opts.OverlapTokens; newStart < end {
				prev.Text = prev.Text + stream.Slice(newStart, end)
				prev.TokenCount += end - newStart
			}
			break
		}

		chunks = append(chunks, models.Chunk{
			IDEID:      input.IDEID,
			Text:       stream.Slice(start, end),
			SourceURL:  input.SourceURL,
			Section:    section,
			Version:    version,
			TokenCount: count,
		})

		if end == n {
			break
		}
	}
	return chunks
}

func (c *Chunker) tokenize(text string) tokenStream {
	if c.enc == nil {
		return newCharStream(text)
	}
	return &encodedStream{ids: c.enc.Encode(text, nil, nil), enc: c.enc}
}

// section is one heading-delimited span of the document.
type section struct {
	label   string
	content string
}

// splitSections cuts the text at markdown heading lines, carrying forward
// the most recent heading as the section label. Text before the first
// heading keeps the caller-supplied label.
func splitSections(text, initialLabel string) []section {
	lines := strings.Split(text, "\n")

	var sections []section
	current := section{label: initialLabel}
	var body []string

	flush := func() {
		content := strings.TrimSpace(strings.Join(body, "\n"))
		if content != "" {
			current.content = content
			sections = append(sections, current)
		}
		body = body[:0]
	}

	inFence := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			inFence = !inFence
		}
		if !inFence && isHeading(trimmed) {
			flush()
			current = section{label: headingText(trimmed)}
			body = append(body, line)
			continue
		}
		body = append(body, line)
	}
	flush()

	if len(sections) == 0 {
		return []section{{label: initialLabel, content: text}}
	}
	return sections
}

func isHeading(line string) bool {
	if !strings.HasPrefix(line, "#") {
		return false
	}
	i := 0
	for i < len(line) && line[i] == '#' {
		i++
	}
	return i <= 6 && i < len(line) && line[i] == ' '
}

func headingText(line string) string {
	return strings.TrimSpace(strings.TrimLeft(line, "#"))
}

// tokenStream is a decoded-window view over a tokenized text, shared by
// the tiktoken and character-ratio paths.
type tokenStream interface {
	Len() int
	Slice(start, end int) string
}

type encodedStream struct {
	ids []int
	enc *tiktoken.Tiktoken
}

func (s *encodedStream) Len() int { return len(s.ids) }

func (s *encodedStream) Slice(start, end int) string {
	return s.enc.Decode(s.ids[start:end])
}

// charStream groups runes into fixed-size pseudo-tokens.
type charStream struct {
	groups []string
}

func newCharStream(text string) *charStream {
	runes := []rune(text)
	groups := make([]string, 0, (len(runes)+CharsPerToken-1)/CharsPerToken)
	for i := 0; i < len(runes); i += CharsPerToken {
		end := i + CharsPerToken
		if end > len(runes) {
			end = len(runes)
		}
		groups = append(groups, string(runes[i:end]))
	}
	return &charStream{groups: groups}
}

func (s *charStream) Len() int { return len(s.groups) }

func (s *charStream) Slice(start, end int) string {
	return strings.Join(s.groups[start:end], "")
}
