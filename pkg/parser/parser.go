// Package parser converts raw HTML, Markdown, or plaintext bytes into a
// normalized (title, text, section, metadata) record with boilerplate
// stripped. It never fails on malformed markup: every entry point degrades
// to best-effort extraction.
package parser

import (
	"bufio"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"github.com/pemistahl/lingua-go"

	"github.com/promptforge/promptforge/models"
)

// UntitledFallback is returned when no title can be extracted.
const UntitledFallback = "Untitled"

// contentSelectors are tried in order to locate the main-content root
// before falling back to readability extraction over the whole document.
var contentSelectors = []string{
	"main",
	"article",
	"[role=main]",
	".documentation",
	".docs-content",
	".markdown-body",
	".theme-doc-markdown",
	"#content",
	".content",
}

// boilerplateSelector matches subtrees that never carry documentation prose.
const boilerplateSelector = "script,style,nav,header,footer,iframe,noscript"

// Parser converts fetched pages into ParsedDocuments. A single instance is
// safe for concurrent use.
type Parser struct {
	languages lingua.LanguageDetector
}

// New builds a Parser with a language detector over the documentation
// languages we care to distinguish.
func New() *Parser {
	detector := lingua.NewLanguageDetectorBuilder().
		FromLanguages(
			lingua.English, lingua.Spanish, lingua.French, lingua.German,
			lingua.Portuguese, lingua.Japanese, lingua.Chinese, lingua.Korean,
			lingua.Russian,
		).
		Build()
	return &Parser{languages: detector}
}

// ParseHTML extracts the main content of an HTML page. srcURL may be empty.
func (p *Parser) ParseHTML(html, srcURL string) *models.ParsedDocument {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		// Unparseable bytes: degrade to treating the payload as text.
		return p.ParseText(html, srcURL)
	}

	doc.Find(boilerplateSelector).Remove()

	title := extractTitle(doc)
	section := extractSection(doc)

	root := findContentRoot(doc, html, srcURL)
	text := renderProse(root)
	text = collapseBlankLines(text)

	return &models.ParsedDocument{
		Title:   title,
		Text:    text,
		Section: section,
		Metadata: models.DocumentMetadata{
			SourceURL:   srcURL,
			ContentType: "text/html",
			Language:    p.detectLanguage(text),
			WordCount:   len(strings.Fields(text)),
		},
	}
}

// ParseMarkdown extracts title and section from markdown heading lines and
// keeps the body as-is (blank-line runs collapsed).
func (p *Parser) ParseMarkdown(md, srcURL string) *models.ParsedDocument {
	title := UntitledFallback
	section := ""
	sawTitle := false

	scanner := bufio.NewScanner(strings.NewReader(md))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !sawTitle && strings.HasPrefix(line, "# ") {
			title = strings.TrimSpace(strings.TrimPrefix(line, "# "))
			sawTitle = true
			continue
		}
		if sawTitle && section == "" && strings.HasPrefix(line, "## ") {
			section = strings.TrimSpace(strings.TrimPrefix(line, "## "))
			break
		}
	}

	text := collapseBlankLines(md)
	return &models.ParsedDocument{
		Title:   title,
		Text:    text,
		Section: section,
		Metadata: models.DocumentMetadata{
			SourceURL:   srcURL,
			ContentType: "text/markdown",
			Language:    p.detectLanguage(text),
			WordCount:   len(strings.Fields(text)),
		},
	}
}

// ParseText wraps raw plaintext in a ParsedDocument. Markdown-style
// headings still count for title/section extraction so .txt mirrors of
// docs behave sensibly.
func (p *Parser) ParseText(text, srcURL string) *models.ParsedDocument {
	doc := p.ParseMarkdown(text, srcURL)
	doc.Metadata.ContentType = "text/plain"
	return doc
}

func (p *Parser) detectLanguage(text string) string {
	sample := text
	if len(sample) > 1000 {
		sample = sample[:1000]
	}
	sample = strings.TrimSpace(sample)
	if sample == "" {
		return ""
	}
	if lang, ok := p.languages.DetectLanguageOf(sample); ok {
		return lang.String()
	}
	return ""
}

// extractTitle resolves the page title: og:title, then the first h1, then
// <title>, then the fixed fallback.
func extractTitle(doc *goquery.Document) string {
	if og, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok {
		if t := normalizeInline(og); t != "" {
			return t
		}
	}
	if t := normalizeInline(doc.Find("h1").First().Text()); t != "" {
		return t
	}
	if t := normalizeInline(doc.Find("title").First().Text()); t != "" {
		return t
	}
	return UntitledFallback
}

// extractSection resolves the section label: breadcrumb-like elements
// first, then the first h2.
func extractSection(doc *goquery.Document) string {
	for _, sel := range []string{".breadcrumb li", ".breadcrumbs li", `[aria-label="breadcrumb"] li`, `[itemtype*="BreadcrumbList"] [itemprop="name"]`} {
		items := doc.Find(sel)
		if items.Length() > 0 {
			if s := normalizeInline(items.Last().Text()); s != "" {
				return s
			}
		}
	}
	return normalizeInline(doc.Find("h2").First().Text())
}

// findContentRoot tries the ordered selector list, then readability over
// the full document, then <body>.
func findContentRoot(doc *goquery.Document, html, srcURL string) *goquery.Selection {
	for _, sel := range contentSelectors {
		if s := doc.Find(sel).First(); s.Length() > 0 {
			return s
		}
	}

	// No recognizable container: let readability distill the page, then
	// re-parse its clean fragment.
	var pageURL *url.URL
	if srcURL != "" {
		pageURL, _ = url.Parse(srcURL)
	}
	rp := readability.NewParser()
	article, err := rp.Parse(strings.NewReader(html), pageURL)
	if err == nil && strings.TrimSpace(article.Content) != "" {
		clean, cerr := goquery.NewDocumentFromReader(strings.NewReader(article.Content))
		if cerr == nil {
			clean.Find(boilerplateSelector).Remove()
			return clean.Selection
		}
	}

	return doc.Find("body")
}

// proseSelector matches the block elements renderProse emits.
const proseSelector = "h1,h2,h3,h4,h5,h6,p,li,pre,blockquote,table"

// nestedContainers are matched elements whose Text() already includes
// their descendants. Matched nodes inside one are skipped so their text
// is emitted exactly once; <pre> stays exempt because containers exclude
// it via textWithoutCode and the fence must still be written.
const nestedContainers = "p,li,blockquote,table"

// renderProse flattens a content subtree into markdown-flavored plain
// text: headings keep their level markers, list items become bullets, and
// code blocks are preserved as fenced blocks.
func renderProse(root *goquery.Selection) string {
	var b strings.Builder

	root.Find(proseSelector).Each(func(i int, s *goquery.Selection) {
		tag := goquery.NodeName(s)
		if tag != "pre" && s.ParentsFiltered(nestedContainers).Length() > 0 {
			return
		}
		switch tag {
		case "pre":
			writeCodeBlock(&b, s)
		case "table":
			writeTable(&b, s)
		case "li":
			if text := normalizeInline(textWithoutCode(s)); text != "" {
				fmt.Fprintf(&b, "- %s\n", text)
			}
		case "blockquote":
			if text := normalizeInline(textWithoutCode(s)); text != "" {
				fmt.Fprintf(&b, "> %s\n\n", text)
			}
		case "p":
			if text := normalizeInline(textWithoutCode(s)); text != "" {
				b.WriteString(text)
				b.WriteString("\n\n")
			}
		default: // headings
			level := int(tag[1] - '0')
			if text := normalizeInline(s.Text()); text != "" {
				fmt.Fprintf(&b, "%s %s\n\n", strings.Repeat("#", level), text)
			}
		}
	})

	return b.String()
}

// textWithoutCode returns the selection's text with nested <pre> subtrees
// excluded, so fenced blocks are not duplicated inline.
func textWithoutCode(s *goquery.Selection) string {
	if s.Find("pre").Length() == 0 {
		return s.Text()
	}
	clone := s.Clone()
	clone.Find("pre").Remove()
	return clone.Text()
}

func writeCodeBlock(b *strings.Builder, s *goquery.Selection) {
	codeSel := s.Find("code")
	code := s.Text()
	lang := ""
	if codeSel.Length() > 0 {
		code = codeSel.Text()
		if class, ok := codeSel.Attr("class"); ok {
			for _, c := range strings.Fields(class) {
				if strings.HasPrefix(c, "language-") {
					lang = strings.TrimPrefix(c, "language-")
					break
				}
			}
		}
	}
	code = strings.Trim(code, "\n")
	if strings.TrimSpace(code) == "" {
		return
	}
	fmt.Fprintf(b, "```%s\n%s\n```\n\n", lang, code)
}

func writeTable(b *strings.Builder, s *goquery.Selection) {
	s.Find("tr").Each(func(i int, tr *goquery.Selection) {
		var cells []string
		tr.Find("th,td").Each(func(j int, cell *goquery.Selection) {
			cells = append(cells, normalizeInline(cell.Text()))
		})
		if len(cells) > 0 {
			b.WriteString(strings.Join(cells, " | "))
			b.WriteString("\n")
		}
	})
	b.WriteString("\n")
}

// normalizeInline collapses internal whitespace runs to single spaces.
func normalizeInline(input string) string {
	return strings.Join(strings.Fields(input), " ")
}

var blankRuns = regexp.MustCompile(`\n{3,}`)

// collapseBlankLines limits blank-line runs to a single blank line.
func collapseBlankLines(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = blankRuns.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
