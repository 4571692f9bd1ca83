package steps

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/journalforge/api/internal/artifact"
	"github.com/journalforge/api/internal/model"
)

// PDFExecutor renders the journal and lead magnet into print-ready PDFs.
// Content is composed as markdown and rendered through the goldmark AST.
type PDFExecutor struct {
	deps Deps
}

func (e *PDFExecutor) ID() model.StepID { return model.StepPDFBuilding }

func (e *PDFExecutor) Run(ctx context.Context, prefs model.Preferences, store *artifact.Store, report ProgressFunc) (Result, error) {
	journal, err := loadJournal(store)
	if err != nil {
		return nil, err
	}

	out := Result{}

	report(10, "Rendering journal PDF")
	journalPDF, err := markdownToPDF(journalMarkdown(journal), journal.Title)
	if err != nil {
		return nil, fmt.Errorf("journal PDF render failed: %w", err)
	}
	path, err := store.WriteFile(artifact.CategoryDocuments,
		artifact.FileName(artifact.NameFinalJournal, journal.Title, journal.Theme, ".pdf"), journalPDF)
	if err != nil {
		return nil, err
	}
	out["journal_pdf"] = path

	report(60, "Rendering lead magnet PDF")
	if magnet, err := loadLeadMagnet(store); err == nil {
		magnetPDF, err := markdownToPDF(leadMagnetMarkdown(magnet), magnet.Title)
		if err != nil {
			return nil, fmt.Errorf("lead magnet PDF render failed: %w", err)
		}
		path, err := store.WriteFile(artifact.CategoryDocuments,
			artifact.FileName(artifact.NameFinalLeadMagnet, journal.Title, journal.Theme, ".pdf"), magnetPDF)
		if err != nil {
			return nil, err
		}
		out["lead_magnet_pdf"] = path
	}

	return out, nil
}

// loadJournal prefers the edited journal and falls back to the curation
// draft, so shapes without an editing step still build documents.
func loadJournal(store *artifact.Store) (*JournalDoc, error) {
	var doc JournalDoc
	if err := store.ReadJSON(artifact.CategoryStructured, artifact.NameFinalJournal, &doc); err == nil {
		return &doc, nil
	}
	if err := store.ReadJSON(artifact.CategoryStructured, artifact.NameJournal, &doc); err != nil {
		return nil, fmt.Errorf("no journal artifact to build from: %w", err)
	}
	return &doc, nil
}

func loadLeadMagnet(store *artifact.Store) (*LeadMagnetDoc, error) {
	var doc LeadMagnetDoc
	if err := store.ReadJSON(artifact.CategoryStructured, artifact.NameFinalLeadMagnet, &doc); err == nil {
		return &doc, nil
	}
	if err := store.ReadJSON(artifact.CategoryStructured, artifact.NameLeadMagnet, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func journalMarkdown(doc *JournalDoc) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", doc.Cover.Title)
	if doc.Cover.Tagline != "" {
		fmt.Fprintf(&b, "*%s*\n\n", doc.Cover.Tagline)
	}
	fmt.Fprintf(&b, "## %s\n\n%s\n\n", doc.Intro.Heading, doc.Intro.Body)
	fmt.Fprintf(&b, "## %s\n\n%s\n\n", doc.Commitment.Heading, doc.Commitment.Pledge)
	for _, day := range doc.Days {
		fmt.Fprintf(&b, "## Day %d: %s\n\n", day.Day, day.Title)
		fmt.Fprintf(&b, "%s\n\n", day.Prompt)
		if day.Affirmation != "" {
			fmt.Fprintf(&b, "*%s*\n\n", day.Affirmation)
		}
	}
	fmt.Fprintf(&b, "## %s\n\n%s\n", doc.Certificate.Heading, doc.Certificate.Body)
	return b.String()
}

func leadMagnetMarkdown(doc *LeadMagnetDoc) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n%s\n\n", doc.Title, doc.Hook)
	for _, s := range doc.Sections {
		fmt.Fprintf(&b, "## %s\n\n%s\n\n", s.Heading, s.Body)
	}
	fmt.Fprintf(&b, "%s\n", doc.CallToAction)
	return b.String()
}

// markdownToPDF walks the goldmark AST and writes headings, paragraphs and
// list items into an A4 document.
func markdownToPDF(markdown, title string) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title, true)
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "", 11)

	source := []byte(markdown)
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			size := 18.0 - float64(node.Level)*2
			if size < 11 {
				size = 11
			}
			pdf.SetFont("Helvetica", "B", size)
			pdf.MultiCell(0, size/2+3, nodeText(node, source), "", "L", false)
			pdf.Ln(2)
			pdf.SetFont("Helvetica", "", 11)
			return ast.WalkSkipChildren, nil
		case *ast.Paragraph:
			pdf.MultiCell(0, 6, nodeText(node, source), "", "L", false)
			pdf.Ln(3)
			return ast.WalkSkipChildren, nil
		case *ast.ListItem:
			pdf.MultiCell(0, 6, "- "+nodeText(node, source), "", "L", false)
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// nodeText collects the plain text under a node.
func nodeText(n ast.Node, source []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(child ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if t, ok := child.(*ast.Text); ok {
			b.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				b.WriteByte(' ')
			}
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}
