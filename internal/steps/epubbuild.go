package steps

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/journalforge/api/internal/artifact"
	"github.com/journalforge/api/internal/model"
)

// EPUBExecutor packages the journal as an EPUB for KDP upload. An EPUB is a
// zip container with a fixed layout: an uncompressed mimetype entry first,
// then META-INF/container.xml and the OPF package with XHTML chapters.
type EPUBExecutor struct {
	deps Deps
}

func (e *EPUBExecutor) ID() model.StepID { return model.StepEPUBBuilding }

func (e *EPUBExecutor) Run(ctx context.Context, prefs model.Preferences, store *artifact.Store, report ProgressFunc) (Result, error) {
	journal, err := loadJournal(store)
	if err != nil {
		return nil, err
	}

	report(20, "Packaging EPUB")

	data, err := buildEPUB(journal)
	if err != nil {
		return nil, fmt.Errorf("EPUB packaging failed: %w", err)
	}

	report(80, "Saving EPUB")

	path, err := store.WriteFile(artifact.CategoryDocuments,
		artifact.FileName(artifact.NameFinalJournal, journal.Title, journal.Theme, ".epub"), data)
	if err != nil {
		return nil, err
	}

	return Result{"journal_epub": path}, nil
}

func buildEPUB(doc *JournalDoc) ([]byte, error) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	// The mimetype entry must come first and must not be compressed.
	mt, err := w.CreateHeader(&zip.FileHeader{Name: "mimetype", Method: zip.Store})
	if err != nil {
		return nil, err
	}
	if _, err := mt.Write([]byte("application/epub+zip")); err != nil {
		return nil, err
	}

	files := map[string]string{
		"META-INF/container.xml": containerXML,
		"OEBPS/content.opf":      packageOPF(doc),
		"OEBPS/nav.xhtml":        navXHTML(doc),
		"OEBPS/front.xhtml": chapterXHTML(doc.Cover.Title,
			fmt.Sprintf("<h1>%s</h1><p><em>%s</em></p><h2>%s</h2><p>%s</p><h2>%s</h2><p>%s</p>",
				esc(doc.Cover.Title), esc(doc.Cover.Tagline),
				esc(doc.Intro.Heading), esc(doc.Intro.Body),
				esc(doc.Commitment.Heading), esc(doc.Commitment.Pledge))),
		"OEBPS/days.xhtml": chapterXHTML("Daily Entries", daysXHTML(doc)),
		"OEBPS/back.xhtml": chapterXHTML(doc.Certificate.Heading,
			fmt.Sprintf("<h1>%s</h1><p>%s</p>", esc(doc.Certificate.Heading), esc(doc.Certificate.Body))),
	}
	for name, content := range files {
		f, err := w.Create(name)
		if err != nil {
			return nil, err
		}
		if _, err := f.Write([]byte(content)); err != nil {
			return nil, err
		}
	}

	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

const containerXML = `<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>
`

func packageOPF(doc *JournalDoc) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0" unique-identifier="bookid">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:identifier id="bookid">urn:uuid:%s</dc:identifier>
    <dc:title>%s</dc:title>
    <dc:language>en</dc:language>
  </metadata>
  <manifest>
    <item id="nav" href="nav.xhtml" media-type="application/xhtml+xml" properties="nav"/>
    <item id="front" href="front.xhtml" media-type="application/xhtml+xml"/>
    <item id="days" href="days.xhtml" media-type="application/xhtml+xml"/>
    <item id="back" href="back.xhtml" media-type="application/xhtml+xml"/>
  </manifest>
  <spine>
    <itemref idref="front"/>
    <itemref idref="days"/>
    <itemref idref="back"/>
  </spine>
</package>
`, uuid.New().String(), esc(doc.Title))
}

func navXHTML(doc *JournalDoc) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml" xmlns:epub="http://www.idpf.org/2007/ops">
<head><title>%s</title></head>
<body>
  <nav epub:type="toc">
    <ol>
      <li><a href="front.xhtml">%s</a></li>
      <li><a href="days.xhtml">Daily Entries</a></li>
      <li><a href="back.xhtml">%s</a></li>
    </ol>
  </nav>
</body>
</html>
`, esc(doc.Title), esc(doc.Title), esc(doc.Certificate.Heading))
}

func daysXHTML(doc *JournalDoc) string {
	var b strings.Builder
	for _, day := range doc.Days {
		fmt.Fprintf(&b, "<h2>Day %d: %s</h2><p>%s</p><p><em>%s</em></p>",
			day.Day, esc(day.Title), esc(day.Prompt), esc(day.Affirmation))
	}
	return b.String()
}

func chapterXHTML(title, body string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml">
<head><title>%s</title></head>
<body>%s</body>
</html>
`, esc(title), body)
}

func esc(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
	return r.Replace(s)
}
