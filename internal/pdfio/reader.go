// Package pdfio reads the text layer of DATEV Lohnjournal PDFs and exposes
// each journal page as positioned fragments. Decryption and layout
// extraction failures are document-fatal: the error propagates unchanged
// and nothing is retried (a wrong password will not succeed on retry).
package pdfio

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dslipak/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/mkessler/lohnjournal-tracker/constants"
	"github.com/mkessler/lohnjournal-tracker/internal/common"
	"github.com/mkessler/lohnjournal-tracker/internal/entity"
	"github.com/mkessler/lohnjournal-tracker/internal/extract"
)

// defaultWordGap is the horizontal distance (points) below which two text
// runs on the same line merge into one fragment. Column gaps on the LOA313
// form are an order of magnitude wider.
const defaultWordGap = 3.0

// defaultLineGap is the vertical distance below which two text runs share a
// line during word merging. Tighter than row clustering on purpose: merging
// must never bridge rows.
const defaultLineGap = 1.0

// a4Height is the fallback page height when no MediaBox is resolvable.
const a4Height = 842.0

// Reader extracts journal pages from PDF files.
type Reader struct {
	logger  *slog.Logger
	wordGap float64
}

func NewReader(logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reader{logger: logger, wordGap: defaultWordGap}
}

// ReadDocument opens a (possibly encrypted) PDF and returns its Lohnjournal
// pages in document order. Pages missing the journal form markers (cover
// sheets, recap pages) are skipped. Page numbers refer to the source
// document, so gaps are possible.
func (r *Reader) ReadDocument(path, password string) ([]extract.Page, error) {
	readPath := path
	if password != "" {
		decrypted, cleanup, err := decryptToTemp(path, password)
		if err != nil {
			return nil, common.NewAppError("PDF_DECRYPT", fmt.Sprintf("decrypt %s", filepath.Base(path)), err)
		}
		defer cleanup()
		readPath = decrypted
	}

	doc, err := pdf.Open(readPath)
	if err != nil {
		return nil, common.NewAppError("PDF_OPEN", fmt.Sprintf("open %s", filepath.Base(path)), err)
	}

	var pages []extract.Page
	for num := 1; num <= doc.NumPage(); num++ {
		p := doc.Page(num)
		if p.V.IsNull() {
			continue
		}

		fragments := r.pageFragments(p)
		headerText := joinText(fragments)
		if !strings.Contains(headerText, constants.MarkerJournal) ||
			!strings.Contains(headerText, constants.MarkerFormNr) {
			r.logger.Debug("skipping non-journal page", "file", filepath.Base(path), "page", num)
			continue
		}

		pages = append(pages, extract.Page{
			Number:     num,
			HeaderText: headerText,
			Fragments:  fragments,
		})
	}

	r.logger.Info("document read", "file", filepath.Base(path), "journal_pages", len(pages))
	return pages, nil
}

// pageFragments converts a page's text runs into word-level fragments with
// top-based y coordinates (matching the layout tables).
func (r *Reader) pageFragments(p pdf.Page) []entity.Fragment {
	content := p.Content()
	if len(content.Text) == 0 {
		return nil
	}
	height := mediaBoxHeight(p.V)

	runs := make([]pdf.Text, len(content.Text))
	copy(runs, content.Text)
	// PDF y grows upward; sort top of page first, then left to right.
	sort.SliceStable(runs, func(i, j int) bool {
		if runs[i].Y != runs[j].Y {
			return runs[i].Y > runs[j].Y
		}
		return runs[i].X < runs[j].X
	})

	var fragments []entity.Fragment
	cur := entity.Fragment{}
	curY := 0.0
	flush := func() {
		if cur.Text != "" {
			fragments = append(fragments, cur)
			cur = entity.Fragment{}
		}
	}

	for _, t := range runs {
		if t.S == "" {
			continue
		}
		sameLine := cur.Text != "" && abs(t.Y-curY) <= defaultLineGap
		adjacent := sameLine && t.X-cur.X1 <= r.wordGap && t.X >= cur.X0
		if adjacent {
			cur.Text += t.S
			cur.X1 = t.X + t.W
			continue
		}
		flush()
		cur = entity.Fragment{
			Text: t.S,
			X0:   t.X,
			X1:   t.X + t.W,
			Y0:   height - t.Y,
		}
		curY = t.Y
	}
	flush()
	return fragments
}

// decryptToTemp writes a decrypted copy next to the temp dir and returns
// its path plus a cleanup func.
func decryptToTemp(path, password string) (string, func(), error) {
	tmp, err := os.CreateTemp("", "lohnjournal-*.pdf")
	if err != nil {
		return "", nil, err
	}
	tmpPath := tmp.Name()
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return "", nil, err
	}

	conf := model.NewDefaultConfiguration()
	conf.UserPW = password
	conf.OwnerPW = password
	if err := api.DecryptFile(path, tmpPath, conf); err != nil {
		_ = os.Remove(tmpPath)
		return "", nil, err
	}
	return tmpPath, func() { _ = os.Remove(tmpPath) }, nil
}

// mediaBoxHeight resolves the page height, walking up the page tree for
// inherited MediaBox entries.
func mediaBoxHeight(v pdf.Value) float64 {
	for !v.IsNull() {
		if box := v.Key("MediaBox"); !box.IsNull() && box.Len() == 4 {
			return box.Index(3).Float64() - box.Index(1).Float64()
		}
		v = v.Key("Parent")
	}
	return a4Height
}

func joinText(fragments []entity.Fragment) string {
	parts := make([]string, 0, len(fragments))
	for _, f := range fragments {
		parts = append(parts, f.Text)
	}
	return strings.Join(parts, " ")
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
