package parser

import (
	"io"

	"github.com/dgallion1/docgraph/internal/doctree"
)

// TextParser handles plain text files. Blank lines separate paragraphs.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	data, err := io.ReadAll(io.LimitReader(r, 64<<20))
	if err != nil {
		return nil, err
	}

	doc := doctree.New(filename, nil)
	doc.Title = titleFromFilename(filename)
	doc.Root.Children = splitParagraphs(string(data), 1)
	return doc, nil
}
