package parser

import (
	"strings"
	"testing"

	"github.com/dgallion1/docgraph/internal/doctree"
)

func TestHTMLParser_Blocks(t *testing.T) {
	input := `<html><head><title>Guide</title><style>p{}</style></head>
<body>
  <nav>skip me</nav>
  <h1>Title</h1>
  <div>
    <p>
      <strong>Scope:</strong>
    </p>
    <pre><code class="language-go">fmt.Println()
</code></pre>
  </div>
  <ul><li>one</li><li>two</li></ul>
</body></html>`

	doc, err := (&HTMLParser{}).Parse(strings.NewReader(input), "guide.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Title != "Guide" {
		t.Errorf("expected title %q, got %q", "Guide", doc.Title)
	}

	blocks := doc.Root.Children
	want := []string{"heading", "paragraph", "code", "list"}
	if got := kinds(blocks); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("expected blocks %v, got %v", want, got)
	}

	scope := blocks[1]
	if len(scope.Children) != 1 || scope.Children[0].Kind != doctree.KindStrong {
		t.Fatalf("expected whitespace around <strong> dropped, got %v", kinds(scope.Children))
	}
	if scope.Text() != "Scope:" {
		t.Errorf("expected %q, got %q", "Scope:", scope.Text())
	}

	code := blocks[2]
	if code.Lang != "go" || code.Value != "fmt.Println()" {
		t.Errorf("unexpected code block lang=%q value=%q", code.Lang, code.Value)
	}

	if n := len(blocks[3].Children); n != 2 {
		t.Errorf("expected 2 list items, got %d", n)
	}
}

func TestHTMLParser_LineBreaksCountLines(t *testing.T) {
	doc, err := (&HTMLParser{}).Parse(strings.NewReader("<p>Usage:<br>run it</p>"), "br.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	para := doc.Root.Children[0]
	if para.Lines != 2 {
		t.Errorf("expected 2 lines, got %d", para.Lines)
	}
}

func TestHTMLParser_TitleFallback(t *testing.T) {
	doc, err := (&HTMLParser{}).Parse(strings.NewReader("<p>hi</p>"), "page.htm")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Title != "page" {
		t.Errorf("expected title %q, got %q", "page", doc.Title)
	}
}
