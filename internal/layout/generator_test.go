package layout

import (
	"strings"
	"testing"

	"github.com/rbf22/compose/internal/docast"
	"github.com/rbf22/compose/internal/measure"
	"github.com/rbf22/compose/internal/metrics"
)

func newTestGenerator() *Generator {
	provider := metrics.NewProvider(nil)
	cache := measure.New(0)
	return New(DefaultConfig(), provider, cache, nil, nil, nil)
}

func textInline(s string) []docast.Inline {
	return []docast.Inline{{Kind: docast.InlineText, Text: s}}
}

func TestGenerate_SingleParagraphFitsOnOnePage(t *testing.T) {
	g := newTestGenerator()
	doc := docast.Document{Blocks: []docast.Block{
		{Kind: docast.BlockHeading, Level: 1, Inline: textInline("Title")},
		{Kind: docast.BlockParagraph, Inline: textInline("A short paragraph of body text.")},
	}}

	state, err := g.Generate(doc)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if len(state.Pages) != 1 {
		t.Fatalf("expected 1 page, got %d", len(state.Pages))
	}
	if len(state.Pages[0].Blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(state.Pages[0].Blocks))
	}
	heading := state.Pages[0].Blocks[0]
	if !heading.KeepWithNext {
		t.Errorf("expected heading to carry KeepWithNext")
	}
	if heading.Y <= state.Pages[0].Blocks[1].Y {
		t.Errorf("expected heading to sit above the paragraph (larger Y in bottom-left-origin coordinates)")
	}
}

func TestGenerate_LongDocumentPaginates(t *testing.T) {
	g := newTestGenerator()
	var blocks []docast.Block
	for i := 0; i < 80; i++ {
		blocks = append(blocks, docast.Block{
			Kind:   docast.BlockParagraph,
			Inline: textInline(strings.Repeat("word ", 40)),
		})
	}
	doc := docast.Document{Blocks: blocks}

	state, err := g.Generate(doc)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if len(state.Pages) < 2 {
		t.Fatalf("expected pagination across multiple pages, got %d", len(state.Pages))
	}
	for _, page := range state.Pages {
		for _, b := range page.Blocks {
			if b.Bottom() < g.cfg.Margins.Bottom-1e-6 {
				t.Errorf("block %s overflows page bottom: bottom=%f", b.ID, b.Bottom())
			}
		}
	}
}

func TestGenerate_List(t *testing.T) {
	g := newTestGenerator()
	doc := docast.Document{Blocks: []docast.Block{
		{
			Kind:    docast.BlockList,
			Ordered: true,
			Start:   1,
			Items: []docast.Block{
				{Kind: docast.BlockListItem, Blocks: []docast.Block{{Kind: docast.BlockParagraph, Inline: textInline("first item")}}},
				{Kind: docast.BlockListItem, Blocks: []docast.Block{{Kind: docast.BlockParagraph, Inline: textInline("second item")}}},
			},
		},
	}}

	state, err := g.Generate(doc)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	list := state.Pages[0].Blocks[0]
	if len(list.Children) != 2 {
		t.Fatalf("expected 2 list items, got %d", len(list.Children))
	}
	if len(list.Children[0].Boxes) != 1 || list.Children[0].Boxes[0].Run.Text != "1." {
		t.Errorf("expected first item marker '1.', got %+v", list.Children[0].Boxes)
	}
}

func TestGenerate_Table(t *testing.T) {
	g := newTestGenerator()
	doc := docast.Document{Blocks: []docast.Block{
		{
			Kind: docast.BlockTable,
			Rows: [][]docast.TableCell{
				{{Inline: textInline("Name"), Header: true}, {Inline: textInline("Age"), Header: true}},
				{{Inline: textInline("Alice")}, {Inline: textInline("30")}},
			},
		},
	}}

	state, err := g.Generate(doc)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	table := state.Pages[0].Blocks[0]
	if len(table.Cells) != 2 || len(table.Cells[0]) != 2 {
		t.Fatalf("expected a 2x2 cell grid, got %d rows", len(table.Cells))
	}
}

// TestGenerate_MarginCollapsing checks spec §8's margin-collapsing law:
// placing two blocks with spacing_after=a and spacing_before=b consumes
// max(a, b) between them, never a+b.
func TestGenerate_MarginCollapsing(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ParagraphSpacingAfter = 6
	cfg.HeadingSpacingBefore = 18
	provider := metrics.NewProvider(nil)
	cache := measure.New(0)
	g := New(cfg, provider, cache, nil, nil, nil)

	doc := docast.Document{Blocks: []docast.Block{
		{Kind: docast.BlockParagraph, Inline: textInline("first paragraph")},
		{Kind: docast.BlockHeading, Level: 2, Inline: textInline("a heading")},
	}}

	state, err := g.Generate(doc)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	blocks := state.Pages[0].Blocks
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(blocks))
	}
	para, heading := blocks[0], blocks[1]
	gap := para.Bottom() - heading.Y
	want := cfg.HeadingSpacingBefore // max(6, 18)
	if diff := gap - want; diff > 1e-6 || diff < -1e-6 {
		t.Errorf("expected collapsed gap %.6f (max of %.1f and %.1f), got %.6f",
			want, cfg.ParagraphSpacingAfter, cfg.HeadingSpacingBefore, gap)
	}
}
