package layout

import (
	"strings"

	"github.com/rbf22/compose/internal/boxes"
	"github.com/rbf22/compose/internal/docast"
	"github.com/rbf22/compose/internal/measure"
	"github.com/rbf22/compose/internal/observability"
)

// paraBuilder accumulates a boxes.ParagraphItem stream while walking inline
// content, inserting standard stretch/shrink glue between words (spec §4.4:
// "spaces → glues with standard stretch/shrink 1/3 and 1/6 of natural
// width").
type paraBuilder struct {
	items      []boxes.ParagraphItem
	hasContent bool
}

func (pb *paraBuilder) addGlue(g *Generator, font string, size float64) {
	spaceW := measure.CachedMeasureText(g.cache, g.metrics, font, size, " ", 0)
	if spaceW <= 0 {
		spaceW = size * 0.25
	}
	pb.items = append(pb.items, boxes.ParagraphItem{
		Kind:  boxes.ItemGlue,
		Glue:  boxes.Glue{Width: spaceW, Stretch: spaceW / 3, Shrink: spaceW / 6},
		Width: spaceW,
	})
}

func (pb *paraBuilder) addWord(g *Generator, word, font string, size float64, color boxes.Color, deco boxes.Decoration) {
	if pb.hasContent {
		pb.addGlue(g, font, size)
	}
	resolved := resolveFont(font, deco)
	w := measure.CachedMeasureText(g.cache, g.metrics, resolved, size, word, int(deco))
	info := g.metrics.FontMetrics(resolved, size)
	run := boxes.TextRun{Text: word, Font: resolved, Size: size, Color: color, Decoration: deco}
	box := boxes.NewTextBox(run, w, info.Ascent, info.Descent)
	pb.items = append(pb.items, boxes.ParagraphItem{Kind: boxes.ItemBox, Box: box, Width: w})
	pb.hasContent = true
}

func (pb *paraBuilder) addBox(b boxes.Box) {
	pb.items = append(pb.items, boxes.ParagraphItem{Kind: boxes.ItemBox, Box: b, Width: b.Width})
	pb.hasContent = true
}

func (pb *paraBuilder) addForcedBreak() {
	pb.items = append(pb.items, boxes.ParagraphItem{
		Kind:    boxes.ItemPenalty,
		Penalty: boxes.Penalty{Cost: boxes.ForceBreak},
		Width:   0,
	})
	pb.hasContent = false
}

// flattenInline recursively walks inline nodes into the paragraph stream,
// carrying the current font/size/color/decoration context (spec §4.4
// "Paragraph") and threading it down into nested emphasis/strong/link
// spans so each produces styled boxes with glue between them.
func (g *Generator) flattenInline(inlines []docast.Inline, pb *paraBuilder, font string, size float64, color boxes.Color, deco boxes.Decoration) error {
	for _, in := range inlines {
		switch in.Kind {
		case docast.InlineText:
			for _, w := range strings.Fields(in.Text) {
				pb.addWord(g, w, font, size, color, deco)
			}
		case docast.InlineEmphasis:
			if err := g.flattenInline(in.Children, pb, font, size, color, deco|boxes.DecorationItalic); err != nil {
				return err
			}
		case docast.InlineStrong:
			if err := g.flattenInline(in.Children, pb, font, size, color, deco|boxes.DecorationBold); err != nil {
				return err
			}
		case docast.InlineStrikethrough:
			if err := g.flattenInline(in.Children, pb, font, size, color, deco|boxes.DecorationStrike); err != nil {
				return err
			}
		case docast.InlineCode:
			codeDeco := deco | boxes.DecorationCode
			for _, w := range strings.Fields(in.Text) {
				pb.addWord(g, w, g.cfg.MonospaceFont, size, color, codeDeco)
			}
		case docast.InlineLink:
			if err := g.flattenInline(in.Children, pb, font, size, color, deco|boxes.DecorationUnderline); err != nil {
				return err
			}
		case docast.InlineMath:
			b, err := g.math.RenderMath(in.TeXSource, size, in.Display)
			if err != nil {
				return err
			}
			if pb.hasContent {
				pb.addGlue(g, font, size)
			}
			pb.addBox(b)
		case docast.InlineImage:
			w, h, err := g.images.ImageSize(in.Src)
			if err != nil {
				g.logger.Warn("layout: image size lookup failed, using placeholder", observability.Error("err", err), observability.String("src", in.Src))
				w, h = size*4, size*2
			}
			b := boxes.Box{Kind: boxes.KindImage, Width: w, Height: h, Ascent: h, Descent: 0, ImageHandle: in.Src}
			if pb.hasContent {
				pb.addGlue(g, font, size)
			}
			pb.addBox(b)
		case docast.InlineHardBreak:
			pb.addForcedBreak()
		case docast.InlineSoftBreak:
			if pb.hasContent {
				pb.addGlue(g, font, size)
			}
		}
	}
	return nil
}

// plainText gathers the text content of inline nodes for contexts that
// don't need styling (table column-width measurement).
func plainText(inlines []docast.Inline) string {
	var sb strings.Builder
	var walk func([]docast.Inline)
	walk = func(in []docast.Inline) {
		for _, n := range in {
			switch n.Kind {
			case docast.InlineText, docast.InlineCode:
				sb.WriteString(n.Text)
				sb.WriteString(" ")
			case docast.InlineHardBreak, docast.InlineSoftBreak:
				sb.WriteString(" ")
			default:
				walk(n.Children)
			}
		}
	}
	walk(inlines)
	return strings.TrimSpace(sb.String())
}
