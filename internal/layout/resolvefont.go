package layout

import "github.com/rbf22/compose/internal/boxes"

// resolveFont maps a base family name plus decoration flags to a concrete
// font name using a Helvetica/Times/Courier bold/italic suffix table.
func resolveFont(base string, deco boxes.Decoration) string {
	bold := deco.Has(boxes.DecorationBold)
	italic := deco.Has(boxes.DecorationItalic)

	switch base {
	case "Helvetica", "Arial":
		switch {
		case bold && italic:
			return "Helvetica-BoldOblique"
		case bold:
			return "Helvetica-Bold"
		case italic:
			return "Helvetica-Oblique"
		default:
			return "Helvetica"
		}
	case "Times", "Times New Roman", "Times-Roman":
		switch {
		case bold && italic:
			return "Times-BoldItalic"
		case bold:
			return "Times-Bold"
		case italic:
			return "Times-Italic"
		default:
			return "Times-Roman"
		}
	case "Courier":
		switch {
		case bold && italic:
			return "Courier-BoldOblique"
		case bold:
			return "Courier-Bold"
		case italic:
			return "Courier-Oblique"
		default:
			return "Courier"
		}
	default:
		return base
	}
}
