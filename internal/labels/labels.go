package labels

import (
	"fmt"
	"io"
	"sort"

	"github.com/jung-kurt/gofpdf"
)

// labelSizes maps label size names to page dimensions in millimetres,
// mirroring the Brother die-cut and continuous label formats.
var labelSizes = map[string]gofpdf.SizeType{
	"62x100": {Wd: 100, Ht: 62},
	"62":     {Wd: 62, Ht: 62},
	"29x90":  {Wd: 90, Ht: 29},
	"17x54":  {Wd: 54, Ht: 17},
	"29":     {Wd: 29, Ht: 29},
	"38":     {Wd: 38, Ht: 38},
}

// DefaultSize is used when a request does not name a label size
const DefaultSize = "62x100"

// Label is one asset tag label to render
type Label struct {
	AssetName string
	AssetTag  string
	Location  string
}

// SupportedSizes lists the label size names accepted by Render
func SupportedSizes() []string {
	names := make([]string, 0, len(labelSizes))
	for name := range labelSizes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Render writes a fixed-layout PDF label document to w, one page per
// label and per copy.
func Render(w io.Writer, size string, copies int, items []Label) error {
	dims, ok := labelSizes[size]
	if !ok {
		return fmt.Errorf("unsupported label size %q", size)
	}
	if copies < 1 {
		copies = 1
	}

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "mm",
		Size:    dims,
	})
	pdf.SetMargins(3, 3, 3)
	pdf.SetAutoPageBreak(false, 0)

	for _, item := range items {
		for c := 0; c < copies; c++ {
			addLabelPage(pdf, dims, item)
		}
	}

	return pdf.Output(w)
}

func addLabelPage(pdf *gofpdf.Fpdf, dims gofpdf.SizeType, item Label) {
	pdf.AddPage()

	usable := dims.Wd - 6

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(usable, 7, item.AssetName, "", 1, "C", false, 0, "")

	pdf.SetFont("Courier", "B", 16)
	pdf.CellFormat(usable, 9, item.AssetTag, "", 1, "C", false, 0, "")

	if item.Location != "" {
		pdf.SetFont("Helvetica", "", 9)
		pdf.CellFormat(usable, 5, item.Location, "", 1, "C", false, 0, "")
	}
}
