// Package hocr renders placed words as an hOCR sidecar document.
package hocr

import (
	"fmt"
	"html"
	"math"
	"strings"

	"github.com/lehigh-university-libraries/ocrpdf/pkg/overlay"
)

// FromPlans renders one ocr_page per plan with each placed word in its own
// line. Coordinates are output page points.
func FromPlans(plans []overlay.PagePlan) string {
	var pages []string
	for _, plan := range plans {
		pages = append(pages, renderPage(plan))
	}
	return WrapInHOCRDocument(strings.Join(pages, "\n"))
}

func renderPage(plan overlay.PagePlan) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<div class='ocr_page' id='page_%d' title='bbox 0 0 %d %d; ppageno %d'>\n",
		plan.Index+1, round(plan.Width), round(plan.Height), plan.Index)

	for i, inst := range plan.Instructions {
		bbox := bboxAttr(inst.Box)
		lineTitle := bbox
		if inst.Rotation != overlay.Rotate0 {
			lineTitle += fmt.Sprintf("; textangle %d", inst.Rotation)
		}
		fmt.Fprintf(&b, "<span class='ocr_line' id='line_%d_%d' title='%s'><span class='ocrx_word' id='word_%d_%d' title='%s; x_wconf %d; x_fsize %g'>%s</span></span>\n",
			plan.Index+1, i+1, lineTitle,
			plan.Index+1, i+1, bbox, round(inst.Confidence), inst.FontSize,
			html.EscapeString(inst.Text))
	}

	b.WriteString("</div>")
	return b.String()
}

func bboxAttr(box overlay.AbsoluteBox) string {
	return fmt.Sprintf("bbox %d %d %d %d", round(box.Left), round(box.Top), round(box.Right), round(box.Bottom))
}

func round(v float64) int {
	return int(math.Round(v))
}

// WrapInHOCRDocument wraps content in a complete hOCR HTML document
func WrapInHOCRDocument(content string) string {
	return fmt.Sprintf(`<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.0 Transitional//EN" "http://www.w3.org/TR/xhtml1/DTD/xhtml1-transitional.dtd">
<html xmlns="http://www.w3.org/1999/xhtml" xml:lang="en" lang="en">
<head>
<title></title>
<meta http-equiv="Content-Type" content="text/html;charset=utf-8" />
<meta name='ocr-system' content='ocrpdf' />
<meta name='ocr-capabilities' content='ocr_page ocr_line ocrx_word' />
</head>
<body>
%s
</body>
</html>`, content)
}
