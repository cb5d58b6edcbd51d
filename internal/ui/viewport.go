package ui

// DefaultScrollMargin is how many lines are kept visible around the cursor.
const DefaultScrollMargin = 3

// Viewport is the visible window onto a document, in lines and display
// columns.
type Viewport struct {
	Top    int
	Left   int
	Width  int
	Height int
	Margin int
}

// Resize sets the text area size.
func (v *Viewport) Resize(width, height int) {
	v.Width = max(width, 1)
	v.Height = max(height, 1)
}

// margin limits the configured margin to a third of the height, so there
// is always room in the middle.
func (v *Viewport) margin() int {
	return min(max(v.Margin, 0), (v.Height-1)/3)
}

// Reveal scrolls the least amount that shows line and col with the
// margin around them. It reports whether the view moved.
func (v *Viewport) Reveal(line, col int) bool {
	top, left := v.Top, v.Left
	m := v.margin()

	switch {
	case line < v.Top+m:
		v.Top = max(line-m, 0)
	case line > v.Top+v.Height-1-m:
		v.Top = line - v.Height + 1 + m
	}

	hm := min(m, (v.Width-1)/3)
	switch {
	case col < v.Left+hm:
		v.Left = max(col-hm, 0)
	case col > v.Left+v.Width-1-hm:
		v.Left = col - v.Width + 1 + hm
	}
	return top != v.Top || left != v.Left
}

// Visible reports whether line is inside the view.
func (v *Viewport) Visible(line int) bool {
	return line >= v.Top && line < v.Top+v.Height
}

// Scroll moves the view n lines down, or up when n is negative. The top
// line stays within lineCount so the last line can always be shown with
// its margin. It reports whether the view moved.
func (v *Viewport) Scroll(n, lineCount int) bool {
	top := v.Top
	v.Top = min(max(v.Top+n, 0), max(lineCount-1-v.margin(), 0))
	return top != v.Top
}

// Fit returns the line nearest to line that Reveal shows without
// scrolling.
func (v *Viewport) Fit(line int) int {
	m := v.margin()
	lo := 0
	if v.Top > 0 {
		lo = v.Top + m
	}
	hi := max(v.Top+v.Height-1-m, lo)
	return min(max(line, lo), hi)
}
