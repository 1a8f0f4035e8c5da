package share

import (
	"fmt"
	"image/color"

	"github.com/samber/lo"
)

type Layout string

const (
	Portrait  Layout = "portrait"
	Landscape Layout = "landscape"
)

// Scale is the pixel ratio composites are rasterized at.
const Scale = 2

const (
	Title            = "My Lad Style Image from Lad Maker!"
	Text             = "Check out my Lad transformation! #lad-maker"
	Hashtag          = "#lad-maker"
	Website          = "www.lad-maker.com"
	OriginalCaption  = "Original"
	GeneratedCaption = "Lad Style"
)

func Layouts() []Layout {
	return []Layout{Portrait, Landscape}
}

func ParseLayout(s string) (Layout, error) {
	l := Layout(s)
	if !lo.Contains(Layouts(), l) {
		return "", fmt.Errorf("unknown layout %q", s)
	}
	return l, nil
}

// Filename is the name a composite is shared or downloaded under.
func (l Layout) Filename() string {
	return "lad-maker-transformation-" + string(l) + ".png"
}

var (
	textBlack    = color.RGBA{0x00, 0x00, 0x00, 0xff}
	textCaption  = color.RGBA{0x1f, 0x29, 0x37, 0xff}
	textFooter   = color.RGBA{0x4b, 0x55, 0x63, 0xff}
	borderMuted  = color.RGBA{0xd1, 0xd5, 0xdb, 0xff}
	borderStrong = color.RGBA{0x00, 0x00, 0x00, 0xff}
)

// metrics are in logical pixels, before Scale.
type metrics struct {
	width      int
	columns    int
	padding    int
	gap        int
	captionGap int
	border     int
	headerMag  int
	captionMag int
	footerMag  int
}

var layoutMetrics = map[Layout]metrics{
	Portrait: {
		width:      400,
		columns:    1,
		padding:    24,
		gap:        24,
		captionGap: 12,
		border:     4,
		headerMag:  3,
		captionMag: 2,
		footerMag:  1,
	},
	Landscape: {
		width:      800,
		columns:    2,
		padding:    32,
		gap:        32,
		captionGap: 16,
		border:     4,
		headerMag:  3,
		captionMag: 2,
		footerMag:  2,
	},
}

func (m metrics) columnWidth() int {
	return (m.width - 2*m.padding - (m.columns-1)*m.gap) / m.columns
}
