package core

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

type escPosCommands struct {
	init        []byte
	alignLeft   []byte
	alignCenter []byte
	boldOn      []byte
	boldOff     []byte
	largeOn     []byte
	largeOff    []byte
	invertOn    []byte
	invertOff   []byte
	cut         []byte
	codePage    func(n byte) []byte
	feed        func(n byte) []byte
}

var vendorCommands = map[Vendor]escPosCommands{
	VendorEpson: {
		init:        []byte{0x1B, 0x40},
		alignLeft:   []byte{0x1B, 0x61, 0x00},
		alignCenter: []byte{0x1B, 0x61, 0x01},
		boldOn:      []byte{0x1B, 0x45, 0x01},
		boldOff:     []byte{0x1B, 0x45, 0x00},
		largeOn:     []byte{0x1D, 0x21, 0x11},
		largeOff:    []byte{0x1D, 0x21, 0x00},
		invertOn:    []byte{0x1D, 0x42, 0x01},
		invertOff:   []byte{0x1D, 0x42, 0x00},
		cut:         []byte{0x1D, 0x56, 0x00},
		codePage:    func(n byte) []byte { return []byte{0x1B, 0x74, n} },
		feed:        func(n byte) []byte { return []byte{0x1B, 0x64, n} },
	},
	// Star line mode.
	VendorStar: {
		init:        []byte{0x1B, 0x40},
		alignLeft:   []byte{0x1B, 0x1D, 0x61, 0x00},
		alignCenter: []byte{0x1B, 0x1D, 0x61, 0x01},
		boldOn:      []byte{0x1B, 0x45},
		boldOff:     []byte{0x1B, 0x46},
		largeOn:     []byte{0x1B, 0x69, 0x01, 0x01},
		largeOff:    []byte{0x1B, 0x69, 0x00, 0x00},
		invertOn:    []byte{0x1B, 0x34},
		invertOff:   []byte{0x1B, 0x35},
		cut:         []byte{0x1B, 0x64, 0x02},
		codePage:    func(n byte) []byte { return []byte{0x1B, 0x1D, 0x74, n} },
		feed:        func(n byte) []byte { return []byte{0x1B, 0x61, n} },
	},
}

type codePage struct {
	charmap *charmap.Charmap
	epson   byte
	star    byte
}

var codePages = map[CharacterSet]codePage{
	CharsetPC437: {charmap: charmap.CodePage437, epson: 0, star: 1},
	CharsetPC850: {charmap: charmap.CodePage850, epson: 2, star: 4},
	CharsetPC860: {charmap: charmap.CodePage860, epson: 3, star: 5},
}

func (c codePage) number(v Vendor) byte {
	if v == VendorStar {
		return c.star
	}
	return c.epson
}

const cutFeedLines = 4

type EscPosGenerator struct{}

func NewEscPosGenerator() *EscPosGenerator {
	return &EscPosGenerator{}
}

// Generate turns a receipt layout into the raw byte stream for a thermal
// printer of the configured vendor, code page and column width.
func (g *EscPosGenerator) Generate(layout *receiptLayout, cfg PrinterConfig) ([]byte, error) {
	cfg = withDefaults(cfg)

	cmds, ok := vendorCommands[cfg.Vendor]
	if !ok {
		return nil, newConfigError("vendor", fmt.Sprintf("unsupported vendor %q", cfg.Vendor))
	}
	page, ok := codePages[cfg.CharacterSet]
	if !ok {
		return nil, newConfigError("characterSet", fmt.Sprintf("unsupported character set %q", cfg.CharacterSet))
	}

	w := &escPosWriter{
		cmds:  cmds,
		enc:   encoding.ReplaceUnsupported(page.charmap.NewEncoder()),
		width: cfg.Width,
	}
	w.buf.Write(cmds.init)
	w.buf.Write(cmds.codePage(page.number(cfg.Vendor)))

	for _, line := range layout.lines {
		if err := g.generateLine(w, line); err != nil {
			return nil, err
		}
	}
	return w.buf.Bytes(), nil
}

func (g *EscPosGenerator) generateLine(w *escPosWriter, line receiptLine) error {
	switch line.kind {
	case lineText:
		return w.styled(line, func(cols int) error {
			for _, s := range wrapText(line.text, cols) {
				if err := w.println(s); err != nil {
					return err
				}
			}
			return nil
		})
	case lineRow:
		return w.styled(line, func(cols int) error {
			for _, s := range padRow(line.text, line.right, cols) {
				if err := w.println(s); err != nil {
					return err
				}
			}
			return nil
		})
	case lineRule:
		return w.println(strings.Repeat("-", w.width))
	case lineBlank:
		w.buf.WriteByte('\n')
	case lineCut:
		w.buf.Write(w.cmds.feed(cutFeedLines))
		w.buf.Write(w.cmds.cut)
	}
	return nil
}

type escPosWriter struct {
	buf   bytes.Buffer
	cmds  escPosCommands
	enc   *encoding.Encoder
	width int
}

func (w *escPosWriter) styled(line receiptLine, body func(cols int) error) error {
	cols := w.width
	if line.centered {
		w.buf.Write(w.cmds.alignCenter)
	}
	if line.bold {
		w.buf.Write(w.cmds.boldOn)
	}
	if line.large {
		w.buf.Write(w.cmds.largeOn)
		cols /= 2
	}
	if line.inverted {
		w.buf.Write(w.cmds.invertOn)
	}

	err := body(cols)

	if line.inverted {
		w.buf.Write(w.cmds.invertOff)
	}
	if line.large {
		w.buf.Write(w.cmds.largeOff)
	}
	if line.bold {
		w.buf.Write(w.cmds.boldOff)
	}
	if line.centered {
		w.buf.Write(w.cmds.alignLeft)
	}
	return err
}

func (w *escPosWriter) println(s string) error {
	encoded, err := w.enc.String(s)
	if err != nil {
		return newRenderError("text", fmt.Sprintf("cannot encode %q: %v", s, err))
	}
	w.buf.WriteString(encoded)
	w.buf.WriteByte('\n')
	return nil
}
