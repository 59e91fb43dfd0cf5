package generation

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

const (
	posterWidth  = 1200
	posterHeight = 1600

	titleSize  = 72
	bodySize   = 48
	authorSize = 36

	bodyLineHeight = 80
	bodyMaxRunes   = 15
)

var (
	colBorder     = color.RGBA{0x8B, 0x45, 0x13, 0xFF}
	colInner      = color.RGBA{0xD2, 0x69, 0x1E, 0xFF}
	colTitleBox   = color.RGBA{0xF5, 0xF5, 0xDC, 0xFF}
	colText       = color.RGBA{0x2F, 0x4F, 0x4F, 0xFF}
	colAuthor     = color.RGBA{0x69, 0x69, 0x69, 0xFF}
	colLineBox    = color.RGBA{0xFA, 0xFA, 0xF0, 0xFF}
	colLineEdge   = color.RGBA{0xF0, 0xE6, 0x8C, 0xFF}
	colTagBox     = color.RGBA{0xF0, 0xF8, 0xFF, 0xFF}
	colTagEdge    = color.RGBA{0x87, 0xCE, 0xEB, 0xFF}
	colTagText    = color.RGBA{0x46, 0x82, 0xB4, 0xFF}
	colFooterBox  = color.RGBA{0xFF, 0xF8, 0xDC, 0xFF}
	colFooterEdge = color.RGBA{0xDA, 0xA5, 0x20, 0xFF}
)

// Poster lays a piece out on a fixed canvas. It is the generator of last resort.
type Poster struct {
	font     *opentype.Font
	fontName string
}

// NewPoster loads the first usable font from paths and falls back to the
// embedded Go Regular face, so it never fails.
func NewPoster(paths []string, log *zap.Logger) *Poster {
	if log == nil {
		log = zap.NewNop()
	}
	for _, p := range paths {
		f, err := loadFont(p)
		if err != nil {
			log.Debug("poster font skipped", zap.String("path", p), zap.Error(err))
			continue
		}
		log.Info("poster font loaded", zap.String("path", p))
		return &Poster{font: f, fontName: p}
	}

	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		// goregular is compiled in; a parse failure is a broken build.
		panic(fmt.Sprintf("parse embedded font: %v", err))
	}
	log.Warn("no configured font available, using embedded Go Regular (no CJK glyphs)")
	return &Poster{font: f, fontName: "goregular"}
}

func loadFont(path string) (*opentype.Font, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(filepath.Ext(path), ".ttc") {
		c, err := opentype.ParseCollection(data)
		if err != nil {
			return nil, err
		}
		return c.Font(0)
	}
	return opentype.Parse(data)
}

func (p *Poster) FontName() string { return p.fontName }

func (p *Poster) face(size float64) (font.Face, error) {
	return opentype.NewFace(p.font, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingFull})
}

// Render returns a PNG of the piece.
func (p *Poster) Render(req Request) ([]byte, error) {
	titleFace, err := p.face(titleSize)
	if err != nil {
		return nil, fmt.Errorf("title face: %w", err)
	}
	defer titleFace.Close()
	bodyFace, err := p.face(bodySize)
	if err != nil {
		return nil, fmt.Errorf("body face: %w", err)
	}
	defer bodyFace.Close()
	smallFace, err := p.face(authorSize)
	if err != nil {
		return nil, fmt.Errorf("author face: %w", err)
	}
	defer smallFace.Close()

	img := image.NewRGBA(image.Rect(0, 0, posterWidth, posterHeight))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	strokeRect(img, image.Rect(40, 40, posterWidth-40, posterHeight-40), 4, colBorder)
	strokeRect(img, image.Rect(80, 80, posterWidth-80, posterHeight-80), 2, colInner)

	// Title on its tinted box.
	titleY := 120
	titleW, titleH := measure(titleFace, req.Title)
	titleX := (posterWidth - titleW) / 2
	box := image.Rect(titleX-20, titleY-20, titleX+titleW+20, titleY+titleH+20)
	fillRect(img, box, colTitleBox)
	strokeRect(img, box, 2, colBorder)
	drawText(img, titleFace, req.Title, titleX, titleY, colText)

	// Separator with five dots.
	lineY := titleY + titleH + 60
	fillRect(img, image.Rect(150, lineY-1, posterWidth-150, lineY+2), colBorder)
	for i := 0; i < 5; i++ {
		x := 200 + i*160
		fillRect(img, image.Rect(x-3, lineY-3, x+3, lineY+3), colInner)
	}

	bodyY := lineY + 80
	if req.Author != "" {
		text := "作者：" + req.Author
		w, _ := measure(smallFace, text)
		authorY := lineY + 40
		drawText(img, smallFace, text, (posterWidth-w)/2, authorY, colAuthor)
		bodyY = authorY + 80
	}

	for _, line := range WrapLines(req.Body, bodyMaxRunes) {
		if bodyY > posterHeight-200 {
			break
		}
		w, h := measure(bodyFace, line)
		x := (posterWidth - w) / 2
		lb := image.Rect(x-10, bodyY-10, x+w+10, bodyY+h+10)
		fillRect(img, lb, colLineBox)
		strokeRect(img, lb, 1, colLineEdge)
		drawText(img, bodyFace, line, x, bodyY, colText)
		bodyY += bodyLineHeight
	}

	if len(req.Tags) > 0 {
		text := "标签：" + strings.Join(req.Tags, "，")
		w, h := measure(smallFace, text)
		x, y := (posterWidth-w)/2, posterHeight-120
		tb := image.Rect(x-15, y-15, x+w+15, y+h+15)
		fillRect(img, tb, colTagBox)
		strokeRect(img, tb, 2, colTagEdge)
		drawText(img, smallFace, text, x, y, colTagText)
	}

	footer := "诗篇"
	w, h := measure(smallFace, footer)
	x, y := (posterWidth-w)/2, posterHeight-60
	fb := image.Rect(x-10, y-10, x+w+10, y+h+10)
	fillRect(img, fb, colFooterBox)
	strokeRect(img, fb, 2, colFooterEdge)
	drawText(img, smallFace, footer, x, y, colBorder)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode poster: %w", err)
	}
	return buf.Bytes(), nil
}

// WrapLines breaks on newlines and every max runes. Empty lines are dropped.
func WrapLines(body string, max int) []string {
	var lines []string
	for _, para := range strings.Split(body, "\n") {
		runes := []rune(strings.TrimRight(para, "\r"))
		for len(runes) > max {
			lines = append(lines, string(runes[:max]))
			runes = runes[max:]
		}
		if len(runes) > 0 {
			lines = append(lines, string(runes))
		}
	}
	return lines
}

func measure(face font.Face, s string) (int, int) {
	m := face.Metrics()
	return font.MeasureString(face, s).Ceil(), (m.Ascent + m.Descent).Ceil()
}

// drawText treats (x, y) as the top-left corner of the text box.
func drawText(dst draw.Image, face font.Face, s string, x, y int, col color.Color) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y) + face.Metrics().Ascent},
	}
	d.DrawString(s)
}

func fillRect(dst draw.Image, r image.Rectangle, col color.Color) {
	draw.Draw(dst, r, image.NewUniform(col), image.Point{}, draw.Src)
}

func strokeRect(dst draw.Image, r image.Rectangle, width int, col color.Color) {
	fillRect(dst, image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+width), col)
	fillRect(dst, image.Rect(r.Min.X, r.Max.Y-width, r.Max.X, r.Max.Y), col)
	fillRect(dst, image.Rect(r.Min.X, r.Min.Y, r.Min.X+width, r.Max.Y), col)
	fillRect(dst, image.Rect(r.Max.X-width, r.Min.Y, r.Max.X, r.Max.Y), col)
}
