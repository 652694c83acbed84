package chess

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"
	"math"
	"strings"

	nchess "github.com/corentings/chess/v2"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// MoveHighlight marks the last move played on the board.
type MoveHighlight struct {
	From nchess.Square
	To   nchess.Square
}

type RenderOptions struct {
	Highlight *MoveHighlight
	Caption   string
	Status    string
}

type BoardRenderer interface {
	RenderPNG(ctx context.Context, board *nchess.Board, opts RenderOptions) ([]byte, error)
}

const (
	squareSize  = 64
	boardMargin = 24
	stripHeight = 44
)

type pngBoardRenderer struct {
	pieces *pieceSet
	face   font.Face
}

func NewBoardRenderer() BoardRenderer {
	return &pngBoardRenderer{
		pieces: newPieceSet(squareSize),
		face:   basicfont.Face7x13,
	}
}

var (
	lightSquare         = color.RGBA{233, 207, 163, 255}
	darkSquare          = color.RGBA{187, 136, 96, 255}
	backgroundColor     = color.RGBA{28, 31, 46, 255}
	whiteMoveFill       = color.NRGBA{R: 255, G: 228, B: 120, A: 140}
	blackMoveArrow      = color.NRGBA{R: 148, G: 207, B: 255, A: 170}
	neutralMoveArrow    = color.NRGBA{R: 182, G: 184, B: 190, A: 140}
	stripPanelColor     = color.NRGBA{R: 40, G: 44, B: 64, A: 255}
	stripTextColor      = color.NRGBA{R: 236, G: 239, B: 255, A: 255}
	stripSecondaryColor = color.NRGBA{R: 204, G: 210, B: 236, A: 255}
	coordinateTextColor = color.NRGBA{R: 8, G: 214, B: 120, A: 255}
)

var (
	boardRanksTopToBottom = []nchess.Rank{nchess.Rank8, nchess.Rank7, nchess.Rank6, nchess.Rank5, nchess.Rank4, nchess.Rank3, nchess.Rank2, nchess.Rank1}
	boardFiles            = []nchess.File{nchess.FileA, nchess.FileB, nchess.FileC, nchess.FileD, nchess.FileE, nchess.FileF, nchess.FileG, nchess.FileH}
)

func (r *pngBoardRenderer) RenderPNG(ctx context.Context, board *nchess.Board, opts RenderOptions) ([]byte, error) {
	if board == nil {
		return nil, fmt.Errorf("board is nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	boardSize := squareSize * 8
	width := boardSize + boardMargin*2
	height := stripHeight + boardSize + boardMargin*2
	origin := image.Point{X: boardMargin, Y: stripHeight + boardMargin}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, imagedraw.Src)

	r.drawStrip(img, image.Rect(boardMargin, 8, width-boardMargin, stripHeight), opts)
	drawSquares(img, origin)
	drawHighlight(img, board, opts.Highlight, origin)
	if err := r.drawPieces(img, board, origin); err != nil {
		return nil, err
	}
	r.drawCoordinates(img, origin)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func drawSquares(dst imagedraw.Image, origin image.Point) {
	for _, rank := range boardRanksTopToBottom {
		for _, file := range boardFiles {
			sq := nchess.NewSquare(file, rank)
			imagedraw.Draw(dst, squareRect(sq, origin), image.NewUniform(squareColor(sq)), image.Point{}, imagedraw.Src)
		}
	}
}

func (r *pngBoardRenderer) drawPieces(dst imagedraw.Image, board *nchess.Board, origin image.Point) error {
	for sq, piece := range board.SquareMap() {
		if piece == nchess.NoPiece {
			continue
		}
		icon, err := r.pieces.image(piece)
		if err != nil {
			return err
		}
		imagedraw.Draw(dst, squareRect(sq, origin), icon, image.Point{}, imagedraw.Over)
	}
	return nil
}

// drawHighlight fills both squares of a white move and draws an arrow for a
// black move.
func drawHighlight(img *image.RGBA, board *nchess.Board, highlight *MoveHighlight, origin image.Point) {
	if highlight == nil {
		return
	}
	mover, ok := moverColor(board, highlight)
	switch {
	case ok && mover == nchess.White:
		imagedraw.Draw(img, squareRect(highlight.From, origin), image.NewUniform(whiteMoveFill), image.Point{}, imagedraw.Over)
		imagedraw.Draw(img, squareRect(highlight.To, origin), image.NewUniform(whiteMoveFill), image.Point{}, imagedraw.Over)
	case ok && mover == nchess.Black:
		drawArrow(img, highlight.From, highlight.To, origin, blackMoveArrow)
	default:
		drawArrow(img, highlight.From, highlight.To, origin, neutralMoveArrow)
	}
}

func moverColor(board *nchess.Board, highlight *MoveHighlight) (nchess.Color, bool) {
	if piece := board.Piece(highlight.To); piece != nchess.NoPiece {
		return piece.Color(), true
	}
	if piece := board.Piece(highlight.From); piece != nchess.NoPiece {
		return piece.Color(), true
	}
	return nchess.NoColor, false
}

func (r *pngBoardRenderer) drawStrip(img *image.RGBA, rect image.Rectangle, opts RenderOptions) {
	imagedraw.Draw(img, rect, image.NewUniform(stripPanelColor), image.Point{}, imagedraw.Src)
	drawer := &font.Drawer{Dst: img, Face: r.face}
	pad := 12
	baseline := rect.Min.Y + (rect.Dy()+r.face.Metrics().Ascent.Ceil())/2

	caption := truncateToWidth(r.face, strings.TrimSpace(opts.Caption), rect.Dx()/2)
	drawer.Src = image.NewUniform(stripTextColor)
	drawer.Dot = fixed.P(rect.Min.X+pad, baseline)
	drawer.DrawString(caption)

	status := truncateToWidth(r.face, strings.TrimSpace(opts.Status), rect.Dx()/2-pad*2)
	width := drawer.MeasureString(status).Round()
	drawer.Src = image.NewUniform(stripSecondaryColor)
	drawer.Dot = fixed.P(rect.Max.X-pad-width, baseline)
	drawer.DrawString(status)
}

func (r *pngBoardRenderer) drawCoordinates(dst imagedraw.Image, origin image.Point) {
	drawer := &font.Drawer{Dst: dst, Face: r.face, Src: image.NewUniform(coordinateTextColor)}
	ascent := r.face.Metrics().Ascent.Ceil()
	bottom := origin.Y + 8*squareSize
	for row, rank := range boardRanksTopToBottom {
		y := origin.Y + row*squareSize + squareSize/2 + ascent/2
		drawCenteredText(drawer, rank.String(), origin.X-boardMargin/2, y)
	}
	for col, file := range boardFiles {
		x := origin.X + col*squareSize + squareSize/2
		drawCenteredText(drawer, file.String(), x, bottom+ascent+4)
	}
}

func drawCenteredText(drawer *font.Drawer, text string, centerX, baseline int) {
	if text == "" {
		return
	}
	width := drawer.MeasureString(text).Round()
	drawer.Dot = fixed.P(centerX-width/2, baseline)
	drawer.DrawString(text)
}

func truncateToWidth(face font.Face, text string, maxWidth int) string {
	drawer := font.Drawer{Face: face}
	if text == "" || drawer.MeasureString(text).Round() <= maxWidth {
		return text
	}
	runes := []rune(text)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		candidate := string(runes) + "..."
		if drawer.MeasureString(candidate).Round() <= maxWidth {
			return candidate
		}
	}
	return ""
}

func drawArrow(img *image.RGBA, from, to nchess.Square, origin image.Point, clr color.Color) {
	if from == to {
		return
	}
	start := squareCenter(from, origin)
	end := squareCenter(to, origin)
	dx, dy := end.X-start.X, end.Y-start.Y
	length := math.Hypot(dx, dy)
	if length == 0 {
		return
	}
	dirX, dirY := dx/length, dy/length
	perpX, perpY := -dirY, dirX

	baseLength := length - squareSize*0.45
	if baseLength < squareSize*0.35 {
		baseLength = length * 0.6
	}
	halfWidth := squareSize * 0.18
	headHalf := squareSize * 0.16
	base := pointF{X: start.X + dirX*baseLength, Y: start.Y + dirY*baseLength}

	shaft := [4]pointF{
		{X: start.X - perpX*halfWidth, Y: start.Y - perpY*halfWidth},
		{X: start.X + perpX*halfWidth, Y: start.Y + perpY*halfWidth},
		{X: base.X + perpX*halfWidth, Y: base.Y + perpY*halfWidth},
		{X: base.X - perpX*halfWidth, Y: base.Y - perpY*halfWidth},
	}
	fillTriangle(img, shaft[0], shaft[1], shaft[2], clr)
	fillTriangle(img, shaft[0], shaft[2], shaft[3], clr)
	fillTriangle(img,
		end,
		pointF{X: base.X - perpX*headHalf*2, Y: base.Y - perpY*headHalf*2},
		pointF{X: base.X + perpX*headHalf*2, Y: base.Y + perpY*headHalf*2},
		clr,
	)
}

func fillTriangle(img *image.RGBA, a, b, c pointF, clr color.Color) {
	minX := int(math.Floor(math.Min(a.X, math.Min(b.X, c.X))))
	maxX := int(math.Ceil(math.Max(a.X, math.Max(b.X, c.X))))
	minY := int(math.Floor(math.Min(a.Y, math.Min(b.Y, c.Y))))
	maxY := int(math.Ceil(math.Max(a.Y, math.Max(b.Y, c.Y))))
	src := image.NewUniform(clr)
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			if insideTriangle(float64(x)+0.5, float64(y)+0.5, a, b, c) {
				imagedraw.Draw(img, image.Rect(x, y, x+1, y+1), src, image.Point{}, imagedraw.Over)
			}
		}
	}
}

func insideTriangle(x, y float64, a, b, c pointF) bool {
	denom := (b.Y-c.Y)*(a.X-c.X) + (c.X-b.X)*(a.Y-c.Y)
	if denom == 0 {
		return false
	}
	alpha := ((b.Y-c.Y)*(x-c.X) + (c.X-b.X)*(y-c.Y)) / denom
	beta := ((c.Y-a.Y)*(x-c.X) + (a.X-c.X)*(y-c.Y)) / denom
	return alpha >= 0 && beta >= 0 && 1-alpha-beta >= 0
}

func squareRect(sq nchess.Square, origin image.Point) image.Rectangle {
	x := origin.X + int(sq.File())*squareSize
	y := origin.Y + (7-int(sq.Rank()))*squareSize
	return image.Rect(x, y, x+squareSize, y+squareSize)
}

func squareCenter(sq nchess.Square, origin image.Point) pointF {
	rect := squareRect(sq, origin)
	return pointF{X: float64(rect.Min.X + squareSize/2), Y: float64(rect.Min.Y + squareSize/2)}
}

func squareColor(sq nchess.Square) color.Color {
	if (int(sq.File())+int(sq.Rank()))%2 == 0 {
		return darkSquare
	}
	return lightSquare
}

type pointF struct {
	X float64
	Y float64
}
