package chess

import (
	"bytes"
	"embed"
	"fmt"
	"image"
	"sync"

	nchess "github.com/corentings/chess/v2"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

//go:embed assets/pieces/*.svg
var pieceFiles embed.FS

var pieceLetters = map[nchess.PieceType]string{
	nchess.King:   "K",
	nchess.Queen:  "Q",
	nchess.Rook:   "R",
	nchess.Bishop: "B",
	nchess.Knight: "N",
	nchess.Pawn:   "P",
}

// pieceSet rasterizes piece icons once per size and keeps them.
type pieceSet struct {
	mu     sync.Mutex
	size   int
	images map[nchess.Piece]image.Image
}

func newPieceSet(size int) *pieceSet {
	return &pieceSet{size: size, images: make(map[nchess.Piece]image.Image, 12)}
}

func (ps *pieceSet) image(piece nchess.Piece) (image.Image, error) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if img, ok := ps.images[piece]; ok {
		return img, nil
	}
	img, err := rasterizePiece(piece, ps.size)
	if err != nil {
		return nil, err
	}
	ps.images[piece] = img
	return img, nil
}

func rasterizePiece(piece nchess.Piece, size int) (image.Image, error) {
	name, err := pieceAssetName(piece)
	if err != nil {
		return nil, err
	}
	data, err := pieceFiles.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read piece asset %s: %w", name, err)
	}
	icon, err := oksvg.ReadIconStream(bytes.NewReader(normalizeSVGStyle(data)))
	if err != nil {
		return nil, fmt.Errorf("parse piece svg %s: %w", name, err)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	icon.Draw(rasterx.NewDasher(size, size, scanner), 1.0)
	return img, nil
}

func pieceAssetName(piece nchess.Piece) (string, error) {
	letter, ok := pieceLetters[piece.Type()]
	if !ok || piece == nchess.NoPiece {
		return "", fmt.Errorf("no asset for piece %v", piece)
	}
	prefix := "b"
	if piece.Color() == nchess.White {
		prefix = "w"
	}
	return "assets/pieces/" + prefix + letter + ".svg", nil
}

// normalizeSVGStyle removes the space oksvg rejects after style keys.
func normalizeSVGStyle(svg []byte) []byte {
	for _, key := range []string{"fill", "stroke", "stop-color"} {
		svg = bytes.ReplaceAll(svg, []byte(key+": #"), []byte(key+":#"))
	}
	return svg
}
