package chesspresenter

import (
	"strings"
)

// Presenter delivers formatted text and board images without coupling to
// the command layer.
type Presenter struct {
	writeText  func(text string) error
	writeImage func(png []byte) error
}

func NewPresenter(writeText func(text string) error, writeImage func(png []byte) error) *Presenter {
	return &Presenter{
		writeText:  writeText,
		writeImage: writeImage,
	}
}

// Board writes message, then the board image when one is present.
func (p *Presenter) Board(message string, png []byte) error {
	if p == nil {
		return nil
	}

	if text := strings.TrimSpace(message); text != "" && p.writeText != nil {
		if err := p.writeText(message); err != nil {
			return err
		}
	}

	if len(png) > 0 && p.writeImage != nil {
		if err := p.writeImage(png); err != nil {
			return err
		}
	}

	return nil
}
