package utils

import (
	"bytes"
	"image/color"
	"math/rand"
	"time"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/goregular"
)

// Captcha is a verification challenge attached to robot-check prompts.
type Captcha struct {
	Code  string
	Image []byte
}

const (
	captchaWidth  = 320
	captchaHeight = 110
	captchaChars  = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// GenerateCaptcha renders a 6-character challenge image.
func GenerateCaptcha() (*Captcha, error) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	dc := gg.NewContext(captchaWidth, captchaHeight)

	grad := gg.NewLinearGradient(0, 0, captchaWidth, captchaHeight)
	grad.AddColorStop(0, color.RGBA{236, 239, 244, 255})
	grad.AddColorStop(1, color.RGBA{219, 224, 232, 255})
	dc.SetFillStyle(grad)
	dc.DrawRectangle(0, 0, captchaWidth, captchaHeight)
	dc.Fill()

	for i := 0; i < 120; i++ {
		dc.SetColor(noiseColor(rng, 110, 210))
		dc.DrawRectangle(rng.Float64()*captchaWidth, rng.Float64()*captchaHeight, 2, 2)
		dc.Fill()
	}

	for i := 0; i < 4; i++ {
		dc.SetColor(noiseColor(rng, 140, 215))
		dc.SetLineWidth(rng.Float64()*1.5 + 1)
		dc.MoveTo(rng.Float64()*captchaWidth, rng.Float64()*captchaHeight)
		dc.QuadraticTo(
			rng.Float64()*captchaWidth, rng.Float64()*captchaHeight,
			rng.Float64()*captchaWidth, rng.Float64()*captchaHeight,
		)
		dc.Stroke()
	}

	code := make([]byte, 6)
	for i := range code {
		code[i] = captchaChars[rng.Intn(len(captchaChars))]
	}

	fnt, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, err
	}
	dc.SetFontFace(truetype.NewFace(fnt, &truetype.Options{Size: 46}))

	spacing := float64(captchaWidth) / float64(len(code)+1)
	for i, ch := range string(code) {
		x := spacing * float64(i+1)
		y := float64(captchaHeight) / 2

		dc.Push()
		dc.RotateAbout(gg.Radians((rng.Float64()-0.5)*24), x, y)
		dc.SetColor(color.RGBA{0, 0, 0, 60})
		dc.DrawStringAnchored(string(ch), x+2, y+2, 0.5, 0.5)
		dc.SetColor(noiseColor(rng, 10, 95))
		dc.DrawStringAnchored(string(ch), x, y, 0.5, 0.5)
		dc.Pop()
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, err
	}
	return &Captcha{Code: string(code), Image: buf.Bytes()}, nil
}

func noiseColor(rng *rand.Rand, min, max int) color.Color {
	pick := func() uint8 { return uint8(rng.Intn(max-min) + min) }
	return color.RGBA{pick(), pick(), pick(), 255}
}
