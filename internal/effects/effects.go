package effects

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"math"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
)

var (
	// ErrUnknownEffect is returned for a Kind outside the closed set below.
	ErrUnknownEffect = errors.New("unknown effect")
	// ErrInvalidAmount is returned for amounts that are not finite or would
	// blow up the frame size.
	ErrInvalidAmount = errors.New("invalid effect amount")
)

const (
	// MaxScale is the largest scale factor accepted.
	MaxScale = 8.0
	// maxDimension bounds either side of a scaled frame.
	maxDimension = 8192
)

// Kind enumerates every effect the compositor can apply.
type Kind int

const (
	Opacity Kind = iota
	Scale
	Grayscale
	Brightness
	Invert
)

var kindNames = [...]string{
	Opacity:    "opacity",
	Scale:      "scale",
	Grayscale:  "grayscale",
	Brightness: "brightness",
	Invert:     "invert",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("effect(%d)", int(k))
}

// Names lists the effect names in Kind order.
func Names() []string {
	return append([]string(nil), kindNames[:]...)
}

// ParseKind maps an effect name to its Kind.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range kindNames {
		if name == s {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownEffect, s)
}

// Effect transforms one frame. Apply never modifies its input.
type Effect interface {
	Kind() Kind
	Apply(frame *image.RGBA) *image.RGBA
}

// table maps each Kind to its constructor. The amount means: opacity and
// grayscale/invert mix in [0,1], scale factor, brightness offset in [-1,1].
var table = [...]func(amount float64) Effect{
	Opacity:    func(a float64) Effect { return opacity{amount: clamp01(a)} },
	Scale:      func(a float64) Effect { return scale{factor: math.Max(a, 0.01)} },
	Grayscale:  func(a float64) Effect { return grayscale{amount: clamp01(a)} },
	Brightness: func(a float64) Effect { return brightness{delta: math.Max(-1, math.Min(1, a))} },
	Invert:     func(a float64) Effect { return invert{amount: clamp01(a)} },
}

// New builds an effect of the given kind.
func New(kind Kind, amount float64) (Effect, error) {
	if kind < 0 || int(kind) >= len(table) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEffect, kind)
	}
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return nil, fmt.Errorf("%s %v: %w", kind, amount, ErrInvalidAmount)
	}
	if kind == Scale && amount > MaxScale {
		return nil, fmt.Errorf("scale %v above %v: %w", amount, MaxScale, ErrInvalidAmount)
	}
	return table[kind](amount), nil
}

// Parse builds an effect from "name" or "name:amount". The amount defaults
// to 1.
func Parse(s string) (Effect, error) {
	name, amountStr, found := strings.Cut(s, ":")
	kind, err := ParseKind(name)
	if err != nil {
		return nil, err
	}
	amount := 1.0
	if found {
		amount, err = strconv.ParseFloat(amountStr, 64)
		if err != nil {
			return nil, fmt.Errorf("effect %s: amount %q: %w", name, amountStr, ErrInvalidAmount)
		}
	}
	return New(kind, amount)
}

// MetadataKey is the clip metadata entry holding a clip's effect chain.
const MetadataKey = "effects"

// ParseChain parses a comma separated list of Parse expressions. An empty
// string is an empty chain.
func ParseChain(s string) ([]Effect, error) {
	var chain []Effect
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		e, err := Parse(part)
		if err != nil {
			return nil, err
		}
		chain = append(chain, e)
	}
	return chain, nil
}

// Chain applies effects in order.
func Chain(frame *image.RGBA, chain ...Effect) *image.RGBA {
	for _, e := range chain {
		frame = e.Apply(frame)
	}
	return frame
}

// ToRGBA returns img as *image.RGBA, copying when needed.
func ToRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}

func clone(frame *image.RGBA) *image.RGBA {
	out := image.NewRGBA(frame.Rect)
	copy(out.Pix, frame.Pix)
	return out
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// mix blends the adjusted frame over the original by amount.
func mix(frame *image.RGBA, adjusted *image.NRGBA, amount float64) *image.RGBA {
	if amount <= 0 {
		return clone(frame)
	}
	if amount < 1 {
		adjusted = imaging.Overlay(frame, adjusted, frame.Bounds().Min, amount)
	}
	return ToRGBA(adjusted)
}

type opacity struct{ amount float64 }

func (opacity) Kind() Kind { return Opacity }

// Apply scales every premultiplied channel, alpha included.
func (e opacity) Apply(frame *image.RGBA) *image.RGBA {
	out := clone(frame)
	for i := range out.Pix {
		out.Pix[i] = uint8(float64(out.Pix[i])*e.amount + 0.5)
	}
	return out
}

type scale struct{ factor float64 }

func (scale) Kind() Kind { return Scale }

func (e scale) Apply(frame *image.RGBA) *image.RGBA {
	b := frame.Bounds()
	w := uint(math.Min(maxDimension, math.Max(1, math.Round(float64(b.Dx())*e.factor))))
	h := uint(math.Min(maxDimension, math.Max(1, math.Round(float64(b.Dy())*e.factor))))
	return ToRGBA(resize.Resize(w, h, frame, resize.Bilinear))
}

type grayscale struct{ amount float64 }

func (grayscale) Kind() Kind { return Grayscale }

func (e grayscale) Apply(frame *image.RGBA) *image.RGBA {
	return mix(frame, imaging.Grayscale(frame), e.amount)
}

type brightness struct{ delta float64 }

func (brightness) Kind() Kind { return Brightness }

// Apply shifts every colour channel by delta of full scale.
func (e brightness) Apply(frame *image.RGBA) *image.RGBA {
	return ToRGBA(imaging.AdjustBrightness(frame, e.delta*100))
}

type invert struct{ amount float64 }

func (invert) Kind() Kind { return Invert }

func (e invert) Apply(frame *image.RGBA) *image.RGBA {
	return mix(frame, imaging.Invert(frame), e.amount)
}
