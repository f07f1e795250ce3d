package effects

import (
	"errors"
	"image"
	"image/color"
	"testing"
)

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestOpacityScalesAlpha(t *testing.T) {
	src := solid(2, 2, color.RGBA{200, 100, 50, 255})
	e, err := New(Opacity, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	out := e.Apply(src)
	got := out.RGBAAt(0, 0)
	if got.A != 128 || got.R != 100 {
		t.Errorf("expected half opacity, got %+v", got)
	}
	if src.RGBAAt(0, 0).A != 255 {
		t.Error("input frame was modified")
	}
}

func TestScaleResizes(t *testing.T) {
	src := solid(40, 20, color.RGBA{255, 0, 0, 255})
	e, _ := New(Scale, 0.5)
	out := e.Apply(src)
	if out.Bounds().Dx() != 20 || out.Bounds().Dy() != 10 {
		t.Errorf("expected 20x10, got %v", out.Bounds())
	}
}

func TestGrayscale(t *testing.T) {
	src := solid(1, 1, color.RGBA{255, 0, 0, 255})
	e, _ := New(Grayscale, 1)
	got := e.Apply(src).RGBAAt(0, 0)
	if got.R != got.G || got.G != got.B {
		t.Errorf("expected gray pixel, got %+v", got)
	}
}

func TestInvertAndBrightness(t *testing.T) {
	src := solid(1, 1, color.RGBA{10, 20, 30, 255})
	inv, _ := New(Invert, 1)
	if got := inv.Apply(src).RGBAAt(0, 0); got.R != 245 || got.B != 225 {
		t.Errorf("unexpected inverted pixel %+v", got)
	}

	bright, _ := New(Brightness, 1)
	if got := bright.Apply(src).RGBAAt(0, 0); got.R != 255 || got.G != 255 {
		t.Errorf("full brightness should saturate, got %+v", got)
	}
}

func TestParse(t *testing.T) {
	e, err := Parse("grayscale:0.25")
	if err != nil || e.Kind() != Grayscale {
		t.Fatalf("expected grayscale, got %v %v", e, err)
	}
	if e, err := Parse("invert"); err != nil || e.Kind() != Invert {
		t.Errorf("expected invert with default amount, got %v %v", e, err)
	}
	if _, err := Parse("sepia"); !errors.Is(err, ErrUnknownEffect) {
		t.Errorf("expected ErrUnknownEffect, got %v", err)
	}
	if _, err := Parse("scale:big"); err == nil {
		t.Error("expected invalid amount error")
	}
	if _, err := New(Kind(42), 1); !errors.Is(err, ErrUnknownEffect) {
		t.Errorf("expected ErrUnknownEffect, got %v", err)
	}
}

func TestRejectsUnboundedAmounts(t *testing.T) {
	for _, expr := range []string{"scale:NaN", "scale:Inf", "opacity:-Inf", "brightness:nan", "scale:1e6", "scale:big"} {
		e, err := Parse(expr)
		if !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("%s: expected ErrInvalidAmount, got %v %v", expr, e, err)
		}
	}
	if _, err := ParseChain("grayscale,scale:NaN"); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("chain with NaN scale: expected ErrInvalidAmount, got %v", err)
	}

	e, err := New(Scale, MaxScale)
	if err != nil {
		t.Fatalf("max scale should be accepted: %v", err)
	}
	if out := e.Apply(solid(4, 4, color.RGBA{A: 255})); out.Bounds().Dx() != 32 {
		t.Errorf("expected 32 wide, got %v", out.Bounds())
	}
	if out := e.Apply(solid(2000, 2, color.RGBA{A: 255})); out.Bounds().Dx() != maxDimension || out.Bounds().Dy() != 16 {
		t.Errorf("expected width capped at %d, got %v", maxDimension, out.Bounds())
	}
}

func TestPartialGrayscale(t *testing.T) {
	src := solid(1, 1, color.RGBA{255, 0, 0, 255})
	e, _ := New(Grayscale, 0.5)
	got := e.Apply(src).RGBAAt(0, 0)
	if got.R < 150 || got.R > 180 || got.G < 30 || got.G > 45 || got.A != 255 {
		t.Errorf("expected a half desaturated red, got %+v", got)
	}
	if none, _ := New(Grayscale, 0); none.Apply(src).RGBAAt(0, 0) != (color.RGBA{255, 0, 0, 255}) {
		t.Error("zero amount should leave the frame unchanged")
	}
}

func TestChainOrder(t *testing.T) {
	src := solid(4, 4, color.RGBA{255, 255, 255, 255})
	half, _ := New(Scale, 0.5)
	fade, _ := New(Opacity, 0)
	out := Chain(src, half, fade)
	if out.Bounds().Dx() != 2 || out.RGBAAt(0, 0).A != 0 {
		t.Errorf("unexpected chained output %v %+v", out.Bounds(), out.RGBAAt(0, 0))
	}
}

func TestParseChain(t *testing.T) {
	chain, err := ParseChain("grayscale, brightness:0.2,,invert:0.5")
	if err != nil {
		t.Fatalf("parse chain failed: %v", err)
	}
	want := []Kind{Grayscale, Brightness, Invert}
	if len(chain) != len(want) {
		t.Fatalf("expected %d effects, got %d", len(want), len(chain))
	}
	for i, e := range chain {
		if e.Kind() != want[i] {
			t.Errorf("effect %d: expected %s, got %s", i, want[i], e.Kind())
		}
	}

	if chain, err := ParseChain(""); err != nil || len(chain) != 0 {
		t.Errorf("expected empty chain, got %v %v", chain, err)
	}
	if _, err := ParseChain("invert,blur"); !errors.Is(err, ErrUnknownEffect) {
		t.Errorf("expected ErrUnknownEffect, got %v", err)
	}
}
