// Package testpattern generates synthetic RGB565 frames for -mock mode
// and for exercising the stream controller without attached hardware.
package testpattern

import (
	"github.com/devodan69/smartscreen/internal/xerrors"
)

// RGB888ToRGB565LE converts packed 8-8-8 RGB bytes into little-endian
// RGB565, 3 input bytes per 2 output bytes.
func RGB888ToRGB565LE(rgb []byte) ([]byte, error) {
	if len(rgb)%3 != 0 {
		return nil, xerrors.New(xerrors.InvalidArgument, "RGB888 data length must be divisible by 3")
	}
	out := make([]byte, (len(rgb)/3)*2)
	w := 0
	for i := 0; i < len(rgb); i += 3 {
		r, g, b := uint16(rgb[i]), uint16(rgb[i+1]), uint16(rgb[i+2])
		value := ((r >> 3) << 11) | ((g >> 2) << 5) | (b >> 3)
		out[w] = byte(value & 0xFF)
		out[w+1] = byte(value >> 8)
		w += 2
	}
	return out, nil
}

// Name enumerates the built-in test patterns.
type Name string

const (
	Black        Name = "black"
	White        Name = "white"
	Red          Name = "red"
	Green        Name = "green"
	Blue         Name = "blue"
	Quadrants    Name = "quadrants"
	HGradient    Name = "h-gradient"
	VGradient    Name = "v-gradient"
	Checkerboard Name = "checkerboard"
)

type rgb struct{ r, g, b byte }

// Build renders a width x height RGB565 LE frame for the named pattern.
func Build(name Name, width, height int) ([]byte, error) {
	rgb888 := make([]byte, width*height*3)
	idx := 0
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c, err := pixelColor(name, x, y, width, height)
			if err != nil {
				return nil, err
			}
			rgb888[idx] = c.r
			rgb888[idx+1] = c.g
			rgb888[idx+2] = c.b
			idx += 3
		}
	}
	return RGB888ToRGB565LE(rgb888)
}

func pixelColor(name Name, x, y, width, height int) (rgb, error) {
	switch name {
	case Black:
		return rgb{0, 0, 0}, nil
	case White:
		return rgb{255, 255, 255}, nil
	case Red:
		return rgb{255, 0, 0}, nil
	case Green:
		return rgb{0, 255, 0}, nil
	case Blue:
		return rgb{0, 0, 255}, nil
	case Quadrants:
		switch {
		case x < width/2 && y < height/2:
			return rgb{255, 0, 0}, nil
		case x >= width/2 && y < height/2:
			return rgb{0, 255, 0}, nil
		case x < width/2 && y >= height/2:
			return rgb{0, 0, 255}, nil
		default:
			return rgb{255, 255, 255}, nil
		}
	case HGradient:
		v := byte(255 * x / maxInt(width-1, 1))
		return rgb{v, v, v}, nil
	case VGradient:
		v := byte(255 * y / maxInt(height-1, 1))
		return rgb{v, v, v}, nil
	case Checkerboard:
		if (x/24+y/24)%2 == 0 {
			return rgb{255, 255, 255}, nil
		}
		return rgb{0, 0, 0}, nil
	default:
		return rgb{}, xerrors.New(xerrors.InvalidArgument, "unknown pattern: "+string(name))
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
