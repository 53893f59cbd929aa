package utils

type ColorFloat [4]float32

// RGBA implements color.Color, values are not premultiplied.
func (c ColorFloat) RGBA() (r, g, b, a uint32) {
	const mf = float32(256*256 - 1)
	r = uint32(clamp01(c[0]) * mf)
	g = uint32(clamp01(c[1]) * mf)
	b = uint32(clamp01(c[2]) * mf)
	a = uint32(clamp01(c[3]) * mf)
	return
}

// Bytes truncates every channel to 0..255.
func (c ColorFloat) Bytes() [4]byte {
	return [4]byte{FloatToByte(c[0]), FloatToByte(c[1]), FloatToByte(c[2]), FloatToByte(c[3])}
}

func FloatToByte(v float32) byte {
	return byte(clamp01(v) * 255)
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
