package grade

// Color is a straight-alpha pixel in linear 0..1 floats.
type Color struct{ R, G, B, A float32 }

// Mix blends two rows (a,b) into dst using alpha (0..1). Alpha is taken from a.
func Mix(dst, a, b []Color, alpha float32) {
	if alpha <= 0 {
		copy(dst, a)
		return
	}
	if alpha >= 1 {
		copy(dst, b)
		return
	}
	af := 1 - alpha
	for i := range dst {
		dst[i].R = a[i].R*af + b[i].R*alpha
		dst[i].G = a[i].G*af + b[i].G*alpha
		dst[i].B = a[i].B*af + b[i].B*alpha
		dst[i].A = a[i].A
	}
}

func clamp01(x float32) float32 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

func to8(x float32) uint8 {
	return uint8(clamp01(x)*255 + 0.5)
}
