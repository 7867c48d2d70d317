package export

import "testing"

func TestFloat32LERoundTrip(t *testing.T) {
	src := []float32{0, 1, -1, 0.5, -0.5, 3.14159}
	buf := make([]byte, len(src)*4)
	encodeFloat32LE(buf, src)

	dst := make([]float32, len(src))
	decodeFloat32LE(dst, buf)

	for i := range src {
		if dst[i] != src[i] {
			t.Errorf("sample %d: got %v want %v", i, dst[i], src[i])
		}
	}
}

func TestLayoutName(t *testing.T) {
	if layoutName(1) != "mono" {
		t.Errorf("layoutName(1) = %q, want mono", layoutName(1))
	}
	if layoutName(2) != "stereo" {
		t.Errorf("layoutName(2) = %q, want stereo", layoutName(2))
	}
}
