package window

import (
	"sync"
	"testing"
)

func TestSurfaceSize(t *testing.T) {
	tests := []struct {
		name                      string
		width, height, windowWide int
		wantRatio                 float32
	}{
		{"standard display", 1280, 720, 1280, 1},
		{"high dpi", 2560, 1440, 1280, 2},
		{"minimized", 0, 0, 0, 1},
		{"unknown window width", 800, 600, 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s surfaceSize
			s.set(tt.width, tt.height, tt.windowWide)
			w, h, ratio := s.get()
			if w != tt.width || h != tt.height || ratio != tt.wantRatio {
				t.Errorf("get() = %d, %d, %v, want %d, %d, %v", w, h, ratio, tt.width, tt.height, tt.wantRatio)
			}
		})
	}
}

func TestSurfaceSizeConcurrentReads(t *testing.T) {
	var s surfaceSize
	s.set(800, 600, 800)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				w, h, ratio := s.get()
				if ratio == 2 && (w != 1600 || h != 1200) {
					t.Errorf("torn read: %dx%d at ratio %v", w, h, ratio)
					return
				}
			}
		}()
	}
	for j := 0; j < 1000; j++ {
		if j%2 == 0 {
			s.set(1600, 1200, 800)
		} else {
			s.set(800, 600, 800)
		}
	}
	wg.Wait()
}
