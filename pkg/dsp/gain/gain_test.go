package gain

import (
	"math"
	"testing"
)

func TestDbToLinear32(t *testing.T) {
	tests := []struct {
		name    string
		db      float32
		want    float32
		epsilon float64
	}{
		{"unity", 0, 1.0, 0.001},
		{"half amplitude", -6.02, 0.5, 0.01},
		{"double amplitude", 6.02, 2.0, 0.01},
		{"at floor", MinDB, 0, 0.001},
		{"below floor", MinDB - 10, 0, 0.001},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DbToLinear32(tt.db)
			if math.Abs(float64(got-tt.want)) > tt.epsilon {
				t.Errorf("DbToLinear32(%f) = %f, want %f", tt.db, got, tt.want)
			}
		})
	}
}

func BenchmarkDbToLinear32(b *testing.B) {
	db := float32(-6.0)
	for i := 0; i < b.N; i++ {
		_ = DbToLinear32(db)
	}
}
