package fir

import (
	"math"
	"testing"
)

func TestDesignLowpassIsSymmetric(t *testing.T) {
	c := DesignLowpass(25, 0.2, 5.0)
	for i := range c {
		j := len(c) - 1 - i
		if math.Abs(float64(c[i]-c[j])) > 1e-5 {
			t.Fatalf("coefficients not symmetric at %d/%d: %v vs %v", i, j, c[i], c[j])
		}
	}
}

func TestDesignLowpassPeakAtCenter(t *testing.T) {
	c := DesignLowpass(25, 0.2, 5.0)
	mid := len(c) / 2
	for i, v := range c {
		if i == mid {
			continue
		}
		if v > c[mid] {
			t.Fatalf("expected peak tap at center (%d)=%v, found larger %v at %d", mid, c[mid], v, i)
		}
	}
}

func TestBesselI0AtZero(t *testing.T) {
	if got := besselI0(0); math.Abs(got-1) > 1e-9 {
		t.Fatalf("besselI0(0) = %v, want 1", got)
	}
}
