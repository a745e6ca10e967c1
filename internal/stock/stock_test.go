package stock

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		label string
		want  Status
	}{
		{"In Stock", InStock},
		{"IN STOCK - ships today", InStock},
		{"Out of Stock", OutOfStock},
		{"out stock", OutOfStock},
		{"Temporarily OUT OF STOCK", OutOfStock},
		{"Out of stock, back in stock soon", OutOfStock},
		{"", Unknown},
		{"Available", Unknown},
		{"Pre-order", Unknown},
	}
	for _, tt := range tests {
		if got := Classify(tt.label); got != tt.want {
			t.Errorf("Classify(%q) = %v, want %v", tt.label, got, tt.want)
		}
	}
}
