package domain

import "testing"

func TestProductEligible(t *testing.T) {
	tests := []struct {
		name    string
		product Product
		want    bool
	}{
		{"active with enough images", Product{IsActive: true, Images: []string{"a", "b"}}, true},
		{"active with extra images", Product{IsActive: true, Images: []string{"a", "b", "c"}}, true},
		{"too few images", Product{IsActive: true, Images: []string{"a"}}, false},
		{"no images", Product{IsActive: true}, false},
		{"inactive", Product{IsActive: false, Images: []string{"a", "b"}}, false},
	}
	for _, tt := range tests {
		if got := tt.product.Eligible(); got != tt.want {
			t.Fatalf("%s: Eligible() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestPublishJobInFlight(t *testing.T) {
	tests := []struct {
		status PublishStatus
		want   bool
	}{
		{PublishScheduled, true},
		{PublishPosting, true},
		{PublishPublished, false},
		{PublishFailed, false},
	}
	for _, tt := range tests {
		job := PublishJob{Status: tt.status}
		if got := job.InFlight(); got != tt.want {
			t.Fatalf("%s: InFlight() = %v, want %v", tt.status, got, tt.want)
		}
	}
}
