package invites

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReviewLink(t *testing.T) {
	got := ReviewLink("acme.trustpilot.com", "Acme")
	assert.Equal(t,
		"https://acme.trustpilot.com/evaluate?utm_campaign=Acme&utm_medium=invitation&utm_source=reviewloop",
		got,
	)
}

func TestReviewLink_Deterministic(t *testing.T) {
	first := ReviewLink("reviews.example.com", "Fine Goods & Co")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, ReviewLink("reviews.example.com", "Fine Goods & Co"))
	}
}

func TestReviewLink_EscapesBusinessName(t *testing.T) {
	got := ReviewLink("r.example.com", "Fine Goods & Co")
	assert.Contains(t, got, "utm_campaign=Fine+Goods+%26+Co")
}
