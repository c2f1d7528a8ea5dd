package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecommend(t *testing.T) {
	assert.Equal(t, NamePaystack, Recommend("NGN"))
	assert.Equal(t, NamePaystack, Recommend("ghs"))
	assert.Equal(t, NamePaystack, Recommend("ZAR"))
	assert.Equal(t, NameFlutterwave, Recommend("UGX"))
	assert.Equal(t, NameFlutterwave, Recommend("TZS"))
	assert.Equal(t, NameStripe, Recommend("USD"))
	assert.Equal(t, NameStripe, Recommend("EUR"))
	assert.Equal(t, NameStripe, Recommend(""))
}
