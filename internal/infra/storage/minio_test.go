package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "final-reports/abc.json", ObjectKey("", "final-reports/abc.json"))
	assert.Equal(t, "bizpanel/final-reports/abc.json", ObjectKey("bizpanel/", "final-reports/abc.json"))
}
