package interchange_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tenor-lang/tenor/internal/interchange"
)

func TestCheckCompatibility_SameMajor(t *testing.T) {
	assert.NoError(t, interchange.CheckCompatibility("1.2.0", "^1"))
}

func TestCheckCompatibility_DifferentMajorRejected(t *testing.T) {
	err := interchange.CheckCompatibility("2.0.0", "^1")
	assert.Error(t, err)
}

func TestCheckCompatibility_InvalidVersion(t *testing.T) {
	err := interchange.CheckCompatibility("not-a-version", "^1")
	assert.Error(t, err)
}

func TestCheckCompatibility_InvalidConstraint(t *testing.T) {
	err := interchange.CheckCompatibility("1.0.0", "???")
	assert.Error(t, err)
}
