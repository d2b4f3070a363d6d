package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiceRollBounds(t *testing.T) {
	seen := make(map[int]bool)
	for i := 0; i < 1000; i++ {
		v := Dice().Roll()
		assert.GreaterOrEqual(t, v, 1)
		assert.LessOrEqual(t, v, 6)
		seen[v] = true
	}
	// 1000 rolls should hit every face
	assert.Len(t, seen, 6)
}
