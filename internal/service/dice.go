package service

import (
	"math/rand"
	"sync"
)

var (
	diceService *DiceService
	diceOnce    sync.Once
)

func Dice() *DiceService {
	diceOnce.Do(func() {
		diceService = &DiceService{}
	})
	return diceService
}

type DiceService struct{}

// Roll returns a uniform value in [1, 6].
func (s *DiceService) Roll() int {
	return rand.Intn(6) + 1
}
