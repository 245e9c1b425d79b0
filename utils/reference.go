package utils

import (
	"fmt"
	"math/rand"
	"sync"
	"time"
)

var refMu sync.Mutex
var refRand *rand.Rand

func init() {
	refRand = rand.New(rand.NewSource(time.Now().UnixNano()))
}

// GenerateReferenceID produces a unique-enough audit reference for a ledger
// entry. Not a security token, just a stable handle operators can search for.
func GenerateReferenceID(userID uint) string {
	refMu.Lock()
	defer refMu.Unlock()

	nowNano := time.Now().UnixNano()
	nanoPart := nowNano % 1000000

	randPart := refRand.Intn(900) + 100

	return fmt.Sprintf("LDG-%06d%03d%d", nanoPart, randPart, userID)
}
