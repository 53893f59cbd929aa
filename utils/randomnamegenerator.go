package utils

import (
	"math/rand"
	"sync"

	"github.com/Pallinder/go-randomdata"
)

// randomdata keeps one process wide source; every call goes through this lock.
var randomdataLock sync.Mutex

// RandomNameGenerator hands out unique names for unnamed scene nodes.
// Each generator owns a source seeded with zero so repeated exports
// produce the same names, even when they run concurrently.
type RandomNameGenerator struct {
	used map[string]struct{}
	rand *rand.Rand
}

// Reserve marks a name as taken.
func (rng *RandomNameGenerator) Reserve(name string) {
	rng.init()
	rng.used[name] = struct{}{}
}

func (rng *RandomNameGenerator) init() {
	if rng.used == nil {
		rng.used = make(map[string]struct{})
		rng.rand = rand.New(rand.NewSource(0))
	}
}

func (rng *RandomNameGenerator) sillyName() string {
	randomdataLock.Lock()
	defer randomdataLock.Unlock()
	randomdata.CustomRand(rng.rand)
	return randomdata.SillyName()
}

func (rng *RandomNameGenerator) RandomName() string {
	rng.init()
	for {
		name := rng.sillyName()
		// avoid duplicate names
		if _, exists := rng.used[name]; !exists {
			rng.used[name] = struct{}{}
			return name
		}
	}
}
