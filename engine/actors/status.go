package actors

import (
	"sync"

	"github.com/sasha-s/go-deadlock"
)

var terminateChan chan struct{}
var shutdownOnce sync.Once
var waitGroup = &deadlock.WaitGroup{}

// SetTerminateChan installs the channel for this run and re-arms Shutdown.
func SetTerminateChan(term chan struct{}) {
	terminateChan = term
	shutdownOnce = sync.Once{}
}

func GetTerminateChan() chan struct{} {
	return terminateChan
}

func GetWaitGroup() *deadlock.WaitGroup {
	return waitGroup
}

// Shutdown closes the terminate channel exactly once, telling every long
// running loop to wind down.
func Shutdown() {
	shutdownOnce.Do(func() {
		if terminateChan != nil {
			close(terminateChan)
		}
	})
}
