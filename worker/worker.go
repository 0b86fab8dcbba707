package worker

import (
	"runtime"

	"github.com/getsentry/sentry-go"
	"github.com/remeh/sizedwaitgroup"
)

// Pool runs CPU intensive work on a bounded number of goroutines.
type Pool struct {
	size int
}

// NewPool returns a pool running at most size functions at once. A size of zero or less uses the number of CPUs.
func NewPool(size int) *Pool {
	if size <= 0 {
		size = runtime.NumCPU()
	}
	return &Pool{size: size}
}

// Size ...
func (p *Pool) Size() int {
	return p.size
}

// Run calls f for every index in [0, n) and returns once all calls have returned. A panic in f is reported to
// sentry and does not stop the other calls.
func (p *Pool) Run(n int, f func(i int)) {
	if n <= 0 {
		return
	}
	if n == 1 || p.size == 1 {
		for i := range n {
			call(f, i)
		}
		return
	}

	wg := sizedwaitgroup.New(p.size)
	for i := range n {
		wg.Add()
		go func(i int) {
			defer wg.Done()
			call(f, i)
		}(i)
	}
	wg.Wait()
}

func call(f func(i int), i int) {
	defer sentry.Recover()
	f(i)
}
