package character

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/oomph-ac/locomotion/oerror"
	"github.com/oomph-ac/locomotion/worker"
)

// Group ticks many characters in parallel. Characters share nothing but the immutable mode set of their
// simulator, so each of them may be stepped on a different goroutine.
type Group struct {
	pool *worker.Pool

	mu    sync.RWMutex
	chars []*Character
}

// NewGroup returns an empty group stepping its characters on the pool passed.
func NewGroup(pool *worker.Pool) *Group {
	if pool == nil {
		pool = worker.NewPool(0)
	}
	return &Group{pool: pool}
}

// Add adds a character to the group. Characters are stepped in the order they were added.
func (g *Group) Add(c *Character) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if slices.ContainsFunc(g.chars, func(o *Character) bool { return o.id == c.id }) {
		return oerror.Configuration("character id", "%s is already part of the group", c.id)
	}
	g.chars = append(g.chars, c)
	return nil
}

// Remove removes the character with the id passed from the group and returns it.
func (g *Group) Remove(id string) (*Character, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	i := slices.IndexFunc(g.chars, func(c *Character) bool { return c.id == id })
	if i == -1 {
		return nil, false
	}
	c := g.chars[i]
	g.chars = slices.Delete(g.chars, i, i+1)
	return c, true
}

// Character returns the character with the id passed.
func (g *Group) Character(id string) (*Character, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	i := slices.IndexFunc(g.chars, func(c *Character) bool { return c.id == id })
	if i == -1 {
		return nil, false
	}
	return g.chars[i], true
}

// Characters returns the characters of the group in the order they were added.
func (g *Group) Characters() []*Character {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return slices.Clone(g.chars)
}

// Len ...
func (g *Group) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.chars)
}

// Step ticks every open character of the group once and returns after all of them have been stepped.
func (g *Group) Step() {
	chars := g.Characters()
	g.pool.Run(len(chars), func(i int) {
		if c := chars[i]; !c.Closed() {
			c.Tick()
		}
	})
}

// Run steps the group at the tick rate passed until the context is cancelled. Closed characters are removed
// from the group.
func (g *Group) Run(ctx context.Context, tickRate int) error {
	if tickRate <= 0 {
		return oerror.Configuration("tick rate", "must be positive, got %d", tickRate)
	}
	t := time.NewTicker(time.Second / time.Duration(tickRate))
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			g.Step()
			g.prune()
		}
	}
}

func (g *Group) prune() {
	g.mu.Lock()
	g.chars = slices.DeleteFunc(g.chars, (*Character).Closed)
	g.mu.Unlock()
}
