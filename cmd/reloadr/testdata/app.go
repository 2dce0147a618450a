package app

import "fmt"

var ticks int

//reloadr:autoreload
func Tick() string {
	ticks++
	return fmt.Sprintf("tick %d", ticks)
}

//reloadr:reload
type Counter struct {
	N int
}

func NewCounter() *Counter { return &Counter{} }

func (c *Counter) Inc() int {
	c.N++
	return c.N
}

func helper() int { return 42 }
