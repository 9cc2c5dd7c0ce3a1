package job

import (
	"fmt"
	"sync/atomic"
)

// Generator hands out job IDs unique within the process.
type Generator struct {
	counter uint64
}

func New() *Generator {
	return &Generator{}
}

func (g *Generator) Next(callId string) string {
	n := atomic.AddUint64(&g.counter, 1)
	return fmt.Sprintf("%s-job-%d", callId, n)
}
