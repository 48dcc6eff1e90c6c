package uid

import (
	"strconv"
	"sync/atomic"
	"time"
)

type SeqOptions struct {
	// Prefix id 前缀，如 run-
	Prefix string `cfg:"prefix"`
}

// SeqGenerator 时间戳+序列号，同一进程内单调递增
type SeqGenerator struct {
	prefix string
	state  int64 // 高52位：时间戳，低12位：序列号
}

func NewSeqGeneratorWithOptions(options *SeqOptions) *SeqGenerator {
	g := &SeqGenerator{state: time.Now().UnixMilli() << 12}
	if options != nil {
		g.prefix = options.Prefix
	}
	return g
}

func (g *SeqGenerator) Generate() string {
	return g.prefix + strconv.FormatInt(g.next(), 36)
}

func (g *SeqGenerator) next() int64 {
	for {
		oldState := atomic.LoadInt64(&g.state)
		oldTimestamp := oldState >> 12
		oldSequence := oldState & 0xFFF

		currentTimestamp := time.Now().UnixMilli()

		var newTimestamp, newSequence int64
		if currentTimestamp <= oldTimestamp {
			newTimestamp = oldTimestamp
			newSequence = oldSequence + 1
			if newSequence > 0xFFF {
				// 序列号溢出，借用下一毫秒
				newTimestamp++
				newSequence = 0
			}
		} else {
			newTimestamp = currentTimestamp
		}

		newState := newTimestamp<<12 | newSequence
		if atomic.CompareAndSwapInt64(&g.state, oldState, newState) {
			return newState
		}
	}
}
