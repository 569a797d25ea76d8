package service

import (
	"math/rand"
	"strconv"
	"sync"
	"time"
)

// CodeGenerator 生成数字订单号：毫秒时间戳低 13 位加两位随机偏移，进程内单调递增。
// 13 位毫秒约 317 年才回绕，结果小于 2^53，PayOS 的 orderCode 可以直接使用。
// 跨进程冲突由 order_code 唯一索引兜底，下单时重新生成
type CodeGenerator struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
	rnd  *rand.Rand
}

const (
	codeModulus = 10_000_000_000_000
	codeJitter  = 100
)

func NewCodeGenerator() *CodeGenerator {
	return &CodeGenerator{
		now: time.Now,
		rnd: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Next 返回下一个订单号
func (g *CodeGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	code := (g.now().UnixMilli()%codeModulus)*codeJitter + g.rnd.Int63n(codeJitter)
	if code <= g.last {
		code = g.last + 1
	}
	g.last = code
	return strconv.FormatInt(code, 10)
}
