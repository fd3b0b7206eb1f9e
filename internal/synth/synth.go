// Package synth 生成合成办公电话。
package synth

import (
	"fmt"
	"math/rand/v2"
	"regexp"
	"time"
)

// 7 位号码取值区间（闭区间）。
const (
	MinNumber = 1000000
	MaxNumber = 9999999
)

var prefixRe = regexp.MustCompile(`^\d{4}$`)

// Synthesizer 为每条被接受的记录独立、均匀地生成 "<prefix>-<7位号码>"。
// 不保证唯一；与记录内容无关。非并发安全（流水线为单线程）。
type Synthesizer struct {
	prefix string
	rng    *rand.Rand
}

// ValidPrefix 报告 p 是否为 4 位 ASCII 数字区号。
func ValidPrefix(p string) bool { return prefixRe.MatchString(p) }

// New 创建合成器；rng 为 nil 时使用基于时间的种子。
func New(prefix string, rng *rand.Rand) (*Synthesizer, error) {
	if !ValidPrefix(prefix) {
		return nil, fmt.Errorf("synth: office prefix %q must be 4 digits", prefix)
	}
	if rng == nil {
		rng = TimeSeeded()
	}
	return &Synthesizer{prefix: prefix, rng: rng}, nil
}

// Seeded 返回可复现的随机源。
func Seeded(seed int64) *rand.Rand {
	s := uint64(seed)
	return rand.New(rand.NewPCG(s, s^0x9e3779b97f4a7c15))
}

// TimeSeeded 返回以当前时间为种子的随机源。
func TimeSeeded() *rand.Rand {
	return Seeded(time.Now().UnixNano())
}

// OfficePhone 抽取下一个办公电话。
func (s *Synthesizer) OfficePhone() string {
	n := MinNumber + s.rng.IntN(MaxNumber-MinNumber+1)
	return fmt.Sprintf("%s-%d", s.prefix, n)
}

// Prefix 返回本次运行的固定区号前缀。
func (s *Synthesizer) Prefix() string { return s.prefix }
