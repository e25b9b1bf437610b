package gate

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// DefaultTimeout は判定呼び出しの既定のタイムアウト。
const DefaultTimeout = 5 * time.Second

// Verdict はガードの判定状態。
type Verdict int

const (
	// Pending は判定待ち。
	Pending Verdict = iota
	// Allowed は入場許可。終端状態。
	Allowed
	// Denied は入場拒否。終端状態。
	Denied
)

// String は状態名を返す。
func (v Verdict) String() string {
	switch v {
	case Pending:
		return "pending"
	case Allowed:
		return "allowed"
	case Denied:
		return "denied"
	default:
		return "unknown"
	}
}

// Result はガードの評価結果。
type Result struct {
	Verdict Verdict
	IP      string
	Err     error
}

// ErrTimeout は判定が時間内に返らなかったことを表す。
var ErrTimeout = errors.New("gate decision timed out")

// Guard は保護ルートへの入場ごとに判定関数を呼び出す。
// 前回の判定は保持せず、再試行もしない。
type Guard struct {
	decider Decider
	timeout time.Duration
}

// NewGuard はGuardを生成する。timeoutが0以下の場合はDefaultTimeoutを使う。
func NewGuard(decider Decider, timeout time.Duration) *Guard {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Guard{decider: decider, timeout: timeout}
}

// Evaluate は判定を1回行い、AllowedまたはDeniedを返す。
// タイムアウトや呼び出しの失敗は拒否として扱う。
func (g *Guard) Evaluate(ctx context.Context, origin Origin) Result {
	check := newCheck(origin.IP())

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	type outcome struct {
		decision Decision
		err      error
	}
	done := make(chan outcome, 1)
	go func() {
		d, err := g.decider.Decide(ctx, origin)
		done <- outcome{decision: d, err: err}
	}()

	select {
	case o := <-done:
		if o.decision.IP != "" {
			check.ip = o.decision.IP
		}
		if o.err != nil {
			check.deny(o.err)
		} else if o.decision.Allowed {
			check.allow()
		} else {
			check.deny(nil)
		}
	case <-ctx.Done():
		err := ctx.Err()
		if errors.Is(err, context.DeadlineExceeded) {
			err = ErrTimeout
		}
		check.deny(err)
	}

	if check.result.Err != nil {
		slog.Warn("IPゲートの判定に失敗したため拒否しました",
			slog.String("ip", check.result.IP),
			slog.String("error", check.result.Err.Error()),
		)
	}
	return check.result
}

// check は1回分の評価状態。Pendingから一度だけ遷移する。
type check struct {
	result Result
	ip     string
}

func newCheck(ip string) *check {
	return &check{result: Result{Verdict: Pending, IP: ip}, ip: ip}
}

func (c *check) allow() {
	c.resolve(Allowed, nil)
}

func (c *check) deny(err error) {
	c.resolve(Denied, err)
}

func (c *check) resolve(v Verdict, err error) {
	if c.result.Verdict != Pending {
		return
	}
	c.result = Result{Verdict: v, IP: c.ip, Err: err}
}
