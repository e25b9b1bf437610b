// Package gate はクライアントIPの許可判定と、保護ルートへの入場ガードを提供する。
//
// 判定関数は許可リストとの完全一致のみを行い、CIDRや範囲指定は扱わない。
// 設定不備や問い合わせ失敗はすべて拒否として扱う。
package gate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/netip"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yangshinyaw/CIACHR/internal/metrics"
	"github.com/yangshinyaw/CIACHR/internal/telemetry"
)

// UnknownIP は転送ヘッダーから発信元を特定できない場合のアドレス。
const UnknownIP = "0.0.0.0"

const (
	headerForwardedFor = "X-Forwarded-For"
	headerRealIP       = "X-Real-IP"
)

// ErrNotConfigured は許可リストの参照先が設定されていないことを表す。
var ErrNotConfigured = errors.New("allowlist store is not configured")

// Origin はリクエスト発信元の候補となる転送ヘッダーの値。
type Origin struct {
	ForwardedFor string
	RealIP       string
}

// OriginFromRequest はリクエストヘッダーからOriginを取り出す。
func OriginFromRequest(r *http.Request) Origin {
	return Origin{
		ForwardedFor: r.Header.Get(headerForwardedFor),
		RealIP:       r.Header.Get(headerRealIP),
	}
}

// IP は判定対象のアドレスを返す。
// X-Forwarded-Forの先頭要素、X-Real-IP、UnknownIPの順に採用する。
// 許可リストと同じ正規形で返すため、IPアドレスとして読める値は正規化する。
func (o Origin) IP() string {
	if o.ForwardedFor != "" {
		first, _, _ := strings.Cut(o.ForwardedFor, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return canonicalIP(ip)
		}
	}
	if ip := strings.TrimSpace(o.RealIP); ip != "" {
		return canonicalIP(ip)
	}
	return UnknownIP
}

// canonicalIP はIPアドレスを正規形にする。読めない値はそのまま返す。
func canonicalIP(s string) string {
	addr, err := netip.ParseAddr(s)
	if err != nil || addr.Zone() != "" {
		return s
	}
	return addr.String()
}

// Apply はOriginの転送ヘッダーをリクエストに設定する。
func (o Origin) Apply(req *http.Request) {
	if o.ForwardedFor != "" {
		req.Header.Set(headerForwardedFor, o.ForwardedFor)
	}
	if o.RealIP != "" {
		req.Header.Set(headerRealIP, o.RealIP)
	}
}

// ClientIP はリクエストの発信元アドレスを返す。
func ClientIP(r *http.Request) string {
	return OriginFromRequest(r).IP()
}

// Decision は許可判定の結果。
type Decision struct {
	Allowed bool   `json:"allowed"`
	IP      string `json:"ip"`
}

// Decider は発信元の許可判定を行う。
// エラーを返す場合もDecisionは拒否を表すこと。
type Decider interface {
	Decide(ctx context.Context, origin Origin) (Decision, error)
}

// Store は許可リストの照会先。
type Store interface {
	Exists(ctx context.Context, ip string) (bool, error)
}

// LocalDecider は許可リストを直接照会するDecider。
type LocalDecider struct {
	store   Store
	metrics metrics.MetricsCollector
	tracer  trace.Tracer
}

// NewLocalDecider はLocalDeciderを生成する。collectorはnilでもよい。
func NewLocalDecider(store Store, collector metrics.MetricsCollector) *LocalDecider {
	return &LocalDecider{
		store:   store,
		metrics: collector,
		tracer:  telemetry.Tracer("gate"),
	}
}

// Decide は発信元アドレスが許可リストに完全一致で存在するかを判定する。
func (d *LocalDecider) Decide(ctx context.Context, origin Origin) (Decision, error) {
	ip := origin.IP()
	ctx, span := d.tracer.Start(ctx, "gate.decide", trace.WithAttributes(
		attribute.String("client.ip", ip),
	))
	defer span.End()

	decision := Decision{Allowed: false, IP: ip}

	if d.store == nil {
		return decision, d.fail(span, ip, ErrNotConfigured)
	}

	ok, err := d.store.Exists(ctx, ip)
	if err != nil {
		return decision, d.fail(span, ip, fmt.Errorf("failed to query allowed ips: %w", err))
	}

	decision.Allowed = ok
	span.SetAttributes(attribute.Bool("gate.allowed", ok))
	if d.metrics != nil {
		d.metrics.RecordGateDecision(ok)
	}
	if !ok {
		slog.Warn("許可リストにないIPからのアクセスを拒否しました", slog.String("ip", ip))
	}
	return decision, nil
}

func (d *LocalDecider) fail(span trace.Span, ip string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, "gate decision failed")
	if d.metrics != nil {
		d.metrics.RecordGateFailure()
	}
	slog.Error("IP許可判定に失敗しました",
		slog.String("ip", ip),
		slog.String("error", err.Error()),
	)
	return err
}
