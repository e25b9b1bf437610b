package gate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// maxResponseBytes は判定エンドポイントのレスポンスとして読み取る上限。
const maxResponseBytes = 64 * 1024

// decisionResponse は判定エンドポイントのレスポンス形式。
type decisionResponse struct {
	Allowed bool   `json:"allowed"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	IP      string `json:"ip"`
}

// RemoteDecider はHTTPの判定エンドポイントに問い合わせるDecider。
// 発信元の転送ヘッダーをそのまま引き継いで送る。
type RemoteDecider struct {
	httpClient *http.Client
	endpoint   string
}

// NewRemoteDecider はRemoteDeciderを生成する。
func NewRemoteDecider(httpClient *http.Client, endpoint string) *RemoteDecider {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &RemoteDecider{httpClient: httpClient, endpoint: endpoint}
}

// Decide は判定エンドポイントを呼び出す。
// 200以外の応答や不正なレスポンスはエラーとし、拒否を返す。
func (d *RemoteDecider) Decide(ctx context.Context, origin Origin) (Decision, error) {
	denied := Decision{Allowed: false, IP: origin.IP()}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, nil)
	if err != nil {
		return denied, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	origin.Apply(req)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return denied, fmt.Errorf("判定エンドポイントの呼び出しに失敗しました: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return denied, fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}

	var result decisionResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return denied, fmt.Errorf("判定レスポンスのパースに失敗しました (status %d): %w", resp.StatusCode, err)
	}
	if result.IP != "" {
		denied.IP = result.IP
	}

	if resp.StatusCode != http.StatusOK {
		return denied, fmt.Errorf("判定エンドポイントがステータス %d を返しました: %s %s", resp.StatusCode, result.Message, result.Details)
	}

	return Decision{Allowed: result.Allowed, IP: denied.IP}, nil
}
