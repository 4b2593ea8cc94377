package middleware

import (
	"strings"
	"time"
)

// RouteDecision はアクセスゲートの判定結果を表す。
// リクエストを通過させるか、指定パスへリダイレクトするかの2状態のみを持つ。
type RouteDecision struct {
	// Redirect はリダイレクト先のパス。空文字列の場合はリクエストを通過させる。
	Redirect string
}

// Continue はリクエストを通過させる判定を返す。
func Continue() RouteDecision {
	return RouteDecision{}
}

// RedirectTo は指定パスへのリダイレクト判定を返す。
func RedirectTo(path string) RouteDecision {
	return RouteDecision{Redirect: path}
}

// GateConfig はアクセスゲートの保護対象パスとリダイレクト先の設定。
type GateConfig struct {
	// BuyerPrefix はバイヤー専用ページのパスプレフィックス。
	BuyerPrefix string
	// SellerPrefix はセラー専用ページのパスプレフィックス。
	SellerPrefix string
	// OnboardingPath はロール選択（オンボーディング）ページのパス。
	OnboardingPath string
	// LandingPath はセッションが無い・無効な場合のリダイレクト先。
	LandingPath string
	// UnauthorizedPath はロール不一致の場合のリダイレクト先。
	UnauthorizedPath string
}

// DefaultGateConfig はmirrormartの標準ルーティング設定を返す。
func DefaultGateConfig() GateConfig {
	return GateConfig{
		BuyerPrefix:      "/buyer-dashboard",
		SellerPrefix:     "/seller-dashboard",
		OnboardingPath:   "/onboarding",
		LandingPath:      "/",
		UnauthorizedPath: "/unauthorized",
	}
}

// protectedPrefixes は保護対象のパスプレフィックス一覧を返す。
func (cfg GateConfig) protectedPrefixes() []string {
	return []string{cfg.BuyerPrefix, cfg.SellerPrefix, cfg.OnboardingPath}
}

// Decide はリクエストパスとセッションクレームからルーティング判定を行う純粋関数。
// claimsがnilの場合はセッション未取得または解析失敗を意味する。
// 判定順序は、保護対象外の早期通過 → セッション有無 → 有効期限 →
// ロール検査 → オンボーディング済みユーザーの誘導、の順で固定されている。
// 有効期限をロール検査より先に評価するため、期限切れクレームのロール不一致が
// リダイレクト先の違いとして漏れることはない。
func Decide(cfg GateConfig, path string, claims *SessionClaims, now time.Time) RouteDecision {
	protected := false
	for _, prefix := range cfg.protectedPrefixes() {
		if strings.HasPrefix(path, prefix) {
			protected = true
			break
		}
	}
	if !protected {
		return Continue()
	}

	if claims == nil {
		return RedirectTo(cfg.LandingPath)
	}

	// expクレームが欠けている場合も期限切れとして扱う
	if claims.ExpiresAt == nil || now.After(claims.ExpiresAt.Time) {
		return RedirectTo(cfg.LandingPath)
	}

	if strings.HasPrefix(path, cfg.SellerPrefix) && claims.Role != RoleSeller {
		return RedirectTo(cfg.UnauthorizedPath)
	}
	if strings.HasPrefix(path, cfg.BuyerPrefix) && claims.Role != RoleBuyer {
		return RedirectTo(cfg.UnauthorizedPath)
	}

	// ロール設定済みのユーザーが再度オンボーディングを開かないように誘導する
	if path == cfg.OnboardingPath && claims.Role != "" {
		if claims.Role == RoleSeller {
			return RedirectTo(cfg.SellerPrefix)
		}
		return RedirectTo(cfg.BuyerPrefix)
	}

	return Continue()
}
