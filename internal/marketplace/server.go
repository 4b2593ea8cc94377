package marketplace

import (
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	_ "modernc.org/sqlite"

	"github.com/nao1215/mirrormart/internal/mirror"
	"github.com/nao1215/mirrormart/pkg/ecocash"
	"github.com/nao1215/mirrormart/pkg/middleware"
)

// sessionTTL はセッションCookieの有効期間。
const sessionTTL = 5 * 24 * time.Hour

// Server はマーケットプレイスサービスのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port string
	// queries はクエリ実行オブジェクト。
	queries *Queries
	// db はSQLiteデータベース接続。
	db *sql.DB
	// sessionSecret はセッショントークン署名用の秘密鍵。
	sessionSecret string
	// payClient はEcoCash決済クライアント。APIキー未設定の場合はnil。
	payClient *ecocash.Client
	// mirrorClient は試着画像合成クライアント。APIキー未設定の場合はnil。
	mirrorClient *mirror.Client
	// gateConfig はアクセスゲートのルーティング設定。
	gateConfig middleware.GateConfig
}

// NewServer は新しいマーケットプレイスサーバーを生成する。
// SQLiteデータベースの初期化とマイグレーション適用を行う。
func NewServer(port string) (*Server, error) {
	dbPath := getEnvOr("DB_PATH", "/data/marketplace.db")
	sqlDB, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=ON")
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}

	if err := initDatabase(sqlDB); err != nil {
		return nil, fmt.Errorf("マイグレーション適用に失敗: %w", err)
	}

	sessionSecret := os.Getenv("SESSION_SECRET")
	if sessionSecret == "" {
		sessionSecret = "dev-secret-key"
	}

	// EcoCash APIキーが未設定の場合は決済エンドポイントを無効化する。
	// ハードコードされたフォールバックキーは使用しない（フェイルクローズ）。
	var payClient *ecocash.Client
	if key := os.Getenv("ECOCASH_API_KEY"); key != "" {
		payClient, err = ecocash.New(key)
		if err != nil {
			return nil, fmt.Errorf("EcoCashクライアントの生成に失敗: %w", err)
		}
	} else {
		log.Printf("ECOCASH_API_KEYが未設定のため決済APIを無効化します")
	}

	// APIキーが未設定の場合は試着合成エンドポイントも無効化する
	var mirrorClient *mirror.Client
	if key := os.Getenv("MIRROR_API_KEY"); key != "" {
		mirrorClient = mirror.New(
			getEnvOr("MIRROR_API_URL", "https://generativelanguage.googleapis.com"),
			key,
		)
	} else {
		log.Printf("MIRROR_API_KEYが未設定のため試着合成APIを無効化します")
	}

	frontendURL := getEnvOr("FRONTEND_URL", "http://localhost:3000")

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORS([]string{frontendURL}))

	s := &Server{
		router:        router,
		port:          port,
		queries:       NewQueries(sqlDB),
		db:            sqlDB,
		sessionSecret: sessionSecret,
		payClient:     payClient,
		mirrorClient:  mirrorClient,
		gateConfig:    middleware.DefaultGateConfig(),
	}
	s.setupRoutes()

	return s, nil
}

// Run はHTTPサーバーを起動する。
func (s *Server) Run() error {
	return s.router.Run(fmt.Sprintf(":%s", s.port))
}

// setupRoutes はAPIルーティングを設定する。
func (s *Server) setupRoutes() {
	// 認証エンドポイント（セッション不要）
	auth := s.router.Group("/auth")
	{
		auth.POST("/login", s.handleLogin())
		auth.POST("/logout", s.handleLogout())
		// ロール設定はセッション必須
		auth.POST("/set-role", middleware.SessionAuth(s.sessionSecret), s.handleSetRole())
	}

	// ページ系ルート。アクセスゲートがロール検査とリダイレクトを行い、
	// 通過したリクエストにSessionAuthがユーザー情報を設定する。
	pages := s.router.Group("")
	pages.Use(middleware.SessionGate(s.sessionSecret, s.gateConfig))
	pages.Use(middleware.SessionAuth(s.sessionSecret))
	{
		pages.GET("/buyer-dashboard", s.handleBuyerDashboard())
		pages.GET("/seller-dashboard", s.handleSellerDashboard())
		pages.GET("/seller-dashboard/market", s.handleMarketPage())
		pages.GET("/onboarding", s.handleOnboardingPage())
	}

	api := s.router.Group("/api/v1")
	{
		// 商品の閲覧は認証不要
		api.GET("/products", s.handleListProducts())
		api.GET("/products/:id", s.handleGetProduct())
	}

	// 認証必須のAPIエンドポイント
	authed := api.Group("")
	authed.Use(middleware.SessionAuth(s.sessionSecret))
	{
		authed.GET("/me", s.handleMe())
		authed.GET("/profile", s.handleGetProfile())
		authed.PUT("/profile", s.handleUpdateProfile())

		// 商品の出品・削除はセラーのみ
		authed.POST("/products", middleware.RequireRole(middleware.RoleSeller), s.handleCreateProduct())
		authed.DELETE("/products/:id", middleware.RequireRole(middleware.RoleSeller), s.handleDeleteProduct())

		// 購入希望の投稿・管理はバイヤーのみ
		authed.POST("/requests", middleware.RequireRole(middleware.RoleBuyer), s.handleCreateRequest())
		authed.GET("/requests", middleware.RequireRole(middleware.RoleBuyer), s.handleListMyRequests())
		authed.POST("/requests/:id/fulfill", middleware.RequireRole(middleware.RoleBuyer), s.handleFulfillRequest())

		// オファーの送信とマーケット閲覧はセラーのみ
		authed.GET("/requests/open", middleware.RequireRole(middleware.RoleSeller), s.handleListOpenRequests())
		authed.POST("/requests/:id/responses", middleware.RequireRole(middleware.RoleSeller), s.handleCreateResponse())

		// オファー一覧は投稿者とセラーが閲覧できる
		authed.GET("/requests/:id/responses", s.handleListResponses())

		// 決済はバイヤーのみ
		authed.POST("/purchases", middleware.RequireRole(middleware.RoleBuyer), s.handleCreatePurchase())
		authed.GET("/purchases", middleware.RequireRole(middleware.RoleBuyer), s.handleListMyPurchases())

		// バーチャルミラー（試着合成）
		authed.POST("/mirror", s.handleMirror())
	}

	// ヘルスチェック
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "marketplace"})
	})
}

// getEnvOr は環境変数を取得し、設定されていない場合はデフォルト値を返す。
func getEnvOr(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
