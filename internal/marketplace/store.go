package marketplace

import (
	"context"
	"database/sql"
	"embed"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nao1215/mirrormart/pkg/migration"
)

// migrationsFS はマーケットプレイスのスキーマ定義。
//
//go:embed migrations/*.up.sql
var migrationsFS embed.FS

// initDatabase はSQLiteデータベースにマイグレーションを適用する。
func initDatabase(db *sql.DB) error {
	return migration.Run(db, migrationsFS, "migrations")
}

// User はマーケットプレイスのユーザー。
type User struct {
	// ID はユーザーの一意識別子。
	ID string
	// Email はメールアドレス。
	Email string
	// DisplayName は表示名。
	DisplayName string
	// Role はロール。buyer・seller・未設定（空文字列）のいずれか。
	Role string
	// PhotoBase64 はプロフィール画像。
	PhotoBase64 string
	// CreatedAt は作成日時。
	CreatedAt time.Time
	// LastLoginAt は最終ログイン日時。
	LastLoginAt time.Time
}

// Product は出品された商品。
type Product struct {
	// ID は商品の一意識別子。
	ID string
	// SellerID は出品したセラーのユーザーID。
	SellerID string
	// Name は商品名。
	Name string
	// Description は商品説明。
	Description string
	// Price は価格。
	Price decimal.Decimal
	// ImageBase64 は商品画像。
	ImageBase64 string
	// Category はカテゴリ。
	Category string
	// CreatedAt は作成日時。
	CreatedAt time.Time
}

// 購入希望のステータス。
const (
	// RequestStatusOpen はオファー受付中を表す。
	RequestStatusOpen = "open"
	// RequestStatusFulfilled は成約済み（クローズ）を表す。
	RequestStatusFulfilled = "fulfilled"
)

// Request はバイヤーが投稿した購入希望。
type Request struct {
	// ID は購入希望の一意識別子。
	ID string
	// BuyerID は投稿したバイヤーのユーザーID。
	BuyerID string
	// Title は品名。
	Title string
	// Description は希望の詳細。
	Description string
	// ImageBase64 は参考画像。
	ImageBase64 string
	// Status はステータス。
	Status string
	// CreatedAt は作成日時。
	CreatedAt time.Time
}

// Response はセラーが購入希望へ送ったオファー。
type Response struct {
	// ID はオファーの一意識別子。
	ID string
	// RequestID は対象の購入希望ID。
	RequestID string
	// SupplierID はオファーしたセラーのユーザーID。
	SupplierID string
	// SupplierName はオファー時点のセラー表示名。
	SupplierName string
	// Message はオファー内容。
	Message string
	// CreatedAt は作成日時。
	CreatedAt time.Time
}

// Purchase は決済試行の記録。
type Purchase struct {
	// ID は決済試行の一意識別子。
	ID string
	// BuyerID は購入したバイヤーのユーザーID。
	BuyerID string
	// ProductID は対象商品のID。
	ProductID string
	// Amount は決済金額。
	Amount decimal.Decimal
	// Currency は通貨コード。
	Currency string
	// SourceReference はプロバイダの重複排除用参照値。
	SourceReference string
	// StatusCode はプロバイダのHTTPステータスコード。
	StatusCode int
	// Succeeded は決済開始が受理されたかどうか。
	Succeeded bool
	// Message は結果の説明文。
	Message string
	// CreatedAt は作成日時。
	CreatedAt time.Time
}

// Queries はマーケットプレイスのクエリ実行オブジェクト。
type Queries struct {
	db *sql.DB
}

// NewQueries は新しいクエリ実行オブジェクトを生成する。
func NewQueries(db *sql.DB) *Queries {
	return &Queries{db: db}
}

// CreateUserParams はCreateUserのパラメータ。
type CreateUserParams struct {
	ID          string
	Email       string
	DisplayName string
}

// CreateUser はユーザーを作成する。ロールは未設定で作成される。
func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO users (id, email, display_name) VALUES (?, ?, ?)`,
		arg.ID, arg.Email, arg.DisplayName)
	return err
}

// GetUserByID はIDでユーザーを取得する。
func (q *Queries) GetUserByID(ctx context.Context, id string) (User, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT id, email, display_name, role, photo_base64, created_at, last_login_at
		 FROM users WHERE id = ?`, id)
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.DisplayName, &u.Role, &u.PhotoBase64, &u.CreatedAt, &u.LastLoginAt)
	return u, err
}

// GetUserByEmail はメールアドレスでユーザーを取得する。
func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT id, email, display_name, role, photo_base64, created_at, last_login_at
		 FROM users WHERE email = ?`, email)
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.DisplayName, &u.Role, &u.PhotoBase64, &u.CreatedAt, &u.LastLoginAt)
	return u, err
}

// UpdateUserRole はユーザーのロールを更新する。
func (q *Queries) UpdateUserRole(ctx context.Context, id, role string) error {
	_, err := q.db.ExecContext(ctx, `UPDATE users SET role = ? WHERE id = ?`, role, id)
	return err
}

// UpdateUserProfileParams はUpdateUserProfileのパラメータ。
type UpdateUserProfileParams struct {
	ID          string
	DisplayName string
	PhotoBase64 string
}

// UpdateUserProfile はユーザーの表示名とプロフィール画像を更新する。
func (q *Queries) UpdateUserProfile(ctx context.Context, arg UpdateUserProfileParams) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE users SET display_name = ?, photo_base64 = ? WHERE id = ?`,
		arg.DisplayName, arg.PhotoBase64, arg.ID)
	return err
}

// UpdateLastLogin は最終ログイン日時を現在時刻に更新する。
func (q *Queries) UpdateLastLogin(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE users SET last_login_at = datetime('now') WHERE id = ?`, id)
	return err
}

// CreateProductParams はCreateProductのパラメータ。
type CreateProductParams struct {
	ID          string
	SellerID    string
	Name        string
	Description string
	Price       decimal.Decimal
	ImageBase64 string
	Category    string
}

// CreateProduct は商品を作成する。
func (q *Queries) CreateProduct(ctx context.Context, arg CreateProductParams) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO products (id, seller_id, name, description, price, image_base64, category)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		arg.ID, arg.SellerID, arg.Name, arg.Description, arg.Price.String(), arg.ImageBase64, arg.Category)
	return err
}

// scanProduct は1行の商品レコードを読み取る。
func scanProduct(row interface{ Scan(...any) error }) (Product, error) {
	var p Product
	var price string
	if err := row.Scan(&p.ID, &p.SellerID, &p.Name, &p.Description, &price, &p.ImageBase64, &p.Category, &p.CreatedAt); err != nil {
		return Product{}, err
	}
	d, err := decimal.NewFromString(price)
	if err != nil {
		return Product{}, err
	}
	p.Price = d
	return p, nil
}

// GetProductByID はIDで商品を取得する。
func (q *Queries) GetProductByID(ctx context.Context, id string) (Product, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT id, seller_id, name, description, price, image_base64, category, created_at
		 FROM products WHERE id = ?`, id)
	return scanProduct(row)
}

// ListProducts はすべての商品を新しい順に取得する。
func (q *Queries) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, seller_id, name, description, price, image_base64, category, created_at
		 FROM products ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// ListProductsBySeller はセラーの商品を新しい順に取得する。
func (q *Queries) ListProductsBySeller(ctx context.Context, sellerID string) ([]Product, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, seller_id, name, description, price, image_base64, category, created_at
		 FROM products WHERE seller_id = ? ORDER BY created_at DESC, rowid DESC`, sellerID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// DeleteProduct は商品を削除する。
func (q *Queries) DeleteProduct(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	return err
}

// CreateRequestParams はCreateRequestのパラメータ。
type CreateRequestParams struct {
	ID          string
	BuyerID     string
	Title       string
	Description string
	ImageBase64 string
}

// CreateRequest は購入希望をopenステータスで作成する。
func (q *Queries) CreateRequest(ctx context.Context, arg CreateRequestParams) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO requests (id, buyer_id, title, description, image_base64)
		 VALUES (?, ?, ?, ?, ?)`,
		arg.ID, arg.BuyerID, arg.Title, arg.Description, arg.ImageBase64)
	return err
}

// GetRequestByID はIDで購入希望を取得する。
func (q *Queries) GetRequestByID(ctx context.Context, id string) (Request, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT id, buyer_id, title, description, image_base64, status, created_at
		 FROM requests WHERE id = ?`, id)
	var r Request
	err := row.Scan(&r.ID, &r.BuyerID, &r.Title, &r.Description, &r.ImageBase64, &r.Status, &r.CreatedAt)
	return r, err
}

// listRequests は購入希望の一覧クエリを実行する共通処理。
func (q *Queries) listRequests(ctx context.Context, query string, args ...any) ([]Request, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var requests []Request
	for rows.Next() {
		var r Request
		if err := rows.Scan(&r.ID, &r.BuyerID, &r.Title, &r.Description, &r.ImageBase64, &r.Status, &r.CreatedAt); err != nil {
			return nil, err
		}
		requests = append(requests, r)
	}
	return requests, rows.Err()
}

// ListRequestsByBuyer はバイヤーの購入希望を新しい順に取得する。
func (q *Queries) ListRequestsByBuyer(ctx context.Context, buyerID string) ([]Request, error) {
	return q.listRequests(ctx,
		`SELECT id, buyer_id, title, description, image_base64, status, created_at
		 FROM requests WHERE buyer_id = ? ORDER BY created_at DESC, rowid DESC`, buyerID)
}

// ListOpenRequests はオファー受付中の購入希望を新しい順に取得する。
func (q *Queries) ListOpenRequests(ctx context.Context) ([]Request, error) {
	return q.listRequests(ctx,
		`SELECT id, buyer_id, title, description, image_base64, status, created_at
		 FROM requests WHERE status = ? ORDER BY created_at DESC, rowid DESC`, RequestStatusOpen)
}

// UpdateRequestStatus は購入希望のステータスを更新する。
func (q *Queries) UpdateRequestStatus(ctx context.Context, id, status string) error {
	_, err := q.db.ExecContext(ctx, `UPDATE requests SET status = ? WHERE id = ?`, status, id)
	return err
}

// CreateResponseParams はCreateResponseのパラメータ。
type CreateResponseParams struct {
	ID           string
	RequestID    string
	SupplierID   string
	SupplierName string
	Message      string
}

// CreateResponse は購入希望へのオファーを作成する。
func (q *Queries) CreateResponse(ctx context.Context, arg CreateResponseParams) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO responses (id, request_id, supplier_id, supplier_name, message)
		 VALUES (?, ?, ?, ?, ?)`,
		arg.ID, arg.RequestID, arg.SupplierID, arg.SupplierName, arg.Message)
	return err
}

// ListResponsesByRequest は購入希望へのオファーを古い順に取得する。
func (q *Queries) ListResponsesByRequest(ctx context.Context, requestID string) ([]Response, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, request_id, supplier_id, supplier_name, message, created_at
		 FROM responses WHERE request_id = ? ORDER BY created_at ASC, rowid ASC`, requestID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var responses []Response
	for rows.Next() {
		var r Response
		if err := rows.Scan(&r.ID, &r.RequestID, &r.SupplierID, &r.SupplierName, &r.Message, &r.CreatedAt); err != nil {
			return nil, err
		}
		responses = append(responses, r)
	}
	return responses, rows.Err()
}

// CreatePurchaseParams はCreatePurchaseのパラメータ。
type CreatePurchaseParams struct {
	ID              string
	BuyerID         string
	ProductID       string
	Amount          decimal.Decimal
	Currency        string
	SourceReference string
	StatusCode      int
	Succeeded       bool
	Message         string
}

// CreatePurchase は決済試行の記録を作成する。
func (q *Queries) CreatePurchase(ctx context.Context, arg CreatePurchaseParams) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO purchases (id, buyer_id, product_id, amount, currency, source_reference, status_code, succeeded, message)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		arg.ID, arg.BuyerID, arg.ProductID, arg.Amount.String(), arg.Currency,
		arg.SourceReference, arg.StatusCode, arg.Succeeded, arg.Message)
	return err
}

// ListPurchasesByBuyer はバイヤーの決済履歴を新しい順に取得する。
func (q *Queries) ListPurchasesByBuyer(ctx context.Context, buyerID string) ([]Purchase, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, buyer_id, product_id, amount, currency, source_reference, status_code, succeeded, message, created_at
		 FROM purchases WHERE buyer_id = ? ORDER BY created_at DESC, rowid DESC`, buyerID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var purchases []Purchase
	for rows.Next() {
		var p Purchase
		var amount string
		if err := rows.Scan(&p.ID, &p.BuyerID, &p.ProductID, &amount, &p.Currency, &p.SourceReference, &p.StatusCode, &p.Succeeded, &p.Message, &p.CreatedAt); err != nil {
			return nil, err
		}
		d, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, err
		}
		p.Amount = d
		purchases = append(purchases, p)
	}
	return purchases, rows.Err()
}
