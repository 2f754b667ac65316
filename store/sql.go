package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/pkg/conv"
)

// 支持的驱动名。
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

func init() {
	// modernc 注册的驱动名是 "sqlite"，sqlx 默认只认识 "sqlite3"
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// SQLStore 是关系库上的交互数据源（postgres / sqlite），实现 core.InteractionStore 与 core.InteractionWriter。
//
// 交互表至少包含 user_id / article_id / title 三列；存在 id 列时按 id 升序读取，
// 这就是“首次出现优先”依赖的稳定行序。文章表至少包含 article_id / title，
// 其余列（doc_body、description 等）作为可选文本字段读入。
type SQLStore struct {
	db     *sqlx.DB
	driver string

	// InteractionsTable 交互表名，默认 "interactions"
	InteractionsTable string

	// ArticlesTable 文章表名，默认 "articles"；为空字符串时 LoadArticles 返回 ErrStoreNotSupported
	ArticlesTable string
}

// OpenSQLStore 打开数据库连接并 Ping。
func OpenSQLStore(driver, dsn string) (*SQLStore, error) {
	switch driver {
	case DriverPostgres, DriverSQLite:
	default:
		return nil, core.NewInvalidInputError(core.ModuleStore, "unsupported sql driver %q", driver)
	}
	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		// 内存库的每个连接都是独立的数据库
		db.SetMaxOpenConns(1)
	}
	return NewSQLStore(db), nil
}

// NewSQLStore 使用已有连接创建 SQLStore。
func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{
		db:                db,
		driver:            db.DriverName(),
		InteractionsTable: "interactions",
		ArticlesTable:     "articles",
	}
}

func (s *SQLStore) Name() string { return "sql(" + s.driver + ")" }

// DB 返回底层连接。
func (s *SQLStore) DB() *sqlx.DB { return s.db }

func (s *SQLStore) Close() error { return s.db.Close() }

// EnsureSchema 创建交互表与文章表（已存在时跳过）。
func (s *SQLStore) EnsureSchema(ctx context.Context) error {
	idColumn := "id INTEGER PRIMARY KEY AUTOINCREMENT"
	if s.driver == DriverPostgres {
		idColumn = "id BIGSERIAL PRIMARY KEY"
	}
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	%s,
	user_id BIGINT NOT NULL,
	article_id BIGINT NOT NULL,
	title TEXT NOT NULL DEFAULT ''
)`, s.InteractionsTable, idColumn),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_user ON %s (user_id)`, s.InteractionsTable, s.InteractionsTable),
	}
	if s.ArticlesTable != "" {
		stmts = append(stmts, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	article_id BIGINT PRIMARY KEY,
	title TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT ''
)`, s.ArticlesTable))
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// columns 读取表头（不取数据）。
func (s *SQLStore) columns(ctx context.Context, table string) ([]string, error) {
	rows, err := s.db.QueryxContext(ctx, "SELECT * FROM "+table+" WHERE 1 = 0")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return rows.Columns()
}

func hasColumn(cols []string, name string) bool {
	for _, c := range cols {
		if strings.EqualFold(c, name) {
			return true
		}
	}
	return false
}

// LoadInteractions 读取完整交互日志。缺少必需列时返回 INVALID_INPUT。
func (s *SQLStore) LoadInteractions(ctx context.Context) (core.InteractionLog, error) {
	cols, err := s.columns(ctx, s.InteractionsTable)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Name(), err)
	}
	if err := core.RequireColumns(core.ModuleStore, cols, core.ColumnUserID, core.ColumnArticleID, core.ColumnTitle); err != nil {
		return nil, err
	}

	query := "SELECT user_id, article_id, COALESCE(title, '') AS title FROM " + s.InteractionsTable
	if hasColumn(cols, "id") {
		query += " ORDER BY id"
	}
	var log core.InteractionLog
	if err := s.db.SelectContext(ctx, &log, query); err != nil {
		return nil, fmt.Errorf("%s: load interactions: %w", s.Name(), err)
	}
	return log, nil
}

// LoadArticles 读取文章表，按 article_id 升序。表为空或未配置时返回 ErrStoreNotSupported。
func (s *SQLStore) LoadArticles(ctx context.Context) (*core.Corpus, error) {
	if s.ArticlesTable == "" {
		return nil, core.ErrStoreNotSupported
	}
	rows, err := s.db.QueryxContext(ctx, "SELECT * FROM "+s.ArticlesTable+" ORDER BY article_id")
	if err != nil {
		return nil, fmt.Errorf("%s: load articles: %w", s.Name(), err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	if err := core.RequireColumns(core.ModuleStore, cols, core.ColumnArticleID, core.ColumnTitle); err != nil {
		return nil, err
	}
	for i, c := range cols {
		cols[i] = strings.ToLower(strings.TrimSpace(c))
	}

	corpus := &core.Corpus{Columns: cols}
	for rows.Next() {
		row := make(map[string]any, len(cols))
		if err := rows.MapScan(row); err != nil {
			return nil, fmt.Errorf("%s: scan article: %w", s.Name(), err)
		}
		a := core.Article{Fields: make(map[string]string, len(cols))}
		for k, v := range row {
			k = strings.ToLower(k)
			switch k {
			case core.ColumnArticleID:
				id, ok := conv.ToInt64(v)
				if !ok {
					return nil, core.NewInvalidInputError(core.ModuleStore, "article_id %v is not an integer", v)
				}
				a.ArticleID = id
			case core.ColumnTitle:
				a.Title = textValue(v)
			default:
				a.Fields[k] = textValue(v)
			}
		}
		corpus.Articles = append(corpus.Articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// 空表按“没有文章表”处理，由交互日志派生
	if len(corpus.Articles) == 0 {
		return nil, core.ErrStoreNotSupported
	}
	return corpus, nil
}

// textValue 把驱动返回的值转成文本，NULL 视为空字符串。
func textValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}

// AppendInteractions 在一个事务里批量写入交互。
func (s *SQLStore) AppendInteractions(ctx context.Context, interactions ...core.Interaction) error {
	if len(interactions) == 0 {
		return nil
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	query := "INSERT INTO " + s.InteractionsTable + " (user_id, article_id, title) VALUES (:user_id, :article_id, :title)"
	for _, in := range interactions {
		if _, err := tx.NamedExecContext(ctx, query, in); err != nil {
			return fmt.Errorf("%s: append interaction: %w", s.Name(), err)
		}
	}
	return tx.Commit()
}

// UpsertArticles 写入文章的 article_id、title 与 description（取自 Fields["description"]）。
// 已存在时更新标题；新的 description 为空时保留原值。
func (s *SQLStore) UpsertArticles(ctx context.Context, articles ...core.Article) error {
	if s.ArticlesTable == "" {
		return core.ErrStoreNotSupported
	}
	if len(articles) == 0 {
		return nil
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	query := "INSERT INTO " + s.ArticlesTable + " (article_id, title, description)" +
		" VALUES (:article_id, :title, :description)" +
		" ON CONFLICT (article_id) DO UPDATE SET title = excluded.title," +
		" description = CASE WHEN excluded.description <> '' THEN excluded.description" +
		" ELSE " + s.ArticlesTable + ".description END"
	for _, a := range articles {
		arg := map[string]any{
			"article_id":  a.ArticleID,
			"title":       a.Title,
			"description": a.Text("description"),
		}
		if _, err := tx.NamedExecContext(ctx, query, arg); err != nil {
			return fmt.Errorf("%s: upsert article: %w", s.Name(), err)
		}
	}
	return tx.Commit()
}

var (
	_ core.InteractionStore  = (*SQLStore)(nil)
	_ core.InteractionWriter = (*SQLStore)(nil)
)
