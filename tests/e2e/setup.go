//go:build e2e

package e2e

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"lounge-booking/cmd/bootstrap"
	"lounge-booking/cmd/bootstrap/components"
	"lounge-booking/internal/infra/db"
	"lounge-booking/internal/infra/uow"
	"lounge-booking/internal/pkg/config"
	"lounge-booking/internal/usecase/shared"
	"lounge-booking/tests/common/dbtest"

	"github.com/docker/go-connections/nat"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/fx"
)

const (
	testUser     = "test"
	testPassword = "testpass"
)

var (
	postgresOnce      sync.Once
	postgresContainer testcontainers.Container

	redisOnce      sync.Once
	redisContainer testcontainers.Container

	// マイグレーション済みのテンプレートDB。スイート毎にここから複製する
	templateOnce sync.Once
	templateName string
	templateErr  error
)

type ContainerInfo struct {
	Host string
	Port nat.Port
}

func (c ContainerInfo) Addr() string {
	return c.Host + ":" + c.Port.Port()
}

type environment struct {
	pool   *pgxpool.Pool
	router *gin.Engine
	cfg    config.Config
	cache  *redis.Client
}

// ------------------------------------------------------------
// スイート毎の環境 (専用DB + 専用キャッシュprefix)
// ------------------------------------------------------------
func setupE2EEnvironment(t *testing.T) environment {
	gin.SetMode(gin.TestMode)

	pg := startContainer(t, &postgresOnce, &postgresContainer, postgresRequest(), "5432/tcp")
	rd := startContainer(t, &redisOnce, &redisContainer, redisRequest(), "6379/tcp")

	dbConfig := cloneDatabase(t, pg)
	pool, _, err := db.Connect(context.Background(), dbConfig)
	require.NoError(t, err, "データベース接続に失敗")
	t.Cleanup(pool.Close)

	require.NoError(t, dbtest.SeedReferenceData(pool), "参照データの投入に失敗")

	cfg := config.NewTestConfig()
	cfg.DB = dbConfig
	cfg.Booking.StoreDriver = config.StoreDriverPostgres
	cfg.Redis.Enabled = true
	cfg.Redis.Addr = rd.Addr()
	cfg.Redis.Prefix = "e2e-" + dbConfig.DBName

	env := buildE2EApp(t, pool, cfg)

	slog.Info("E2E環境の準備が完了しました",
		"database", dbConfig.DBName,
		"postgres", pg.Addr(),
		"redis", rd.Addr(),
		"cache_enabled", env.cache != nil)

	return env
}

// ------------------------------------------------------------
// コンテナ起動 (プロセス内で一度だけ)
// ------------------------------------------------------------
func startContainer(t *testing.T, once *sync.Once, target *testcontainers.Container, req testcontainers.ContainerRequest, port string) ContainerInfo {
	t.Helper()

	once.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
		defer cancel()

		c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: req,
			Started:          true,
		})
		require.NoError(t, err, "コンテナの起動に失敗: %s", req.Image)
		*target = c

		t.Cleanup(func() {
			stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer stopCancel()
			if err := c.Terminate(stopCtx); err != nil {
				slog.Warn("コンテナの終了に失敗しました", "image", req.Image, "error", err.Error())
			}
		})
	})
	require.NotNil(t, *target, "コンテナが起動していません: %s", req.Image)

	info, err := containerInfo(*target, port)
	require.NoError(t, err, "コンテナ情報の取得に失敗: %s", req.Image)
	return info
}

func postgresRequest() testcontainers.ContainerRequest {
	return testcontainers.ContainerRequest{
		Image:        "postgres:17",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     testUser,
			"POSTGRES_PASSWORD": testPassword,
			"POSTGRES_DB":       "postgres",
		},
		Tmpfs: map[string]string{
			"/var/lib/postgresql/data": "rw,size=512m", // データをRAMに載せてI/O削減
		},
		// 耐久性は不要。並行予約テストのため接続数は多めに取る
		Cmd: []string{
			"postgres",
			"-c", "fsync=off",
			"-c", "full_page_writes=off",
			"-c", "synchronous_commit=off",
			"-c", "max_connections=200",
			"-c", "log_statement=none",
		},
		WaitingFor: wait.ForSQL("5432/tcp", "pgx", func(host string, port nat.Port) string {
			return adminDSN(ContainerInfo{Host: host, Port: port})
		}).WithStartupTimeout(60 * time.Second),
		Labels: map[string]string{"purpose": "lounge-e2e"},
	}
}

func redisRequest() testcontainers.ContainerRequest {
	return testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		Cmd:          []string{"redis-server", "--save", "", "--appendonly", "no"},
		WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		Labels:       map[string]string{"purpose": "lounge-e2e"},
	}
}

// ------------------------------------------------------------
// データベース準備
// ------------------------------------------------------------
func adminDSN(pg ContainerInfo) string {
	return fmt.Sprintf("postgres://%s:%s@%s/postgres?sslmode=disable", testUser, testPassword, pg.Addr())
}

func dbConfigFor(pg ContainerInfo, name string) config.DBConfig {
	return config.DBConfig{
		Host:     pg.Host,
		Port:     pg.Port.Port(),
		User:     testUser,
		Password: testPassword,
		DBName:   name,
		SSLMode:  "disable",
		TimeZone: "UTC",
		MaxConns: 40,
	}
}

// マイグレーションはテンプレートに一度だけ流し、スイートはそれを複製して使う
func prepareTemplate(pg ContainerInfo) (string, error) {
	templateOnce.Do(func() {
		name := "lounge_tmpl_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		admin, err := pgxpool.New(ctx, adminDSN(pg))
		if err != nil {
			templateErr = fmt.Errorf("failed to connect as admin: %w", err)
			return
		}
		defer admin.Close()

		if _, err := admin.Exec(ctx, "CREATE DATABASE "+name); err != nil {
			templateErr = fmt.Errorf("failed to create template database: %w", err)
			return
		}

		pool, _, err := db.Connect(ctx, dbConfigFor(pg, name))
		if err != nil {
			templateErr = err
			return
		}
		applied, err := applyMigrations(ctx, pool)
		// CREATE DATABASE ... TEMPLATE は接続が残っていると失敗する
		pool.Close()
		if err != nil {
			templateErr = err
			return
		}

		slog.Info("テンプレートDBにマイグレーションを適用しました", "database", name, "files", applied)
		templateName = name
	})
	return templateName, templateErr
}

func cloneDatabase(t *testing.T, pg ContainerInfo) config.DBConfig {
	t.Helper()

	tmpl, err := prepareTemplate(pg)
	require.NoError(t, err, "テンプレートDBの準備に失敗")

	name := "lounge_" + strings.ReplaceAll(uuid.NewString(), "-", "")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	admin, err := pgxpool.New(ctx, adminDSN(pg))
	require.NoError(t, err, "管理者接続に失敗")
	defer admin.Close()

	// 複製元を同時に読むスイートがあると "being accessed by other users" になるので少し待って再試行
	var createErr error
	for attempt := range 5 {
		if attempt > 0 {
			time.Sleep(time.Duration(attempt) * 300 * time.Millisecond)
			slog.Warn("データベース複製を再試行中", "attempt", attempt+1, "error", createErr.Error())
		}
		_, createErr = admin.Exec(ctx, fmt.Sprintf("CREATE DATABASE %s TEMPLATE %s", name, tmpl))
		if createErr == nil {
			break
		}
	}
	require.NoError(t, createErr, "テスト用データベースの作成に失敗")

	t.Cleanup(func() {
		dropCtx, dropCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer dropCancel()
		dropper, err := pgxpool.New(dropCtx, adminDSN(pg))
		if err != nil {
			slog.Warn("クリーンアップ用のデータベース接続に失敗しました", "database", name, "error", err.Error())
			return
		}
		defer dropper.Close()
		if _, err := dropper.Exec(dropCtx, "DROP DATABASE IF EXISTS "+name+" WITH (FORCE)"); err != nil {
			slog.Warn("テストデータベースの削除に失敗しました", "database", name, "error", err.Error())
		}
	})

	return dbConfigFor(pg, name)
}

// go test はパッケージディレクトリで走るので migrations/ を親方向に探す
func migrationsDir() (string, error) {
	dir := "migrations"
	for range 4 {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir, nil
		}
		dir = filepath.Join("..", dir)
	}
	return "", fmt.Errorf("migrations directory not found")
}

func applyMigrations(ctx context.Context, pool *pgxpool.Pool) ([]string, error) {
	dir, err := migrationsDir()
	if err != nil {
		return nil, err
	}
	migrations, err := db.LoadMigrations(os.DirFS(dir))
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations from %s: %w", dir, err)
	}
	if len(migrations) == 0 {
		return nil, fmt.Errorf("no migrations found in %s", dir)
	}
	return db.ApplyMigrations(ctx, pool, migrations)
}

// ------------------------------------------------------------
// E2Eテスト用アプリケーション構築
// 本番と同じモジュール構成で、DBだけテスト用プールに差し替える
// ------------------------------------------------------------
func buildE2EApp(t *testing.T, pool *pgxpool.Pool, cfg config.Config) environment {
	t.Helper()

	var env environment
	env.pool = pool

	app := fx.New(
		fx.Module("testdb",
			fx.Provide(func() shared.UnitOfWork { return uow.NewPostgresUoW(pool) }),
		),
		fx.Supply(cfg),
		fx.Provide(func() *gin.Engine { return gin.New() }),
		bootstrap.LoggerModule,
		bootstrap.RedisModule,
		bootstrap.BrokerModule,
		components.PersistenceModule,
		components.UseCaseModule,
		components.HandlerModule,

		fx.Populate(&env.router, &env.cfg, &env.cache),

		// ログを無効にして起動
		fx.NopLogger,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	require.NoError(t, app.Start(ctx), "fxアプリケーションの起動に失敗")

	t.Cleanup(func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer stopCancel()
		if err := app.Stop(stopCtx); err != nil {
			slog.Warn("fxアプリケーションの停止に失敗しました", "error", err.Error())
		}
	})

	require.NotNil(t, env.router, "Routerのセットアップに失敗")
	return env
}

func containerInfo(c testcontainers.Container, port string) (ContainerInfo, error) {
	ctx := context.Background()
	mappedPort, err := c.MappedPort(ctx, nat.Port(port))
	if err != nil {
		return ContainerInfo{}, err
	}
	host, err := c.Host(ctx)
	if err != nil {
		return ContainerInfo{}, err
	}
	return ContainerInfo{Host: host, Port: mappedPort}, nil
}

// ------------------------------------------------------------
// E2Eテストスイートで共通のセットアップ
// ------------------------------------------------------------
type SharedSuite struct {
	suite.Suite
	Router *gin.Engine
	DB     *pgxpool.Pool // 各テストで使う DB 接続
	Cache  *redis.Client // キャッシュ未接続なら nil
	Config config.Config
}

func (s *SharedSuite) SetupSuite() {
	env := setupE2EEnvironment(s.T())
	s.DB = env.pool
	s.Router = env.router
	s.Config = env.cfg
	s.Cache = env.cache
}

func (s *SharedSuite) SetupSubTest() {
	// TRUNCATE はキャッシュの無効化を通らないのでスナップショットも捨てる
	err := dbtest.ResetDB(s.DB)
	require.NoError(s.T(), err, "Failed to reset database state")
	if s.Cache != nil {
		require.NoError(s.T(), s.Cache.FlushDB(context.Background()).Err(), "Failed to flush availability cache")
	}
}
