// 数据导入工具：读取门店 JSON 数组（本地文件或 URL），批量写入 PostgreSQL 门店表
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"locator/internal/candidate"
	"locator/internal/config"
	"locator/internal/logger"
	"locator/internal/migrate"
	"locator/internal/source"
)

func main() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join("data", "env", ".env"))
	l := logger.Setup()

	src := flag.String("src", os.Getenv("SRC_URL"), "门店 JSON 文件路径或 http(s) 地址")
	deactivate := flag.Bool("deactivate-missing", false, "将本批未出现的门店置为停用")
	flag.Parse()
	if *src == "" {
		*src = filepath.Join("data", "retailers.json")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	cands, err := readCandidates(ctx, *src)
	if err != nil {
		l.Error("import_read_error", "src", *src, "err", err)
		os.Exit(1)
	}
	l.Info("import_read_ok", "src", *src, "count", len(cands))

	db, err := source.OpenPostgres(config.BuildPostgresDSN(), 10, 10)
	if err != nil {
		l.Error("db_open_error", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := migrate.EnsureSchema(ctx, db); err != nil {
		l.Error("schema_error", "err", err)
		os.Exit(1)
	}

	n, err := migrate.Upsert(ctx, db, migrate.FromCandidates(cands), *deactivate)
	if err != nil {
		l.Error("import_upsert_error", "err", err)
		os.Exit(1)
	}
	l.Info("import_done", "count", n)
}

// readCandidates 远程地址走 HTTP GET，其余按本地文件读取
func readCandidates(ctx context.Context, src string) ([]candidate.Candidate, error) {
	var r io.ReadCloser
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
		if err != nil {
			return nil, err
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("bad status %d", resp.StatusCode)
		}
		r = resp.Body
	} else {
		f, err := os.Open(src)
		if err != nil {
			return nil, err
		}
		r = f
	}
	defer r.Close()
	return candidate.Decode(r)
}
