// Package indexdb keeps a queryable SQLite index of runs, per-tick reports
// and config problems. The JSONL tick logs remain the source of truth; the
// index may drop rows under load.
package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"beltworks.dev/internal/sim/catalogs"
	"beltworks.dev/internal/sim/tuning"
	"beltworks.dev/internal/sim/world"
)

type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropTick    atomic.Uint64
	dropRun     atomic.Uint64
	dropProblem atomic.Uint64
}

type reqKind int

const (
	reqTick reqKind = iota + 1
	reqRun
	reqProblem
)

type req struct {
	kind reqKind

	tick    world.TickLogEntry
	run     runRow
	problem problemRow
}

type runRow struct {
	RunID          string
	WorldID        string
	CatalogsDigest string
	StartedAt      string
}

type problemRow struct {
	RunID   string
	Problem catalogs.Problem
}

type Stats struct {
	QueueDepth       int    `json:"queue_depth"`
	QueueCapacity    int    `json:"queue_capacity"`
	DropTickTotal    uint64 `json:"drop_tick_total"`
	DropRunTotal     uint64 `json:"drop_run_total"`
	DropProblemTotal uint64 `json:"drop_problem_total"`
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL is much faster for append-style workloads.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			world_id TEXT NOT NULL,
			catalogs_digest TEXT NOT NULL,
			started_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS ticks (
			run_id TEXT NOT NULL,
			tick INTEGER NOT NULL,
			digest TEXT NOT NULL,
			messages INTEGER NOT NULL,
			accepted INTEGER NOT NULL,
			partial INTEGER NOT NULL,
			refunded INTEGER NOT NULL,
			out_of_bounds INTEGER NOT NULL,
			items_delivered INTEGER NOT NULL,
			energy_offered INTEGER NOT NULL,
			energy_delivered INTEGER NOT NULL,
			PRIMARY KEY (run_id, tick)
		);`,
		`CREATE TABLE IF NOT EXISTS problems (
			run_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			file TEXT NOT NULL,
			entry TEXT NOT NULL,
			msg TEXT NOT NULL,
			PRIMARY KEY (run_id, seq)
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) Stats() Stats {
	return Stats{
		QueueDepth:       len(s.ch),
		QueueCapacity:    cap(s.ch),
		DropTickTotal:    s.dropTick.Load(),
		DropRunTotal:     s.dropRun.Load(),
		DropProblemTotal: s.dropProblem.Load(),
	}
}

func (s *SQLiteIndex) enqueue(r req, drops *atomic.Uint64) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- r:
	default:
		// Drop if the indexer falls behind; JSONL logs remain the source of truth.
		drops.Add(1)
	}
}

func (s *SQLiteIndex) WriteTick(entry world.TickLogEntry) error {
	s.enqueue(req{kind: reqTick, tick: entry}, &s.dropTick)
	return nil
}

func (s *SQLiteIndex) RecordRun(runID, worldID, catalogsDigest string) {
	s.enqueue(req{kind: reqRun, run: runRow{
		RunID:          runID,
		WorldID:        worldID,
		CatalogsDigest: catalogsDigest,
		StartedAt:      time.Now().UTC().Format(time.RFC3339Nano),
	}}, &s.dropRun)
}

func (s *SQLiteIndex) RecordProblems(runID string, problems []catalogs.Problem) {
	for _, p := range problems {
		s.enqueue(req{kind: reqProblem, problem: problemRow{RunID: runID, Problem: p}}, &s.dropProblem)
	}
}

func (s *SQLiteIndex) UpsertCatalogs(configDir string, cats *catalogs.Catalogs, tune tuning.Tuning) error {
	if s == nil {
		return nil
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)

	type kv struct {
		name   string
		digest string
		json   []byte
	}
	var rows []kv
	read := func(name, file, digest string) {
		if configDir == "" {
			return
		}
		b, err := os.ReadFile(filepath.Join(configDir, file))
		if err != nil {
			return
		}
		rows = append(rows, kv{name: name, digest: digest, json: b})
	}
	read("items_defs", "items.json", cats.Items.DefsDigest)
	read("surfaces", "surfaces.json", cats.Surfaces.Digest)
	read("buildings", "buildings.json", cats.Buildings.Digest)
	if b, _ := json.Marshal(cats.Items.Registry.Palette()); len(b) > 0 {
		rows = append(rows, kv{name: "items_palette", digest: cats.Items.PaletteDigest, json: b})
	}

	// Tuning: store the values we actually apply (canonical JSON).
	{
		b, _ := json.Marshal(tune)
		sum := sha256.Sum256(b)
		rows = append(rows, kv{name: "tuning", digest: hex.EncodeToString(sum[:]), json: b})
	}

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO catalogs(name,digest,json,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if r.name == "" || r.digest == "" || len(r.json) == 0 {
			continue
		}
		if _, err := stmt.Exec(r.name, r.digest, string(r.json), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// RunTotals sums the indexed reports of one run.
type RunTotals struct {
	Ticks           int64 `json:"ticks"`
	Messages        int64 `json:"messages"`
	Refunded        int64 `json:"refunded"`
	ItemsDelivered  int64 `json:"items_delivered"`
	EnergyDelivered int64 `json:"energy_delivered"`
}

func (s *SQLiteIndex) RunTotals(ctx context.Context, runID string) (RunTotals, error) {
	var t RunTotals
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(SUM(messages),0), COALESCE(SUM(refunded),0),
		COALESCE(SUM(items_delivered),0), COALESCE(SUM(energy_delivered),0) FROM ticks WHERE run_id=?`, runID)
	err := row.Scan(&t.Ticks, &t.Messages, &t.Refunded, &t.ItemsDelivered, &t.EnergyDelivered)
	return t, err
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertTick, _ := s.db.Prepare(`INSERT OR REPLACE INTO ticks(run_id,tick,digest,messages,accepted,partial,refunded,out_of_bounds,items_delivered,energy_offered,energy_delivered) VALUES(?,?,?,?,?,?,?,?,?,?,?)`)
	insertRun, _ := s.db.Prepare(`INSERT OR REPLACE INTO runs(run_id,world_id,catalogs_digest,started_at) VALUES(?,?,?,?)`)
	insertProblem, _ := s.db.Prepare(`INSERT OR REPLACE INTO problems(run_id,seq,file,entry,msg) VALUES(?,?,?,?,?)`)
	defer func() {
		for _, st := range []*sql.Stmt{insertTick, insertRun, insertProblem} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 2000
		commitMaxWait = 2 * time.Second

		problemSeq = map[string]int{}
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			// If we can't start a tx, we can't do much; sleep a bit.
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	exec := func(st *sql.Stmt, args ...any) {
		if st == nil || tx == nil {
			return
		}
		if _, err := tx.Stmt(st).Exec(args...); err != nil {
			rollback()
			return
		}
		opCount++
	}

	// Commit when the queue drains so readers never wait long for the
	// single connection; batch only under load.
	flushIfNeeded := func() {
		if tx == nil {
			return
		}
		if len(s.ch) == 0 || opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqTick:
			e, rep := r.tick, r.tick.Report
			exec(insertTick,
				e.RunID,
				int64(e.Tick),
				e.Digest,
				int64(rep.Messages),
				int64(rep.Accepted),
				int64(rep.Partial),
				int64(rep.Refunded),
				int64(rep.OutOfBounds),
				int64(rep.ItemsDelivered),
				int64(rep.EnergyOffered),
				int64(rep.EnergyDelivered),
			)
		case reqRun:
			exec(insertRun, r.run.RunID, r.run.WorldID, r.run.CatalogsDigest, r.run.StartedAt)
		case reqProblem:
			p := r.problem
			seq := problemSeq[p.RunID]
			problemSeq[p.RunID] = seq + 1
			exec(insertProblem, p.RunID, seq, p.Problem.File, p.Problem.Entry, p.Problem.Msg)
		}
		flushIfNeeded()
	}

	commit()
}
