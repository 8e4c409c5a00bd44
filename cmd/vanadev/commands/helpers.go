// Package commands implements the vanadev CLI subcommands.
package commands

import (
	"database/sql"
	"os"
	"path/filepath"

	"github.com/chuangyeshuo/vanadev/conf"
	"github.com/chuangyeshuo/vanadev/db"
	"github.com/chuangyeshuo/vanadev/envfile"
	"github.com/chuangyeshuo/vanadev/errors"
	"github.com/chuangyeshuo/vanadev/logger"
	"github.com/chuangyeshuo/vanadev/pyenv"
	"github.com/chuangyeshuo/vanadev/runner"
)

// findManifest locates the project manifest from the working directory
func findManifest() (*envfile.Manifest, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrap(err, "determine working directory")
	}
	return envfile.Find(cwd)
}

// databasePath resolves the configured database path against the project root
func databasePath(cfg *conf.Config, projectRoot string) string {
	path := cfg.Database.Path
	if !filepath.IsAbs(path) {
		path = filepath.Join(projectRoot, path)
	}
	return path
}

// openDatabase opens and migrates the state database for a project
func openDatabase(cfg *conf.Config, projectRoot string) (*sql.DB, error) {
	path := databasePath(cfg, projectRoot)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.Wrap(err, "create database directory")
	}

	conn, err := db.Open(path, logger.Named("db"))
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(conn, logger.Named("db")); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

// buildRunner assembles the full runner stack: config, manifest, database,
// provisioner, history.
func buildRunner() (*runner.Runner, *envfile.Manifest, *sql.DB, error) {
	cfg, err := conf.Load()
	if err != nil {
		return nil, nil, nil, err
	}
	manifest, err := findManifest()
	if err != nil {
		return nil, nil, nil, err
	}
	database, err := openDatabase(cfg, manifest.Root())
	if err != nil {
		return nil, nil, nil, err
	}

	provisioner := pyenv.NewProvisioner(pyenv.NewStore(database), logger.Logger)
	history := runner.NewHistoryStore(database)
	r := runner.New(manifest, provisioner, history, cfg.Runner, logger.Logger)
	return r, manifest, database, nil
}

// hooksManifestPath resolves the hooks manifest path for a repo root
func hooksManifestPath(cfg *conf.Config, repoRoot string) string {
	path := cfg.Hooks.ManifestPath
	if !filepath.IsAbs(path) {
		path = filepath.Join(repoRoot, path)
	}
	return path
}
