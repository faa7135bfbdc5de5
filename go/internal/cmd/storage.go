package main

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/fileupload/go/internal/config"
	"github.com/mcdev12/fileupload/go/internal/dbconfig"
	"github.com/mcdev12/fileupload/go/internal/intake"
	"github.com/mcdev12/fileupload/go/internal/ledger"
	"github.com/mcdev12/fileupload/go/internal/storage/fsstore"
	"github.com/mcdev12/fileupload/go/internal/storage/natsstore"
	"github.com/mcdev12/fileupload/go/internal/storage/pgstore"
)

type natsConn struct {
	js jetstream.JetStream
}

// storage is the ledger backend and upload store of one deployment.
type storage struct {
	backend ledger.Backend
	files   intake.FileStore
	close   func()
}

func (s storage) Close() {
	if s.close != nil {
		s.close()
	}
}

func setupStorage(ctx context.Context, cfg config.Config, nc *natsConn) (storage, error) {
	switch cfg.StorageBackend {
	case config.StorageFS:
		store, err := fsstore.New(cfg.SubmissionRoot, cfg.LedgerFileName)
		if err != nil {
			return storage{}, err
		}
		log.Info().Str("ledger", store.LedgerPath()).Msg("using filesystem storage")
		return storage{backend: store, files: store}, nil

	case config.StorageNATS:
		store, err := natsstore.New(ctx, nc.js, cfg.NATSBucket)
		if err != nil {
			return storage{}, err
		}
		log.Info().Str("bucket", cfg.NATSBucket).Msg("using NATS object storage")
		return storage{backend: store, files: store}, nil

	case config.StoragePostgres:
		dbCfg, err := dbconfig.NewConfigFromEnv()
		if err != nil {
			return storage{}, err
		}
		pool, err := pgstore.Connect(ctx, dbCfg.DSN())
		if err != nil {
			return storage{}, err
		}
		store, err := pgstore.New(ctx, pool)
		if err != nil {
			pool.Close()
			return storage{}, err
		}
		log.Info().
			Str("database", dbCfg.Database).
			Str("host", dbCfg.Host).
			Msg("using Postgres storage")
		return storage{backend: store, files: store, close: pool.Close}, nil

	default:
		return storage{}, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}
