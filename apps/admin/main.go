package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/trezcool/credeval/core"
	"github.com/trezcool/credeval/core/scale"
	"github.com/trezcool/credeval/core/student"
	logsvc "github.com/trezcool/credeval/services/logger"
	"github.com/trezcool/credeval/storage/database"
	"github.com/trezcool/credeval/storage/database/inmem"
	sqlxrepos "github.com/trezcool/credeval/storage/database/sqlx"
)

const engineInMemory = "inmem"

func main() {
	conf := core.NewConfig()
	baseLogger := logsvc.NewLogger(os.Stderr, conf)
	logger := baseLogger.With("admin")

	var (
		cli       = commandLine{out: os.Stdout}
		scaleRepo scale.Repository
		stRepo    student.Repository
	)

	// set up DB & repos
	if conf.Database.Engine == engineInMemory {
		db := inmemdb.Open()
		scaleRepo, stRepo = inmemdb.NewScaleRepository(db), inmemdb.NewStudentRepository(db)
	} else {
		db, err := database.Open(context.Background(), conf)
		if err != nil {
			logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
		}
		defer db.Close()
		cli.db = db.DB
		scaleRepo, stRepo = sqlxrepos.NewScaleRepository(db), sqlxrepos.NewStudentRepository(db)
	}

	// set up services
	validator := core.NewValidator()
	cli.scaleSvc = scale.NewService(scaleRepo, validator, logger)
	cli.studentSvc = student.NewService(stRepo, cli.scaleSvc, validator, logger, conf)
	cli.scaleSvc.Subscribe(cli.studentSvc.OnScaleChanged)

	// start CLI
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("error: %s", err), err)
			if core.IsValidationError(err) {
				for _, fld := range errors.Cause(err).(*core.ValidationError).Fields {
					fmt.Fprintf(os.Stderr, "  %s: %s\n", fld.Field, fld.Error)
				}
			}
		}
		baseLogger.Close()
		os.Exit(1)
	}
	baseLogger.Close()
}
