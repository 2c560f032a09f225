package main

import (
	"fmt"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/trezcool/alama/core"
	logsvc "github.com/trezcool/alama/services/logger"
	"github.com/trezcool/alama/storage/database"
	sqlxrepos "github.com/trezcool/alama/storage/database/sqlx"
)

var logger *zap.SugaredLogger

func main() {
	conf := core.NewConfig()

	zl, err := logsvc.NewZapLogger(conf)
	if err != nil {
		log.Fatal(err)
	}
	logger = zl.Named("admin").Sugar()
	defer func() { _ = logger.Sync() }()

	// set up DB
	if err = database.CreateIfNotExist(conf); err != nil {
		logger.Fatalw("creating database", "error", err)
	}
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatalw("opening database", "error", err)
	}
	defer db.Close()

	// start CLI
	cli := commandLine{
		db:             db,
		usrRepo:        sqlxrepos.NewUserRepository(db),
		courseRepo:     sqlxrepos.NewCourseRepository(db),
		gradeRepo:      sqlxrepos.NewGradeRepository(db),
		attendanceRepo: sqlxrepos.NewAttendanceRepository(db),
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Errorw(fmt.Sprintf("%s failed", os.Args[1]), "error", err)
		}
		_ = db.Close()
		os.Exit(1)
	}
}
