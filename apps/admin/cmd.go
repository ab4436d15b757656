package main

import (
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/masomo-emis/core"
	"github.com/trezcool/masomo-emis/core/enrollment"
	"github.com/trezcool/masomo-emis/storage/database"
	sqlxrepos "github.com/trezcool/masomo-emis/storage/database/sqlx"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	conf   *core.Config
	logger core.Logger
	out    io.Writer

	// set by connect, unless already set
	db   *sqlx.DB
	repo enrollment.Repository
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS...] - run a goose command (up, down, status, version, redo, reset, ...)")
	fmt.Fprintln(cli.out, "  tuition [-grade GRADE] [-option full|installment] - print the tuition of one or every grade")
	fmt.Fprintln(cli.out, "  export -o FILE.xlsx [-search NAME] [-grade GRADE] [-status STATUS] [-ordering FIELDS] - export the enrollments")
}

// connect opens the database on first use. The tuition command never needs it.
func (cli *commandLine) connect() error {
	if cli.repo != nil {
		return nil
	}
	db, err := database.Open(cli.conf)
	if err != nil {
		return err
	}
	cli.db = db
	cli.repo = sqlxrepos.NewEnrollmentRepository(db)
	return nil
}

func (cli *commandLine) close() {
	if cli.db == nil {
		return
	}
	if err := cli.db.Close(); err != nil {
		cli.logger.Error("closing database", err)
	}
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	tuitionCmd := flag.NewFlagSet("tuition", flag.ContinueOnError)
	tuitionCmd.SetOutput(cli.out)
	tuitionGrade := tuitionCmd.String("grade", "", "The grade ID (e.g. grade-5). Every grade is printed if empty.")
	tuitionOption := tuitionCmd.String("option", string(enrollment.TuitionInstallment), "The tuition option: full or installment.")

	exportCmd := flag.NewFlagSet("export", flag.ContinueOnError)
	exportCmd.SetOutput(cli.out)
	exportOutput := exportCmd.String("o", "", "The .xlsx file to write.")
	exportSearch := exportCmd.String("search", "", "Only the students whose name contains this.")
	exportGrade := exportCmd.String("grade", "", "Only this grade.")
	exportStatus := exportCmd.String("status", "", "Only this status (PENDING, ACTIVE).")
	exportOrdering := exportCmd.String("ordering", "", "Comma separated fields, `-` prefixed for descending order.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		if err := cli.connect(); err != nil {
			return err
		}
		return cli.migrate(args[2:])
	case "tuition":
		if err := tuitionCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		return cli.printTuition(*tuitionGrade, enrollment.TuitionOption(*tuitionOption))
	case "export":
		if err := exportCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *exportOutput == "" {
			exportCmd.Usage()
			return errHelp
		}
		if err := cli.connect(); err != nil {
			return err
		}
		filter := enrollment.QueryFilter{
			Search: core.CleanString(*exportSearch),
			Grade:  *exportGrade,
			Status: enrollment.EnrollmentStatus(*exportStatus),
		}
		return cli.export(*exportOutput, filter, core.ParseOrdering(*exportOrdering, enrollment.OrderingFields))
	default:
		cli.printUsage()
		return errHelp
	}
}
