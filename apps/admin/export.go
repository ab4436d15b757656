package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/masomo-emis/core"
	"github.com/trezcool/masomo-emis/core/enrollment"
)

const exportSheet = "Enrollments"

var exportHeader = []interface{}{
	"Enrollment ID", "Student ID", "First Name", "Middle Name", "Last Name", "Date of Birth",
	"Grade", "Enrollment Date", "Status", "Tuition Option", "Tuition Amount", "Created At",
}

func (cli *commandLine) export(path string, filter enrollment.QueryFilter, ordering []core.DBOrdering) error {
	enrs, err := cli.repo.QueryEnrollments(context.Background(), filter, ordering...)
	if err != nil {
		return errors.Wrap(err, "querying enrollments")
	}

	file, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "creating export file")
	}
	if err = writeEnrollments(file, enrs); err != nil {
		_ = file.Close()
		return err
	}
	if err = file.Close(); err != nil {
		return errors.Wrap(err, "closing export file")
	}
	fmt.Fprintf(cli.out, "%d enrollments exported to %s\n", len(enrs), path)
	return nil
}

// writeEnrollments writes the enrollments as an .xlsx workbook, one row per enrollment.
func writeEnrollments(w io.Writer, enrs []enrollment.Enrollment) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), exportSheet); err != nil {
		return errors.Wrap(err, "naming sheet")
	}
	if err := f.SetSheetRow(exportSheet, "A1", &exportHeader); err != nil {
		return errors.Wrap(err, "writing header")
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return errors.Wrap(err, "creating header style")
	}
	lastCol, _ := excelize.ColumnNumberToName(len(exportHeader))
	if err = f.SetCellStyle(exportSheet, "A1", lastCol+"1", bold); err != nil {
		return errors.Wrap(err, "styling header")
	}

	for i, e := range enrs {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := []interface{}{
			e.ID, e.StudentID, e.Student.FirstName, e.Student.MiddleName, e.Student.LastName, e.Student.DateOfBirth,
			e.Grade, e.EnrollmentDate, string(e.Status), string(e.TuitionOption), e.TuitionAmount,
			e.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
		}
		if err = f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return errors.Wrapf(err, "writing row %d", i+2)
		}
	}

	if err = f.Write(w); err != nil {
		return errors.Wrap(err, "writing workbook")
	}
	return nil
}
