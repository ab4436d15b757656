package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-emis/core/enrollment"
)

func (cli *commandLine) printTuition(grade string, option enrollment.TuitionOption) error {
	if option != enrollment.TuitionFull && option != enrollment.TuitionInstallment {
		return errors.Errorf("unknown tuition option %q", option)
	}
	grades := enrollment.Grades
	if grade != "" {
		g, ok := enrollment.LookupGrade(grade)
		if !ok {
			return errors.Errorf("unknown grade %q", grade)
		}
		grades = []enrollment.Grade{g}
	}

	w := tabwriter.NewWriter(cli.out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "GRADE\tOPTION\tRATE\tDISCOUNT\tFINAL\tINSTALLMENT\t")
	for _, g := range grades {
		t := enrollment.ComputeTuition(g.ID, option)
		installment := "-"
		if t.InstallmentAmount != nil {
			installment = fmt.Sprintf("%d x %s", t.Installments, enrollment.FormatAmount(*t.InstallmentAmount))
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t\n",
			g.Name,
			t.Option,
			enrollment.FormatAmount(t.Rate),
			enrollment.FormatAmount(t.Discount),
			enrollment.FormatAmount(t.FinalAmount),
			installment,
		)
	}
	return w.Flush()
}
