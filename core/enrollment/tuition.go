package enrollment

import (
	"fmt"
	"strings"
)

const (
	// FullPaymentDiscountPercent applies to the annual rate when paying in full.
	FullPaymentDiscountPercent = 5
	// Installments is the number of installments of the installment option.
	Installments = 10
)

type Grade struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Level int     `json:"level"` // kindergarten: 0
	Rate  float64 `json:"rate"`  // annual rate
}

// Grades is the static grade -> annual rate table, in level order.
var Grades = []Grade{
	{ID: "kindergarten", Name: "Kindergarten", Level: 0, Rate: 8500},
	{ID: "grade-1", Name: "Grade 1", Level: 1, Rate: 9000},
	{ID: "grade-2", Name: "Grade 2", Level: 2, Rate: 9100},
	{ID: "grade-3", Name: "Grade 3", Level: 3, Rate: 9200},
	{ID: "grade-4", Name: "Grade 4", Level: 4, Rate: 9300},
	{ID: "grade-5", Name: "Grade 5", Level: 5, Rate: 9500},
	{ID: "grade-6", Name: "Grade 6", Level: 6, Rate: 10000},
	{ID: "grade-7", Name: "Grade 7", Level: 7, Rate: 10200},
	{ID: "grade-8", Name: "Grade 8", Level: 8, Rate: 10500},
	{ID: "grade-9", Name: "Grade 9", Level: 9, Rate: 11000},
	{ID: "grade-10", Name: "Grade 10", Level: 10, Rate: 11500},
	{ID: "grade-11", Name: "Grade 11", Level: 11, Rate: 12000},
	{ID: "grade-12", Name: "Grade 12", Level: 12, Rate: 12500},
}

var gradesByID = func() map[string]Grade {
	m := make(map[string]Grade, len(Grades))
	for _, g := range Grades {
		m[g.ID] = g
	}
	return m
}()

func LookupGrade(id string) (Grade, bool) {
	g, ok := gradesByID[id]
	return g, ok
}

// Tuition holds the values derived from a grade & a tuition option.
type Tuition struct {
	Grade             string        `json:"grade"`
	Option            TuitionOption `json:"option"`
	Known             bool          `json:"known"` // false: unmapped grade, every amount is 0
	Rate              float64       `json:"rate"`
	Discount          float64       `json:"discount"`
	FinalAmount       float64       `json:"final_amount"`
	InstallmentAmount *float64      `json:"installment_amount,omitempty"` // installment option only
	Installments      int           `json:"installments,omitempty"`
}

// ComputeTuition derives the tuition amounts. An unmapped grade yields a zero rate, not an error.
// Amounts are computed in cents so that they are exact to the cent.
func ComputeTuition(grade string, option TuitionOption) Tuition {
	t := Tuition{Grade: grade, Option: option}

	g, ok := LookupGrade(grade)
	t.Known = ok
	rate := toCents(g.Rate)

	var discount int64
	if option == TuitionFull {
		discount = rate * FullPaymentDiscountPercent / 100
	}
	final := rate - discount

	t.Rate = fromCents(rate)
	t.Discount = fromCents(discount)
	t.FinalAmount = fromCents(final)
	if option == TuitionInstallment {
		installment := float64(final) / Installments / 100
		t.InstallmentAmount = &installment
		t.Installments = Installments
	}
	return t
}

func toCents(amount float64) int64 {
	if amount < 0 {
		return int64(amount*100 - 0.5)
	}
	return int64(amount*100 + 0.5)
}

func fromCents(cents int64) float64 {
	return float64(cents) / 100
}

// FormatAmount formats an amount with thousands separators & 2 decimals: 9025 -> "9,025.00".
func FormatAmount(amount float64) string {
	s := fmt.Sprintf("%.2f", amount)
	intPart, decPart := s[:len(s)-3], s[len(s)-3:]
	neg := strings.HasPrefix(intPart, "-")
	intPart = strings.TrimPrefix(intPart, "-")

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	b.WriteString(decPart)
	return b.String()
}
