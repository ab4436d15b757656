package enrollment

import (
	"testing"
)

func TestComputeTuition(t *testing.T) {
	f := func(v float64) *float64 { return &v }

	tests := []struct {
		name   string
		grade  string
		option TuitionOption
		want   Tuition
	}{
		{
			name: "grade-5 full", grade: "grade-5", option: TuitionFull,
			want: Tuition{Grade: "grade-5", Option: TuitionFull, Known: true, Rate: 9500, Discount: 475, FinalAmount: 9025},
		},
		{
			name: "grade-1 full", grade: "grade-1", option: TuitionFull,
			want: Tuition{Grade: "grade-1", Option: TuitionFull, Known: true, Rate: 9000, Discount: 450, FinalAmount: 8550},
		},
		{
			name: "grade-5 installment", grade: "grade-5", option: TuitionInstallment,
			want: Tuition{
				Grade: "grade-5", Option: TuitionInstallment, Known: true, Rate: 9500, FinalAmount: 9500,
				InstallmentAmount: f(950), Installments: 10,
			},
		},
		{
			name: "unknown grade", grade: "grade-42", option: TuitionFull,
			want: Tuition{Grade: "grade-42", Option: TuitionFull},
		},
		{
			name: "unknown grade installment", grade: "", option: TuitionInstallment,
			want: Tuition{Option: TuitionInstallment, InstallmentAmount: f(0), Installments: 10},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeTuition(tt.grade, tt.option)
			if !tuitionEqual(got, tt.want) {
				t.Errorf("ComputeTuition() = %+v; want %+v", got, tt.want)
			}
		})
	}
}

func TestComputeTuition_isDeterministic(t *testing.T) {
	first := ComputeTuition("grade-5", TuitionFull)
	for i := 0; i < 100; i++ {
		if got := ComputeTuition("grade-5", TuitionFull); !tuitionEqual(got, first) {
			t.Fatalf("ComputeTuition() = %+v; want %+v", got, first)
		}
	}
}

func TestComputeTuition_installments(t *testing.T) {
	for _, g := range Grades {
		got := ComputeTuition(g.ID, TuitionInstallment)
		if got.Discount != 0 {
			t.Errorf("%s: Discount = %v; want 0", g.ID, got.Discount)
		}
		if got.InstallmentAmount == nil {
			t.Fatalf("%s: InstallmentAmount = nil", g.ID)
		}
		if want := g.Rate / Installments; *got.InstallmentAmount != want {
			t.Errorf("%s: InstallmentAmount = %v; want %v", g.ID, *got.InstallmentAmount, want)
		}
	}
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		amount float64
		want   string
	}{
		{0, "0.00"},
		{902.5, "902.50"},
		{9025, "9,025.00"},
		{1234567.891, "1,234,567.89"},
		{-475, "-475.00"},
		{-12500, "-12,500.00"},
	}
	for _, tt := range tests {
		if got := FormatAmount(tt.amount); got != tt.want {
			t.Errorf("FormatAmount(%v) = %q; want %q", tt.amount, got, tt.want)
		}
	}
}

func tuitionEqual(a, b Tuition) bool {
	if (a.InstallmentAmount == nil) != (b.InstallmentAmount == nil) {
		return false
	}
	if a.InstallmentAmount != nil && *a.InstallmentAmount != *b.InstallmentAmount {
		return false
	}
	a.InstallmentAmount, b.InstallmentAmount = nil, nil
	return a == b
}
