package core

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitValidators(t *testing.T) {
	validate := validator.New()
	translator := NewTranslator()
	InitValidators(validate, translator)

	type data struct {
		SchoolID string `json:"school_id" validate:"required,notblank"`
		Initials string `json:"initials" validate:"notblank"`
	}

	tests := []struct {
		name string
		data data
		want map[string]string
	}{
		{
			name: "valid",
			data: data{SchoolID: "school-1", Initials: "JD"},
		},
		{
			name: "missing",
			data: data{Initials: "JD"},
			want: map[string]string{"school_id": "this field is required"},
		},
		{
			name: "blank",
			data: data{SchoolID: "  ", Initials: "\t"},
			want: map[string]string{
				"school_id": "this field cannot be blank",
				"initials":  "this field cannot be blank",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate.Struct(tt.data)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			var vErrs validator.ValidationErrors
			require.ErrorAs(t, err, &vErrs)
			assert.Equal(t, tt.want, TranslateErrors(vErrs, translator))
		})
	}
}
