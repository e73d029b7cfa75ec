package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateEmail(t *testing.T) {
	assert.True(t, ValidateEmail("ada@example.com"))
	assert.True(t, ValidateEmail("ada.obi+scores@tidescore.example"))
	assert.False(t, ValidateEmail("ada@"))
	assert.False(t, ValidateEmail("not-an-email"))
	assert.False(t, ValidateEmail(""))
}

func TestValidatePhone(t *testing.T) {
	assert.True(t, ValidatePhone("+2348012345678"))
	assert.True(t, ValidatePhone("0801 234 5678"))
	assert.False(t, ValidatePhone("12345"))
	assert.False(t, ValidatePhone(""))
}

func TestValidateActivityNaming(t *testing.T) {
	valid := []string{
		"calculate-tidescore",
		"persist-score-record",
		"validate-applicant-signals",
		"fetch-verified-signals",
		"send-score-notification",
		"index-score-event",
	}
	for _, id := range valid {
		assert.True(t, ValidateActivityNaming(id), id)
	}

	invalid := []string{
		"",
		"Calculate-Tidescore",
		"calculate_tidescore",
		"calculate-tidescore-",
		"-calculate",
		"calculate tidescore",
		"calculate--tidescore",
	}
	for _, id := range invalid {
		assert.False(t, ValidateActivityNaming(id), id)
	}
}
