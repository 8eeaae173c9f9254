package plugins

import (
	"testing"

	"legalcheck-backend/models"

	"github.com/stretchr/testify/assert"
)

func TestNoticeAllowance(t *testing.T) {
	// floor(2000000/209*8*30) = floor(2296650.71...)
	got := NoticeAllowance(2_000_000)
	assert.Equal(t, int64(2_296_650), got.Amount)
	assert.Equal(t, "해고예고수당", got.Name)
	assert.Contains(t, got.Note, "209시간")
}

func TestSeverancePay(t *testing.T) {
	got := SeverancePay(3_000_000, 365)
	assert.Equal(t, int64(3_000_000), got.Amount)
	assert.Equal(t, 365, got.WorkedDays)

	assert.Equal(t, int64(0), SeverancePay(3_000_000, 0).Amount)
	assert.Equal(t, int64(1_495_890), SeverancePay(3_000_000, 182).Amount)
}

func TestExtractWageFacts(t *testing.T) {
	tests := []struct {
		in   string
		want models.WageFacts
	}{
		{"회사에서 문자로 해고당했고 두 달 일했어요", models.WageFacts{WorkedDays: 60}},
		{"월급 200만원 받고 1년 6개월 일했어요", models.WageFacts{MonthlySalary: 2_000_000, WorkedDays: 545}},
		{"월 2,500,000원, 3개월 근무", models.WageFacts{MonthlySalary: 2_500_000, WorkedDays: 90}},
		{"400일 동안 일했고 월급은 250.5만 원", models.WageFacts{MonthlySalary: 2_505_000, WorkedDays: 400}},
		{"월급 200만원 400일", models.WageFacts{MonthlySalary: 2_000_000, WorkedDays: 400}},
		{"월급 200만원, 400일, 퇴직금은?", models.WageFacts{MonthlySalary: 2_000_000, WorkedDays: 400}},
		{"3월 15일 해고, 근무 200일 동안", models.WageFacts{WorkedDays: 200}},
		{"2023년에 입사했어요", models.WageFacts{}},
		{"안녕하세요", models.WageFacts{}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractWageFacts(tt.in))
		})
	}
}

func TestFormatCalculations(t *testing.T) {
	out := FormatCalculations(models.WageFacts{MonthlySalary: 2_000_000, WorkedDays: 60})
	assert.Contains(t, out, "2,296,650원")
	assert.Contains(t, out, "1년 미만")

	formulas := FormatCalculations(models.WageFacts{})
	assert.Contains(t, formulas, "월급 ÷ 209시간")
	assert.NotContains(t, formulas, "약 ")
}

func TestFormatWon(t *testing.T) {
	assert.Equal(t, "0", formatWon(0))
	assert.Equal(t, "999", formatWon(999))
	assert.Equal(t, "1,000", formatWon(1000))
	assert.Equal(t, "2,296,650", formatWon(2296650))
	assert.Equal(t, "-12,345", formatWon(-12345))
}
