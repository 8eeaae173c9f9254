package plugins

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"legalcheck-backend/models"
)

// Calculation is an advisory estimate with the formula that produced it.
type Calculation struct {
	Name          string `json:"calculator_name"`
	MonthlySalary int64  `json:"assumed_monthly_salary"`
	WorkedDays    int    `json:"worked_days,omitempty"`
	Amount        int64  `json:"estimated_amount"`
	Note          string `json:"note"`
}

// NoticeAllowance estimates the dismissal notice allowance as
// floor(monthlySalary/209*8*30), assuming a 40-hour week.
func NoticeAllowance(monthlySalary int64) Calculation {
	hourly := float64(monthlySalary) / 209
	return Calculation{
		Name:          "해고예고수당",
		MonthlySalary: monthlySalary,
		Amount:        int64(math.Floor(hourly * 8 * 30)),
		Note:          "이 계산은 주 40시간 근로자를 가정하여 '월급 ÷ 209시간 × 8시간 × 30일'로 단순화한 근사치입니다. 정확한 금액은 연장수당 등 고정수당 여부에 따라 달라집니다.",
	}
}

// SeverancePay estimates severance as
// floor(monthlySalary*3/90*30*(workedDays/365)).
func SeverancePay(averageMonthlySalary int64, workedDays int) Calculation {
	daily := float64(averageMonthlySalary) * 3 / 90
	return Calculation{
		Name:          "퇴직금",
		MonthlySalary: averageMonthlySalary,
		WorkedDays:    workedDays,
		Amount:        int64(math.Floor(daily * 30 * (float64(workedDays) / 365))),
		Note:          "이 계산은 평균임금(3개월 총액/총일수)을 단순 근사한 수치이며, 상여금 및 연차수당이 포함될 경우 실제 지급액은 더 높을 수 있습니다.",
	}
}

var (
	manwonRe  = regexp.MustCompile(`([0-9][0-9,]*(?:\.[0-9]+)?)\s*만\s*원?`)
	wonRe     = regexp.MustCompile(`([0-9]{1,3}(?:,[0-9]{3})+|[0-9]{5,})\s*원`)
	yearRe    = regexp.MustCompile(`(?:^|[^0-9])([0-9]{1,2}|[한두세네]|다섯)\s*년`)
	monthRe   = regexp.MustCompile(`([0-9]{1,3}|[한두세네]|다섯|여섯|일곱|여덟|아홉|열)\s*(?:개월|달)`)
	dayRe     = regexp.MustCompile(`([0-9]+)\s*일(?:\s*(?:동안|간|근무|일했|째)|$|[\s,.!?)])`)
	koreanNum = map[string]int{
		"한": 1, "두": 2, "세": 3, "네": 4, "다섯": 5, "여섯": 6,
		"일곱": 7, "여덟": 8, "아홉": 9, "열": 10,
	}
)

// ExtractWageFacts pulls a monthly salary and an employment duration from
// free text. Zero values mean the fact was not found.
func ExtractWageFacts(text string) models.WageFacts {
	var facts models.WageFacts

	if m := manwonRe.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64); err == nil {
			facts.MonthlySalary = int64(v * 10000)
		}
	} else if m := wonRe.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseInt(strings.ReplaceAll(m[1], ",", ""), 10, 64); err == nil {
			facts.MonthlySalary = v
		}
	}

	days := 0
	if m := yearRe.FindStringSubmatch(text); m != nil {
		days += parseCount(m[1]) * 365
	}
	if m := monthRe.FindStringSubmatch(text); m != nil {
		days += parseCount(m[1]) * 30
	}
	if days == 0 {
		days = workedDayCount(text)
	}
	facts.WorkedDays = days
	return facts
}

// workedDayCount returns the first "N일" that is not the day of a date
// ("3월 15일").
func workedDayCount(text string) int {
	for _, m := range dayRe.FindAllStringSubmatchIndex(text, -1) {
		if strings.HasSuffix(strings.TrimSpace(text[:m[2]]), "월") {
			continue
		}
		return parseCount(text[m[2]:m[3]])
	}
	return 0
}

func parseCount(s string) int {
	if n, ok := koreanNum[s]; ok {
		return n
	}
	n, _ := strconv.Atoi(s)
	return n
}

// FormatCalculations renders the calculator fragment for the plugin context.
// Without a salary only the formulas are listed.
func FormatCalculations(facts models.WageFacts) string {
	var b strings.Builder
	b.WriteString("[금액 계산 (참고용 추정치)]\n")
	if facts.MonthlySalary <= 0 {
		b.WriteString("- 월급 정보가 없어 금액을 계산하지 못했습니다.\n")
		b.WriteString("- 해고예고수당 = 월급 ÷ 209시간 × 8시간 × 30일\n")
		b.WriteString("- 퇴직금 = (월급 × 3 ÷ 90일) × 30일 × (근무일수 ÷ 365)")
		return b.String()
	}

	n := NoticeAllowance(facts.MonthlySalary)
	fmt.Fprintf(&b, "- %s: 약 %s원 (월급 %s원 기준). %s\n", n.Name, formatWon(n.Amount), formatWon(n.MonthlySalary), n.Note)
	if facts.WorkedDays > 0 {
		s := SeverancePay(facts.MonthlySalary, facts.WorkedDays)
		fmt.Fprintf(&b, "- %s: 약 %s원 (근무 %d일 기준). %s", s.Name, formatWon(s.Amount), s.WorkedDays, s.Note)
		if facts.WorkedDays < 365 {
			b.WriteString(" 계속근로기간이 1년 미만이면 법정 퇴직금 지급 대상이 아닐 수 있습니다.")
		}
	} else {
		b.WriteString("- 퇴직금: 근무 기간 정보가 없어 계산하지 못했습니다.")
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatWon(v int64) string {
	s := strconv.FormatInt(v, 10)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
