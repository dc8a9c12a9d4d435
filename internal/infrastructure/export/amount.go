package export

import (
	"strings"

	"github.com/shopspring/decimal"
)

var (
	cnDigits   = []string{"零", "壹", "贰", "叁", "肆", "伍", "陆", "柒", "捌", "玖"}
	cnUnits    = []string{"", "拾", "佰", "仟"}
	cnBigUnits = []string{"", "万", "亿", "万亿"}
)

// AmountInWords renders an amount in capitalized Chinese (大写金额), rounded to fen
func AmountInWords(amount decimal.Decimal) string {
	amount = amount.Round(2)
	if amount.IsZero() {
		return "零元整"
	}

	var b strings.Builder
	if amount.IsNegative() {
		b.WriteString("负")
		amount = amount.Neg()
	}

	yuan := amount.IntPart()
	cents := amount.Sub(decimal.NewFromInt(yuan)).Shift(2).IntPart()
	jiao, fen := cents/10, cents%10

	b.WriteString(integerWords(yuan))
	b.WriteString("元")

	if jiao == 0 && fen == 0 {
		b.WriteString("整")
		return b.String()
	}
	if jiao != 0 {
		b.WriteString(cnDigits[jiao] + "角")
	} else if yuan != 0 {
		b.WriteString("零")
	}
	if fen != 0 {
		b.WriteString(cnDigits[fen] + "分")
	}
	return b.String()
}

func integerWords(n int64) string {
	if n == 0 {
		return cnDigits[0]
	}

	var groups []int64 // lowest four digits first
	for n > 0 {
		groups = append(groups, n%10000)
		n /= 10000
	}

	var b strings.Builder
	skipped := false
	for i := len(groups) - 1; i >= 0; i-- {
		g := groups[i]
		if g == 0 {
			skipped = true
			continue
		}
		if b.Len() > 0 && (skipped || g < 1000) {
			b.WriteString(cnDigits[0])
		}
		b.WriteString(groupWords(g))
		if i < len(cnBigUnits) {
			b.WriteString(cnBigUnits[i])
		}
		skipped = false
	}
	return b.String()
}

// groupWords spells 1..9999 without a leading zero
func groupWords(g int64) string {
	var b strings.Builder
	pendingZero := false
	for pos := 3; pos >= 0; pos-- {
		d := (g / pow10[pos]) % 10
		if d == 0 {
			pendingZero = b.Len() > 0
			continue
		}
		if pendingZero {
			b.WriteString(cnDigits[0])
			pendingZero = false
		}
		b.WriteString(cnDigits[d] + cnUnits[pos])
	}
	return b.String()
}

var pow10 = []int64{1, 10, 100, 1000}
