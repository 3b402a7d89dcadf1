package quantquery

import (
	"strconv"
	"strings"
	"time"
)

// numeralWords maps spelled-out English quantities to values.
var numeralWords = map[string]int{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5, "six": 6,
	"seven": 7, "eight": 8, "nine": 9, "ten": 10, "eleven": 11, "twelve": 12,
}

// chineseDigits maps single logographic digit characters to values.
var chineseDigits = map[rune]int{
	'〇': 0, '零': 0,
	'一': 1, '二': 2, '两': 2, '三': 3, '四': 4,
	'五': 5, '六': 6, '七': 7, '八': 8, '九': 9,
}

const chineseTen = '十'

// halfYearMonths is the quantity denoted by the half-year shorthand ("half" / "半").
const halfYearMonths = 6

type lookbackUnit int

const (
	unitNone lookbackUnit = iota
	unitDay
	unitWeek
	unitMonth
	unitYear
)

// unitAliases maps unit tokens in both scripts to a lookback unit.
var unitAliases = map[string]lookbackUnit{
	"d": unitDay, "day": unitDay, "days": unitDay, "天": unitDay, "日": unitDay,
	"w": unitWeek, "week": unitWeek, "weeks": unitWeek, "周": unitWeek, "星期": unitWeek,
	"m": unitMonth, "mo": unitMonth, "month": unitMonth, "months": unitMonth, "月": unitMonth, "个月": unitMonth,
	"y": unitYear, "yr": unitYear, "year": unitYear, "years": unitYear, "年": unitYear,
}

// ParseQuantity parses a quantity token: a digit string, an English number
// word up to twelve, the half-year shorthand, or a logographic numeral.
func ParseQuantity(token string) (int, bool) {
	token = strings.ToLower(strings.TrimSpace(token))
	if token == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(token); err == nil {
		return n, true
	}
	if n, ok := numeralWords[token]; ok {
		return n, true
	}
	if token == "half" || token == "半" || token == "半年" {
		return halfYearMonths, true
	}
	return parseChineseNumeral(token)
}

// parseChineseNumeral evaluates a logographic numeral. A bare tens character
// is ten; a token ending in the tens character is leadingDigit*10; a token
// containing it elsewhere is prefix*10+suffix with an implicit leading one;
// anything else composes positionally through the digit table.
func parseChineseNumeral(token string) (int, bool) {
	runes := []rune(token)
	if len(runes) == 0 {
		return 0, false
	}
	tenIndex := -1
	for i, r := range runes {
		if r == chineseTen {
			tenIndex = i
			break
		}
	}
	if tenIndex >= 0 {
		if len(runes) == 1 {
			return 10, true
		}
		if len(runes) == 2 && tenIndex == 1 {
			tens, ok := chineseDigits[runes[0]]
			if !ok {
				return 0, false
			}
			return tens * 10, true
		}
		prefix := 1
		if tenIndex > 0 {
			value, ok := composeDigits(runes[:tenIndex])
			if !ok {
				return 0, false
			}
			prefix = value
		}
		suffix := 0
		if tenIndex < len(runes)-1 {
			value, ok := composeDigits(runes[tenIndex+1:])
			if !ok {
				return 0, false
			}
			suffix = value
		}
		return prefix*10 + suffix, true
	}
	return composeDigits(runes)
}

// composeDigits evaluates runes as positional base-ten digits.
func composeDigits(runes []rune) (int, bool) {
	if len(runes) == 0 {
		return 0, false
	}
	value := 0
	for _, r := range runes {
		digit, ok := chineseDigits[r]
		if !ok {
			if r >= '0' && r <= '9' {
				digit = int(r - '0')
			} else {
				return 0, false
			}
		}
		value = value*10 + digit
	}
	return value, true
}

// parseUnit resolves a unit token in either script.
func parseUnit(token string) lookbackUnit {
	token = strings.ToLower(strings.TrimSpace(token))
	if unit, ok := unitAliases[token]; ok {
		return unit
	}
	return unitNone
}

// ResolveLookback subtracts quantity units from the reference end date.
// Days and weeks subtract literal durations; months and years use
// calendar-aware month arithmetic so "one month before March 31" lands on
// the last day of February. Returns false when the window is undefined.
func ResolveLookback(end time.Time, quantity int, unit string) (time.Time, bool) {
	if quantity <= 0 {
		return time.Time{}, false
	}
	switch parseUnit(unit) {
	case unitDay:
		return end.AddDate(0, 0, -quantity), true
	case unitWeek:
		return end.AddDate(0, 0, -7*quantity), true
	case unitMonth:
		return addMonthsClamped(end, -quantity), true
	case unitYear:
		return addMonthsClamped(end, -12*quantity), true
	default:
		return time.Time{}, false
	}
}

// addMonthsClamped shifts a date by whole months, clamping the day-of-month
// to the last valid day of the target month. time.AddDate normalizes
// overflow (Mar 31 - 1 month = Mar 3), which is not what calendar lookbacks
// want.
func addMonthsClamped(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	total := int(month) - 1 + months
	offset := total % 12
	if offset < 0 {
		offset += 12
	}
	year += (total - offset) / 12
	targetMonth := time.Month(offset + 1)
	if last := daysInMonth(year, targetMonth); day > last {
		day = last
	}
	return time.Date(year, targetMonth, day, 0, 0, 0, 0, t.Location())
}

// daysInMonth returns the number of days in the given month.
func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
